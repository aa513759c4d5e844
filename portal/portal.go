// Package portal signs and verifies the magic links that give customers read access to a job.
package portal

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const audience = "portal"

// ErrInvalidLink is returned for tampered, expired or foreign tokens.
var ErrInvalidLink = errors.New("invalid or expired portal link")

// Claims is the magic-link payload. Subject is the customer id.
type Claims struct {
	Schema    string `json:"schema"`
	CompanyID string `json:"company_id"`
	JobID     uint   `json:"job_id"`
	jwt.RegisteredClaims
}

// CustomerID returns the numeric customer id carried in the subject.
func (c *Claims) CustomerID() uint {
	id, _ := strconv.ParseUint(c.Subject, 10, 64)
	return uint(id)
}

type Signer struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

func NewSigner(secret string, ttl time.Duration, baseURL string) *Signer {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

// Sign issues a token for one customer's job in one tenant.
func (s *Signer) Sign(schema, companyID string, customerID, jobID uint) (string, error) {
	now := s.now()
	claims := &Claims{
		Schema:    schema,
		CompanyID: companyID,
		JobID:     jobID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(customerID), 10),
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Link signs a token and returns the full portal URL.
func (s *Signer) Link(schema, companyID string, customerID, jobID uint) (string, error) {
	token, err := s.Sign(schema, companyID, customerID, jobID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/jobs?token=%s", s.baseURL, url.QueryEscape(token)), nil
}

// Verify parses a token and checks signature, expiry and audience.
func (s *Signer) Verify(raw string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	var claims Claims
	token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidLink
	}
	if !claims.VerifyAudience(audience, true) || !claims.VerifyExpiresAt(s.now(), true) {
		return nil, ErrInvalidLink
	}
	if claims.Schema == "" || claims.JobID == 0 || claims.CustomerID() == 0 {
		return nil, ErrInvalidLink
	}
	return &claims, nil
}
