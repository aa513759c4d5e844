package middlewares

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldservice-backend/models"
)

const testSecret = "test-secret"

func authApp() *fiber.App {
	SetJWTSecret(testSecret)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(IsAuthenticatedHeader())
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user":    c.Locals("userID"),
			"schema":  c.Locals("schema"),
			"company": c.Locals("companyID"),
			"role":    c.Locals("role"),
		})
	})
	app.Get("/owners", RequireRole(models.RoleOwner), func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/admin", RequireSuperAdmin(), func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func bearer(t *testing.T, p *models.Profile, schema string) string {
	t.Helper()
	tok, err := GenerateJWT(p, schema)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestAuthenticatedRequestCarriesClaims(t *testing.T) {
	app := authApp()
	p := &models.Profile{Id: "u-1", CompanyID: "c-1", Role: models.RoleOwner}

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", bearer(t, p, "t_acme"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "u-1", got["user"])
	assert.Equal(t, "t_acme", got["schema"])
	assert.Equal(t, "c-1", got["company"])
	assert.Equal(t, models.RoleOwner, got["role"])
}

func TestAuthRejectsBadTokens(t *testing.T) {
	app := authApp()

	signed := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return "Bearer " + s
	}
	valid := jwt.RegisteredClaims{Subject: "u-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	cases := map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"wrong secret": signed(&Claims{Schema: "t_a", Role: "owner", RegisteredClaims: valid}, jwt.SigningMethodHS256, []byte("other")),
		"expired": signed(&Claims{Schema: "t_a", Role: "owner", RegisteredClaims: jwt.RegisteredClaims{
			Subject: "u-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}, jwt.SigningMethodHS256, []byte(testSecret)),
		"no role":   signed(&Claims{Schema: "t_a", RegisteredClaims: valid}, jwt.SigningMethodHS256, []byte(testSecret)),
		"no tenant": signed(&Claims{Role: "owner", RegisteredClaims: valid}, jwt.SigningMethodHS256, []byte(testSecret)),
		"portal audience": signed(&Claims{Schema: "t_a", Role: "owner", RegisteredClaims: jwt.RegisteredClaims{
			Subject: "u-1", Audience: jwt.ClaimStrings{"portal"}, ExpiresAt: valid.ExpiresAt,
		}}, jwt.SigningMethodHS256, []byte(testSecret)),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestSuperAdminTokenNeedsNoTenant(t *testing.T) {
	app := authApp()
	p := &models.Profile{Id: "root", Role: models.RoleSuperAdmin}

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", bearer(t, p, ""))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	// super admins pass role checks too
	req = httptest.NewRequest("GET", "/owners", nil)
	req.Header.Set("Authorization", bearer(t, p, ""))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRoleGuards(t *testing.T) {
	app := authApp()
	tech := &models.Profile{Id: "u-2", CompanyID: "c-1", Role: models.RoleTechnician}

	for _, path := range []string{"/owners", "/admin"} {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("Authorization", bearer(t, tech, "t_acme"))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, path)
		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "message")
	}
}
