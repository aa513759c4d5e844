package middlewares

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fieldservice-backend/database"
	"fieldservice-backend/logger"
	"fieldservice-backend/models"
)

const maxIdempotencyKey = 128

// IdempotencyStore persists Idempotency-Key records per tenant schema.
type IdempotencyStore interface {
	// Reserve returns the stored record for rec.Key, creating rec as pending when none exists.
	Reserve(ctx context.Context, schema string, rec models.IdempotencyKey) (models.IdempotencyKey, bool, error)
	Complete(ctx context.Context, schema, key string, status int, contentType string, body []byte) error
	Release(ctx context.Context, schema, key string) error
}

// Idempotency processes Idempotency-Key for mutating HTTP methods against the database store.
func Idempotency() fiber.Handler {
	return IdempotencyWith(dbIdempotencyStore{})
}

// IdempotencyWith processes Idempotency-Key for mutating HTTP methods in a schema-safe way.
// A completed response is replayed; a key still running answers 409; a failed request frees
// its key so the client can retry.
func IdempotencyWith(store IdempotencyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get("Idempotency-Key"))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKey {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Idempotency-Key too long"})
		}

		schema, _ := c.Locals("schema").(string)
		userID, _ := c.Locals("userID").(string)
		if schema == "" || userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "auth context missing"})
		}

		path := c.OriginalURL() // includes query string
		reqHash := requestHash(method, path, c.Body(), schema, userID)
		ctx := c.UserContext()

		// ---- Phase 1: read/create "pending"
		existing, created, err := store.Reserve(ctx, schema, models.IdempotencyKey{
			Key:         key,
			RequestHash: reqHash,
			Method:      method,
			Path:        path,
			UserID:      userID,
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency lookup failed")
		}
		if existing.RequestHash != reqHash {
			return fiber.NewError(fiber.StatusConflict, "Idempotency-Key reuse with different request")
		}
		if existing.ResponseStatus != 0 {
			if existing.ContentType != "" {
				c.Set(fiber.HeaderContentType, existing.ContentType)
			}
			c.Set("Idempotent-Replayed", "true")
			return c.Status(existing.ResponseStatus).Send(existing.ResponseBody)
		}
		if !created {
			return fiber.NewError(fiber.StatusConflict, "request with this Idempotency-Key is still in progress")
		}

		release := func() {
			if rerr := store.Release(context.WithoutCancel(ctx), schema, key); rerr != nil {
				l := logger.WithTenant(schema, userID)
				l.Warn().Err(rerr).Str("key", key).Msg("idempotency release failed")
			}
		}
		if err := c.Next(); err != nil {
			release()
			return err
		}
		// Server-side failures rendered by the handler stay retryable.
		if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			release()
			return nil
		}

		// ---- Phase 2: store the response. Best-effort: don't break the successful response.
		resp := c.Response().Body()
		blob := make([]byte, len(resp))
		copy(blob, resp)
		ct := string(c.Response().Header.ContentType())
		if err := store.Complete(context.WithoutCancel(ctx), schema, key, c.Response().StatusCode(), ct, blob); err != nil {
			l := logger.WithTenant(schema, userID)
			l.Warn().Err(err).Str("key", key).Msg("idempotency store failed")
		}
		return nil
	}
}

// requestHash is sha256 of method|path|body|schema|user.
func requestHash(method, path string, body []byte, schema, userID string) string {
	h := sha256.New()
	for i, part := range [][]byte{[]byte(method), []byte(path), body, []byte(schema), []byte(userID)} {
		if i > 0 {
			h.Write([]byte{'\n'})
		}
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// dbIdempotencyStore keeps records in the tenant schema using short transactions
// of their own, so they survive a rolled back handler transaction.
type dbIdempotencyStore struct{}

func (dbIdempotencyStore) Reserve(ctx context.Context, schema string, rec models.IdempotencyKey) (models.IdempotencyKey, bool, error) {
	var existing models.IdempotencyKey
	created := false
	err := database.WithTenant(ctx, schema, func(tx *gorm.DB) error {
		err := tx.Where("key = ?", rec.Key).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost the race to a concurrent request
			return tx.Where("key = ?", rec.Key).First(&existing).Error
		}
		existing = rec
		created = true
		return nil
	})
	return existing, created, err
}

func (dbIdempotencyStore) Complete(ctx context.Context, schema, key string, status int, contentType string, body []byte) error {
	return database.WithTenant(ctx, schema, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		return tx.Model(&models.IdempotencyKey{}).
			Where("key = ?", key).
			Updates(map[string]any{
				"response_status": status,
				"response_body":   body,
				"content_type":    contentType,
				"completed_at":    &now,
			}).Error
	})
}

func (dbIdempotencyStore) Release(ctx context.Context, schema, key string) error {
	return database.WithTenant(ctx, schema, func(tx *gorm.DB) error {
		return tx.Where("key = ? AND response_status = 0", key).Delete(&models.IdempotencyKey{}).Error
	})
}
