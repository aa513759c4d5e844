package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type patchDTO struct {
	Name      *string          `json:"name"`
	Email     *string          `json:"email,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Active    *bool            `json:"active"`
	Ignored   string           `json:"ignored"`
	Hidden    *string          `json:"-"`
}

type createDTO struct {
	Name  string
	Price decimal.Decimal
	Qty   int
}

func ptr[T any](v T) *T { return &v }

func TestNormalizePtrDTO(t *testing.T) {
	dto := &patchDTO{
		Name:      ptr("  Boiler service "),
		UnitPrice: ptr(decimal.RequireFromString("19.995")),
	}
	NormalizePtrDTO(dto)

	assert.Equal(t, "Boiler service", *dto.Name)
	assert.Equal(t, "20", dto.UnitPrice.String())
	assert.Nil(t, dto.Email)
}

func TestNormalizeDTO(t *testing.T) {
	dto := &createDTO{Name: " Filter ", Price: decimal.RequireFromString("-2.345"), Qty: 3}
	NormalizeDTO(dto)

	assert.Equal(t, "Filter", dto.Name)
	assert.Equal(t, "-2.35", dto.Price.String())
	assert.Equal(t, 3, dto.Qty)

	// non-pointers are ignored
	NormalizeDTO(*dto)
}

func TestPatchColumns(t *testing.T) {
	dto := &patchDTO{
		Name:    ptr("  Ann "),
		Email:   ptr("ann@example.com"),
		Active:  ptr(false),
		Ignored: "x",
		Hidden:  ptr("secret"),
	}
	got := PatchColumns(dto, map[string]string{"name": "first_name"})

	assert.Equal(t, map[string]any{
		"first_name": "Ann",
		"email":      "ann@example.com",
		"active":     false,
	}, got)
	assert.Equal(t, "  Ann ", *dto.Name, "DTO left untouched")
	assert.Empty(t, PatchColumns(patchDTO{}, nil))
}

func TestQueryInt(t *testing.T) {
	assert.Equal(t, 25, QueryInt(" 25 ", 50, 200))
	assert.Equal(t, 50, QueryInt("", 50, 200))
	assert.Equal(t, 50, QueryInt("-1", 50, 200))
	assert.Equal(t, 50, QueryInt("abc", 50, 200))
	assert.Equal(t, 200, QueryInt("5000", 50, 200))
	assert.Equal(t, 5000, QueryInt("5000", 0, 0))
}
