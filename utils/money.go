package utils

import (
	"github.com/shopspring/decimal"

	"fieldservice-backend/billing"
)

// Round2 rounds an amount to currency precision, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(billing.Places)
}
