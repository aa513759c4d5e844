package services

import (
	"errors"

	"fieldservice-backend/repository"
)

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = repository.ErrNotFound

	// ErrInvalidInput wraps request data the rules reject (unknown customer, unknown catalog item, bad status).
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvoiceClosed is returned when a manual payment or late fee targets a paid or cancelled invoice.
	ErrInvoiceClosed = errors.New("invoice is closed")

	// ErrInvoiceHasPayments is returned when items or tax change on an invoice that already holds money.
	ErrInvoiceHasPayments = errors.New("invoice has completed payments; items and tax are locked")
)
