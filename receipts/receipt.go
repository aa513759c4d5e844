// Package receipts renders payment receipts as PDF.
package receipts

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"fieldservice-backend/billing"
	"fieldservice-backend/models"
)

// ErrNotCompleted is returned for payments that did not go through.
var ErrNotCompleted = errors.New("receipts are only issued for completed payments")

type Line struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// Receipt is everything printed on a receipt.
type Receipt struct {
	CompanyName    string
	CompanyAddress string
	CompanyEmail   string
	CustomerName   string
	CustomerEmail  string
	InvoiceID      uint
	InvoiceNumber  string
	PaymentID      uint
	PaidAt         time.Time
	Method         string
	Reference      string
	Amount         decimal.Decimal
	InvoiceTotal   decimal.Decimal
	LateFee        decimal.Decimal
	PaidTotal      decimal.Decimal
	Remaining      decimal.Decimal
	Lines          []Line
}

// New assembles a receipt for payment p on inv. inv.Payments must be loaded.
func New(company *models.Company, inv *models.Invoice, p *models.Payment) (*Receipt, error) {
	if p.Status != billing.PaymentCompleted {
		return nil, ErrNotCompleted
	}
	payments := models.ForBilling(inv.Payments)
	r := &Receipt{
		CompanyName:    company.Name,
		CompanyAddress: address(company),
		CompanyEmail:   company.Email,
		CustomerName:   inv.Customer.DisplayName(),
		CustomerEmail:  inv.Customer.Email,
		InvoiceID:      inv.ID,
		InvoiceNumber:  inv.Number,
		PaymentID:      p.ID,
		PaidAt:         p.PaidAt,
		Method:         p.Method,
		Reference:      p.Reference,
		Amount:         p.Amount,
		InvoiceTotal:   inv.Total,
		LateFee:        inv.LateFee,
		PaidTotal:      billing.PaidTotal(payments),
		Remaining:      billing.RemainingBalance(inv.Total, inv.LateFee, payments),
	}
	for _, it := range inv.Items {
		r.Lines = append(r.Lines, Line{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.LineTotal,
		})
	}
	return r, nil
}

func address(c *models.Company) string {
	var parts []string
	if a := strings.TrimSpace(c.Address); a != "" {
		parts = append(parts, a)
	}
	if city := strings.TrimSpace(c.Zip + " " + c.City); city != "" {
		parts = append(parts, city)
	}
	return strings.Join(parts, ", ")
}

// Filename is the attachment / download name.
func (r *Receipt) Filename() string {
	return fmt.Sprintf("receipt-%s-%d.pdf", r.InvoiceNumber, r.PaymentID)
}

// AmountText is the paid amount as printed.
func (r *Receipt) AmountText() string {
	return money(r.Amount)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(billing.Places)
}

// Render draws the receipt on a single A4 page.
func Render(r *Receipt) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Receipt "+r.InvoiceNumber, true)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(r.CompanyName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if r.CompanyAddress != "" {
		pdf.CellFormat(0, 5, tr(r.CompanyAddress), "", 1, "L", false, 0, "")
	}
	if r.CompanyEmail != "" {
		pdf.CellFormat(0, 5, tr(r.CompanyEmail), "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Payment receipt", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	rows := [][2]string{
		{"Invoice", r.InvoiceNumber},
		{"Customer", r.CustomerName},
		{"Paid on", r.PaidAt.Format("2006-01-02")},
		{"Method", r.Method},
	}
	if r.Reference != "" {
		rows = append(rows, [2]string{"Reference", r.Reference})
	}
	for _, row := range rows {
		pdf.CellFormat(40, 6, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	if len(r.Lines) > 0 {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(235, 235, 235)
		pdf.CellFormat(90, 7, "Description", "1", 0, "L", true, 0, "")
		pdf.CellFormat(20, 7, "Qty", "1", 0, "R", true, 0, "")
		pdf.CellFormat(30, 7, "Unit price", "1", 0, "R", true, 0, "")
		pdf.CellFormat(30, 7, "Total", "1", 1, "R", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, l := range r.Lines {
			pdf.CellFormat(90, 7, tr(l.Description), "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 7, l.Quantity.String(), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 7, money(l.UnitPrice), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 7, money(l.Total), "1", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	}

	summary := [][2]string{{"Invoice total", money(r.InvoiceTotal)}}
	if r.LateFee.IsPositive() {
		summary = append(summary, [2]string{"Late fee", money(r.LateFee)})
	}
	summary = append(summary,
		[2]string{"This payment", money(r.Amount)},
		[2]string{"Paid to date", money(r.PaidTotal)},
		[2]string{"Balance due", money(r.Remaining)},
	)
	for i, row := range summary {
		if i == len(summary)-1 {
			pdf.SetFont("Helvetica", "B", 11)
		}
		pdf.CellFormat(140, 7, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, row[1], "", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
