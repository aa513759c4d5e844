// Package export writes spreadsheet exports of tenant documents.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"fieldservice-backend/billing"
	"fieldservice-backend/models"
)

const invoiceSheet = "Invoices"

var invoiceHeader = []interface{}{
	"Number", "Customer", "Status", "Created", "Due", "Subtotal", "Tax", "Total", "Late fee", "Paid", "Balance", "Overdue",
}

func date(t *time.Time) interface{} {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// InvoicesXLSX renders one row per invoice with its reconciliation figures.
func InvoicesXLSX(invoices []models.Invoice, now time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", invoiceSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(invoiceSheet, "A1", &invoiceHeader); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	last, _ := excelize.ColumnNumberToName(len(invoiceHeader))
	if err := f.SetCellStyle(invoiceSheet, "A1", last+"1", bold); err != nil {
		return nil, err
	}
	numFmt := "#,##0.00"
	amount, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return nil, err
	}

	for i := range invoices {
		inv := &invoices[i]
		payments := models.ForBilling(inv.Payments)
		created := inv.CreatedAt
		row := []interface{}{
			inv.Number,
			inv.Customer.DisplayName(),
			inv.Status,
			date(&created),
			date(inv.DueDate),
			inv.Subtotal.InexactFloat64(),
			inv.TaxTotal.InexactFloat64(),
			inv.Total.InexactFloat64(),
			inv.LateFee.InexactFloat64(),
			billing.PaidTotal(payments).InexactFloat64(),
			billing.RemainingBalance(inv.Total, inv.LateFee, payments).InexactFloat64(),
			billing.IsOverdue(inv.DueDate, inv.Status, now),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(invoiceSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if len(invoices) > 0 {
		if err := f.SetCellStyle(invoiceSheet, "F2", fmt.Sprintf("K%d", len(invoices)+1), amount); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(invoiceSheet, "A", last, 14); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(invoiceSheet, "B", "B", 28); err != nil {
		return nil, err
	}
	return f.WriteToBuffer()
}
