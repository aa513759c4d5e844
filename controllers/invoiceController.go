package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"fieldservice-backend/export"
	"fieldservice-backend/middlewares"
	"fieldservice-backend/notify"
	"fieldservice-backend/receipts"
	"fieldservice-backend/services"
)

func (a *API) payments(c *fiber.Ctx) (*services.Payments, error) {
	repo, co, err := a.scope(c)
	if err != nil {
		return nil, err
	}
	return services.NewPayments(repo, co), nil
}

func (a *API) CreateInvoice(c *fiber.Ctx) error {
	in, err := bindDocument(c)
	if err != nil {
		return err
	}
	docs, err := a.documents(c)
	if err != nil {
		return err
	}
	inv, err := docs.CreateInvoice(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(inv)
}

func (a *API) GetInvoices(c *fiber.Ctx) error {
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	invoices, err := repo.Invoices(c.UserContext(), listFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"invoices": invoices, "message": "success"})
}

// GetInvoice returns the invoice with its current balance.
func (a *API) GetInvoice(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	inv, err := repo.Invoice(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"invoice": inv,
		"balance": services.BalanceOf(inv, a.now()),
	})
}

func (a *API) UpdateInvoice(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	in, err := bindDocument(c)
	if err != nil {
		return err
	}
	docs, err := a.documents(c)
	if err != nil {
		return err
	}
	inv, err := docs.UpdateInvoice(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(inv)
}

func (a *API) SetInvoiceStatus(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in StatusInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	docs, err := a.documents(c)
	if err != nil {
		return err
	}
	inv, err := docs.SetInvoiceStatus(c.UserContext(), id, in.Status)
	if err != nil {
		return err
	}
	return c.JSON(inv)
}

// CreatePayment records a manual payment. Amounts above the remaining balance are rejected.
func (a *API) CreatePayment(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in services.PaymentInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	svc, err := a.payments(c)
	if err != nil {
		return err
	}
	p, inv, err := svc.Record(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"payment": p,
		"balance": services.BalanceOf(inv, a.now()),
	})
}

func (a *API) ListPayments(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	inv, err := repo.Invoice(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"payments": inv.Payments, "message": "success"})
}

// ApplyLateFee adds the company's late fee to an overdue invoice, once.
func (a *API) ApplyLateFee(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	svc, err := a.payments(c)
	if err != nil {
		return err
	}
	inv, err := svc.ApplyLateFee(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"invoice": inv,
		"balance": services.BalanceOf(inv, a.now()),
	})
}

func (a *API) GetBalance(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	svc, err := a.payments(c)
	if err != nil {
		return err
	}
	bal, err := svc.Balance(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(bal)
}

// ExportInvoices streams the filtered invoice list as an xlsx workbook.
func (a *API) ExportInvoices(c *fiber.Ctx) error {
	repo, err := tenant(c)
	if err != nil {
		return err
	}
	invoices, err := repo.Invoices(c.UserContext(), listFilter(c))
	if err != nil {
		return err
	}
	now := a.now()
	buf, err := export.InvoicesXLSX(invoices, now)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="invoices-%s.xlsx"`, now.Format("2006-01-02")))
	return c.Send(buf.Bytes())
}

// receipt renders the receipt of one completed payment.
func (a *API) receipt(c *fiber.Ctx) (*receipts.Receipt, []byte, error) {
	id, err := idParam(c, "id")
	if err != nil {
		return nil, nil, err
	}
	paymentID, err := idParam(c, "paymentId")
	if err != nil {
		return nil, nil, err
	}
	repo, co, err := a.scope(c)
	if err != nil {
		return nil, nil, err
	}
	inv, err := repo.Invoice(c.UserContext(), id)
	if err != nil {
		return nil, nil, err
	}
	p, err := repo.Payment(c.UserContext(), id, paymentID)
	if err != nil {
		return nil, nil, err
	}
	r, err := receipts.New(co, inv, p)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := receipts.Render(r)
	if err != nil {
		return nil, nil, err
	}
	return r, pdf, nil
}

func (a *API) DownloadReceipt(c *fiber.Ctx) error {
	r, pdf, err := a.receipt(c)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, r.Filename()))
	return c.Send(pdf)
}

type ReceiptEmailInput struct {
	To string `json:"to" validate:"omitempty,email"`
}

// EmailReceipt mails the receipt to the invoice's customer or to the given address.
func (a *API) EmailReceipt(c *fiber.Ctx) error {
	var in ReceiptEmailInput
	if len(c.Body()) > 0 {
		if err := middlewares.BindAndValidate(c, &in); err != nil {
			return err
		}
	}
	r, pdf, err := a.receipt(c)
	if err != nil {
		return err
	}
	repo, co, err := a.scope(c)
	if err != nil {
		return err
	}
	to := in.To
	if to == "" {
		to = r.CustomerEmail
	}
	out, err := a.notifier(repo, co).ReceiptEmail(c.UserContext(), notify.ReceiptMail{
		To:            to,
		CustomerName:  r.CustomerName,
		InvoiceNumber: r.InvoiceNumber,
		Amount:        r.AmountText(),
		Filename:      r.Filename(),
		PDF:           pdf,
		InvoiceID:     r.InvoiceID,
		PaymentID:     r.PaymentID,
	})
	return notification(c, out, err)
}
