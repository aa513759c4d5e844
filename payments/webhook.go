// Package payments consumes payment-provider webhooks.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/datatypes"

	"fieldservice-backend/logger"
	"fieldservice-backend/metrics"
	"fieldservice-backend/models"
	"fieldservice-backend/repository"
)

// ErrSignature is returned for payloads whose Stripe-Signature does not verify.
var ErrSignature = errors.New("invalid webhook signature")

// Results reported for each event.
const (
	ResultProcessed = "processed"
	ResultDuplicate = "duplicate"
	ResultIgnored   = "ignored"
)

// Platform is the public-schema state webhooks change.
type Platform interface {
	RecordStripeEvent(ctx context.Context, e *models.StripeEvent) (bool, error)
	ForgetStripeEvent(ctx context.Context, id string) error
	Company(ctx context.Context, id string) (*models.Company, error)
	CompanyByStripeAccount(ctx context.Context, accountID string) (*models.Company, error)
	UpdateCompany(ctx context.Context, id string, cols map[string]any) error
	UpsertSubscription(ctx context.Context, s *models.Subscription) error
	UpdateSubscriptionByCustomer(ctx context.Context, stripeCustomerID string, cols map[string]any) (int64, error)
}

// Ledger records invoice payments inside a company's tenant schema.
type Ledger interface {
	RecordPayment(ctx context.Context, company *models.Company, invoiceID uint, amount decimal.Decimal, reference string) error
	RecordFailedPayment(ctx context.Context, company *models.Company, invoiceID uint, amount decimal.Decimal, reference, reason string) error
}

// Webhook verifies and dispatches Stripe events.
type Webhook struct {
	secret   string
	platform Platform
	ledger   Ledger
	log      zerolog.Logger
}

func NewWebhook(secret string, platform Platform, ledger Ledger) *Webhook {
	return &Webhook{
		secret:   secret,
		platform: platform,
		ledger:   ledger,
		log:      logger.WithComponent("stripe-webhook"),
	}
}

// Handle verifies payload against signature and applies the event once.
func (w *Webhook) Handle(ctx context.Context, payload []byte, signature string) (string, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, w.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignature, err)
	}
	log := w.log.With().Str("event_id", event.ID).Str("type", string(event.Type)).Logger()

	isNew, err := w.platform.RecordStripeEvent(ctx, &models.StripeEvent{
		ID:          event.ID,
		Type:        string(event.Type),
		Payload:     datatypes.JSON(payload),
		ProcessedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	if !isNew {
		log.Debug().Msg("duplicate event")
		metrics.RecordWebhook(string(event.Type), ResultDuplicate)
		return ResultDuplicate, nil
	}

	result, err := w.dispatch(ctx, event)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn().Err(err).Msg("event refers to unknown record")
		result, err = ResultIgnored, nil
	}
	if err != nil {
		if ferr := w.platform.ForgetStripeEvent(context.WithoutCancel(ctx), event.ID); ferr != nil {
			log.Error().Err(ferr).Msg("could not forget failed event")
		}
		log.Error().Err(err).Msg("event processing failed")
		metrics.RecordWebhook(string(event.Type), "error")
		return "", err
	}
	log.Info().Str("result", result).Msg("event handled")
	metrics.RecordWebhook(string(event.Type), result)
	return result, nil
}

func (w *Webhook) dispatch(ctx context.Context, event stripe.Event) (string, error) {
	switch event.Type {
	case "checkout.session.completed":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return "", err
		}
		return w.checkoutCompleted(ctx, &s)
	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return "", err
		}
		return w.subscriptionPaymentFailed(ctx, &inv)
	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return "", err
		}
		return w.paymentIntentFailed(ctx, &pi)
	case "payment_method.attached":
		var pm stripe.PaymentMethod
		if err := json.Unmarshal(event.Data.Raw, &pm); err != nil {
			return "", err
		}
		return w.paymentMethodAttached(ctx, &pm)
	case "payment_method.detached":
		var pm stripe.PaymentMethod
		if err := json.Unmarshal(event.Data.Raw, &pm); err != nil {
			return "", err
		}
		previous, _ := event.Data.PreviousAttributes["customer"].(string)
		return w.paymentMethodDetached(ctx, &pm, previous)
	case "account.updated":
		var acct stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &acct); err != nil {
			return "", err
		}
		return w.accountUpdated(ctx, &acct)
	}
	return ResultIgnored, nil
}

// invoiceTarget reads company_id and invoice_id from provider metadata.
func invoiceTarget(meta map[string]string) (string, uint, bool) {
	companyID := meta["company_id"]
	invoiceID, err := strconv.ParseUint(meta["invoice_id"], 10, 64)
	if companyID == "" || err != nil || invoiceID == 0 {
		return "", 0, false
	}
	return companyID, uint(invoiceID), true
}

func cents(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

func (w *Webhook) checkoutCompleted(ctx context.Context, s *stripe.CheckoutSession) (string, error) {
	switch s.Mode {
	case stripe.CheckoutSessionModeSubscription:
		companyID := s.ClientReferenceID
		if companyID == "" {
			companyID = s.Metadata["company_id"]
		}
		if companyID == "" {
			return ResultIgnored, nil
		}
		if _, err := w.platform.Company(ctx, companyID); err != nil {
			return "", err
		}
		plan := s.Metadata["plan"]
		if plan == "" {
			plan = models.PlanPro
		}
		sub := &models.Subscription{CompanyID: companyID, Plan: plan, Status: models.SubscriptionActive}
		if s.Customer != nil {
			sub.StripeCustomerID = s.Customer.ID
		}
		if s.Subscription != nil {
			sub.StripeSubscriptionID = s.Subscription.ID
		}
		return ResultProcessed, w.platform.UpsertSubscription(ctx, sub)

	case stripe.CheckoutSessionModePayment:
		companyID, invoiceID, ok := invoiceTarget(s.Metadata)
		if !ok {
			return ResultIgnored, nil
		}
		company, err := w.platform.Company(ctx, companyID)
		if err != nil {
			return "", err
		}
		reference := s.ID
		if s.PaymentIntent != nil && s.PaymentIntent.ID != "" {
			reference = s.PaymentIntent.ID
		}
		return ResultProcessed, w.ledger.RecordPayment(ctx, company, invoiceID, cents(s.AmountTotal), reference)
	}
	return ResultIgnored, nil
}

func (w *Webhook) subscriptionPaymentFailed(ctx context.Context, inv *stripe.Invoice) (string, error) {
	if inv.Customer == nil || inv.Customer.ID == "" {
		return ResultIgnored, nil
	}
	n, err := w.platform.UpdateSubscriptionByCustomer(ctx, inv.Customer.ID, map[string]any{
		"status": models.SubscriptionPastDue,
	})
	if err != nil {
		return "", err
	}
	if n == 0 {
		return ResultIgnored, nil
	}
	return ResultProcessed, nil
}

func (w *Webhook) paymentIntentFailed(ctx context.Context, pi *stripe.PaymentIntent) (string, error) {
	companyID, invoiceID, ok := invoiceTarget(pi.Metadata)
	if !ok {
		return ResultIgnored, nil
	}
	company, err := w.platform.Company(ctx, companyID)
	if err != nil {
		return "", err
	}
	reason := "payment failed"
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		reason = pi.LastPaymentError.Msg
	}
	return ResultProcessed, w.ledger.RecordFailedPayment(ctx, company, invoiceID, cents(pi.Amount), pi.ID, reason)
}

func (w *Webhook) paymentMethodAttached(ctx context.Context, pm *stripe.PaymentMethod) (string, error) {
	if pm.Customer == nil || pm.Customer.ID == "" {
		return ResultIgnored, nil
	}
	cols := map[string]any{"payment_method_id": pm.ID, "card_brand": "", "card_last4": ""}
	if pm.Card != nil {
		cols["card_brand"] = string(pm.Card.Brand)
		cols["card_last4"] = pm.Card.Last4
	}
	n, err := w.platform.UpdateSubscriptionByCustomer(ctx, pm.Customer.ID, cols)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return ResultIgnored, nil
	}
	return ResultProcessed, nil
}

func (w *Webhook) paymentMethodDetached(ctx context.Context, pm *stripe.PaymentMethod, customerID string) (string, error) {
	if customerID == "" {
		return ResultIgnored, nil
	}
	n, err := w.platform.UpdateSubscriptionByCustomer(ctx, customerID, map[string]any{
		"payment_method_id": "", "card_brand": "", "card_last4": "",
	})
	if err != nil {
		return "", err
	}
	if n == 0 {
		return ResultIgnored, nil
	}
	return ResultProcessed, nil
}

func (w *Webhook) accountUpdated(ctx context.Context, acct *stripe.Account) (string, error) {
	company, err := w.platform.CompanyByStripeAccount(ctx, acct.ID)
	if err != nil {
		return "", err
	}
	return ResultProcessed, w.platform.UpdateCompany(ctx, company.Id, map[string]any{
		"charges_enabled":   acct.ChargesEnabled,
		"payouts_enabled":   acct.PayoutsEnabled,
		"details_submitted": acct.DetailsSubmitted,
	})
}
