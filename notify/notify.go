// Package notify sends customer and team notifications by SMS and email.
// Every attempt leaves a row in the channel log: sent, failed, blocked or skipped.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"fieldservice-backend/logger"
	"fieldservice-backend/metrics"
	"fieldservice-backend/models"
	"fieldservice-backend/providers"
)

// DedupWindow is how long an identical message is suppressed after a successful send.
const DedupWindow = time.Hour

// Reasons recorded on blocked and skipped outcomes.
const (
	ReasonSMSKillSwitch   = "sms_kill_switch"
	ReasonEmailKillSwitch = "email_kill_switch"
	ReasonPlan            = "plan_not_entitled"
	ReasonSMSDisabled     = "sms_disabled"
	ReasonEmailDisabled   = "email_disabled"
	ReasonQuota           = "monthly_quota_exceeded"
	ReasonDuplicate       = "duplicate_within_window"
)

var (
	// ErrProvider wraps failures of the email or SMS provider.
	ErrProvider = errors.New("notification provider failed")

	// ErrNoRecipient is returned when neither the request nor the customer supplies an address.
	ErrNoRecipient = errors.New("no recipient address")

	// ErrUnknownTemplate is returned for SMS templates that do not exist.
	ErrUnknownTemplate = errors.New("unknown sms template")
)

// Settings are the platform-wide switches and plan entitlements.
type Settings interface {
	KillSwitch(ctx context.Context, key string) (bool, error)
	Subscription(ctx context.Context, companyID string) (*models.Subscription, error)
	FeatureEnabled(ctx context.Context, plan, feature string) (bool, error)
	MonthlyLimit(ctx context.Context, companyID, plan, metric string) (int, bool, error)
}

// Store is the tenant data notifications read and the logs they write.
type Store interface {
	Customer(ctx context.Context, id uint) (*models.Customer, error)
	Job(ctx context.Context, id uint) (*models.Job, error)

	CreateSMSLog(ctx context.Context, l *models.SMSLog) error
	CreateEmailLog(ctx context.Context, l *models.EmailLog) error
	CountSMSSent(ctx context.Context, since time.Time) (int64, error)
	SMSSentSince(ctx context.Context, recipient, template string, jobID *uint, since time.Time) (bool, error)
	EmailSentSince(ctx context.Context, recipient, kind string, jobID *uint, since time.Time) (bool, error)
}

type SMSSender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

type EmailSender interface {
	Send(ctx context.Context, msg providers.Email) (string, error)
}

// Outcome is what a notification call reports back to the caller.
type Outcome struct {
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	LogID      uint   `json:"log_id,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
}

// Deps are the collaborators of a Notifier. Dedup is optional; without it the
// channel logs are used for duplicate suppression.
type Deps struct {
	Settings Settings
	Store    Store
	SMS      SMSSender
	Email    EmailSender
	Dedup    Deduper
}

// Notifier sends notifications on behalf of one company.
type Notifier struct {
	Deps
	company *models.Company
	now     func() time.Time
	log     zerolog.Logger
}

func New(deps Deps, company *models.Company) *Notifier {
	return &Notifier{
		Deps:    deps,
		company: company,
		now:     time.Now,
		log:     logger.WithComponent("notify").With().Str("company_id", company.Id).Logger(),
	}
}

// plan returns the plan whose entitlements apply. Cancelled subscriptions fall back to free.
func (n *Notifier) plan(ctx context.Context) (string, error) {
	sub, err := n.Settings.Subscription(ctx, n.company.Id)
	if err != nil {
		return "", err
	}
	if sub.Status == models.SubscriptionCanceled || sub.Plan == "" {
		return models.PlanFree, nil
	}
	return sub.Plan, nil
}

// Entitled reports whether the company's plan includes feature.
func (n *Notifier) Entitled(ctx context.Context, feature string) (bool, error) {
	plan, err := n.plan(ctx)
	if err != nil {
		return false, err
	}
	return n.Settings.FeatureEnabled(ctx, plan, feature)
}

func (n *Notifier) monthStart() time.Time {
	now := n.now().In(n.company.Location())
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

func metadata(v map[string]string) datatypes.JSON {
	if len(v) == 0 {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func record(channel string, o Outcome) {
	metrics.RecordNotification(channel, o.Status)
}
