package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fieldservice-backend/models"
)

// SMSRequest asks for one templated text message. The recipient defaults to the
// customer's phone, taken from CustomerID or from the job's customer.
type SMSRequest struct {
	Template   string            `json:"template" validate:"required,max=60"`
	To         string            `json:"to" validate:"omitempty,e164"`
	CustomerID *uint             `json:"customer_id"`
	JobID      *uint             `json:"job_id"`
	Variables  map[string]string `json:"variables"`
	PortalLink string            `json:"-"`
}

// smsGate returns the reason a text may not be sent, or "" when all gates pass.
// Order: kill switch, plan entitlement, company setting, monthly quota.
func (n *Notifier) smsGate(ctx context.Context) (string, error) {
	killed, err := n.Settings.KillSwitch(ctx, models.SettingSMSKillSwitch)
	if err != nil {
		return "", err
	}
	if killed {
		return ReasonSMSKillSwitch, nil
	}

	plan, err := n.plan(ctx)
	if err != nil {
		return "", err
	}
	entitled, err := n.Settings.FeatureEnabled(ctx, plan, models.FeatureSMS)
	if err != nil {
		return "", err
	}
	if !entitled {
		return ReasonPlan, nil
	}

	if !n.company.SMSEnabled {
		return ReasonSMSDisabled, nil
	}

	limit, ok, err := n.Settings.MonthlyLimit(ctx, n.company.Id, plan, models.MetricSMSMonthly)
	if err != nil {
		return "", err
	}
	if ok {
		sent, err := n.Store.CountSMSSent(ctx, n.monthStart())
		if err != nil {
			return "", err
		}
		if sent >= int64(limit) {
			return ReasonQuota, nil
		}
	}
	return "", nil
}

func (n *Notifier) smsVariables(ctx context.Context, req SMSRequest) (map[string]string, string, *uint, error) {
	vars := map[string]string{"company_name": n.company.Name}
	to := strings.TrimSpace(req.To)
	customerID := req.CustomerID

	if req.JobID != nil {
		job, err := n.Store.Job(ctx, *req.JobID)
		if err != nil {
			return nil, "", nil, err
		}
		vars["job_title"] = job.Title
		if job.ScheduledAt != nil {
			vars["scheduled_at"] = job.ScheduledAt.In(n.company.Location()).Format("Mon Jan 2, 15:04")
		}
		if customerID == nil {
			id := job.CustomerID
			customerID = &id
		}
	}
	if customerID != nil {
		c, err := n.Store.Customer(ctx, *customerID)
		if err != nil {
			return nil, "", nil, err
		}
		vars["customer_name"] = c.DisplayName()
		if to == "" {
			to = strings.TrimSpace(c.Phone)
		}
	}
	if req.PortalLink != "" {
		vars["portal_link"] = req.PortalLink
	}
	for k, v := range req.Variables {
		vars[k] = v
	}
	return vars, to, customerID, nil
}

// SendSMS renders and sends a text message. Blocked and skipped outcomes are not errors;
// provider failures return ErrProvider along with the failed outcome.
func (n *Notifier) SendSMS(ctx context.Context, req SMSRequest) (Outcome, error) {
	vars, to, customerID, err := n.smsVariables(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	body, err := render(req.Template, vars)
	if err != nil {
		return Outcome{}, err
	}

	entry := &models.SMSLog{
		LogFields: models.LogFields{
			Recipient: to,
			JobID:     req.JobID,
			Metadata:  metadata(req.Variables),
		},
		Template:   req.Template,
		Body:       body,
		CustomerID: customerID,
	}

	reason, err := n.smsGate(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if reason != "" {
		return n.finishSMS(ctx, entry, models.LogBlocked, reason, "")
	}
	if to == "" {
		return Outcome{}, ErrNoRecipient
	}

	dup, release, err := n.claim(ctx, "sms", to, req.Template, req.JobID, func(since time.Time) (bool, error) {
		return n.Store.SMSSentSince(ctx, to, req.Template, req.JobID, since)
	})
	if err != nil {
		return Outcome{}, err
	}
	if dup {
		return n.finishSMS(ctx, entry, models.LogSkipped, ReasonDuplicate, "")
	}

	sid, sendErr := n.SMS.Send(ctx, to, body)
	if sendErr != nil {
		release()
		n.log.Warn().Err(sendErr).Str("template", req.Template).Msg("sms send failed")
		out, err := n.finishSMS(ctx, entry, models.LogFailed, sendErr.Error(), "")
		if err != nil {
			return out, err
		}
		return out, fmt.Errorf("%w: %v", ErrProvider, sendErr)
	}
	return n.finishSMS(ctx, entry, models.LogSent, "", sid)
}

func (n *Notifier) finishSMS(ctx context.Context, entry *models.SMSLog, status, reason, providerID string) (Outcome, error) {
	entry.Status = status
	entry.Reason = reason
	entry.ProviderID = providerID
	out := Outcome{Status: status, Reason: reason, ProviderID: providerID}
	record("sms", out)
	if err := n.Store.CreateSMSLog(ctx, entry); err != nil {
		return out, err
	}
	out.LogID = entry.ID
	return out, nil
}
