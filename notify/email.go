package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"fieldservice-backend/models"
	"fieldservice-backend/providers"
)

var (
	assignmentHTML = template.Must(template.New("assignment").Parse(
		`<p>Hi {{.Name}},</p><p>You have been assigned to <strong>{{.Job}}</strong>{{if .When}} on {{.When}}{{end}}.</p>` +
			`{{if .Address}}<p>Address: {{.Address}}</p>{{end}}<p>{{.Company}}</p>`))

	jobStatusHTML = template.Must(template.New("job_status").Parse(
		`<p>Hi {{.Name}},</p><p>The status of <strong>{{.Job}}</strong> is now <strong>{{.Status}}</strong>.</p>` +
			`{{if .Link}}<p><a href="{{.Link}}">View your job</a></p>{{end}}<p>{{.Company}}</p>`))

	receiptHTML = template.Must(template.New("receipt").Parse(
		`<p>Hi {{.Name}},</p><p>Thank you for your payment of {{.Amount}} on invoice {{.Invoice}}. ` +
			`Your receipt is attached.</p><p>{{.Company}}</p>`))
)

var statusLabels = map[string]string{
	"scheduled":   "Scheduled",
	"in_progress": "In progress",
	"completed":   "Completed",
	"invoiced":    "Invoiced",
	"cancelled":   "Cancelled",
}

type email struct {
	kind        string
	to          string
	subject     string
	html        string
	jobID       *uint
	invoiceID   *uint
	paymentID   *uint
	feature     string
	dedup       bool
	attachments []providers.Attachment
}

// emailGate returns the reason an email may not be sent, or "" when it may.
func (n *Notifier) emailGate(ctx context.Context, feature string) (string, error) {
	killed, err := n.Settings.KillSwitch(ctx, models.SettingEmailKillSwitch)
	if err != nil {
		return "", err
	}
	if killed {
		return ReasonEmailKillSwitch, nil
	}
	if !n.company.EmailEnabled {
		return ReasonEmailDisabled, nil
	}
	if feature != "" {
		plan, err := n.plan(ctx)
		if err != nil {
			return "", err
		}
		ok, err := n.Settings.FeatureEnabled(ctx, plan, feature)
		if err != nil {
			return "", err
		}
		if !ok {
			return ReasonPlan, nil
		}
	}
	return "", nil
}

func (n *Notifier) sendEmail(ctx context.Context, m email) (Outcome, error) {
	if strings.TrimSpace(m.to) == "" {
		return Outcome{}, ErrNoRecipient
	}
	entry := &models.EmailLog{
		LogFields: models.LogFields{Recipient: m.to, JobID: m.jobID},
		Kind:      m.kind,
		Subject:   m.subject,
		InvoiceID: m.invoiceID,
		PaymentID: m.paymentID,
	}

	reason, err := n.emailGate(ctx, m.feature)
	if err != nil {
		return Outcome{}, err
	}
	if reason != "" {
		return n.finishEmail(ctx, entry, models.LogBlocked, reason, "")
	}

	release := func() {}
	if m.dedup {
		var dup bool
		dup, release, err = n.claim(ctx, "email", m.to, m.kind, m.jobID, func(since time.Time) (bool, error) {
			return n.Store.EmailSentSince(ctx, m.to, m.kind, m.jobID, since)
		})
		if err != nil {
			return Outcome{}, err
		}
		if dup {
			return n.finishEmail(ctx, entry, models.LogSkipped, ReasonDuplicate, "")
		}
	}

	id, sendErr := n.Email.Send(ctx, providers.Email{
		To:          []string{m.to},
		Subject:     m.subject,
		HTML:        m.html,
		Attachments: m.attachments,
	})
	if sendErr != nil {
		release()
		n.log.Warn().Err(sendErr).Str("kind", m.kind).Msg("email send failed")
		out, err := n.finishEmail(ctx, entry, models.LogFailed, sendErr.Error(), "")
		if err != nil {
			return out, err
		}
		return out, fmt.Errorf("%w: %v", ErrProvider, sendErr)
	}
	return n.finishEmail(ctx, entry, models.LogSent, "", id)
}

func (n *Notifier) finishEmail(ctx context.Context, entry *models.EmailLog, status, reason, providerID string) (Outcome, error) {
	entry.Status = status
	entry.Reason = reason
	entry.ProviderID = providerID
	out := Outcome{Status: status, Reason: reason, ProviderID: providerID}
	record("email", out)
	if err := n.Store.CreateEmailLog(ctx, entry); err != nil {
		return out, err
	}
	out.LogID = entry.ID
	return out, nil
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// AssignmentEmail tells a technician about a job they were assigned to.
func (n *Notifier) AssignmentEmail(ctx context.Context, job *models.Job, tech *models.Profile) (Outcome, error) {
	when := ""
	if job.ScheduledAt != nil {
		when = job.ScheduledAt.In(n.company.Location()).Format("Mon Jan 2, 15:04")
	}
	html, err := execute(assignmentHTML, map[string]string{
		"Name":    tech.FirstName,
		"Job":     job.Title,
		"When":    when,
		"Address": job.Address,
		"Company": n.company.Name,
	})
	if err != nil {
		return Outcome{}, err
	}
	return n.sendEmail(ctx, email{
		kind:    models.EmailAssignment,
		to:      tech.Email,
		subject: fmt.Sprintf("New job assigned: %s", job.Title),
		html:    html,
		jobID:   &job.ID,
		dedup:   true,
	})
}

// JobStatusEmail tells the job's customer about a status change. job.Customer must be loaded.
func (n *Notifier) JobStatusEmail(ctx context.Context, job *models.Job, portalLink string) (Outcome, error) {
	label, ok := statusLabels[job.Status]
	if !ok {
		label = job.Status
	}
	html, err := execute(jobStatusHTML, map[string]string{
		"Name":    job.Customer.DisplayName(),
		"Job":     job.Title,
		"Status":  label,
		"Link":    portalLink,
		"Company": n.company.Name,
	})
	if err != nil {
		return Outcome{}, err
	}
	return n.sendEmail(ctx, email{
		kind:    models.JobStatusKind(job.Status),
		to:      job.Customer.Email,
		subject: fmt.Sprintf("%s: %s", job.Title, label),
		html:    html,
		jobID:   &job.ID,
		dedup:   true,
	})
}

// ReceiptMail is a rendered receipt ready to be mailed.
type ReceiptMail struct {
	To            string
	CustomerName  string
	InvoiceNumber string
	Amount        string
	Filename      string
	PDF           []byte
	InvoiceID     uint
	PaymentID     uint
}

// ReceiptEmail sends a payment receipt as PDF attachment.
func (n *Notifier) ReceiptEmail(ctx context.Context, r ReceiptMail) (Outcome, error) {
	html, err := execute(receiptHTML, map[string]string{
		"Name":    r.CustomerName,
		"Amount":  r.Amount,
		"Invoice": r.InvoiceNumber,
		"Company": n.company.Name,
	})
	if err != nil {
		return Outcome{}, err
	}
	return n.sendEmail(ctx, email{
		kind:      models.EmailReceipt,
		to:        r.To,
		subject:   fmt.Sprintf("Receipt for invoice %s", r.InvoiceNumber),
		html:      html,
		invoiceID: &r.InvoiceID,
		paymentID: &r.PaymentID,
		feature:   models.FeatureReceiptsEmail,
		attachments: []providers.Attachment{{
			Filename:    r.Filename,
			ContentType: "application/pdf",
			Content:     r.PDF,
		}},
	})
}
