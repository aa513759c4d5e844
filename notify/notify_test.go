package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldservice-backend/models"
	"fieldservice-backend/providers"
)

type fakeSettings struct {
	kill     map[string]bool
	plan     string
	status   string
	features map[string]bool
	limit    int
	hasLimit bool
}

func (f *fakeSettings) KillSwitch(_ context.Context, key string) (bool, error) {
	return f.kill[key], nil
}

func (f *fakeSettings) Subscription(_ context.Context, companyID string) (*models.Subscription, error) {
	return &models.Subscription{CompanyID: companyID, Plan: f.plan, Status: f.status}, nil
}

func (f *fakeSettings) FeatureEnabled(_ context.Context, plan, feature string) (bool, error) {
	return f.features[plan+"/"+feature], nil
}

func (f *fakeSettings) MonthlyLimit(context.Context, string, string, string) (int, bool, error) {
	return f.limit, f.hasLimit, nil
}

type fakeStore struct {
	customers map[uint]*models.Customer
	jobs      map[uint]*models.Job
	sms       []models.SMSLog
	emails    []models.EmailLog
	sentCount int64
	since     []time.Time
}

func (f *fakeStore) Customer(_ context.Context, id uint) (*models.Customer, error) {
	if c, ok := f.customers[id]; ok {
		return c, nil
	}
	return nil, errors.New("record not found")
}

func (f *fakeStore) Job(_ context.Context, id uint) (*models.Job, error) {
	if j, ok := f.jobs[id]; ok {
		return j, nil
	}
	return nil, errors.New("record not found")
}

func (f *fakeStore) CreateSMSLog(_ context.Context, l *models.SMSLog) error {
	l.ID = uint(len(f.sms) + 1)
	f.sms = append(f.sms, *l)
	return nil
}

func (f *fakeStore) CreateEmailLog(_ context.Context, l *models.EmailLog) error {
	l.ID = uint(len(f.emails) + 1)
	f.emails = append(f.emails, *l)
	return nil
}

func (f *fakeStore) CountSMSSent(_ context.Context, since time.Time) (int64, error) {
	f.since = append(f.since, since)
	return f.sentCount, nil
}

func (f *fakeStore) SMSSentSince(_ context.Context, recipient, template string, jobID *uint, since time.Time) (bool, error) {
	for _, l := range f.sms {
		if l.Status == models.LogSent && l.Recipient == recipient && l.Template == template &&
			sameJob(l.JobID, jobID) && !l.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) EmailSentSince(_ context.Context, recipient, kind string, jobID *uint, since time.Time) (bool, error) {
	for _, l := range f.emails {
		if l.Status == models.LogSent && l.Recipient == recipient && l.Kind == kind &&
			sameJob(l.JobID, jobID) && !l.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func sameJob(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type fakeSMS struct {
	sent []string
	err  error
}

func (f *fakeSMS) Send(_ context.Context, to, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, to+"|"+body)
	return "SM1", nil
}

type fakeEmail struct {
	sent []providers.Email
	err  error
}

func (f *fakeEmail) Send(_ context.Context, msg providers.Email) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "em_1", nil
}

type memDedup struct {
	keys map[string]bool
}

func (d *memDedup) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	if d.keys[key] {
		return false, nil
	}
	d.keys[key] = true
	return true, nil
}

func (d *memDedup) Release(_ context.Context, key string) error {
	delete(d.keys, key)
	return nil
}

var testNow = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

type harness struct {
	settings *fakeSettings
	store    *fakeStore
	sms      *fakeSMS
	email    *fakeEmail
	company  *models.Company
}

func newHarness() *harness {
	scheduled := time.Date(2026, 6, 16, 9, 30, 0, 0, time.UTC)
	return &harness{
		settings: &fakeSettings{
			plan:   models.PlanPro,
			status: models.SubscriptionActive,
			features: map[string]bool{
				"pro/sms":            true,
				"pro/receipts_email": true,
			},
			kill: map[string]bool{},
		},
		store: &fakeStore{
			customers: map[uint]*models.Customer{
				1: {Id: 1, FirstName: "Ada", LastName: "Lovelace", Phone: "+15550001111", Email: "ada@example.com"},
			},
			jobs: map[uint]*models.Job{
				7: {DocumentFields: models.DocumentFields{ID: 7, CustomerID: 1, Title: "Boiler service"}, ScheduledAt: &scheduled},
			},
		},
		sms:     &fakeSMS{},
		email:   &fakeEmail{},
		company: &models.Company{Id: "c1", Name: "Acme", SMSEnabled: true, EmailEnabled: true},
	}
}

func (h *harness) notifier(dedup Deduper) *Notifier {
	n := New(Deps{Settings: h.settings, Store: h.store, SMS: h.sms, Email: h.email, Dedup: dedup}, h.company)
	n.now = func() time.Time { return testNow }
	return n
}

func jobID(id uint) *uint { return &id }

func TestSendSMSRendersFromJob(t *testing.T) {
	h := newHarness()

	out, err := h.notifier(nil).SendSMS(context.Background(), SMSRequest{Template: "appointment_reminder", JobID: jobID(7)})
	require.NoError(t, err)
	assert.Equal(t, models.LogSent, out.Status)
	assert.Equal(t, "SM1", out.ProviderID)
	require.Len(t, h.sms.sent, 1)
	assert.Equal(t, "+15550001111|Hi Ada Lovelace, this is a reminder from Acme about Boiler service on Tue Jun 16, 09:30.", h.sms.sent[0])

	require.Len(t, h.store.sms, 1)
	assert.Equal(t, uint(1), *h.store.sms[0].CustomerID)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), h.store.since[0])
}

func TestSendSMSGates(t *testing.T) {
	cases := []struct {
		name   string
		setup  func(h *harness)
		reason string
	}{
		{"kill switch", func(h *harness) { h.settings.kill[models.SettingSMSKillSwitch] = true }, ReasonSMSKillSwitch},
		{"plan", func(h *harness) { h.settings.plan = models.PlanFree }, ReasonPlan},
		{"cancelled subscription", func(h *harness) { h.settings.status = models.SubscriptionCanceled }, ReasonPlan},
		{"company disabled", func(h *harness) { h.company.SMSEnabled = false }, ReasonSMSDisabled},
		{"quota", func(h *harness) {
			h.settings.limit, h.settings.hasLimit = 10, true
			h.store.sentCount = 10
		}, ReasonQuota},
		{"kill switch wins over plan", func(h *harness) {
			h.settings.kill[models.SettingSMSKillSwitch] = true
			h.settings.plan = models.PlanFree
		}, ReasonSMSKillSwitch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			tc.setup(h)

			out, err := h.notifier(nil).SendSMS(context.Background(), SMSRequest{Template: "on_my_way", CustomerID: jobID(1)})
			require.NoError(t, err)
			assert.Equal(t, models.LogBlocked, out.Status)
			assert.Equal(t, tc.reason, out.Reason)
			assert.Empty(t, h.sms.sent)
			require.Len(t, h.store.sms, 1)
			assert.Equal(t, models.LogBlocked, h.store.sms[0].Status)
		})
	}
}

func TestSendSMSUnderQuota(t *testing.T) {
	h := newHarness()
	h.settings.limit, h.settings.hasLimit = 10, true
	h.store.sentCount = 9

	out, err := h.notifier(nil).SendSMS(context.Background(), SMSRequest{Template: "on_my_way", To: "+15552223333"})
	require.NoError(t, err)
	assert.Equal(t, models.LogSent, out.Status)
}

func TestSendSMSDuplicateSkipped(t *testing.T) {
	h := newHarness()
	n := h.notifier(nil)
	req := SMSRequest{Template: "on_my_way", CustomerID: jobID(1), JobID: jobID(7)}

	_, err := n.SendSMS(context.Background(), req)
	require.NoError(t, err)
	h.store.sms[0].CreatedAt = testNow.Add(-30 * time.Minute)

	out, err := n.SendSMS(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.LogSkipped, out.Status)
	assert.Equal(t, ReasonDuplicate, out.Reason)
	assert.Len(t, h.sms.sent, 1)
}

func TestSendSMSWithDeduper(t *testing.T) {
	h := newHarness()
	d := &memDedup{keys: map[string]bool{}}
	n := h.notifier(d)
	req := SMSRequest{Template: "on_my_way", CustomerID: jobID(1)}

	h.sms.err = errors.New("carrier down")
	_, err := n.SendSMS(context.Background(), req)
	assert.ErrorIs(t, err, ErrProvider)
	assert.Empty(t, d.keys)

	h.sms.err = nil
	out, err := n.SendSMS(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.LogSent, out.Status)

	out, err = n.SendSMS(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.LogSkipped, out.Status)
}

func TestSendSMSProviderFailureLogged(t *testing.T) {
	h := newHarness()
	h.sms.err = &providers.Error{Provider: "sms", Status: 400, Message: "invalid number"}

	out, err := h.notifier(nil).SendSMS(context.Background(), SMSRequest{Template: "on_my_way", CustomerID: jobID(1)})
	require.ErrorIs(t, err, ErrProvider)
	assert.Equal(t, models.LogFailed, out.Status)
	require.Len(t, h.store.sms, 1)
	assert.Contains(t, h.store.sms[0].Reason, "invalid number")
}

func TestSendSMSValidation(t *testing.T) {
	h := newHarness()
	h.store.customers[2] = &models.Customer{Id: 2, FirstName: "No", LastName: "Phone"}
	n := h.notifier(nil)

	_, err := n.SendSMS(context.Background(), SMSRequest{Template: "on_my_way", CustomerID: jobID(2)})
	assert.ErrorIs(t, err, ErrNoRecipient)

	_, err = n.SendSMS(context.Background(), SMSRequest{Template: "nope", To: "+15550001111"})
	assert.ErrorIs(t, err, ErrUnknownTemplate)
	assert.Empty(t, h.store.sms)
}

func TestSendSMSBlockedBeforeRecipientCheck(t *testing.T) {
	h := newHarness()
	h.settings.kill[models.SettingSMSKillSwitch] = true
	h.store.customers[2] = &models.Customer{Id: 2, FirstName: "No", LastName: "Phone"}

	out, err := h.notifier(nil).SendSMS(context.Background(), SMSRequest{Template: "on_my_way", CustomerID: jobID(2)})
	require.NoError(t, err)
	assert.Equal(t, models.LogBlocked, out.Status)
	assert.Equal(t, ReasonSMSKillSwitch, out.Reason)
	require.Len(t, h.store.sms, 1)
	assert.Empty(t, h.store.sms[0].Recipient)
	assert.Empty(t, h.sms.sent)
}

func TestAssignmentEmail(t *testing.T) {
	h := newHarness()
	n := h.notifier(nil)
	job := h.store.jobs[7]
	tech := &models.Profile{FirstName: "Tom", Email: "tom@acme.test"}

	out, err := n.AssignmentEmail(context.Background(), job, tech)
	require.NoError(t, err)
	assert.Equal(t, models.LogSent, out.Status)
	require.Len(t, h.email.sent, 1)
	assert.Equal(t, []string{"tom@acme.test"}, h.email.sent[0].To)
	assert.Contains(t, h.email.sent[0].HTML, "Boiler service")

	h.store.emails[0].CreatedAt = testNow.Add(-10 * time.Minute)
	out, err = n.AssignmentEmail(context.Background(), job, tech)
	require.NoError(t, err)
	assert.Equal(t, models.LogSkipped, out.Status)
}

func TestJobStatusEmailKillSwitch(t *testing.T) {
	h := newHarness()
	h.settings.kill[models.SettingEmailKillSwitch] = true
	job := *h.store.jobs[7]
	job.Status = "completed"
	job.Customer = *h.store.customers[1]

	out, err := h.notifier(nil).JobStatusEmail(context.Background(), &job, "https://portal/jobs?token=x")
	require.NoError(t, err)
	assert.Equal(t, models.LogBlocked, out.Status)
	assert.Equal(t, ReasonEmailKillSwitch, out.Reason)
	assert.Empty(t, h.email.sent)
}

func TestJobStatusEmailEscapesAndLinks(t *testing.T) {
	h := newHarness()
	job := *h.store.jobs[7]
	job.Title = "<b>Leak</b>"
	job.Status = "in_progress"
	job.Customer = *h.store.customers[1]

	_, err := h.notifier(nil).JobStatusEmail(context.Background(), &job, "https://portal.test/jobs?token=abc")
	require.NoError(t, err)
	require.Len(t, h.email.sent, 1)
	html := h.email.sent[0].HTML
	assert.Contains(t, html, "&lt;b&gt;Leak&lt;/b&gt;")
	assert.Contains(t, html, "In progress")
	assert.Contains(t, html, "https://portal.test/jobs?token=abc")
}

func TestJobStatusEmailResendSkipped(t *testing.T) {
	h := newHarness()
	n := h.notifier(nil)
	job := *h.store.jobs[7]
	job.Status = "in_progress"
	job.Customer = *h.store.customers[1]

	out, err := n.JobStatusEmail(context.Background(), &job, "")
	require.NoError(t, err)
	assert.Equal(t, models.LogSent, out.Status)
	assert.Equal(t, "job_status:in_progress", h.store.emails[0].Kind)
	h.store.emails[0].CreatedAt = testNow.Add(-20 * time.Minute)

	out, err = n.JobStatusEmail(context.Background(), &job, "")
	require.NoError(t, err)
	assert.Equal(t, models.LogSkipped, out.Status)
	assert.Equal(t, ReasonDuplicate, out.Reason)

	job.Status = "completed"
	out, err = n.JobStatusEmail(context.Background(), &job, "")
	require.NoError(t, err)
	assert.Equal(t, models.LogSent, out.Status)
	assert.Len(t, h.email.sent, 2)
}

func TestJobStatusEmailResendSkippedWithDeduper(t *testing.T) {
	h := newHarness()
	n := h.notifier(&memDedup{keys: map[string]bool{}})
	job := *h.store.jobs[7]
	job.Status = "completed"
	job.Customer = *h.store.customers[1]

	first, err := n.JobStatusEmail(context.Background(), &job, "")
	require.NoError(t, err)
	second, err := n.JobStatusEmail(context.Background(), &job, "")
	require.NoError(t, err)
	assert.Equal(t, models.LogSent, first.Status)
	assert.Equal(t, models.LogSkipped, second.Status)
	assert.Len(t, h.email.sent, 1)
}

func TestReceiptEmailNeedsFeature(t *testing.T) {
	h := newHarness()
	h.settings.plan = models.PlanFree
	mail := ReceiptMail{To: "ada@example.com", InvoiceNumber: "INV-00001", Filename: "r.pdf", PDF: []byte("%PDF"), InvoiceID: 1, PaymentID: 2}

	out, err := h.notifier(nil).ReceiptEmail(context.Background(), mail)
	require.NoError(t, err)
	assert.Equal(t, ReasonPlan, out.Reason)

	h.settings.plan = models.PlanPro
	out, err = h.notifier(nil).ReceiptEmail(context.Background(), mail)
	require.NoError(t, err)
	assert.Equal(t, models.LogSent, out.Status)
	require.Len(t, h.email.sent, 1)
	require.Len(t, h.email.sent[0].Attachments, 1)
	assert.Equal(t, "application/pdf", h.email.sent[0].Attachments[0].ContentType)
}

func TestRender(t *testing.T) {
	body, err := render("custom", map[string]string{"message": "Gate code is {code}"})
	require.NoError(t, err)
	assert.Equal(t, "Gate code is {code}", body)

	body, err = render("on_my_way", map[string]string{"customer_name": "Ada {Bob}", "company_name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada {Bob}, your technician from Acme is on the way.", body)

	body, err = render("job_completed", map[string]string{"customer_name": "Ada", "company_name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada, Acme has completed . Details:", body)
}

func TestTemplatesSorted(t *testing.T) {
	assert.Equal(t, []string{"appointment_reminder", "custom", "invoice_reminder", "job_completed", "on_my_way"}, Templates())
}

func TestEntitledFollowsPlan(t *testing.T) {
	h := newHarness()
	h.settings.features["pro/portal"] = true

	ok, err := h.notifier(nil).Entitled(context.Background(), models.FeaturePortal)
	require.NoError(t, err)
	assert.True(t, ok)

	// cancelled subscriptions drop to free
	h.settings.status = models.SubscriptionCanceled
	ok, err = h.notifier(nil).Entitled(context.Background(), models.FeaturePortal)
	require.NoError(t, err)
	assert.False(t, ok)
}
