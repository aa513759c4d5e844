package notify

import (
	"sort"
	"strings"
)

// SMS templates. Placeholders are replaced from the job, customer and request variables.
var smsTemplates = map[string]string{
	"appointment_reminder": "Hi {customer_name}, this is a reminder from {company_name} about {job_title} on {scheduled_at}.",
	"on_my_way":            "Hi {customer_name}, your technician from {company_name} is on the way.",
	"job_completed":        "Hi {customer_name}, {company_name} has completed {job_title}. Details: {portal_link}",
	"invoice_reminder":     "Hi {customer_name}, a friendly reminder from {company_name} that an invoice is due. {portal_link}",
	"custom":               "{message}",
}

// Templates lists the available SMS template names in alphabetical order.
func Templates() []string {
	out := make([]string, 0, len(smsTemplates))
	for name := range smsTemplates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// render fills the template's placeholders in one pass. Unknown placeholders are dropped;
// values are inserted verbatim, braces included.
func render(template string, vars map[string]string) (string, error) {
	text, ok := smsTemplates[template]
	if !ok {
		return "", ErrUnknownTemplate
	}
	var b strings.Builder
	for {
		open := strings.IndexByte(text, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(text[open:], '}')
		if end < 0 {
			break
		}
		b.WriteString(text[:open])
		b.WriteString(vars[text[open+1:open+end]])
		text = text[open+end+1:]
	}
	b.WriteString(text)
	return strings.Join(strings.Fields(b.String()), " "), nil
}
