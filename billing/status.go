package billing

// Document kinds.
const (
	KindQuote   = "quote"
	KindJob     = "job"
	KindInvoice = "invoice"
)

// Quote statuses.
const (
	QuoteDraft    = "draft"
	QuoteSent     = "sent"
	QuoteApproved = "approved"
	QuoteDeclined = "declined"
)

// Job statuses.
const (
	JobScheduled  = "scheduled"
	JobInProgress = "in_progress"
	JobCompleted  = "completed"
	JobInvoiced   = "invoiced"
	JobCancelled  = "cancelled"
)

// Invoice statuses.
const (
	InvoiceDraft     = "draft"
	InvoiceSent      = "sent"
	InvoicePaid      = "paid"
	InvoiceOverdue   = "overdue"
	InvoiceCancelled = "cancelled"
)

var transitions = map[string]map[string][]string{
	KindQuote: {
		QuoteDraft:    {QuoteSent, QuoteApproved, QuoteDeclined},
		QuoteSent:     {QuoteApproved, QuoteDeclined, QuoteDraft},
		QuoteApproved: {QuoteSent},
		QuoteDeclined: {QuoteDraft, QuoteSent},
	},
	KindJob: {
		JobScheduled:  {JobInProgress, JobCompleted, JobCancelled},
		JobInProgress: {JobCompleted, JobScheduled, JobCancelled},
		JobCompleted:  {JobInvoiced, JobInProgress},
		JobCancelled:  {JobScheduled},
	},
	KindInvoice: {
		InvoiceDraft:   {InvoiceSent, InvoiceCancelled},
		InvoiceSent:    {InvoicePaid, InvoiceOverdue, InvoiceCancelled, InvoiceDraft},
		InvoiceOverdue: {InvoicePaid, InvoiceCancelled, InvoiceSent},
		InvoicePaid:    {InvoiceSent},
	},
}

// CanTransition reports whether a document of kind may move from one status to another.
// Setting the current status again is always allowed.
func CanTransition(kind, from, to string) bool {
	if from == to {
		return ValidStatus(kind, to)
	}
	for _, s := range transitions[kind][from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether status belongs to the lifecycle of kind.
func ValidStatus(kind, status string) bool {
	byFrom := transitions[kind]
	if _, ok := byFrom[status]; ok {
		return true
	}
	for _, tos := range byFrom {
		for _, s := range tos {
			if s == status {
				return true
			}
		}
	}
	return false
}
