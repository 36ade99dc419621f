// Package ledger defines the financial entities managed by the assistant and
// the Store abstraction the tool layer persists them through.
//
// Every entity is scoped to an owning user (or team) via OwnerID and is
// soft-deleted: a delete sets DeletedAt and the record stays in the datastore.
// No entity is ever visible or mutable across owners.
package ledger

import "time"

// PartyKind distinguishes the two kinds of counterparty a user transacts with.
type PartyKind string

const (
	// PartyClient is a counterparty that pays the user (income side).
	PartyClient PartyKind = "client"

	// PartyVendor is a counterparty the user pays (expense side).
	PartyVendor PartyKind = "vendor"
)

// IsValid reports whether k is a recognised party kind.
func (k PartyKind) IsValid() bool {
	return k == PartyClient || k == PartyVendor
}

// Party is a client or vendor. Parties are created lazily by tools on the
// first successful "create" after a resolution miss and looked up by name,
// email, or phone.
type Party struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Kind        PartyKind  `json:"kind"`
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	CompanyName string     `json:"company_name,omitempty"`
	Address     string     `json:"address,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// CategoryType classifies a category as income or expense.
type CategoryType string

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

// IsValid reports whether t is a recognised category type.
func (t CategoryType) IsValid() bool {
	return t == CategoryIncome || t == CategoryExpense
}

// Category labels money records. Same lifecycle pattern as Party.
type Category struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"owner_id"`
	Name      string       `json:"name"`
	Type      CategoryType `json:"type"`
	Color     string       `json:"color,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	DeletedAt *time.Time   `json:"deleted_at,omitempty"`
}

// RecordKind distinguishes income from expense money records.
type RecordKind string

const (
	RecordIncome  RecordKind = "income"
	RecordExpense RecordKind = "expense"
)

// IsValid reports whether k is a recognised record kind.
func (k RecordKind) IsValid() bool {
	return k == RecordIncome || k == RecordExpense
}

// MoneyRecord is a single income or expense entry.
//
// TotalWithTax is derived: it is always recomputed from Amount and TaxRate
// (see [ComputeTax]) and never independently settable. Tools recompute it at
// apply time from the authoritative persisted state, never from a preview
// payload.
type MoneyRecord struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Kind        RecordKind `json:"kind"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Date        time.Time  `json:"date"`
	TaxRate     float64    `json:"tax_rate"`
	TaxAmount   float64    `json:"tax_amount"`
	TotalWithTax float64   `json:"total_with_tax"`
	PartyID     string     `json:"party_id,omitempty"`
	CategoryID  string     `json:"category_id,omitempty"`
	ProjectID   string     `json:"project_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePartial   InvoiceStatus = "partial"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// IsValid reports whether s is a recognised invoice status.
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePartial, InvoicePaid, InvoiceOverdue, InvoiceCancelled:
		return true
	}
	return false
}

// LineItem is a single line on an invoice.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

// Invoice is a bill issued to a client.
//
// Invariants: Total == Subtotal + TaxAmount and BalanceDue == Total -
// AmountPaid. Once Status is [InvoicePaid] the record is immutable — the tool
// layer enforces this, not the datastore.
type Invoice struct {
	ID         string        `json:"id"`
	OwnerID    string        `json:"owner_id"`
	Number     string        `json:"number"`
	ClientID   string        `json:"client_id"`
	Items      []LineItem    `json:"items"`
	Subtotal   float64       `json:"subtotal"`
	TaxRate    float64       `json:"tax_rate"`
	TaxAmount  float64       `json:"tax_amount"`
	Total      float64       `json:"total"`
	AmountPaid float64       `json:"amount_paid"`
	BalanceDue float64       `json:"balance_due"`
	Status     InvoiceStatus `json:"status"`
	IssueDate  time.Time     `json:"issue_date"`
	DueDate    time.Time     `json:"due_date"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	DeletedAt  *time.Time    `json:"deleted_at,omitempty"`
}

// Frequency is the recurrence interval of a schedule.
type Frequency string

const (
	FreqWeekly    Frequency = "weekly"
	FreqBiweekly  Frequency = "biweekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqYearly    Frequency = "yearly"
)

// IsValid reports whether f is a recognised frequency.
func (f Frequency) IsValid() bool {
	switch f {
	case FreqWeekly, FreqBiweekly, FreqMonthly, FreqQuarterly, FreqYearly:
		return true
	}
	return false
}

// RecurringSchedule generates invoices from a template on a calendar cadence.
type RecurringSchedule struct {
	ID                string     `json:"id"`
	OwnerID           string     `json:"owner_id"`
	InvoiceTemplateID string     `json:"invoice_template_id"`
	Frequency         Frequency  `json:"frequency"`
	NextDate          time.Time  `json:"next_date"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
}

// Advance returns the schedule's next occurrence after from.
//
// Weekly and biweekly advance by a fixed day count; monthly, quarterly and
// yearly advance by a calendar offset so "the 31st" normalises the way
// [time.Time.AddDate] does rather than jumping a fixed number of days.
func (r RecurringSchedule) Advance(from time.Time) time.Time {
	switch r.Frequency {
	case FreqWeekly:
		return from.AddDate(0, 0, 7)
	case FreqBiweekly:
		return from.AddDate(0, 0, 14)
	case FreqMonthly:
		return from.AddDate(0, 1, 0)
	case FreqQuarterly:
		return from.AddDate(0, 3, 0)
	case FreqYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from
	}
}

// Expired reports whether the schedule has run past its end date as of next.
func (r RecurringSchedule) Expired(next time.Time) bool {
	return r.EndDate != nil && next.After(*r.EndDate)
}

// MilestoneStatus is the lifecycle of a project milestone.
type MilestoneStatus string

const (
	MilestonePending    MilestoneStatus = "pending"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneCompleted  MilestoneStatus = "completed"
	MilestonePaid       MilestoneStatus = "paid"
)

// IsValid reports whether s is a recognised milestone status.
func (s MilestoneStatus) IsValid() bool {
	switch s {
	case MilestonePending, MilestoneInProgress, MilestoneCompleted, MilestonePaid:
		return true
	}
	return false
}

// GoalStatus is the lifecycle of a project goal.
type GoalStatus string

const (
	GoalTodo       GoalStatus = "todo"
	GoalInProgress GoalStatus = "in_progress"
	GoalDone       GoalStatus = "done"
)

// IsValid reports whether s is a recognised goal status.
func (s GoalStatus) IsValid() bool {
	return s == GoalTodo || s == GoalInProgress || s == GoalDone
}

// NoteType classifies a project note.
type NoteType string

const (
	NotePlain         NoteType = "note"
	NoteMeeting       NoteType = "meeting"
	NoteCall          NoteType = "call"
	NoteEmail         NoteType = "email"
	NoteChangeRequest NoteType = "change_request"
	NoteOther         NoteType = "other"
)

// IsValid reports whether t is a recognised note type.
func (t NoteType) IsValid() bool {
	switch t {
	case NotePlain, NoteMeeting, NoteCall, NoteEmail, NoteChangeRequest, NoteOther:
		return true
	}
	return false
}

// Project groups work for a client.
type Project struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Name      string     `json:"name"`
	ClientID  string     `json:"client_id,omitempty"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Milestone is a billable project checkpoint.
type Milestone struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	ProjectID string          `json:"project_id"`
	Title     string          `json:"title"`
	Amount    float64         `json:"amount"`
	DueDate   time.Time       `json:"due_date"`
	Status    MilestoneStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
}

// Goal is a non-billable project task.
type Goal struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	ProjectID string     `json:"project_id"`
	Title     string     `json:"title"`
	Status    GoalStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// TimeEntry is a block of tracked hours on a project.
//
// Amount is derived: Hours * HourlyRate when Billable, nil otherwise.
type TimeEntry struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	ProjectID  string     `json:"project_id"`
	Description string    `json:"description"`
	Hours      float64    `json:"hours"`
	Billable   bool       `json:"billable"`
	HourlyRate float64    `json:"hourly_rate,omitempty"`
	Amount     *float64   `json:"amount,omitempty"`
	Date       time.Time  `json:"date"`
	CreatedAt  time.Time  `json:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// Note is a free-text record attached to a project.
type Note struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	ProjectID string     `json:"project_id"`
	Type      NoteType   `json:"type"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
