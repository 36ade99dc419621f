package ledger

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist, is soft-deleted, or
// belongs to a different owner. Callers treat all three identically — absence
// is a normal outcome, never an exception.
var ErrNotFound = errors.New("ledger: record not found")

// RecordFilter narrows MoneyRecords queries. Zero fields are ignored.
type RecordFilter struct {
	Kind       RecordKind
	PartyID    string
	CategoryID string
	ProjectID  string

	// From and To bound the record date (inclusive). Zero means unbounded.
	From time.Time
	To   time.Time
}

// Matches reports whether rec passes every non-zero condition of f.
func (f RecordFilter) Matches(rec MoneyRecord) bool {
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	if f.PartyID != "" && rec.PartyID != f.PartyID {
		return false
	}
	if f.CategoryID != "" && rec.CategoryID != f.CategoryID {
		return false
	}
	if f.ProjectID != "" && rec.ProjectID != f.ProjectID {
		return false
	}
	if !f.From.IsZero() && rec.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && rec.Date.After(f.To) {
		return false
	}
	return true
}

// Store is the persistence collaborator for the tool layer.
//
// Every operation is scoped by an owner id which the caller must always
// supply. Get returns [ErrNotFound] for missing, deleted, or foreign-owned
// records. List methods return live (non-deleted) records in insertion order
// — the resolver's tie-break stability depends on that order being stable.
//
// All implementations must be safe for concurrent use.
type Store interface {
	// Parties
	InsertParty(ctx context.Context, p *Party) error
	GetParty(ctx context.Context, ownerID, id string) (Party, error)
	UpdateParty(ctx context.Context, p Party) error
	SoftDeleteParty(ctx context.Context, ownerID, id string) error
	// ListParties returns live parties of the given kind; empty kind means both.
	ListParties(ctx context.Context, ownerID string, kind PartyKind) ([]Party, error)

	// Categories
	InsertCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, ownerID, id string) (Category, error)
	UpdateCategory(ctx context.Context, c Category) error
	SoftDeleteCategory(ctx context.Context, ownerID, id string) error
	ListCategories(ctx context.Context, ownerID string, typ CategoryType) ([]Category, error)

	// Money records
	InsertRecord(ctx context.Context, r *MoneyRecord) error
	GetRecord(ctx context.Context, ownerID, id string) (MoneyRecord, error)
	UpdateRecord(ctx context.Context, r MoneyRecord) error
	SoftDeleteRecord(ctx context.Context, ownerID, id string) error
	ListRecords(ctx context.Context, ownerID string, filter RecordFilter) ([]MoneyRecord, error)

	// Invoices
	InsertInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, ownerID, id string) (Invoice, error)
	UpdateInvoice(ctx context.Context, inv Invoice) error
	SoftDeleteInvoice(ctx context.Context, ownerID, id string) error
	ListInvoices(ctx context.Context, ownerID string) ([]Invoice, error)

	// Recurring schedules
	InsertSchedule(ctx context.Context, s *RecurringSchedule) error
	GetSchedule(ctx context.Context, ownerID, id string) (RecurringSchedule, error)
	UpdateSchedule(ctx context.Context, s RecurringSchedule) error
	SoftDeleteSchedule(ctx context.Context, ownerID, id string) error
	ListSchedules(ctx context.Context, ownerID string, activeOnly bool) ([]RecurringSchedule, error)

	// Projects and sub-entities
	InsertProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, ownerID, id string) (Project, error)
	UpdateProject(ctx context.Context, p Project) error
	SoftDeleteProject(ctx context.Context, ownerID, id string) error
	ListProjects(ctx context.Context, ownerID string) ([]Project, error)

	InsertMilestone(ctx context.Context, m *Milestone) error
	GetMilestone(ctx context.Context, ownerID, id string) (Milestone, error)
	UpdateMilestone(ctx context.Context, m Milestone) error
	SoftDeleteMilestone(ctx context.Context, ownerID, id string) error
	ListMilestones(ctx context.Context, ownerID, projectID string) ([]Milestone, error)

	InsertGoal(ctx context.Context, g *Goal) error
	GetGoal(ctx context.Context, ownerID, id string) (Goal, error)
	UpdateGoal(ctx context.Context, g Goal) error
	SoftDeleteGoal(ctx context.Context, ownerID, id string) error
	ListGoals(ctx context.Context, ownerID, projectID string) ([]Goal, error)

	InsertTimeEntry(ctx context.Context, e *TimeEntry) error
	GetTimeEntry(ctx context.Context, ownerID, id string) (TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, e TimeEntry) error
	SoftDeleteTimeEntry(ctx context.Context, ownerID, id string) error
	ListTimeEntries(ctx context.Context, ownerID, projectID string) ([]TimeEntry, error)

	InsertNote(ctx context.Context, n *Note) error
	GetNote(ctx context.Context, ownerID, id string) (Note, error)
	SoftDeleteNote(ctx context.Context, ownerID, id string) error
	ListNotes(ctx context.Context, ownerID, projectID string) ([]Note, error)
}
