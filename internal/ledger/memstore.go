package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// row is the common surface every stored entity exposes to the generic
// helpers below. All entities satisfy it via the accessors in this file.
type row interface {
	rowID() string
	rowOwner() string
	rowDeleted() bool
}

func (p Party) rowID() string              { return p.ID }
func (p Party) rowOwner() string           { return p.OwnerID }
func (p Party) rowDeleted() bool           { return p.DeletedAt != nil }
func (c Category) rowID() string           { return c.ID }
func (c Category) rowOwner() string        { return c.OwnerID }
func (c Category) rowDeleted() bool        { return c.DeletedAt != nil }
func (r MoneyRecord) rowID() string        { return r.ID }
func (r MoneyRecord) rowOwner() string     { return r.OwnerID }
func (r MoneyRecord) rowDeleted() bool     { return r.DeletedAt != nil }
func (i Invoice) rowID() string            { return i.ID }
func (i Invoice) rowOwner() string         { return i.OwnerID }
func (i Invoice) rowDeleted() bool         { return i.DeletedAt != nil }
func (s RecurringSchedule) rowID() string  { return s.ID }
func (s RecurringSchedule) rowOwner() string { return s.OwnerID }
func (s RecurringSchedule) rowDeleted() bool { return s.DeletedAt != nil }
func (p Project) rowID() string            { return p.ID }
func (p Project) rowOwner() string         { return p.OwnerID }
func (p Project) rowDeleted() bool         { return p.DeletedAt != nil }
func (m Milestone) rowID() string          { return m.ID }
func (m Milestone) rowOwner() string       { return m.OwnerID }
func (m Milestone) rowDeleted() bool       { return m.DeletedAt != nil }
func (g Goal) rowID() string               { return g.ID }
func (g Goal) rowOwner() string            { return g.OwnerID }
func (g Goal) rowDeleted() bool            { return g.DeletedAt != nil }
func (e TimeEntry) rowID() string          { return e.ID }
func (e TimeEntry) rowOwner() string       { return e.OwnerID }
func (e TimeEntry) rowDeleted() bool       { return e.DeletedAt != nil }
func (n Note) rowID() string               { return n.ID }
func (n Note) rowOwner() string            { return n.OwnerID }
func (n Note) rowDeleted() bool            { return n.DeletedAt != nil }

// indexOf returns the slice index of the live record with the given owner and
// id, or -1 when absent. Deleted and foreign-owned records are invisible.
func indexOf[T row](rows []T, ownerID, id string) int {
	for i, r := range rows {
		if r.rowID() == id && r.rowOwner() == ownerID && !r.rowDeleted() {
			return i
		}
	}
	return -1
}

// liveRows returns the live records for ownerID that pass keep, preserving
// insertion order. keep may be nil to accept everything.
func liveRows[T row](rows []T, ownerID string, keep func(T) bool) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if r.rowOwner() != ownerID || r.rowDeleted() {
			continue
		}
		if keep != nil && !keep(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// MemStore is a thread-safe, in-memory implementation of [Store]. It is
// suitable for tests and single-user development. The zero value is ready
// to use.
//
// Records are held in insertion-order slices so that List results are stable,
// which the resolver's tie-break rule relies on.
type MemStore struct {
	mu         sync.RWMutex
	parties    []Party
	categories []Category
	records    []MoneyRecord
	invoices   []Invoice
	schedules  []RecurringSchedule
	projects   []Project
	milestones []Milestone
	goals      []Goal
	entries    []TimeEntry
	notes      []Note
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{}
}

func newID() string {
	return uuid.NewString()
}

// ── Parties ───────────────────────────────────────────────────────────────────

// InsertParty implements [Store.InsertParty]. It assigns ID and timestamps.
func (s *MemStore) InsertParty(ctx context.Context, p *Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = newID()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	s.parties = append(s.parties, *p)
	return nil
}

// GetParty implements [Store.GetParty].
func (s *MemStore) GetParty(ctx context.Context, ownerID, id string) (Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.parties, ownerID, id); i >= 0 {
		return s.parties[i], nil
	}
	return Party{}, ErrNotFound
}

// UpdateParty implements [Store.UpdateParty].
func (s *MemStore) UpdateParty(ctx context.Context, p Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.parties, p.OwnerID, p.ID)
	if i < 0 {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	s.parties[i] = p
	return nil
}

// SoftDeleteParty implements [Store.SoftDeleteParty].
func (s *MemStore) SoftDeleteParty(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.parties, ownerID, id)
	if i < 0 {
		return ErrNotFound
	}
	now := time.Now().UTC()
	s.parties[i].DeletedAt = &now
	return nil
}

// ListParties implements [Store.ListParties].
func (s *MemStore) ListParties(ctx context.Context, ownerID string, kind PartyKind) ([]Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return liveRows(s.parties, ownerID, func(p Party) bool {
		return kind == "" || p.Kind == kind
	}), nil
}

// ── Categories ────────────────────────────────────────────────────────────────

func (s *MemStore) InsertCategory(ctx context.Context, c *Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = newID()
	c.CreatedAt = time.Now().UTC()
	s.categories = append(s.categories, *c)
	return nil
}

func (s *MemStore) GetCategory(ctx context.Context, ownerID, id string) (Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.categories, ownerID, id); i >= 0 {
		return s.categories[i], nil
	}
	return Category{}, ErrNotFound
}

func (s *MemStore) UpdateCategory(ctx context.Context, c Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.categories, c.OwnerID, c.ID)
	if i < 0 {
		return ErrNotFound
	}
	s.categories[i] = c
	return nil
}

func (s *MemStore) SoftDeleteCategory(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.categories, ownerID, id)
	if i < 0 {
		return ErrNotFound
	}
	now := time.Now().UTC()
	s.categories[i].DeletedAt = &now
	return nil
}

func (s *MemStore) ListCategories(ctx context.Context, ownerID string, typ CategoryType) ([]Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return liveRows(s.categories, ownerID, func(c Category) bool {
		return typ == "" || c.Type == typ
	}), nil
}

// ── Money records ─────────────────────────────────────────────────────────────

func (s *MemStore) InsertRecord(ctx context.Context, r *MoneyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = newID()
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	s.records = append(s.records, *r)
	return nil
}

func (s *MemStore) GetRecord(ctx context.Context, ownerID, id string) (MoneyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.records, ownerID, id); i >= 0 {
		return s.records[i], nil
	}
	return MoneyRecord{}, ErrNotFound
}

func (s *MemStore) UpdateRecord(ctx context.Context, r MoneyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.records, r.OwnerID, r.ID)
	if i < 0 {
		return ErrNotFound
	}
	r.UpdatedAt = time.Now().UTC()
	s.records[i] = r
	return nil
}

func (s *MemStore) SoftDeleteRecord(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.records, ownerID, id)
	if i < 0 {
		return ErrNotFound
	}
	now := time.Now().UTC()
	s.records[i].DeletedAt = &now
	return nil
}

func (s *MemStore) ListRecords(ctx context.Context, ownerID string, filter RecordFilter) ([]MoneyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return liveRows(s.records, ownerID, filter.Matches), nil
}

// ── Invoices ──────────────────────────────────────────────────────────────────

func (s *MemStore) InsertInvoice(ctx context.Context, inv *Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ID = newID()
	inv.CreatedAt = time.Now().UTC()
	inv.UpdatedAt = inv.CreatedAt
	s.invoices = append(s.invoices, *inv)
	return nil
}

func (s *MemStore) GetInvoice(ctx context.Context, ownerID, id string) (Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.invoices, ownerID, id); i >= 0 {
		return s.invoices[i], nil
	}
	return Invoice{}, ErrNotFound
}

func (s *MemStore) UpdateInvoice(ctx context.Context, inv Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.invoices, inv.OwnerID, inv.ID)
	if i < 0 {
		return ErrNotFound
	}
	inv.UpdatedAt = time.Now().UTC()
	s.invoices[i] = inv
	return nil
}

func (s *MemStore) SoftDeleteInvoice(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.invoices, ownerID, id)
	if i < 0 {
		return ErrNotFound
	}
	now := time.Now().UTC()
	s.invoices[i].DeletedAt = &now
	return nil
}

func (s *MemStore) ListInvoices(ctx context.Context, ownerID string) ([]Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return liveRows(s.invoices, ownerID, nil), nil
}

// ── Recurring schedules ───────────────────────────────────────────────────────

func (s *MemStore) InsertSchedule(ctx context.Context, sch *RecurringSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sch.ID = newID()
	sch.CreatedAt = time.Now().UTC()
	s.schedules = append(s.schedules, *sch)
	return nil
}

func (s *MemStore) GetSchedule(ctx context.Context, ownerID, id string) (RecurringSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.schedules, ownerID, id); i >= 0 {
		return s.schedules[i], nil
	}
	return RecurringSchedule{}, ErrNotFound
}

func (s *MemStore) UpdateSchedule(ctx context.Context, sch RecurringSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.schedules, sch.OwnerID, sch.ID)
	if i < 0 {
		return ErrNotFound
	}
	s.schedules[i] = sch
	return nil
}

func (s *MemStore) SoftDeleteSchedule(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.schedules, ownerID, id)
	if i < 0 {
		return ErrNotFound
	}
	now := time.Now().UTC()
	s.schedules[i].DeletedAt = &now
	return nil
}

func (s *MemStore) ListSchedules(ctx context.Context, ownerID string, activeOnly bool) ([]RecurringSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return liveRows(s.schedules, ownerID, func(r RecurringSchedule) bool {
		return !activeOnly || r.IsActive
	}), nil
}

// ── Projects ──────────────────────────────────────────────────────────────────

func (s *MemStore) InsertProject(ctx context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = newID()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	s.projects = append(s.projects, *p)
	return nil
}

func (s *MemStore) GetProject(ctx context.Context, ownerID, id string) (Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.projects, ownerID, id); i >= 0 {
		return s.projects[i], nil
	}
	return Project{}, ErrNotFound
}

func (s *MemStore) UpdateProject(ctx context.Context, p Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.projects, p.OwnerID, p.ID)
	if i < 0 {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	s.projects[i] = p
	return nil
}

func (s *MemStore) SoftDeleteProject(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.projects, ownerID, id)
	if i < 0 {
		return ErrNotFound
	}
	now := time.Now().UTC()
	s.projects[i].DeletedAt = &now
	return nil
}

func (s *MemStore) ListProjects(ctx context.Context, ownerID string) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return liveRows(s.projects, ownerID, nil), nil
}

// ── Milestones ────────────────────────────────────────────────────────────────

func (s *MemStore) InsertMilestone(ctx context.Context, m *Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = newID()
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	s.milestones = append(s.milestones, *m)
	return nil
}

func (s *MemStore) GetMilestone(ctx context.Context, ownerID, id string) (Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.milestones, ownerID, id); i >= 0 {
		return s.milestones[i], nil
	}
	return Milestone{}, ErrNotFound
}

func (s *MemStore) UpdateMilestone(ctx context.Context, m Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.milestones, m.OwnerID, m.ID)
	if i < 0 {
		return ErrNotFound
	}
	m.UpdatedAt = time.Now().UTC()
	s.milestones[i] = m
	return nil
}

func (s *MemStore) SoftDeleteMilestone(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.milestones, ownerID, id)
	if i < 0 {
		return ErrNotFound
	}
	now := time.Now().UTC()
	s.milestones[i].DeletedAt = &now
	return nil
}

func (s *MemStore) ListMilestones(ctx context.Context, ownerID, projectID string) ([]Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return liveRows(s.milestones, ownerID, func(m Milestone) bool {
		return projectID == "" || m.ProjectID == projectID
	}), nil
}

// ── Goals ─────────────────────────────────────────────────────────────────────

func (s *MemStore) InsertGoal(ctx context.Context, g *Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = newID()
	g.CreatedAt = time.Now().UTC()
	g.UpdatedAt = g.CreatedAt
	s.goals = append(s.goals, *g)
	return nil
}

func (s *MemStore) GetGoal(ctx context.Context, ownerID, id string) (Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.goals, ownerID, id); i >= 0 {
		return s.goals[i], nil
	}
	return Goal{}, ErrNotFound
}

func (s *MemStore) UpdateGoal(ctx context.Context, g Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.goals, g.OwnerID, g.ID)
	if i < 0 {
		return ErrNotFound
	}
	g.UpdatedAt = time.Now().UTC()
	s.goals[i] = g
	return nil
}

func (s *MemStore) SoftDeleteGoal(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.goals, ownerID, id)
	if i < 0 {
		return ErrNotFound
	}
	now := time.Now().UTC()
	s.goals[i].DeletedAt = &now
	return nil
}

func (s *MemStore) ListGoals(ctx context.Context, ownerID, projectID string) ([]Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return liveRows(s.goals, ownerID, func(g Goal) bool {
		return projectID == "" || g.ProjectID == projectID
	}), nil
}

// ── Time entries ──────────────────────────────────────────────────────────────

func (s *MemStore) InsertTimeEntry(ctx context.Context, e *TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = newID()
	e.CreatedAt = time.Now().UTC()
	s.entries = append(s.entries, *e)
	return nil
}

func (s *MemStore) GetTimeEntry(ctx context.Context, ownerID, id string) (TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.entries, ownerID, id); i >= 0 {
		return s.entries[i], nil
	}
	return TimeEntry{}, ErrNotFound
}

func (s *MemStore) UpdateTimeEntry(ctx context.Context, e TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.entries, e.OwnerID, e.ID)
	if i < 0 {
		return ErrNotFound
	}
	s.entries[i] = e
	return nil
}

func (s *MemStore) SoftDeleteTimeEntry(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.entries, ownerID, id)
	if i < 0 {
		return ErrNotFound
	}
	now := time.Now().UTC()
	s.entries[i].DeletedAt = &now
	return nil
}

func (s *MemStore) ListTimeEntries(ctx context.Context, ownerID, projectID string) ([]TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return liveRows(s.entries, ownerID, func(e TimeEntry) bool {
		return projectID == "" || e.ProjectID == projectID
	}), nil
}

// ── Notes ─────────────────────────────────────────────────────────────────────

func (s *MemStore) InsertNote(ctx context.Context, n *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = newID()
	n.CreatedAt = time.Now().UTC()
	s.notes = append(s.notes, *n)
	return nil
}

func (s *MemStore) GetNote(ctx context.Context, ownerID, id string) (Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.notes, ownerID, id); i >= 0 {
		return s.notes[i], nil
	}
	return Note{}, ErrNotFound
}

func (s *MemStore) SoftDeleteNote(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.notes, ownerID, id)
	if i < 0 {
		return ErrNotFound
	}
	now := time.Now().UTC()
	s.notes[i].DeletedAt = &now
	return nil
}

func (s *MemStore) ListNotes(ctx context.Context, ownerID, projectID string) ([]Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return liveRows(s.notes, ownerID, func(n Note) bool {
		return projectID == "" || n.ProjectID == projectID
	}), nil
}
