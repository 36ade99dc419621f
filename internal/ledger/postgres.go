package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the ledger_rows table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
//
// Every entity family shares one table: the typed struct is serialised as a
// JSONB document and the columns the store queries on (owner, family, delete
// tombstone, insertion order) are lifted out. seq preserves insertion order,
// which List results must keep stable for the resolver's tie-break rule.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_rows (
    id         TEXT PRIMARY KEY,
    owner_id   TEXT NOT NULL,
    family     TEXT NOT NULL,
    doc        JSONB NOT NULL,
    seq        BIGINT GENERATED ALWAYS AS IDENTITY,
    deleted_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_ledger_rows_owner_family ON ledger_rows(owner_id, family) WHERE deleted_at IS NULL;
`

// Entity family discriminators for the ledger_rows table.
const (
	familyParty     = "party"
	familyCategory  = "category"
	familyRecord    = "money_record"
	familyInvoice   = "invoice"
	familySchedule  = "recurring_schedule"
	familyProject   = "project"
	familyMilestone = "milestone"
	familyGoal      = "goal"
	familyTimeEntry = "time_entry"
	familyNote      = "note"
)

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	return nil
}

// ── Generic document helpers ──────────────────────────────────────────────────

func (s *PostgresStore) insertDoc(ctx context.Context, family, id, ownerID string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ledger: marshal %s: %w", family, err)
	}
	const query = `INSERT INTO ledger_rows (id, owner_id, family, doc) VALUES ($1,$2,$3,$4)`
	if _, err := s.db.Exec(ctx, query, id, ownerID, family, doc); err != nil {
		return fmt.Errorf("ledger: insert %s: %w", family, err)
	}
	return nil
}

func (s *PostgresStore) updateDoc(ctx context.Context, family, id, ownerID string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ledger: marshal %s: %w", family, err)
	}
	const query = `
		UPDATE ledger_rows SET doc = $4
		WHERE id = $1 AND owner_id = $2 AND family = $3 AND deleted_at IS NULL`
	tag, err := s.db.Exec(ctx, query, id, ownerID, family, doc)
	if err != nil {
		return fmt.Errorf("ledger: update %s: %w", family, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) softDeleteDoc(ctx context.Context, family, ownerID, id string) error {
	// The tombstone is written into both the column and the document so the
	// unmarshalled struct reflects it.
	const query = `
		UPDATE ledger_rows
		SET deleted_at = now(),
		    doc = jsonb_set(doc, '{deleted_at}', to_jsonb(now()))
		WHERE id = $1 AND owner_id = $2 AND family = $3 AND deleted_at IS NULL`
	tag, err := s.db.Exec(ctx, query, id, ownerID, family)
	if err != nil {
		return fmt.Errorf("ledger: soft delete %s: %w", family, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func getDoc[T any](ctx context.Context, s *PostgresStore, family, ownerID, id string) (T, error) {
	var zero T
	const query = `
		SELECT doc FROM ledger_rows
		WHERE id = $1 AND owner_id = $2 AND family = $3 AND deleted_at IS NULL`
	var doc []byte
	err := s.db.QueryRow(ctx, query, id, ownerID, family).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("ledger: get %s %q: %w", family, id, err)
	}
	var v T
	if err := json.Unmarshal(doc, &v); err != nil {
		return zero, fmt.Errorf("ledger: unmarshal %s %q: %w", family, id, err)
	}
	return v, nil
}

func listDocs[T any](ctx context.Context, s *PostgresStore, family, ownerID string) ([]T, error) {
	const query = `
		SELECT doc FROM ledger_rows
		WHERE owner_id = $1 AND family = $2 AND deleted_at IS NULL
		ORDER BY seq`
	rows, err := s.db.Query(ctx, query, ownerID, family)
	if err != nil {
		return nil, fmt.Errorf("ledger: list %s: %w", family, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("ledger: scan %s: %w", family, err)
		}
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, fmt.Errorf("ledger: unmarshal %s: %w", family, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: list %s: %w", family, err)
	}
	return out, nil
}

// keepWhere filters rows in Go. The per-owner row counts here are small, so
// pushing these predicates into SQL is not worth per-family query variants.
func keepWhere[T any](rows []T, keep func(T) bool) []T {
	if keep == nil {
		return rows
	}
	out := rows[:0]
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// ── Parties ───────────────────────────────────────────────────────────────────

func (s *PostgresStore) InsertParty(ctx context.Context, p *Party) error {
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	return s.insertDoc(ctx, familyParty, p.ID, p.OwnerID, p)
}

func (s *PostgresStore) GetParty(ctx context.Context, ownerID, id string) (Party, error) {
	return getDoc[Party](ctx, s, familyParty, ownerID, id)
}

func (s *PostgresStore) UpdateParty(ctx context.Context, p Party) error {
	p.UpdatedAt = time.Now().UTC()
	return s.updateDoc(ctx, familyParty, p.ID, p.OwnerID, p)
}

func (s *PostgresStore) SoftDeleteParty(ctx context.Context, ownerID, id string) error {
	return s.softDeleteDoc(ctx, familyParty, ownerID, id)
}

func (s *PostgresStore) ListParties(ctx context.Context, ownerID string, kind PartyKind) ([]Party, error) {
	parties, err := listDocs[Party](ctx, s, familyParty, ownerID)
	if err != nil {
		return nil, err
	}
	return keepWhere(parties, func(p Party) bool { return kind == "" || p.Kind == kind }), nil
}

// ── Categories ────────────────────────────────────────────────────────────────

func (s *PostgresStore) InsertCategory(ctx context.Context, c *Category) error {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	return s.insertDoc(ctx, familyCategory, c.ID, c.OwnerID, c)
}

func (s *PostgresStore) GetCategory(ctx context.Context, ownerID, id string) (Category, error) {
	return getDoc[Category](ctx, s, familyCategory, ownerID, id)
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, c Category) error {
	return s.updateDoc(ctx, familyCategory, c.ID, c.OwnerID, c)
}

func (s *PostgresStore) SoftDeleteCategory(ctx context.Context, ownerID, id string) error {
	return s.softDeleteDoc(ctx, familyCategory, ownerID, id)
}

func (s *PostgresStore) ListCategories(ctx context.Context, ownerID string, typ CategoryType) ([]Category, error) {
	cats, err := listDocs[Category](ctx, s, familyCategory, ownerID)
	if err != nil {
		return nil, err
	}
	return keepWhere(cats, func(c Category) bool { return typ == "" || c.Type == typ }), nil
}

// ── Money records ─────────────────────────────────────────────────────────────

func (s *PostgresStore) InsertRecord(ctx context.Context, r *MoneyRecord) error {
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	return s.insertDoc(ctx, familyRecord, r.ID, r.OwnerID, r)
}

func (s *PostgresStore) GetRecord(ctx context.Context, ownerID, id string) (MoneyRecord, error) {
	return getDoc[MoneyRecord](ctx, s, familyRecord, ownerID, id)
}

func (s *PostgresStore) UpdateRecord(ctx context.Context, r MoneyRecord) error {
	r.UpdatedAt = time.Now().UTC()
	return s.updateDoc(ctx, familyRecord, r.ID, r.OwnerID, r)
}

func (s *PostgresStore) SoftDeleteRecord(ctx context.Context, ownerID, id string) error {
	return s.softDeleteDoc(ctx, familyRecord, ownerID, id)
}

func (s *PostgresStore) ListRecords(ctx context.Context, ownerID string, filter RecordFilter) ([]MoneyRecord, error) {
	recs, err := listDocs[MoneyRecord](ctx, s, familyRecord, ownerID)
	if err != nil {
		return nil, err
	}
	return keepWhere(recs, filter.Matches), nil
}

// ── Invoices ──────────────────────────────────────────────────────────────────

func (s *PostgresStore) InsertInvoice(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.NewString()
	inv.CreatedAt = time.Now().UTC()
	inv.UpdatedAt = inv.CreatedAt
	return s.insertDoc(ctx, familyInvoice, inv.ID, inv.OwnerID, inv)
}

func (s *PostgresStore) GetInvoice(ctx context.Context, ownerID, id string) (Invoice, error) {
	return getDoc[Invoice](ctx, s, familyInvoice, ownerID, id)
}

func (s *PostgresStore) UpdateInvoice(ctx context.Context, inv Invoice) error {
	inv.UpdatedAt = time.Now().UTC()
	return s.updateDoc(ctx, familyInvoice, inv.ID, inv.OwnerID, inv)
}

func (s *PostgresStore) SoftDeleteInvoice(ctx context.Context, ownerID, id string) error {
	return s.softDeleteDoc(ctx, familyInvoice, ownerID, id)
}

func (s *PostgresStore) ListInvoices(ctx context.Context, ownerID string) ([]Invoice, error) {
	return listDocs[Invoice](ctx, s, familyInvoice, ownerID)
}

// ── Recurring schedules ───────────────────────────────────────────────────────

func (s *PostgresStore) InsertSchedule(ctx context.Context, sch *RecurringSchedule) error {
	sch.ID = uuid.NewString()
	sch.CreatedAt = time.Now().UTC()
	return s.insertDoc(ctx, familySchedule, sch.ID, sch.OwnerID, sch)
}

func (s *PostgresStore) GetSchedule(ctx context.Context, ownerID, id string) (RecurringSchedule, error) {
	return getDoc[RecurringSchedule](ctx, s, familySchedule, ownerID, id)
}

func (s *PostgresStore) UpdateSchedule(ctx context.Context, sch RecurringSchedule) error {
	return s.updateDoc(ctx, familySchedule, sch.ID, sch.OwnerID, sch)
}

func (s *PostgresStore) SoftDeleteSchedule(ctx context.Context, ownerID, id string) error {
	return s.softDeleteDoc(ctx, familySchedule, ownerID, id)
}

func (s *PostgresStore) ListSchedules(ctx context.Context, ownerID string, activeOnly bool) ([]RecurringSchedule, error) {
	schedules, err := listDocs[RecurringSchedule](ctx, s, familySchedule, ownerID)
	if err != nil {
		return nil, err
	}
	return keepWhere(schedules, func(r RecurringSchedule) bool { return !activeOnly || r.IsActive }), nil
}

// ── Projects ──────────────────────────────────────────────────────────────────

func (s *PostgresStore) InsertProject(ctx context.Context, p *Project) error {
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	return s.insertDoc(ctx, familyProject, p.ID, p.OwnerID, p)
}

func (s *PostgresStore) GetProject(ctx context.Context, ownerID, id string) (Project, error) {
	return getDoc[Project](ctx, s, familyProject, ownerID, id)
}

func (s *PostgresStore) UpdateProject(ctx context.Context, p Project) error {
	p.UpdatedAt = time.Now().UTC()
	return s.updateDoc(ctx, familyProject, p.ID, p.OwnerID, p)
}

func (s *PostgresStore) SoftDeleteProject(ctx context.Context, ownerID, id string) error {
	return s.softDeleteDoc(ctx, familyProject, ownerID, id)
}

func (s *PostgresStore) ListProjects(ctx context.Context, ownerID string) ([]Project, error) {
	return listDocs[Project](ctx, s, familyProject, ownerID)
}

// ── Milestones ────────────────────────────────────────────────────────────────

func (s *PostgresStore) InsertMilestone(ctx context.Context, m *Milestone) error {
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	return s.insertDoc(ctx, familyMilestone, m.ID, m.OwnerID, m)
}

func (s *PostgresStore) GetMilestone(ctx context.Context, ownerID, id string) (Milestone, error) {
	return getDoc[Milestone](ctx, s, familyMilestone, ownerID, id)
}

func (s *PostgresStore) UpdateMilestone(ctx context.Context, m Milestone) error {
	m.UpdatedAt = time.Now().UTC()
	return s.updateDoc(ctx, familyMilestone, m.ID, m.OwnerID, m)
}

func (s *PostgresStore) SoftDeleteMilestone(ctx context.Context, ownerID, id string) error {
	return s.softDeleteDoc(ctx, familyMilestone, ownerID, id)
}

func (s *PostgresStore) ListMilestones(ctx context.Context, ownerID, projectID string) ([]Milestone, error) {
	ms, err := listDocs[Milestone](ctx, s, familyMilestone, ownerID)
	if err != nil {
		return nil, err
	}
	return keepWhere(ms, func(m Milestone) bool { return projectID == "" || m.ProjectID == projectID }), nil
}

// ── Goals ─────────────────────────────────────────────────────────────────────

func (s *PostgresStore) InsertGoal(ctx context.Context, g *Goal) error {
	g.ID = uuid.NewString()
	g.CreatedAt = time.Now().UTC()
	g.UpdatedAt = g.CreatedAt
	return s.insertDoc(ctx, familyGoal, g.ID, g.OwnerID, g)
}

func (s *PostgresStore) GetGoal(ctx context.Context, ownerID, id string) (Goal, error) {
	return getDoc[Goal](ctx, s, familyGoal, ownerID, id)
}

func (s *PostgresStore) UpdateGoal(ctx context.Context, g Goal) error {
	g.UpdatedAt = time.Now().UTC()
	return s.updateDoc(ctx, familyGoal, g.ID, g.OwnerID, g)
}

func (s *PostgresStore) SoftDeleteGoal(ctx context.Context, ownerID, id string) error {
	return s.softDeleteDoc(ctx, familyGoal, ownerID, id)
}

func (s *PostgresStore) ListGoals(ctx context.Context, ownerID, projectID string) ([]Goal, error) {
	gs, err := listDocs[Goal](ctx, s, familyGoal, ownerID)
	if err != nil {
		return nil, err
	}
	return keepWhere(gs, func(g Goal) bool { return projectID == "" || g.ProjectID == projectID }), nil
}

// ── Time entries ──────────────────────────────────────────────────────────────

func (s *PostgresStore) InsertTimeEntry(ctx context.Context, e *TimeEntry) error {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()
	return s.insertDoc(ctx, familyTimeEntry, e.ID, e.OwnerID, e)
}

func (s *PostgresStore) GetTimeEntry(ctx context.Context, ownerID, id string) (TimeEntry, error) {
	return getDoc[TimeEntry](ctx, s, familyTimeEntry, ownerID, id)
}

func (s *PostgresStore) UpdateTimeEntry(ctx context.Context, e TimeEntry) error {
	return s.updateDoc(ctx, familyTimeEntry, e.ID, e.OwnerID, e)
}

func (s *PostgresStore) SoftDeleteTimeEntry(ctx context.Context, ownerID, id string) error {
	return s.softDeleteDoc(ctx, familyTimeEntry, ownerID, id)
}

func (s *PostgresStore) ListTimeEntries(ctx context.Context, ownerID, projectID string) ([]TimeEntry, error) {
	es, err := listDocs[TimeEntry](ctx, s, familyTimeEntry, ownerID)
	if err != nil {
		return nil, err
	}
	return keepWhere(es, func(e TimeEntry) bool { return projectID == "" || e.ProjectID == projectID }), nil
}

// ── Notes ─────────────────────────────────────────────────────────────────────

func (s *PostgresStore) InsertNote(ctx context.Context, n *Note) error {
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	return s.insertDoc(ctx, familyNote, n.ID, n.OwnerID, n)
}

func (s *PostgresStore) GetNote(ctx context.Context, ownerID, id string) (Note, error) {
	return getDoc[Note](ctx, s, familyNote, ownerID, id)
}

func (s *PostgresStore) SoftDeleteNote(ctx context.Context, ownerID, id string) error {
	return s.softDeleteDoc(ctx, familyNote, ownerID, id)
}

func (s *PostgresStore) ListNotes(ctx context.Context, ownerID, projectID string) ([]Note, error) {
	ns, err := listDocs[Note](ctx, s, familyNote, ownerID)
	if err != nil {
		return nil, err
	}
	return keepWhere(ns, func(n Note) bool { return projectID == "" || n.ProjectID == projectID }), nil
}
