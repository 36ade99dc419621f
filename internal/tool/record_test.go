package tool_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/ledgerly-ai/ledgerly/internal/ledger"
	"github.com/ledgerly-ai/ledgerly/internal/tool"
)

func financeFixture(t *testing.T) (*ledger.MemStore, *tool.Dispatcher) {
	t.Helper()
	store := ledger.NewMemStore()
	reg := tool.NewFinanceRegistry(store, tool.Defaults{TaxRate: 19, Currency: "EUR"})
	return store, tool.NewDispatcher(reg)
}

func TestAddIncomePreviewThenConfirm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, d := financeFixture(t)
	acme := ledger.Party{OwnerID: "u1", Kind: ledger.PartyClient, Name: "Acme Corp"}
	if err := store.InsertParty(ctx, &acme); err != nil {
		t.Fatalf("InsertParty: %v", err)
	}

	params := map[string]any{
		"amount":      500.0,
		"description": "consulting",
		"client_name": "Acme",
		"confirmed":   false,
	}

	res := d.Dispatch(ctx, "add_income", "u1", params)
	if res.Status != tool.StatusPreview {
		t.Fatalf("preview status = %q (%s)", res.Status, res.Summary)
	}
	client, ok := res.Data["client"].(map[string]any)
	if !ok || client["name"] != "Acme Corp" || client["matched"] != true {
		t.Fatalf("preview client = %v, want matched Acme Corp", res.Data["client"])
	}
	if res.Data["tax_amount"] != 95.0 || res.Data["total_with_tax"] != 595.0 {
		t.Fatalf("preview tax = %v / %v, want 95 / 595", res.Data["tax_amount"], res.Data["total_with_tax"])
	}

	// Preview idempotence: repeating never writes.
	for range 3 {
		again := d.Dispatch(ctx, "add_income", "u1", params)
		if again.Status != tool.StatusPreview {
			t.Fatalf("repeated preview status = %q", again.Status)
		}
	}
	recs, err := store.ListRecords(ctx, "u1", ledger.RecordFilter{})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("preview wrote %d records", len(recs))
	}

	// Confirm: exactly one record with derived totals and the client link.
	params["confirmed"] = true
	res = d.Dispatch(ctx, "add_income", "u1", params)
	if res.Status != tool.StatusApplied {
		t.Fatalf("apply status = %q (%s)", res.Status, res.Summary)
	}
	recs, err = store.ListRecords(ctx, "u1", ledger.RecordFilter{Kind: ledger.RecordIncome})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("apply wrote %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.TotalWithTax != rec.Amount+rec.TaxAmount {
		t.Errorf("total %v != amount %v + tax %v", rec.TotalWithTax, rec.Amount, rec.TaxAmount)
	}
	if rec.TotalWithTax != 595.0 || rec.PartyID != acme.ID {
		t.Errorf("record = %+v, want total 595 linked to Acme Corp", rec)
	}
}

func TestAddIncomeAmbiguousClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, d := financeFixture(t)
	for _, name := range []string{"Acme Corp", "Acme Hosting"} {
		p := ledger.Party{OwnerID: "u1", Kind: ledger.PartyClient, Name: name}
		if err := store.InsertParty(ctx, &p); err != nil {
			t.Fatalf("InsertParty: %v", err)
		}
	}

	// "Acme Group" scores in the suggest band for Acme Corp but below
	// auto-confirm, so the tool must ask instead of guessing.
	res := d.Dispatch(ctx, "add_income", "u1", map[string]any{
		"amount":      100.0,
		"description": "consulting",
		"client_name": "Acme Group",
	})
	if res.Status != tool.StatusNotFound {
		t.Fatalf("status = %q (%s), want not_found with suggestions", res.Status, res.Summary)
	}
	if res.Suggestions == nil {
		t.Fatal("expected did-you-mean suggestions")
	}
	recs, _ := store.ListRecords(ctx, "u1", ledger.RecordFilter{})
	if len(recs) != 0 {
		t.Fatal("ambiguous resolution must not write")
	}
}

// resolutionMetrics captures resolver outcome observations; tool call
// recording comes from the embedded countingMetrics.
type resolutionMetrics struct {
	countingMetrics
	mu       sync.Mutex
	outcomes []string
}

func (m *resolutionMetrics) RecordResolverOutcome(_ context.Context, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *resolutionMetrics) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.outcomes...)
}

func TestDispatchRecordsResolverOutcomes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := ledger.NewMemStore()
	m := &resolutionMetrics{}
	d := tool.NewDispatcher(
		tool.NewFinanceRegistry(store, tool.Defaults{TaxRate: 19, Currency: "EUR"}),
		tool.WithMetrics(m),
	)
	for _, name := range []string{"Acme Corp", "Acme Hosting"} {
		p := ledger.Party{OwnerID: "u1", Kind: ledger.PartyClient, Name: name}
		if err := store.InsertParty(ctx, &p); err != nil {
			t.Fatalf("InsertParty: %v", err)
		}
	}

	for _, term := range []string{"Acme Corp", "Acme Group", "Zzzzqjxw"} {
		d.Dispatch(ctx, "add_income", "u1", map[string]any{
			"amount": 10.0, "description": "consulting", "client_name": term,
		})
	}

	// Exact name, a near miss across two candidates, then gibberish.
	want := []string{"auto", "ambiguous", "none"}
	if got := m.recorded(); !slices.Equal(got, want) {
		t.Errorf("resolver outcomes = %v, want %v", got, want)
	}
}

func TestUpdateIncomeNoOpAndRecompute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, d := financeFixture(t)
	rec := ledger.MoneyRecord{
		OwnerID: "u1", Kind: ledger.RecordIncome,
		Description: "consulting", Amount: 500, Currency: "EUR",
		TaxRate: 19, TaxAmount: 95, TotalWithTax: 595,
	}
	if err := store.InsertRecord(ctx, &rec); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}

	t.Run("identical values are a no-op even when confirmed", func(t *testing.T) {
		res := d.Dispatch(ctx, "update_income", "u1", map[string]any{
			"record_id": rec.ID,
			"amount":    500.0,
			"confirmed": true,
		})
		if res.Status != tool.StatusNoChanges {
			t.Fatalf("status = %q (%s), want no_changes", res.Status, res.Summary)
		}
	})

	t.Run("amount change recomputes derived fields", func(t *testing.T) {
		res := d.Dispatch(ctx, "update_income", "u1", map[string]any{
			"record_id": rec.ID,
			"amount":    600.0,
			"confirmed": true,
		})
		if res.Status != tool.StatusApplied {
			t.Fatalf("status = %q (%s)", res.Status, res.Summary)
		}
		after, err := store.GetRecord(ctx, "u1", rec.ID)
		if err != nil {
			t.Fatalf("GetRecord: %v", err)
		}
		if after.Amount != 600 || after.TaxAmount != 114 || after.TotalWithTax != 714 {
			t.Errorf("record = amount %v tax %v total %v, want 600/114/714",
				after.Amount, after.TaxAmount, after.TotalWithTax)
		}
	})

	t.Run("wrong kind is not found", func(t *testing.T) {
		res := d.Dispatch(ctx, "update_expense", "u1", map[string]any{
			"record_id": rec.ID,
			"amount":    1.0,
		})
		if res.Status != tool.StatusNotFound {
			t.Fatalf("status = %q, want not_found for an income id via the expense tool", res.Status)
		}
	})
}

func TestDeleteExpensePreviewThenConfirm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, d := financeFixture(t)
	rec := ledger.MoneyRecord{
		OwnerID: "u1", Kind: ledger.RecordExpense,
		Description: "hosting", Amount: 40, Currency: "EUR", TotalWithTax: 40,
	}
	if err := store.InsertRecord(ctx, &rec); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}

	res := d.Dispatch(ctx, "delete_expense", "u1", map[string]any{"record_id": rec.ID})
	if res.Status != tool.StatusPreview {
		t.Fatalf("preview status = %q", res.Status)
	}
	if _, err := store.GetRecord(ctx, "u1", rec.ID); err != nil {
		t.Fatal("preview must not delete")
	}

	res = d.Dispatch(ctx, "delete_expense", "u1", map[string]any{"record_id": rec.ID, "confirmed": true})
	if res.Status != tool.StatusApplied {
		t.Fatalf("apply status = %q (%s)", res.Status, res.Summary)
	}
	if _, err := store.GetRecord(ctx, "u1", rec.ID); err == nil {
		t.Fatal("confirmed delete left the record visible")
	}
}

func TestFinancialSummary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, d := financeFixture(t)
	day := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	for _, r := range []ledger.MoneyRecord{
		{OwnerID: "u1", Kind: ledger.RecordIncome, Description: "a", Amount: 1000, TotalWithTax: 1190, TaxAmount: 190, Date: day},
		{OwnerID: "u1", Kind: ledger.RecordExpense, Description: "b", Amount: 200, TotalWithTax: 238, TaxAmount: 38, Date: day},
	} {
		rec := r
		if err := store.InsertRecord(ctx, &rec); err != nil {
			t.Fatalf("InsertRecord: %v", err)
		}
	}

	res := d.Dispatch(ctx, "get_financial_summary", "u1", map[string]any{
		"from": "2000-01-01", "to": "2100-01-01",
	})
	if res.Status != tool.StatusOK {
		t.Fatalf("status = %q (%s)", res.Status, res.Summary)
	}
	if res.Data["income"] != 1190.0 || res.Data["expenses"] != 238.0 || res.Data["net"] != 952.0 {
		t.Errorf("summary = %v, want income 1190 expenses 238 net 952", res.Data)
	}
}
