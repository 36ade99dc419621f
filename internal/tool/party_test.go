package tool_test

import (
	"context"
	"testing"

	"github.com/ledgerly-ai/ledgerly/internal/ledger"
	"github.com/ledgerly-ai/ledgerly/internal/tool"
)

func TestAddClientDuplicateGuard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, d := financeFixture(t)

	res := d.Dispatch(ctx, "add_client", "u1", map[string]any{
		"name":      "Acme Corp",
		"email":     "billing@acme.com",
		"confirmed": true,
	})
	if res.Status != tool.StatusApplied {
		t.Fatalf("first add = %q (%s)", res.Status, res.Summary)
	}

	// Case-insensitive exact name match is a duplicate, confirmed or not.
	res = d.Dispatch(ctx, "add_client", "u1", map[string]any{
		"name":      "acme corp",
		"confirmed": true,
	})
	if res.Status != tool.StatusExists {
		t.Fatalf("duplicate add = %q (%s), want exists", res.Status, res.Summary)
	}
	clients, _ := store.ListParties(ctx, "u1", ledger.PartyClient)
	if len(clients) != 1 {
		t.Fatalf("got %d clients, want 1", len(clients))
	}

	// A vendor with the same name is a different namespace.
	res = d.Dispatch(ctx, "add_vendor", "u1", map[string]any{
		"name":      "Acme Corp",
		"confirmed": true,
	})
	if res.Status != tool.StatusApplied {
		t.Fatalf("vendor add = %q (%s), want applied", res.Status, res.Summary)
	}
}

func TestUpdateClientByFuzzyName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, d := financeFixture(t)
	acme := ledger.Party{OwnerID: "u1", Kind: ledger.PartyClient, Name: "Acme Corp", Email: "old@acme.com"}
	if err := store.InsertParty(ctx, &acme); err != nil {
		t.Fatalf("InsertParty: %v", err)
	}

	// "Acme" is contained in "Acme Corp": score 90, auto-confirmed.
	res := d.Dispatch(ctx, "update_client", "u1", map[string]any{
		"name":      "Acme",
		"email":     "new@acme.com",
		"confirmed": true,
	})
	if res.Status != tool.StatusApplied {
		t.Fatalf("update = %q (%s)", res.Status, res.Summary)
	}
	after, _ := store.GetParty(ctx, "u1", acme.ID)
	if after.Email != "new@acme.com" {
		t.Errorf("email = %q, want new@acme.com", after.Email)
	}
}

func TestClientOwnerScoping(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, d := financeFixture(t)
	acme := ledger.Party{OwnerID: "u1", Kind: ledger.PartyClient, Name: "Acme Corp"}
	if err := store.InsertParty(ctx, &acme); err != nil {
		t.Fatalf("InsertParty: %v", err)
	}

	// Another user cannot see or mutate u1's client, even with its real id.
	res := d.Dispatch(ctx, "update_client", "u2", map[string]any{
		"client_id": acme.ID,
		"email":     "stolen@evil.example",
		"confirmed": true,
	})
	if res.Status != tool.StatusNotFound {
		t.Fatalf("cross-owner update = %q, want not_found", res.Status)
	}
	res = d.Dispatch(ctx, "delete_client", "u2", map[string]any{
		"client_id": acme.ID,
		"confirmed": true,
	})
	if res.Status != tool.StatusNotFound {
		t.Fatalf("cross-owner delete = %q, want not_found", res.Status)
	}
	if _, err := store.GetParty(ctx, "u1", acme.ID); err != nil {
		t.Fatal("u1's client should be untouched")
	}
}

func TestDeleteVendorPreviewThenConfirm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, d := financeFixture(t)
	v := ledger.Party{OwnerID: "u1", Kind: ledger.PartyVendor, Name: "Hosting Co"}
	if err := store.InsertParty(ctx, &v); err != nil {
		t.Fatalf("InsertParty: %v", err)
	}

	res := d.Dispatch(ctx, "delete_vendor", "u1", map[string]any{"vendor_id": v.ID})
	if res.Status != tool.StatusPreview {
		t.Fatalf("preview = %q", res.Status)
	}
	if _, err := store.GetParty(ctx, "u1", v.ID); err != nil {
		t.Fatal("preview must not delete")
	}

	res = d.Dispatch(ctx, "delete_vendor", "u1", map[string]any{"vendor_id": v.ID, "confirmed": true})
	if res.Status != tool.StatusApplied {
		t.Fatalf("apply = %q (%s)", res.Status, res.Summary)
	}
	if _, err := store.GetParty(ctx, "u1", v.ID); err == nil {
		t.Fatal("vendor should be gone after confirmation")
	}
}

func TestRegistryCatalogue(t *testing.T) {
	t.Parallel()

	reg := tool.NewFinanceRegistry(ledger.NewMemStore(), tool.Defaults{TaxRate: 19, Currency: "EUR"})
	defs := reg.Definitions()
	if len(defs) != reg.Len() {
		t.Fatalf("Definitions returned %d entries for %d tools", len(defs), reg.Len())
	}
	for i := 1; i < len(defs); i++ {
		if defs[i-1].Name >= defs[i].Name {
			t.Fatalf("definitions not sorted: %q before %q", defs[i-1].Name, defs[i].Name)
		}
	}
	for _, want := range []string{
		"add_income", "add_expense", "add_client", "add_vendor", "add_invoice",
		"record_invoice_payment", "create_recurring_schedule", "add_project",
		"add_time_entry", "get_financial_summary",
	} {
		if _, ok := reg.Get(want); !ok {
			t.Errorf("registry is missing %q", want)
		}
	}
}
