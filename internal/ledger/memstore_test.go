package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ledgerly-ai/ledgerly/internal/ledger"
)

func TestMemStoreParties(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("insert assigns id and timestamps", func(t *testing.T) {
		t.Parallel()
		s := ledger.NewMemStore()
		p := ledger.Party{OwnerID: "u1", Kind: ledger.PartyClient, Name: "Acme Corp"}
		if err := s.InsertParty(ctx, &p); err != nil {
			t.Fatalf("InsertParty: %v", err)
		}
		if p.ID == "" {
			t.Fatal("InsertParty: expected generated ID")
		}
		if p.CreatedAt.IsZero() {
			t.Fatal("InsertParty: expected CreatedAt to be set")
		}
	})

	t.Run("get scopes by owner", func(t *testing.T) {
		t.Parallel()
		s := ledger.NewMemStore()
		p := ledger.Party{OwnerID: "u1", Kind: ledger.PartyClient, Name: "Acme Corp"}
		if err := s.InsertParty(ctx, &p); err != nil {
			t.Fatalf("InsertParty: %v", err)
		}
		if _, err := s.GetParty(ctx, "u1", p.ID); err != nil {
			t.Fatalf("GetParty same owner: %v", err)
		}
		_, err := s.GetParty(ctx, "u2", p.ID)
		if !errors.Is(err, ledger.ErrNotFound) {
			t.Fatalf("GetParty foreign owner: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("soft delete hides from get and list", func(t *testing.T) {
		t.Parallel()
		s := ledger.NewMemStore()
		p := ledger.Party{OwnerID: "u1", Kind: ledger.PartyVendor, Name: "Hosting Co"}
		if err := s.InsertParty(ctx, &p); err != nil {
			t.Fatalf("InsertParty: %v", err)
		}
		if err := s.SoftDeleteParty(ctx, "u1", p.ID); err != nil {
			t.Fatalf("SoftDeleteParty: %v", err)
		}
		if _, err := s.GetParty(ctx, "u1", p.ID); !errors.Is(err, ledger.ErrNotFound) {
			t.Fatalf("GetParty after delete: expected ErrNotFound, got %v", err)
		}
		list, err := s.ListParties(ctx, "u1", "")
		if err != nil {
			t.Fatalf("ListParties: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("ListParties after delete: expected 0 parties, got %d", len(list))
		}
		// Deleting twice is NotFound, not an error panic.
		if err := s.SoftDeleteParty(ctx, "u1", p.ID); !errors.Is(err, ledger.ErrNotFound) {
			t.Fatalf("second SoftDeleteParty: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list preserves insertion order and filters by kind", func(t *testing.T) {
		t.Parallel()
		s := ledger.NewMemStore()
		names := []string{"Acme Corp", "Beta LLC", "Acme Hosting"}
		kinds := []ledger.PartyKind{ledger.PartyClient, ledger.PartyClient, ledger.PartyVendor}
		for i, n := range names {
			p := ledger.Party{OwnerID: "u1", Kind: kinds[i], Name: n}
			if err := s.InsertParty(ctx, &p); err != nil {
				t.Fatalf("InsertParty %q: %v", n, err)
			}
		}
		clients, err := s.ListParties(ctx, "u1", ledger.PartyClient)
		if err != nil {
			t.Fatalf("ListParties: %v", err)
		}
		if len(clients) != 2 || clients[0].Name != "Acme Corp" || clients[1].Name != "Beta LLC" {
			t.Fatalf("ListParties(client) = %+v, want insertion order [Acme Corp, Beta LLC]", clients)
		}
	})
}

func TestMemStoreRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := ledger.NewMemStore()

	rec := ledger.MoneyRecord{
		OwnerID: "u1", Kind: ledger.RecordIncome,
		Description: "consulting", Amount: 500, Currency: "EUR",
	}
	if err := s.InsertRecord(ctx, &rec); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}

	t.Run("update replaces the row", func(t *testing.T) {
		got, err := s.GetRecord(ctx, "u1", rec.ID)
		if err != nil {
			t.Fatalf("GetRecord: %v", err)
		}
		got.Amount = 750
		if err := s.UpdateRecord(ctx, got); err != nil {
			t.Fatalf("UpdateRecord: %v", err)
		}
		after, err := s.GetRecord(ctx, "u1", rec.ID)
		if err != nil {
			t.Fatalf("GetRecord after update: %v", err)
		}
		if after.Amount != 750 {
			t.Fatalf("amount = %v, want 750", after.Amount)
		}
	})

	t.Run("filter by kind", func(t *testing.T) {
		exp := ledger.MoneyRecord{OwnerID: "u1", Kind: ledger.RecordExpense, Description: "hosting", Amount: 40}
		if err := s.InsertRecord(ctx, &exp); err != nil {
			t.Fatalf("InsertRecord: %v", err)
		}
		incomes, err := s.ListRecords(ctx, "u1", ledger.RecordFilter{Kind: ledger.RecordIncome})
		if err != nil {
			t.Fatalf("ListRecords: %v", err)
		}
		for _, r := range incomes {
			if r.Kind != ledger.RecordIncome {
				t.Fatalf("ListRecords(income) returned %s record %q", r.Kind, r.ID)
			}
		}
	})
}
