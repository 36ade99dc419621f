package resolve_test

import (
	"testing"

	"github.com/ledgerly-ai/ledgerly/internal/match"
	"github.com/ledgerly-ai/ledgerly/internal/resolve"
)

func pool() []resolve.Candidate {
	return []resolve.Candidate{
		{ID: "p1", Name: "Acme Corp", Email: "billing@acme.com", Phone: "+49 170 1234567"},
		{ID: "p2", Name: "Acme Hosting", Email: "ops@acmehosting.io"},
		{ID: "p3", Name: "Beta Logistics", Email: "info@beta.example", Phone: "555 000 1111"},
		{ID: "p4", Name: "John Doe", Secondary: "Doe Consulting"},
	}
}

func TestResolveEmail(t *testing.T) {
	t.Parallel()

	t.Run("exact email scores 100", func(t *testing.T) {
		t.Parallel()
		res := resolve.Resolve("billing@acme.com", pool(), 0)
		if res.Kind != match.KindEmail {
			t.Fatalf("Kind = %q, want email", res.Kind)
		}
		if len(res.Suggestions) != 1 || res.Suggestions[0].ID != "p1" || res.Suggestions[0].Score != 100 {
			t.Fatalf("Suggestions = %+v, want exactly p1 at 100", res.Suggestions)
		}
		if !res.AutoConfirmed() {
			t.Fatal("exact email match should auto-confirm")
		}
	})

	t.Run("substring email scores 90", func(t *testing.T) {
		t.Parallel()
		res := resolve.Resolve("@acmehosting.io", pool(), 0)
		if len(res.Suggestions) != 1 || res.Suggestions[0].ID != "p2" || res.Suggestions[0].Score != 90 {
			t.Fatalf("Suggestions = %+v, want p2 at 90", res.Suggestions)
		}
	})

	t.Run("email search ignores names", func(t *testing.T) {
		t.Parallel()
		// "acme.corp@x.dev" resembles the name "Acme Corp" but matches no
		// email field, so nothing may surface.
		res := resolve.Resolve("acme.corp@x.dev", pool(), 0)
		if len(res.Suggestions) != 0 {
			t.Fatalf("Suggestions = %+v, want none", res.Suggestions)
		}
	})
}

func TestResolvePhone(t *testing.T) {
	t.Parallel()

	t.Run("formatting differences still match exactly", func(t *testing.T) {
		t.Parallel()
		res := resolve.Resolve("491701234567", pool(), 0)
		if res.Kind != match.KindPhone {
			t.Fatalf("Kind = %q, want phone", res.Kind)
		}
		if len(res.Suggestions) != 1 || res.Suggestions[0].ID != "p1" || res.Suggestions[0].Score != 100 {
			t.Fatalf("Suggestions = %+v, want p1 at 100", res.Suggestions)
		}
	})

	t.Run("partial number is a substring hit", func(t *testing.T) {
		t.Parallel()
		res := resolve.Resolve("1701234", pool(), 0)
		if len(res.Suggestions) != 1 || res.Suggestions[0].ID != "p1" || res.Suggestions[0].Score != 90 {
			t.Fatalf("Suggestions = %+v, want p1 at 90", res.Suggestions)
		}
	})
}

func TestResolveName(t *testing.T) {
	t.Parallel()

	t.Run("typo ranks the intended candidate first", func(t *testing.T) {
		t.Parallel()
		res := resolve.Resolve("Acme Crop", pool(), 0)
		if res.Kind != match.KindName {
			t.Fatalf("Kind = %q, want name", res.Kind)
		}
		if len(res.Suggestions) == 0 || res.Suggestions[0].ID != "p1" {
			t.Fatalf("Suggestions = %+v, want p1 first", res.Suggestions)
		}
	})

	t.Run("containment surfaces multiple candidates ranked", func(t *testing.T) {
		t.Parallel()
		res := resolve.Resolve("Acme", pool(), 0)
		if len(res.Suggestions) < 2 {
			t.Fatalf("Suggestions = %+v, want both Acme entities", res.Suggestions)
		}
		for i := 1; i < len(res.Suggestions); i++ {
			if res.Suggestions[i].Score > res.Suggestions[i-1].Score {
				t.Fatalf("suggestions not sorted: %+v", res.Suggestions)
			}
		}
	})

	t.Run("secondary field counts", func(t *testing.T) {
		t.Parallel()
		res := resolve.Resolve("Doe Consulting", pool(), 0)
		if len(res.Suggestions) == 0 || res.Suggestions[0].ID != "p4" || res.Suggestions[0].Score != 100 {
			t.Fatalf("Suggestions = %+v, want p4 at 100 via secondary field", res.Suggestions)
		}
	})

	t.Run("sound-alike strengthens a weak lexical match", func(t *testing.T) {
		t.Parallel()
		// "ak me corporation" is lexically far from every pool name, but the
		// sound-alike pass recognises it as Acme Corp.
		res := resolve.Resolve("ak me corporation", pool(), 0)
		if len(res.Suggestions) == 0 || res.Suggestions[0].ID != "p1" {
			t.Fatalf("Suggestions = %+v, want p1 first", res.Suggestions)
		}
		if res.Suggestions[0].Score < 80 {
			t.Errorf("score = %d, want the sound-alike pass to lift it above 80", res.Suggestions[0].Score)
		}
		if res.AutoConfirmed() {
			t.Fatal("sound-alike evidence alone must not auto-confirm")
		}
	})

	t.Run("sound-alike never overrides an exact lexical winner", func(t *testing.T) {
		t.Parallel()
		res := resolve.Resolve("Acme Corp", pool(), 0)
		if !res.AutoConfirmed() || res.Best().ID != "p1" {
			t.Fatalf("Resolution = %+v, want p1 auto-confirmed at 100", res)
		}
		if res.Best().Score != 100 {
			t.Errorf("score = %d, want the exact match untouched at 100", res.Best().Score)
		}
	})

	t.Run("ties keep pool order", func(t *testing.T) {
		t.Parallel()
		twins := []resolve.Candidate{
			{ID: "a", Name: "Acme"},
			{ID: "b", Name: "Acme"},
		}
		res := resolve.Resolve("Acme", twins, 0)
		if len(res.Suggestions) != 2 || res.Suggestions[0].ID != "a" || res.Suggestions[1].ID != "b" {
			t.Fatalf("Suggestions = %+v, want pool order a then b", res.Suggestions)
		}
	})
}

func TestResolveLimitsAndEmptiness(t *testing.T) {
	t.Parallel()

	t.Run("empty pool yields empty suggestions without error", func(t *testing.T) {
		t.Parallel()
		res := resolve.Resolve("anyone", nil, 0)
		if len(res.Suggestions) != 0 {
			t.Fatalf("Suggestions = %+v, want none", res.Suggestions)
		}
		if res.AutoConfirmed() || res.Ambiguous() {
			t.Fatal("empty resolution must be neither auto-confirmed nor ambiguous")
		}
	})

	t.Run("limit caps the list", func(t *testing.T) {
		t.Parallel()
		big := make([]resolve.Candidate, 10)
		for i := range big {
			big[i] = resolve.Candidate{ID: string(rune('a' + i)), Name: "Acme"}
		}
		res := resolve.Resolve("Acme", big, 0)
		if len(res.Suggestions) != resolve.DefaultLimit {
			t.Fatalf("len = %d, want default limit %d", len(res.Suggestions), resolve.DefaultLimit)
		}
		res = resolve.Resolve("Acme", big, 3)
		if len(res.Suggestions) != 3 {
			t.Fatalf("len = %d, want 3", len(res.Suggestions))
		}
	})

	t.Run("below-threshold candidates are dropped", func(t *testing.T) {
		t.Parallel()
		res := resolve.Resolve("Zzzzqjxw", pool(), 0)
		for _, s := range res.Suggestions {
			if s.Score < resolve.MinScore {
				t.Fatalf("suggestion %+v below minimum score", s)
			}
		}
	})
}
