package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledgerly-ai/ledgerly/internal/ledger"
)

// recordTools builds the income or expense tool family. The two differ only
// in the RecordKind written to storage, the counterparty kind they resolve
// (income → client, expense → vendor), and naming.
type recordTools struct {
	store    ledger.Store
	kind     ledger.RecordKind
	defaults Defaults
}

// Defaults carries per-deployment fallbacks applied when the model omits a
// parameter.
type Defaults struct {
	TaxRate  float64
	Currency string
}

// RecordTools returns the add/update/delete/list tools for one record kind.
func RecordTools(store ledger.Store, kind ledger.RecordKind, defaults Defaults) []Tool {
	rt := &recordTools{store: store, kind: kind, defaults: defaults}
	return []Tool{
		Func{Def: rt.addDef(), Fn: rt.add},
		Func{Def: rt.updateDef(), Fn: rt.update},
		Func{Def: rt.deleteDef(), Fn: rt.delete},
		Func{Def: rt.listDef(), Fn: rt.list},
	}
}

func (rt *recordTools) label() string {
	if rt.kind == ledger.RecordIncome {
		return "income"
	}
	return "expense"
}

// partyKind is the counterparty side for this record kind.
func (rt *recordTools) partyKind() ledger.PartyKind {
	if rt.kind == ledger.RecordIncome {
		return ledger.PartyClient
	}
	return ledger.PartyVendor
}

func (rt *recordTools) categoryType() ledger.CategoryType {
	if rt.kind == ledger.RecordIncome {
		return ledger.CategoryIncome
	}
	return ledger.CategoryExpense
}

// resolveCounterparty resolves the optional client/vendor reference. A
// missing reference is fine (ok with nil party); a reference that cannot be
// resolved unambiguously aborts with the resolution result.
func (rt *recordTools) resolveCounterparty(ctx context.Context, inv Invocation) (*ledger.Party, Result, bool) {
	pk := rt.partyKind()
	if id, ok := strParam(inv.Params, string(pk)+"_id"); ok {
		p, err := rt.store.GetParty(ctx, inv.OwnerID, id)
		if err != nil {
			return nil, NotFoundf("no %s with id %s", pk, id), false
		}
		return &p, Result{}, true
	}
	term, ok := strParam(inv.Params, string(pk)+"_name")
	if !ok {
		return nil, Result{}, true // no counterparty requested
	}
	pool, err := rt.store.ListParties(ctx, inv.OwnerID, pk)
	if err != nil {
		slog.Error("party list failed", "kind", pk, "error", err)
		return nil, storageError("look up", string(pk)), false
	}
	return pickResolved(ctx, inv.Metrics, string(pk), term, pool, partyCandidate)
}

// resolveCategory resolves the optional category reference, nil when absent.
func (rt *recordTools) resolveCategory(ctx context.Context, inv Invocation) (*ledger.Category, Result, bool) {
	if _, hasID := strParam(inv.Params, "category_id"); !hasID {
		if _, hasName := strParam(inv.Params, "category_name"); !hasName {
			return nil, Result{}, true
		}
	}
	return resolveCategoryRef(ctx, rt.store, inv, rt.categoryType())
}

// ── add ─────────────────────────────────────────────────────────────────────

func (rt *recordTools) addDef() Definition {
	label, pk := rt.label(), string(rt.partyKind())
	return Definition{
		Name:        "add_" + label,
		Description: fmt.Sprintf("Record a new %s entry. Preview first, then confirm.", label),
		Parameters: objSchema(mutatingProps(map[string]any{
			"amount":        numProp("net amount before tax, required"),
			"description":   strProp("what the money was for, required"),
			"date":          strProp("entry date YYYY-MM-DD, defaults to today"),
			"currency":      strProp("ISO currency code, defaults to the account currency"),
			"tax_rate":      numProp("tax percentage, defaults to the account rate"),
			pk + "_id":      strProp("exact " + pk + " id when known"),
			pk + "_name":    strProp(pk + " name, email, or phone to resolve"),
			"category_id":   strProp("exact category id when known"),
			"category_name": strProp("category name to resolve"),
			"project_id":    strProp("project to attribute this entry to"),
		}), "amount", "description"),
	}
}

func (rt *recordTools) add(ctx context.Context, inv Invocation) Result {
	label := rt.label()

	amount, ok := numParam(inv.Params, "amount")
	if !ok || amount <= 0 {
		return Invalidf("%s amount must be a positive number", label)
	}
	desc, ok := strParam(inv.Params, "description")
	if !ok {
		return Invalidf("a %s entry needs a description", label)
	}

	party, fail, ok := rt.resolveCounterparty(ctx, inv)
	if !ok {
		return fail
	}
	category, fail, ok := rt.resolveCategory(ctx, inv)
	if !ok {
		return fail
	}

	date, hasDate := dateParam(inv.Params, "date")
	if !hasDate {
		date = time.Now().UTC().Truncate(24 * time.Hour)
	}
	currency, ok := strParam(inv.Params, "currency")
	if !ok {
		currency = rt.defaults.Currency
	}
	taxRate, ok := numParam(inv.Params, "tax_rate")
	if !ok {
		taxRate = rt.defaults.TaxRate
	}
	taxAmount, totalWithTax := ledger.ComputeTax(amount, taxRate)

	var cs changeSet
	cs.set("amount", nil, amount)
	cs.set("description", nil, desc)
	cs.set("date", nil, date.Format("2006-01-02"))
	cs.set("tax_rate", nil, taxRate)
	cs.set("tax_amount", nil, taxAmount)
	cs.set("total_with_tax", nil, totalWithTax)

	data := map[string]any{
		"tax_amount":     taxAmount,
		"total_with_tax": totalWithTax,
		"currency":       currency,
	}
	pk := string(rt.partyKind())
	if party != nil {
		data[pk] = map[string]any{"id": party.ID, "name": party.Name, "matched": true}
	}
	if category != nil {
		data["category"] = map[string]any{"id": category.ID, "name": category.Name, "matched": true}
	}

	if !confirmed(inv.Params) {
		res := cs.preview(fmt.Sprintf("will record %s of %s for %q — confirm to apply",
			label, ledger.FormatMoney(totalWithTax, currency), desc))
		res.Data = data
		return res
	}

	rec := ledger.MoneyRecord{
		OwnerID: inv.OwnerID, Kind: rt.kind,
		Description: desc, Amount: amount, Currency: currency, Date: date,
		TaxRate: taxRate, TaxAmount: taxAmount, TotalWithTax: totalWithTax,
	}
	if party != nil {
		rec.PartyID = party.ID
	}
	if category != nil {
		rec.CategoryID = category.ID
	}
	if pid, ok := strParam(inv.Params, "project_id"); ok {
		if _, err := rt.store.GetProject(ctx, inv.OwnerID, pid); err != nil {
			return NotFoundf("no project with id %s", pid)
		}
		rec.ProjectID = pid
	}
	if err := rt.store.InsertRecord(ctx, &rec); err != nil {
		slog.Error("record insert failed", "kind", rt.kind, "error", err)
		return storageError("record", label)
	}

	data["id"] = rec.ID
	res := cs.applied(fmt.Sprintf("recorded %s of %s for %q on %s",
		label, ledger.FormatMoney(totalWithTax, currency), desc, ledger.FormatDate(date)))
	res.Data = data
	return res
}

// ── update ──────────────────────────────────────────────────────────────────

func (rt *recordTools) updateDef() Definition {
	label := rt.label()
	return Definition{
		Name:        "update_" + label,
		Description: fmt.Sprintf("Change an existing %s entry. Preview first, then confirm.", label),
		Parameters: objSchema(mutatingProps(map[string]any{
			"record_id":   strProp("id of the entry to change, required"),
			"amount":      numProp("replacement net amount"),
			"description": strProp("replacement description"),
			"date":        strProp("replacement date YYYY-MM-DD"),
			"tax_rate":    numProp("replacement tax percentage"),
		}), "record_id"),
	}
}

func (rt *recordTools) update(ctx context.Context, inv Invocation) Result {
	label := rt.label()
	id, ok := strParam(inv.Params, "record_id")
	if !ok {
		return Invalidf("record_id is required")
	}
	rec, err := rt.store.GetRecord(ctx, inv.OwnerID, id)
	if err != nil {
		return NotFoundf("no %s entry with id %s", label, id)
	}
	if rec.Kind != rt.kind {
		return NotFoundf("no %s entry with id %s", label, id)
	}

	newAmount, newRate := rec.Amount, rec.TaxRate
	var cs changeSet
	if v, ok := numParam(inv.Params, "amount"); ok {
		if v <= 0 {
			return Invalidf("%s amount must be a positive number", label)
		}
		cs.set("amount", rec.Amount, v)
		newAmount = v
	}
	if v, ok := strParam(inv.Params, "description"); ok {
		cs.set("description", rec.Description, v)
	}
	if v, ok := dateParam(inv.Params, "date"); ok {
		cs.set("date", rec.Date.Format("2006-01-02"), v.Format("2006-01-02"))
	}
	if v, ok := numParam(inv.Params, "tax_rate"); ok {
		cs.set("tax_rate", rec.TaxRate, v)
		newRate = v
	}

	// Derived money fields follow the diff, never the request.
	if newAmount != rec.Amount || newRate != rec.TaxRate {
		taxAmount, totalWithTax := ledger.ComputeTax(newAmount, newRate)
		cs.set("tax_amount", rec.TaxAmount, taxAmount)
		cs.set("total_with_tax", rec.TotalWithTax, totalWithTax)
	}

	if cs.empty() {
		return noChanges(label + " entry")
	}
	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will update the %s entry %q — confirm to apply", label, rec.Description))
	}

	for _, ch := range cs.changes {
		switch ch.Field {
		case "amount":
			rec.Amount = ch.New.(float64)
		case "description":
			rec.Description = ch.New.(string)
		case "date":
			d, _ := time.Parse("2006-01-02", ch.New.(string))
			rec.Date = d
		case "tax_rate":
			rec.TaxRate = ch.New.(float64)
		}
	}
	// Recompute from the authoritative values being persisted.
	rec.TaxAmount, rec.TotalWithTax = ledger.ComputeTax(rec.Amount, rec.TaxRate)

	if err := rt.store.UpdateRecord(ctx, rec); err != nil {
		slog.Error("record update failed", "id", rec.ID, "error", err)
		return storageError("update", label+" entry")
	}
	return cs.applied(fmt.Sprintf("updated the %s entry (%s)", label, strings.Join(cs.keys(), ", ")))
}

// ── delete ──────────────────────────────────────────────────────────────────

func (rt *recordTools) deleteDef() Definition {
	label := rt.label()
	return Definition{
		Name:        "delete_" + label,
		Description: fmt.Sprintf("Delete an %s entry (recoverable). Preview first, then confirm.", label),
		Parameters: objSchema(mutatingProps(map[string]any{
			"record_id": strProp("id of the entry to delete, required"),
		}), "record_id"),
	}
}

func (rt *recordTools) delete(ctx context.Context, inv Invocation) Result {
	label := rt.label()
	id, ok := strParam(inv.Params, "record_id")
	if !ok {
		return Invalidf("record_id is required")
	}
	rec, err := rt.store.GetRecord(ctx, inv.OwnerID, id)
	if err != nil || rec.Kind != rt.kind {
		return NotFoundf("no %s entry with id %s", label, id)
	}
	if !confirmed(inv.Params) {
		return Result{
			Status: StatusPreview,
			Summary: fmt.Sprintf("will delete the %s of %s for %q — confirm to apply",
				label, ledger.FormatMoney(rec.TotalWithTax, rec.Currency), rec.Description),
			Data: map[string]any{"id": rec.ID},
		}
	}
	if err := rt.store.SoftDeleteRecord(ctx, inv.OwnerID, rec.ID); err != nil {
		slog.Error("record delete failed", "id", rec.ID, "error", err)
		return storageError("delete", label+" entry")
	}
	return Result{Status: StatusApplied, Summary: fmt.Sprintf("deleted the %s entry %q", label, rec.Description)}
}

// ── list ────────────────────────────────────────────────────────────────────

func (rt *recordTools) listDef() Definition {
	label, pk := rt.label(), string(rt.partyKind())
	name := "list_" + label
	if rt.kind == ledger.RecordExpense {
		name = "list_expenses"
	}
	return Definition{
		Name:        name,
		Description: fmt.Sprintf("List %s entries in a date range. Read-only.", label),
		Parameters: objSchema(map[string]any{
			"from":        strProp("start date YYYY-MM-DD inclusive"),
			"to":          strProp("end date YYYY-MM-DD inclusive"),
			pk + "_id":    strProp("restrict to one " + pk),
			"category_id": strProp("restrict to one category"),
			"project_id":  strProp("restrict to one project"),
			"user_id":     strProp("caller identity; always overwritten by the server"),
		}),
	}
}

func (rt *recordTools) list(ctx context.Context, inv Invocation) Result {
	label := rt.label()
	filter := ledger.RecordFilter{Kind: rt.kind}
	if v, ok := dateParam(inv.Params, "from"); ok {
		filter.From = v
	}
	if v, ok := dateParam(inv.Params, "to"); ok {
		filter.To = v
	}
	filter.PartyID, _ = strParam(inv.Params, string(rt.partyKind())+"_id")
	filter.CategoryID, _ = strParam(inv.Params, "category_id")
	filter.ProjectID, _ = strParam(inv.Params, "project_id")

	recs, err := rt.store.ListRecords(ctx, inv.OwnerID, filter)
	if err != nil {
		slog.Error("record list failed", "kind", rt.kind, "error", err)
		return storageError("list", label+" entries")
	}

	var total float64
	rows := make([]map[string]any, len(recs))
	for i, r := range recs {
		total += r.TotalWithTax
		rows[i] = map[string]any{
			"id": r.ID, "description": r.Description, "amount": r.Amount,
			"total_with_tax": r.TotalWithTax, "date": r.Date.Format("2006-01-02"),
		}
	}
	return Result{
		Status:  StatusOK,
		Summary: fmt.Sprintf("%d %s entries totalling %s", len(rows), label, ledger.FormatMoney(total, rt.defaults.Currency)),
		Data:    map[string]any{"entries": rows, "total_with_tax": total},
	}
}
