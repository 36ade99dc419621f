package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledgerly-ai/ledgerly/internal/ledger"
)

type invoiceTools struct {
	store    ledger.Store
	defaults Defaults
}

// InvoiceTools returns the invoice tool family: create, update, delete,
// list, and payment recording.
func InvoiceTools(store ledger.Store, defaults Defaults) []Tool {
	it := &invoiceTools{store: store, defaults: defaults}
	return []Tool{
		Func{Def: it.addDef(), Fn: it.add},
		Func{Def: it.updateDef(), Fn: it.update},
		Func{Def: it.deleteDef(), Fn: it.delete},
		Func{Def: it.listDef(), Fn: it.list},
		Func{Def: it.paymentDef(), Fn: it.recordPayment},
	}
}

// paidInvoiceBlocked is the uniform outcome for any attempt to change a paid
// invoice. Returned before the confirmed flag is even consulted.
func paidInvoiceBlocked(number string) Result {
	return Blockedf("invoice %s is paid and cannot be changed; create a correcting invoice instead", number)
}

// resolveInvoice finds the target by id or exact invoice number.
func (it *invoiceTools) resolveInvoice(ctx context.Context, inv Invocation) (*ledger.Invoice, Result, bool) {
	if id, ok := strParam(inv.Params, "invoice_id"); ok {
		v, err := it.store.GetInvoice(ctx, inv.OwnerID, id)
		if err != nil {
			return nil, NotFoundf("no invoice with id %s", id), false
		}
		return &v, Result{}, true
	}
	number, ok := strParam(inv.Params, "number")
	if !ok {
		return nil, Invalidf("provide either invoice_id or number"), false
	}
	all, err := it.store.ListInvoices(ctx, inv.OwnerID)
	if err != nil {
		slog.Error("invoice list failed", "error", err)
		return nil, storageError("look up", "invoice"), false
	}
	for i := range all {
		if strings.EqualFold(all[i].Number, number) {
			return &all[i], Result{}, true
		}
	}
	return nil, NotFoundf("no invoice numbered %s", number), false
}

// nextInvoiceNumber generates the successor of the highest INV-prefixed
// number in use. Counting entries instead would hand out a duplicate once a
// delete shrinks the list.
func nextInvoiceNumber(all []ledger.Invoice) string {
	highest := 0
	for i := range all {
		var n int
		if _, err := fmt.Sscanf(all[i].Number, "INV-%d", &n); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("INV-%04d", highest+1)
}

// parseItems converts the raw items array into line items, best-effort:
// malformed entries become warnings instead of failing the whole invoice.
func parseItems(raw []any) (items []ledger.LineItem, warnings []string) {
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("line item %d was malformed and was skipped", i+1))
			continue
		}
		desc, ok := strParam(m, "description")
		if !ok {
			warnings = append(warnings, fmt.Sprintf("line item %d has no description and was skipped", i+1))
			continue
		}
		qty, ok := numParam(m, "quantity")
		if !ok || qty <= 0 {
			qty = 1
		}
		unit, ok := numParam(m, "unit_price")
		if !ok || unit < 0 {
			warnings = append(warnings, fmt.Sprintf("line item %q has no unit price and was skipped", desc))
			continue
		}
		items = append(items, ledger.LineItem{
			Description: desc,
			Quantity:    qty,
			UnitPrice:   unit,
			Amount:      ledger.LineAmount(qty, unit),
		})
	}
	return items, warnings
}

// ── add ─────────────────────────────────────────────────────────────────────

func (it *invoiceTools) addDef() Definition {
	return Definition{
		Name:        "add_invoice",
		Description: "Create an invoice for a client with line items. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"client_id":   strProp("exact client id when known"),
			"client_name": strProp("client name, email, or phone to resolve"),
			"number":      strProp("invoice number, generated when omitted"),
			"items": map[string]any{
				"type":        "array",
				"description": "line items",
				"items": objSchema(map[string]any{
					"description": strProp("what the line bills for"),
					"quantity":    numProp("quantity, defaults to 1"),
					"unit_price":  numProp("price per unit"),
				}, "description", "unit_price"),
			},
			"tax_rate":   numProp("tax percentage, defaults to the account rate"),
			"issue_date": strProp("issue date YYYY-MM-DD, defaults to today"),
			"due_date":   strProp("due date YYYY-MM-DD, defaults to 14 days after issue"),
		})),
	}
}

func (it *invoiceTools) add(ctx context.Context, inv Invocation) Result {
	var client *ledger.Party
	if id, ok := strParam(inv.Params, "client_id"); ok {
		p, err := it.store.GetParty(ctx, inv.OwnerID, id)
		if err != nil {
			return NotFoundf("no client with id %s", id)
		}
		client = &p
	} else {
		term, ok := strParam(inv.Params, "client_name")
		if !ok {
			return Invalidf("an invoice needs a client_id or client_name")
		}
		pool, err := it.store.ListParties(ctx, inv.OwnerID, ledger.PartyClient)
		if err != nil {
			slog.Error("party list failed", "error", err)
			return storageError("create", "invoice")
		}
		var fail Result
		client, fail, ok = pickResolved(ctx, inv.Metrics, "client", term, pool, partyCandidate)
		if !ok {
			return fail
		}
	}

	items, warnings := parseItems(listParam(inv.Params, "items"))

	number, hasNumber := strParam(inv.Params, "number")
	if !hasNumber {
		all, err := it.store.ListInvoices(ctx, inv.OwnerID)
		if err != nil {
			slog.Error("invoice list failed", "error", err)
			return storageError("create", "invoice")
		}
		number = nextInvoiceNumber(all)
	}

	issue, ok := dateParam(inv.Params, "issue_date")
	if !ok {
		issue = time.Now().UTC().Truncate(24 * time.Hour)
	}
	due, ok := dateParam(inv.Params, "due_date")
	if !ok {
		due = issue.AddDate(0, 0, 14)
	}
	taxRate, ok := numParam(inv.Params, "tax_rate")
	if !ok {
		taxRate = it.defaults.TaxRate
	}

	draft := ledger.Invoice{
		OwnerID: inv.OwnerID, Number: number, ClientID: client.ID,
		Items: items, TaxRate: taxRate,
		Status: ledger.InvoiceDraft, IssueDate: issue, DueDate: due,
	}
	ledger.InvoiceTotals(&draft)

	var cs changeSet
	cs.set("number", nil, number)
	cs.set("client", nil, client.Name)
	cs.set("subtotal", nil, draft.Subtotal)
	cs.set("tax_amount", nil, draft.TaxAmount)
	cs.set("total", nil, draft.Total)
	cs.set("due_date", nil, due.Format("2006-01-02"))

	if !confirmed(inv.Params) {
		res := cs.preview(fmt.Sprintf("will create invoice %s for %s totalling %s — confirm to apply",
			number, client.Name, ledger.FormatMoney(draft.Total, it.defaults.Currency)))
		res.Warnings = warnings
		return res
	}

	if err := it.store.InsertInvoice(ctx, &draft); err != nil {
		slog.Error("invoice insert failed", "error", err)
		return storageError("create", "invoice")
	}
	res := cs.applied(fmt.Sprintf("created invoice %s for %s totalling %s",
		number, client.Name, ledger.FormatMoney(draft.Total, it.defaults.Currency)))
	res.Data = map[string]any{"id": draft.ID, "number": draft.Number, "total": draft.Total}
	res.Warnings = warnings
	return res
}

// ── update ──────────────────────────────────────────────────────────────────

func (it *invoiceTools) updateDef() Definition {
	return Definition{
		Name:        "update_invoice",
		Description: "Change an invoice's status, dates, or tax rate. Paid invoices are immutable. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"invoice_id": strProp("exact id when known"),
			"number":     strProp("invoice number to look up"),
			"status":     enumProp("replacement status", "draft", "sent", "partial", "overdue", "cancelled"),
			"issue_date": strProp("replacement issue date YYYY-MM-DD"),
			"due_date":   strProp("replacement due date YYYY-MM-DD"),
			"tax_rate":   numProp("replacement tax percentage; totals are recomputed"),
		})),
	}
}

func (it *invoiceTools) update(ctx context.Context, inv Invocation) Result {
	target, fail, ok := it.resolveInvoice(ctx, inv)
	if !ok {
		return fail
	}
	if target.Status == ledger.InvoicePaid {
		return paidInvoiceBlocked(target.Number)
	}

	var cs changeSet
	if v, ok := strParam(inv.Params, "status"); ok {
		s := ledger.InvoiceStatus(v)
		if !s.IsValid() {
			return Invalidf("unknown invoice status %q", v)
		}
		if s == ledger.InvoicePaid {
			return Blockedf("use record_invoice_payment to settle invoice %s; status cannot be set to paid directly", target.Number)
		}
		cs.set("status", string(target.Status), v)
	}
	if v, ok := dateParam(inv.Params, "issue_date"); ok {
		cs.set("issue_date", target.IssueDate.Format("2006-01-02"), v.Format("2006-01-02"))
	}
	if v, ok := dateParam(inv.Params, "due_date"); ok {
		cs.set("due_date", target.DueDate.Format("2006-01-02"), v.Format("2006-01-02"))
	}
	newRate := target.TaxRate
	if v, ok := numParam(inv.Params, "tax_rate"); ok {
		cs.set("tax_rate", target.TaxRate, v)
		newRate = v
	}
	if newRate != target.TaxRate {
		recalc := *target
		recalc.TaxRate = newRate
		ledger.InvoiceTotals(&recalc)
		cs.set("tax_amount", target.TaxAmount, recalc.TaxAmount)
		cs.set("total", target.Total, recalc.Total)
		cs.set("balance_due", target.BalanceDue, recalc.BalanceDue)
	}

	if cs.empty() {
		return noChanges("invoice")
	}
	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will update invoice %s — confirm to apply", target.Number))
	}

	for _, ch := range cs.changes {
		switch ch.Field {
		case "status":
			target.Status = ledger.InvoiceStatus(ch.New.(string))
		case "issue_date":
			d, _ := time.Parse("2006-01-02", ch.New.(string))
			target.IssueDate = d
		case "due_date":
			d, _ := time.Parse("2006-01-02", ch.New.(string))
			target.DueDate = d
		case "tax_rate":
			target.TaxRate = ch.New.(float64)
		}
	}
	// Totals always derive from items and the persisted tax rate.
	ledger.InvoiceTotals(target)

	if err := it.store.UpdateInvoice(ctx, *target); err != nil {
		slog.Error("invoice update failed", "id", target.ID, "error", err)
		return storageError("update", "invoice")
	}
	return cs.applied(fmt.Sprintf("updated invoice %s (%s)", target.Number, strings.Join(cs.keys(), ", ")))
}

// ── delete ──────────────────────────────────────────────────────────────────

func (it *invoiceTools) deleteDef() Definition {
	return Definition{
		Name:        "delete_invoice",
		Description: "Delete an invoice (recoverable). Paid invoices cannot be deleted. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"invoice_id": strProp("exact id when known"),
			"number":     strProp("invoice number to look up"),
		})),
	}
}

func (it *invoiceTools) delete(ctx context.Context, inv Invocation) Result {
	target, fail, ok := it.resolveInvoice(ctx, inv)
	if !ok {
		return fail
	}
	if target.Status == ledger.InvoicePaid {
		return paidInvoiceBlocked(target.Number)
	}
	if !confirmed(inv.Params) {
		return Result{
			Status:  StatusPreview,
			Summary: fmt.Sprintf("will delete invoice %s — confirm to apply", target.Number),
			Data:    map[string]any{"id": target.ID, "number": target.Number},
		}
	}
	if err := it.store.SoftDeleteInvoice(ctx, inv.OwnerID, target.ID); err != nil {
		slog.Error("invoice delete failed", "id", target.ID, "error", err)
		return storageError("delete", "invoice")
	}
	return Result{Status: StatusApplied, Summary: fmt.Sprintf("deleted invoice %s", target.Number)}
}

// ── list ────────────────────────────────────────────────────────────────────

func (it *invoiceTools) listDef() Definition {
	return Definition{
		Name:        "list_invoices",
		Description: "List invoices, optionally by status. Read-only.",
		Parameters: objSchema(map[string]any{
			"status":  enumProp("restrict to one status", "draft", "sent", "partial", "paid", "overdue", "cancelled"),
			"user_id": strProp("caller identity; always overwritten by the server"),
		}),
	}
}

func (it *invoiceTools) list(ctx context.Context, inv Invocation) Result {
	all, err := it.store.ListInvoices(ctx, inv.OwnerID)
	if err != nil {
		slog.Error("invoice list failed", "error", err)
		return storageError("list", "invoices")
	}
	statusFilter, _ := strParam(inv.Params, "status")

	var outstanding float64
	rows := make([]map[string]any, 0, len(all))
	for _, v := range all {
		if statusFilter != "" && string(v.Status) != statusFilter {
			continue
		}
		outstanding += v.BalanceDue
		rows = append(rows, map[string]any{
			"id": v.ID, "number": v.Number, "status": string(v.Status),
			"total": v.Total, "balance_due": v.BalanceDue,
			"due_date": v.DueDate.Format("2006-01-02"),
		})
	}
	return Result{
		Status:  StatusOK,
		Summary: fmt.Sprintf("%d invoices, %s outstanding", len(rows), ledger.FormatMoney(outstanding, it.defaults.Currency)),
		Data:    map[string]any{"invoices": rows, "balance_due": outstanding},
	}
}

// ── payment ─────────────────────────────────────────────────────────────────

func (it *invoiceTools) paymentDef() Definition {
	return Definition{
		Name:        "record_invoice_payment",
		Description: "Record a payment against an invoice; the status flips to paid when the balance reaches zero. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"invoice_id": strProp("exact id when known"),
			"number":     strProp("invoice number to look up"),
			"amount":     numProp("payment amount, required"),
		}), "amount"),
	}
}

func (it *invoiceTools) recordPayment(ctx context.Context, inv Invocation) Result {
	target, fail, ok := it.resolveInvoice(ctx, inv)
	if !ok {
		return fail
	}
	if target.Status == ledger.InvoicePaid {
		return Blockedf("invoice %s is already fully paid", target.Number)
	}
	if target.Status == ledger.InvoiceCancelled {
		return Blockedf("invoice %s is cancelled; reactivate it before recording payments", target.Number)
	}
	amount, ok := numParam(inv.Params, "amount")
	if !ok || amount <= 0 {
		return Invalidf("payment amount must be a positive number")
	}
	if amount > target.BalanceDue {
		return Invalidf("payment of %s exceeds the open balance of %s",
			ledger.FormatMoney(amount, it.defaults.Currency),
			ledger.FormatMoney(target.BalanceDue, it.defaults.Currency))
	}

	newPaid := ledger.RoundCents(target.AmountPaid + amount)
	newBalance := ledger.RoundCents(target.Total - newPaid)
	newStatus := ledger.InvoicePartial
	if newBalance <= 0 {
		newStatus = ledger.InvoicePaid
	}

	var cs changeSet
	cs.set("amount_paid", target.AmountPaid, newPaid)
	cs.set("balance_due", target.BalanceDue, newBalance)
	cs.set("status", string(target.Status), string(newStatus))

	if !confirmed(inv.Params) {
		summary := fmt.Sprintf("will record a %s payment on invoice %s, leaving %s due — confirm to apply",
			ledger.FormatMoney(amount, it.defaults.Currency), target.Number,
			ledger.FormatMoney(newBalance, it.defaults.Currency))
		if newStatus == ledger.InvoicePaid {
			summary = fmt.Sprintf("will record a %s payment and mark invoice %s paid — confirm to apply",
				ledger.FormatMoney(amount, it.defaults.Currency), target.Number)
		}
		return cs.preview(summary)
	}

	target.AmountPaid = newPaid
	target.BalanceDue = newBalance
	target.Status = newStatus
	if err := it.store.UpdateInvoice(ctx, *target); err != nil {
		slog.Error("invoice payment failed", "id", target.ID, "error", err)
		return storageError("update", "invoice")
	}

	summary := fmt.Sprintf("recorded a %s payment on invoice %s; %s remains due",
		ledger.FormatMoney(amount, it.defaults.Currency), target.Number,
		ledger.FormatMoney(newBalance, it.defaults.Currency))
	if newStatus == ledger.InvoicePaid {
		summary = fmt.Sprintf("invoice %s is now fully paid", target.Number)
	}
	return cs.applied(summary)
}
