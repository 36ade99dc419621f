package tool

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerly-ai/ledgerly/internal/ledger"
)

type summaryTool struct {
	store    ledger.Store
	defaults Defaults
}

// SummaryTool returns the read-only financial overview tool.
func SummaryTool(store ledger.Store, defaults Defaults) Tool {
	st := &summaryTool{store: store, defaults: defaults}
	return Func{Def: st.def(), Fn: st.run}
}

func (st *summaryTool) def() Definition {
	return Definition{
		Name:        "get_financial_summary",
		Description: "Income, expense, and outstanding-invoice totals for a date range. Read-only.",
		Parameters: objSchema(map[string]any{
			"from":    strProp("start date YYYY-MM-DD inclusive, defaults to the start of the current month"),
			"to":      strProp("end date YYYY-MM-DD inclusive, defaults to today"),
			"user_id": strProp("caller identity; always overwritten by the server"),
		}),
	}
}

func (st *summaryTool) run(ctx context.Context, inv Invocation) Result {
	now := time.Now().UTC()
	from, ok := dateParam(inv.Params, "from")
	if !ok {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	to, ok := dateParam(inv.Params, "to")
	if !ok {
		to = now
	}
	if to.Before(from) {
		return Invalidf("the end date is before the start date")
	}

	recs, err := st.store.ListRecords(ctx, inv.OwnerID, ledger.RecordFilter{From: from, To: to})
	if err != nil {
		slog.Error("record list failed", "error", err)
		return storageError("summarise", "finances")
	}

	var income, expenses, incomeTax float64
	var incomeCount, expenseCount int
	for _, r := range recs {
		switch r.Kind {
		case ledger.RecordIncome:
			income += r.TotalWithTax
			incomeTax += r.TaxAmount
			incomeCount++
		case ledger.RecordExpense:
			expenses += r.TotalWithTax
			expenseCount++
		}
	}
	net := ledger.RoundCents(income - expenses)

	invoices, err := st.store.ListInvoices(ctx, inv.OwnerID)
	if err != nil {
		slog.Error("invoice list failed", "error", err)
		return storageError("summarise", "finances")
	}
	var outstanding float64
	var openInvoices int
	for _, v := range invoices {
		if v.Status == ledger.InvoicePaid || v.Status == ledger.InvoiceCancelled {
			continue
		}
		outstanding += v.BalanceDue
		openInvoices++
	}

	cur := st.defaults.Currency
	return Result{
		Status: StatusOK,
		Summary: fmt.Sprintf("between %s and %s: %s income, %s expenses, %s net; %s outstanding across %d open invoices",
			ledger.FormatDate(from), ledger.FormatDate(to),
			ledger.FormatMoney(income, cur), ledger.FormatMoney(expenses, cur),
			ledger.FormatMoney(net, cur), ledger.FormatMoney(outstanding, cur), openInvoices),
		Data: map[string]any{
			"from":            from.Format("2006-01-02"),
			"to":              to.Format("2006-01-02"),
			"income":          ledger.RoundCents(income),
			"income_entries":  incomeCount,
			"income_tax":      ledger.RoundCents(incomeTax),
			"expenses":        ledger.RoundCents(expenses),
			"expense_entries": expenseCount,
			"net":             net,
			"outstanding":     ledger.RoundCents(outstanding),
			"open_invoices":   openInvoices,
		},
	}
}
