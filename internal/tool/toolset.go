package tool

import "github.com/ledgerly-ai/ledgerly/internal/ledger"

// NewFinanceRegistry builds the full tool catalogue over one datastore:
// income and expense records, clients and vendors, categories, invoices with
// payments and recurring schedules, projects with their sub-entities, and
// the financial summary.
func NewFinanceRegistry(store ledger.Store, defaults Defaults) *Registry {
	reg := NewRegistry()
	reg.MustRegister(RecordTools(store, ledger.RecordIncome, defaults)...)
	reg.MustRegister(RecordTools(store, ledger.RecordExpense, defaults)...)
	reg.MustRegister(PartyTools(store, ledger.PartyClient)...)
	reg.MustRegister(PartyTools(store, ledger.PartyVendor)...)
	reg.MustRegister(CategoryTools(store)...)
	reg.MustRegister(InvoiceTools(store, defaults)...)
	reg.MustRegister(ScheduleTools(store)...)
	reg.MustRegister(ProjectTools(store, defaults)...)
	reg.MustRegister(SummaryTool(store, defaults))
	return reg
}
