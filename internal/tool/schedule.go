package tool

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerly-ai/ledgerly/internal/ledger"
)

type scheduleTools struct {
	store ledger.Store
}

// ScheduleTools returns the recurring-invoice schedule tool family.
func ScheduleTools(store ledger.Store) []Tool {
	st := &scheduleTools{store: store}
	return []Tool{
		Func{Def: st.createDef(), Fn: st.create},
		Func{Def: st.listDef(), Fn: st.list},
		Func{Def: st.advanceDef(), Fn: st.advance},
		Func{Def: st.deactivateDef(), Fn: st.deactivate},
	}
}

func (st *scheduleTools) getSchedule(ctx context.Context, inv Invocation) (*ledger.RecurringSchedule, Result, bool) {
	id, ok := strParam(inv.Params, "schedule_id")
	if !ok {
		return nil, Invalidf("schedule_id is required"), false
	}
	s, err := st.store.GetSchedule(ctx, inv.OwnerID, id)
	if err != nil {
		return nil, NotFoundf("no recurring schedule with id %s", id), false
	}
	return &s, Result{}, true
}

func (st *scheduleTools) createDef() Definition {
	return Definition{
		Name:        "create_recurring_schedule",
		Description: "Set up recurring invoice generation from an existing invoice template. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"invoice_id": strProp("invoice to use as the recurring template, required"),
			"frequency":  enumProp("recurrence interval, required", "weekly", "biweekly", "monthly", "quarterly", "yearly"),
			"next_date":  strProp("first generation date YYYY-MM-DD, required"),
			"end_date":   strProp("last date the schedule may run, open-ended when omitted"),
		}), "invoice_id", "frequency", "next_date"),
	}
}

func (st *scheduleTools) create(ctx context.Context, inv Invocation) Result {
	invoiceID, ok := strParam(inv.Params, "invoice_id")
	if !ok {
		return Invalidf("invoice_id is required")
	}
	template, err := st.store.GetInvoice(ctx, inv.OwnerID, invoiceID)
	if err != nil {
		return NotFoundf("no invoice with id %s to use as a template", invoiceID)
	}
	freqStr, _ := strParam(inv.Params, "frequency")
	freq := ledger.Frequency(freqStr)
	if !freq.IsValid() {
		return Invalidf("frequency must be weekly, biweekly, monthly, quarterly, or yearly")
	}
	next, ok := dateParam(inv.Params, "next_date")
	if !ok {
		return Invalidf("next_date must be a date like 2026-09-01")
	}
	var end *time.Time
	if v, ok := dateParam(inv.Params, "end_date"); ok {
		if v.Before(next) {
			return Invalidf("end_date is before the first run date")
		}
		end = &v
	}

	var cs changeSet
	cs.set("template", nil, template.Number)
	cs.set("frequency", nil, string(freq))
	cs.set("next_date", nil, next.Format("2006-01-02"))
	if end != nil {
		cs.set("end_date", nil, end.Format("2006-01-02"))
	}

	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will invoice %s %s starting %s — confirm to apply",
			template.Number, freq, ledger.FormatDate(next)))
	}

	s := ledger.RecurringSchedule{
		OwnerID: inv.OwnerID, InvoiceTemplateID: template.ID,
		Frequency: freq, NextDate: next, EndDate: end, IsActive: true,
	}
	if err := st.store.InsertSchedule(ctx, &s); err != nil {
		slog.Error("schedule insert failed", "error", err)
		return storageError("create", "recurring schedule")
	}
	res := cs.applied(fmt.Sprintf("invoice %s now recurs %s starting %s",
		template.Number, freq, ledger.FormatDate(next)))
	res.Data = map[string]any{"id": s.ID}
	return res
}

func (st *scheduleTools) listDef() Definition {
	return Definition{
		Name:        "list_recurring_schedules",
		Description: "List recurring invoice schedules. Read-only.",
		Parameters: objSchema(map[string]any{
			"active_only": boolProp("omit deactivated schedules"),
			"user_id":     strProp("caller identity; always overwritten by the server"),
		}),
	}
}

func (st *scheduleTools) list(ctx context.Context, inv Invocation) Result {
	all, err := st.store.ListSchedules(ctx, inv.OwnerID, boolParam(inv.Params, "active_only"))
	if err != nil {
		slog.Error("schedule list failed", "error", err)
		return storageError("list", "recurring schedules")
	}
	rows := make([]map[string]any, len(all))
	for i, s := range all {
		row := map[string]any{
			"id": s.ID, "invoice_id": s.InvoiceTemplateID,
			"frequency": string(s.Frequency), "next_date": s.NextDate.Format("2006-01-02"),
			"active": s.IsActive,
		}
		if s.EndDate != nil {
			row["end_date"] = s.EndDate.Format("2006-01-02")
		}
		rows[i] = row
	}
	return Result{
		Status:  StatusOK,
		Summary: fmt.Sprintf("you have %d recurring schedules", len(rows)),
		Data:    map[string]any{"schedules": rows},
	}
}

func (st *scheduleTools) advanceDef() Definition {
	return Definition{
		Name:        "advance_recurring_schedule",
		Description: "Generate the next invoice from a recurring schedule and move its next run date forward. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"schedule_id": strProp("schedule to advance, required"),
		}), "schedule_id"),
	}
}

func (st *scheduleTools) advance(ctx context.Context, inv Invocation) Result {
	s, fail, ok := st.getSchedule(ctx, inv)
	if !ok {
		return fail
	}
	if !s.IsActive {
		return Blockedf("this schedule is deactivated; reactivate it before advancing")
	}
	template, err := st.store.GetInvoice(ctx, inv.OwnerID, s.InvoiceTemplateID)
	if err != nil {
		return Blockedf("the template invoice no longer exists; deactivate this schedule")
	}

	next := s.Advance(s.NextDate)
	expires := s.Expired(next)

	var cs changeSet
	cs.set("generated_invoice", nil, "copy of "+template.Number)
	cs.set("next_date", s.NextDate.Format("2006-01-02"), next.Format("2006-01-02"))
	if expires {
		cs.set("active", true, false)
	}

	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will generate a new invoice from %s dated %s — confirm to apply",
			template.Number, ledger.FormatDate(s.NextDate)))
	}

	generated := ledger.Invoice{
		OwnerID: inv.OwnerID, ClientID: template.ClientID,
		Number:  fmt.Sprintf("%s-%s", template.Number, s.NextDate.Format("200601")),
		Items:   template.Items, TaxRate: template.TaxRate,
		Status:  ledger.InvoiceDraft,
		IssueDate: s.NextDate, DueDate: s.NextDate.AddDate(0, 0, 14),
	}
	ledger.InvoiceTotals(&generated)
	if err := st.store.InsertInvoice(ctx, &generated); err != nil {
		slog.Error("generated invoice insert failed", "schedule", s.ID, "error", err)
		return storageError("generate", "invoice")
	}

	s.NextDate = next
	if expires {
		s.IsActive = false
	}
	if err := st.store.UpdateSchedule(ctx, *s); err != nil {
		slog.Error("schedule update failed", "id", s.ID, "error", err)
		return storageError("advance", "recurring schedule")
	}

	summary := fmt.Sprintf("generated invoice %s; next run %s", generated.Number, ledger.FormatDate(next))
	if expires {
		summary = fmt.Sprintf("generated invoice %s; the schedule reached its end date and was deactivated", generated.Number)
	}
	res := cs.applied(summary)
	res.Data = map[string]any{"invoice_id": generated.ID, "number": generated.Number}
	return res
}

func (st *scheduleTools) deactivateDef() Definition {
	return Definition{
		Name:        "deactivate_recurring_schedule",
		Description: "Stop a recurring schedule from generating further invoices. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"schedule_id": strProp("schedule to stop, required"),
		}), "schedule_id"),
	}
}

func (st *scheduleTools) deactivate(ctx context.Context, inv Invocation) Result {
	s, fail, ok := st.getSchedule(ctx, inv)
	if !ok {
		return fail
	}
	if !s.IsActive {
		return noChanges("recurring schedule")
	}
	var cs changeSet
	cs.set("active", true, false)
	if !confirmed(inv.Params) {
		return cs.preview("will stop this recurring schedule — confirm to apply")
	}
	s.IsActive = false
	if err := st.store.UpdateSchedule(ctx, *s); err != nil {
		slog.Error("schedule update failed", "id", s.ID, "error", err)
		return storageError("deactivate", "recurring schedule")
	}
	return cs.applied("the recurring schedule is stopped; past invoices are unaffected")
}
