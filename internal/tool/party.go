package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledgerly-ai/ledgerly/internal/ledger"
	"github.com/ledgerly-ai/ledgerly/internal/resolve"
)

// partyTools builds the client or vendor tool family. Both kinds share one
// implementation; only the tool names, schema wording, and the PartyKind
// written to storage differ.
type partyTools struct {
	store ledger.Store
	kind  ledger.PartyKind
	label string // "client" or "vendor"
}

// PartyTools returns the add/update/delete/list tools for one party kind.
func PartyTools(store ledger.Store, kind ledger.PartyKind) []Tool {
	pt := &partyTools{store: store, kind: kind, label: string(kind)}
	return []Tool{
		Func{Def: pt.addDef(), Fn: pt.add},
		Func{Def: pt.updateDef(), Fn: pt.update},
		Func{Def: pt.deleteDef(), Fn: pt.delete},
		Func{Def: pt.listDef(), Fn: pt.list},
	}
}

func partyCandidate(p ledger.Party) resolve.Candidate {
	return resolve.Candidate{ID: p.ID, Name: p.Name, Email: p.Email, Phone: p.Phone, Secondary: p.CompanyName}
}

// resolveParty finds the target party by explicit id or free-text reference.
func (pt *partyTools) resolveParty(ctx context.Context, inv Invocation) (*ledger.Party, Result, bool) {
	if id, ok := strParam(inv.Params, pt.label+"_id"); ok {
		p, err := pt.store.GetParty(ctx, inv.OwnerID, id)
		if err != nil {
			return nil, NotFoundf("no %s with id %s", pt.label, id), false
		}
		return &p, Result{}, true
	}
	term, ok := strParam(inv.Params, "name")
	if !ok {
		return nil, Invalidf("provide either %s_id or name", pt.label), false
	}
	pool, err := pt.store.ListParties(ctx, inv.OwnerID, pt.kind)
	if err != nil {
		slog.Error("party list failed", "kind", pt.kind, "error", err)
		return nil, storageError("look up", pt.label), false
	}
	return pickResolved(ctx, inv.Metrics, pt.label, term, pool, partyCandidate)
}

// ── add ─────────────────────────────────────────────────────────────────────

func (pt *partyTools) addDef() Definition {
	return Definition{
		Name:        "add_" + pt.label,
		Description: fmt.Sprintf("Create a new %s. Preview first, then confirm.", pt.label),
		Parameters: objSchema(mutatingProps(map[string]any{
			"name":         strProp("display name, required"),
			"email":        strProp("contact email"),
			"phone":        strProp("contact phone number"),
			"company_name": strProp("legal or company name if different"),
			"address":      strProp("postal address"),
		}), "name"),
	}
}

func (pt *partyTools) add(ctx context.Context, inv Invocation) Result {
	name, ok := strParam(inv.Params, "name")
	if !ok {
		return Invalidf("a %s needs a name", pt.label)
	}

	existing, err := pt.store.ListParties(ctx, inv.OwnerID, pt.kind)
	if err != nil {
		slog.Error("party list failed", "kind", pt.kind, "error", err)
		return storageError("create", pt.label)
	}
	for _, p := range existing {
		if strings.EqualFold(p.Name, name) {
			return Result{
				Status:  StatusExists,
				Summary: fmt.Sprintf("a %s named %q already exists", pt.label, p.Name),
				Data:    map[string]any{"id": p.ID, "name": p.Name},
			}
		}
	}

	email, _ := strParam(inv.Params, "email")
	phone, _ := strParam(inv.Params, "phone")
	company, _ := strParam(inv.Params, "company_name")
	address, _ := strParam(inv.Params, "address")

	var cs changeSet
	cs.set("name", nil, name)
	if email != "" {
		cs.set("email", nil, email)
	}
	if phone != "" {
		cs.set("phone", nil, phone)
	}
	if company != "" {
		cs.set("company_name", nil, company)
	}
	if address != "" {
		cs.set("address", nil, address)
	}

	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will create %s %q — confirm to apply", pt.label, name))
	}

	p := ledger.Party{
		OwnerID: inv.OwnerID, Kind: pt.kind,
		Name: name, Email: email, Phone: phone, CompanyName: company, Address: address,
	}
	if err := pt.store.InsertParty(ctx, &p); err != nil {
		slog.Error("party insert failed", "kind", pt.kind, "error", err)
		return storageError("create", pt.label)
	}
	res := cs.applied(fmt.Sprintf("created %s %q", pt.label, name))
	res.Data = map[string]any{"id": p.ID, "name": p.Name}
	return res
}

// ── update ──────────────────────────────────────────────────────────────────

func (pt *partyTools) updateDef() Definition {
	return Definition{
		Name:        "update_" + pt.label,
		Description: fmt.Sprintf("Update an existing %s's contact details. Preview first, then confirm.", pt.label),
		Parameters: objSchema(mutatingProps(map[string]any{
			pt.label + "_id": strProp("exact id when known"),
			"name":           strProp("name, email, or phone to look the " + pt.label + " up by"),
			"new_name":       strProp("replacement display name"),
			"email":          strProp("replacement email"),
			"phone":          strProp("replacement phone"),
			"company_name":   strProp("replacement company name"),
			"address":        strProp("replacement address"),
		})),
	}
}

func (pt *partyTools) update(ctx context.Context, inv Invocation) Result {
	p, fail, ok := pt.resolveParty(ctx, inv)
	if !ok {
		return fail
	}

	var cs changeSet
	if v, ok := strParam(inv.Params, "new_name"); ok {
		cs.set("name", p.Name, v)
	}
	if v, ok := strParam(inv.Params, "email"); ok {
		cs.set("email", p.Email, v)
	}
	if v, ok := strParam(inv.Params, "phone"); ok {
		cs.set("phone", p.Phone, v)
	}
	if v, ok := strParam(inv.Params, "company_name"); ok {
		cs.set("company_name", p.CompanyName, v)
	}
	if v, ok := strParam(inv.Params, "address"); ok {
		cs.set("address", p.Address, v)
	}
	if cs.empty() {
		return noChanges(pt.label)
	}
	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will update %s %q — confirm to apply", pt.label, p.Name))
	}

	for _, ch := range cs.changes {
		v := ch.New.(string)
		switch ch.Field {
		case "name":
			p.Name = v
		case "email":
			p.Email = v
		case "phone":
			p.Phone = v
		case "company_name":
			p.CompanyName = v
		case "address":
			p.Address = v
		}
	}
	if err := pt.store.UpdateParty(ctx, *p); err != nil {
		slog.Error("party update failed", "kind", pt.kind, "id", p.ID, "error", err)
		return storageError("update", pt.label)
	}
	return cs.applied(fmt.Sprintf("updated %s %q (%s)", pt.label, p.Name, strings.Join(cs.keys(), ", ")))
}

// ── delete ──────────────────────────────────────────────────────────────────

func (pt *partyTools) deleteDef() Definition {
	return Definition{
		Name:        "delete_" + pt.label,
		Description: fmt.Sprintf("Delete a %s (recoverable). Preview first, then confirm.", pt.label),
		Parameters: objSchema(mutatingProps(map[string]any{
			pt.label + "_id": strProp("exact id when known"),
			"name":           strProp("name, email, or phone to look the " + pt.label + " up by"),
		})),
	}
}

func (pt *partyTools) delete(ctx context.Context, inv Invocation) Result {
	p, fail, ok := pt.resolveParty(ctx, inv)
	if !ok {
		return fail
	}
	if !confirmed(inv.Params) {
		return Result{
			Status:  StatusPreview,
			Summary: fmt.Sprintf("will delete %s %q — confirm to apply", pt.label, p.Name),
			Data:    map[string]any{"id": p.ID, "name": p.Name},
		}
	}
	if err := pt.store.SoftDeleteParty(ctx, inv.OwnerID, p.ID); err != nil {
		slog.Error("party delete failed", "kind", pt.kind, "id", p.ID, "error", err)
		return storageError("delete", pt.label)
	}
	return Result{Status: StatusApplied, Summary: fmt.Sprintf("deleted %s %q", pt.label, p.Name)}
}

// ── list ────────────────────────────────────────────────────────────────────

func (pt *partyTools) listDef() Definition {
	return Definition{
		Name:        "list_" + pt.label + "s",
		Description: fmt.Sprintf("List all %ss. Read-only.", pt.label),
		Parameters:  objSchema(map[string]any{"user_id": strProp("caller identity; always overwritten by the server")}),
	}
}

func (pt *partyTools) list(ctx context.Context, inv Invocation) Result {
	pool, err := pt.store.ListParties(ctx, inv.OwnerID, pt.kind)
	if err != nil {
		slog.Error("party list failed", "kind", pt.kind, "error", err)
		return storageError("list", pt.label+"s")
	}
	rows := make([]map[string]any, len(pool))
	for i, p := range pool {
		rows[i] = map[string]any{"id": p.ID, "name": p.Name, "email": p.Email, "phone": p.Phone}
	}
	return Result{
		Status:  StatusOK,
		Summary: fmt.Sprintf("you have %d %ss", len(rows), pt.label),
		Data:    map[string]any{pt.label + "s": rows},
	}
}
