package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledgerly-ai/ledgerly/internal/ledger"
	"github.com/ledgerly-ai/ledgerly/internal/resolve"
)

type categoryTools struct {
	store ledger.Store
}

// CategoryTools returns the category management tool family.
func CategoryTools(store ledger.Store) []Tool {
	ct := &categoryTools{store: store}
	return []Tool{
		Func{Def: ct.addDef(), Fn: ct.add},
		Func{Def: ct.updateDef(), Fn: ct.update},
		Func{Def: ct.deleteDef(), Fn: ct.delete},
		Func{Def: ct.listDef(), Fn: ct.list},
	}
}

func categoryCandidate(c ledger.Category) resolve.Candidate {
	return resolve.Candidate{ID: c.ID, Name: c.Name}
}

// resolveCategoryRef finds a category by id or fuzzy name, optionally
// restricted to one type. Shared with the money-record tools.
func resolveCategoryRef(ctx context.Context, store ledger.Store, inv Invocation, typ ledger.CategoryType) (*ledger.Category, Result, bool) {
	if id, ok := strParam(inv.Params, "category_id"); ok {
		c, err := store.GetCategory(ctx, inv.OwnerID, id)
		if err != nil {
			return nil, NotFoundf("no category with id %s", id), false
		}
		return &c, Result{}, true
	}
	term, ok := strParam(inv.Params, "category_name")
	if !ok {
		return nil, Invalidf("provide either category_id or category_name"), false
	}
	pool, err := store.ListCategories(ctx, inv.OwnerID, typ)
	if err != nil {
		slog.Error("category list failed", "error", err)
		return nil, storageError("look up", "category"), false
	}
	return pickResolved(ctx, inv.Metrics, "category", term, pool, categoryCandidate)
}

func (ct *categoryTools) addDef() Definition {
	return Definition{
		Name:        "add_category",
		Description: "Create an income or expense category. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"name":  strProp("category name, required"),
			"type":  enumProp("category type, required", "income", "expense"),
			"color": strProp("display colour hex code"),
		}), "name", "type"),
	}
}

func (ct *categoryTools) add(ctx context.Context, inv Invocation) Result {
	name, ok := strParam(inv.Params, "name")
	if !ok {
		return Invalidf("a category needs a name")
	}
	typStr, _ := strParam(inv.Params, "type")
	typ := ledger.CategoryType(typStr)
	if !typ.IsValid() {
		return Invalidf("category type must be income or expense")
	}

	existing, err := ct.store.ListCategories(ctx, inv.OwnerID, typ)
	if err != nil {
		slog.Error("category list failed", "error", err)
		return storageError("create", "category")
	}
	for _, c := range existing {
		if strings.EqualFold(c.Name, name) {
			return Result{
				Status:  StatusExists,
				Summary: fmt.Sprintf("an %s category named %q already exists", typ, c.Name),
				Data:    map[string]any{"id": c.ID, "name": c.Name},
			}
		}
	}

	color, _ := strParam(inv.Params, "color")
	var cs changeSet
	cs.set("name", nil, name)
	cs.set("type", nil, string(typ))
	if color != "" {
		cs.set("color", nil, color)
	}

	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will create %s category %q — confirm to apply", typ, name))
	}

	c := ledger.Category{OwnerID: inv.OwnerID, Name: name, Type: typ, Color: color}
	if err := ct.store.InsertCategory(ctx, &c); err != nil {
		slog.Error("category insert failed", "error", err)
		return storageError("create", "category")
	}
	res := cs.applied(fmt.Sprintf("created %s category %q", typ, name))
	res.Data = map[string]any{"id": c.ID, "name": c.Name}
	return res
}

func (ct *categoryTools) updateDef() Definition {
	return Definition{
		Name:        "update_category",
		Description: "Rename or recolour a category. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"category_id":   strProp("exact id when known"),
			"category_name": strProp("name to look the category up by"),
			"new_name":      strProp("replacement name"),
			"color":         strProp("replacement colour hex code"),
		})),
	}
}

func (ct *categoryTools) update(ctx context.Context, inv Invocation) Result {
	c, fail, ok := resolveCategoryRef(ctx, ct.store, inv, "")
	if !ok {
		return fail
	}

	var cs changeSet
	if v, ok := strParam(inv.Params, "new_name"); ok {
		cs.set("name", c.Name, v)
	}
	if v, ok := strParam(inv.Params, "color"); ok {
		cs.set("color", c.Color, v)
	}
	if cs.empty() {
		return noChanges("category")
	}
	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will update category %q — confirm to apply", c.Name))
	}

	for _, ch := range cs.changes {
		switch ch.Field {
		case "name":
			c.Name = ch.New.(string)
		case "color":
			c.Color = ch.New.(string)
		}
	}
	if err := ct.store.UpdateCategory(ctx, *c); err != nil {
		slog.Error("category update failed", "id", c.ID, "error", err)
		return storageError("update", "category")
	}
	return cs.applied(fmt.Sprintf("updated category %q", c.Name))
}

func (ct *categoryTools) deleteDef() Definition {
	return Definition{
		Name:        "delete_category",
		Description: "Delete a category (recoverable). Existing records keep their entries. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"category_id":   strProp("exact id when known"),
			"category_name": strProp("name to look the category up by"),
		})),
	}
}

func (ct *categoryTools) delete(ctx context.Context, inv Invocation) Result {
	c, fail, ok := resolveCategoryRef(ctx, ct.store, inv, "")
	if !ok {
		return fail
	}
	if !confirmed(inv.Params) {
		return Result{
			Status:  StatusPreview,
			Summary: fmt.Sprintf("will delete category %q — confirm to apply", c.Name),
			Data:    map[string]any{"id": c.ID, "name": c.Name},
		}
	}
	if err := ct.store.SoftDeleteCategory(ctx, inv.OwnerID, c.ID); err != nil {
		slog.Error("category delete failed", "id", c.ID, "error", err)
		return storageError("delete", "category")
	}
	return Result{Status: StatusApplied, Summary: fmt.Sprintf("deleted category %q", c.Name)}
}

func (ct *categoryTools) listDef() Definition {
	return Definition{
		Name:        "list_categories",
		Description: "List categories, optionally filtered by type. Read-only.",
		Parameters: objSchema(map[string]any{
			"type":    enumProp("restrict to one type", "income", "expense"),
			"user_id": strProp("caller identity; always overwritten by the server"),
		}),
	}
}

func (ct *categoryTools) list(ctx context.Context, inv Invocation) Result {
	typStr, _ := strParam(inv.Params, "type")
	typ := ledger.CategoryType(typStr)
	if typStr != "" && !typ.IsValid() {
		return Invalidf("category type must be income or expense")
	}
	pool, err := ct.store.ListCategories(ctx, inv.OwnerID, typ)
	if err != nil {
		slog.Error("category list failed", "error", err)
		return storageError("list", "categories")
	}
	rows := make([]map[string]any, len(pool))
	for i, c := range pool {
		rows[i] = map[string]any{"id": c.ID, "name": c.Name, "type": string(c.Type), "color": c.Color}
	}
	return Result{
		Status:  StatusOK,
		Summary: fmt.Sprintf("you have %d categories", len(rows)),
		Data:    map[string]any{"categories": rows},
	}
}
