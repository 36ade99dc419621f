package tool

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerly-ai/ledgerly/internal/ledger"
	"github.com/ledgerly-ai/ledgerly/internal/resolve"
)

type projectTools struct {
	store    ledger.Store
	defaults Defaults
}

// ProjectTools returns the project tool family and its sub-entities:
// milestones, goals, time entries, and notes.
func ProjectTools(store ledger.Store, defaults Defaults) []Tool {
	pt := &projectTools{store: store, defaults: defaults}
	return []Tool{
		Func{Def: pt.addProjectDef(), Fn: pt.addProject},
		Func{Def: pt.updateProjectDef(), Fn: pt.updateProject},
		Func{Def: pt.deleteProjectDef(), Fn: pt.deleteProject},
		Func{Def: pt.listProjectsDef(), Fn: pt.listProjects},
		Func{Def: pt.addMilestoneDef(), Fn: pt.addMilestone},
		Func{Def: pt.updateMilestoneDef(), Fn: pt.updateMilestone},
		Func{Def: pt.listMilestonesDef(), Fn: pt.listMilestones},
		Func{Def: pt.addGoalDef(), Fn: pt.addGoal},
		Func{Def: pt.updateGoalDef(), Fn: pt.updateGoal},
		Func{Def: pt.listGoalsDef(), Fn: pt.listGoals},
		Func{Def: pt.addTimeEntryDef(), Fn: pt.addTimeEntry},
		Func{Def: pt.listTimeEntriesDef(), Fn: pt.listTimeEntries},
		Func{Def: pt.addNoteDef(), Fn: pt.addNote},
		Func{Def: pt.listNotesDef(), Fn: pt.listNotes},
	}
}

func projectCandidate(p ledger.Project) resolve.Candidate {
	return resolve.Candidate{ID: p.ID, Name: p.Name}
}

// resolveProject finds a project by id or fuzzy name.
func (pt *projectTools) resolveProject(ctx context.Context, inv Invocation) (*ledger.Project, Result, bool) {
	if id, ok := strParam(inv.Params, "project_id"); ok {
		p, err := pt.store.GetProject(ctx, inv.OwnerID, id)
		if err != nil {
			return nil, NotFoundf("no project with id %s", id), false
		}
		return &p, Result{}, true
	}
	term, ok := strParam(inv.Params, "project_name")
	if !ok {
		return nil, Invalidf("provide either project_id or project_name"), false
	}
	pool, err := pt.store.ListProjects(ctx, inv.OwnerID)
	if err != nil {
		slog.Error("project list failed", "error", err)
		return nil, storageError("look up", "project"), false
	}
	return pickResolved(ctx, inv.Metrics, "project", term, pool, projectCandidate)
}

// ── projects ────────────────────────────────────────────────────────────────

func (pt *projectTools) addProjectDef() Definition {
	return Definition{
		Name:        "add_project",
		Description: "Create a project, optionally attached to a client. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"name":        strProp("project name, required"),
			"client_id":   strProp("exact client id when known"),
			"client_name": strProp("client name, email, or phone to resolve"),
			"start_date":  strProp("start date YYYY-MM-DD, defaults to today"),
		}), "name"),
	}
}

func (pt *projectTools) addProject(ctx context.Context, inv Invocation) Result {
	name, ok := strParam(inv.Params, "name")
	if !ok {
		return Invalidf("a project needs a name")
	}

	var clientID, clientName string
	if id, ok := strParam(inv.Params, "client_id"); ok {
		c, err := pt.store.GetParty(ctx, inv.OwnerID, id)
		if err != nil {
			return NotFoundf("no client with id %s", id)
		}
		clientID, clientName = c.ID, c.Name
	} else if term, ok := strParam(inv.Params, "client_name"); ok {
		pool, err := pt.store.ListParties(ctx, inv.OwnerID, ledger.PartyClient)
		if err != nil {
			slog.Error("party list failed", "error", err)
			return storageError("create", "project")
		}
		c, fail, ok := pickResolved(ctx, inv.Metrics, "client", term, pool, partyCandidate)
		if !ok {
			return fail
		}
		clientID, clientName = c.ID, c.Name
	}

	start, ok := dateParam(inv.Params, "start_date")
	if !ok {
		start = time.Now().UTC().Truncate(24 * time.Hour)
	}

	var cs changeSet
	cs.set("name", nil, name)
	if clientName != "" {
		cs.set("client", nil, clientName)
	}
	cs.set("start_date", nil, start.Format("2006-01-02"))

	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will create project %q — confirm to apply", name))
	}

	p := ledger.Project{OwnerID: inv.OwnerID, Name: name, ClientID: clientID, StartDate: start}
	if err := pt.store.InsertProject(ctx, &p); err != nil {
		slog.Error("project insert failed", "error", err)
		return storageError("create", "project")
	}
	res := cs.applied(fmt.Sprintf("created project %q", name))
	res.Data = map[string]any{"id": p.ID, "name": p.Name}
	return res
}

func (pt *projectTools) updateProjectDef() Definition {
	return Definition{
		Name:        "update_project",
		Description: "Rename a project or set its end date. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"project_id":   strProp("exact id when known"),
			"project_name": strProp("name to look the project up by"),
			"new_name":     strProp("replacement name"),
			"end_date":     strProp("completion date YYYY-MM-DD"),
		})),
	}
}

func (pt *projectTools) updateProject(ctx context.Context, inv Invocation) Result {
	p, fail, ok := pt.resolveProject(ctx, inv)
	if !ok {
		return fail
	}
	var cs changeSet
	if v, ok := strParam(inv.Params, "new_name"); ok {
		cs.set("name", p.Name, v)
	}
	if v, ok := dateParam(inv.Params, "end_date"); ok {
		old := any(nil)
		if p.EndDate != nil {
			old = p.EndDate.Format("2006-01-02")
		}
		cs.set("end_date", old, v.Format("2006-01-02"))
	}
	if cs.empty() {
		return noChanges("project")
	}
	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will update project %q — confirm to apply", p.Name))
	}
	for _, ch := range cs.changes {
		switch ch.Field {
		case "name":
			p.Name = ch.New.(string)
		case "end_date":
			d, _ := time.Parse("2006-01-02", ch.New.(string))
			p.EndDate = &d
		}
	}
	if err := pt.store.UpdateProject(ctx, *p); err != nil {
		slog.Error("project update failed", "id", p.ID, "error", err)
		return storageError("update", "project")
	}
	return cs.applied(fmt.Sprintf("updated project %q", p.Name))
}

func (pt *projectTools) deleteProjectDef() Definition {
	return Definition{
		Name:        "delete_project",
		Description: "Delete a project (recoverable). Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"project_id":   strProp("exact id when known"),
			"project_name": strProp("name to look the project up by"),
		})),
	}
}

func (pt *projectTools) deleteProject(ctx context.Context, inv Invocation) Result {
	p, fail, ok := pt.resolveProject(ctx, inv)
	if !ok {
		return fail
	}
	if !confirmed(inv.Params) {
		return Result{
			Status:  StatusPreview,
			Summary: fmt.Sprintf("will delete project %q — confirm to apply", p.Name),
			Data:    map[string]any{"id": p.ID, "name": p.Name},
		}
	}
	if err := pt.store.SoftDeleteProject(ctx, inv.OwnerID, p.ID); err != nil {
		slog.Error("project delete failed", "id", p.ID, "error", err)
		return storageError("delete", "project")
	}
	return Result{Status: StatusApplied, Summary: fmt.Sprintf("deleted project %q", p.Name)}
}

func (pt *projectTools) listProjectsDef() Definition {
	return Definition{
		Name:        "list_projects",
		Description: "List projects. Read-only.",
		Parameters:  objSchema(map[string]any{"user_id": strProp("caller identity; always overwritten by the server")}),
	}
}

func (pt *projectTools) listProjects(ctx context.Context, inv Invocation) Result {
	pool, err := pt.store.ListProjects(ctx, inv.OwnerID)
	if err != nil {
		slog.Error("project list failed", "error", err)
		return storageError("list", "projects")
	}
	rows := make([]map[string]any, len(pool))
	for i, p := range pool {
		rows[i] = map[string]any{"id": p.ID, "name": p.Name, "start_date": p.StartDate.Format("2006-01-02")}
	}
	return Result{
		Status:  StatusOK,
		Summary: fmt.Sprintf("you have %d projects", len(rows)),
		Data:    map[string]any{"projects": rows},
	}
}

// ── milestones ──────────────────────────────────────────────────────────────

func (pt *projectTools) addMilestoneDef() Definition {
	return Definition{
		Name:        "add_milestone",
		Description: "Add a billable milestone to a project. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"project_id":   strProp("exact project id when known"),
			"project_name": strProp("project name to resolve"),
			"title":        strProp("milestone title, required"),
			"amount":       numProp("billable amount"),
			"due_date":     strProp("due date YYYY-MM-DD"),
		}), "title"),
	}
}

func (pt *projectTools) addMilestone(ctx context.Context, inv Invocation) Result {
	p, fail, ok := pt.resolveProject(ctx, inv)
	if !ok {
		return fail
	}
	title, ok := strParam(inv.Params, "title")
	if !ok {
		return Invalidf("a milestone needs a title")
	}
	amount, _ := numParam(inv.Params, "amount")
	if amount < 0 {
		return Invalidf("milestone amount cannot be negative")
	}
	due, _ := dateParam(inv.Params, "due_date")

	var cs changeSet
	cs.set("project", nil, p.Name)
	cs.set("title", nil, title)
	if amount > 0 {
		cs.set("amount", nil, amount)
	}
	if !due.IsZero() {
		cs.set("due_date", nil, due.Format("2006-01-02"))
	}

	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will add milestone %q to %q — confirm to apply", title, p.Name))
	}

	m := ledger.Milestone{
		OwnerID: inv.OwnerID, ProjectID: p.ID,
		Title: title, Amount: amount, DueDate: due, Status: ledger.MilestonePending,
	}
	if err := pt.store.InsertMilestone(ctx, &m); err != nil {
		slog.Error("milestone insert failed", "error", err)
		return storageError("create", "milestone")
	}
	res := cs.applied(fmt.Sprintf("added milestone %q to %q", title, p.Name))
	res.Data = map[string]any{"id": m.ID}
	return res
}

func (pt *projectTools) updateMilestoneDef() Definition {
	return Definition{
		Name:        "update_milestone",
		Description: "Move a milestone through its lifecycle or change its amount. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"milestone_id": strProp("milestone to change, required"),
			"status":       enumProp("replacement status", "pending", "in_progress", "completed", "paid"),
			"amount":       numProp("replacement billable amount"),
			"due_date":     strProp("replacement due date YYYY-MM-DD"),
		}), "milestone_id"),
	}
}

func (pt *projectTools) updateMilestone(ctx context.Context, inv Invocation) Result {
	id, ok := strParam(inv.Params, "milestone_id")
	if !ok {
		return Invalidf("milestone_id is required")
	}
	m, err := pt.store.GetMilestone(ctx, inv.OwnerID, id)
	if err != nil {
		return NotFoundf("no milestone with id %s", id)
	}

	var cs changeSet
	if v, ok := strParam(inv.Params, "status"); ok {
		s := ledger.MilestoneStatus(v)
		if !s.IsValid() {
			return Invalidf("unknown milestone status %q", v)
		}
		cs.set("status", string(m.Status), v)
	}
	if v, ok := numParam(inv.Params, "amount"); ok {
		if v < 0 {
			return Invalidf("milestone amount cannot be negative")
		}
		cs.set("amount", m.Amount, v)
	}
	if v, ok := dateParam(inv.Params, "due_date"); ok {
		cs.set("due_date", m.DueDate.Format("2006-01-02"), v.Format("2006-01-02"))
	}
	if cs.empty() {
		return noChanges("milestone")
	}
	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will update milestone %q — confirm to apply", m.Title))
	}
	for _, ch := range cs.changes {
		switch ch.Field {
		case "status":
			m.Status = ledger.MilestoneStatus(ch.New.(string))
		case "amount":
			m.Amount = ch.New.(float64)
		case "due_date":
			d, _ := time.Parse("2006-01-02", ch.New.(string))
			m.DueDate = d
		}
	}
	if err := pt.store.UpdateMilestone(ctx, m); err != nil {
		slog.Error("milestone update failed", "id", m.ID, "error", err)
		return storageError("update", "milestone")
	}
	return cs.applied(fmt.Sprintf("updated milestone %q", m.Title))
}

func (pt *projectTools) listMilestonesDef() Definition {
	return Definition{
		Name:        "list_milestones",
		Description: "List a project's milestones. Read-only.",
		Parameters: objSchema(map[string]any{
			"project_id":   strProp("exact project id when known"),
			"project_name": strProp("project name to resolve"),
			"user_id":      strProp("caller identity; always overwritten by the server"),
		}),
	}
}

func (pt *projectTools) listMilestones(ctx context.Context, inv Invocation) Result {
	p, fail, ok := pt.resolveProject(ctx, inv)
	if !ok {
		return fail
	}
	all, err := pt.store.ListMilestones(ctx, inv.OwnerID, p.ID)
	if err != nil {
		slog.Error("milestone list failed", "error", err)
		return storageError("list", "milestones")
	}
	rows := make([]map[string]any, len(all))
	for i, m := range all {
		rows[i] = map[string]any{
			"id": m.ID, "title": m.Title, "status": string(m.Status), "amount": m.Amount,
		}
	}
	return Result{
		Status:  StatusOK,
		Summary: fmt.Sprintf("%q has %d milestones", p.Name, len(rows)),
		Data:    map[string]any{"milestones": rows},
	}
}

// ── goals ───────────────────────────────────────────────────────────────────

func (pt *projectTools) addGoalDef() Definition {
	return Definition{
		Name:        "add_goal",
		Description: "Add a non-billable goal to a project. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"project_id":   strProp("exact project id when known"),
			"project_name": strProp("project name to resolve"),
			"title":        strProp("goal title, required"),
		}), "title"),
	}
}

func (pt *projectTools) addGoal(ctx context.Context, inv Invocation) Result {
	p, fail, ok := pt.resolveProject(ctx, inv)
	if !ok {
		return fail
	}
	title, ok := strParam(inv.Params, "title")
	if !ok {
		return Invalidf("a goal needs a title")
	}
	var cs changeSet
	cs.set("project", nil, p.Name)
	cs.set("title", nil, title)
	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will add goal %q to %q — confirm to apply", title, p.Name))
	}
	g := ledger.Goal{OwnerID: inv.OwnerID, ProjectID: p.ID, Title: title, Status: ledger.GoalTodo}
	if err := pt.store.InsertGoal(ctx, &g); err != nil {
		slog.Error("goal insert failed", "error", err)
		return storageError("create", "goal")
	}
	res := cs.applied(fmt.Sprintf("added goal %q to %q", title, p.Name))
	res.Data = map[string]any{"id": g.ID}
	return res
}

func (pt *projectTools) updateGoalDef() Definition {
	return Definition{
		Name:        "update_goal",
		Description: "Move a goal through its lifecycle. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"goal_id": strProp("goal to change, required"),
			"status":  enumProp("replacement status, required", "todo", "in_progress", "done"),
		}), "goal_id", "status"),
	}
}

func (pt *projectTools) updateGoal(ctx context.Context, inv Invocation) Result {
	id, ok := strParam(inv.Params, "goal_id")
	if !ok {
		return Invalidf("goal_id is required")
	}
	g, err := pt.store.GetGoal(ctx, inv.OwnerID, id)
	if err != nil {
		return NotFoundf("no goal with id %s", id)
	}
	v, _ := strParam(inv.Params, "status")
	s := ledger.GoalStatus(v)
	if !s.IsValid() {
		return Invalidf("goal status must be todo, in_progress, or done")
	}
	var cs changeSet
	cs.set("status", string(g.Status), v)
	if cs.empty() {
		return noChanges("goal")
	}
	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will mark goal %q as %s — confirm to apply", g.Title, s))
	}
	g.Status = s
	if err := pt.store.UpdateGoal(ctx, g); err != nil {
		slog.Error("goal update failed", "id", g.ID, "error", err)
		return storageError("update", "goal")
	}
	return cs.applied(fmt.Sprintf("goal %q is now %s", g.Title, s))
}

func (pt *projectTools) listGoalsDef() Definition {
	return Definition{
		Name:        "list_goals",
		Description: "List a project's goals. Read-only.",
		Parameters: objSchema(map[string]any{
			"project_id":   strProp("exact project id when known"),
			"project_name": strProp("project name to resolve"),
			"user_id":      strProp("caller identity; always overwritten by the server"),
		}),
	}
}

func (pt *projectTools) listGoals(ctx context.Context, inv Invocation) Result {
	p, fail, ok := pt.resolveProject(ctx, inv)
	if !ok {
		return fail
	}
	all, err := pt.store.ListGoals(ctx, inv.OwnerID, p.ID)
	if err != nil {
		slog.Error("goal list failed", "error", err)
		return storageError("list", "goals")
	}
	rows := make([]map[string]any, len(all))
	for i, g := range all {
		rows[i] = map[string]any{"id": g.ID, "title": g.Title, "status": string(g.Status)}
	}
	return Result{
		Status:  StatusOK,
		Summary: fmt.Sprintf("%q has %d goals", p.Name, len(rows)),
		Data:    map[string]any{"goals": rows},
	}
}

// ── time entries ────────────────────────────────────────────────────────────

func (pt *projectTools) addTimeEntryDef() Definition {
	return Definition{
		Name:        "add_time_entry",
		Description: "Track hours on a project; billable entries get an amount from hours times rate. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"project_id":   strProp("exact project id when known"),
			"project_name": strProp("project name to resolve"),
			"description":  strProp("what the time was spent on, required"),
			"hours":        numProp("hours worked, required"),
			"billable":     boolProp("whether the hours are billable"),
			"hourly_rate":  numProp("rate for billable hours"),
			"date":         strProp("work date YYYY-MM-DD, defaults to today"),
		}), "description", "hours"),
	}
}

func (pt *projectTools) addTimeEntry(ctx context.Context, inv Invocation) Result {
	p, fail, ok := pt.resolveProject(ctx, inv)
	if !ok {
		return fail
	}
	desc, ok := strParam(inv.Params, "description")
	if !ok {
		return Invalidf("a time entry needs a description")
	}
	hours, ok := numParam(inv.Params, "hours")
	if !ok || hours <= 0 {
		return Invalidf("hours must be a positive number")
	}
	billable := boolParam(inv.Params, "billable")
	rate, _ := numParam(inv.Params, "hourly_rate")
	if billable && rate <= 0 {
		return Invalidf("billable time needs an hourly_rate")
	}
	date, ok := dateParam(inv.Params, "date")
	if !ok {
		date = time.Now().UTC().Truncate(24 * time.Hour)
	}
	amount := ledger.TimeEntryAmount(hours, rate, billable)

	var cs changeSet
	cs.set("project", nil, p.Name)
	cs.set("hours", nil, hours)
	cs.set("date", nil, date.Format("2006-01-02"))
	if amount != nil {
		cs.set("amount", nil, *amount)
	}

	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will log %.2f hours on %q — confirm to apply", hours, p.Name))
	}

	e := ledger.TimeEntry{
		OwnerID: inv.OwnerID, ProjectID: p.ID, Description: desc,
		Hours: hours, Billable: billable, HourlyRate: rate, Amount: amount, Date: date,
	}
	if err := pt.store.InsertTimeEntry(ctx, &e); err != nil {
		slog.Error("time entry insert failed", "error", err)
		return storageError("record", "time entry")
	}
	res := cs.applied(fmt.Sprintf("logged %.2f hours on %q", hours, p.Name))
	res.Data = map[string]any{"id": e.ID}
	return res
}

func (pt *projectTools) listTimeEntriesDef() Definition {
	return Definition{
		Name:        "list_time_entries",
		Description: "List a project's tracked time. Read-only.",
		Parameters: objSchema(map[string]any{
			"project_id":   strProp("exact project id when known"),
			"project_name": strProp("project name to resolve"),
			"user_id":      strProp("caller identity; always overwritten by the server"),
		}),
	}
}

func (pt *projectTools) listTimeEntries(ctx context.Context, inv Invocation) Result {
	p, fail, ok := pt.resolveProject(ctx, inv)
	if !ok {
		return fail
	}
	all, err := pt.store.ListTimeEntries(ctx, inv.OwnerID, p.ID)
	if err != nil {
		slog.Error("time entry list failed", "error", err)
		return storageError("list", "time entries")
	}
	var totalHours, totalBillable float64
	rows := make([]map[string]any, len(all))
	for i, e := range all {
		totalHours += e.Hours
		row := map[string]any{
			"id": e.ID, "description": e.Description, "hours": e.Hours,
			"date": e.Date.Format("2006-01-02"), "billable": e.Billable,
		}
		if e.Amount != nil {
			totalBillable += *e.Amount
			row["amount"] = *e.Amount
		}
		rows[i] = row
	}
	return Result{
		Status: StatusOK,
		Summary: fmt.Sprintf("%.2f hours on %q, %s billable", totalHours, p.Name,
			ledger.FormatMoney(totalBillable, pt.defaults.Currency)),
		Data: map[string]any{"entries": rows, "total_hours": totalHours, "billable_amount": totalBillable},
	}
}

// ── notes ───────────────────────────────────────────────────────────────────

func (pt *projectTools) addNoteDef() Definition {
	return Definition{
		Name:        "add_note",
		Description: "Attach a note to a project. Preview first, then confirm.",
		Parameters: objSchema(mutatingProps(map[string]any{
			"project_id":   strProp("exact project id when known"),
			"project_name": strProp("project name to resolve"),
			"content":      strProp("note text, required"),
			"type":         enumProp("note kind", "note", "meeting", "call", "email", "change_request", "other"),
		}), "content"),
	}
}

func (pt *projectTools) addNote(ctx context.Context, inv Invocation) Result {
	p, fail, ok := pt.resolveProject(ctx, inv)
	if !ok {
		return fail
	}
	content, ok := strParam(inv.Params, "content")
	if !ok {
		return Invalidf("a note needs content")
	}
	typStr, hasType := strParam(inv.Params, "type")
	typ := ledger.NotePlain
	if hasType {
		typ = ledger.NoteType(typStr)
		if !typ.IsValid() {
			return Invalidf("unknown note type %q", typStr)
		}
	}
	var cs changeSet
	cs.set("project", nil, p.Name)
	cs.set("type", nil, string(typ))
	cs.set("content", nil, content)
	if !confirmed(inv.Params) {
		return cs.preview(fmt.Sprintf("will attach a %s note to %q — confirm to apply", typ, p.Name))
	}
	n := ledger.Note{OwnerID: inv.OwnerID, ProjectID: p.ID, Type: typ, Content: content}
	if err := pt.store.InsertNote(ctx, &n); err != nil {
		slog.Error("note insert failed", "error", err)
		return storageError("create", "note")
	}
	res := cs.applied(fmt.Sprintf("attached a %s note to %q", typ, p.Name))
	res.Data = map[string]any{"id": n.ID}
	return res
}

func (pt *projectTools) listNotesDef() Definition {
	return Definition{
		Name:        "list_notes",
		Description: "List a project's notes. Read-only.",
		Parameters: objSchema(map[string]any{
			"project_id":   strProp("exact project id when known"),
			"project_name": strProp("project name to resolve"),
			"user_id":      strProp("caller identity; always overwritten by the server"),
		}),
	}
}

func (pt *projectTools) listNotes(ctx context.Context, inv Invocation) Result {
	p, fail, ok := pt.resolveProject(ctx, inv)
	if !ok {
		return fail
	}
	all, err := pt.store.ListNotes(ctx, inv.OwnerID, p.ID)
	if err != nil {
		slog.Error("note list failed", "error", err)
		return storageError("list", "notes")
	}
	rows := make([]map[string]any, len(all))
	for i, n := range all {
		rows[i] = map[string]any{
			"id": n.ID, "type": string(n.Type), "content": n.Content,
			"created_at": n.CreatedAt.Format("2006-01-02"),
		}
	}
	return Result{
		Status:  StatusOK,
		Summary: fmt.Sprintf("%q has %d notes", p.Name, len(rows)),
		Data:    map[string]any{"notes": rows},
	}
}
