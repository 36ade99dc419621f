package tool

import (
	"strings"
	"time"
)

// Parameter access helpers. Params come from decoded JSON, so numbers are
// float64 and nested objects are map[string]any. Every accessor treats a
// missing key, a null, and a wrong-typed value as absent — tools validate
// presence explicitly where a field is required.

func strParam(p map[string]any, key string) (string, bool) {
	v, ok := p[key].(string)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func numParam(p map[string]any, key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func boolParam(p map[string]any, key string) bool {
	v, _ := p[key].(bool)
	return v
}

func confirmed(p map[string]any) bool { return boolParam(p, "confirmed") }

// dateParam parses an ISO date (2006-01-02) or RFC 3339 timestamp.
func dateParam(p map[string]any, key string) (time.Time, bool) {
	s, ok := strParam(p, key)
	if !ok {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func listParam(p map[string]any, key string) []any {
	v, _ := p[key].([]any)
	return v
}

// ── JSON Schema builders ────────────────────────────────────────────────────
//
// Tool parameter schemas are plain JSON Schema objects. These builders keep
// the per-tool definitions readable; every mutating tool's schema includes
// the confirmed flag and the caller identity field the dispatcher overwrites.

func objSchema(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func strProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func numProp(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

func boolProp(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}

func enumProp(desc string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": desc, "enum": values}
}

// mutatingProps extends props with the fields every mutating tool carries.
func mutatingProps(props map[string]any) map[string]any {
	props["confirmed"] = boolProp("false to preview the change, true to apply it")
	props["user_id"] = strProp("caller identity; always overwritten by the server")
	return props
}
