// ABOUTME: Navigation hand-off payload passed from a detail screen to its edit screen
// ABOUTME: Immutable once built; exposes read-only accessors over a flattened snapshot
package models

import (
	"sort"
	"time"
)

// NavigationHandoff is a point-in-time snapshot of a record for the next
// screen. It is never the system of record.
type NavigationHandoff struct {
	kind      EntityKind
	sourceID  string
	values    map[string]any
	lookups   Lookups
	truncated []string
	createdAt time.Time
}

// NewNavigationHandoff copies its inputs. Values must be strings, numbers,
// booleans, nil or []string.
func NewNavigationHandoff(kind EntityKind, sourceID string, values map[string]any, lookups Lookups, truncated []string) *NavigationHandoff {
	vals := make(map[string]any, len(values))
	for k, v := range values {
		if list, ok := v.([]string); ok {
			cp := make([]string, len(list))
			copy(cp, list)
			v = cp
		}
		vals[k] = v
	}
	tr := make([]string, len(truncated))
	copy(tr, truncated)
	sort.Strings(tr)

	return &NavigationHandoff{
		kind:      kind,
		sourceID:  sourceID,
		values:    vals,
		lookups:   lookups.Clone(),
		truncated: tr,
		createdAt: time.Now(),
	}
}

func (h *NavigationHandoff) Kind() EntityKind     { return h.kind }
func (h *NavigationHandoff) SourceID() string     { return h.sourceID }
func (h *NavigationHandoff) Lookups() Lookups     { return h.lookups.Clone() }
func (h *NavigationHandoff) CreatedAt() time.Time { return h.createdAt }

// Truncated lists single-valued fields whose server value held more than one
// element; everything after the first was dropped.
func (h *NavigationHandoff) Truncated() []string {
	out := make([]string, len(h.truncated))
	copy(out, h.truncated)
	return out
}

// Has reports whether the field is set.
func (h *NavigationHandoff) Has(field string) bool {
	_, ok := h.values[field]
	return ok
}

// Value returns a copy of the field value.
func (h *NavigationHandoff) Value(field string) (any, bool) {
	v, ok := h.values[field]
	if list, isList := v.([]string); isList {
		cp := make([]string, len(list))
		copy(cp, list)
		return cp, ok
	}
	return v, ok
}

func (h *NavigationHandoff) String(field string) string {
	return scalarString(h.values[field])
}

func (h *NavigationHandoff) Strings(field string) []string {
	switch v := h.values[field].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case string:
		return []string{v}
	}
	return nil
}

// Fields returns the set field names in sorted order.
func (h *NavigationHandoff) Fields() []string {
	out := make([]string, 0, len(h.values))
	for k := range h.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Values returns a copy of the flattened field map.
func (h *NavigationHandoff) Values() map[string]any {
	out := make(map[string]any, len(h.values))
	for k := range h.values {
		out[k], _ = h.Value(k)
	}
	return out
}

// ScalarOf flattens a list element to the id an edit form selects by.
func ScalarOf(v any) any {
	switch v.(type) {
	case map[string]any:
		return idOf(v)
	case []any:
		return nil
	}
	return v
}

// LabelsOf flattens a list value to its element labels.
func LabelsOf(v any) []string {
	return Record{"v": v}.Strings("v")
}
