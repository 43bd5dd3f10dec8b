// ABOUTME: Loosely typed entity record decoded from aggregate responses
// ABOUTME: Provides accessors for strings, lists and nested user details
package models

import (
	"strconv"
	"strings"
)

// Record is an entity object as the server returned it.
type Record map[string]any

func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// String returns the value at key as a string. Numbers and booleans are
// formatted; lists, objects and missing keys yield "".
func (r Record) String(key string) string {
	return scalarString(r[key])
}

// Strings returns a list value as labels. Object elements contribute their
// name, falling back to id and then email.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, el := range v {
			if s := labelOf(el); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// Object returns a nested object, or nil.
func (r Record) Object(key string) Record {
	if m, ok := r[key].(map[string]any); ok {
		return Record(m)
	}
	return nil
}

// Lookup walks a dotted path such as "created_by.first_name".
func (r Record) Lookup(dotted string) (any, bool) {
	parts := strings.Split(dotted, ".")
	cur := r
	for i, p := range parts {
		v, ok := cur[p]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = m
	}
	return nil, false
}

// UserLabel renders a user-ish object: "first last", else email.
func (r Record) UserLabel() string {
	details := r.Object("user_details")
	if details == nil {
		details = r
	}
	return DisplayName(details.String("first_name"), details.String("last_name"), details.String("email"))
}

// Label picks the most descriptive name a record carries.
func (r Record) Label() string {
	for _, key := range []string{"title", "name", "account_name"} {
		if v := r.String(key); v != "" {
			return v
		}
	}
	if label := r.UserLabel(); label != "" {
		return label
	}
	if id := r.String("id"); id != "" {
		return "#" + id
	}
	return "(untitled)"
}

// AssignedName is the display name of the first assigned user.
func (r Record) AssignedName() string {
	list, _ := r["assigned_to"].([]any)
	if len(list) == 0 {
		return "Unassigned"
	}
	user, ok := list[0].(map[string]any)
	if !ok {
		return "Unassigned"
	}
	name := Record(user).UserLabel()
	if name == "" {
		return "Unassigned"
	}
	return name
}

// Clone deep-copies maps and slices so the copy can be mutated freely.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]any(r)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	}
	return v
}

// DisplayName joins first and last names, falling back to email.
func DisplayName(first, last, email string) string {
	if first != "" || last != "" {
		return strings.TrimSpace(first + " " + last)
	}
	return email
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func labelOf(v any) string {
	if m, ok := v.(map[string]any); ok {
		r := Record(m)
		return firstNonEmpty(r.String("name"), r.String("id"), r.UserLabel())
	}
	return scalarString(v)
}

func idOf(v any) string {
	if m, ok := v.(map[string]any); ok {
		r := Record(m)
		return firstNonEmpty(r.String("id"), r.String("name"))
	}
	return scalarString(v)
}
