// ABOUTME: Builds the edit-screen hand-off from a loaded aggregate
// ABOUTME: Flattens relations, resolves country names to codes and promotes nested fields
package workspace

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/harperreed/leadopp/models"
)

// BuildHandoff snapshots agg for the edit screen of record id.
//
// Fields the kind marks single-valued keep only their first element; any
// dropped values are listed in Truncated and logged. Other lists become
// label lists. The country field is replaced by its lookup code and left
// unset when no country matches. Nested objects are dropped unless the kind
// promotes one of their values to a top-level field.
func BuildHandoff(agg *models.Aggregate, id string, logger zerolog.Logger) (*models.NavigationHandoff, error) {
	if agg == nil {
		return nil, ErrNotLoaded
	}
	spec, ok := models.SpecFor(agg.Kind)
	if !ok {
		return nil, fmt.Errorf("no edit form for kind %q", agg.Kind)
	}
	if id == "" {
		id = agg.ID
	}

	values := make(map[string]any, len(agg.Entity))
	var truncated []string

	for field, raw := range agg.Entity {
		switch v := raw.(type) {
		case []any:
			if spec.IsSingleValued(field) {
				if len(v) == 0 {
					continue
				}
				if len(v) > 1 {
					truncated = append(truncated, field)
				}
				if s := models.ScalarOf(v[0]); s != nil && s != "" {
					values[field] = s
				}
				continue
			}
			values[field] = models.LabelsOf(v)
		case map[string]any:
			continue
		default:
			values[field] = v
		}
	}

	if f := spec.CountryField; f != "" {
		delete(values, f)
		if name := agg.Entity.String(f); name != "" {
			if code, ok := agg.Lookups.CountryCode(name); ok {
				values[f] = code
			}
		}
	}

	promoted := make([]string, 0, len(spec.Promoted))
	for dst := range spec.Promoted {
		promoted = append(promoted, dst)
	}
	sort.Strings(promoted)
	for _, dst := range promoted {
		v, ok := agg.Entity.Lookup(spec.Promoted[dst])
		if !ok {
			continue
		}
		if s := models.ScalarOf(v); s != nil {
			values[dst] = s
		}
	}

	if len(truncated) > 0 {
		sort.Strings(truncated)
		logger.Warn().
			Str("component", "handoff").
			Str("kind", string(agg.Kind)).
			Str("id", id).
			Strs("fields", truncated).
			Msg("kept only the first value of multi-valued fields")
	}

	return models.NewNavigationHandoff(agg.Kind, id, values, agg.Lookups, truncated), nil
}
