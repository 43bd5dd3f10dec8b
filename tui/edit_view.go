package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadopp/api"
	"github.com/harperreed/leadopp/models"
	"github.com/harperreed/leadopp/workspace"
)

type savedMsg struct {
	screen *workspace.Screen
	err    error
}

// openEdit hands the loaded record to the edit form.
func (m Model) openEdit() (tea.Model, tea.Cmd) {
	if m.screen == nil || m.loading {
		return m, nil
	}
	route, err := m.screen.Edit(m.nav)
	if err != nil {
		m.err = err
		return m, nil
	}
	h, err := workspace.OpenEdit(m.ctx, m.nav, route, m.screen.Loader(), m.screen.ID(), m.log)
	if err != nil {
		m.err = err
		return m, nil
	}

	m.handoff = h
	m.formKeys = nil
	m.formInputs = nil
	for _, field := range h.Fields() {
		if field == "id" {
			continue
		}
		input := newInput(field)
		input.Prompt = fmt.Sprintf("%-16s", field)
		input.SetValue(formText(h, field))
		m.formKeys = append(m.formKeys, field)
		m.formInputs = append(m.formInputs, input)
	}
	// An unmatched country is left out of the hand-off but still editable.
	if f := countryField(h); f != "" && !h.Has(f) {
		input := newInput("country code or name")
		input.Prompt = fmt.Sprintf("%-16s", f)
		m.formKeys = append(m.formKeys, f)
		m.formInputs = append(m.formInputs, input)
	}
	m.focusIndex = 0
	focusOnly(m.formInputs, 0)
	m.viewMode = ViewEdit
	m.status = ""
	m.err = nil
	if tr := h.Truncated(); len(tr) > 0 {
		m.status = "Only the first value was kept for: " + strings.Join(tr, ", ")
	}
	return m, nil
}

// formText renders a hand-off value for a text input.
func formText(h *models.NavigationHandoff, field string) string {
	if v, _ := h.Value(field); isStringList(v) {
		return strings.Join(h.Strings(field), ", ")
	}
	return h.String(field)
}

func (m Model) renderEditView() string {
	var s strings.Builder
	if m.handoff == nil {
		return m.renderStatus()
	}
	spec, _ := models.SpecFor(m.handoff.Kind())
	s.WriteString(titleStyle.Render("EDIT " + strings.ToUpper(spec.Label) + " #" + m.handoff.SourceID()))
	s.WriteString("\n\n")

	for i, input := range m.formInputs {
		if i == m.focusIndex {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString(helpStyle.Render(strings.Join([]string{"Tab: Next field", "Enter: Save", "Esc: Cancel"}, " • ")))
	return s.String()
}

func (m Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.leaveEdit(), nil
	case "tab", "down":
		if len(m.formInputs) > 0 {
			m.focusIndex = (m.focusIndex + 1) % len(m.formInputs)
			focusOnly(m.formInputs, m.focusIndex)
		}
		return m, nil
	case "shift+tab", "up":
		if len(m.formInputs) > 0 {
			m.focusIndex = (m.focusIndex + len(m.formInputs) - 1) % len(m.formInputs)
			focusOnly(m.formInputs, m.focusIndex)
		}
		return m, nil
	case "enter", "ctrl+s":
		return m.saveEdit()
	}

	if m.focusIndex < len(m.formInputs) {
		var cmd tea.Cmd
		m.formInputs[m.focusIndex], cmd = m.formInputs[m.focusIndex].Update(msg)
		return m, cmd
	}
	return m, nil
}

// editValues collects the fields the user changed. Untouched fields keep
// their server shape.
func (m Model) editValues() map[string]any {
	values := make(map[string]any)
	for i, field := range m.formKeys {
		text := m.formInputs[i].Value()
		if text == formText(m.handoff, field) {
			continue
		}
		if orig, _ := m.handoff.Value(field); isStringList(orig) {
			var list []string
			for _, part := range strings.Split(text, ",") {
				if part = strings.TrimSpace(part); part != "" {
					list = append(list, part)
				}
			}
			values[field] = list
			continue
		}
		if field == countryField(m.handoff) {
			if code, ok := m.handoff.Lookups().CountryCode(text); ok {
				text = code
			}
		}
		values[field] = text
	}
	return values
}

func countryField(h *models.NavigationHandoff) string {
	spec, _ := models.SpecFor(h.Kind())
	return spec.CountryField
}

func (m Model) saveEdit() (tea.Model, tea.Cmd) {
	if m.handoff == nil || m.loading {
		return m, nil
	}
	values := m.editValues()
	if len(values) == 0 {
		m = m.leaveEdit()
		m.status = "No changes"
		return m, nil
	}
	client, ctx, screen := m.deps.Client, m.ctx, m.screen
	kind, id := m.handoff.Kind(), m.handoff.SourceID()
	tick := m.startLoading()
	m.status = ""
	return m, tea.Batch(tick, func() tea.Msg {
		return savedMsg{screen: screen, err: client.UpdateEntity(ctx, kind, id, values)}
	})
}

func (m Model) handleSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	if msg.screen != m.screen || m.viewMode != ViewEdit {
		return m, nil
	}
	m.loading = false
	if msg.err != nil {
		var vf *api.ValidationFailure
		if errors.As(msg.err, &vf) {
			m.err = vf
			return m, nil
		}
		return m.handleAuthError(msg.err)
	}

	m.log.Info().Str("kind", string(m.handoff.Kind())).Str("id", m.handoff.SourceID()).Msg("record saved")
	m = m.leaveEdit()
	m.status = "Saved"
	if m.screen == nil {
		return m, nil
	}
	cmd := m.reloadScreen()
	return m, cmd
}

func isStringList(v any) bool {
	_, ok := v.([]string)
	return ok
}

// leaveEdit returns to the detail screen the form was opened from.
func (m Model) leaveEdit() Model {
	if _, ok := m.nav.Back(); !ok && m.handoff != nil {
		spec, _ := models.SpecFor(m.handoff.Kind())
		m.goTo(spec.DetailRoute)
	}
	m.handoff = nil
	m.formKeys = nil
	m.formInputs = nil
	m.focusIndex = 0
	m.err = nil
	m.viewMode = ViewDetail
	return m
}
