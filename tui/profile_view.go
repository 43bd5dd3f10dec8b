package tui

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadopp/api"
	"github.com/harperreed/leadopp/models"
)

// ProfileRoute is where the profile form lives.
const ProfileRoute = "/app/profile"

type profileMsg struct {
	profile *models.UserProfile
	err     error
}

type profileSavedMsg struct {
	err error
}

func (m Model) openProfile() (tea.Model, tea.Cmd) {
	m.unmountScreen()
	m.goTo(ProfileRoute)
	m.viewMode = ViewProfile
	m.profile = nil
	m.profileForm = nil
	m.profileInputs = nil
	m.fieldErrors = nil
	m.status = ""

	client, ctx := m.deps.Client, m.ctx
	tick := m.startLoading()
	return m, tea.Batch(tick, func() tea.Msg {
		p, err := client.GetProfile(ctx)
		return profileMsg{profile: p, err: err}
	})
}

func (m Model) handleProfileLoaded(msg profileMsg) (tea.Model, tea.Cmd) {
	if m.viewMode != ViewProfile {
		return m, nil
	}
	m.loading = false
	if msg.err != nil {
		return m.handleAuthError(msg.err)
	}

	form := msg.profile.Form()
	m.profile = msg.profile
	m.profileForm = &form
	m.profileInputs = nil
	for _, f := range form.Fields() {
		input := newInput(f.Label)
		input.Prompt = fmt.Sprintf("%-14s", f.Label)
		input.SetValue(*f.Value)
		m.profileInputs = append(m.profileInputs, input)
	}
	m.profileFocus = 0
	focusOnly(m.profileInputs, 0)
	return m, nil
}

func (m Model) renderProfileView() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("PROFILE"))
	s.WriteString("\n")
	if m.profile != nil {
		s.WriteString(labelStyle.Render("Role: " + m.profile.UserObj.Role))
		s.WriteString("\n\n")
	}
	for i, input := range m.profileInputs {
		if i == m.profileFocus {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}

	fields := make([]string, 0, len(m.fieldErrors))
	for field := range m.fieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		s.WriteString(errorStyle.Render(field+": "+strings.Join(m.fieldErrors[field], " ")) + "\n")
	}

	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString(helpStyle.Render(strings.Join([]string{"Tab: Next field", "ctrl+s: Save", "Esc: Back"}, " • ")))
	return s.String()
}

func (m Model) handleProfileKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.profileInputs)
	switch msg.String() {
	case "esc":
		m.profile = nil
		m.profileForm = nil
		m.profileInputs = nil
		m.fieldErrors = nil
		return m.openSection(m.deps.DefaultSection)
	case "tab", "down":
		if n > 0 {
			m.profileFocus = (m.profileFocus + 1) % n
			focusOnly(m.profileInputs, m.profileFocus)
		}
		return m, nil
	case "shift+tab", "up":
		if n > 0 {
			m.profileFocus = (m.profileFocus + n - 1) % n
			focusOnly(m.profileInputs, m.profileFocus)
		}
		return m, nil
	case "ctrl+s":
		return m.saveProfile()
	}

	if m.profileFocus < n {
		var cmd tea.Cmd
		m.profileInputs[m.profileFocus], cmd = m.profileInputs[m.profileFocus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) saveProfile() (tea.Model, tea.Cmd) {
	if m.profileForm == nil || m.loading {
		return m, nil
	}
	for i, f := range m.profileForm.Fields() {
		*f.Value = strings.TrimSpace(m.profileInputs[i].Value())
	}
	form, id := *m.profileForm, m.profile.ID()
	client, ctx := m.deps.Client, m.ctx
	tick := m.startLoading()
	m.status = ""
	m.fieldErrors = nil
	return m, tea.Batch(tick, func() tea.Msg {
		return profileSavedMsg{err: client.UpdateProfile(ctx, id, form)}
	})
}

func (m Model) handleProfileSaved(msg profileSavedMsg) (tea.Model, tea.Cmd) {
	if m.viewMode != ViewProfile {
		return m, nil
	}
	m.loading = false
	if msg.err != nil {
		var vf *api.ValidationFailure
		if errors.As(msg.err, &vf) {
			m.fieldErrors = vf.Fields
			if len(vf.Fields) == 0 {
				m.err = vf
			}
			return m, nil
		}
		return m.handleAuthError(msg.err)
	}
	m.status = "Profile updated"
	return m, nil
}
