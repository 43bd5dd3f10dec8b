package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadopp/models"
	"github.com/harperreed/leadopp/workspace"
)

type openSectionMsg struct {
	section string
}

// sectionKinds maps sidebar sections and list routes to the collections
// they show as tabs.
var sectionKinds = map[string][]models.EntityKind{
	"deals":         {models.KindLead, models.KindOpportunity},
	"dashboard":     {models.KindLead, models.KindOpportunity, models.KindContact, models.KindAccount, models.KindCompany, models.KindCase},
	"contacts":      {models.KindContact},
	"accounts":      {models.KindAccount},
	"companies":     {models.KindCompany},
	"cases":         {models.KindCase},
	"leads":         {models.KindLead},
	"opportunities": {models.KindOpportunity},
	"admin":         {models.KindUser},
	"users":         {models.KindUser},
}

func (m Model) renderSidebar() string {
	wide := m.shell.State().Drawer == models.DrawerExpanded
	var s strings.Builder
	for _, e := range m.shell.Menu() {
		label := e.Label
		if !wide && len(label) > 3 {
			label = label[:3]
		}
		if e.Active {
			s.WriteString(menuActiveStyle.Render("▌" + label))
		} else {
			s.WriteString(menuStyle.Render(" " + label))
		}
		s.WriteString("\n")
	}
	if wide {
		s.WriteString("\n" + labelStyle.Render("ctrl+b: collapse"))
		s.WriteString("\n" + labelStyle.Render("ctrl+p: profile"))
		s.WriteString("\n" + labelStyle.Render("ctrl+o: sign out"))
	}
	return sidebarStyle.Width(m.shell.State().Drawer.Columns()).Render(s.String())
}

// openSection shows the list of a section's first collection.
func (m Model) openSection(section string) (tea.Model, tea.Cmd) {
	return m.openSectionKind(section, "")
}

// openSectionKind opens a section with the tab for kind selected when the
// section has one.
func (m Model) openSectionKind(section string, kind models.EntityKind) (tea.Model, tea.Cmd) {
	kinds, ok := sectionKinds[section]
	if !ok {
		section = m.deps.DefaultSection
		kinds = sectionKinds[section]
	}
	m.unmountScreen()
	m.goTo("/app/" + section)
	m.kinds = kinds
	m.kindIndex = 0
	for i, k := range kinds {
		if k == kind {
			m.kindIndex = i
		}
	}
	m.viewMode = ViewList
	cmd := m.loadList()
	return m, cmd
}

// stepSection moves to the next or previous sidebar entry.
func (m Model) stepSection(delta int) (tea.Model, tea.Cmd) {
	menu := m.shell.Menu()
	if len(menu) == 0 {
		return m, nil
	}
	cur := 0
	for i, e := range menu {
		if e.Active {
			cur = i
		}
	}
	next := (cur + delta + len(menu)) % len(menu)
	return m.openSection(menu[next].Section)
}

// signOut hides authenticated views before the session is wiped, then shows
// the login screen even if the wipe failed.
func (m Model) signOut() (tea.Model, tea.Cmd) {
	m.unmountScreen()
	route, err := m.shell.SignOut()
	m.nav.Reset(route)

	m.viewMode = ViewLogin
	m.records = nil
	m.kinds = nil
	m.orgs = nil
	m.handoff = nil
	m.profile = nil
	m.profileForm = nil
	m.loading = false
	m.status = ""
	m.err = err
	m.initLoginInputs()
	return m, m.checkUserCount()
}

func (m *Model) unmountScreen() {
	if m.screen != nil {
		m.screen.Unmount()
		m.screen = nil
	}
	m.note.Reset()
	m.note.Blur()
	m.noteFocused = false
	m.attachCursor = 0
}

func (m Model) renderStatus() string {
	var s strings.Builder
	if m.loading {
		s.WriteString(m.spinner.View() + " Loading...\n")
	}
	if m.status != "" {
		s.WriteString(statusStyle.Render(m.status) + "\n")
	}
	if m.err != nil {
		s.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	return s.String()
}

func (m Model) renderTabs() string {
	var rendered []string
	for i, kind := range m.kinds {
		spec, _ := models.SpecFor(kind)
		label := spec.Label
		if i == m.kindIndex {
			rendered = append(rendered, tabActiveStyle.Render(label))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) currentKind() models.EntityKind {
	if m.kindIndex < len(m.kinds) {
		return m.kinds[m.kindIndex]
	}
	return models.EntityKind(workspace.DefaultSection)
}
