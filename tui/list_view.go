package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadopp/api"
	"github.com/harperreed/leadopp/models"
	"github.com/harperreed/leadopp/workspace"
)

type listMsg struct {
	kind    models.EntityKind
	records []models.Record
	err     error
}

func (m *Model) loadList() tea.Cmd {
	kind := m.currentKind()
	m.records = nil
	m.selectedRow = 0
	client, ctx := m.deps.Client, m.ctx
	tick := m.startLoading()
	return tea.Batch(tick, func() tea.Msg {
		records, err := client.ListRecords(ctx, kind)
		return listMsg{kind: kind, records: records, err: err}
	})
}

func (m Model) handleList(msg listMsg) (tea.Model, tea.Cmd) {
	if msg.kind != m.currentKind() || m.viewMode != ViewList {
		return m, nil
	}
	m.loading = false
	if msg.err != nil {
		return m.handleAuthError(msg.err)
	}
	m.records = msg.records
	return m, nil
}

// handleAuthError signs out when the server rejects the stored credentials.
func (m Model) handleAuthError(err error) (tea.Model, tea.Cmd) {
	var lf *api.LoadFailure
	if errors.Is(err, api.ErrNotAuthenticated) || (errors.As(err, &lf) && lf.Kind == api.FailureUnauthorized) {
		next, cmd := m.signOut()
		nm := next.(Model)
		nm.err = err
		return nm, cmd
	}
	m.err = err
	return m, nil
}

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("LEADOPP CRM"))
	s.WriteString("\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")
	s.WriteString(m.renderTable())
	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString(m.renderListHelp())
	return s.String()
}

func (m Model) renderTable() string {
	kind := m.currentKind()
	third := "Status"
	if kind == models.KindUser {
		third = "Role"
	}
	columns := []table.Column{
		{Title: "Name", Width: 32},
		{Title: third, Width: 14},
		{Title: "Assigned", Width: 20},
	}

	rows := make([]table.Row, 0, len(m.records))
	for _, r := range m.records {
		status := r.String("status")
		if kind == models.KindUser {
			status = r.String("role")
		}
		if status == "" {
			status = r.String("stage")
		}
		rows = append(rows, table.Row{r.Label(), status, r.AssignedName()})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(3, m.height-12)),
	)
	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}
	return t.View()
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Tab: Switch tabs",
		"←/→: Sections",
		"Enter: View details",
		"r: Reload",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < len(m.records)-1 {
			m.selectedRow++
		}
	case "tab":
		if len(m.kinds) > 1 {
			m.kindIndex = (m.kindIndex + 1) % len(m.kinds)
			cmd := m.loadList()
			return m, cmd
		}
	case "left", "h":
		return m.stepSection(-1)
	case "right", "l":
		return m.stepSection(1)
	case "r":
		cmd := m.loadList()
		return m, cmd
	case "enter":
		if id := m.getSelectedID(); id != "" {
			return m.openDetail(m.currentKind(), id)
		}
	}
	return m, nil
}

func (m Model) getSelectedID() string {
	if m.selectedRow < len(m.records) {
		return m.records[m.selectedRow].String("id")
	}
	return ""
}

// listRouteSection resolves where a load failure sends the user.
func listRouteSection(route string) string {
	return workspace.SectionFromRoute(route, workspace.DefaultSection)
}
