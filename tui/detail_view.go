package tui

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadopp/api"
	"github.com/harperreed/leadopp/models"
	"github.com/harperreed/leadopp/workspace"
)

type mountMsg struct {
	screen *workspace.Screen
	err    error
}

type submitMsg struct {
	screen *workspace.Screen
	err    error
}

// openDetail mounts a fresh screen for one record.
func (m Model) openDetail(kind models.EntityKind, id string) (tea.Model, tea.Cmd) {
	m.unmountScreen()
	spec, _ := models.SpecFor(kind)
	m.screen = workspace.NewScreen(m.deps.Client, m.deps.Previews, kind, id, m.deps.Logger)
	m.goTo(spec.DetailRoute)
	m.viewMode = ViewDetail
	m.status = ""
	cmd := m.reloadScreen()
	return m, cmd
}

func (m *Model) reloadScreen() tea.Cmd {
	screen, ctx := m.screen, m.ctx
	tick := m.startLoading()
	return tea.Batch(tick, func() tea.Msg {
		return mountMsg{screen: screen, err: screen.Reload(ctx)}
	})
}

// handleMount applies a load result. Results for a screen that has since been
// replaced are dropped, and a failed load sends the user to the owning list.
func (m Model) handleMount(msg mountMsg) (tea.Model, tea.Cmd) {
	if msg.screen != m.screen {
		return m, nil
	}
	m.loading = false
	if msg.err == nil {
		m.clampAttachCursor()
		return m, nil
	}
	if errors.Is(msg.err, workspace.ErrDiscarded) {
		return m, nil
	}

	var lf *api.LoadFailure
	if errors.As(msg.err, &lf) && lf.Kind != api.FailureUnauthorized {
		next, cmd := m.openSectionKind(listRouteSection(lf.ListRoute), m.screen.Kind())
		nm := next.(Model)
		nm.err = fmt.Errorf("could not open record: %w", lf)
		return nm, cmd
	}
	return m.handleAuthError(msg.err)
}

func (m Model) renderDetailView() string {
	var s strings.Builder
	if m.screen == nil {
		return m.renderStatus()
	}
	spec, _ := models.SpecFor(m.screen.Kind())

	agg, err := m.screen.Aggregate()
	if err != nil {
		s.WriteString(titleStyle.Render(strings.ToUpper(spec.Label)))
		s.WriteString("\n\n")
		s.WriteString(m.renderStatus())
		return s.String()
	}

	s.WriteString(titleStyle.Render(strings.ToUpper(spec.Label) + ": " + agg.Entity.Label()))
	s.WriteString("\n\n")
	s.WriteString(renderFields(agg))
	s.WriteString("\n")

	s.WriteString(titleStyle.Render("Attachments"))
	s.WriteString("\n")
	items := m.screen.Attachments().Items()
	if len(items) == 0 {
		s.WriteString(labelStyle.Render("  none") + "\n")
	}
	for i, it := range items {
		marker := "  "
		if i == m.attachCursor && !m.noteFocused {
			marker = "> "
		}
		line := it.Name()
		if it.Kind() == workspace.AttachmentStaged {
			line += " " + labelStyle.Render("("+models.FormatFileSize(it.Size())+", not sent)")
			if h, ok := it.Preview(); ok {
				line += " " + labelStyle.Render(h.Path)
			}
		} else {
			line += " " + labelStyle.Render(it.Ref().URL)
		}
		s.WriteString(marker + line + "\n")
	}
	s.WriteString("\n")

	s.WriteString(titleStyle.Render("Notes · " + m.order.String()))
	s.WriteString("\n")
	thread := m.screen.Comments().Thread(m.order)
	if len(thread) == 0 {
		s.WriteString(labelStyle.Render("  no notes yet") + "\n")
	}
	for _, c := range thread {
		when := ""
		if !c.Timestamp.IsZero() {
			when = c.Timestamp.Local().Format("2006-01-02 15:04")
		}
		s.WriteString(labelStyle.Render(c.Author+" "+when) + "\n")
		s.WriteString("  " + c.Body + "\n")
	}
	s.WriteString("\n")

	s.WriteString(m.note.View())
	s.WriteString("\n")
	for field, msgs := range m.screen.Comments().FieldErrors() {
		s.WriteString(errorStyle.Render(field+": "+strings.Join(msgs, " ")) + "\n")
	}
	s.WriteString(m.renderStatus())
	s.WriteString(m.renderDetailHelp())
	return s.String()
}

// renderFields lists scalar fields in key order, resolving lookup codes to labels.
func renderFields(agg *models.Aggregate) string {
	keys := make([]string, 0, len(agg.Entity))
	for k, v := range agg.Entity {
		switch v.(type) {
		case map[string]any, []any, nil:
			continue
		}
		if k == "id" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var s strings.Builder
	for _, k := range keys {
		val := agg.Entity.String(k)
		if k == "status" {
			val = choiceLabel(agg.Lookups.Statuses, val)
		}
		s.WriteString(labelStyle.Render(fmt.Sprintf("%-16s", k)) + val + "\n")
	}
	if agg.Entity.Has("assigned_to") {
		s.WriteString(labelStyle.Render(fmt.Sprintf("%-16s", "assigned_to")) + agg.Entity.AssignedName() + "\n")
	}
	if tags := agg.Entity.Strings("tags"); len(tags) > 0 {
		s.WriteString(labelStyle.Render(fmt.Sprintf("%-16s", "tags")) + strings.Join(tags, ", ") + "\n")
	}
	return s.String()
}

func choiceLabel(choices []models.Choice, code string) string {
	for _, c := range choices {
		if c.Code == code {
			return c.Label
		}
	}
	return code
}

func (m Model) renderDetailHelp() string {
	var help []string
	if m.noteFocused {
		help = []string{"ctrl+s: Save note", "Esc: Stop editing"}
	} else {
		help = []string{
			"n: Write note",
			"a: Attach file",
			"x: Remove attachment",
			"o: Order",
			"e: Edit",
			"r: Reload",
			"Esc: Back",
		}
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.noteFocused {
		switch msg.String() {
		case "esc":
			m.noteFocused = false
			m.note.Blur()
			return m, nil
		case "ctrl+s":
			return m.submitNote()
		}
		var cmd tea.Cmd
		m.note, cmd = m.note.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "n", "i":
		m.noteFocused = true
		m.note.Focus()
	case "ctrl+s":
		return m.submitNote()
	case "up", "k":
		if m.attachCursor > 0 {
			m.attachCursor--
		}
	case "down", "j":
		m.attachCursor++
		m.clampAttachCursor()
	case "x", "delete":
		if m.screen != nil {
			if err := m.screen.Attachments().RemoveAt(m.attachCursor); err != nil {
				m.err = err
			}
			m.clampAttachCursor()
		}
	case "a":
		return m.openPicker()
	case "o":
		if m.order == workspace.RecentLast {
			m.order = workspace.RecentFirst
		} else {
			m.order = workspace.RecentLast
		}
	case "e":
		return m.openEdit()
	case "r":
		if m.screen != nil {
			cmd := m.reloadScreen()
			return m, cmd
		}
	case "esc", "backspace":
		return m.backToList()
	}
	return m, nil
}

func (m Model) backToList() (tea.Model, tea.Cmd) {
	var kind models.EntityKind
	if m.screen != nil {
		kind = m.screen.Kind()
	}
	route, _ := m.nav.Back()
	return m.openSectionKind(listRouteSection(route), kind)
}

func (m Model) submitNote() (tea.Model, tea.Cmd) {
	if m.screen == nil || m.loading {
		return m, nil
	}
	// The textarea keeps line breaks, so it is the edited body.
	m.screen.Comments().SetRichText(m.note.Value())
	screen, ctx := m.screen, m.ctx
	tick := m.startLoading()
	m.status = ""
	return m, tea.Batch(tick, func() tea.Msg {
		return submitMsg{screen: screen, err: screen.Comments().Submit(ctx)}
	})
}

func (m Model) handleSubmit(msg submitMsg) (tea.Model, tea.Cmd) {
	if msg.screen != m.screen {
		return m, nil
	}
	m.loading = false
	switch {
	case msg.err == nil:
		m.note.Reset()
		m.note.Blur()
		m.noteFocused = false
		m.status = "Note saved"
		m.clampAttachCursor()
	case errors.Is(msg.err, workspace.ErrEmptyDraft):
		m.err = errors.New("write something before saving")
	default:
		var vf *api.ValidationFailure
		if errors.As(msg.err, &vf) {
			m.err = vf
			return m, nil
		}
		return m.handleAuthError(msg.err)
	}
	return m, nil
}

func (m *Model) clampAttachCursor() {
	n := 0
	if m.screen != nil {
		n = m.screen.Attachments().Len()
	}
	if m.attachCursor >= n {
		m.attachCursor = n - 1
	}
	if m.attachCursor < 0 {
		m.attachCursor = 0
	}
}

func (m Model) openPicker() (tea.Model, tea.Cmd) {
	if m.screen == nil {
		return m, nil
	}
	fp := filepicker.New()
	fp.CurrentDirectory = m.deps.StartDir
	if fp.CurrentDirectory == "" {
		if home, err := os.UserHomeDir(); err == nil {
			fp.CurrentDirectory = home
		} else {
			fp.CurrentDirectory = "."
		}
	}
	fp.AutoHeight = false
	fp.Height = max(5, m.height-8)
	m.picker = fp
	m.viewMode = ViewFilePicker
	return m, m.picker.Init()
}

func (m Model) renderFilePickerView() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("ATTACH FILE"))
	s.WriteString("\n")
	s.WriteString(labelStyle.Render(m.picker.CurrentDirectory))
	s.WriteString("\n\n")
	s.WriteString(m.picker.View())
	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString(helpStyle.Render("↑/↓: Navigate • Enter: Select • Backspace: Up • Esc: Cancel"))
	return s.String()
}

// updatePicker forwards to the file picker and stages the chosen file.
func (m Model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		m.viewMode = ViewDetail
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.viewMode = ViewDetail
		file, err := workspace.StageFromPath(path)
		if err != nil {
			m.err = err
			return m, nil
		}
		if _, err := m.screen.Attachments().AddStaged(file); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Attached %s (%s)", file.Name, models.FormatFileSize(file.Size))
		return m, nil
	}
	return m, cmd
}
