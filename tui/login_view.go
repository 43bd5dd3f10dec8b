package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadopp/models"
)

var (
	errCredentialsRequired = errors.New("email and password are required")
	errNoOrganization      = errors.New("this account belongs to no organization")
)

type userCountMsg struct {
	n   int
	err error
}

type loginMsg struct {
	token string
	err   error
}

type orgsMsg struct {
	orgs []models.Organization
	err  error
}

func (m *Model) initLoginInputs() {
	email := newInput("Email")
	password := newInput("Password")
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	m.loginInputs = []textinput.Model{email, password}
	m.loginFocus = 0
	focusOnly(m.loginInputs, 0)
}

func (m Model) checkUserCount() tea.Cmd {
	client, ctx := m.deps.Client, m.ctx
	return func() tea.Msg {
		n, err := client.CheckUserCount(ctx)
		return userCountMsg{n: n, err: err}
	}
}

// handleUserCount picks sign-up on an empty server. A failed check keeps
// sign-in and is only logged.
func (m Model) handleUserCount(msg userCountMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("user count check failed")
		return m, nil
	}
	m.signUp = msg.n == 0
	return m, nil
}

func (m Model) renderLoginView() string {
	var s strings.Builder

	if m.signUp {
		s.WriteString(titleStyle.Render("LEADOPP · CREATE THE FIRST ACCOUNT"))
	} else {
		s.WriteString(titleStyle.Render("LEADOPP · SIGN IN"))
	}
	s.WriteString("\n\n")

	for i, input := range m.loginInputs {
		if i == m.loginFocus {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}

	if m.loading {
		s.WriteString("\n" + m.spinner.View() + " Signing in...\n")
	}
	if m.err != nil {
		s.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}

	mode := "ctrl+t: Sign up instead"
	if m.signUp {
		mode = "ctrl+t: Sign in instead"
	}
	s.WriteString(helpStyle.Render(strings.Join([]string{"Tab: Next field", "Enter: Submit", mode, "ctrl+c: Quit"}, " • ")))
	return s.String()
}

func (m Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down", "shift+tab", "up":
		if msg.String() == "shift+tab" || msg.String() == "up" {
			m.loginFocus = (m.loginFocus + len(m.loginInputs) - 1) % len(m.loginInputs)
		} else {
			m.loginFocus = (m.loginFocus + 1) % len(m.loginInputs)
		}
		focusOnly(m.loginInputs, m.loginFocus)
		return m, nil
	case "ctrl+t":
		m.signUp = !m.signUp
		return m, nil
	case "enter":
		if m.loginFocus < len(m.loginInputs)-1 {
			m.loginFocus++
			focusOnly(m.loginInputs, m.loginFocus)
			return m, nil
		}
		if m.loading {
			return m, nil
		}
		return m.submitLogin()
	}

	var cmd tea.Cmd
	m.loginInputs[m.loginFocus], cmd = m.loginInputs[m.loginFocus].Update(msg)
	return m, cmd
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	email := strings.TrimSpace(m.loginInputs[0].Value())
	password := m.loginInputs[1].Value()
	if email == "" || password == "" {
		m.err = errCredentialsRequired
		return m, nil
	}

	client, ctx, signUp := m.deps.Client, m.ctx, m.signUp
	tick := m.startLoading()
	return m, tea.Batch(tick, func() tea.Msg {
		var token string
		var err error
		if signUp {
			token, err = client.Register(ctx, email, password)
		} else {
			token, err = client.Login(ctx, email, password)
		}
		return loginMsg{token: token, err: err}
	})
}

func (m Model) handleLogin(msg loginMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.err = msg.err
		return m, nil
	}
	if err := m.deps.Session.SetLogin(msg.token, ""); err != nil {
		m.err = err
		return m, nil
	}
	m.loginInputs[1].SetValue("")

	client, ctx := m.deps.Client, m.ctx
	tick := m.startLoading()
	return m, tea.Batch(tick, func() tea.Msg {
		orgs, err := client.Organizations(ctx)
		return orgsMsg{orgs: orgs, err: err}
	})
}

// handleOrgs selects the only org directly and asks otherwise.
func (m Model) handleOrgs(msg orgsMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.err = msg.err
		return m, nil
	}
	if len(msg.orgs) == 0 {
		m.err = errNoOrganization
		return m, nil
	}
	m.orgs = msg.orgs
	m.orgCursor = 0
	if len(msg.orgs) == 1 {
		return m.selectOrg(msg.orgs[0])
	}
	m.viewMode = ViewOrgPicker
	return m, nil
}

func (m Model) renderOrgPickerView() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("SELECT ORGANIZATION"))
	s.WriteString("\n\n")
	for i, org := range m.orgs {
		line := org.Name + " " + labelStyle.Render("("+org.Role+")")
		if i == m.orgCursor {
			s.WriteString(menuActiveStyle.Render("> ") + line)
		} else {
			s.WriteString("  " + line)
		}
		s.WriteString("\n")
	}
	if m.err != nil {
		s.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render("↑/↓: Navigate • Enter: Select • ctrl+c: Quit"))
	return s.String()
}

func (m Model) handleOrgPickerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.orgCursor > 0 {
			m.orgCursor--
		}
	case "down", "j":
		if m.orgCursor < len(m.orgs)-1 {
			m.orgCursor++
		}
	case "enter":
		if m.orgCursor < len(m.orgs) {
			return m.selectOrg(m.orgs[m.orgCursor])
		}
	}
	return m, nil
}

func (m Model) selectOrg(org models.Organization) (tea.Model, tea.Cmd) {
	if err := m.deps.Session.SetOrg(org.ID); err != nil {
		m.err = err
		return m, nil
	}
	if err := m.deps.Session.SetRole(org.Role); err != nil {
		m.err = err
		return m, nil
	}
	m.shell.SignedIn()
	m.log.Info().Str("org", org.ID).Str("role", org.Role).Msg("signed in")
	return m.openSection(m.deps.DefaultSection)
}
