// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Hosts the workspace shell, login, list, detail, edit and profile views
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/harperreed/leadopp/models"
	"github.com/harperreed/leadopp/workspace"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewLogin ViewMode = iota
	ViewOrgPicker
	ViewList
	ViewDetail
	ViewFilePicker
	ViewEdit
	ViewProfile
)

// Client is the part of the CRM API the terminal client calls.
type Client interface {
	workspace.Backend
	CheckUserCount(ctx context.Context) (int, error)
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, email, password string) (string, error)
	Organizations(ctx context.Context) ([]models.Organization, error)
	ListRecords(ctx context.Context, kind models.EntityKind) ([]models.Record, error)
	UpdateEntity(ctx context.Context, kind models.EntityKind, id string, values map[string]any) error
	GetProfile(ctx context.Context) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, id string, form models.ProfileForm) error
}

// Session is the durable login state.
type Session interface {
	workspace.SessionState
	SetLogin(token, org string) error
	SetOrg(org string) error
	SetRole(role string) error
}

// Deps wires the model to the outside world.
type Deps struct {
	Client         Client
	Session        Session
	Previews       workspace.PreviewProvider
	Logger         zerolog.Logger
	DefaultSection string
	StartDir       string
}

// Model is the main bubbletea model
type Model struct {
	deps  Deps
	ctx   context.Context
	log   zerolog.Logger
	shell *workspace.Shell
	nav   *workspace.Navigator

	viewMode ViewMode
	loading  bool
	spinner  spinner.Model
	status   string
	err      error

	// Login state
	loginInputs []textinput.Model
	loginFocus  int
	signUp      bool
	orgs        []models.Organization
	orgCursor   int

	// List state
	kinds       []models.EntityKind
	kindIndex   int
	records     []models.Record
	selectedRow int

	// Detail state
	screen       *workspace.Screen
	note         textarea.Model
	noteFocused  bool
	order        workspace.ThreadOrder
	attachCursor int
	picker       filepicker.Model

	// Edit state
	handoff    *models.NavigationHandoff
	formKeys   []string
	formInputs []textinput.Model
	focusIndex int

	// Profile state
	profile       *models.UserProfile
	profileForm   *models.ProfileForm
	profileInputs []textinput.Model
	profileFocus  int
	fieldErrors   map[string][]string

	width  int
	height int
}

// NewModel creates a new TUI model
func NewModel(deps Deps) Model {
	if deps.DefaultSection == "" {
		deps.DefaultSection = workspace.DefaultSection
	}
	log := deps.Logger.With().Str("component", "tui").Logger()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	note := textarea.New()
	note.Placeholder = "Add a note"
	note.SetHeight(3)
	note.ShowLineNumbers = false
	note.Cursor.SetMode(cursor.CursorStatic)

	m := Model{
		deps:     deps,
		ctx:      context.Background(),
		log:      log,
		shell:    workspace.NewShell(deps.Session, deps.DefaultSection, deps.Logger),
		nav:      workspace.NewNavigator(workspace.LoginRoute),
		viewMode: ViewLogin,
		spinner:  sp,
		note:     note,
		width:    100,
		height:   30,
	}
	m.nav.OnChange(m.shell.OnRoute)
	m.initLoginInputs()
	return m
}

// Init resumes a stored session or starts at the login screen.
func (m Model) Init() tea.Cmd {
	if m.shell.Authenticated() {
		section := m.deps.DefaultSection
		return func() tea.Msg { return openSectionMsg{section: section} }
	}
	return m.checkUserCount()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.note.SetWidth(max(20, m.bodyWidth()-4))
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case openSectionMsg:
		return m.openSection(msg.section)
	case userCountMsg:
		return m.handleUserCount(msg)
	case loginMsg:
		return m.handleLogin(msg)
	case orgsMsg:
		return m.handleOrgs(msg)
	case listMsg:
		return m.handleList(msg)
	case mountMsg:
		return m.handleMount(msg)
	case submitMsg:
		return m.handleSubmit(msg)
	case savedMsg:
		return m.handleSaved(msg)
	case profileMsg:
		return m.handleProfileLoaded(msg)
	case profileSavedMsg:
		return m.handleProfileSaved(msg)
	}

	if m.viewMode == ViewFilePicker {
		return m.updatePicker(msg)
	}
	return m, nil
}

func (m Model) View() string {
	var body string
	switch m.viewMode {
	case ViewLogin:
		return m.renderLoginView()
	case ViewOrgPicker:
		return m.renderOrgPickerView()
	case ViewList:
		body = m.renderListView()
	case ViewDetail:
		body = m.renderDetailView()
	case ViewFilePicker:
		body = m.renderFilePickerView()
	case ViewEdit:
		body = m.renderEditView()
	case ViewProfile:
		body = m.renderProfileView()
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), body)
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.unmountScreen()
		return m, tea.Quit
	}

	if m.viewMode != ViewLogin && m.viewMode != ViewOrgPicker {
		switch msg.String() {
		case "ctrl+b":
			m.shell.Toggle()
			return m, nil
		case "ctrl+o":
			return m.signOut()
		case "ctrl+p":
			return m.openProfile()
		}
	}

	// Delegate to view-specific handlers
	switch m.viewMode {
	case ViewLogin:
		return m.handleLoginKeys(msg)
	case ViewOrgPicker:
		return m.handleOrgPickerKeys(msg)
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewFilePicker:
		return m.updatePicker(msg)
	case ViewEdit:
		return m.handleEditKeys(msg)
	case ViewProfile:
		return m.handleProfileKeys(msg)
	}
	return m, nil
}

// goTo records a route change; the shell follows through the navigator.
func (m *Model) goTo(route string) {
	m.nav.Navigate(route, nil)
}

func (m *Model) startLoading() tea.Cmd {
	m.loading = true
	m.err = nil
	return m.spinner.Tick
}

func (m Model) bodyWidth() int {
	return m.width - m.shell.State().Drawer.Columns() - 2
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

func focusOnly(inputs []textinput.Model, index int) {
	for i := range inputs {
		if i == index {
			inputs[i].Focus()
		} else {
			inputs[i].Blur()
		}
	}
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	sidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(lipgloss.Color("238")).
			PaddingRight(1)

	menuActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	menuStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)
