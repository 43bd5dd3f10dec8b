// ABOUTME: Tests for the terminal client driven against an in-process stub server
// ABOUTME: Feeds key presses through Update and runs the resulting commands to completion
package tui

import (
	"database/sql"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadopp/api"
	"github.com/harperreed/leadopp/db"
	"github.com/harperreed/leadopp/models"
	"github.com/harperreed/leadopp/session"
	"github.com/harperreed/leadopp/web"
	"github.com/harperreed/leadopp/workspace"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fixture struct {
	db     *sql.DB
	store  *session.Store
	client *api.Client
	deps   Deps
}

func newFixture(t *testing.T, seed bool) *fixture {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	if seed {
		_, err = db.SeedDemo(database)
		require.NoError(t, err)
	}

	ts := httptest.NewServer(web.NewServer(database, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)

	store, err := session.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	previews, err := workspace.NewTempFilePreviews(t.TempDir())
	require.NoError(t, err)

	client := api.New(ts.URL+web.APIPrefix, store)
	return &fixture{
		db:     database,
		store:  store,
		client: client,
		deps: Deps{
			Client:   client,
			Session:  store,
			Previews: previews,
			Logger:   zerolog.Nop(),
			StartDir: t.TempDir(),
		},
	}
}

// run executes cmd and every command the resulting updates return.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 200, "update loop did not settle")
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case nil, spinner.TickMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			updated, c := m.Update(msg)
			m = updated.(Model)
			queue = append(queue, c)
		}
	}
	return m
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	return run(t, updated.(Model), cmd)
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		m = send(t, m, keyMsg(k))
	}
	return m
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+o":
		return tea.KeyMsg{Type: tea.KeyCtrlO}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyCtrlP}
	case "ctrl+b":
		return tea.KeyMsg{Type: tea.KeyCtrlB}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func signIn(t *testing.T, f *fixture, email, password string) Model {
	t.Helper()
	m := NewModel(f.deps)
	m = run(t, m, m.Init())
	m = typeText(t, m, email)
	m = press(t, m, "enter")
	m = typeText(t, m, password)
	return press(t, m, "enter")
}

func openLead(t *testing.T, f *fixture) Model {
	t.Helper()
	m := signIn(t, f, db.DemoEmail, db.DemoPassword)
	m = send(t, m, openSectionMsg{section: "leads"})
	require.Len(t, m.records, 1)
	m = press(t, m, "enter")
	require.Equal(t, ViewDetail, m.viewMode, "%v", m.err)
	return m
}

func TestSignInOpensDefaultSection(t *testing.T) {
	f := newFixture(t, true)
	m := signIn(t, f, db.DemoEmail, db.DemoPassword)

	require.Equal(t, ViewList, m.viewMode, "%v", m.err)
	assert.True(t, f.store.Authenticated())
	assert.Equal(t, "ADMIN", f.store.Role())
	assert.Equal(t, []models.EntityKind{models.KindContact}, m.kinds)
	require.Len(t, m.records, 1)
	assert.Equal(t, "Grace Hopper", m.records[0].Label())
	assert.Equal(t, "contacts", m.shell.State().ActiveSection)
	assert.Contains(t, m.View(), "Grace Hopper")

	var admin bool
	for _, e := range m.shell.Menu() {
		admin = admin || e.Admin
	}
	assert.True(t, admin, "admins see the admin entries")
}

func TestWrongPasswordStaysOnLogin(t *testing.T) {
	f := newFixture(t, true)
	m := signIn(t, f, db.DemoEmail, "nope")

	assert.Equal(t, ViewLogin, m.viewMode)
	assert.ErrorIs(t, m.err, api.ErrInvalidCredentials)
	assert.False(t, f.store.Authenticated())
}

func TestMissingCredentials(t *testing.T) {
	f := newFixture(t, true)
	m := NewModel(f.deps)
	m = run(t, m, m.Init())
	m = press(t, m, "tab", "enter")
	assert.ErrorIs(t, m.err, errCredentialsRequired)
}

func TestFirstRunSignsUp(t *testing.T) {
	f := newFixture(t, false)
	m := NewModel(f.deps)
	m = run(t, m, m.Init())
	require.True(t, m.signUp, "an empty server asks for the first account")

	m = typeText(t, m, "founder@example.com")
	m = press(t, m, "enter")
	m = typeText(t, m, "secret")
	m = press(t, m, "enter")

	require.Equal(t, ViewList, m.viewMode, "%v", m.err)
	assert.Equal(t, "ADMIN", f.store.Role())
	assert.Empty(t, m.records)
}

func TestOrgPickerSetsRole(t *testing.T) {
	f := newFixture(t, true)
	admin, err := db.GetUserByEmail(f.db, db.DemoEmail)
	require.NoError(t, err)
	orgID, err := db.CreateOrg(f.db, "Acme")
	require.NoError(t, err)
	require.NoError(t, db.AddMember(f.db, admin.ID, orgID, "USER"))

	m := signIn(t, f, db.DemoEmail, db.DemoPassword)
	require.Equal(t, ViewOrgPicker, m.viewMode, "%v", m.err)
	require.Len(t, m.orgs, 2)
	assert.Contains(t, m.View(), "Acme")

	idx := 0
	if m.orgs[1].ID == orgID {
		idx = 1
		m = press(t, m, "down")
	}
	m = press(t, m, "enter")

	require.Equal(t, ViewList, m.viewMode, "%v", m.err)
	assert.Equal(t, m.orgs[idx].ID, f.store.Org())
	assert.Equal(t, "USER", f.store.Role())
	for _, e := range m.shell.Menu() {
		assert.False(t, e.Admin, "members do not see %s", e.Section)
	}
	assert.Empty(t, m.records, "the new org has no contacts")
}

func TestResumesStoredSession(t *testing.T) {
	f := newFixture(t, true)
	signIn(t, f, db.DemoEmail, db.DemoPassword)

	m := NewModel(f.deps)
	m = run(t, m, m.Init())
	assert.Equal(t, ViewList, m.viewMode)
	assert.Len(t, m.records, 1)
}

func TestSectionsAndTabs(t *testing.T) {
	f := newFixture(t, true)
	m := signIn(t, f, db.DemoEmail, db.DemoPassword)

	m = send(t, m, openSectionMsg{section: "deals"})
	require.Equal(t, []models.EntityKind{models.KindLead, models.KindOpportunity}, m.kinds)
	require.Len(t, m.records, 1)
	assert.Equal(t, "Navy compiler rollout", m.records[0].Label())
	assert.Equal(t, "deals", m.shell.State().ActiveSection)

	m = press(t, m, "tab")
	assert.Equal(t, models.KindOpportunity, m.currentKind())
	require.Len(t, m.records, 1)
	assert.Equal(t, "Mainframe renewal", m.records[0].Label())

	m = press(t, m, "right")
	assert.Equal(t, "dashboard", m.shell.State().ActiveSection)
}

func TestDrawerToggleIsRemembered(t *testing.T) {
	f := newFixture(t, true)
	m := signIn(t, f, db.DemoEmail, db.DemoPassword)

	m = press(t, m, "ctrl+b")
	assert.Equal(t, models.DrawerExpanded, m.shell.State().Drawer)
	assert.Contains(t, m.View(), "ctrl+b: collapse")

	again := NewModel(f.deps)
	assert.Equal(t, models.DrawerExpanded, again.shell.State().Drawer)
}

func TestDetailShowsRecord(t *testing.T) {
	f := newFixture(t, true)
	m := openLead(t, f)

	agg, err := m.screen.Aggregate()
	require.NoError(t, err)
	assert.Equal(t, "Navy compiler rollout", agg.Entity.String("title"))
	assert.Equal(t, "leads", m.shell.State().ActiveSection)

	view := m.View()
	assert.Contains(t, view, "Navy compiler rollout")
	assert.Contains(t, view, "Ada Admin")
	assert.Contains(t, view, "no notes yet")
}

func TestNoteWithAttachment(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, os.WriteFile(filepath.Join(f.deps.StartDir, "note.txt"), []byte("hello world"), 0o600))
	m := openLead(t, f)

	m = press(t, m, "a")
	require.Equal(t, ViewFilePicker, m.viewMode)
	m = press(t, m, "enter")
	require.Equal(t, ViewDetail, m.viewMode, "%v", m.err)
	require.Equal(t, 1, m.screen.Attachments().StagedCount())
	assert.Equal(t, 1, m.screen.Attachments().LivePreviews())
	assert.Contains(t, m.View(), "not sent")

	m = press(t, m, "n")
	m = typeText(t, m, "first call went well")
	m = press(t, m, "ctrl+s")

	require.NoError(t, m.err)
	assert.Equal(t, "Note saved", m.status)
	assert.False(t, m.noteFocused)

	thread := m.screen.Comments().Thread(m.order)
	require.Len(t, thread, 1)
	assert.Equal(t, "first call went well", thread[0].Body)

	items := m.screen.Attachments().Items()
	require.Len(t, items, 1)
	assert.Equal(t, workspace.AttachmentPersisted, items[0].Kind())
	assert.Equal(t, "note.txt", items[0].Name())
	assert.Zero(t, m.screen.Attachments().LivePreviews())
}

func TestMultilineNoteKeepsLineBreaks(t *testing.T) {
	f := newFixture(t, true)
	m := openLead(t, f)

	m = press(t, m, "n")
	m = typeText(t, m, "agenda:")
	m = press(t, m, "enter")
	m = typeText(t, m, "pricing")
	m = press(t, m, "ctrl+s")

	require.NoError(t, m.err)
	thread := m.screen.Comments().Thread(m.order)
	require.Len(t, thread, 1)
	assert.Equal(t, "agenda:\npricing", thread[0].Body)
	assert.True(t, m.screen.Comments().Draft().Empty())
}

func TestEmptyNoteIsRejectedLocally(t *testing.T) {
	f := newFixture(t, true)
	m := openLead(t, f)

	m = press(t, m, "ctrl+s")
	require.Error(t, m.err)
	assert.Contains(t, m.err.Error(), "write something")
}

func TestRemoveStagedAttachment(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, os.WriteFile(filepath.Join(f.deps.StartDir, "a.txt"), []byte("a"), 0o600))
	m := openLead(t, f)

	m = press(t, m, "a", "enter")
	require.Equal(t, 1, m.screen.Attachments().Len())

	m = press(t, m, "x")
	assert.Zero(t, m.screen.Attachments().Len())
	assert.Zero(t, m.screen.Attachments().LivePreviews())
}

func TestPickerCancel(t *testing.T) {
	f := newFixture(t, true)
	m := openLead(t, f)

	m = press(t, m, "a", "esc")
	assert.Equal(t, ViewDetail, m.viewMode)
	assert.Zero(t, m.screen.Attachments().Len())
}

func TestThreadOrderToggle(t *testing.T) {
	f := newFixture(t, true)
	m := openLead(t, f)

	assert.Equal(t, workspace.RecentLast, m.order)
	m = press(t, m, "o")
	assert.Equal(t, workspace.RecentFirst, m.order)
	m = press(t, m, "o")
	assert.Equal(t, workspace.RecentLast, m.order)
}

func TestEditSavesChangedFields(t *testing.T) {
	f := newFixture(t, true)
	m := openLead(t, f)

	m = press(t, m, "e")
	require.Equal(t, ViewEdit, m.viewMode, "%v", m.err)
	require.NotNil(t, m.handoff)
	assert.Equal(t, "US", m.handoff.String("country"))
	assert.Equal(t, "Ada", m.handoff.String("first_name"))
	assert.Equal(t, "/app/leads/edit-lead", m.nav.Route())
	assert.NotContains(t, m.formKeys, "id")

	idx := -1
	for i, k := range m.formKeys {
		if k == "title" {
			idx = i
		}
	}
	require.NotEqual(t, -1, idx)
	m.formInputs[idx].SetValue("Compiler rollout phase two")

	m = press(t, m, "enter")
	require.Equal(t, ViewDetail, m.viewMode, "%v", m.err)
	assert.Equal(t, "Saved", m.status)
	assert.Equal(t, "/app/leads/lead-details", m.nav.Route())

	agg, err := m.screen.Aggregate()
	require.NoError(t, err)
	assert.Equal(t, "Compiler rollout phase two", agg.Entity.String("title"))
	assert.Equal(t, "United States", agg.Entity.String("country"), "untouched fields keep their server shape")
}

func TestEditOffersCountryWhenUnmatched(t *testing.T) {
	f := newFixture(t, true)
	orgID, err := db.FirstOrg(f.db)
	require.NoError(t, err)
	leads, err := db.ListRecords(f.db, orgID, string(models.KindLead))
	require.NoError(t, err)
	require.Len(t, leads, 1)
	id := leads[0]["id"].(string)
	require.NoError(t, db.UpdateRecord(f.db, orgID, string(models.KindLead), id, map[string]any{"country": "Atlantis"}))

	m := openLead(t, f)
	m = press(t, m, "e")
	require.Equal(t, ViewEdit, m.viewMode, "%v", m.err)
	assert.False(t, m.handoff.Has("country"))

	idx := -1
	for i, k := range m.formKeys {
		if k == "country" {
			idx = i
		}
	}
	require.NotEqual(t, -1, idx, "country input is always offered")
	assert.Empty(t, m.formInputs[idx].Value())
	m.formInputs[idx].SetValue("Germany")

	m = press(t, m, "enter")
	require.Equal(t, ViewDetail, m.viewMode, "%v", m.err)
	doc, err := db.GetRecord(f.db, orgID, string(models.KindLead), id)
	require.NoError(t, err)
	assert.Equal(t, "DE", doc["country"])
}

func TestEditWithoutChanges(t *testing.T) {
	f := newFixture(t, true)
	m := openLead(t, f)

	m = press(t, m, "e", "enter")
	assert.Equal(t, ViewDetail, m.viewMode)
	assert.Equal(t, "No changes", m.status)
	assert.Nil(t, m.handoff)
}

func TestEditCancel(t *testing.T) {
	f := newFixture(t, true)
	m := openLead(t, f)

	m = press(t, m, "e", "esc")
	assert.Equal(t, ViewDetail, m.viewMode)
	assert.Equal(t, "/app/leads/lead-details", m.nav.Route())
	_, err := m.nav.Take("/app/leads/edit-lead")
	assert.ErrorIs(t, err, workspace.ErrNoHandoff, "the hand-off was consumed on open")
}

func TestMissingRecordFallsBackToList(t *testing.T) {
	f := newFixture(t, true)
	m := signIn(t, f, db.DemoEmail, db.DemoPassword)

	updated, cmd := m.openDetail(models.KindLead, "999999")
	m = run(t, updated.(Model), cmd)

	assert.Equal(t, ViewList, m.viewMode)
	assert.Nil(t, m.screen)
	assert.Equal(t, models.KindLead, m.currentKind())
	require.Error(t, m.err)
	var lf *api.LoadFailure
	require.ErrorAs(t, m.err, &lf)
	assert.Equal(t, api.FailureNotFound, lf.Kind)
	assert.Len(t, m.records, 1)
}

func TestBackToList(t *testing.T) {
	f := newFixture(t, true)
	m := openLead(t, f)

	m = press(t, m, "esc")
	assert.Equal(t, ViewList, m.viewMode)
	assert.Nil(t, m.screen)
	assert.Equal(t, models.KindLead, m.currentKind())
}

func TestProfileUpdateAndValidation(t *testing.T) {
	f := newFixture(t, true)
	m := signIn(t, f, db.DemoEmail, db.DemoPassword)

	m = press(t, m, "ctrl+p")
	require.Equal(t, ViewProfile, m.viewMode)
	require.NotNil(t, m.profileForm, "%v", m.err)
	assert.Equal(t, "Ada", m.profileForm.FirstName)
	assert.Equal(t, "Springfield", m.profileForm.City)
	assert.Equal(t, "profile", m.shell.State().ActiveSection)

	labels := map[string]int{}
	for i, field := range m.profileForm.Fields() {
		labels[field.Label] = i
	}
	m.profileInputs[labels["Last Name"]].SetValue("Lovelace")
	m = press(t, m, "ctrl+s")
	require.NoError(t, m.err)
	assert.Equal(t, "Profile updated", m.status)

	p, err := f.client.GetProfile(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", p.UserObj.UserDetails.LastName)

	m.profileInputs[labels["Email"]].SetValue("not-an-email")
	m = press(t, m, "ctrl+s")
	assert.Contains(t, m.fieldErrors, "email")
	assert.Contains(t, m.View(), "email:")

	m = press(t, m, "esc")
	assert.Equal(t, ViewList, m.viewMode)
	assert.Nil(t, m.profileForm)
}

func TestSignOutWipesSession(t *testing.T) {
	f := newFixture(t, true)
	m := openLead(t, f)

	m = press(t, m, "ctrl+o")
	assert.Equal(t, ViewLogin, m.viewMode)
	assert.Nil(t, m.screen)
	assert.False(t, f.store.Authenticated())
	assert.False(t, m.shell.Authenticated())
	assert.Equal(t, workspace.LoginRoute, m.nav.Route())
	assert.Empty(t, m.loginInputs[0].Value())

	_, ok := m.nav.Back()
	assert.False(t, ok, "history is dropped on sign-out")
}

func TestRevokedTokenSignsOut(t *testing.T) {
	f := newFixture(t, true)
	m := signIn(t, f, db.DemoEmail, db.DemoPassword)

	require.NoError(t, f.store.Set(session.KeyToken, "revoked"))
	m = press(t, m, "r")
	assert.Equal(t, ViewLogin, m.viewMode)
	assert.False(t, f.store.Authenticated())
}
