// ABOUTME: Tests for the command tree run against an in-process stub server
// ABOUTME: Each test writes a config file and runs commands the way a shell would
package cli

import (
	"bytes"
	"context"
	"database/sql"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadopp/api"
	"github.com/harperreed/leadopp/config"
	"github.com/harperreed/leadopp/db"
	"github.com/harperreed/leadopp/models"
	"github.com/harperreed/leadopp/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type env struct {
	db      *sql.DB
	orgID   string
	dir     string
	cfgPath string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	orgID, err := db.SeedDemo(database)
	require.NoError(t, err)

	ts := httptest.NewServer(web.NewServer(database, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Server = ts.URL
	cfg.SessionDir = filepath.Join(dir, "session")
	cfg.PreviewDir = filepath.Join(dir, "previews")
	cfg.LogFile = filepath.Join(dir, "leadopp.log")
	cfg.Stub.Database = filepath.Join(dir, "stub.db")
	cfg.Stub.Addr = "127.0.0.1:0"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.Save(path))

	return &env{db: database, orgID: orgID, dir: dir, cfgPath: path}
}

func (e *env) run(ctx context.Context, stdin string, args ...string) (string, error) {
	var out bytes.Buffer
	root := New("test")
	root.Writer = &out
	root.ErrWriter = &out
	root.Reader = strings.NewReader(stdin)
	err := root.Run(ctx, append([]string{"leadopp", "--config", e.cfgPath}, args...))
	return out.String(), err
}

func (e *env) login(t *testing.T) {
	t.Helper()
	out, err := e.run(t.Context(), "", "login", "--email", db.DemoEmail, "--password", db.DemoPassword)
	require.NoError(t, err, out)
	require.Contains(t, out, "Signed in to Demo Org as ADMIN")
}

func (e *env) leadID(t *testing.T) string {
	t.Helper()
	leads, err := db.ListRecords(e.db, e.orgID, string(models.KindLead))
	require.NoError(t, err)
	require.Len(t, leads, 1)
	return leads[0]["id"].(string)
}

func TestLoginPrompts(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t.Context(), db.DemoEmail+"\n"+db.DemoPassword+"\n", "login")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Email: ")
	assert.Contains(t, out, "Password: ")
	assert.Contains(t, out, "✓ Signed in")
}

func TestLoginRejected(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t.Context(), "", "login", "--email", db.DemoEmail, "--password", "nope")
	assert.ErrorIs(t, err, api.ErrInvalidCredentials)
}

func TestLoginNeedsOrgWhenSeveral(t *testing.T) {
	e := newEnv(t)
	admin, err := db.GetUserByEmail(e.db, db.DemoEmail)
	require.NoError(t, err)
	acme, err := db.CreateOrg(e.db, "Acme")
	require.NoError(t, err)
	require.NoError(t, db.AddMember(e.db, admin.ID, acme, "USER"))

	_, err = e.run(t.Context(), "", "login", "--email", db.DemoEmail, "--password", db.DemoPassword)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass --org")

	out, err := e.run(t.Context(), "", "login", "--email", db.DemoEmail, "--password", db.DemoPassword, "--org", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in to Acme as USER")
}

func TestGoogleLoginNeedsConfig(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t.Context(), "", "login", "--google")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestListAndShow(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	id := e.leadID(t)

	out, err := e.run(t.Context(), "", "list", "leads")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Navy compiler rollout")
	assert.Contains(t, out, "Ada Admin")

	out, err = e.run(t.Context(), "", "show", "leads", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Lead: Navy compiler rollout")
	assert.Contains(t, out, "tags")
	assert.Contains(t, out, "vip")

	out, err = e.run(t.Context(), "", "show", "--json", "leads", id)
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Navy compiler rollout"`)
}

func TestUnknownKind(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t.Context(), "", "list", "widgets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown kind "widgets"`)
}

func TestNoteWithAttachment(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	id := e.leadID(t)

	file := filepath.Join(e.dir, "quote.txt")
	require.NoError(t, os.WriteFile(file, []byte("ten units"), 0o600))

	out, err := e.run(t.Context(), "", "note", "-m", "sent the quote", "--attach", file, "leads", id)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ Note added to lead #"+id+" (1 attachments)")

	out, err = e.run(t.Context(), "", "show", "leads", id)
	require.NoError(t, err)
	assert.Contains(t, out, "sent the quote")
	assert.Contains(t, out, "quote.txt")

	_, err = e.run(t.Context(), "", "note", "leads", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--message or --body-file is required")
}

func TestNoteBodyFileWinsOverMessage(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	id := e.leadID(t)

	body := filepath.Join(e.dir, "body.md")
	require.NoError(t, os.WriteFile(body, []byte("**call back** on Friday"), 0o600))

	out, err := e.run(t.Context(), "", "note", "-m", "plain draft", "--body-file", body, "leads", id)
	require.NoError(t, err, out)

	comments, err := db.Comments(e.db, id)
	require.NoError(t, err)
	require.NotEmpty(t, comments)
	last := comments[len(comments)-1]
	assert.Equal(t, "**call back** on Friday", last.Body)

	_, err = e.run(t.Context(), "", "note", "--body-file", filepath.Join(e.dir, "missing.md"), "leads", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read note body")
}

func TestEditShowsAndSetsFields(t *testing.T) {
	e := newEnv(t)
	e.login(t)
	id := e.leadID(t)

	out, err := e.run(t.Context(), "", "edit", "leads", id)
	require.NoError(t, err)
	assert.Regexp(t, `country\s+US`, out)
	assert.Regexp(t, `first_name\s+Ada`, out)

	out, err = e.run(t.Context(), "", "edit", "--set", "title=Rollout two", "--set", "tags=vip, hot", "leads", id)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ Updated lead #"+id)

	doc, err := db.GetRecord(e.db, e.orgID, string(models.KindLead), id)
	require.NoError(t, err)
	assert.Equal(t, "Rollout two", doc["title"])
	assert.Equal(t, []any{"vip", "hot"}, doc["tags"])

	_, err = e.run(t.Context(), "", "edit", "--set", "title", "leads", id)
	require.Error(t, err)
}

func TestProfile(t *testing.T) {
	e := newEnv(t)
	e.login(t)

	out, err := e.run(t.Context(), "", "profile")
	require.NoError(t, err)
	assert.Regexp(t, `City\s+Springfield`, out)
	assert.Regexp(t, `Role\s+ADMIN`, out)

	out, err = e.run(t.Context(), "", "profile", "--set", "city=Shelbyville")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ Profile updated")

	out, err = e.run(t.Context(), "", "profile")
	require.NoError(t, err)
	assert.Contains(t, out, "Shelbyville")

	_, err = e.run(t.Context(), "", "profile", "--set", "email=broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email:")

	_, err = e.run(t.Context(), "", "profile", "--set", "shoe_size=9")
	require.Error(t, err)
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	e.login(t)

	out, err := e.run(t.Context(), "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	_, err = e.run(t.Context(), "", "list", "leads")
	assert.ErrorIs(t, err, api.ErrNotAuthenticated)
}

func TestStubSeedsAndStops(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	out, err := e.run(ctx, "", "stub")
	require.NoError(t, err)
	assert.Contains(t, out, "Stub API on http://127.0.0.1:0/api")

	stubDB, err := db.OpenDatabase(filepath.Join(e.dir, "stub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = stubDB.Close() })
	n, err := db.CountUsers(stubDB)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPickOrg(t *testing.T) {
	orgs := []models.Organization{{ID: "1", Name: "Demo", Role: "ADMIN"}, {ID: "2", Name: "Acme", Role: "USER"}}

	org, err := pickOrg(orgs, "2")
	require.NoError(t, err)
	assert.Equal(t, "Acme", org.Name)

	_, err = pickOrg(orgs, "")
	assert.Error(t, err)
	_, err = pickOrg(orgs, "nope")
	assert.Error(t, err)
	_, err = pickOrg(nil, "")
	assert.Error(t, err)

	org, err = pickOrg(orgs[:1], "")
	require.NoError(t, err)
	assert.Equal(t, "1", org.ID)
}
