// ABOUTME: End-to-end test driving the API client and workspace controllers against the stub
// ABOUTME: Signs in, picks an org, posts a note with a staged file and opens the edit hand-off
package web_test

import (
	"context"
	"net/http/httptest"
	"testing"

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

func TestClientAgainstStub(t *testing.T) {
	ctx := context.Background()

	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	_, err = db.SeedDemo(database)
	require.NoError(t, err)

	ts := httptest.NewServer(web.NewServer(database, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)

	store, err := session.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	client := api.New(ts.URL+web.APIPrefix, store)

	n, err := client.CheckUserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = client.Login(ctx, db.DemoEmail, "wrong")
	assert.ErrorIs(t, err, api.ErrInvalidCredentials)

	token, err := client.Login(ctx, db.DemoEmail, db.DemoPassword)
	require.NoError(t, err)
	require.NoError(t, store.SetLogin(token, ""))

	_, err = client.ListRecords(ctx, models.KindLead)
	assert.ErrorIs(t, err, api.ErrNotAuthenticated)

	orgs, err := client.Organizations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	require.NoError(t, store.SetOrg(orgs[0].ID))
	require.NoError(t, store.SetRole(orgs[0].Role))

	leads, err := client.ListRecords(ctx, models.KindLead)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	id := leads[0].String("id")

	previews, err := workspace.NewTempFilePreviews(t.TempDir())
	require.NoError(t, err)
	screen := workspace.NewScreen(client, previews, models.KindLead, id, zerolog.Nop())
	require.NoError(t, screen.Mount(ctx))
	t.Cleanup(screen.Unmount)

	agg, err := screen.Aggregate()
	require.NoError(t, err)
	assert.Equal(t, "Navy compiler rollout", agg.Entity.String("title"))
	assert.Equal(t, "Ada Admin", agg.Entity.AssignedName())

	// An empty draft never reaches the server.
	assert.ErrorIs(t, screen.Comments().Submit(ctx), workspace.ErrEmptyDraft)

	_, err = screen.Attachments().AddStaged(workspace.NewStagedFile("minutes.txt", []byte("agenda")))
	require.NoError(t, err)
	screen.Comments().SetText("sent the minutes")
	require.NoError(t, screen.Comments().Submit(ctx))

	thread := screen.Comments().Thread(workspace.RecentFirst)
	require.Len(t, thread, 1)
	assert.Equal(t, "sent the minutes", thread[0].Body)
	assert.Equal(t, "Ada Admin", thread[0].Author)
	assert.True(t, screen.Comments().Draft().Empty())

	items := screen.Attachments().Items()
	require.Len(t, items, 1)
	assert.Equal(t, workspace.AttachmentPersisted, items[0].Kind())
	assert.Equal(t, "minutes.txt", items[0].Name())
	assert.Equal(t, 0, screen.Attachments().LivePreviews())

	nav := workspace.NewNavigator("/app/leads")
	route, err := screen.Edit(nav)
	require.NoError(t, err)
	spec, _ := models.SpecFor(models.KindLead)
	assert.Equal(t, spec.EditRoute, route)

	handoff, err := nav.Take(route)
	require.NoError(t, err)
	assert.Equal(t, "US", handoff.String("country"))
	assert.Equal(t, "Ada", handoff.String("first_name"))

	values := handoff.Values()
	values["status"] = "converted"
	require.NoError(t, client.UpdateEntity(ctx, models.KindLead, id, values))

	require.NoError(t, screen.Reload(ctx))
	agg, err = screen.Aggregate()
	require.NoError(t, err)
	assert.Equal(t, "converted", agg.Entity.String("status"))

	_, err = client.GetAggregate(ctx, models.KindLead, "missing")
	var lf *api.LoadFailure
	require.ErrorAs(t, err, &lf)
	assert.Equal(t, api.FailureNotFound, lf.Kind)
	assert.Equal(t, spec.ListRoute, lf.ListRoute)

	profile, err := client.GetProfile(ctx)
	require.NoError(t, err)
	form := profile.Form()
	form.JobTitle = "Head of Sales"
	require.NoError(t, client.UpdateProfile(ctx, profile.ID(), form))

	profile, err = client.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Head of Sales", profile.UserObj.UserDetails.JobTitle)
}
