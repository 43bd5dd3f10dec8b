// ABOUTME: Tests for the CRM API client
// ABOUTME: Uses httptest servers to verify headers, decoding and error classification
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadopp/models"
)

type staticCreds struct{ token, org string }

func (s staticCreds) Token() string { return s.token }
func (s staticCreds) Org() string   { return s.org }

var testCreds = staticCreds{token: "Bearer abc", org: "org-1"}

const leadBody = `{
	"lead_obj": {"id":"L1","status":"open","tags":["vip"],"contacts":[{"id":"c1"},{"id":"c2"}]},
	"users": [{"id":"u1","user_details":{"email":"rep@x.io"}}],
	"attachments": ["https://files.example/a.pdf"],
	"tags": [{"id":"t1","name":"vip"}],
	"countries": [["US","United States"]],
	"industries": [["TECH","Technology"]],
	"status": [["open","Open"],["closed","Closed"]],
	"source": [["web","Website"]],
	"contacts": [{"id":"c1","first_name":"Ada","last_name":"L"}],
	"teams": [{"id":"tm1","name":"Sales"}],
	"comments": [{"id":"k1","comment":"first","commented_by":"rep@x.io","commented_on":"2024-01-01T00:00:00Z"}]
}`

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", testCreds)
}

func TestGetAggregateSendsHeadersAndDecodes(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/leads/L1/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "org-1", r.Header.Get("org"))
		_, _ = w.Write([]byte(leadBody))
	})

	agg, err := c.GetAggregate(context.Background(), models.KindLead, "L1")
	require.NoError(t, err)

	assert.Equal(t, "L1", agg.ID)
	assert.Equal(t, models.KindLead, agg.Kind)
	assert.Equal(t, "open", agg.Entity.String("status"))
	assert.Equal(t, []string{"vip"}, agg.Entity.Strings("tags"))
	assert.Equal(t, "US", agg.Lookups.Countries[0].Code)
	assert.Len(t, agg.Lookups.Statuses, 2)
	assert.Equal(t, "Sales", agg.Lookups.Teams[0].Label)
	assert.Equal(t, "Ada L", agg.Lookups.Contacts[0].Label)
	require.Len(t, agg.Attachments, 1)
	assert.Equal(t, "a.pdf", agg.Attachments[0].Name)
	require.Len(t, agg.Comments, 1)
	assert.Equal(t, "first", agg.Comments[0].Body)
}

func TestGetAggregateFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   FailureKind
	}{
		{"not found", http.StatusNotFound, `{}`, FailureNotFound},
		{"unauthorized", http.StatusUnauthorized, `{}`, FailureUnauthorized},
		{"forbidden", http.StatusForbidden, `{}`, FailureUnauthorized},
		{"server error", http.StatusInternalServerError, `{}`, FailureStatus},
		{"missing object", http.StatusOK, `{"users":[]}`, FailureMalformed},
		{"null object", http.StatusOK, `{"lead_obj":null}`, FailureMalformed},
		{"bad json", http.StatusOK, `{"lead_obj":`, FailureMalformed},
		{"bad lookup", http.StatusOK, `{"lead_obj":{},"countries":[[]]}`, FailureMalformed},
		{"flagged error", http.StatusOK, `{"error":true,"lead_obj":{}}`, FailureStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			agg, err := c.GetAggregate(context.Background(), models.KindLead, "L1")
			assert.Nil(t, agg)

			var lf *LoadFailure
			require.ErrorAs(t, err, &lf)
			assert.Equal(t, tt.want, lf.Kind)
			assert.Equal(t, "/app/leads", lf.ListRoute)
		})
	}
}

func TestGetAggregateNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL, testCreds)

	_, err := c.GetAggregate(context.Background(), models.KindContact, "C1")

	var lf *LoadFailure
	require.ErrorAs(t, err, &lf)
	assert.Equal(t, FailureNetwork, lf.Kind)
	assert.Equal(t, "/app/contacts", lf.ListRoute)
}

func TestGetAggregateWithoutCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()
	c := New(srv.URL, staticCreds{})

	_, err := c.GetAggregate(context.Background(), models.KindLead, "L1")

	var lf *LoadFailure
	require.ErrorAs(t, err, &lf)
	assert.Equal(t, FailureUnauthorized, lf.Kind)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, called, "no request without credentials")
}

func TestGetAggregateCancelled(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetAggregate(ctx, models.KindLead, "L1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPostComment(t *testing.T) {
	var got map[string]any
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/leads/L1/", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"error":false}`))
	})

	err := c.PostComment(context.Background(), models.KindLead, "L1", "hello", []string{"https://files.example/a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "hello", got["Comment"])
	assert.Equal(t, []any{"https://files.example/a.pdf"}, got["attachment_refs"])
}

func TestPostCommentValidationFailure(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":true,"errors":{"comment":["This field may not be blank."]}}`))
	})

	err := c.PostComment(context.Background(), models.KindLead, "L1", "x", nil)

	var vf *ValidationFailure
	require.ErrorAs(t, err, &vf)
	assert.Equal(t, "This field may not be blank.", vf.Field("comment"))
	assert.Equal(t, "", vf.Field("other"))
}

func TestPostCommentServerStatus(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := c.PostComment(context.Background(), models.KindLead, "L1", "x", nil)

	var vf *ValidationFailure
	require.ErrorAs(t, err, &vf)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), vf.Message)
}

func TestPostCommentTransientFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL, testCreds)

	err := c.PostComment(context.Background(), models.KindLead, "L1", "x", nil)

	var tf *TransientNetworkFailure
	require.ErrorAs(t, err, &tf)
	assert.False(t, errors.As(err, new(*ValidationFailure)))
}

func TestProfileRoundTrip(t *testing.T) {
	var put models.ProfileForm
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "/api/profile/", r.URL.Path)
			_, _ = w.Write([]byte(`{"user_obj":{"id":"p1","phone":"555","user_details":{"email":"a@b.co","first_name":"Ada"},"address":{"city":"SF"}}}`))
		case http.MethodPut:
			assert.Equal(t, "/api/profile/p1/", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&put))
			_, _ = w.Write([]byte(`{}`))
		}
	})

	p, err := c.GetProfile(context.Background())
	require.NoError(t, err)
	form := p.Form()
	assert.Equal(t, "SF", form.City)

	form.City = "LA"
	require.NoError(t, c.UpdateProfile(context.Background(), p.ID(), form))
	assert.Equal(t, "LA", put.City)
	assert.Equal(t, "555", put.MobileNumber)
}

func TestLoginAndRegister(t *testing.T) {
	logins := 0
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api" + LoginPath:
			logins++
			var req credentialsRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Password != "secret" {
				_, _ = w.Write([]byte(`{"detail":"bad"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"tok"}`))
		case "/api" + RegisterPath:
			_, _ = w.Write([]byte(`{"email":"a@b.co","user_id":"u1"}`))
		case "/api" + CheckUserCountPath:
			_, _ = w.Write([]byte(`{"user_count":3}`))
		}
	})
	ctx := context.Background()

	tok, err := c.Login(ctx, "a@b.co", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", tok)

	_, err = c.Login(ctx, "a@b.co", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	tok, err = c.Register(ctx, "a@b.co", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", tok)
	assert.Equal(t, 3, logins)

	n, err := c.CheckUserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestGoogleOAuthConfig(t *testing.T) {
	cfg := GoogleOAuthConfig("id", "secret", "http://localhost/cb")
	assert.Contains(t, cfg.AuthCodeURL("state"), "accounts.google.com")
	assert.Contains(t, cfg.Scopes, "email")
}
