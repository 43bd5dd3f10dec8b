// ABOUTME: Aggregate reads and comment/entity writes for CRM records
// ABOUTME: Decodes the entity object and its lookup collections from a single response
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/harperreed/leadopp/models"
)

// EntityPath returns the collection path for kind, e.g. "/leads".
func EntityPath(kind models.EntityKind) string {
	return "/" + string(kind)
}

func recordPath(kind models.EntityKind, id string) string {
	return EntityPath(kind) + "/" + url.PathEscape(id) + "/"
}

// GetAggregate performs the single read behind a detail screen. Every
// failure is a *LoadFailure unless ctx was cancelled.
func (c *Client) GetAggregate(ctx context.Context, kind models.EntityKind, id string) (*models.Aggregate, error) {
	spec, ok := models.SpecFor(kind)
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	fail := func(k FailureKind, status int, err error) error {
		c.log.Error().Err(err).Str("kind", string(kind)).Str("id", id).Str("failure", k.String()).Msg("aggregate load failed")
		return &LoadFailure{Kind: k, Status: status, ListRoute: spec.ListRoute, Err: err}
	}

	if id == "" {
		return nil, fail(FailureNotFound, 0, errors.New("empty record id"))
	}

	resp, err := c.do(ctx, http.MethodGet, recordPath(kind, id), nil, orgScoped)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrNotAuthenticated) {
			return nil, fail(FailureUnauthorized, 0, err)
		}
		return nil, fail(FailureNetwork, 0, err)
	}
	if !resp.ok() {
		return nil, fail(failureForStatus(resp.status), resp.status, errors.New(http.StatusText(resp.status)))
	}

	agg, err := decodeAggregate(resp.body, spec)
	if err != nil {
		var lf *LoadFailure
		if errors.As(err, &lf) {
			lf.ListRoute = spec.ListRoute
			return nil, fail(lf.Kind, resp.status, lf.Err)
		}
		return nil, fail(FailureMalformed, resp.status, err)
	}
	agg.ID = id
	return agg, nil
}

type wireAggregate struct {
	Users       []models.Choice        `json:"users"`
	Attachments []models.AttachmentRef `json:"attachments"`
	Tags        []models.Choice        `json:"tags"`
	Countries   []models.Choice        `json:"countries"`
	Industries  []models.Choice        `json:"industries"`
	Status      []models.Choice        `json:"status"`
	Source      []models.Choice        `json:"source"`
	Contacts    []models.Choice        `json:"contacts"`
	Teams       []models.Choice        `json:"teams"`
	Comments    []models.Comment       `json:"comments"`
}

// decodeAggregate validates the whole body before anything is returned.
func decodeAggregate(body []byte, spec models.KindSpec) (*models.Aggregate, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("decode aggregate: %w", err)
	}

	if raw, ok := top["error"]; ok {
		var env errorEnvelope
		env.Error = raw
		if env.flagged() {
			return nil, &LoadFailure{Kind: FailureStatus, Err: errors.New("server reported an error")}
		}
	}

	rawObj, ok := top[spec.ObjectKey]
	if !ok || len(bytes.TrimSpace(rawObj)) == 0 || string(bytes.TrimSpace(rawObj)) == "null" {
		return nil, fmt.Errorf("response has no %s", spec.ObjectKey)
	}
	var entity models.Record
	if err := json.Unmarshal(rawObj, &entity); err != nil {
		return nil, fmt.Errorf("decode %s: %w", spec.ObjectKey, err)
	}

	var w wireAggregate
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("decode lookups: %w", err)
	}

	return &models.Aggregate{
		Kind:   spec.Kind,
		Entity: entity,
		Lookups: models.Lookups{
			Statuses:   w.Status,
			Sources:    w.Source,
			Industries: w.Industries,
			Countries:  w.Countries,
			Tags:       w.Tags,
			Teams:      w.Teams,
			Users:      w.Users,
			Contacts:   w.Contacts,
		},
		Attachments: w.Attachments,
		Comments:    w.Comments,
	}, nil
}

type commentRequest struct {
	Comment        string   `json:"Comment"`
	AttachmentRefs []string `json:"attachment_refs"`
}

// PostComment submits a note with the attachment references to keep. The
// response body is not trusted; callers reload the aggregate on success.
func (c *Client) PostComment(ctx context.Context, kind models.EntityKind, id, body string, refs []string) error {
	if refs == nil {
		refs = []string{}
	}
	resp, err := c.do(ctx, http.MethodPost, recordPath(kind, id), commentRequest{Comment: body, AttachmentRefs: refs}, orgScoped)
	if err != nil {
		return err
	}
	return writeResult(resp)
}

// UpdateEntity saves an edit form.
func (c *Client) UpdateEntity(ctx context.Context, kind models.EntityKind, id string, values map[string]any) error {
	resp, err := c.do(ctx, http.MethodPut, recordPath(kind, id), values, orgScoped)
	if err != nil {
		return err
	}
	return writeResult(resp)
}
