// ABOUTME: Collection listing and organization membership calls
// ABOUTME: Feed the list screens and the org picker shown after sign-in
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/harperreed/leadopp/models"
)

// OrgPath lists the organizations of the signed-in user.
const OrgPath = "/org/"

// ListRecords fetches the collection of kind. The server may return a bare
// array, {"<kind>": [...]} or {"results": [...]}.
func (c *Client) ListRecords(ctx context.Context, kind models.EntityKind) ([]models.Record, error) {
	spec, ok := models.SpecFor(kind)
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	resp, err := c.do(ctx, http.MethodGet, EntityPath(kind)+"/", nil, orgScoped)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &LoadFailure{Kind: FailureNetwork, ListRoute: spec.ListRoute, Err: err}
	}
	if !resp.ok() {
		return nil, &LoadFailure{
			Kind:      failureForStatus(resp.status),
			Status:    resp.status,
			ListRoute: spec.ListRoute,
			Err:       errors.New(http.StatusText(resp.status)),
		}
	}

	records, err := decodeList(resp.body, string(kind))
	if err != nil {
		return nil, &LoadFailure{Kind: FailureMalformed, Status: resp.status, ListRoute: spec.ListRoute, Err: err}
	}
	return records, nil
}

func decodeList(body []byte, key string) ([]models.Record, error) {
	var list []models.Record
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	for _, k := range []string{key, "results"} {
		raw, ok := top[k]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode %s: %w", k, err)
		}
		return list, nil
	}
	return nil, fmt.Errorf("response has no %s list", key)
}

type orgListResponse struct {
	ProfileOrgList []struct {
		Role string `json:"role"`
		Org  struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"org"`
	} `json:"profile_org_list"`
}

// Organizations lists the orgs the token's user belongs to. It needs a token
// but no selected org.
func (c *Client) Organizations(ctx context.Context) ([]models.Organization, error) {
	resp, err := c.do(ctx, http.MethodGet, OrgPath, nil, tokenOnly)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, &LoadFailure{
			Kind:   failureForStatus(resp.status),
			Status: resp.status,
			Err:    fmt.Errorf("error fetching organizations: %s", http.StatusText(resp.status)),
		}
	}

	var out orgListResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, &LoadFailure{Kind: FailureMalformed, Status: resp.status, Err: err}
	}
	orgs := make([]models.Organization, 0, len(out.ProfileOrgList))
	for _, p := range out.ProfileOrgList {
		orgs = append(orgs, models.Organization{ID: p.Org.ID, Name: p.Org.Name, Role: p.Role})
	}
	return orgs, nil
}
