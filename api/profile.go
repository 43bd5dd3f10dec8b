// ABOUTME: User profile read and update calls
// ABOUTME: Reads the nested profile and writes back the flattened form
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/harperreed/leadopp/models"
)

// GetProfile fetches the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*models.UserProfile, error) {
	resp, err := c.do(ctx, http.MethodGet, ProfilePath+"/", nil, orgScoped)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, &LoadFailure{
			Kind:      failureForStatus(resp.status),
			Status:    resp.status,
			ListRoute: "/app/profile",
			Err:       fmt.Errorf("error fetching profile: %s", http.StatusText(resp.status)),
		}
	}

	var p models.UserProfile
	if err := json.Unmarshal(resp.body, &p); err != nil {
		return nil, &LoadFailure{Kind: FailureMalformed, Status: resp.status, ListRoute: "/app/profile", Err: err}
	}
	return &p, nil
}

// UpdateProfile writes the flat form for profile id.
func (c *Client) UpdateProfile(ctx context.Context, id string, form models.ProfileForm) error {
	if id == "" {
		return errors.New("profile id is required")
	}
	resp, err := c.do(ctx, http.MethodPut, ProfilePath+"/"+url.PathEscape(id)+"/", form, orgScoped)
	if err != nil {
		return err
	}
	return writeResult(resp)
}
