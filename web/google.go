// ABOUTME: Google access token verification for the stub sign-in route
// ABOUTME: Reads the token owner's verified email through the Google OAuth2 userinfo API
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleVerifier resolves a Google access token to a verified email.
type GoogleVerifier interface {
	VerifyEmail(ctx context.Context, accessToken string) (string, error)
}

// GoogleUserinfo verifies tokens with the userinfo service. Endpoint
// overrides the Google API root, mostly for tests.
type GoogleUserinfo struct {
	Endpoint string
	base     *http.Client
}

// NewGoogleUserinfo uses base as the underlying transport client; nil means
// http.DefaultClient.
func NewGoogleUserinfo(base *http.Client) *GoogleUserinfo {
	return &GoogleUserinfo{base: base}
}

func (g *GoogleUserinfo) VerifyEmail(ctx context.Context, accessToken string) (string, error) {
	if accessToken == "" {
		return "", errors.New("empty google token")
	}
	if g.base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.base)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.Endpoint))
	}
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create oauth2 service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("google userinfo: %w", err)
	}
	if info.Email == "" || info.VerifiedEmail == nil || !*info.VerifiedEmail {
		return "", errors.New("google account has no verified email")
	}
	return info.Email, nil
}
