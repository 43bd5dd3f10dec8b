// ABOUTME: Sign-in, sign-up, Google token exchange and first-run user count calls
// ABOUTME: Tokens are returned in "Bearer <token>" form ready for the Authorization header
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges email and password for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, LoginPath, credentialsRequest{Email: email, Password: password}, public)
	if err != nil {
		return "", err
	}
	return bearerFrom(resp)
}

// Register creates the account and signs in with it.
func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, RegisterPath, credentialsRequest{Email: email, Password: password}, public)
	if err != nil {
		return "", err
	}

	var out struct {
		Email  string `json:"email"`
		UserID string `json:"user_id"`
	}
	if err := writeResult(resp); err != nil {
		return "", err
	}
	if err := json.Unmarshal(resp.body, &out); err != nil || out.Email == "" || out.UserID == "" {
		return "", errors.New("error during sign-up")
	}

	token, err := c.Login(ctx, email, password)
	if err != nil {
		return "", fmt.Errorf("sign-up succeeded but automatic login failed: %w", err)
	}
	return token, nil
}

// GoogleLogin trades a Google access token for a CRM bearer token.
func (c *Client) GoogleLogin(ctx context.Context, googleAccessToken string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, GoogleAuthPath+"/", map[string]string{"token": googleAccessToken}, public)
	if err != nil {
		return "", err
	}
	return bearerFrom(resp)
}

// CheckUserCount reports how many users exist; zero selects first-run sign-up.
func (c *Client) CheckUserCount(ctx context.Context) (int, error) {
	resp, err := c.do(ctx, http.MethodGet, CheckUserCountPath, nil, public)
	if err != nil {
		return 0, err
	}
	if !resp.ok() {
		return 0, fmt.Errorf("user count: %s", http.StatusText(resp.status))
	}
	var out struct {
		UserCount int `json:"user_count"`
	}
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return 0, fmt.Errorf("decode user count: %w", err)
	}
	return out.UserCount, nil
}

func bearerFrom(resp *response) (string, error) {
	var out tokenResponse
	_ = json.Unmarshal(resp.body, &out)
	if !resp.ok() || out.AccessToken == "" {
		return "", ErrInvalidCredentials
	}
	return "Bearer " + out.AccessToken, nil
}

// GoogleOAuthConfig builds the OAuth2 config used for Google sign-in.
func GoogleOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

// ExchangeGoogleCode completes the authorization code flow and signs in.
func (c *Client) ExchangeGoogleCode(ctx context.Context, cfg *oauth2.Config, code string) (string, error) {
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("google token exchange: %w", err)
	}
	return c.GoogleLogin(ctx, tok.AccessToken)
}
