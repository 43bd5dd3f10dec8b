// ABOUTME: Sign-in and sign-out commands
// ABOUTME: Password or Google login, then picks the organization and role for the session
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/harperreed/leadopp/api"
	"github.com/harperreed/leadopp/models"
)

type LoginCmd struct {
	app *App

	email    string
	password string
	org      string
	google   bool
	signUp   bool
}

func NewLoginCmd(app *App) *LoginCmd {
	return &LoginCmd{app: app}
}

func (cmd *LoginCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "login",
		Usage:     "Sign in and choose an organization",
		UsageText: "leadopp login [--email EMAIL] [--org ORG] [--google] [--signup]",
		Description: `Prompts for anything not given as a flag. Members of more than one
organization must pass --org with its id or name.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "account email", Destination: &cmd.email},
			&cli.StringFlag{
				Name:        "password",
				Usage:       "account password (prompted when omitted)",
				Sources:     cli.EnvVars("LEADOPP_PASSWORD"),
				Destination: &cmd.password,
			},
			&cli.StringFlag{Name: "org", Usage: "organization id or name", Destination: &cmd.org},
			&cli.BoolFlag{Name: "google", Usage: "sign in with Google", Destination: &cmd.google},
			&cli.BoolFlag{Name: "signup", Usage: "create the account first", Destination: &cmd.signUp},
		},
		Action: cmd.run,
	})
	return root
}

func (cmd *LoginCmd) run(ctx context.Context, c *cli.Command) error {
	store, err := cmd.app.openSession()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	client := cmd.app.client(store)

	raw, out := c.Root().Reader, c.Root().Writer
	in := bufio.NewReader(raw)

	var token string
	if cmd.google {
		token, err = cmd.googleLogin(ctx, client, in, out)
	} else {
		token, err = cmd.passwordLogin(ctx, client, raw, in, out)
	}
	if err != nil {
		return err
	}

	if err := store.SetLogin(token, ""); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	orgs, err := client.Organizations(ctx)
	if err != nil {
		return fmt.Errorf("list organizations: %w", err)
	}
	org, err := pickOrg(orgs, cmd.org)
	if err != nil {
		return err
	}
	if err := store.SetOrg(org.ID); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := store.SetRole(org.Role); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	cmd.app.Logger.Info().Str("org", org.ID).Str("role", org.Role).Msg("signed in")
	_, _ = fmt.Fprintf(out, "✓ Signed in to %s as %s\n", org.Name, org.Role)
	return nil
}

func (cmd *LoginCmd) passwordLogin(ctx context.Context, client *api.Client, raw io.Reader, in *bufio.Reader, out io.Writer) (string, error) {
	email := strings.TrimSpace(cmd.email)
	if email == "" {
		line, err := prompt(in, out, "Email: ")
		if err != nil {
			return "", err
		}
		email = line
	}
	password := cmd.password
	if password == "" {
		p, err := readPassword(raw, in, out)
		if err != nil {
			return "", err
		}
		password = p
	}
	if email == "" || password == "" {
		return "", errors.New("email and password are required")
	}

	if cmd.signUp {
		return client.Register(ctx, email, password)
	}
	return client.Login(ctx, email, password)
}

// googleLogin runs the installed-app code flow: print the consent URL, read
// the code back and trade it for a CRM token.
func (cmd *LoginCmd) googleLogin(ctx context.Context, client *api.Client, in *bufio.Reader, out io.Writer) (string, error) {
	cfg := cmd.app.Config
	if !cfg.GoogleEnabled() {
		return "", errors.New("google sign-in is not configured (set google.client_id and google.client_secret)")
	}
	oc := api.GoogleOAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)

	_, _ = fmt.Fprintf(out, "Open this URL and approve access:\n\n  %s\n\n", oc.AuthCodeURL(uuid.NewString()))
	code, err := prompt(in, out, "Code: ")
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", errors.New("no authorization code entered")
	}
	return client.ExchangeGoogleCode(ctx, oc, code)
}

// pickOrg chooses the org to work in: the one named, or the only one.
func pickOrg(orgs []models.Organization, want string) (models.Organization, error) {
	if len(orgs) == 0 {
		return models.Organization{}, errors.New("this account belongs to no organization")
	}
	if want != "" {
		for _, o := range orgs {
			if o.ID == want || strings.EqualFold(o.Name, want) {
				return o, nil
			}
		}
		return models.Organization{}, fmt.Errorf("not a member of %q", want)
	}
	if len(orgs) == 1 {
		return orgs[0], nil
	}
	names := make([]string, len(orgs))
	for i, o := range orgs {
		names[i] = o.Name
	}
	return models.Organization{}, fmt.Errorf("member of several organizations, pass --org (one of: %s)", strings.Join(names, ", "))
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	_, _ = fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo on a terminal and falls back to a plain
// line otherwise.
func readPassword(raw io.Reader, in *bufio.Reader, out io.Writer) (string, error) {
	if f, ok := raw.(*os.File); ok && in.Buffered() == 0 && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		_, _ = fmt.Fprint(out, "Password: ")
		b, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return prompt(in, out, "Password: ")
}

type LogoutCmd struct {
	app *App
}

func NewLogoutCmd(app *App) *LogoutCmd {
	return &LogoutCmd{app: app}
}

func (cmd *LogoutCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:   "logout",
		Usage:  "Forget the stored session",
		Action: cmd.run,
	})
	return root
}

func (cmd *LogoutCmd) run(_ context.Context, c *cli.Command) error {
	store, err := cmd.app.openSession()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	_, _ = fmt.Fprintln(c.Root().Writer, "✓ Signed out")
	return nil
}
