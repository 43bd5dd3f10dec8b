package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/harperreed/leadopp/models"
)

type ProfileCmd struct {
	app *App

	set []string
}

func NewProfileCmd(app *App) *ProfileCmd {
	return &ProfileCmd{app: app}
}

func (cmd *ProfileCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "profile",
		Usage:     "Show or update your profile",
		UsageText: "leadopp profile [--set key=value]...",
		Description: `Keys: first_name, last_name, job_title, email, mobile_number,
address_line, street, city, state, postcode, country.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "set", Aliases: []string{"s"}, Usage: "key=value (repeatable)", Destination: &cmd.set},
		},
		Action: cmd.run,
	})
	return root
}

func (cmd *ProfileCmd) run(ctx context.Context, c *cli.Command) error {
	store, err := cmd.app.openSession()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	client := cmd.app.client(store)

	p, err := client.GetProfile(ctx)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	form := p.Form()
	out := c.Root().Writer

	if len(cmd.set) == 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "Role\t%s\n", p.UserObj.Role)
		for _, f := range form.Fields() {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", f.Label, *f.Value)
		}
		return w.Flush()
	}

	if err := applyProfile(&form, cmd.set); err != nil {
		return err
	}
	if err := client.UpdateProfile(ctx, p.ID(), form); err != nil {
		return describeWriteError(err)
	}
	_, _ = fmt.Fprintln(out, "✓ Profile updated")
	return nil
}

func applyProfile(form *models.ProfileForm, pairs []string) error {
	fields := form.Fields()
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", pair)
		}
		found := false
		for _, f := range fields {
			if f.Key == strings.TrimSpace(key) {
				*f.Value = strings.TrimSpace(value)
				found = true
			}
		}
		if !found {
			return fmt.Errorf("unknown profile key %q", key)
		}
	}
	return nil
}
