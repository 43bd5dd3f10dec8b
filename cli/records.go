// ABOUTME: Record commands: list a collection, show one record, add a note, edit fields
// ABOUTME: Drive the same workspace controllers as the interactive client
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/harperreed/leadopp/api"
	"github.com/harperreed/leadopp/models"
	"github.com/harperreed/leadopp/workspace"
)

type ListCmd struct {
	app *App
}

func NewListCmd(app *App) *ListCmd {
	return &ListCmd{app: app}
}

func (cmd *ListCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List the records of a kind",
		UsageText: "leadopp list <kind>",
		Action:    cmd.run,
	})
	return root
}

func (cmd *ListCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected <kind>")
	}
	kind, err := parseKind(c.Args().First())
	if err != nil {
		return err
	}

	store, err := cmd.app.openSession()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := cmd.app.client(store).ListRecords(ctx, kind)
	if err != nil {
		return fmt.Errorf("list %s: %w", kind, err)
	}

	out := c.Root().Writer
	if len(records) == 0 {
		_, _ = fmt.Fprintf(out, "No %s found.\n", kind)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSTATUS\tASSIGNED")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t--------")
	for _, r := range records {
		status := r.String("status")
		if kind == models.KindUser {
			status = r.String("role")
		}
		if status == "" {
			status = r.String("stage")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.String("id"), r.Label(), status, r.AssignedName())
	}
	return w.Flush()
}

type ShowCmd struct {
	app *App

	jsonOutput bool
}

func NewShowCmd(app *App) *ShowCmd {
	return &ShowCmd{app: app}
}

func (cmd *ShowCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show one record with its attachments and notes",
		UsageText: "leadopp show <kind> <id> [--json]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the record as JSON", Destination: &cmd.jsonOutput},
		},
		Action: cmd.run,
	})
	return root
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	kind, id, err := kindAndID(c)
	if err != nil {
		return err
	}
	screen, _, closeFn, err := cmd.app.mountScreen(ctx, kind, id)
	if err != nil {
		return err
	}
	defer closeFn()

	agg, err := screen.Aggregate()
	if err != nil {
		return err
	}
	out := c.Root().Writer
	if cmd.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(agg.Entity)
	}
	printAggregate(out, screen, agg)
	return nil
}

func printAggregate(out io.Writer, screen *workspace.Screen, agg *models.Aggregate) {
	spec, _ := models.SpecFor(agg.Kind)
	_, _ = fmt.Fprintf(out, "%s: %s\n\n", spec.Label, agg.Entity.Label())

	keys := make([]string, 0, len(agg.Entity))
	for k, v := range agg.Entity {
		switch v.(type) {
		case map[string]any, []any, nil:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", k, agg.Entity.String(k))
	}
	if agg.Entity.Has("assigned_to") {
		_, _ = fmt.Fprintf(w, "assigned_to\t%s\n", agg.Entity.AssignedName())
	}
	if tags := agg.Entity.Strings("tags"); len(tags) > 0 {
		_, _ = fmt.Fprintf(w, "tags\t%s\n", strings.Join(tags, ", "))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out, "\nAttachments:")
	items := screen.Attachments().Items()
	if len(items) == 0 {
		_, _ = fmt.Fprintln(out, "  none")
	}
	for _, it := range items {
		_, _ = fmt.Fprintf(out, "  %s  %s\n", it.Name(), it.Ref().URL)
	}

	_, _ = fmt.Fprintln(out, "\nNotes:")
	thread := screen.Comments().Thread(workspace.RecentFirst)
	if len(thread) == 0 {
		_, _ = fmt.Fprintln(out, "  none")
	}
	for _, cm := range thread {
		when := ""
		if !cm.Timestamp.IsZero() {
			when = cm.Timestamp.Local().Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(out, "  [%s] %s: %s\n", when, cm.Author, cm.Body)
	}
}

// mountScreen loads one record into a fresh screen. The returned func
// unmounts it and closes the session.
func (a *App) mountScreen(ctx context.Context, kind models.EntityKind, id string) (*workspace.Screen, *api.Client, func(), error) {
	store, err := a.openSession()
	if err != nil {
		return nil, nil, nil, err
	}
	previews, err := a.previews()
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, fmt.Errorf("preview dir: %w", err)
	}

	client := a.client(store)
	screen := workspace.NewScreen(client, previews, kind, id, a.Logger)
	closeFn := func() {
		screen.Unmount()
		_ = store.Close()
	}
	if err := screen.Mount(ctx); err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	return screen, client, closeFn, nil
}

type NoteCmd struct {
	app *App

	message  string
	bodyFile string
	attach   []string
}

func NewNoteCmd(app *App) *NoteCmd {
	return &NoteCmd{app: app}
}

func (cmd *NoteCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "note",
		Usage:     "Add a note, with optional attachments, to a record",
		UsageText: "leadopp note [-m MESSAGE | --body-file FILE] [--attach FILE]... <kind> <id>",
		Description: `--body-file sends the file's formatted text as the note body; it wins
over --message when both are given.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "note text", Destination: &cmd.message},
			&cli.StringFlag{Name: "body-file", Usage: "file holding the formatted note body", Destination: &cmd.bodyFile},
			&cli.StringSliceFlag{Name: "attach", Aliases: []string{"a"}, Usage: "file to attach (repeatable)", Destination: &cmd.attach},
		},
		Action: cmd.run,
	})
	return root
}

func (cmd *NoteCmd) run(ctx context.Context, c *cli.Command) error {
	kind, id, err := kindAndID(c)
	if err != nil {
		return err
	}
	screen, _, closeFn, err := cmd.app.mountScreen(ctx, kind, id)
	if err != nil {
		return err
	}
	defer closeFn()

	for _, path := range cmd.attach {
		file, err := workspace.StageFromPath(path)
		if err != nil {
			return err
		}
		if _, err := screen.Attachments().AddStaged(file); err != nil {
			return fmt.Errorf("stage %s: %w", file.Name, err)
		}
	}

	screen.Comments().SetText(cmd.message)
	if cmd.bodyFile != "" {
		rich, err := os.ReadFile(cmd.bodyFile)
		if err != nil {
			return fmt.Errorf("read note body: %w", err)
		}
		screen.Comments().SetRichText(string(rich))
	}
	if err := screen.Comments().Submit(ctx); err != nil {
		if errors.Is(err, workspace.ErrEmptyDraft) {
			return errors.New("--message or --body-file is required")
		}
		return describeWriteError(err)
	}

	spec, _ := models.SpecFor(kind)
	_, _ = fmt.Fprintf(c.Root().Writer, "✓ Note added to %s #%s (%d attachments)\n", strings.ToLower(spec.Label), id, screen.Attachments().Len())
	return nil
}

type EditCmd struct {
	app *App

	set []string
}

func NewEditCmd(app *App) *EditCmd {
	return &EditCmd{app: app}
}

func (cmd *EditCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "edit",
		Usage:     "Show or change the editable fields of a record",
		UsageText: "leadopp edit <kind> <id> [--set field=value]...",
		Description: `Without --set, prints the fields as the edit form would start from them.
List fields take comma-separated values.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "set", Aliases: []string{"s"}, Usage: "field=value (repeatable)", Destination: &cmd.set},
		},
		Action: cmd.run,
	})
	return root
}

func (cmd *EditCmd) run(ctx context.Context, c *cli.Command) error {
	kind, id, err := kindAndID(c)
	if err != nil {
		return err
	}
	screen, client, closeFn, err := cmd.app.mountScreen(ctx, kind, id)
	if err != nil {
		return err
	}
	defer closeFn()

	spec, _ := models.SpecFor(kind)
	nav := workspace.NewNavigator(spec.DetailRoute)
	route, err := screen.Edit(nav)
	if err != nil {
		return err
	}
	h, err := workspace.OpenEdit(ctx, nav, route, screen.Loader(), id, cmd.app.Logger)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if tr := h.Truncated(); len(tr) > 0 {
		_, _ = fmt.Fprintf(out, "note: only the first value is kept for %s\n", strings.Join(tr, ", "))
	}

	if len(cmd.set) == 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, field := range h.Fields() {
			v, _ := h.Value(field)
			if list, ok := v.([]string); ok {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", field, strings.Join(list, ", "))
				continue
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\n", field, h.String(field))
		}
		return w.Flush()
	}

	values, err := parseAssignments(h, cmd.set)
	if err != nil {
		return err
	}
	if err := client.UpdateEntity(ctx, kind, id, values); err != nil {
		return describeWriteError(err)
	}
	_, _ = fmt.Fprintf(out, "✓ Updated %s #%s\n", strings.ToLower(spec.Label), id)
	return nil
}

// parseAssignments turns field=value pairs into update values. Fields the
// hand-off holds as lists are split on commas.
func parseAssignments(h *models.NavigationHandoff, pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		field, value, ok := strings.Cut(pair, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("expected field=value, got %q", pair)
		}
		if field == "id" {
			return nil, errors.New("id cannot be changed")
		}
		if v, _ := h.Value(field); isList(v) {
			var list []string
			for _, part := range strings.Split(value, ",") {
				if part = strings.TrimSpace(part); part != "" {
					list = append(list, part)
				}
			}
			values[field] = list
			continue
		}
		values[field] = value
	}
	return values, nil
}

func isList(v any) bool {
	_, ok := v.([]string)
	return ok
}

// describeWriteError spells out field errors from a rejected write.
func describeWriteError(err error) error {
	var vf *api.ValidationFailure
	if !errors.As(err, &vf) || len(vf.Fields) == 0 {
		return err
	}
	fields := make([]string, 0, len(vf.Fields))
	for f := range vf.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var b strings.Builder
	b.WriteString("rejected:")
	for _, f := range fields {
		b.WriteString("\n  " + f + ": " + strings.Join(vf.Fields[f], " "))
	}
	return errors.New(b.String())
}
