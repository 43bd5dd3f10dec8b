package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/harperreed/leadopp/tui"
)

type TuiCmd struct {
	app *App
}

// NewTuiCmd creates the interactive workspace command.
func NewTuiCmd(app *App) *TuiCmd {
	return &TuiCmd{app: app}
}

// Register adds the tui command to the application
func (cmd *TuiCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:   "tui",
		Usage:  "Open the interactive workspace (default)",
		Action: cmd.run,
	})
	return root
}

func (cmd *TuiCmd) run(ctx context.Context, _ *cli.Command) error {
	store, err := cmd.app.openSession()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	previews, err := cmd.app.previews()
	if err != nil {
		return fmt.Errorf("preview dir: %w", err)
	}

	startDir, _ := os.Getwd()
	model := tui.NewModel(tui.Deps{
		Client:         cmd.app.client(store),
		Session:        store,
		Previews:       previews,
		Logger:         cmd.app.Logger,
		DefaultSection: cmd.app.Config.DefaultSection,
		StartDir:       startDir,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run workspace: %w", err)
	}
	return nil
}
