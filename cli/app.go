// ABOUTME: Root command for the leadopp client
// ABOUTME: Loads config and logging in Before, then hands off to the subcommands
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/harperreed/leadopp/api"
	"github.com/harperreed/leadopp/config"
	"github.com/harperreed/leadopp/logging"
	"github.com/harperreed/leadopp/models"
	"github.com/harperreed/leadopp/session"
	"github.com/harperreed/leadopp/workspace"
)

// Flags are the global options shared by every command.
type Flags struct {
	ConfigPath string
	LogLevel   string
	LogFile    string
}

// App is what Before builds for the subcommands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	closeLog func()
}

// openSession opens the durable session store from the config.
func (a *App) openSession() (*session.Store, error) {
	store, err := session.Open(a.Config.SessionDir)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return store, nil
}

func (a *App) client(store *session.Store) *api.Client {
	return api.New(a.Config.BaseURL(), store,
		api.WithLogger(a.Logger),
		api.WithTimeout(a.Config.Timeout),
	)
}

func (a *App) previews() (*workspace.TempFilePreviews, error) {
	return workspace.NewTempFilePreviews(a.Config.PreviewDir)
}

// New builds the command tree.
func New(version string) *cli.Command {
	flags := &Flags{}
	app := &App{Logger: zerolog.Nop()}

	root := &cli.Command{
		Name:      "leadopp",
		Usage:     "Terminal client for a multi-tenant sales CRM",
		UsageText: "leadopp [global options] command [command options]",
		Description: `leadopp signs in to a CRM server and works its leads, contacts, accounts,
companies, cases and opportunities from the terminal.

Run 'leadopp' with no arguments to open the interactive workspace.
Run 'leadopp stub' to serve a local demo API to point the client at.`,
		Version:                   version,
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("LEADOPP_CONFIG"),
				Value:       config.DefaultPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (trace, debug, info, warn, error)",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to the configured log_file)",
				Destination: &flags.LogFile,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if flags.LogLevel != "" {
				cfg.LogLevel = flags.LogLevel
			}
			if flags.LogFile != "" {
				cfg.LogFile = flags.LogFile
			}

			logger, closer, err := logging.New(cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			logging.Install(logger)

			app.Config = cfg
			app.Logger = logger
			app.closeLog = closer
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if app.closeLog != nil {
				app.closeLog()
			}
			return nil
		},
	}

	tuiCmd := NewTuiCmd(app)
	root = tuiCmd.Register(root)
	root = NewLoginCmd(app).Register(root)
	root = NewLogoutCmd(app).Register(root)
	root = NewListCmd(app).Register(root)
	root = NewShowCmd(app).Register(root)
	root = NewNoteCmd(app).Register(root)
	root = NewEditCmd(app).Register(root)
	root = NewProfileCmd(app).Register(root)
	root = NewStubCmd(app).Register(root)

	root.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'leadopp --help' for usage", c.Args().First())
		}
		return tuiCmd.run(ctx, c)
	}
	return root
}

// parseKind resolves a collection name given on the command line.
func parseKind(arg string) (models.EntityKind, error) {
	kind := models.EntityKind(arg)
	if _, ok := models.SpecFor(kind); ok {
		return kind, nil
	}
	return "", fmt.Errorf("unknown kind %q (one of: %v)", arg, models.Kinds())
}

// kindAndID reads the two positional arguments most record commands take.
func kindAndID(c *cli.Command) (models.EntityKind, string, error) {
	if c.Args().Len() != 2 {
		return "", "", fmt.Errorf("expected <kind> <id>")
	}
	kind, err := parseKind(c.Args().Get(0))
	if err != nil {
		return "", "", err
	}
	return kind, c.Args().Get(1), nil
}
