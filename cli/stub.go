// ABOUTME: Serves the local stub API from a SQLite file
// ABOUTME: Seeds demo data on first run and stops on interrupt
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/harperreed/leadopp/db"
	"github.com/harperreed/leadopp/web"
)

type StubCmd struct {
	app *App

	addr   string
	dbPath string
	noSeed bool
}

func NewStubCmd(app *App) *StubCmd {
	return &StubCmd{app: app}
}

func (cmd *StubCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "stub",
		Usage:     "Serve a local demo CRM API",
		UsageText: "leadopp stub [--addr HOST:PORT] [--db FILE] [--no-seed]",
		Description: `Point the client at it with server: http://<addr> in the config file.
A fresh database gets a demo organization and the login ` + db.DemoEmail + ` / ` + db.DemoPassword + `.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address (defaults to stub.addr)", Destination: &cmd.addr},
			&cli.StringFlag{Name: "db", Usage: "SQLite file (defaults to stub.database)", Destination: &cmd.dbPath},
			&cli.BoolFlag{Name: "no-seed", Usage: "start without demo data", Destination: &cmd.noSeed},
		},
		Action: cmd.run,
	})
	return root
}

func (cmd *StubCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.app.Config
	addr := cmd.addr
	if addr == "" {
		addr = cfg.Stub.Addr
	}
	path := cmd.dbPath
	if path == "" {
		path = cfg.Stub.Database
	}

	database, err := db.OpenDatabase(path)
	if err != nil {
		return fmt.Errorf("open stub database: %w", err)
	}
	defer func() { _ = database.Close() }()

	if !cmd.noSeed {
		if _, err := db.SeedDemo(database); err != nil {
			return fmt.Errorf("seed stub database: %w", err)
		}
	} else if err := db.SeedLookups(database); err != nil {
		return fmt.Errorf("seed lookups: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintf(c.Root().Writer, "Stub API on http://%s%s (database %s)\n", addr, web.APIPrefix, path)
	return web.NewServer(database, cmd.app.Logger).Start(ctx, addr)
}
