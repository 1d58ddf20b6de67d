package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Hephree4887/EJSupervision-Importer/pkg/config"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Config     *config.Config
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run creates and executes the main ejimporter CLI application with the
// given version and command-line arguments. This function serves as the
// entry point for all CLI operations and handles global configuration.
//
// Global Flags:
//   - --config, -c: Explicit configuration file (overrides ejimporter.yaml)
//   - --verbose, -v: Enable debug-level logging
//
// The application exits non-zero when any stage ends in a failed state.
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	app := &cli.Command{
		Name:  "ejimporter",
		Usage: "Migrate EJ Supervision source databases into the target SQL Server",
		Description: `ejimporter runs the four-stage EJ Supervision migration
(Justice, Operations, Financial, LOB columns) against a SQL Server target.
Each stage defines its supervision scope, gathers a per-table work list,
enriches it with JOIN clauses, and executes the generated DROP/SELECT INTO
pairs table by table.`,
		Version: p.Version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "the importer config file",
				Sources: cli.EnvVars("EJ_IMPORTER_CONFIG"),
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}

			// An explicit config file replaces whatever the default lookup
			// found; environment overrides still win over the file.
			if path := cmd.String("config"); path != "" {
				loaded, err := config.LoadConfigFile(path)
				if err != nil {
					return ctx, err
				}
				if err := loaded.ApplyEnv(); err != nil {
					return ctx, err
				}
				*p.Config = *loaded
			}
			return ctx, nil
		},
		Commands: p.Commands,
	}

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			slog.Error("Error running command", "err", err)
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
			return
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}
