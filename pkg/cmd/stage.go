package cmd

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"

	"github.com/Hephree4887/EJSupervision-Importer/pkg/config"
	"github.com/Hephree4887/EJSupervision-Importer/pkg/executor"
	"github.com/Hephree4887/EJSupervision-Importer/pkg/pipeline"
	"github.com/Hephree4887/EJSupervision-Importer/pkg/scripts"
	"github.com/gosuri/uiprogress"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type stageParams struct {
	fx.In

	Config *config.Config
}

// justice creates the command running the Justice DB import stage, the
// first stage of the migration sequence.
func justice(p stageParams) *cli.Command {
	return stageCommand(p, "justice", pipeline.Justice,
		"Gathers in-scope case, charge, party, warrant, hearing and event IDs, then migrates the Justice tables.")
}

// operations creates the command running the Operations DB import stage.
func operations(p stageParams) *cli.Command {
	return stageCommand(p, "operations", pipeline.Operations,
		"Gathers in-scope operations IDs, then migrates the Operations tables.")
}

// financial creates the command running the Financial DB import stage.
func financial(p stageParams) *cli.Command {
	return stageCommand(p, "financial", pipeline.Financial,
		"Gathers in-scope fee instance IDs, then migrates the Financial tables.")
}

// lob creates the command running the terminal LOB column processing stage.
func lob(p stageParams) *cli.Command {
	return stageCommand(p, "lob", pipeline.LOBColumns,
		"Rewrites large-object columns in the already-migrated tables.")
}

// runAll creates the command chaining all four stages in order. Between
// stages the completion signal asks whether to continue unless
// --auto-advance is set.
func runAll(p stageParams) *cli.Command {
	cmd := stageCommand(p, "run", pipeline.Justice,
		"Runs the Justice, Operations, Financial and LOB stages in sequence, honoring the completion signal between stages.")
	cmd.Usage = "Run the full four-stage migration"
	return cmd
}

func stageCommand(p stageParams, name string, src pipeline.Source, description string) *cli.Command {
	return &cli.Command{
		Name:        name,
		Usage:       "Run the " + src.Name() + " stage",
		Description: description,
		Flags:       stageFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := *p.Config
			applyFlags(&cfg, cmd)
			if err := cfg.Validate(); err != nil {
				return err
			}

			notifier := newConsoleNotifier(cmd.Root().Reader, cmd.Root().Writer, cmd.Bool("auto-advance"))
			return runChain(ctx, &cfg, src, notifier)
		},
	}
}

func stageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "dsn",
			Usage:   "target SQL Server connection string",
			Sources: cli.EnvVars("MSSQL_TARGET_CONN_STR"),
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
		&cli.StringFlag{
			Name:  "database",
			Usage: "target database name substituted into scripts",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
		&cli.StringFlag{
			Name:  "csv-dir",
			Usage: "directory holding the fallback work-list CSV files",
		},
		&cli.StringFlag{
			Name:  "scripts",
			Usage: "root directory of the per-stage SQL scripts",
		},
		&cli.BoolFlag{
			Name:  "include-empty",
			Usage: "migrate tables whose in-scope row count is zero",
		},
		&cli.BoolFlag{
			Name:  "skip-pk-creation",
			Usage: "note the run as skipping the external primary-key creation step",
		},
		&cli.BoolFlag{
			Name:  "auto-advance",
			Usage: "chain into the next stage without asking",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-statement lock-wait limit",
		},
	}
}

// applyFlags overlays set command-line flags onto the configuration.
// Flags outrank both the YAML file and the environment.
func applyFlags(cfg *config.Config, cmd *cli.Command) {
	if v := cmd.String("dsn"); v != "" {
		cfg.Target.ConnStr = v
	}
	if v := cmd.String("database"); v != "" {
		cfg.Target.Database = v
	}
	if v := cmd.String("csv-dir"); v != "" {
		cfg.CSVDir = v
	}
	if v := cmd.String("scripts"); v != "" {
		cfg.ScriptDir = v
	}
	if cmd.Bool("include-empty") {
		cfg.IncludeEmptyTables = true
	}
	if cmd.Bool("skip-pk-creation") {
		cfg.SkipPKCreation = true
	}
	if d := cmd.Duration("timeout"); d > 0 {
		cfg.SQLTimeout = config.Duration(d)
	}
}

// runChain runs the given stage and, when the completion signal confirms,
// each following stage in sequence. Counters span the whole chain so the
// final summary covers everything that ran, including runs cut short by a
// failed stage.
func runChain(ctx context.Context, cfg *config.Config, src pipeline.Source, notifier pipeline.Notifier) error {
	counters := &executor.Counters{}
	exec := executor.New(executor.Config{
		Counters:         counters,
		MaxRetryAttempts: cfg.MaxRetryAttempts,
		RetryBaseDelay:   cfg.RetryBaseDelay.Std(),
	})

	defer func() {
		slog.Info("migration summary",
			"succeeded", counters.Successes(),
			"failed", counters.Failures(),
		)
	}()

	loader := scripts.NewDirLoader(cfg.ScriptDir)

	if cfg.SkipPKCreation {
		slog.Info("primary-key creation will be skipped; run the PK step externally after the migration")
	}

	for {
		advance, err := runStage(ctx, cfg, src, exec, loader, notifier)
		if err != nil {
			return err
		}
		if !advance {
			return nil
		}

		next, err := pipeline.SourceByName(src.NextStage())
		if err != nil {
			return err
		}
		src = next
	}
}

// runStage runs one stage over its own dedicated connection. A single
// *sql.Conn pins the work to one server session so SET LOCK_TIMEOUT
// applies to every subsequent statement.
func runStage(
	ctx context.Context,
	cfg *config.Config,
	src pipeline.Source,
	exec *executor.Executor,
	loader *scripts.Loader,
	notifier pipeline.Notifier,
) (bool, error) {
	db, err := sql.Open("sqlserver", cfg.Target.ConnStr)
	if err != nil {
		return false, errors.Wrap(err, "failed to open target database")
	}
	defer func() { _ = db.Close() }()

	conn, err := db.Conn(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to acquire target connection")
	}
	defer func() { _ = conn.Close() }()

	progress := uiprogress.New()
	progress.Start()
	defer progress.Stop()

	var bar *uiprogress.Bar

	p, err := pipeline.New(pipeline.Options{
		Source:       src,
		Session:      executor.NewSession(conn),
		Executor:     exec,
		Scripts:      loader,
		Database:     cfg.Target.Database,
		Timeout:      cfg.SQLTimeout.Std(),
		IncludeEmpty: cfg.IncludeEmptyTables,
		CSVFallback:  filepath.Join(cfg.CSVDir, src.CSVFileName()),
		ErrorLog:     pipeline.NewErrorLog(filepath.Join(cfg.LogDir, src.ErrorLogName())),
		Logger:       slog.Default(),
		Notifier:     notifier,
		OnMigrationStart: func(total int) {
			if total == 0 {
				return
			}
			bar = progress.AddBar(total).AppendCompleted().PrependElapsed()
			bar.PrependFunc(func(b *uiprogress.Bar) string {
				return "Drop/Select: "
			})
		},
		OnTableDone: func() {
			if bar != nil {
				bar.Incr()
			}
		},
	})
	if err != nil {
		return false, err
	}

	return p.Run(ctx)
}
