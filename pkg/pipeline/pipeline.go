// Package pipeline drives one source database's migration as a state
// machine. Every stage follows the same sequence; the per-source
// differences (scope-definition steps, script names, work-list table)
// come in through the Source capability interface.
//
// The sequence is:
//
//	NotStarted → DefiningScope → GatheringTableList → UpdatingJoins →
//	ExecutingMigration → AwaitingCompletionSignal → Done
//
// Any step failure outside the per-table migration loop transitions to
// Failed and halts the run. Inside the loop a failed table rolls back its
// own transaction, lands in the error log, and the loop continues; one
// bad table must not abort a multi-hour migration.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/Hephree4887/EJSupervision-Importer/pkg/executor"
	"github.com/Hephree4887/EJSupervision-Importer/pkg/scripts"
	"github.com/Hephree4887/EJSupervision-Importer/pkg/sqlsafe"
	"github.com/Hephree4887/EJSupervision-Importer/pkg/tablelist"
	"github.com/pkg/errors"
)

// State is the pipeline's position in the stage sequence.
type State int

const (
	StateNotStarted State = iota
	StateDefiningScope
	StateGatheringTableList
	StateUpdatingJoins
	StateExecutingMigration
	StateAwaitingCompletionSignal
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateNotStarted:               "NotStarted",
	StateDefiningScope:            "DefiningScope",
	StateGatheringTableList:       "GatheringTableList",
	StateUpdatingJoins:            "UpdatingJoins",
	StateExecutingMigration:       "ExecutingMigration",
	StateAwaitingCompletionSignal: "AwaitingCompletionSignal",
	StateDone:                     "Done",
	StateFailed:                   "Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type (
	// Notifier receives the completion signal after a stage finishes and
	// answers whether to chain into the next stage. The CLI implements it
	// with a stdin confirm and an auto-advance bypass.
	Notifier interface {
		StageComplete(source, nextStage string) bool
	}

	// Options configures a pipeline run.
	Options struct {
		Source   Source
		Session  executor.Session
		Executor *executor.Executor
		Scripts  *scripts.Loader

		// Database is the target database name substituted into scripts
		// and owning every stage's work-list table.
		Database string

		// Timeout is the per-statement lock-wait limit.
		Timeout time.Duration

		// IncludeEmpty migrates tables whose in-scope row count is zero.
		IncludeEmpty bool

		// CSVFallback is the path of the work-list CSV used when the
		// gathered list table yields no rows. Empty disables the fallback.
		CSVFallback string

		// ErrorLog receives per-table failure entries. May be nil.
		ErrorLog *ErrorLog

		Logger   *slog.Logger
		Notifier Notifier

		// OnMigrationStart is called once with the number of tables to
		// migrate, before the first table. May be nil.
		OnMigrationStart func(total int)

		// OnTableDone is called after each table is processed, successful
		// or not. May be nil.
		OnTableDone func()
	}

	// Pipeline runs one source database's migration.
	Pipeline struct {
		opts  Options
		state State

		migrated int
		failed   int
	}
)

// New creates a pipeline in StateNotStarted.
func New(opts Options) (*Pipeline, error) {
	if opts.Source == nil {
		return nil, errors.New("pipeline requires a source")
	}
	if opts.Session == nil {
		return nil, errors.New("pipeline requires a database session")
	}
	if opts.Executor == nil {
		return nil, errors.New("pipeline requires an executor")
	}
	if opts.Scripts == nil {
		return nil, errors.New("pipeline requires a script loader")
	}
	if err := sqlsafe.ValidIdentifier(opts.Database); err != nil {
		return nil, errors.Wrap(err, "target database name")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Pipeline{opts: opts, state: StateNotStarted}, nil
}

// State returns the pipeline's current state.
func (p *Pipeline) State() State { return p.state }

// TablesMigrated returns the number of tables migrated so far.
func (p *Pipeline) TablesMigrated() int { return p.migrated }

// TablesFailed returns the number of tables that failed so far.
func (p *Pipeline) TablesFailed() int { return p.failed }

// Run executes the stage sequence to completion. It returns whether the
// completion signal asked to chain into the next stage; terminal stages
// always return false. On error the pipeline is left in StateFailed and
// already-committed work stays committed.
func (p *Pipeline) Run(ctx context.Context) (advance bool, err error) {
	src := p.opts.Source
	p.opts.Logger.Info("starting migration stage", "stage", src.Name(), "database", p.opts.Database)

	if err := p.defineScope(ctx); err != nil {
		return false, p.fail(err)
	}
	if err := p.gatherTableList(ctx); err != nil {
		return false, p.fail(err)
	}
	if err := p.updateJoins(ctx); err != nil {
		return false, p.fail(err)
	}
	if err := p.executeMigration(ctx); err != nil {
		return false, p.fail(err)
	}

	p.setState(StateAwaitingCompletionSignal)
	advance = p.signalCompletion()

	p.setState(StateDone)
	p.opts.Logger.Info("migration stage complete", "stage", src.Name(),
		"migrated", p.migrated, "failed", p.failed, "advance", advance)
	return advance, nil
}

func (p *Pipeline) setState(s State) {
	p.opts.Logger.Debug("state transition", "from", p.state.String(), "to", s.String())
	p.state = s
}

func (p *Pipeline) fail(err error) error {
	p.setState(StateFailed)
	if logErr := p.opts.ErrorLog.Append(err.Error()); logErr != nil {
		p.opts.Logger.Error("failed to record error", "err", logErr)
	}
	return err
}

// defineScope runs the ordered gather-ID steps, one transaction per step,
// so partial progress on independent ID sets survives a later failure.
func (p *Pipeline) defineScope(ctx context.Context) error {
	p.setState(StateDefiningScope)

	steps := p.opts.Source.PreprocessingSteps()
	if len(steps) == 0 {
		return nil
	}

	p.opts.Logger.Info("defining scope", "steps", len(steps))
	for _, step := range steps {
		sqlText, err := p.loadScript(step.Script)
		if err != nil {
			return err
		}
		if err := p.opts.Executor.RunScript(ctx, p.opts.Session, step.Name, sqlText, p.opts.Timeout); err != nil {
			return err
		}
	}

	p.opts.Logger.Info("scope defined", "steps", len(steps))
	return nil
}

// gatherTableList runs the script that enumerates tables and generates
// one DROP/SELECT INTO pair per table into the stage's work-list table.
func (p *Pipeline) gatherTableList(ctx context.Context) error {
	p.setState(StateGatheringTableList)

	sqlText, err := p.loadScript(p.opts.Source.TableListScript())
	if err != nil {
		return err
	}
	return p.opts.Executor.RunScript(ctx, p.opts.Session, "gather_table_list", sqlText, p.opts.Timeout)
}

// updateJoins augments the work list with the JOIN clauses the SELECT
// INTO statements need for scope-correct denormalization.
func (p *Pipeline) updateJoins(ctx context.Context) error {
	p.setState(StateUpdatingJoins)

	ref := p.opts.Source.JoinUpdateScript()
	if ref == "" {
		return nil
	}

	sqlText, err := p.loadScript(ref)
	if err != nil {
		return err
	}
	return p.opts.Executor.RunScript(ctx, p.opts.Session, "update_joins", sqlText, p.opts.Timeout)
}

// executeMigration walks the work list in ascending RowID order, running
// each table's drop-then-select pair in its own transaction.
func (p *Pipeline) executeMigration(ctx context.Context) error {
	p.setState(StateExecutingMigration)

	entries, err := p.loadEntries(ctx)
	if err != nil {
		return err
	}

	entries = tablelist.Filter(entries, p.opts.IncludeEmpty, tablelist.AlwaysProcessTables)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].RowID < entries[j].RowID })

	p.opts.Logger.Info("executing table operations", "tables", len(entries))
	if p.opts.OnMigrationStart != nil {
		p.opts.OnMigrationStart(len(entries))
	}

	for _, e := range entries {
		p.migrateTable(ctx, e)
		if p.opts.OnTableDone != nil {
			p.opts.OnTableDone()
		}
	}

	p.opts.Logger.Info("table operations complete", "migrated", p.migrated, "failed", p.failed)
	return nil
}

// migrateTable runs one entry's statement pair in its own transaction.
// Failures are logged and recorded, never propagated; the caller's loop
// keeps going.
func (p *Pipeline) migrateTable(ctx context.Context, e tablelist.Entry) {
	if err := p.prepareAndRun(ctx, e); err != nil {
		p.failed++
		p.opts.Logger.Error("table migration failed", "table", e.QualifiedName(), "row_id", e.RowID, "err", err)
		msg := fmt.Sprintf("RowID:%d %s: %v", e.RowID, e.QualifiedName(), err)
		if logErr := p.opts.ErrorLog.Append(msg); logErr != nil {
			p.opts.Logger.Error("failed to record error", "err", logErr)
		}
		return
	}
	p.migrated++
}

func (p *Pipeline) prepareAndRun(ctx context.Context, e tablelist.Entry) error {
	if err := e.ValidateIdentifiers(); err != nil {
		return err
	}

	dropSQL, err := sqlsafe.Sanitize(e.DropSQL)
	if err != nil {
		return errors.Wrap(err, "drop statement rejected")
	}
	selectSQL, err := sqlsafe.Sanitize(e.SelectSQL)
	if err != nil {
		return errors.Wrap(err, "select statement rejected")
	}
	if selectSQL == "" {
		return errors.New("entry has no select statement")
	}

	scope, err := p.opts.Executor.Begin(ctx, p.opts.Session, e.QualifiedName(), p.opts.Timeout)
	if err != nil {
		return err
	}
	defer scope.Rollback()

	if dropSQL != "" {
		p.progress("RowID:%d Drop If Exists:(%s)", e.RowID, e.QualifiedName())
		if _, err := scope.StepWithRetry(ctx, "Drop "+e.QualifiedName(), dropSQL); err != nil {
			return err
		}
	}

	p.progress("RowID:%d Select INTO:(%s)", e.RowID, e.QualifiedName())
	if _, err := scope.StepWithRetry(ctx, "SelectInto "+e.QualifiedName(), selectSQL); err != nil {
		return err
	}

	return scope.Commit()
}

// loadEntries reads the work list from the stage's list table, falling
// back to the CSV file when the gathered list yields nothing.
func (p *Pipeline) loadEntries(ctx context.Context) ([]tablelist.Entry, error) {
	entries, err := tablelist.LoadQuery(ctx, p.opts.Session, p.opts.Database, p.opts.Source.ListTable())
	if err == nil && len(entries) > 0 {
		return entries, nil
	}

	if p.opts.CSVFallback == "" {
		if err != nil {
			return nil, err
		}
		return entries, nil
	}

	if err != nil {
		p.opts.Logger.Warn("table list query failed, falling back to CSV",
			"list_table", p.opts.Source.ListTable(), "csv", p.opts.CSVFallback, "err", err)
	} else {
		p.opts.Logger.Warn("table list is empty, falling back to CSV",
			"list_table", p.opts.Source.ListTable(), "csv", p.opts.CSVFallback)
	}

	f, err := os.Open(p.opts.CSVFallback)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open work list CSV %s", p.opts.CSVFallback)
	}
	defer func() { _ = f.Close() }()

	return tablelist.LoadCSV(f)
}

// signalCompletion emits the completion signal and collects the chaining
// decision. Terminal stages never chain.
func (p *Pipeline) signalCompletion() bool {
	next := p.opts.Source.NextStage()
	if next == "" || p.opts.Notifier == nil {
		return false
	}
	return p.opts.Notifier.StageComplete(p.opts.Source.Name(), next)
}

// progress emits one externally consumed progress line. The format is
// load-bearing: downstream tooling scrapes these lines, so the text must
// stay exactly as documented.
func (p *Pipeline) progress(format string, args ...any) {
	p.opts.Logger.Info(fmt.Sprintf(format, args...))
}

func (p *Pipeline) loadScript(ref string) (string, error) {
	return p.opts.Scripts.LoadForDatabase(ref, p.opts.Database)
}
