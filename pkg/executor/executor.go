// Package executor runs SQL steps and scripts against a single target
// session with lock-wait timeouts, transactional safety, bounded retries,
// and per-outcome success/failure accounting.
//
// Two execution shapes exist:
//   - RunStep executes one statement, fetching a result set when the
//     statement produces one. Single-statement steps may be retried via
//     RunStepWithRetry when the failure is a transient driver error.
//   - RunScript executes a whole multi-batch script as one commit/rollback
//     unit: every batch commits together or none do.
//
// Every statement is preceded by a SET LOCK_TIMEOUT directive scoped to the
// session, so a contended lock fails the statement server-side instead of
// blocking the run indefinitely.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Hephree4887/EJSupervision-Importer/pkg/batch"
	"github.com/Hephree4887/EJSupervision-Importer/pkg/consts"
	"github.com/Hephree4887/EJSupervision-Importer/pkg/etlerrors"
	"github.com/pkg/errors"
)

type (
	// Executor executes steps and scripts. It is safe to share across
	// stages of one pipeline run; all mutable state lives in Counters,
	// which uses atomic increments.
	Executor struct {
		counters    *Counters
		logger      *slog.Logger
		maxAttempts int
		baseDelay   time.Duration
	}

	// Config contains the options for creating an Executor.
	Config struct {
		// Counters receives one increment per step/script outcome. When
		// nil a fresh Counters is created and exposed via Counters().
		Counters *Counters

		// Logger receives step lifecycle events. Defaults to slog.Default().
		Logger *slog.Logger

		// MaxRetryAttempts bounds attempts for retried steps (total
		// attempts, not retries). Defaults to consts.DefaultMaxRetryAttempts.
		MaxRetryAttempts int

		// RetryBaseDelay is the delay before the first retry; it doubles
		// after each failed attempt. Defaults to consts.DefaultRetryBaseDelay.
		RetryBaseDelay time.Duration
	}

	// RowSet holds the rows fetched from a statement that produced a
	// result set.
	RowSet struct {
		Columns []string
		Rows    [][]any
	}
)

// New creates an Executor with the provided configuration.
func New(cfg Config) *Executor {
	if cfg.Counters == nil {
		cfg.Counters = &Counters{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxRetryAttempts <= 0 {
		cfg.MaxRetryAttempts = consts.DefaultMaxRetryAttempts
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = consts.DefaultRetryBaseDelay
	}

	return &Executor{
		counters:    cfg.Counters,
		logger:      cfg.Logger,
		maxAttempts: cfg.MaxRetryAttempts,
		baseDelay:   cfg.RetryBaseDelay,
	}
}

// Counters returns the outcome counters shared by all executions.
func (e *Executor) Counters() *Counters { return e.counters }

// Len returns the number of fetched rows.
func (r *RowSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// RunStep executes a single statement on r with the given lock-wait
// timeout and fetches its result set if one is produced. Statements such
// as CREATE TABLE legitimately return no rows; that yields a nil RowSet,
// not an error. The outcome is recorded in the counters either way, and
// failures are returned as *etlerrors.SQLExecutionError carrying the SQL
// and step name.
func (e *Executor) RunStep(ctx context.Context, r Runner, name, sqlText string, timeout time.Duration) (*RowSet, error) {
	e.logger.Info("starting step", "step", name)
	start := time.Now()

	rs, err := e.execute(ctx, r, sqlText, timeout)
	elapsed := time.Since(start)

	if err != nil {
		e.counters.RecordFailure()
		e.logger.Error("step failed", "step", name, "elapsed", elapsed, "err", err, "sql", sqlText)
		return nil, &etlerrors.SQLExecutionError{Step: name, SQL: sqlText, Err: err}
	}

	e.counters.RecordSuccess()
	if rs != nil {
		e.logger.Info("completed step", "step", name, "elapsed", elapsed, "rows", rs.Len())
	} else {
		e.logger.Info("completed step", "step", name, "elapsed", elapsed, "rows", "none")
	}

	return rs, nil
}

// RunScript executes a multi-batch script as a single transaction: batches
// run in script order and commit together after the last one succeeds. Any
// batch failure rolls the whole script back and surfaces the failing batch
// as *etlerrors.SQLExecutionError. A script that splits to zero batches
// (comments only) is a no-op.
func (e *Executor) RunScript(ctx context.Context, sess Session, name, sqlText string, timeout time.Duration) error {
	e.logger.Info("starting script", "script", name)
	start := time.Now()

	batches := batch.Split(sqlText)
	if len(batches) == 0 {
		e.counters.RecordSuccess()
		e.logger.Info("completed script", "script", name, "batches", 0, "elapsed", time.Since(start))
		return nil
	}

	tx, err := sess.BeginTx(ctx)
	if err != nil {
		e.counters.RecordFailure()
		return errors.Wrapf(err, "failed to begin transaction for script %s", name)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	directive := lockTimeoutDirective(timeout)
	if _, err := tx.ExecContext(ctx, directive); err != nil {
		e.counters.RecordFailure()
		return &etlerrors.SQLExecutionError{Step: name, SQL: directive, Err: err}
	}

	for _, b := range batches {
		if _, err := tx.ExecContext(ctx, b.Text); err != nil {
			e.counters.RecordFailure()
			e.logger.Error("batch failed", "script", name, "batch", b.Ordinal,
				"total", len(batches), "elapsed", time.Since(start), "err", err)
			return &etlerrors.SQLExecutionError{Step: name, SQL: b.Text, Err: err}
		}
		e.logger.Debug("executed batch", "script", name, "batch", b.Ordinal, "total", len(batches))
	}

	if err := tx.Commit(); err != nil {
		e.counters.RecordFailure()
		return errors.Wrapf(err, "failed to commit script %s", name)
	}
	committed = true

	e.counters.RecordSuccess()
	e.logger.Info("completed script", "script", name, "batches", len(batches), "elapsed", time.Since(start))
	return nil
}

// execute issues the lock-timeout directive, runs the statement, and
// fetches rows when the statement produced a result set.
func (e *Executor) execute(ctx context.Context, r Runner, sqlText string, timeout time.Duration) (*RowSet, error) {
	if _, err := r.ExecContext(ctx, lockTimeoutDirective(timeout)); err != nil {
		return nil, errors.Wrap(err, "failed to set lock timeout")
	}

	rows, err := r.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read result columns")
	}
	if len(cols) == 0 {
		// No result set to fetch.
		return nil, nil
	}

	rs := &RowSet{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rs, nil
}

// lockTimeoutDirective renders the session-scoped lock-wait limit. SQL
// Server takes the value in milliseconds.
func lockTimeoutDirective(timeout time.Duration) string {
	return fmt.Sprintf("SET LOCK_TIMEOUT %d", timeout.Milliseconds())
}
