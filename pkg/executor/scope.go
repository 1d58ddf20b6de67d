package executor

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// TxScope groups a handful of single-statement steps into one
// commit/rollback unit. The per-table migration loop uses one scope per
// table so a failed SELECT INTO also undoes the table's DROP.
//
// Typical usage:
//
//	scope, err := exec.Begin(ctx, sess, "dbo.Cases", timeout)
//	if err != nil {
//		return err
//	}
//	defer scope.Rollback()
//
//	if _, err := scope.StepWithRetry(ctx, "Drop dbo.Cases", dropSQL); err != nil {
//		return err
//	}
//	if _, err := scope.StepWithRetry(ctx, "SelectInto dbo.Cases", selectSQL); err != nil {
//		return err
//	}
//	return scope.Commit()
//
// Rollback after a successful Commit is a no-op, so deferring it is safe.
type TxScope struct {
	e       *Executor
	tx      Tx
	name    string
	timeout time.Duration
	done    bool
}

// Begin opens a transaction scope named for logging purposes.
func (e *Executor) Begin(ctx context.Context, sess Session, name string, timeout time.Duration) (*TxScope, error) {
	tx, err := sess.BeginTx(ctx)
	if err != nil {
		e.counters.RecordFailure()
		return nil, errors.Wrapf(err, "failed to begin transaction for %s", name)
	}

	return &TxScope{e: e, tx: tx, name: name, timeout: timeout}, nil
}

// Step executes one statement inside the scope's transaction.
func (s *TxScope) Step(ctx context.Context, name, sqlText string) (*RowSet, error) {
	return s.e.RunStep(ctx, s.tx, name, sqlText, s.timeout)
}

// StepWithRetry executes one statement inside the scope's transaction,
// retrying transient driver failures.
func (s *TxScope) StepWithRetry(ctx context.Context, name, sqlText string) (*RowSet, error) {
	return s.e.RunStepWithRetry(ctx, s.tx, name, sqlText, s.timeout)
}

// Commit commits everything executed within the scope.
func (s *TxScope) Commit() error {
	if s.done {
		return nil
	}
	s.done = true

	if err := s.tx.Commit(); err != nil {
		return errors.Wrapf(err, "failed to commit %s", s.name)
	}
	return nil
}

// Rollback undoes the scope unless it already committed. Errors are
// swallowed; there is nothing useful a caller can do with a failed
// rollback beyond what the server already guarantees on disconnect.
func (s *TxScope) Rollback() {
	if s.done {
		return
	}
	s.done = true
	_ = s.tx.Rollback()
}
