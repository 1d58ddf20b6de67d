// Package etlerrors defines the error taxonomy for the import engine.
//
// Three kinds of failures flow through the pipeline:
//   - ScriptNotFoundError: a SQL script file is missing. Always fatal, never
//     retried, and aborts the stage that requested it.
//   - SQLExecutionError: a statement or batch failed. Carries the offending
//     SQL and the step or table name for logging, and wraps the driver error
//     so retry classification can inspect it.
//   - Lock-wait timeouts: a specialization of SQLExecutionError detected via
//     IsLockTimeout; treated as transient and retried up to the attempt limit.
package etlerrors

import (
	"database/sql/driver"
	"fmt"
	"net"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/pkg/errors"
)

// SQL Server error numbers used for retry classification.
const (
	// ErrNumDeadlockVictim is raised when the session was chosen as a
	// deadlock victim (severity 13).
	ErrNumDeadlockVictim = 1205

	// ErrNumLockRequestTimeout is raised when a statement exceeds the
	// session's SET LOCK_TIMEOUT budget waiting for a contended lock.
	ErrNumLockRequestTimeout = 1222
)

type (
	// ScriptNotFoundError indicates that a logical script reference could not
	// be resolved to a file under the script root.
	ScriptNotFoundError struct {
		// Ref is the logical script path (e.g. "justice/gather_caseids.sql").
		Ref string

		// Err is the underlying filesystem error.
		Err error
	}

	// SQLExecutionError wraps a driver failure with the offending SQL text
	// and the step or table name that was executing it.
	SQLExecutionError struct {
		// Step names the unit of work that failed (step name or table name).
		Step string

		// SQL is the statement or batch text that was being executed.
		SQL string

		// Err is the original driver error.
		Err error
	}
)

func (e *ScriptNotFoundError) Error() string {
	return fmt.Sprintf("sql script not found: %s", e.Ref)
}

func (e *ScriptNotFoundError) Unwrap() error { return e.Err }

func (e *SQLExecutionError) Error() string {
	name := e.Step
	if name == "" {
		name = "statement"
	}
	return fmt.Sprintf("sql execution failed for %s: %v", name, e.Err)
}

func (e *SQLExecutionError) Unwrap() error { return e.Err }

// IsScriptNotFound reports whether err is (or wraps) a ScriptNotFoundError.
func IsScriptNotFound(err error) bool {
	var nf *ScriptNotFoundError
	return errors.As(err, &nf)
}

// IsTransient reports whether err represents a driver or transport failure
// that is worth retrying: deadlock victims, lock-wait timeouts, dropped
// connections, and network errors. Logic errors (syntax, constraint
// violations, missing objects) are not transient and must surface
// immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var sqlErr mssql.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.SQLErrorNumber() {
		case ErrNumDeadlockVictim, ErrNumLockRequestTimeout:
			return true
		}
		return false
	}

	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsLockTimeout reports whether err was caused by the server's lock-wait
// limit (SET LOCK_TIMEOUT) expiring. Used to emit a distinguishing warning
// before a retry; it does not change control flow.
func IsLockTimeout(err error) bool {
	var sqlErr mssql.Error
	return errors.As(err, &sqlErr) && sqlErr.SQLErrorNumber() == ErrNumLockRequestTimeout
}
