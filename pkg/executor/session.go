package executor

import (
	"context"
	"database/sql"
)

type (
	// Rows is the subset of *sql.Rows the executor needs to fetch optional
	// result sets. *sql.Rows satisfies it directly; tests supply fakes.
	Rows interface {
		Columns() ([]string, error)
		Next() bool
		Scan(dest ...any) error
		Err() error
		Close() error
	}

	// Runner executes statements. Both sessions and open transactions are
	// Runners, so single-statement steps can run in either context.
	Runner interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	}

	// Tx is an open transaction on a session.
	Tx interface {
		Runner
		Commit() error
		Rollback() error
	}

	// Session is a single database session with explicit transaction
	// control. Each pipeline run owns exactly one session for its lifetime;
	// sessions are not shared or pooled across stages.
	Session interface {
		Runner
		BeginTx(ctx context.Context) (Tx, error)
	}
)

// connSession adapts a *sql.Conn to the Session interface. Using a
// dedicated *sql.Conn (not *sql.DB) pins all work to one server session,
// which is required for SET LOCK_TIMEOUT to apply to subsequent statements.
type connSession struct {
	conn *sql.Conn
}

// NewSession wraps a dedicated database connection as a Session.
func NewSession(conn *sql.Conn) Session {
	return &connSession{conn: conn}
}

func (s *connSession) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.conn.ExecContext(ctx, query, args...)
}

func (s *connSession) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	return s.conn.QueryContext(ctx, query, args...)
}

func (s *connSession) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return sqlTx{tx}, nil
}

// sqlTx adapts *sql.Tx to the Tx interface.
type sqlTx struct {
	*sql.Tx
}

func (t sqlTx) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	return t.Tx.QueryContext(ctx, query, args...)
}
