package consts

import (
	"os"
	"time"
)

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// DBNamePlaceholder is the token in SQL scripts that gets replaced with
	// the resolved target database name before execution.
	DBNamePlaceholder = "${DB_NAME}"

	// DefaultSQLTimeout is the per-statement lock-wait timeout applied to
	// every statement unless overridden by configuration.
	DefaultSQLTimeout = 300 * time.Second

	// DefaultMaxRetryAttempts bounds how many times a transient statement
	// failure is retried before it is surfaced.
	DefaultMaxRetryAttempts = 3

	// DefaultRetryBaseDelay seeds the exponential backoff between retry
	// attempts (delay doubles after each failed attempt).
	DefaultRetryBaseDelay = time.Second

	// ErrorLogPrefix is the filename prefix for the per-source append-only
	// error log (e.g. PreDMSErrorLog_Justice.txt).
	ErrorLogPrefix = "PreDMSErrorLog_"

	// DefaultScriptDir is the directory holding the per-stage SQL scripts
	// when no script_dir is configured.
	DefaultScriptDir = "sql_scripts"
)
