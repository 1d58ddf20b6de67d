package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Hephree4887/EJSupervision-Importer/pkg/consts"
	"github.com/pkg/errors"
)

// ErrorLog is the append-only per-stage error file reviewed after a run
// to see which tables need manual attention. Every entry is timestamped.
// Appends are serialized so the file stays line-atomic if stages ever run
// concurrently.
type ErrorLog struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewErrorLog creates an error log writing to path. The file is created
// on first append.
func NewErrorLog(path string) *ErrorLog {
	return &ErrorLog{path: path, now: time.Now}
}

// Path returns the log file location.
func (l *ErrorLog) Path() string { return l.path }

// Append writes one timestamped entry. A nil receiver is a no-op so
// callers without an error file configured need no guard.
func (l *ErrorLog) Append(msg string) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, consts.ModeDir); err != nil {
			return errors.Wrapf(err, "failed to create log directory %s", dir)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, consts.ModeFile)
	if err != nil {
		return errors.Wrapf(err, "failed to open error log %s", l.path)
	}
	defer func() { _ = f.Close() }()

	line := fmt.Sprintf("%s - %s\n", l.now().Format("2006-01-02 15:04:05"), msg)
	if _, err := f.WriteString(line); err != nil {
		return errors.Wrapf(err, "failed to append to error log %s", l.path)
	}
	return nil
}
