// Package scripts resolves logical script references to SQL text.
//
// Migration SQL lives as plain files under a script root (e.g.
// "justice/gather_caseids.sql"). The loader reads the referenced file and
// performs literal placeholder substitution; no SQL parsing happens here.
package scripts

import (
	"io/fs"
	"os"
	"strings"

	"github.com/Hephree4887/EJSupervision-Importer/pkg/consts"
	"github.com/Hephree4887/EJSupervision-Importer/pkg/etlerrors"
	"github.com/pkg/errors"
)

// Loader resolves script references against a filesystem rooted at the
// script directory. Any fs.FS works, which keeps the loader testable with
// fstest.MapFS and usable with embedded script sets.
type Loader struct {
	fsys fs.FS
}

// NewLoader creates a Loader over the provided filesystem.
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// NewDirLoader creates a Loader rooted at the given directory.
//
// Example:
//
//	loader := scripts.NewDirLoader("/opt/ej/sql_scripts")
//	sql, err := loader.LoadForDatabase("justice/gather_caseids.sql", "Supervision")
func NewDirLoader(dir string) *Loader {
	return NewLoader(os.DirFS(dir))
}

// Load reads the script named by ref and replaces each placeholder key with
// its value. Substitution is literal substring replacement; placeholders
// that do not occur in the script are ignored, and tokens in the script
// with no matching substitution are left verbatim. Loading is a pure text
// transform, so loading the same ref with the same substitutions always
// yields identical text.
//
// A missing file yields an *etlerrors.ScriptNotFoundError.
func (l *Loader) Load(ref string, subs map[string]string) (string, error) {
	content, err := fs.ReadFile(l.fsys, ref)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &etlerrors.ScriptNotFoundError{Ref: ref, Err: err}
		}
		return "", errors.Wrapf(err, "failed to read script: %s", ref)
	}

	text := string(content)
	for token, value := range subs {
		text = strings.ReplaceAll(text, token, value)
	}

	return text, nil
}

// LoadForDatabase loads ref with the target database name substituted for
// the ${DB_NAME} placeholder. This is the common case: scripts are written
// against a placeholder so the same SQL can run against any target.
func (l *Loader) LoadForDatabase(ref, dbName string) (string, error) {
	return l.Load(ref, map[string]string{consts.DBNamePlaceholder: dbName})
}
