// Package sqlsafe screens SQL text and identifiers that originate outside
// the script tree (CSV files, rows read back from work tables) before they
// are executed or interpolated.
package sqlsafe

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

var (
	identifierRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	// controlRE matches C0/C1 control characters except tab, LF, and CR.
	controlRE = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f-\x9f]`)

	// injectionRE matches patterns that never occur in generated migration
	// statements: a statement terminator followed by a destructive verb,
	// inline comments, and the classic tautology.
	injectionRE = regexp.MustCompile(`(?i);\s*(?:drop|delete|truncate|alter)\s+|--|\bOR\b\s+1=1`)
)

// Sanitize normalizes statement text sourced from a work table or CSV and
// rejects it if it carries suspicious patterns. Control characters are
// stripped and the text is NFKC-normalized so T-SQL sees canonical
// codepoints. Returns an error when the text looks like an injection
// attempt or has unbalanced quotes.
func Sanitize(sql string) (string, error) {
	sql = controlRE.ReplaceAllString(sql, "")
	sql = norm.NFKC.String(sql)

	if injectionRE.MatchString(sql) {
		return "", errors.New("statement contains a suspicious pattern")
	}

	if strings.Count(sql, "'")%2 != 0 || strings.Count(sql, `"`)%2 != 0 {
		return "", errors.New("statement has unbalanced quotes")
	}

	return sql, nil
}

// ValidIdentifier checks that s is usable as a SQL identifier: letters,
// digits, and underscores only, not starting with a digit. Identifiers
// that pass may be interpolated into statement text directly.
func ValidIdentifier(s string) error {
	if !identifierRE.MatchString(s) {
		return errors.Errorf("invalid SQL identifier: %q", s)
	}
	return nil
}
