// Package batch decomposes SQL script text into independently executable
// batches.
//
// T-SQL scripts use GO as a batch separator. GO is a client-side convention,
// not a SQL statement: the server rejects it, so scripts containing it must
// be split on separator lines and each chunk sent as its own batch. Scripts
// without GO are split on semicolons instead, one statement per batch, with
// comment-only fragments dropped.
package batch

import (
	"regexp"
	"strings"
)

// Batch is one contiguous, independently executable slice of a script.
// Ordering is significant: batches must execute in the order produced.
type Batch struct {
	// Ordinal is the 1-based position of this batch within the script,
	// counted over executable batches only.
	Ordinal int

	// Text is the batch content, trimmed of surrounding whitespace.
	Text string
}

// separatorRE matches a line consisting solely of the GO keyword,
// case-insensitively, tolerating surrounding whitespace and both LF and
// CRLF line endings. \s includes \r and \n, so the match also swallows
// blank lines adjacent to the separator; that is harmless since batches
// are trimmed anyway.
var separatorRE = regexp.MustCompile(`(?im)^\s*GO\s*$`)

// Split parses script text into an ordered sequence of batches.
//
// If the text contains a GO separator line, the text is split on those
// lines and each chunk becomes one batch, executed as-is with no further
// statement splitting. Batch-separated scripts routinely contain constructs
// (CREATE PROCEDURE bodies, SET options) that are not valid when split on
// semicolons.
//
// Otherwise the text is split on semicolons, one statement per batch.
// Fragments that are empty after trimming are dropped, as are fragments
// that begin with a block comment. Leading line comments are stripped from
// each fragment first, so a statement preceded by a trailing comment from
// the previous line still executes.
//
// A script containing only comments yields zero batches.
func Split(text string) []Batch {
	if separatorRE.MatchString(text) {
		return collect(separatorRE.Split(text, -1))
	}
	return collect(statements(text))
}

// collect trims chunks, discards empty ones, and assigns ordinals.
func collect(chunks []string) []Batch {
	var batches []Batch
	for _, chunk := range chunks {
		trimmed := strings.TrimSpace(chunk)
		if trimmed == "" {
			continue
		}
		batches = append(batches, Batch{Ordinal: len(batches) + 1, Text: trimmed})
	}
	return batches
}

// statements splits single-batch script text on statement terminators and
// filters out comment-only fragments.
func statements(text string) []string {
	var out []string
	for _, stmt := range strings.Split(text, ";") {
		stmt = stripLeadingLineComments(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "/*") {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

// stripLeadingLineComments trims the fragment and removes any leading lines
// that are entirely -- comments, returning the trimmed remainder.
func stripLeadingLineComments(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	for strings.HasPrefix(stmt, "--") {
		idx := strings.IndexAny(stmt, "\r\n")
		if idx < 0 {
			return ""
		}
		stmt = strings.TrimSpace(stmt[idx:])
	}
	return stmt
}
