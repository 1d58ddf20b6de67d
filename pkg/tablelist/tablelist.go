// Package tablelist loads and filters the per-stage list of source tables
// slated for migration. Each entry carries the pre-generated DROP and
// SELECT INTO statements for its table plus the optional JOIN enrichment
// added by the join-update stage.
//
// Entries come from one of two sources: a query against the stage's list
// table in the target database (the normal path, after the gather stage
// has populated it), or a pipe-delimited CSV fallback file with the same
// column shape.
package tablelist

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Hephree4887/EJSupervision-Importer/pkg/executor"
	"github.com/Hephree4887/EJSupervision-Importer/pkg/sqlsafe"
	"github.com/pkg/errors"
)

// AlwaysProcessTables lists tables migrated even when their in-scope row
// count is zero. Downstream consumers join against them, so the empty
// shell must exist on the target.
var AlwaysProcessTables = []string{
	"Bond", "ClkCaseHdr", "SupClinicalScreening", "CrimDispEvent", "Event",
	"HearingEvent", "SupNeedsAssessment", "table8", "Party", "PleaEvent",
	"Interview", "SupPartyPSI", "SupPartyReferral", "SupRiskAssessment", "SentenceEvent",
	"SupervisionRec", "SupContact", "Wrnt",
}

// Entry is one source table's migration directive.
type Entry struct {
	RowID    int
	Database string
	Schema   string
	Table    string

	// Include mirrors the list table's fConvert flag.
	Include bool

	// ScopeRowCount is the number of in-scope rows counted by the gather
	// stage. Nil means the count was never computed, which is treated the
	// same as a zero count.
	ScopeRowCount *int

	DropSQL    string
	SelectSQL  string
	JoinClause string
}

// QualifiedName returns the schema-qualified table name.
func (e Entry) QualifiedName() string {
	return e.Schema + "." + e.Table
}

// Empty reports whether the gather stage counted zero in-scope rows for
// this table. An entry with no count at all is also empty; a missing count
// means the gather stage never saw the table's scope.
func (e Entry) Empty() bool {
	return e.ScopeRowCount == nil || *e.ScopeRowCount <= 0
}

// ValidateIdentifiers checks that every identifier destined for SQL
// interpolation is a plain object name.
func (e Entry) ValidateIdentifiers() error {
	for _, id := range []string{e.Database, e.Schema, e.Table} {
		if err := sqlsafe.ValidIdentifier(id); err != nil {
			return errors.Wrapf(err, "table list row %d", e.RowID)
		}
	}
	return nil
}

// listQuery reads the stage's list table. Joins are folded into the
// SELECT INTO statement here so each entry carries its final, executable
// pair. NVARCHAR(MAX) casts defeat the TEXT-column truncation some
// drivers apply to large generated statements.
const listQuery = `SELECT RowID, DatabaseName, SchemaName, TableName, fConvert, ScopeRowCount,
       CAST(Drop_IfExists AS NVARCHAR(MAX)) AS Drop_IfExists,
       CAST(CAST(Select_Into AS NVARCHAR(MAX)) + CAST(ISNULL(Joins, N'') AS NVARCHAR(MAX)) AS NVARCHAR(MAX)) AS Select_Into
FROM %s.dbo.%s
WHERE fConvert = 1
ORDER BY RowID`

// LoadQuery reads the included entries from <db>.dbo.<table> in ascending
// RowID order. Both identifiers are validated before interpolation; the
// list table name varies per stage and the database name comes from
// configuration, so neither can be bound as a parameter.
func LoadQuery(ctx context.Context, r executor.Runner, db, table string) ([]Entry, error) {
	if err := sqlsafe.ValidIdentifier(db); err != nil {
		return nil, errors.Wrap(err, "list database name")
	}
	if err := sqlsafe.ValidIdentifier(table); err != nil {
		return nil, errors.Wrap(err, "list table name")
	}

	rows, err := r.QueryContext(ctx, fmt.Sprintf(listQuery, db, table))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query table list %s.dbo.%s", db, table)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			rowID              int64
			dbName             string
			schema             string
			name               string
			include            bool
			scopeCount         *int64
			dropSQL, selectSQL string
		)
		if err := rows.Scan(&rowID, &dbName, &schema, &name, &include, &scopeCount, &dropSQL, &selectSQL); err != nil {
			return nil, errors.Wrap(err, "failed to scan table list row")
		}

		e := Entry{
			RowID:     int(rowID),
			Database:  dbName,
			Schema:    schema,
			Table:     name,
			Include:   include,
			DropSQL:   dropSQL,
			SelectSQL: selectSQL,
		}
		if scopeCount != nil {
			n := int(*scopeCount)
			e.ScopeRowCount = &n
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read table list rows")
	}

	return entries, nil
}

// csvHeader is the required column order of the fallback CSV files.
var csvHeader = []string{
	"RowID", "DatabaseName", "SchemaName", "TableName", "fConvert",
	"ScopeRowCount", "Drop_IfExists", "Select_Into", "Joins",
}

// LoadCSV reads the pipe-delimited fallback file. The header row is
// required and column positions are resolved from it, so extra columns
// are tolerated and column order beyond the required set is free.
func LoadCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.Comma = '|'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read table list CSV header")
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range csvHeader {
		if col == "ScopeRowCount" || col == "Joins" {
			continue // optional columns
		}
		if _, ok := idx[col]; !ok {
			return nil, errors.Errorf("table list CSV is missing column %s", col)
		}
	}

	field := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var entries []Entry
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read table list CSV line %d", line)
		}

		rowID, err := strconv.Atoi(field(rec, "RowID"))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid RowID on table list CSV line %d", line)
		}

		e := Entry{
			RowID:      rowID,
			Database:   field(rec, "DatabaseName"),
			Schema:     field(rec, "SchemaName"),
			Table:      field(rec, "TableName"),
			Include:    field(rec, "fConvert") == "1",
			DropSQL:    field(rec, "Drop_IfExists"),
			SelectSQL:  field(rec, "Select_Into"),
			JoinClause: field(rec, "Joins"),
		}
		if s := field(rec, "ScopeRowCount"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid ScopeRowCount on table list CSV line %d", line)
			}
			e.ScopeRowCount = &n
		}
		if e.JoinClause != "" {
			e.SelectSQL += e.JoinClause
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// Filter applies the inclusion policy: entries not flagged for conversion
// are always dropped, and empty tables are dropped unless includeEmpty is
// set or the table is in alwaysInclude. The always list only bypasses the
// empty check, never the conversion flag. Order is preserved.
func Filter(entries []Entry, includeEmpty bool, alwaysInclude []string) []Entry {
	always := make(map[string]struct{}, len(alwaysInclude))
	for _, t := range alwaysInclude {
		always[t] = struct{}{}
	}

	var kept []Entry
	for _, e := range entries {
		if !e.Include {
			continue
		}
		if _, ok := always[e.Table]; !ok && !includeEmpty && e.Empty() {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
