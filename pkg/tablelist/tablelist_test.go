package tablelist_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/Hephree4887/EJSupervision-Importer/pkg/executor"
	"github.com/Hephree4887/EJSupervision-Importer/pkg/tablelist"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	rows [][]any
	idx  int
}

func (f *fakeRows) Columns() ([]string, error) {
	return []string{
		"RowID", "DatabaseName", "SchemaName", "TableName",
		"fConvert", "ScopeRowCount", "Drop_IfExists", "Select_Into",
	}, nil
}

func (f *fakeRows) Next() bool {
	if f.idx < len(f.rows) {
		f.idx++
		return true
	}
	return false
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.rows[f.idx-1]
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = row[i].(int64)
		case *string:
			*p = row[i].(string)
		case *bool:
			*p = row[i].(bool)
		case **int64:
			if row[i] == nil {
				*p = nil
			} else {
				v := row[i].(int64)
				*p = &v
			}
		default:
			return errors.Errorf("unsupported scan target %T", d)
		}
	}
	return nil
}

func (f *fakeRows) Err() error   { return nil }
func (f *fakeRows) Close() error { return nil }

type fakeRunner struct {
	query    string
	rows     *fakeRows
	queryErr error
}

func (f *fakeRunner) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, nil
}

func (f *fakeRunner) QueryContext(_ context.Context, query string, _ ...any) (executor.Rows, error) {
	f.query = query
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func intp(n int) *int { return &n }

func TestLoadQuery(t *testing.T) {
	runner := &fakeRunner{rows: &fakeRows{rows: [][]any{
		{int64(1), "ELPaso_TX", "dbo", "Cases", true, int64(120), "DROP TABLE IF EXISTS dbo.Cases", "SELECT * INTO dbo.Cases FROM Justice.dbo.Cases"},
		{int64(2), "ELPaso_TX", "dbo", "Party", true, nil, "DROP TABLE IF EXISTS dbo.Party", "SELECT * INTO dbo.Party FROM Justice.dbo.Party"},
	}}}

	entries, err := tablelist.LoadQuery(context.Background(), runner, "ELPaso_TX", "TablesToConvert")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, 1, entries[0].RowID)
	assert.Equal(t, "dbo.Cases", entries[0].QualifiedName())
	assert.True(t, entries[0].Include)
	require.NotNil(t, entries[0].ScopeRowCount)
	assert.Equal(t, 120, *entries[0].ScopeRowCount)
	assert.False(t, entries[0].Empty())

	assert.Nil(t, entries[1].ScopeRowCount)
	assert.True(t, entries[1].Empty(), "an uncounted table is treated as empty")

	assert.Contains(t, runner.query, "FROM ELPaso_TX.dbo.TablesToConvert")
	assert.Contains(t, runner.query, "WHERE fConvert = 1")
	assert.Contains(t, runner.query, "ORDER BY RowID")
}

func TestLoadQueryRejectsBadIdentifiers(t *testing.T) {
	runner := &fakeRunner{rows: &fakeRows{}}

	_, err := tablelist.LoadQuery(context.Background(), runner, "ELPaso_TX; DROP TABLE x", "TablesToConvert")
	require.Error(t, err)
	assert.Empty(t, runner.query, "no query may be issued with an invalid database name")

	_, err = tablelist.LoadQuery(context.Background(), runner, "ELPaso_TX", "TablesToConvert]")
	require.Error(t, err)
}

func TestLoadCSV(t *testing.T) {
	csvText := strings.Join([]string{
		"RowID|DatabaseName|SchemaName|TableName|fConvert|ScopeRowCount|Drop_IfExists|Select_Into|Joins",
		"1|ELPaso_TX|dbo|Cases|1|120|DROP TABLE IF EXISTS dbo.Cases|SELECT * INTO dbo.Cases FROM Justice.dbo.Cases| INNER JOIN dbo.CaseScope CS ON CS.CaseID=Cases.CaseID",
		"2|ELPaso_TX|dbo|Empty|0|0|DROP TABLE IF EXISTS dbo.Empty|SELECT * INTO dbo.Empty FROM Justice.dbo.Empty|",
	}, "\n")

	entries, err := tablelist.LoadCSV(strings.NewReader(csvText))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, 1, first.RowID)
	assert.Equal(t, "ELPaso_TX", first.Database)
	assert.True(t, first.Include)
	assert.Equal(t, "DROP TABLE IF EXISTS dbo.Cases", first.DropSQL)
	assert.Equal(t, "SELECT * INTO dbo.Cases FROM Justice.dbo.Cases INNER JOIN dbo.CaseScope CS ON CS.CaseID=Cases.CaseID", first.SelectSQL,
		"the join clause folds into the select statement")

	second := entries[1]
	assert.False(t, second.Include)
	assert.True(t, second.Empty())
	assert.Equal(t, "SELECT * INTO dbo.Empty FROM Justice.dbo.Empty", second.SelectSQL)
}

func TestLoadCSVMissingColumn(t *testing.T) {
	csvText := "RowID|SchemaName|TableName\n1|dbo|Cases"

	_, err := tablelist.LoadCSV(strings.NewReader(csvText))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DatabaseName")
}

func TestFilter(t *testing.T) {
	entries := []tablelist.Entry{
		{RowID: 1, Table: "Cases", Include: true, ScopeRowCount: intp(120)},
		{RowID: 2, Table: "Empty", Include: false, ScopeRowCount: intp(0)},
		{RowID: 3, Table: "Uncounted", Include: true},
		{RowID: 4, Table: "Drained", Include: true, ScopeRowCount: intp(0)},
		{RowID: 5, Table: "Bond", Include: true, ScopeRowCount: intp(0)},
		{RowID: 6, Table: "Wrnt", Include: false, ScopeRowCount: intp(0)},
	}

	keptNames := func(kept []tablelist.Entry) []string {
		var names []string
		for _, e := range kept {
			names = append(names, e.Table)
		}
		return names
	}

	t.Run("default policy", func(t *testing.T) {
		kept := tablelist.Filter(entries, false, tablelist.AlwaysProcessTables)
		assert.Equal(t, []string{"Cases", "Bond"}, keptNames(kept))
	})

	t.Run("uncounted tables are empty", func(t *testing.T) {
		kept := tablelist.Filter(entries, false, nil)
		assert.Equal(t, []string{"Cases"}, keptNames(kept))
	})

	t.Run("include empty keeps flagged tables only", func(t *testing.T) {
		kept := tablelist.Filter(entries, true, tablelist.AlwaysProcessTables)
		assert.Equal(t, []string{"Cases", "Uncounted", "Drained", "Bond"}, keptNames(kept))
	})

	t.Run("always list never overrides the conversion flag", func(t *testing.T) {
		kept := tablelist.Filter(entries, true, tablelist.AlwaysProcessTables)
		assert.NotContains(t, keptNames(kept), "Wrnt")
	})
}

func TestValidateIdentifiers(t *testing.T) {
	good := tablelist.Entry{RowID: 1, Database: "ELPaso_TX", Schema: "dbo", Table: "Cases"}
	assert.NoError(t, good.ValidateIdentifiers())

	bad := tablelist.Entry{RowID: 2, Database: "ELPaso_TX", Schema: "dbo", Table: "Cases; DROP TABLE x"}
	assert.Error(t, bad.ValidateIdentifiers())
}
