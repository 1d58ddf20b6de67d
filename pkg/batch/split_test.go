package batch_test

import (
	"strings"
	"testing"

	"github.com/Hephree4887/EJSupervision-Importer/pkg/batch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func texts(batches []batch.Batch) []string {
	out := make([]string, 0, len(batches))
	for _, b := range batches {
		out = append(out, b.Text)
	}
	return out
}

func TestSplitWithSeparator(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "two batches",
			text: "CREATE TABLE dbo.CaseScope (CaseID INT)\nGO\nINSERT INTO dbo.CaseScope VALUES (1)\n",
			want: []string{
				"CREATE TABLE dbo.CaseScope (CaseID INT)",
				"INSERT INTO dbo.CaseScope VALUES (1)",
			},
		},
		{
			name: "lowercase separator with surrounding whitespace",
			text: "SELECT 1\n  go  \nSELECT 2",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "crlf line endings",
			text: "SELECT 1\r\nGO\r\nSELECT 2\r\n",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "trailing separator yields no empty batch",
			text: "SELECT 1\nGO\n",
			want: []string{"SELECT 1"},
		},
		{
			name: "batches keep their semicolons intact",
			text: "UPDATE dbo.T SET A = 1;\nUPDATE dbo.T SET B = 2;\nGO\nSELECT 1",
			want: []string{"UPDATE dbo.T SET A = 1;\nUPDATE dbo.T SET B = 2;", "SELECT 1"},
		},
		{
			name: "GOTO is not a separator",
			text: "IF @@ERROR <> 0 GOTO done\nGO\nSELECT 1",
			want: []string{"IF @@ERROR <> 0 GOTO done", "SELECT 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := batch.Split(tt.text)
			assert.Equal(t, tt.want, texts(got))

			for i, b := range got {
				assert.Equal(t, i+1, b.Ordinal)
				assert.NotContains(t, strings.ToUpper(b.Text), "\nGO\n")
			}
		})
	}
}

func TestSplitWithoutSeparator(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "statement per semicolon with trailing comment",
			text: "SELECT 1; -- comment\nSELECT 2;",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "comment only script yields no batches",
			text: "-- nothing here\n/* or here */",
			want: nil,
		},
		{
			name: "block comment fragment dropped",
			text: "SELECT 1;\n/* setup notes */;\nSELECT 2;",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "leading line comments stripped from statement",
			text: "-- scope\n-- more notes\nDELETE FROM dbo.CaseScope;",
			want: []string{"DELETE FROM dbo.CaseScope"},
		},
		{
			name: "empty script",
			text: "   \n ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, texts(batch.Split(tt.text)))
		})
	}
}

func TestSplitPreservesOrder(t *testing.T) {
	text := "SELECT 'a';SELECT 'b';SELECT 'c';"

	got := batch.Split(text)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"SELECT 'a'", "SELECT 'b'", "SELECT 'c'"}, texts(got))
}

func TestSplitGolden(t *testing.T) {
	script := string(golden.Get(t, "gather_drops_and_selects.sql"))

	var rendered strings.Builder
	for _, b := range batch.Split(script) {
		rendered.WriteString(b.Text)
		rendered.WriteString("\n---\n")
	}

	golden.Assert(t, rendered.String(), "gather_drops_and_selects.golden")
}
