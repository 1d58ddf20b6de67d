package sqlsafe_test

import (
	"testing"

	"github.com/Hephree4887/EJSupervision-Importer/pkg/sqlsafe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		want    string
		wantErr bool
	}{
		{
			name: "clean drop statement passes",
			sql:  "IF OBJECT_ID('dbo.Cases', 'U') IS NOT NULL DROP TABLE dbo.Cases",
			want: "IF OBJECT_ID('dbo.Cases', 'U') IS NOT NULL DROP TABLE dbo.Cases",
		},
		{
			name: "control characters stripped",
			sql:  "SELECT * INTO dbo.Cases\x00 FROM Justice.dbo.Cases",
			want: "SELECT * INTO dbo.Cases FROM Justice.dbo.Cases",
		},
		{
			name:    "piggybacked drop rejected",
			sql:     "SELECT 1; DROP TABLE dbo.Cases",
			wantErr: true,
		},
		{
			name:    "inline comment rejected",
			sql:     "SELECT 1 -- hide the rest",
			wantErr: true,
		},
		{
			name:    "tautology rejected",
			sql:     "SELECT * FROM dbo.Party WHERE 'a'='a' OR 1=1",
			wantErr: true,
		},
		{
			name:    "unbalanced quote rejected",
			sql:     "SELECT 'broken FROM dbo.Cases",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sqlsafe.Sanitize(tt.sql)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidIdentifier(t *testing.T) {
	for _, ok := range []string{"TablesToConvert", "dbo", "_tmp", "Table8"} {
		assert.NoError(t, sqlsafe.ValidIdentifier(ok), ok)
	}

	for _, bad := range []string{"", "8table", "dbo.Cases", "name-with-dash", "x y", "a;b"} {
		assert.Error(t, sqlsafe.ValidIdentifier(bad), bad)
	}
}
