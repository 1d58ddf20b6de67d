package scripts_test

import (
	"testing"
	"testing/fstest"

	"github.com/Hephree4887/EJSupervision-Importer/pkg/etlerrors"
	"github.com/Hephree4887/EJSupervision-Importer/pkg/scripts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"justice/gather_caseids.sql": &fstest.MapFile{
			Data: []byte("USE ${DB_NAME};\nSELECT CaseID INTO ${DB_NAME}.dbo.CaseScope FROM Cases;"),
		},
		"justice/static.sql": &fstest.MapFile{
			Data: []byte("SELECT 1;"),
		},
		"financial/tokens.sql": &fstest.MapFile{
			Data: []byte("SELECT '${UNKNOWN}' FROM ${DB_NAME}.dbo.FeeInstance;"),
		},
	}
	loader := scripts.NewLoader(fsys)

	tests := []struct {
		name string
		ref  string
		subs map[string]string
		want string
	}{
		{
			name: "replaces all placeholder occurrences",
			ref:  "justice/gather_caseids.sql",
			subs: map[string]string{"${DB_NAME}": "Supervision"},
			want: "USE Supervision;\nSELECT CaseID INTO Supervision.dbo.CaseScope FROM Cases;",
		},
		{
			name: "no substitutions leaves script untouched",
			ref:  "justice/static.sql",
			subs: nil,
			want: "SELECT 1;",
		},
		{
			name: "unmatched placeholders are left verbatim",
			ref:  "financial/tokens.sql",
			subs: map[string]string{"${DB_NAME}": "Supervision"},
			want: "SELECT '${UNKNOWN}' FROM Supervision.dbo.FeeInstance;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loader.Load(tt.ref, tt.subs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	fsys := fstest.MapFS{
		"justice/gather_partyids.sql": &fstest.MapFile{
			Data: []byte("SELECT PartyID FROM ${DB_NAME}.dbo.Party;"),
		},
	}
	loader := scripts.NewLoader(fsys)

	first, err := loader.LoadForDatabase("justice/gather_partyids.sql", "Supervision")
	require.NoError(t, err)

	second, err := loader.LoadForDatabase("justice/gather_partyids.sql", "Supervision")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoadMissingScript(t *testing.T) {
	loader := scripts.NewLoader(fstest.MapFS{})

	_, err := loader.Load("justice/nope.sql", nil)
	require.Error(t, err)
	assert.True(t, etlerrors.IsScriptNotFound(err))
	assert.Contains(t, err.Error(), "justice/nope.sql")
}
