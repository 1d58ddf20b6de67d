package pipeline

import (
	"github.com/Hephree4887/EJSupervision-Importer/pkg/consts"
	"github.com/pkg/errors"
)

type (
	// Step is one named scope-definition unit run during DefiningScope.
	Step struct {
		// Name identifies the step in logs and error messages.
		Name string

		// Script is the logical script path under the script root.
		Script string
	}

	// Source describes one source database's migration recipe: which
	// scope-definition steps to run, which scripts build and enrich its
	// table list, where that list lives, and which stage follows it in
	// the overall sequence. The pipeline driver is identical for every
	// source; only these capabilities vary.
	Source interface {
		// Name is the stage's display name, e.g. "Justice DB Import".
		Name() string

		// PreprocessingSteps returns the ordered scope-definition steps.
		// May be empty.
		PreprocessingSteps() []Step

		// TableListScript builds the stage's table list with one
		// DROP/SELECT INTO pair per table.
		TableListScript() string

		// JoinUpdateScript enriches the table list with JOIN clauses.
		// Empty when the stage has no join enrichment.
		JoinUpdateScript() string

		// ListTable names the table holding this stage's work list.
		ListTable() string

		// NextStage names the stage to chain into, or "" when terminal.
		NextStage() string

		// CSVFileName is the default fallback work-list file name.
		CSVFileName() string

		// ErrorLogName is the default per-stage error log file name.
		ErrorLogName() string
	}

	source struct {
		name       string
		steps      []Step
		listScript string
		joinScript string
		listTable  string
		next       string
		csvFile    string
		errorLog   string
	}
)

func (s source) Name() string               { return s.name }
func (s source) PreprocessingSteps() []Step { return s.steps }
func (s source) TableListScript() string    { return s.listScript }
func (s source) JoinUpdateScript() string   { return s.joinScript }
func (s source) ListTable() string          { return s.listTable }
func (s source) NextStage() string          { return s.next }
func (s source) CSVFileName() string        { return s.csvFile }
func (s source) ErrorLogName() string       { return s.errorLog }

// The four migration stages, in chain order.
var (
	Justice Source = source{
		name: "Justice DB Import",
		steps: []Step{
			{Name: "GatherCaseIDs", Script: "justice/gather_caseids.sql"},
			{Name: "GatherChargeIDs", Script: "justice/gather_chargeids.sql"},
			{Name: "GatherPartyIDs", Script: "justice/gather_partyids.sql"},
			{Name: "GatherWarrantIDs", Script: "justice/gather_warrantids.sql"},
			{Name: "GatherHearingIDs", Script: "justice/gather_hearingids.sql"},
			{Name: "GatherEventIDs", Script: "justice/gather_eventids.sql"},
		},
		listScript: "justice/gather_drops_and_selects.sql",
		joinScript: "justice/update_joins.sql",
		listTable:  "TablesToConvert",
		next:       "Operations DB Import",
		csvFile:    "EJ_Justice_Selects_ALL.csv",
		errorLog:   consts.ErrorLogPrefix + "Justice.txt",
	}

	Operations Source = source{
		name: "Operations DB Import",
		steps: []Step{
			{Name: "GatherOperationsIDs", Script: "operations/gather_operationsids.sql"},
		},
		listScript: "operations/gather_drops_and_selects_operations.sql",
		joinScript: "operations/update_joins_operations.sql",
		listTable:  "TablesToConvert_Operations",
		next:       "Financial DB Import",
		csvFile:    "EJ_Operations_Selects_ALL.csv",
		errorLog:   consts.ErrorLogPrefix + "Operations.txt",
	}

	Financial Source = source{
		name: "Financial DB Import",
		steps: []Step{
			{Name: "GatherFeeInstanceIDs", Script: "financial/gather_feeinstanceids.sql"},
		},
		listScript: "financial/gather_drops_and_selects_financial.sql",
		joinScript: "financial/update_joins_financial.sql",
		listTable:  "TablesToConvert_Financial",
		next:       "LOB Column Processing",
		csvFile:    "EJ_Financial_Selects_ALL.csv",
		errorLog:   consts.ErrorLogPrefix + "Financial.txt",
	}

	// LOBColumns rewrites large-object columns in already-migrated tables.
	// Its work list carries no DROP statements and an UPDATE in the select
	// slot, and it is the terminal stage.
	LOBColumns Source = source{
		name:       "LOB Column Processing",
		listScript: "lob/gather_lobcolumns.sql",
		listTable:  "LOBColumnsToConvert",
		csvFile:    "EJ_LOBColumns.csv",
		errorLog:   consts.ErrorLogPrefix + "LOB.txt",
	}
)

// Sources lists the stages in chain order.
var Sources = []Source{Justice, Operations, Financial, LOBColumns}

// SourceByName resolves a stage by its display name, as emitted in
// completion signals.
func SourceByName(name string) (Source, error) {
	for _, s := range Sources {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, errors.Errorf("unknown migration stage %q", name)
}
