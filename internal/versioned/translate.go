package versioned

import (
	"fmt"

	"github.com/vault-md/versioned/internal/readingmode"
)

// Scope tells Translate whether the plan reads a list or one record.
type Scope int

const (
	ScopeList Scope = iota
	ScopeSingle
)

// Query parameter values of Versioned.mode.
const (
	paramModeStage          = "stage"
	paramModeArchive        = "archive"
	paramModeAllVersions    = "all_versions"
	paramModeLatestVersions = "latest_versions"
	paramModeVersion        = "version"
)

// Translate validates args and computes the plan reading baseTable under
// them.
func Translate(args QueryArgs, baseTable string, scope Scope) (FilterPlan, error) {
	if err := Validate(args); err != nil {
		return FilterPlan{}, err
	}
	if baseTable == "" {
		return FilterPlan{}, invalidArgument("BaseTable", "a base table is required")
	}

	plan := FilterPlan{BaseTable: baseTable}
	switch args.Mode {
	case ModeDraft, ModeLive:
		stage := readingmode.StageDraft
		if args.Mode == ModeLive {
			stage = readingmode.StageLive
		}
		table := StageTable(baseTable, stage)
		plan.Source = Source{Projection: ProjectStage, Table: table, Alias: table, Stage: stage}
		plan.Params = Params{Mode: paramModeStage, Stage: stage}

	case ModeArchive:
		stage := args.archiveStage()
		plan.Source = Source{
			Projection: ProjectArchive,
			Table:      VersionsTable(baseTable),
			Alias:      baseTable,
			Stage:      stage,
			Date:       *args.ArchiveDate,
		}
		plan.Params = Params{Mode: paramModeArchive, Stage: stage, Date: *args.ArchiveDate}

	case ModeAllVersions:
		plan.Source = Source{Projection: ProjectAllVersions, Table: VersionsTable(baseTable), Alias: baseTable}
		plan.Params = Params{Mode: paramModeAllVersions}

	case ModeLatestVersions:
		plan.Source = Source{Projection: ProjectLatestVersions, Table: VersionsTable(baseTable), Alias: baseTable}
		plan.Params = Params{Mode: paramModeLatestVersions}

	case ModeVersion:
		if scope == ScopeList {
			return FilterPlan{}, fmt.Errorf("%w: the version mode reads a single record and cannot filter a list", ErrUnsupportedContext)
		}
		version := *args.Version
		plan.Source = Source{Projection: ProjectVersion, Table: VersionsTable(baseTable), Alias: baseTable, Version: &version}
		plan.Params = Params{Mode: paramModeVersion, Version: &version}
		plan.SingleRecord = true

	case ModeStatus:
		if err := applyStatusFilter(&plan, baseTable, args.Status); err != nil {
			return FilterPlan{}, err
		}

	default:
		return FilterPlan{}, invalidArgument("Mode", "Unsupported read mode %s", args.Mode)
	}
	return plan, nil
}

// applyStatusFilter left-joins the live table to the draft side and ORs
// one clause per requested status. When archived records are requested the
// draft table cannot be the source, since archived records have no draft
// row; the latest versions take its place and the real draft table is
// joined under a separate alias.
func applyStatusFilter(plan *FilterPlan, baseTable string, statuses []StatusFilter) error {
	if len(statuses) == 0 {
		return invalidArgument("Status", "Invalid statuses provided")
	}

	liveTable := LiveTable(baseTable)
	draftSide := baseTable

	if containsStatus(statuses, FilterArchived) {
		draftSide = baseTable + draftAlias
		plan.Source = Source{Projection: ProjectLatestVersions, Table: VersionsTable(baseTable), Alias: baseTable}
		plan.Params = Params{Mode: paramModeLatestVersions}
		plan.Joins = append(plan.Joins, Join{
			Table: baseTable,
			Alias: draftSide,
			On:    Compare(Col(baseTable, "ID"), OpEqual, Col(draftSide, "ID")),
		})
	} else {
		plan.Source = Source{Projection: ProjectStage, Table: baseTable, Alias: baseTable, Stage: readingmode.StageDraft}
		plan.Params = Params{Mode: paramModeStage, Stage: readingmode.StageDraft}
	}

	plan.Joins = append(plan.Joins, Join{
		Table: liveTable,
		Alias: liveTable,
		On:    Compare(Col(baseTable, "ID"), OpEqual, Col(liveTable, "ID")),
	})

	clauses := make([]Clause, 0, len(statuses))
	for _, status := range statuses {
		switch status {
		case FilterModified:
			clauses = append(clauses, Clause{
				IsNotNull(Col(liveTable, "ID")),
				IsNotNull(Col(draftSide, "ID")),
				Compare(Col(draftSide, "Version"), OpNotEqual, Col(liveTable, "Version")),
			})
		case FilterArchived:
			clauses = append(clauses, Clause{IsNull(Col(draftSide, "ID"))})
		case FilterDraft:
			clauses = append(clauses, Clause{
				IsNull(Col(liveTable, "ID")),
				IsNotNull(Col(draftSide, "ID")),
			})
		case FilterPublished:
			clauses = append(clauses, Clause{IsNotNull(Col(liveTable, "ID"))})
		}
	}

	if len(clauses) != len(statuses) {
		return invalidArgument("Status", "Invalid statuses provided")
	}
	plan.Where = clauses
	return nil
}

func containsStatus(statuses []StatusFilter, want StatusFilter) bool {
	for _, s := range statuses {
		if s == want {
			return true
		}
	}
	return false
}
