package versioned

import (
	"strconv"

	"github.com/vault-md/versioned/internal/readingmode"
)

// Table name suffixes of the stage triple.
const (
	LiveSuffix     = "_Live"
	VersionsSuffix = "_Versions"
	draftAlias     = "_Draft"
)

// LiveTable returns the live stage table of base.
func LiveTable(base string) string { return base + LiveSuffix }

// VersionsTable returns the history table of base.
func VersionsTable(base string) string { return base + VersionsSuffix }

// StageTable returns the table holding stage rows of base.
func StageTable(base string, stage readingmode.Stage) string {
	if stage == readingmode.StageLive {
		return LiveTable(base)
	}
	return base
}

// Query parameter names handed to the query layer.
const (
	ParamMode    = "Versioned.mode"
	ParamStage   = "Versioned.stage"
	ParamDate    = "Versioned.date"
	ParamVersion = "Versioned.version"
)

// Params carries the tags a plan puts on the query.
type Params struct {
	Mode    string
	Stage   readingmode.Stage
	Date    string
	Version *int64
}

// Map returns the non-empty params keyed by their query parameter name.
func (p Params) Map() map[string]string {
	out := map[string]string{}
	if p.Mode != "" {
		out[ParamMode] = p.Mode
	}
	if p.Stage != "" {
		out[ParamStage] = string(p.Stage)
	}
	if p.Date != "" {
		out[ParamDate] = p.Date
	}
	if p.Version != nil {
		out[ParamVersion] = strconv.FormatInt(*p.Version, 10)
	}
	return out
}

// Projection says how the source rows are derived from their table.
type Projection string

const (
	// ProjectStage reads a stage table as is.
	ProjectStage Projection = "stage"
	// ProjectArchive reads the versions table as of a date.
	ProjectArchive Projection = "archive"
	// ProjectAllVersions reads every versions row.
	ProjectAllVersions Projection = "all_versions"
	// ProjectLatestVersions reads the highest version of every record.
	ProjectLatestVersions Projection = "latest_versions"
	// ProjectVersion reads one (RecordID, Version) row.
	ProjectVersion Projection = "version"
)

// Source is the FROM of a plan. Projections over the versions table expose
// RecordID as ID so that joins and predicates address every source alike.
type Source struct {
	Projection Projection
	Table      string
	Alias      string
	// Stage restricts archive projections to versions written to that stage.
	Stage readingmode.Stage
	Date  string
	// Version is set for ProjectVersion.
	Version *int64
}

// Column addresses a column of a table alias.
type Column struct {
	Table string
	Name  string
}

// Col is shorthand for Column{table, name}.
func Col(table, name string) Column {
	return Column{Table: table, Name: name}
}

// Operator compares a column with nothing (null checks) or another column.
type Operator string

const (
	OpEqual     Operator = "="
	OpNotEqual  Operator = "<>"
	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"
)

// Unary reports whether the operator takes no right-hand side.
func (o Operator) Unary() bool {
	return o == OpIsNull || o == OpIsNotNull
}

// Condition is a single comparison.
type Condition struct {
	Left  Column
	Op    Operator
	Right *Column
}

// IsNull builds "col IS NULL".
func IsNull(c Column) Condition { return Condition{Left: c, Op: OpIsNull} }

// IsNotNull builds "col IS NOT NULL".
func IsNotNull(c Column) Condition { return Condition{Left: c, Op: OpIsNotNull} }

// Compare builds "left op right".
func Compare(left Column, op Operator, right Column) Condition {
	return Condition{Left: left, Op: op, Right: &right}
}

// Join is a LEFT JOIN of Table under Alias.
type Join struct {
	Table string
	Alias string
	On    Condition
}

// Clause is a conjunction of conditions.
type Clause []Condition

// FilterPlan is what the query layer needs to read a versioned entity
// under one mode. Where holds alternatives: a row qualifies when it
// satisfies every condition of at least one clause. An empty Where keeps
// every source row.
type FilterPlan struct {
	BaseTable string
	Source    Source
	Params    Params
	Joins     []Join
	Where     []Clause
	// SingleRecord plans can only be executed for one record ID.
	SingleRecord bool
}
