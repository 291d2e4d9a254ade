package database

import (
	"fmt"
	"strings"
	"time"

	sqldb "github.com/vault-md/versioned/internal/database/sqlc"
	"github.com/vault-md/versioned/internal/readingmode"
	"github.com/vault-md/versioned/internal/versioned"
)

// RenderList turns a plan into a SELECT over every matching record.
func RenderList(e Entity, plan versioned.FilterPlan) (string, []any, error) {
	if plan.SingleRecord {
		return "", nil, fmt.Errorf("%w: %s plans need a record id", versioned.ErrUnsupportedContext, plan.Params.Mode)
	}
	return render(e, plan, nil)
}

// RenderSingle turns a plan into a SELECT restricted to one record.
func RenderSingle(e Entity, plan versioned.FilterPlan, id int64) (string, []any, error) {
	return render(e, plan, &id)
}

func render(e Entity, plan versioned.FilterPlan, id *int64) (string, []any, error) {
	if !strings.EqualFold(plan.BaseTable, e.Table) {
		return "", nil, fmt.Errorf("render: plan for %s used with entity %s", plan.BaseTable, e.Table)
	}

	source := plan.Source
	from, args, err := renderSource(e, source)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(sqldb.ColumnList(source.Alias, sqldb.StageColumns(e.Fields)))
	b.WriteString(" FROM ")
	b.WriteString(from)

	for _, join := range plan.Joins {
		on, err := renderCondition(join.On)
		if err != nil {
			return "", nil, err
		}
		fmt.Fprintf(&b, " LEFT JOIN %s AS %s ON %s", sqldb.QuoteIdent(join.Table), sqldb.QuoteIdent(join.Alias), on)
	}

	var where []string
	if id != nil {
		where = append(where, sqldb.QualifiedColumn(source.Alias, "ID")+" = ?")
		args = append(args, *id)
	}
	if len(plan.Where) > 0 {
		alternatives := make([]string, 0, len(plan.Where))
		for _, clause := range plan.Where {
			conds := make([]string, 0, len(clause))
			for _, c := range clause {
				rendered, err := renderCondition(c)
				if err != nil {
					return "", nil, err
				}
				conds = append(conds, rendered)
			}
			alternatives = append(alternatives, "("+strings.Join(conds, " AND ")+")")
		}
		where = append(where, "("+strings.Join(alternatives, " OR ")+")")
	}
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	fmt.Fprintf(&b, " ORDER BY %s, %s", sqldb.QualifiedColumn(source.Alias, "ID"), sqldb.QualifiedColumn(source.Alias, "Version"))
	return b.String(), args, nil
}

// renderSource renders the FROM item. History projections expose RecordID
// as ID.
func renderSource(e Entity, s versioned.Source) (string, []any, error) {
	alias := sqldb.QuoteIdent(s.Alias)
	versions := sqldb.QuoteIdent(s.Table)
	projected := `v."RecordID" AS "ID", v."Version", ` + sqldb.ColumnList("v", e.Fields) + `, v."LastEdited"`

	switch s.Projection {
	case versioned.ProjectStage:
		return fmt.Sprintf("%s AS %s", sqldb.QuoteIdent(s.Table), alias), nil, nil

	case versioned.ProjectAllVersions:
		return fmt.Sprintf("(SELECT %s FROM %s AS v) AS %s", projected, versions, alias), nil, nil

	case versioned.ProjectLatestVersions:
		return fmt.Sprintf(
			`(SELECT %s FROM %s AS v WHERE v."Version" = (SELECT MAX(m."Version") FROM %s AS m WHERE m."RecordID" = v."RecordID")) AS %s`,
			projected, versions, versions, alias,
		), nil, nil

	case versioned.ProjectArchive:
		bound, err := archiveBound(s.Date)
		if err != nil {
			return "", nil, err
		}
		flag := `"WasDraft"`
		if s.Stage == readingmode.StageLive {
			flag = `"WasPublished"`
		}
		return fmt.Sprintf(
			`(SELECT %s FROM %s AS v WHERE v."WasDeleted" = 0 AND v."Version" = (SELECT MAX(m."Version") FROM %s AS m WHERE m."RecordID" = v."RecordID" AND m.%s = 1 AND m."LastEdited" < ?)) AS %s`,
			projected, versions, versions, flag, alias,
		), []any{bound}, nil

	case versioned.ProjectVersion:
		if s.Version == nil {
			return "", nil, fmt.Errorf("%w: version projection without a version", versioned.ErrInvalidArgument)
		}
		return fmt.Sprintf(`(SELECT %s FROM %s AS v WHERE v."Version" = ?) AS %s`, projected, versions, alias), []any{*s.Version}, nil

	default:
		return "", nil, fmt.Errorf("render: unknown projection %q", s.Projection)
	}
}

// archiveBound is the first instant after the archive date, so the whole
// day counts as part of the archive.
func archiveBound(date string) (string, error) {
	day, err := readingmode.ParseDate(date)
	if err != nil {
		return "", err
	}
	return day.Add(24 * time.Hour).Format(TimestampLayout), nil
}

func renderCondition(c versioned.Condition) (string, error) {
	left := sqldb.QualifiedColumn(c.Left.Table, c.Left.Name)
	if c.Op.Unary() {
		return left + " " + string(c.Op), nil
	}
	if c.Right == nil {
		return "", fmt.Errorf("render: %s needs a right-hand column", c.Op)
	}
	switch c.Op {
	case versioned.OpEqual, versioned.OpNotEqual:
	default:
		return "", fmt.Errorf("render: unsupported operator %q", c.Op)
	}
	return left + " " + string(c.Op) + " " + sqldb.QualifiedColumn(c.Right.Table, c.Right.Name), nil
}
