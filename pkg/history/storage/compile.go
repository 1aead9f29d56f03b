package storage

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"mercator-hq/chronicle/pkg/history"
)

// entityColumns is the column list every entity query selects, in scan order.
const entityColumns = "id, kind, grouping_key, definition_key, definition_name, definition_version, " +
	"tenant_id, business_key, state, priority, start_time, end_time, attributes"

// columnExpr returns the SQL expression for f. Attribute fields read from the
// JSON attribute document; their names come from a closed set and are safe to
// inline.
func columnExpr(f history.Field) (string, error) {
	if !f.Valid() {
		return "", fmt.Errorf("unknown field %q", f)
	}
	if f.IsAttribute() {
		return fmt.Sprintf("json_extract(attributes, '$.%s')", f), nil
	}
	return string(f), nil
}

// compilePredicate renders one predicate as a parameterized SQL condition.
func compilePredicate(p history.Predicate) (string, []any, error) {
	col, err := columnExpr(p.Target())
	if err != nil {
		return "", nil, err
	}

	switch p := p.(type) {
	case history.Equals:
		return col + " = ?", []any{p.Value}, nil
	case history.In:
		return col + " IN (" + placeholders(len(p.Values)) + ")", stringArgs(p.Values), nil
	case history.NotIn:
		return "(" + col + " IS NULL OR " + col + " NOT IN (" + placeholders(len(p.Values)) + "))", stringArgs(p.Values), nil
	case history.Like:
		return col + ` LIKE ? ESCAPE '\'`, []any{p.Pattern}, nil
	case history.TimeAtOrAfter:
		return col + " >= ?", []any{unixNano(p.Time)}, nil
	case history.TimeAtOrBefore:
		return col + " <= ?", []any{unixNano(p.Time)}, nil
	case history.IntAtLeast:
		return col + " >= ?", []any{p.Value}, nil
	case history.IntAtMost:
		return col + " <= ?", []any{p.Value}, nil
	case history.IsNull:
		return col + " IS NULL", nil, nil
	case history.NotNull:
		return col + " IS NOT NULL", nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileWhere renders the plan's filters. Conjuncts and non-empty or-groups
// are joined with AND; predicates inside an or-group with OR.
func compileWhere(plan *history.Plan) (string, []any, error) {
	clauses := []string{"kind = ?"}
	args := []any{string(plan.Kind)}

	for _, p := range plan.Conjuncts {
		sql, pArgs, err := compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, sql)
		args = append(args, pArgs...)
	}

	for _, group := range plan.OrGroups {
		if len(group) == 0 {
			continue
		}
		var alternatives []string
		for _, p := range group {
			sql, pArgs, err := compilePredicate(p)
			if err != nil {
				return "", nil, err
			}
			alternatives = append(alternatives, sql)
			args = append(args, pArgs...)
		}
		clauses = append(clauses, "("+strings.Join(alternatives, " OR ")+")")
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// compileOrder renders the plan's effective ordering. Text compares with
// binary collation so results match the in-memory backend byte for byte.
func compileOrder(plan *history.Plan) (string, error) {
	var parts []string
	for _, o := range plan.EffectiveOrder() {
		col, err := columnExpr(o.Field)
		if err != nil {
			return "", err
		}
		if o.Field.Type() == history.TypeString {
			col += " COLLATE BINARY"
		}
		parts = append(parts, col+" "+o.Direction.String())
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// compileSelect renders a full paged entity query.
func compileSelect(plan *history.Plan) (string, []any, error) {
	where, args, err := compileWhere(plan)
	if err != nil {
		return "", nil, err
	}
	order, err := compileOrder(plan)
	if err != nil {
		return "", nil, err
	}
	sql := "SELECT " + entityColumns + " FROM historic_entities" + where + order + " LIMIT ? OFFSET ?"
	args = append(args, plan.Page.MaxResults, plan.Page.FirstResult)
	return sql, args, nil
}

// compileCount renders a count over the plan's filters.
func compileCount(plan *history.Plan) (string, []any, error) {
	where, args, err := compileWhere(plan)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM historic_entities" + where, args, nil
}

var (
	minNanoTime = time.Unix(0, math.MinInt64)
	maxNanoTime = time.Unix(0, math.MaxInt64)
)

// unixNano encodes t as stored in the time columns. Times outside the int64
// nanosecond range saturate instead of wrapping, so bounds and cutoffs
// beyond it still compare on the correct side of every stored value.
func unixNano(t time.Time) int64 {
	switch {
	case t.Before(minNanoTime):
		return math.MinInt64
	case t.After(maxNanoTime):
		return math.MaxInt64
	}
	return t.UnixNano()
}

// compileGroupCount renders the per-key finished and cleanable aggregate.
// Each key's cleanable cutoff is inlined as a CASE branch so that one pass
// over the table answers the whole report.
func compileGroupCount(req *history.GroupCountRequest) (string, []any) {
	var b strings.Builder
	var args []any

	cutoff := "NULL"
	if len(req.Cutoffs) == 0 && req.DefaultCutoff != nil {
		cutoff = "?"
		args = append(args, unixNano(*req.DefaultCutoff))
	} else if len(req.Cutoffs) > 0 {
		var cb strings.Builder
		cb.WriteString("CASE")
		for _, k := range slices.Sorted(maps.Keys(req.Cutoffs)) {
			cb.WriteString(" WHEN grouping_key = ? THEN ?")
			args = append(args, k, unixNano(req.Cutoffs[k]))
		}
		if req.DefaultCutoff != nil {
			cb.WriteString(" ELSE ?")
			args = append(args, unixNano(*req.DefaultCutoff))
		} else {
			cb.WriteString(" ELSE NULL")
		}
		cb.WriteString(" END")
		cutoff = cb.String()
	}

	b.WriteString("SELECT grouping_key, MAX(COALESCE(definition_key, '')), MAX(COALESCE(definition_name, '')), ")
	b.WriteString("MAX(definition_version), MAX(COALESCE(tenant_id, '')), COUNT(*), ")
	b.WriteString("SUM(CASE WHEN end_time IS NOT NULL THEN 1 ELSE 0 END), ")
	b.WriteString("SUM(CASE WHEN end_time IS NOT NULL AND end_time <= (" + cutoff + ") THEN 1 ELSE 0 END) ")
	b.WriteString("FROM historic_entities WHERE kind = ? AND grouping_key IS NOT NULL")
	args = append(args, string(req.Kind))

	if req.Keys != nil {
		b.WriteString(" AND grouping_key IN (" + placeholders(len(req.Keys)) + ")")
		args = append(args, stringArgs(req.Keys)...)
	}
	b.WriteString(" GROUP BY grouping_key ORDER BY grouping_key COLLATE BINARY")
	return b.String(), args
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
