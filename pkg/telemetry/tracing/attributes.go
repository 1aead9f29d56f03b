package tracing

import (
	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys. Custom keys use the "chronicle.*" namespace.
const (
	AttrKind        = "chronicle.kind"
	AttrOperation   = "chronicle.operation"
	AttrConjuncts   = "chronicle.conjuncts"
	AttrOrGroups    = "chronicle.or_groups"
	AttrFirstResult = "chronicle.first_result"
	AttrMaxResults  = "chronicle.max_results"
	AttrParams      = "chronicle.params"
	AttrRows        = "chronicle.rows"
	AttrReportKind  = "chronicle.report.kind"
	AttrCompact     = "chronicle.report.compact"
	AttrRequestID   = "chronicle.request_id"
)

// Kind returns the entity kind attribute.
func Kind(kind string) attribute.KeyValue {
	return attribute.String(AttrKind, kind)
}

// Rows returns the result row count attribute.
func Rows(n int) attribute.KeyValue {
	return attribute.Int(AttrRows, n)
}

// ReportKind returns the retention policy kind attribute.
func ReportKind(kind string) attribute.KeyValue {
	return attribute.String(AttrReportKind, kind)
}
