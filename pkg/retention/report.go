package retention

import (
	"cmp"
	"slices"
	"strings"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/query"
)

// ReportOrderKey is a sortable property of a cleanup report.
type ReportOrderKey string

// OrderFinished sorts rows by their finished count.
const OrderFinished ReportOrderKey = "finished"

// Row is one line of a cleanable report. TTL is the value actually resolved
// for the key, so overrides, defaults and Never are distinguishable.
type Row struct {
	Kind              PolicyKind `json:"kind"`
	GroupingKey       string     `json:"grouping_key"`
	DefinitionKey     string     `json:"definition_key,omitempty"`
	DefinitionName    string     `json:"definition_name,omitempty"`
	DefinitionVersion int        `json:"definition_version,omitempty"`
	TenantID          string     `json:"tenant_id,omitempty"`
	FinishedCount     int64      `json:"finished_count"`
	CleanableCount    int64      `json:"cleanable_count"`
	TTL               TTL        `json:"ttl"`
}

// CleanableReport configures one cleanable report. Like the query surfaces
// its errors are sticky and reported before any store access.
type CleanableReport struct {
	kind           PolicyKind
	keys           []string
	definitionKeys []string
	tenantIDs      []string
	withoutTenant  bool
	compact        bool
	ordering       query.Ordering[ReportOrderKey]
	err            error
}

// NewCleanableReport creates a report over kind.
func NewCleanableReport(kind PolicyKind) *CleanableReport {
	return &CleanableReport{kind: kind}
}

// Kind returns the report kind.
func (r *CleanableReport) Kind() PolicyKind {
	return r.kind
}

// Err returns the first configuration error, if any.
func (r *CleanableReport) Err() error {
	return r.err
}

// GroupingKeyIn restricts the report to these definition ids or batch types.
func (r *CleanableReport) GroupingKeyIn(keys ...string) *CleanableReport {
	if r.err == nil {
		if r.err = query.EnsureValues(r.keyParam(), keys); r.err == nil {
			r.keys = dedupe(keys)
		}
	}
	return r
}

// DefinitionKeyIn restricts a definition report to these definition keys.
// Batch reports have no definitions and reject it.
func (r *CleanableReport) DefinitionKeyIn(keys ...string) *CleanableReport {
	if r.err == nil {
		if r.err = r.definitionOnly("definitionKeyIn"); r.err != nil {
			return r
		}
		if r.err = query.EnsureValues(r.definitionKeyParam(), keys); r.err == nil {
			r.definitionKeys = dedupe(keys)
		}
	}
	return r
}

// TenantIDIn restricts a definition report to these tenants. Batch reports
// reject it.
func (r *CleanableReport) TenantIDIn(tenantIDs ...string) *CleanableReport {
	if r.err == nil {
		if r.err = r.definitionOnly("tenantIdIn"); r.err != nil {
			return r
		}
		if r.err = query.EnsureValues("tenantIdIn", tenantIDs); r.err == nil {
			r.tenantIDs = dedupe(tenantIDs)
		}
	}
	return r
}

// WithoutTenantID restricts a definition report to rows without a tenant.
// Batch reports reject it.
func (r *CleanableReport) WithoutTenantID() *CleanableReport {
	if r.err == nil {
		if r.err = r.definitionOnly("withoutTenantId"); r.err == nil {
			r.withoutTenant = true
		}
	}
	return r
}

func (r *CleanableReport) definitionOnly(filter string) error {
	if r.kind.IsDefinition() {
		return nil
	}
	return history.NewUsageError("%s is not supported by the %s report", filter, r.kind)
}

// Compact drops rows with no finished records.
func (r *CleanableReport) Compact() *CleanableReport {
	r.compact = true
	return r
}

// OrderByFinished sorts by finished count; follow with Asc or Desc.
func (r *CleanableReport) OrderByFinished() *CleanableReport {
	if r.err == nil {
		r.err = r.ordering.OrderBy(OrderFinished)
	}
	return r
}

// Asc commits the pending ordering key in ascending order.
func (r *CleanableReport) Asc() *CleanableReport {
	if r.err == nil {
		r.err = r.ordering.Asc()
	}
	return r
}

// Desc commits the pending ordering key in descending order.
func (r *CleanableReport) Desc() *CleanableReport {
	if r.err == nil {
		r.err = r.ordering.Desc()
	}
	return r
}

// check returns every error that must stop the report before it runs.
func (r *CleanableReport) check() error {
	if r.err != nil {
		return r.err
	}
	return r.ordering.Complete()
}

func (r *CleanableReport) keyParam() string {
	switch r.kind {
	case CaseDefinition:
		return "caseDefinitionIdIn"
	case DecisionDefinition:
		return "decisionDefinitionIdIn"
	case BatchOperation:
		return "batchTypeIn"
	default:
		return "processDefinitionIdIn"
	}
}

func (r *CleanableReport) definitionKeyParam() string {
	switch r.kind {
	case CaseDefinition:
		return "caseDefinitionKeyIn"
	case DecisionDefinition:
		return "decisionDefinitionKeyIn"
	default:
		return "processDefinitionKeyIn"
	}
}

// accepts applies the metadata filters to a finished row.
func (r *CleanableReport) accepts(row *Row) bool {
	if r.definitionKeys != nil && !slices.Contains(r.definitionKeys, row.DefinitionKey) {
		return false
	}
	if r.tenantIDs != nil && !slices.Contains(r.tenantIDs, row.TenantID) {
		return false
	}
	if r.withoutTenant && row.TenantID != "" {
		return false
	}
	return true
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// rowOrder compares rows by the committed ordering, then by grouping key.
func rowOrder(entries []query.Entry[ReportOrderKey]) func(a, b Row) int {
	return func(a, b Row) int {
		for _, e := range entries {
			var c int
			switch e.Key {
			case OrderFinished:
				c = cmp.Compare(a.FinishedCount, b.FinishedCount)
			}
			if e.Direction == history.Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return strings.Compare(a.GroupingKey, b.GroupingKey)
	}
}
