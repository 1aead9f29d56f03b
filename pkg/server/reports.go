package server

import (
	"net/http"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/retention"
)

type reportRoute struct {
	path string
	kind retention.PolicyKind

	// idParam and keyParam name the grouping key and definition key filters.
	idParam  string
	keyParam string
}

var reportRoutes = []reportRoute{
	{
		path:     "/process-definition/cleanable-process-instance-report",
		kind:     retention.ProcessDefinition,
		idParam:  "processDefinitionIdIn",
		keyParam: "processDefinitionKeyIn",
	},
	{
		path:     "/case-definition/cleanable-case-instance-report",
		kind:     retention.CaseDefinition,
		idParam:  "caseDefinitionIdIn",
		keyParam: "caseDefinitionKeyIn",
	},
	{
		path:     "/decision-definition/cleanable-decision-instance-report",
		kind:     retention.DecisionDefinition,
		idParam:  "decisionDefinitionIdIn",
		keyParam: "decisionDefinitionKeyIn",
	},
	{
		path:    "/batch/cleanable-batch-report",
		kind:    retention.BatchOperation,
		idParam: "batchTypeIn",
	},
}

func routeFor(kind retention.PolicyKind) reportRoute {
	for _, r := range reportRoutes {
		if r.kind == kind {
			return r
		}
	}
	return reportRoute{kind: kind}
}

// CountResponse is the body of every /count endpoint.
type CountResponse struct {
	Count int64 `json:"count"`
}

// buildReport translates query parameters into a cleanable report.
// withSorting is false for /count, where ordering is ignored.
func buildReport(kind retention.PolicyKind, p *params, withSorting bool) (*retention.CleanableReport, error) {
	route := routeFor(kind)
	report := retention.NewCleanableReport(kind)

	if ids, ok := p.list(route.idParam); ok {
		report.GroupingKeyIn(ids...)
	}
	if route.keyParam != "" {
		if keys, ok := p.list(route.keyParam); ok {
			report.DefinitionKeyIn(keys...)
		}
	}
	if kind.IsDefinition() {
		if tenants, ok := p.list("tenantIdIn"); ok {
			report.TenantIDIn(tenants...)
		}
		if p.boolean("withoutTenantId") {
			report.WithoutTenantID()
		}
	}
	if p.boolean("compact") {
		report.Compact()
	}

	if withSorting {
		if sortBy, dir, ok := p.sorting(); ok {
			if sortBy != "finished" {
				return nil, invalidSortBy(sortBy, "finished")
			}
			report.OrderByFinished()
			if dir == history.Ascending {
				report.Asc()
			} else {
				report.Desc()
			}
		}
	}

	if p.err != nil {
		return nil, p.err
	}
	return report, report.Err()
}

func (s *Server) cleanableReport(kind retention.PolicyKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := newParams(r.URL.Query())
		report, err := buildReport(kind, p, true)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		page := p.page(s.cfg.Query.DefaultPageSize)
		if p.err != nil {
			s.fail(w, r, p.err)
			return
		}

		rows, err := s.deps.Aggregator.Report(r.Context(), report, page)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if rows == nil {
			rows = []retention.Row{}
		}
		writeJSON(w, r, http.StatusOK, rows)
	}
}

func (s *Server) cleanableReportCount(kind retention.PolicyKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := buildReport(kind, newParams(r.URL.Query()), false)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		n, err := s.deps.Aggregator.Count(r.Context(), report)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, CountResponse{Count: n})
	}
}
