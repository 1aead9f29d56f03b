package server

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/query"
)

// processInstanceSorts maps sortBy values to their ordering methods.
var processInstanceSorts = map[string]func(*query.ProcessInstanceQuery) *query.ProcessInstanceQuery{
	"instanceId":        (*query.ProcessInstanceQuery).OrderByProcessInstanceID,
	"definitionId":      (*query.ProcessInstanceQuery).OrderByProcessDefinitionID,
	"definitionKey":     (*query.ProcessInstanceQuery).OrderByProcessDefinitionKey,
	"definitionName":    (*query.ProcessInstanceQuery).OrderByProcessDefinitionName,
	"definitionVersion": (*query.ProcessInstanceQuery).OrderByProcessDefinitionVersion,
	"businessKey":       (*query.ProcessInstanceQuery).OrderByBusinessKey,
	"startTime":         (*query.ProcessInstanceQuery).OrderByStartTime,
	"endTime":           (*query.ProcessInstanceQuery).OrderByEndTime,
	"tenantId":          (*query.ProcessInstanceQuery).OrderByTenantID,
}

func invalidSortBy(got string, allowed ...string) error {
	slices.Sort(allowed)
	return history.NewInvalidArgumentError("sortBy",
		fmt.Sprintf("cannot sort by %q; expected one of: %s", got, strings.Join(allowed, ", ")))
}

// buildProcessInstanceQuery translates query parameters into a process
// instance query.
func (s *Server) buildProcessInstanceQuery(p *params, withSorting bool) (*query.ProcessInstanceQuery, error) {
	q := query.NewProcessInstanceQuery(s.deps.Executor)

	if v, ok := p.str("processInstanceId"); ok {
		q.ProcessInstanceID(v)
	}
	if v, ok := p.list("processInstanceIds"); ok {
		q.ProcessInstanceIDIn(v...)
	}
	if v, ok := p.str("processDefinitionId"); ok {
		q.ProcessDefinitionID(v)
	}
	if v, ok := p.list("processDefinitionIdIn"); ok {
		q.ProcessDefinitionIDIn(v...)
	}
	if v, ok := p.str("processDefinitionKey"); ok {
		q.ProcessDefinitionKey(v)
	}
	if v, ok := p.list("processDefinitionKeyIn"); ok {
		q.ProcessDefinitionKeyIn(v...)
	}
	if v, ok := p.list("processDefinitionKeyNotIn"); ok {
		q.ProcessDefinitionKeyNotIn(v...)
	}
	if v, ok := p.str("processDefinitionName"); ok {
		q.ProcessDefinitionName(v)
	}
	if v, ok := p.str("processInstanceBusinessKey"); ok {
		q.BusinessKey(v)
	}
	if v, ok := p.str("processInstanceBusinessKeyLike"); ok {
		q.BusinessKeyLike(v)
	}
	if v, ok := p.list("tenantIdIn"); ok {
		q.TenantIDIn(v...)
	}
	if p.boolean("withoutTenantId") {
		q.WithoutTenantID()
	}
	if p.boolean("finished") {
		q.Finished()
	}
	if p.boolean("unfinished") {
		q.Unfinished()
	}
	if p.boolean("rootProcessInstances") {
		q.RootProcessInstances()
	}
	if v, ok := p.str("superProcessInstanceId"); ok {
		q.SuperProcessInstanceID(v)
	}
	if t, ok := p.time("startedBefore"); ok {
		q.StartedBefore(t)
	}
	if t, ok := p.time("startedAfter"); ok {
		q.StartedAfter(t)
	}
	if t, ok := p.time("finishedBefore"); ok {
		q.FinishedBefore(t)
	}
	if t, ok := p.time("finishedAfter"); ok {
		q.FinishedAfter(t)
	}
	if v, ok := p.str("state"); ok {
		switch strings.ToUpper(v) {
		case query.StateActive:
			q.Active()
		case query.StateSuspended:
			q.Suspended()
		case query.StateCompleted:
			q.Completed()
		case query.StateExternallyTerminated:
			q.ExternallyTerminated()
		case query.StateInternallyTerminated:
			q.InternallyTerminated()
		default:
			return nil, history.NewInvalidArgumentError("state", fmt.Sprintf("unknown process instance state %q", v))
		}
	}

	if withSorting {
		if sortBy, dir, ok := p.sorting(); ok {
			orderBy, known := processInstanceSorts[sortBy]
			if !known {
				keys := make([]string, 0, len(processInstanceSorts))
				for k := range processInstanceSorts {
					keys = append(keys, k)
				}
				return nil, invalidSortBy(sortBy, keys...)
			}
			orderBy(q)
			if dir == history.Ascending {
				q.Asc()
			} else {
				q.Desc()
			}
		}
	}

	if p.err != nil {
		return nil, p.err
	}
	return q, q.Err()
}

func (s *Server) listProcessInstances(w http.ResponseWriter, r *http.Request) {
	p := newParams(r.URL.Query())
	q, err := s.buildProcessInstanceQuery(p, true)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page := p.page(s.cfg.Query.DefaultPageSize)
	if p.err != nil {
		s.fail(w, r, p.err)
		return
	}

	entities, err := q.ListPage(r.Context(), page.FirstResult, page.MaxResults)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entities == nil {
		entities = []*history.HistoricEntity{}
	}
	writeJSON(w, r, http.StatusOK, entities)
}

func (s *Server) countProcessInstances(w http.ResponseWriter, r *http.Request) {
	q, err := s.buildProcessInstanceQuery(newParams(r.URL.Query()), false)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := q.Count(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, CountResponse{Count: n})
}
