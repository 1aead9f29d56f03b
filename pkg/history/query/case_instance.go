package query

import (
	"time"

	"mercator-hq/chronicle/pkg/history"
)

// CaseInstanceQuery filters historic case instances.
type CaseInstanceQuery struct {
	surface[CaseInstanceQuery]
}

// NewCaseInstanceQuery creates a case instance query bound to exec.
func NewCaseInstanceQuery(exec *Executor) *CaseInstanceQuery {
	q := &CaseInstanceQuery{}
	q.surface = newSurface(q, exec, history.KindCaseInstance)
	return q
}

func (q *CaseInstanceQuery) CaseInstanceID(id string) *CaseInstanceQuery {
	return q.eq("caseInstanceId", history.FieldID, id)
}

func (q *CaseInstanceQuery) CaseInstanceIDIn(ids ...string) *CaseInstanceQuery {
	return q.in("caseInstanceIds", history.FieldID, ids)
}

func (q *CaseInstanceQuery) CaseDefinitionID(id string) *CaseInstanceQuery {
	return q.eq("caseDefinitionId", history.FieldGroupingKey, id)
}

func (q *CaseInstanceQuery) CaseDefinitionKey(key string) *CaseInstanceQuery {
	return q.eq("caseDefinitionKey", history.FieldDefinitionKey, key)
}

func (q *CaseInstanceQuery) CaseDefinitionKeyNotIn(keys ...string) *CaseInstanceQuery {
	return q.notIn("caseDefinitionKeys", history.FieldDefinitionKey, keys)
}

func (q *CaseInstanceQuery) BusinessKey(key string) *CaseInstanceQuery {
	return q.eq("caseInstanceBusinessKey", history.FieldBusinessKey, key)
}

func (q *CaseInstanceQuery) BusinessKeyLike(pattern string) *CaseInstanceQuery {
	return q.like("caseInstanceBusinessKeyLike", history.FieldBusinessKey, pattern)
}

func (q *CaseInstanceQuery) TenantIDIn(tenantIDs ...string) *CaseInstanceQuery {
	return q.tenantIDIn(tenantIDs)
}

func (q *CaseInstanceQuery) WithoutTenantID() *CaseInstanceQuery {
	return q.null(history.FieldTenantID)
}

// Closed selects case instances that have been closed.
func (q *CaseInstanceQuery) Closed() *CaseInstanceQuery {
	return q.notNull(history.FieldEndTime)
}

// NotClosed selects case instances that are still open.
func (q *CaseInstanceQuery) NotClosed() *CaseInstanceQuery {
	return q.null(history.FieldEndTime)
}

func (q *CaseInstanceQuery) CreatedBefore(t time.Time) *CaseInstanceQuery {
	return q.before("createdBefore", history.FieldStartTime, t)
}

func (q *CaseInstanceQuery) CreatedAfter(t time.Time) *CaseInstanceQuery {
	return q.after("createdAfter", history.FieldStartTime, t)
}

func (q *CaseInstanceQuery) ClosedBefore(t time.Time) *CaseInstanceQuery {
	return q.before("closedBefore", history.FieldEndTime, t)
}

func (q *CaseInstanceQuery) ClosedAfter(t time.Time) *CaseInstanceQuery {
	return q.after("closedAfter", history.FieldEndTime, t)
}

func (q *CaseInstanceQuery) OrderByCaseInstanceID() *CaseInstanceQuery {
	return q.orderBy("orderByCaseInstanceId", history.FieldID)
}

func (q *CaseInstanceQuery) OrderByCaseDefinitionID() *CaseInstanceQuery {
	return q.orderBy("orderByCaseDefinitionId", history.FieldGroupingKey)
}

func (q *CaseInstanceQuery) OrderByCreateTime() *CaseInstanceQuery {
	return q.orderBy("orderByCaseInstanceCreateTime", history.FieldStartTime)
}

func (q *CaseInstanceQuery) OrderByCloseTime() *CaseInstanceQuery {
	return q.orderBy("orderByCaseInstanceCloseTime", history.FieldEndTime)
}

func (q *CaseInstanceQuery) OrderByTenantID() *CaseInstanceQuery {
	return q.orderBy("orderByTenantId", history.FieldTenantID)
}
