package query

import "mercator-hq/chronicle/pkg/history"

// Incident states.
const (
	IncidentOpen     = "OPEN"
	IncidentResolved = "RESOLVED"
	IncidentDeleted  = "DELETED"
)

// IncidentQuery filters historic incidents. An incident's end time is set
// once it is resolved or deleted.
type IncidentQuery struct {
	surface[IncidentQuery]
}

// NewIncidentQuery creates an incident query bound to exec.
func NewIncidentQuery(exec *Executor) *IncidentQuery {
	q := &IncidentQuery{}
	q.surface = newSurface(q, exec, history.KindIncident)
	return q
}

func (q *IncidentQuery) IncidentID(id string) *IncidentQuery {
	return q.eq("incidentId", history.FieldID, id)
}

func (q *IncidentQuery) IncidentType(incidentType string) *IncidentQuery {
	return q.eq("incidentType", history.FieldIncidentType, incidentType)
}

func (q *IncidentQuery) CauseIncidentID(id string) *IncidentQuery {
	return q.eq("causeIncidentId", history.FieldCauseIncidentID, id)
}

func (q *IncidentQuery) RootCauseIncidentID(id string) *IncidentQuery {
	return q.eq("rootCauseIncidentId", history.FieldRootCauseIncidentID, id)
}

func (q *IncidentQuery) ProcessInstanceID(id string) *IncidentQuery {
	return q.eq("processInstanceId", history.FieldProcessInstanceID, id)
}

func (q *IncidentQuery) ProcessDefinitionID(id string) *IncidentQuery {
	return q.eq("processDefinitionId", history.FieldGroupingKey, id)
}

func (q *IncidentQuery) ProcessDefinitionKeyIn(keys ...string) *IncidentQuery {
	return q.in("processDefinitionKeyIn", history.FieldDefinitionKey, keys)
}

func (q *IncidentQuery) Open() *IncidentQuery {
	return q.eq("state", history.FieldState, IncidentOpen)
}

func (q *IncidentQuery) Resolved() *IncidentQuery {
	return q.eq("state", history.FieldState, IncidentResolved)
}

func (q *IncidentQuery) Deleted() *IncidentQuery {
	return q.eq("state", history.FieldState, IncidentDeleted)
}

func (q *IncidentQuery) TenantIDIn(tenantIDs ...string) *IncidentQuery {
	return q.tenantIDIn(tenantIDs)
}

func (q *IncidentQuery) OrderByIncidentID() *IncidentQuery {
	return q.orderBy("orderByIncidentId", history.FieldID)
}

func (q *IncidentQuery) OrderByCreateTime() *IncidentQuery {
	return q.orderBy("orderByCreateTime", history.FieldStartTime)
}

func (q *IncidentQuery) OrderByEndTime() *IncidentQuery {
	return q.orderBy("orderByEndTime", history.FieldEndTime)
}

func (q *IncidentQuery) OrderByIncidentType() *IncidentQuery {
	return q.orderBy("orderByIncidentType", history.FieldIncidentType)
}

func (q *IncidentQuery) OrderByTenantID() *IncidentQuery {
	return q.orderBy("orderByTenantId", history.FieldTenantID)
}
