package query

import "mercator-hq/chronicle/pkg/history"

// Identity link operation types.
const (
	IdentityLinkAdd    = "add"
	IdentityLinkDelete = "delete"
)

// IdentityLinkLogQuery filters historic identity link events.
type IdentityLinkLogQuery struct {
	surface[IdentityLinkLogQuery]
}

// NewIdentityLinkLogQuery creates an identity link log query bound to exec.
func NewIdentityLinkLogQuery(exec *Executor) *IdentityLinkLogQuery {
	q := &IdentityLinkLogQuery{}
	q.surface = newSurface(q, exec, history.KindIdentityLinkLog)
	return q
}

func (q *IdentityLinkLogQuery) UserID(id string) *IdentityLinkLogQuery {
	return q.eq("userId", history.FieldUserID, id)
}

func (q *IdentityLinkLogQuery) GroupID(id string) *IdentityLinkLogQuery {
	return q.eq("groupId", history.FieldGroupID, id)
}

func (q *IdentityLinkLogQuery) OperationType(op string) *IdentityLinkLogQuery {
	return q.eq("operationType", history.FieldOperationType, op)
}

func (q *IdentityLinkLogQuery) ProcessDefinitionID(id string) *IdentityLinkLogQuery {
	return q.eq("processDefinitionId", history.FieldGroupingKey, id)
}

func (q *IdentityLinkLogQuery) ProcessDefinitionKey(key string) *IdentityLinkLogQuery {
	return q.eq("processDefinitionKey", history.FieldDefinitionKey, key)
}

func (q *IdentityLinkLogQuery) TenantIDIn(tenantIDs ...string) *IdentityLinkLogQuery {
	return q.tenantIDIn(tenantIDs)
}

func (q *IdentityLinkLogQuery) OrderByTime() *IdentityLinkLogQuery {
	return q.orderBy("orderByTime", history.FieldStartTime)
}

func (q *IdentityLinkLogQuery) OrderByUserID() *IdentityLinkLogQuery {
	return q.orderBy("orderByUserId", history.FieldUserID)
}

func (q *IdentityLinkLogQuery) OrderByGroupID() *IdentityLinkLogQuery {
	return q.orderBy("orderByGroupId", history.FieldGroupID)
}

func (q *IdentityLinkLogQuery) OrderByOperationType() *IdentityLinkLogQuery {
	return q.orderBy("orderByOperationType", history.FieldOperationType)
}

func (q *IdentityLinkLogQuery) OrderByTenantID() *IdentityLinkLogQuery {
	return q.orderBy("orderByTenantId", history.FieldTenantID)
}
