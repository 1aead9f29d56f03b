package query

import (
	"time"

	"mercator-hq/chronicle/pkg/history"
)

// DecisionInstanceQuery filters historic decision evaluations. The
// evaluation time is stored as the entity's start time.
type DecisionInstanceQuery struct {
	surface[DecisionInstanceQuery]
}

// NewDecisionInstanceQuery creates a decision instance query bound to exec.
func NewDecisionInstanceQuery(exec *Executor) *DecisionInstanceQuery {
	q := &DecisionInstanceQuery{}
	q.surface = newSurface(q, exec, history.KindDecisionInstance)
	return q
}

func (q *DecisionInstanceQuery) DecisionInstanceID(id string) *DecisionInstanceQuery {
	return q.eq("decisionInstanceId", history.FieldID, id)
}

func (q *DecisionInstanceQuery) DecisionInstanceIDIn(ids ...string) *DecisionInstanceQuery {
	return q.in("decisionInstanceIdIn", history.FieldID, ids)
}

func (q *DecisionInstanceQuery) DecisionDefinitionID(id string) *DecisionInstanceQuery {
	return q.eq("decisionDefinitionId", history.FieldGroupingKey, id)
}

func (q *DecisionInstanceQuery) DecisionDefinitionIDIn(ids ...string) *DecisionInstanceQuery {
	return q.in("decisionDefinitionIdIn", history.FieldGroupingKey, ids)
}

func (q *DecisionInstanceQuery) DecisionDefinitionKey(key string) *DecisionInstanceQuery {
	return q.eq("decisionDefinitionKey", history.FieldDefinitionKey, key)
}

func (q *DecisionInstanceQuery) DecisionDefinitionKeyIn(keys ...string) *DecisionInstanceQuery {
	return q.in("decisionDefinitionKeyIn", history.FieldDefinitionKey, keys)
}

func (q *DecisionInstanceQuery) ProcessInstanceID(id string) *DecisionInstanceQuery {
	return q.eq("processInstanceId", history.FieldProcessInstanceID, id)
}

func (q *DecisionInstanceQuery) RootDecisionInstanceID(id string) *DecisionInstanceQuery {
	return q.eq("rootDecisionInstanceId", history.FieldRootDecisionInstanceID, id)
}

// RootDecisionInstancesOnly selects evaluations that were not triggered by
// another decision.
func (q *DecisionInstanceQuery) RootDecisionInstancesOnly() *DecisionInstanceQuery {
	return q.null(history.FieldRootDecisionInstanceID)
}

func (q *DecisionInstanceQuery) EvaluatedBefore(t time.Time) *DecisionInstanceQuery {
	return q.before("evaluatedBefore", history.FieldStartTime, t)
}

func (q *DecisionInstanceQuery) EvaluatedAfter(t time.Time) *DecisionInstanceQuery {
	return q.after("evaluatedAfter", history.FieldStartTime, t)
}

func (q *DecisionInstanceQuery) TenantIDIn(tenantIDs ...string) *DecisionInstanceQuery {
	return q.tenantIDIn(tenantIDs)
}

func (q *DecisionInstanceQuery) WithoutTenantID() *DecisionInstanceQuery {
	return q.null(history.FieldTenantID)
}

func (q *DecisionInstanceQuery) OrderByEvaluationTime() *DecisionInstanceQuery {
	return q.orderBy("orderByEvaluationTime", history.FieldStartTime)
}

func (q *DecisionInstanceQuery) OrderByTenantID() *DecisionInstanceQuery {
	return q.orderBy("orderByTenantId", history.FieldTenantID)
}
