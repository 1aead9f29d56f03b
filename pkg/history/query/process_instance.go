package query

import (
	"time"

	"mercator-hq/chronicle/pkg/history"
)

// Process instance states.
const (
	StateActive               = "ACTIVE"
	StateSuspended            = "SUSPENDED"
	StateCompleted            = "COMPLETED"
	StateExternallyTerminated = "EXTERNALLY_TERMINATED"
	StateInternallyTerminated = "INTERNALLY_TERMINATED"
)

// ProcessInstanceQuery filters historic process instances.
type ProcessInstanceQuery struct {
	surface[ProcessInstanceQuery]

	stateSet      bool
	rootOnly      bool
	superInstance bool
}

// NewProcessInstanceQuery creates a process instance query bound to exec.
func NewProcessInstanceQuery(exec *Executor) *ProcessInstanceQuery {
	q := &ProcessInstanceQuery{}
	q.surface = newSurface(q, exec, history.KindProcessInstance)
	return q
}

func (q *ProcessInstanceQuery) ProcessInstanceID(id string) *ProcessInstanceQuery {
	return q.eq("processInstanceId", history.FieldID, id)
}

func (q *ProcessInstanceQuery) ProcessInstanceIDIn(ids ...string) *ProcessInstanceQuery {
	return q.in("processInstanceIds", history.FieldID, ids)
}

func (q *ProcessInstanceQuery) ProcessDefinitionID(id string) *ProcessInstanceQuery {
	return q.eq("processDefinitionId", history.FieldGroupingKey, id)
}

func (q *ProcessInstanceQuery) ProcessDefinitionIDIn(ids ...string) *ProcessInstanceQuery {
	return q.in("processDefinitionIds", history.FieldGroupingKey, ids)
}

func (q *ProcessInstanceQuery) ProcessDefinitionKey(key string) *ProcessInstanceQuery {
	return q.eq("processDefinitionKey", history.FieldDefinitionKey, key)
}

func (q *ProcessInstanceQuery) ProcessDefinitionKeyIn(keys ...string) *ProcessInstanceQuery {
	return q.in("processDefinitionKeys", history.FieldDefinitionKey, keys)
}

func (q *ProcessInstanceQuery) ProcessDefinitionKeyNotIn(keys ...string) *ProcessInstanceQuery {
	return q.notIn("processDefinitionKeyNotIn", history.FieldDefinitionKey, keys)
}

func (q *ProcessInstanceQuery) ProcessDefinitionName(name string) *ProcessInstanceQuery {
	return q.eq("processDefinitionName", history.FieldDefinitionName, name)
}

func (q *ProcessInstanceQuery) BusinessKey(key string) *ProcessInstanceQuery {
	return q.eq("processInstanceBusinessKey", history.FieldBusinessKey, key)
}

func (q *ProcessInstanceQuery) BusinessKeyLike(pattern string) *ProcessInstanceQuery {
	return q.like("processInstanceBusinessKeyLike", history.FieldBusinessKey, pattern)
}

func (q *ProcessInstanceQuery) TenantIDIn(tenantIDs ...string) *ProcessInstanceQuery {
	return q.tenantIDIn(tenantIDs)
}

func (q *ProcessInstanceQuery) WithoutTenantID() *ProcessInstanceQuery {
	return q.null(history.FieldTenantID)
}

// Finished selects instances that have ended.
func (q *ProcessInstanceQuery) Finished() *ProcessInstanceQuery {
	return q.notNull(history.FieldEndTime)
}

// Unfinished selects instances that are still running.
func (q *ProcessInstanceQuery) Unfinished() *ProcessInstanceQuery {
	return q.null(history.FieldEndTime)
}

func (q *ProcessInstanceQuery) StartedBefore(t time.Time) *ProcessInstanceQuery {
	return q.before("startedBefore", history.FieldStartTime, t)
}

func (q *ProcessInstanceQuery) StartedAfter(t time.Time) *ProcessInstanceQuery {
	return q.after("startedAfter", history.FieldStartTime, t)
}

// FinishedBefore implies Finished.
func (q *ProcessInstanceQuery) FinishedBefore(t time.Time) *ProcessInstanceQuery {
	return q.before("finishedBefore", history.FieldEndTime, t)
}

// FinishedAfter implies Finished.
func (q *ProcessInstanceQuery) FinishedAfter(t time.Time) *ProcessInstanceQuery {
	return q.after("finishedAfter", history.FieldEndTime, t)
}

func (q *ProcessInstanceQuery) Active() *ProcessInstanceQuery {
	return q.state(StateActive)
}

func (q *ProcessInstanceQuery) Suspended() *ProcessInstanceQuery {
	return q.state(StateSuspended)
}

func (q *ProcessInstanceQuery) Completed() *ProcessInstanceQuery {
	return q.state(StateCompleted)
}

func (q *ProcessInstanceQuery) ExternallyTerminated() *ProcessInstanceQuery {
	return q.state(StateExternallyTerminated)
}

func (q *ProcessInstanceQuery) InternallyTerminated() *ProcessInstanceQuery {
	return q.state(StateInternallyTerminated)
}

// state allows a single state at top level; inside an or-group several states
// may be combined.
func (q *ProcessInstanceQuery) state(state string) *ProcessInstanceQuery {
	if q.err == nil && !q.criteria.InOrGroup() {
		if q.stateSet {
			q.err = history.NewInvalidArgumentError("state", "Already querying for historic process instance with another state")
			return q
		}
		q.stateSet = true
	}
	return q.eq("state", history.FieldState, state)
}

// RootProcessInstances selects instances that have no parent instance.
func (q *ProcessInstanceQuery) RootProcessInstances() *ProcessInstanceQuery {
	if q.err == nil && q.superInstance {
		q.err = history.NewUsageError("Invalid query usage: cannot set both rootProcessInstances and superProcessInstanceId")
		return q
	}
	q.rootOnly = true
	return q.null(history.FieldSuperProcessInstanceID)
}

func (q *ProcessInstanceQuery) SuperProcessInstanceID(id string) *ProcessInstanceQuery {
	if q.err == nil && q.rootOnly {
		q.err = history.NewUsageError("Invalid query usage: cannot set both rootProcessInstances and superProcessInstanceId")
		return q
	}
	q.superInstance = true
	return q.eq("superProcessInstanceId", history.FieldSuperProcessInstanceID, id)
}

func (q *ProcessInstanceQuery) OrderByProcessInstanceID() *ProcessInstanceQuery {
	return q.orderBy("orderByProcessInstanceId", history.FieldID)
}

func (q *ProcessInstanceQuery) OrderByProcessDefinitionID() *ProcessInstanceQuery {
	return q.orderBy("orderByProcessDefinitionId", history.FieldGroupingKey)
}

func (q *ProcessInstanceQuery) OrderByProcessDefinitionKey() *ProcessInstanceQuery {
	return q.orderBy("orderByProcessDefinitionKey", history.FieldDefinitionKey)
}

func (q *ProcessInstanceQuery) OrderByProcessDefinitionName() *ProcessInstanceQuery {
	return q.orderBy("orderByProcessDefinitionName", history.FieldDefinitionName)
}

func (q *ProcessInstanceQuery) OrderByProcessDefinitionVersion() *ProcessInstanceQuery {
	return q.orderBy("orderByProcessDefinitionVersion", history.FieldDefinitionVersion)
}

func (q *ProcessInstanceQuery) OrderByBusinessKey() *ProcessInstanceQuery {
	return q.orderBy("orderByProcessInstanceBusinessKey", history.FieldBusinessKey)
}

func (q *ProcessInstanceQuery) OrderByStartTime() *ProcessInstanceQuery {
	return q.orderBy("orderByProcessInstanceStartTime", history.FieldStartTime)
}

func (q *ProcessInstanceQuery) OrderByEndTime() *ProcessInstanceQuery {
	return q.orderBy("orderByProcessInstanceEndTime", history.FieldEndTime)
}

func (q *ProcessInstanceQuery) OrderByTenantID() *ProcessInstanceQuery {
	return q.orderBy("orderByTenantId", history.FieldTenantID)
}
