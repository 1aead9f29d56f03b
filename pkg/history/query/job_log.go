package query

import "mercator-hq/chronicle/pkg/history"

// Job log states.
const (
	JobLogCreated    = "CREATED"
	JobLogFailed     = "FAILED"
	JobLogSuccessful = "SUCCESSFUL"
	JobLogDeleted    = "DELETED"
)

// JobLogQuery filters historic job log events. The event timestamp is the
// entity's start time.
type JobLogQuery struct {
	surface[JobLogQuery]
}

// NewJobLogQuery creates a job log query bound to exec.
func NewJobLogQuery(exec *Executor) *JobLogQuery {
	q := &JobLogQuery{}
	q.surface = newSurface(q, exec, history.KindJobLog)
	return q
}

func (q *JobLogQuery) LogID(id string) *JobLogQuery {
	return q.eq("logId", history.FieldID, id)
}

func (q *JobLogQuery) JobID(id string) *JobLogQuery {
	return q.eq("jobId", history.FieldJobID, id)
}

func (q *JobLogQuery) BatchID(id string) *JobLogQuery {
	return q.eq("batchId", history.FieldBatchID, id)
}

func (q *JobLogQuery) JobType(jobType string) *JobLogQuery {
	return q.eq("jobType", history.FieldJobType, jobType)
}

func (q *JobLogQuery) JobExceptionMessage(message string) *JobLogQuery {
	return q.eq("jobExceptionMessage", history.FieldJobExceptionMessage, message)
}

func (q *JobLogQuery) ActivityIDIn(ids ...string) *JobLogQuery {
	return q.in("activityIds", history.FieldActivityID, ids)
}

func (q *JobLogQuery) ProcessInstanceID(id string) *JobLogQuery {
	return q.eq("processInstanceId", history.FieldProcessInstanceID, id)
}

func (q *JobLogQuery) ProcessDefinitionID(id string) *JobLogQuery {
	return q.eq("processDefinitionId", history.FieldGroupingKey, id)
}

func (q *JobLogQuery) ProcessDefinitionKey(key string) *JobLogQuery {
	return q.eq("processDefinitionKey", history.FieldDefinitionKey, key)
}

func (q *JobLogQuery) JobPriorityHigherThanOrEquals(priority int64) *JobLogQuery {
	return q.atLeast("jobPriorityHigherThanOrEquals", history.FieldPriority, priority)
}

func (q *JobLogQuery) JobPriorityLowerThanOrEquals(priority int64) *JobLogQuery {
	return q.atMost("jobPriorityLowerThanOrEquals", history.FieldPriority, priority)
}

func (q *JobLogQuery) CreationLog() *JobLogQuery {
	return q.eq("state", history.FieldState, JobLogCreated)
}

func (q *JobLogQuery) FailureLog() *JobLogQuery {
	return q.eq("state", history.FieldState, JobLogFailed)
}

func (q *JobLogQuery) SuccessLog() *JobLogQuery {
	return q.eq("state", history.FieldState, JobLogSuccessful)
}

func (q *JobLogQuery) DeletionLog() *JobLogQuery {
	return q.eq("state", history.FieldState, JobLogDeleted)
}

func (q *JobLogQuery) TenantIDIn(tenantIDs ...string) *JobLogQuery {
	return q.tenantIDIn(tenantIDs)
}

func (q *JobLogQuery) WithoutTenantID() *JobLogQuery {
	return q.null(history.FieldTenantID)
}

func (q *JobLogQuery) OrderByTimestamp() *JobLogQuery {
	return q.orderBy("orderByTimestamp", history.FieldStartTime)
}

func (q *JobLogQuery) OrderByJobID() *JobLogQuery {
	return q.orderBy("orderByJobId", history.FieldJobID)
}

func (q *JobLogQuery) OrderByJobPriority() *JobLogQuery {
	return q.orderBy("orderByJobPriority", history.FieldPriority)
}

func (q *JobLogQuery) OrderByProcessDefinitionID() *JobLogQuery {
	return q.orderBy("orderByProcessDefinitionId", history.FieldGroupingKey)
}

func (q *JobLogQuery) OrderByTenantID() *JobLogQuery {
	return q.orderBy("orderByTenantId", history.FieldTenantID)
}
