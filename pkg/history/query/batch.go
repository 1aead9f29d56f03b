package query

import (
	"time"

	"mercator-hq/chronicle/pkg/history"
)

// BatchQuery filters historic batch operations. The batch type is the
// grouping key.
type BatchQuery struct {
	surface[BatchQuery]
}

// NewBatchQuery creates a batch query bound to exec.
func NewBatchQuery(exec *Executor) *BatchQuery {
	q := &BatchQuery{}
	q.surface = newSurface(q, exec, history.KindBatch)
	return q
}

func (q *BatchQuery) BatchID(id string) *BatchQuery {
	return q.eq("batchId", history.FieldID, id)
}

func (q *BatchQuery) Type(batchType string) *BatchQuery {
	return q.eq("type", history.FieldGroupingKey, batchType)
}

// Completed selects finished batches when true and running ones when false.
func (q *BatchQuery) Completed(completed bool) *BatchQuery {
	if completed {
		return q.notNull(history.FieldEndTime)
	}
	return q.null(history.FieldEndTime)
}

func (q *BatchQuery) StartedAfter(t time.Time) *BatchQuery {
	return q.after("startedAfter", history.FieldStartTime, t)
}

func (q *BatchQuery) EndedBefore(t time.Time) *BatchQuery {
	return q.before("endedBefore", history.FieldEndTime, t)
}

func (q *BatchQuery) TenantIDIn(tenantIDs ...string) *BatchQuery {
	return q.tenantIDIn(tenantIDs)
}

func (q *BatchQuery) WithoutTenantID() *BatchQuery {
	return q.null(history.FieldTenantID)
}

func (q *BatchQuery) OrderByID() *BatchQuery {
	return q.orderBy("orderById", history.FieldID)
}

func (q *BatchQuery) OrderByStartTime() *BatchQuery {
	return q.orderBy("orderByStartTime", history.FieldStartTime)
}

func (q *BatchQuery) OrderByEndTime() *BatchQuery {
	return q.orderBy("orderByEndTime", history.FieldEndTime)
}

func (q *BatchQuery) OrderByTenantID() *BatchQuery {
	return q.orderBy("orderByTenantId", history.FieldTenantID)
}
