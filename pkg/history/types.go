package history

import (
	"context"
	"time"
)

// EntityKind identifies the historic record family an entity belongs to.
type EntityKind string

const (
	KindProcessInstance  EntityKind = "process-instance"
	KindCaseInstance     EntityKind = "case-instance"
	KindDecisionInstance EntityKind = "decision-instance"
	KindBatch            EntityKind = "batch"
	KindJobLog           EntityKind = "job-log"
	KindIdentityLinkLog  EntityKind = "identity-link-log"
	KindIncident         EntityKind = "incident"
)

// Kinds lists every supported entity kind in a stable order.
var Kinds = []EntityKind{
	KindProcessInstance,
	KindCaseInstance,
	KindDecisionInstance,
	KindBatch,
	KindJobLog,
	KindIdentityLinkLog,
	KindIncident,
}

// Valid reports whether k is one of the known kinds.
func (k EntityKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind converts a string into an EntityKind.
func ParseKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	if !k.Valid() {
		return "", NewInvalidArgumentError("kind", "unknown entity kind '"+s+"'")
	}
	return k, nil
}

// HistoricEntity is an immutable fact recorded by the engine's audit pipeline.
// An entity without an EndTime is unfinished.
type HistoricEntity struct {
	// Identity
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`

	// GroupingKey is the dimension cleanup reports aggregate by: the
	// definition id for instances, the batch type for batches.
	GroupingKey string `json:"grouping_key"`

	// Definition metadata
	DefinitionKey     string `json:"definition_key,omitempty"`
	DefinitionName    string `json:"definition_name,omitempty"`
	DefinitionVersion int    `json:"definition_version,omitempty"`

	TenantID    string `json:"tenant_id,omitempty"`
	BusinessKey string `json:"business_key,omitempty"`
	State       string `json:"state,omitempty"`
	Priority    int64  `json:"priority,omitempty"`

	// Lifecycle
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Kind-specific attributes such as batch_id or cause_incident_id.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Finished reports whether the entity has an end time.
func (e *HistoricEntity) Finished() bool {
	return e.EndTime != nil
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (e *HistoricEntity) Clone() *HistoricEntity {
	c := *e
	if e.EndTime != nil {
		end := *e.EndTime
		c.EndTime = &end
	}
	if e.Attributes != nil {
		c.Attributes = make(map[string]string, len(e.Attributes))
		for k, v := range e.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}

// GroupCountRequest asks a store for per-key finished and cleanable counts.
type GroupCountRequest struct {
	Kind EntityKind

	// Keys restricts the result to these grouping keys. Nil means every key
	// that has at least one record of Kind.
	Keys []string

	// Cutoffs maps a grouping key to the latest end time that still counts
	// as cleanable.
	Cutoffs map[string]time.Time

	// DefaultCutoff applies to keys missing from Cutoffs. Nil means such
	// keys are never cleanable.
	DefaultCutoff *time.Time
}

// CutoffFor returns the cleanable cutoff of key.
func (r *GroupCountRequest) CutoffFor(key string) (time.Time, bool) {
	if t, ok := r.Cutoffs[key]; ok {
		return t, true
	}
	if r.DefaultCutoff != nil {
		return *r.DefaultCutoff, true
	}
	return time.Time{}, false
}

// GroupCount is the store-side aggregate for one grouping key.
type GroupCount struct {
	Key               string
	DefinitionKey     string
	DefinitionName    string
	DefinitionVersion int
	TenantID          string
	Total             int64
	Finished          int64
	Cleanable         int64
}

// Store is the read interface of the historic record store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Query returns the entities selected by plan, ordered and paged.
	Query(ctx context.Context, plan *Plan) ([]*HistoricEntity, error)

	// Count returns the number of entities matching plan's filters.
	// Ordering and paging are ignored.
	Count(ctx context.Context, plan *Plan) (int64, error)

	// CountByGroup returns one GroupCount per grouping key that has at least
	// one entity of the requested kind.
	CountByGroup(ctx context.Context, req *GroupCountRequest) ([]GroupCount, error)

	// Close releases resources held by the store.
	Close() error
}

// Writer is implemented by stores that accept new entities. The query core
// never writes; importers and tests do.
type Writer interface {
	Insert(ctx context.Context, entities ...*HistoricEntity) error
}

// Streamer is implemented by stores that can deliver results one row at a
// time. The channels are closed when the query completes or fails.
type Streamer interface {
	QueryStream(ctx context.Context, plan *Plan) (<-chan *HistoricEntity, <-chan error, error)
}

// RawQuerier is implemented by stores that accept backend-specific query text.
// Parameters are bound by name.
type RawQuerier interface {
	RawQuery(ctx context.Context, kind EntityKind, text string, params map[string]any, page Page) ([]*HistoricEntity, error)
}
