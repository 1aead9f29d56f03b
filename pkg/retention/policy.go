package retention

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/chronicle/pkg/history"
)

// PolicyKind is the family of configuration a TTL is resolved from.
type PolicyKind string

const (
	ProcessDefinition  PolicyKind = "process-definition"
	CaseDefinition     PolicyKind = "case-definition"
	DecisionDefinition PolicyKind = "decision-definition"
	BatchOperation     PolicyKind = "batch"
)

// PolicyKinds lists every policy kind in a stable order.
var PolicyKinds = []PolicyKind{ProcessDefinition, CaseDefinition, DecisionDefinition, BatchOperation}

// ParsePolicyKind converts a string into a PolicyKind.
func ParsePolicyKind(s string) (PolicyKind, error) {
	for _, k := range PolicyKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", history.NewInvalidArgumentError("kind", "unknown report kind '"+s+"'")
}

// EntityKind returns the historic entity kind a report of this kind counts.
func (k PolicyKind) EntityKind() history.EntityKind {
	switch k {
	case CaseDefinition:
		return history.KindCaseInstance
	case DecisionDefinition:
		return history.KindDecisionInstance
	case BatchOperation:
		return history.KindBatch
	default:
		return history.KindProcessInstance
	}
}

// IsDefinition reports whether TTLs of this kind come from definitions.
func (k PolicyKind) IsDefinition() bool {
	return k != BatchOperation
}

// DefinitionPolicy is the retention-relevant view of a deployed definition.
type DefinitionPolicy struct {
	Kind     PolicyKind `yaml:"kind" json:"kind"`
	ID       string     `yaml:"id" json:"id"`
	Key      string     `yaml:"key" json:"key"`
	Name     string     `yaml:"name,omitempty" json:"name,omitempty"`
	Version  int        `yaml:"version,omitempty" json:"version,omitempty"`
	TenantID string     `yaml:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	TTL      TTL        `yaml:"ttl" json:"ttl"`
}

// Snapshot is an immutable view of the policy store. A report reads exactly
// one snapshot so that concurrent administrative changes never mix within it.
type Snapshot struct {
	// Version increases with every change to the source.
	Version uint64 `json:"version"`

	// TakenAt is when the snapshot was published.
	TakenAt time.Time `json:"taken_at"`

	// BatchDefault applies to batch types without an override.
	BatchDefault TTL `json:"batch_default"`

	// BatchOverrides maps a batch type to its TTL.
	BatchOverrides map[string]TTL `json:"batch_overrides"`

	// Definitions holds per-definition policy by kind and definition id.
	Definitions map[PolicyKind]map[string]DefinitionPolicy `json:"definitions"`
}

// Definition returns the policy for definition id of kind.
func (s *Snapshot) Definition(kind PolicyKind, id string) (DefinitionPolicy, bool) {
	d, ok := s.Definitions[kind][id]
	return d, ok
}

// ConfiguredKeys returns the grouping keys the snapshot has explicit entries
// for: override types for batches, definition ids otherwise. Sorted.
func (s *Snapshot) ConfiguredKeys(kind PolicyKind) []string {
	if kind == BatchOperation {
		return slices.Sorted(maps.Keys(s.BatchOverrides))
	}
	return slices.Sorted(maps.Keys(s.Definitions[kind]))
}

func (s *Snapshot) clone() *Snapshot {
	c := &Snapshot{
		Version:        s.Version,
		TakenAt:        s.TakenAt,
		BatchDefault:   s.BatchDefault,
		BatchOverrides: maps.Clone(s.BatchOverrides),
		Definitions:    make(map[PolicyKind]map[string]DefinitionPolicy, len(s.Definitions)),
	}
	if c.BatchOverrides == nil {
		c.BatchOverrides = map[string]TTL{}
	}
	for k, defs := range s.Definitions {
		c.Definitions[k] = maps.Clone(defs)
	}
	return c
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		BatchOverrides: map[string]TTL{},
		Definitions:    map[PolicyKind]map[string]DefinitionPolicy{},
	}
}

// PolicySource provides consistent policy snapshots.
type PolicySource interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// MemorySource is a mutable in-process policy store. Writers copy the
// current snapshot, apply their change and publish the copy, so a snapshot
// handed to a reader never changes.
type MemorySource struct {
	mu      sync.Mutex // serializes writers
	current atomic.Pointer[Snapshot]
	clock   Clock
}

// NewMemorySource creates an empty policy store.
func NewMemorySource(clock Clock) *MemorySource {
	if clock == nil {
		clock = SystemClock{}
	}
	s := &MemorySource{clock: clock}
	snap := emptySnapshot()
	snap.TakenAt = clock.Now()
	s.current.Store(snap)
	return s
}

// Snapshot returns the current snapshot. Callers must not modify it.
func (s *MemorySource) Snapshot(ctx context.Context) (*Snapshot, error) {
	return s.current.Load(), nil
}

// Replace publishes snap as the new state, keeping the version sequence.
func (s *MemorySource) Replace(snap *Snapshot) {
	s.update(func(next *Snapshot) error {
		next.BatchDefault = snap.BatchDefault
		next.BatchOverrides = maps.Clone(snap.BatchOverrides)
		if next.BatchOverrides == nil {
			next.BatchOverrides = map[string]TTL{}
		}
		next.Definitions = make(map[PolicyKind]map[string]DefinitionPolicy, len(snap.Definitions))
		for k, defs := range snap.Definitions {
			next.Definitions[k] = maps.Clone(defs)
		}
		return nil
	})
}

// SetBatchDefault sets the TTL for batch types without an override.
func (s *MemorySource) SetBatchDefault(ttl TTL) {
	s.update(func(next *Snapshot) error {
		next.BatchDefault = ttl
		return nil
	})
}

// SetBatchOverride sets the TTL of one batch type.
func (s *MemorySource) SetBatchOverride(batchType string, ttl TTL) error {
	if batchType == "" {
		return history.NewInvalidArgumentError("batchType", "batchType is null")
	}
	return s.update(func(next *Snapshot) error {
		next.BatchOverrides[batchType] = ttl
		return nil
	})
}

// RemoveBatchOverride drops the override of batchType.
func (s *MemorySource) RemoveBatchOverride(batchType string) {
	s.update(func(next *Snapshot) error {
		delete(next.BatchOverrides, batchType)
		return nil
	})
}

// PutDefinition adds or replaces a definition's policy.
func (s *MemorySource) PutDefinition(def DefinitionPolicy) error {
	if def.ID == "" {
		return history.NewInvalidArgumentError("definitionId", "definitionId is null")
	}
	if !def.Kind.IsDefinition() {
		return history.NewInvalidArgumentError("kind", "kind '"+string(def.Kind)+"' is not a definition kind")
	}
	return s.update(func(next *Snapshot) error {
		if next.Definitions[def.Kind] == nil {
			next.Definitions[def.Kind] = map[string]DefinitionPolicy{}
		}
		next.Definitions[def.Kind][def.ID] = def
		return nil
	})
}

// UpdateDefinitionTTL changes the TTL of a known definition.
func (s *MemorySource) UpdateDefinitionTTL(kind PolicyKind, id string, ttl TTL) error {
	return s.update(func(next *Snapshot) error {
		def, ok := next.Definitions[kind][id]
		if !ok {
			return history.NewInvalidArgumentError("definitionId", "no "+string(kind)+" found for id '"+id+"'")
		}
		def.TTL = ttl
		next.Definitions[kind][id] = def
		return nil
	})
}

func (s *MemorySource) update(fn func(next *Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().clone()
	if err := fn(next); err != nil {
		return err
	}
	next.Version++
	next.TakenAt = s.clock.Now()
	s.current.Store(next)
	return nil
}
