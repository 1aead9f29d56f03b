package storage

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"mercator-hq/chronicle/pkg/history"
)

// MemoryStorage implements history.Store over an in-memory map. Predicates
// are evaluated in Go, so it agrees with the SQLite backend on filtering and
// ordering. It is meant for tests and small embedded deployments.
type MemoryStorage struct {
	records map[string]*history.HistoricEntity
	mu      sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*history.HistoricEntity),
	}
}

// Insert stores copies of entities. Entities without an id get a UUID.
func (s *MemoryStorage) Insert(ctx context.Context, entities ...*history.HistoricEntity) error {
	for _, e := range entities {
		if err := validateEntity(e); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entities {
		c := e.Clone()
		if c.ID == "" {
			c.ID = uuid.NewString()
			e.ID = c.ID
		}
		s.records[c.ID] = c
	}
	return nil
}

// Query returns the entities selected by plan.
func (s *MemoryStorage) Query(ctx context.Context, plan *history.Plan) ([]*history.HistoricEntity, error) {
	matched := s.match(plan)
	slices.SortFunc(matched, plan.Compare)

	page := history.Apply(matched, plan.Page)
	results := make([]*history.HistoricEntity, 0, len(page))
	for _, e := range page {
		results = append(results, e.Clone())
	}
	return results, nil
}

// QueryStream delivers the entities selected by plan over a channel.
func (s *MemoryStorage) QueryStream(ctx context.Context, plan *history.Plan) (<-chan *history.HistoricEntity, <-chan error, error) {
	records, err := s.Query(ctx, plan)
	if err != nil {
		return nil, nil, err
	}

	recordsCh := make(chan *history.HistoricEntity, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for _, r := range records {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- r:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of entities matching plan's filters.
func (s *MemoryStorage) Count(ctx context.Context, plan *history.Plan) (int64, error) {
	return int64(len(s.match(plan))), nil
}

// CountByGroup aggregates finished and cleanable counts per grouping key.
func (s *MemoryStorage) CountByGroup(ctx context.Context, req *history.GroupCountRequest) ([]history.GroupCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var wanted map[string]bool
	if req.Keys != nil {
		wanted = make(map[string]bool, len(req.Keys))
		for _, k := range req.Keys {
			wanted[k] = true
		}
	}

	groups := make(map[string]*history.GroupCount)
	for _, e := range s.records {
		if e.Kind != req.Kind || e.GroupingKey == "" {
			continue
		}
		if wanted != nil && !wanted[e.GroupingKey] {
			continue
		}

		g, ok := groups[e.GroupingKey]
		if !ok {
			g = &history.GroupCount{Key: e.GroupingKey}
			groups[e.GroupingKey] = g
		}
		mergeMetadata(g, e)

		g.Total++
		if e.EndTime == nil {
			continue
		}
		g.Finished++
		if cutoff, ok := req.CutoffFor(e.GroupingKey); ok && !e.EndTime.After(cutoff) {
			g.Cleanable++
		}
	}

	out := make([]history.GroupCount, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b history.GroupCount) int {
		return strings.Compare(a.Key, b.Key)
	})
	return out, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStorage) Close() error {
	return nil
}

func (s *MemoryStorage) match(plan *history.Plan) []*history.HistoricEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*history.HistoricEntity
	for _, e := range s.records {
		if plan.MatchAll(e) {
			matched = append(matched, e)
		}
	}
	return matched
}

// mergeMetadata keeps the greatest value of each descriptive column, which is
// what the SQLite backend's MAX() aggregates report.
func mergeMetadata(g *history.GroupCount, e *history.HistoricEntity) {
	if e.DefinitionKey > g.DefinitionKey {
		g.DefinitionKey = e.DefinitionKey
	}
	if e.DefinitionName > g.DefinitionName {
		g.DefinitionName = e.DefinitionName
	}
	if e.DefinitionVersion > g.DefinitionVersion {
		g.DefinitionVersion = e.DefinitionVersion
	}
	if e.TenantID > g.TenantID {
		g.TenantID = e.TenantID
	}
}

func validateEntity(e *history.HistoricEntity) error {
	if e == nil {
		return history.NewInvalidArgumentError("entity", "entity is null")
	}
	if !e.Kind.Valid() {
		return history.NewInvalidArgumentError("kind", "unknown entity kind '"+string(e.Kind)+"'")
	}
	return nil
}
