package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"mercator-hq/chronicle/pkg/history"
)

// PolicyFile is the YAML layout of a retention policy file:
//
//	batch:
//	  default_ttl: P5D
//	  overrides:
//	    instance-modification: P20D
//	definitions:
//	  - kind: process-definition
//	    id: invoice:3:8c1f
//	    key: invoice
//	    version: 3
//	    ttl: P30D
type PolicyFile struct {
	Batch struct {
		DefaultTTL TTL            `yaml:"default_ttl"`
		Overrides  map[string]TTL `yaml:"overrides"`
	} `yaml:"batch"`
	Definitions []DefinitionPolicy `yaml:"definitions"`
}

// ParsePolicyFile decodes and validates a policy document.
func ParsePolicyFile(data []byte) (*Snapshot, error) {
	var pf PolicyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}

	snap := emptySnapshot()
	snap.BatchDefault = pf.Batch.DefaultTTL
	for batchType, ttl := range pf.Batch.Overrides {
		if batchType == "" {
			return nil, fmt.Errorf("batch override with empty type")
		}
		snap.BatchOverrides[batchType] = ttl
	}

	for i, def := range pf.Definitions {
		if def.ID == "" {
			return nil, fmt.Errorf("definitions[%d]: id is required", i)
		}
		if def.Kind == "" {
			def.Kind = ProcessDefinition
		}
		if !def.Kind.IsDefinition() {
			return nil, fmt.Errorf("definitions[%d]: kind %q is not a definition kind", i, def.Kind)
		}
		if snap.Definitions[def.Kind] == nil {
			snap.Definitions[def.Kind] = map[string]DefinitionPolicy{}
		}
		if _, dup := snap.Definitions[def.Kind][def.ID]; dup {
			return nil, fmt.Errorf("definitions[%d]: duplicate id %q", i, def.ID)
		}
		snap.Definitions[def.Kind][def.ID] = def
	}
	return snap, nil
}

// FileSource serves policy loaded from a YAML file and can reload it when
// the file changes. A failed reload keeps the previous snapshot.
type FileSource struct {
	*MemorySource

	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// NewFileSource loads path and returns a source serving its contents.
func NewFileSource(path string, clock Clock) (*FileSource, error) {
	s := &FileSource{
		MemorySource: NewMemorySource(clock),
		path:         path,
		debounce:     100 * time.Millisecond,
		logger:       slog.Default().With("component", "retention.policy"),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the watched file.
func (s *FileSource) Path() string {
	return s.path
}

// Reload re-reads the policy file and publishes it.
func (s *FileSource) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return history.NewPolicyError("file:"+s.path, err)
	}
	snap, err := ParsePolicyFile(data)
	if err != nil {
		return history.NewPolicyError("file:"+s.path, err)
	}
	s.Replace(snap)

	current, _ := s.Snapshot(context.Background())
	s.logger.Info("retention policy loaded",
		"path", s.path,
		"version", current.Version,
		"batch_overrides", len(snap.BatchOverrides),
		"definitions", countDefinitions(snap),
	)
	return nil
}

// Watch reloads the file on change until ctx is cancelled. The parent
// directory is watched so that editors that replace the file by rename are
// still noticed.
func (s *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.logger.Info("watching retention policy", "path", s.path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.debounce, func() {
				if err := s.Reload(); err != nil {
					s.logger.Error("retention policy reload failed, keeping previous policy", "error", err)
				}
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			s.logger.Error("policy watcher error", "error", err)
		}
	}
}

func countDefinitions(s *Snapshot) int {
	n := 0
	for _, defs := range s.Definitions {
		n += len(defs)
	}
	return n
}
