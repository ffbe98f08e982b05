package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
)

// Store is a read-through cache over descriptor files. One Store is owned
// by one orchestrator; entries are keyed by instance id. Writes are
// last-writer-wins, which is acceptable because no instance runs two
// concurrent lifecycle calls.
type Store struct {
	mu    sync.RWMutex
	cache map[string]*InstanceMetadata
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{cache: make(map[string]*InstanceMetadata)}
}

// Get returns the descriptor for an instance, consulting the cache first
// and falling back to the descriptor file on the runner. Returns
// ErrNotFound when neither has it.
func (s *Store) Get(ctx context.Context, c sandbox.Client, instanceID string) (*InstanceMetadata, error) {
	s.mu.RLock()
	cached, ok := s.cache[instanceID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	meta, err := s.load(ctx, c, instanceID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[instanceID] = meta
	s.mu.Unlock()

	logging.Debug("metadata cache refreshed", "instance", instanceID)
	return meta, nil
}

// load reads and parses the descriptor file, mapping a missing file to
// ErrNotFound.
func (s *Store) load(ctx context.Context, c sandbox.Client, instanceID string) (*InstanceMetadata, error) {
	data, _, err := c.ReadFile(ctx, DescriptorPath(instanceID), 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", instanceID, ErrNotFound)
	}

	var meta InstanceMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("corrupt descriptor for %s: %w", instanceID, err)
	}
	return &meta, nil
}

// Put persists the descriptor to the runner and updates the cache
// (write-through).
func (s *Store) Put(ctx context.Context, c sandbox.Client, meta *InstanceMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %w", err)
	}

	if err := c.WriteFile(ctx, DescriptorPath(meta.InstanceID), data); err != nil {
		return fmt.Errorf("failed to write descriptor: %w", err)
	}

	s.mu.Lock()
	s.cache[meta.InstanceID] = meta
	s.mu.Unlock()
	return nil
}

// Invalidate drops an instance's cache entry. The descriptor file is left
// alone; after invalidation it is no longer authoritative.
func (s *Store) Invalidate(instanceID string) {
	s.mu.Lock()
	delete(s.cache, instanceID)
	s.mu.Unlock()
	logging.Debug("metadata cache invalidated", "instance", instanceID)
}

// Cached reports whether an instance currently has a cache entry.
func (s *Store) Cached(instanceID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[instanceID]
	return ok
}

// ListRunner scans one runner's descriptor directory and returns all
// descriptors found there, sorted by instance id. Descriptors are read
// fresh, not from the cache; corrupt files are skipped.
func (s *Store) ListRunner(ctx context.Context, c sandbox.Client) ([]*InstanceMetadata, error) {
	entries, err := c.ListFiles(ctx, DescriptorDir, false)
	if err != nil {
		// A runner that has never hosted an instance has no descriptor
		// directory yet.
		return nil, nil
	}

	var metas []*InstanceMetadata
	for _, entry := range entries {
		if entry.IsDir || !strings.HasSuffix(entry.Path, ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Path, ".json")
		meta, err := s.load(ctx, c, id)
		if err != nil {
			logging.Debug("skipping unreadable descriptor", "instance", id, "error", err)
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].InstanceID < metas[j].InstanceID })
	return metas, nil
}
