// Package membership holds the probabilistic username index. It answers
// "definitely absent" or "possibly present" and never yields a false negative.
package membership

import (
	"context"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Index is a concurrency-safe bloom filter over normalized usernames.
// Names are only ever added; there is no deletion path.
type Index struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// New sizes the filter for capacity names at the target false-positive rate.
func New(capacity uint, fpRate float64) *Index {
	if capacity == 0 {
		capacity = 1
	}
	return &Index{filter: bloom.NewWithEstimates(capacity, fpRate)}
}

// MayExist reports false only when name was never added. A nil index has
// no information and reports every name as possibly present.
func (i *Index) MayExist(name string) bool {
	if i == nil {
		return true
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.filter.TestString(name)
}

// Add is idempotent. It is a no-op on a nil index.
func (i *Index) Add(name string) {
	if i == nil {
		return
	}
	i.mu.Lock()
	i.filter.AddString(name)
	i.mu.Unlock()
}

// Source streams every known username. It is satisfied by the user repository.
type Source interface {
	ScanUsernames(ctx context.Context, fn func(username string)) (int, error)
}

// Build creates an index from a full snapshot of src. A partially loaded
// filter would produce false negatives, so any scan error discards it.
func Build(ctx context.Context, src Source, capacity uint, fpRate float64) (*Index, int, error) {
	idx := New(capacity, fpRate)
	n, err := src.ScanUsernames(ctx, func(username string) {
		idx.filter.AddString(username)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("build membership index: %w", err)
	}
	return idx, n, nil
}
