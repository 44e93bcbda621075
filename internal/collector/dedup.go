package collector

import (
	"sync"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Deduplicator tracks review identities already collected in a run.
type Deduplicator struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewDeduplicator creates a new Deduplicator with the given estimated capacity.
func NewDeduplicator(estimatedCapacity int) *Deduplicator {
	return &Deduplicator{
		seen: make(map[string]struct{}, estimatedCapacity),
	}
}

// IsSeen returns true if a review with the same text, reviewer and date was recorded.
func (d *Deduplicator) IsSeen(r *types.Review) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.seen[r.Key()]
	return ok
}

// MarkSeen records r and reports whether it was new.
func (d *Deduplicator) MarkSeen(r *types.Review) bool {
	key := r.Key()

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Count returns the number of unique reviews seen.
func (d *Deduplicator) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.seen)
}

// Filter returns the reviews of batch not seen before, marking them seen.
func (d *Deduplicator) Filter(batch []types.Review) []types.Review {
	fresh := make([]types.Review, 0, len(batch))
	for i := range batch {
		if d.MarkSeen(&batch[i]) {
			fresh = append(fresh, batch[i])
		}
	}
	return fresh
}
