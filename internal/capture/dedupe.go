package capture

import (
	"log/slog"
	"sync"

	"github.com/corona10/goimagehash"

	"github.com/ayusman/accuread/internal/frame"
)

// DefaultHashDistance is the largest perceptual-hash Hamming distance at
// which two frames count as the same view.
const DefaultHashDistance = 3

// DuplicateFilter drops frames that look the same as the last kept frame,
// so a stationary device does not rescore identical views.
type DuplicateFilter struct {
	mu        sync.Mutex
	threshold int
	last      *goimagehash.ImageHash
	dropped   int
}

// NewDuplicateFilter creates a filter with the given distance threshold.
// A negative threshold disables filtering.
func NewDuplicateFilter(threshold int) *DuplicateFilter {
	return &DuplicateFilter{threshold: threshold}
}

// Keep reports whether f differs enough from the last kept frame. Frames
// that cannot be hashed are always kept.
func (d *DuplicateFilter) Keep(f frame.Frame) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.threshold < 0 {
		return true
	}

	hash, err := goimagehash.PerceptionHash(f.Image())
	if err != nil {
		slog.Debug("perception hash failed", "error", err)
		return true
	}
	if d.last == nil {
		d.last = hash
		return true
	}

	dist, err := d.last.Distance(hash)
	if err != nil {
		d.last = hash
		return true
	}
	if dist <= d.threshold {
		d.dropped++
		return false
	}
	d.last = hash
	return true
}

// Dropped returns how many frames were suppressed since the last Reset.
func (d *DuplicateFilter) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Reset forgets the last kept frame.
func (d *DuplicateFilter) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = nil
	d.dropped = 0
}

// SetThreshold changes the distance threshold.
func (d *DuplicateFilter) SetThreshold(threshold int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.threshold = threshold
}
