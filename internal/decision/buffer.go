package decision

import (
	"sort"

	"github.com/ayusman/accuread/internal/quality"
)

// DefaultCapacity is the candidate buffer size used when none is given.
const DefaultCapacity = 8

// Candidate is one scored entry of a Buffer.
type Candidate[T any] struct {
	Item    T               `json:"-"`
	Verdict quality.Verdict `json:"verdict"`
	Score   float64         `json:"score"`
	// Seq increases with every admission and orders candidates by recency.
	Seq uint64 `json:"seq"`
}

// Buffer is a bounded, time-ordered candidate window with FIFO eviction.
// It is not safe for concurrent use; Session serialises access.
type Buffer[T any] struct {
	items    []Candidate[T]
	capacity int
	next     uint64
}

// NewBuffer creates a Buffer holding at most capacity candidates.
// A capacity of zero or less selects DefaultCapacity.
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer[T]{
		items:    make([]Candidate[T], 0, capacity),
		capacity: capacity,
	}
}

// Admit appends a candidate, evicting the oldest entry when full.
// It returns the index of the new candidate.
func (b *Buffer[T]) Admit(item T, v quality.Verdict, score float64) int {
	if len(b.items) >= b.capacity {
		// Shift left by 1, dropping the oldest entry
		copy(b.items, b.items[1:])
		b.items = b.items[:b.capacity-1]
	}
	b.items = append(b.items, Candidate[T]{
		Item:    item,
		Verdict: v,
		Score:   score,
		Seq:     b.next,
	})
	b.next++
	return len(b.items) - 1
}

// Len returns the number of buffered candidates.
func (b *Buffer[T]) Len() int {
	return len(b.items)
}

// Cap returns the configured capacity.
func (b *Buffer[T]) Cap() int {
	return b.capacity
}

// At returns the candidate at index i, oldest first.
func (b *Buffer[T]) At(i int) Candidate[T] {
	return b.items[i]
}

// Items returns a copy of the buffered candidates, oldest first.
func (b *Buffer[T]) Items() []Candidate[T] {
	out := make([]Candidate[T], len(b.items))
	copy(out, b.items)
	return out
}

// Clear drops every candidate.
func (b *Buffer[T]) Clear() {
	clear(b.items)
	b.items = b.items[:0]
}

// SelectBest returns up to count candidates ordered by score descending,
// newer candidates first on ties.
func (b *Buffer[T]) SelectBest(count int) []Candidate[T] {
	if count <= 0 || len(b.items) == 0 {
		return nil
	}

	ranked := b.Items()
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Seq > ranked[j].Seq
	})

	if count > len(ranked) {
		count = len(ranked)
	}
	return ranked[:count]
}
