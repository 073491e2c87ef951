package vectorindex

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"sync"
)

// MemoryIndex is an exact, in-process Index used by local mode and tests.
// Query is a linear scan keeping the top k in a min-heap.
type MemoryIndex struct {
	dimensions int

	mu         sync.RWMutex
	namespaces map[string]map[string]Record
}

func NewMemoryIndex(dimensions int) *MemoryIndex {
	return &MemoryIndex{
		dimensions: dimensions,
		namespaces: make(map[string]map[string]Record),
	}
}

func (m *MemoryIndex) DescribeStats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{Dimensions: m.dimensions, Namespaces: make(map[string]int, len(m.namespaces))}
	for ns, records := range m.namespaces {
		if len(records) > 0 {
			stats.Namespaces[ns] = len(records)
		}
	}
	return stats, nil
}

func (m *MemoryIndex) Upsert(ctx context.Context, namespace string, records []Record) error {
	for _, r := range records {
		if len(r.Vector) != m.dimensions {
			return fmt.Errorf("record %s has %d dimensions, index expects %d", r.ID, len(r.Vector), m.dimensions)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = make(map[string]Record, len(records))
		m.namespaces[namespace] = ns
	}
	for _, r := range records {
		r.Vector = append([]float32(nil), r.Vector...)
		ns[r.ID] = r
	}
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	h := &matchHeap{}
	for _, r := range m.namespaces[namespace] {
		cand := Match{Record: r, Score: CosineSimilarity(vector, r.Vector)}
		if h.Len() < k {
			heap.Push(h, cand)
		} else if ranksAbove(cand, (*h)[0]) {
			heap.Pop(h)
			heap.Push(h, cand)
		}
	}

	results := make([]Match, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(Match)
	}
	return results, nil
}

func (m *MemoryIndex) DeleteAll(ctx context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.namespaces, namespace)
	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either is a zero vector or the lengths differ.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// ranksAbove orders by score, then by earlier position in the document.
func ranksAbove(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Seq < b.Seq
}

// matchHeap keeps the worst-ranked match at the root.
type matchHeap []Match

func (h matchHeap) Len() int           { return len(h) }
func (h matchHeap) Less(i, j int) bool { return ranksAbove(h[j], h[i]) }
func (h matchHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *matchHeap) Push(x any) {
	*h = append(*h, x.(Match))
}

func (h *matchHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
