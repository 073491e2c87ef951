// Package vectorindex manages the shared vector index. Every document gets its
// own namespace, keyed by document ID; a namespace exists exactly when the
// document has been ingested.
package vectorindex

import (
	"context"
)

// Record is one stored vector with the chunk text it was computed from.
type Record struct {
	ID         string
	DocumentID string
	Seq        int
	Text       string
	Vector     []float32
}

// Match is a query hit. Higher scores are more similar.
type Match struct {
	Record
	Score float32
}

// Stats summarises the index.
type Stats struct {
	Dimensions int
	// Namespaces maps every non-empty namespace to its record count.
	Namespaces map[string]int
}

// HasNamespace reports whether ns holds at least one record.
func (s Stats) HasNamespace(ns string) bool {
	return s.Namespaces[ns] > 0
}

// Index is the storage port for vectors. Implementations must treat Upsert as
// insert-or-replace by record ID and DeleteAll on a missing namespace as a
// no-op.
type Index interface {
	DescribeStats(ctx context.Context) (Stats, error)
	Upsert(ctx context.Context, namespace string, records []Record) error
	Query(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error)
	DeleteAll(ctx context.Context, namespace string) error
}
