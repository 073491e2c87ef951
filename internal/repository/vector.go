package repository

import (
	"context"
	"fmt"

	"github.com/cjgv1809/Chat-with-PDF/internal/vectorindex"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// VectorRepository stores the shared vector index in Postgres. Rows are
// partitioned by index name and namespace; it implements vectorindex.Index.
type VectorRepository struct {
	db         dbtx
	indexName  string
	dimensions int
}

func NewVectorRepository(pool *pgxpool.Pool, indexName string, dimensions int) *VectorRepository {
	return &VectorRepository{db: pool, indexName: indexName, dimensions: dimensions}
}

var _ vectorindex.Index = (*VectorRepository)(nil)

func (r *VectorRepository) DescribeStats(ctx context.Context) (vectorindex.Stats, error) {
	rows, err := r.db.Query(ctx,
		`SELECT namespace, COUNT(*)
		 FROM vectors
		 WHERE index_name = $1
		 GROUP BY namespace`,
		r.indexName,
	)
	if err != nil {
		return vectorindex.Stats{}, err
	}
	defer rows.Close()

	stats := vectorindex.Stats{Dimensions: r.dimensions, Namespaces: make(map[string]int)}
	for rows.Next() {
		var ns string
		var count int
		if err := rows.Scan(&ns, &count); err != nil {
			return vectorindex.Stats{}, err
		}
		stats.Namespaces[ns] = count
	}
	return stats, rows.Err()
}

// HasNamespace is a cheaper existence check than DescribeStats for a single
// namespace.
func (r *VectorRepository) HasNamespace(ctx context.Context, namespace string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM vectors WHERE index_name = $1 AND namespace = $2)`,
		r.indexName, namespace,
	).Scan(&exists)
	return exists, err
}

func (r *VectorRepository) Upsert(ctx context.Context, namespace string, records []vectorindex.Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		if len(rec.Vector) != r.dimensions {
			return fmt.Errorf("record %s has %d dimensions, index expects %d", rec.ID, len(rec.Vector), r.dimensions)
		}
		metadata := map[string]any{
			"document_id": rec.DocumentID,
			"sequence":    rec.Seq,
		}
		batch.Queue(
			`INSERT INTO vectors (index_name, namespace, id, seq, content, metadata, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (index_name, namespace, id) DO UPDATE
			 SET seq = EXCLUDED.seq,
			     content = EXCLUDED.content,
			     metadata = EXCLUDED.metadata,
			     embedding = EXCLUDED.embedding`,
			r.indexName, namespace, rec.ID, rec.Seq, rec.Text, metadata, pgvector.NewVector(rec.Vector),
		)
	}

	return r.db.SendBatch(ctx, batch).Close()
}

// Query ranks by cosine distance, reported as a similarity in (0, 1]. A zero
// query vector has no defined distance; every row then scores 0 and rows come
// back in document order.
func (r *VectorRepository) Query(ctx context.Context, namespace string, vector []float32, k int) ([]vectorindex.Match, error) {
	if k <= 0 {
		return []vectorindex.Match{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, seq, content, document_id,
		        (CASE WHEN distance = 'NaN'::float8 THEN 0 ELSE 1.0 / (1.0 + distance) END)::real AS score
		 FROM (
			 SELECT id, seq, content, metadata->>'document_id' AS document_id,
			        embedding <=> $3 AS distance
			 FROM vectors
			 WHERE index_name = $1 AND namespace = $2
		 ) ranked
		 ORDER BY distance ASC, seq ASC
		 LIMIT $4`,
		r.indexName, namespace, pgvector.NewVector(vector), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]vectorindex.Match, 0, k)
	for rows.Next() {
		var m vectorindex.Match
		var docID *string
		if err := rows.Scan(&m.ID, &m.Seq, &m.Text, &docID, &m.Score); err != nil {
			return nil, err
		}
		if docID != nil {
			m.DocumentID = *docID
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *VectorRepository) DeleteAll(ctx context.Context, namespace string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM vectors WHERE index_name = $1 AND namespace = $2`,
		r.indexName, namespace,
	)
	return err
}
