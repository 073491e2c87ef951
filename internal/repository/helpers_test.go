//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func setupPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	return testutil.NewTestPool(ctx, t, testutil.NewPostgresContainer(ctx, t), "../../migrations")
}

func createDocument(ctx context.Context, t *testing.T, repo *DocumentRepository, ownerID string, createdAt time.Time) *domain.Document {
	t.Helper()
	id := uuid.NewString()
	d := domain.NewDocument(id, ownerID, "report.pdf", "application/pdf", ownerID+"/"+id+"/report.pdf", 1024, createdAt.UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, d))
	return d
}
