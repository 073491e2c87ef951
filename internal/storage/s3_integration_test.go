//go:build integration

package storage_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/storage"
	"github.com/cjgv1809/Chat-with-PDF/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestS3(t *testing.T) *storage.S3Client {
	t.Helper()
	ctx := context.Background()
	return testutil.NewS3Client(ctx, t, testutil.NewRustFSContainer(ctx, t), "docchat-test")
}

func TestIntegration_S3_UploadRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestS3(t)
	key := "documents/user-1/doc-1.txt"
	body := []byte("hello from storage")

	uploadURL, err := client.GenerateUploadURL(ctx, key, "text/plain")
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	meta, err := client.HeadObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), meta.ContentLength)

	rc, _, err := client.GetObject(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, body, got)

	require.NoError(t, client.DeleteObject(ctx, key))
	_, err = client.HeadObject(ctx, key)
	assert.ErrorIs(t, err, domain.ErrUploadNotFound)
}

func TestIntegration_S3_MissingObject(t *testing.T) {
	ctx := context.Background()
	client := newTestS3(t)

	_, _, err := client.GetObject(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUploadNotFound)

	assert.NoError(t, client.DeleteObject(ctx, "missing"))
}
