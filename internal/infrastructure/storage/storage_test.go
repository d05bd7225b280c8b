package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/claimdesk/internal/application/port"
	"github.com/garyjia/claimdesk/internal/domain/apperr"
)

func TestLocalObjectStorage_UploadDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalObjectStorage(t.TempDir(), "claim-documents", "http://localhost:8080/files/", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.Upload(ctx, "claim-1/1700000000000-0.pdf", []byte("first")))
	err = store.Upload(ctx, "claim-1/1700000000000-0.pdf", []byte("second"))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	data, err := os.ReadFile(filepath.Join(store.BucketDir(), "claim-1", "1700000000000-0.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	require.NoError(t, store.Delete(ctx, "claim-1/1700000000000-0.pdf"))
	require.NoError(t, store.Delete(ctx, "claim-1/1700000000000-0.pdf"))
}

func TestLocalObjectStorage_PublicURL(t *testing.T) {
	store, err := NewLocalObjectStorage(t.TempDir(), "claim-documents", "https://claims.example.com/files/", zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t,
		"https://claims.example.com/files/claim-documents/abc/1700000000000-0.png",
		store.PublicURL("abc/1700000000000-0.png"))
	assert.Equal(t,
		"https://claims.example.com/files/claim-documents/abc/a%20b.pdf",
		store.PublicURL("abc/a b.pdf"))
}

func TestLocalObjectStorage_RejectsEscapes(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalObjectStorage(t.TempDir(), "claim-documents", "http://x", zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, store.Upload(ctx, "../outside.pdf", []byte("x")))
	assert.Error(t, store.Upload(ctx, "", []byte("x")))
	assert.Error(t, store.Delete(ctx, "../../etc/passwd"))
}

func TestLocalStagingArea_RoundTripKeepsOrder(t *testing.T) {
	ctx := context.Background()
	staging, err := NewLocalStagingArea(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	files := []port.StagedFile{
		{Name: "z-receipt.pdf", Content: []byte("pdf")},
		{Name: "a photo.jpg", Content: []byte("jpg")},
	}
	require.NoError(t, staging.Stage(ctx, "claim-1", files))

	got, err := staging.Load(ctx, "claim-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "z-receipt.pdf", got[0].Name)
	assert.Equal(t, "a_photo.jpg", got[1].Name)
	assert.Equal(t, []byte("jpg"), got[1].Content)

	require.NoError(t, staging.Clear(ctx, "claim-1"))
	got, err = staging.Load(ctx, "claim-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLocalStagingArea_RejectsBadIDs(t *testing.T) {
	staging, err := NewLocalStagingArea(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, staging.Stage(context.Background(), "", nil))
	assert.Error(t, staging.Clear(context.Background(), ".."))
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"receipt.pdf", "receipt.pdf"},
		{"my receipt (1).PDF", "my_receipt__1_.PDF"},
		{"../../etc/passwd", "passwd"},
		{"发票.png", "__.png"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeName(tt.input))
		})
	}
}
