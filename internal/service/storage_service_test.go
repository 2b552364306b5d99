package service

import (
	"context"
	"edu_platform_backend/internal/config"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalStorageUploadAndRemove(t *testing.T) {
	dir := t.TempDir()
	svc := NewStorageService(&config.StorageConfig{Type: "local", LocalPath: dir}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC) }

	key, url, err := svc.Upload(context.Background(), "materials", "Lecture 1.MP4", strings.NewReader("data"), 4, "video/mp4")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "materials/2024/03/"))
	assert.True(t, strings.HasSuffix(key, ".mp4"))
	assert.Equal(t, "/uploads/"+key, url)

	stored, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, "data", string(stored))

	svc.Remove(context.Background(), key)
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(key)))
	assert.True(t, os.IsNotExist(err))
}

func TestStorageFallsBackToLocal(t *testing.T) {
	svc := NewStorageService(&config.StorageConfig{Type: "minio", LocalPath: t.TempDir()}, zap.NewNop())
	_, ok := svc.Provider.(*LocalStorageProvider)
	assert.True(t, ok)
}

func TestLocalStoragePublicBaseURL(t *testing.T) {
	p := &LocalStorageProvider{Config: &config.StorageConfig{PublicBaseURL: "https://cdn.example.com/"}}
	assert.Equal(t, "https://cdn.example.com/uploads/a/b.pdf", p.GetURL("a/b.pdf"))
}
