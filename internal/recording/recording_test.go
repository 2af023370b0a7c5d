package recording

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatest(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		objs    []Recording
		wantKey string
		wantOK  bool
	}{
		{"empty", nil, "", false},
		{"non video only", []Recording{{Key: "videos/s/meta.json", Updated: t0}}, "", false},
		{"newest wins", []Recording{
			{Key: "videos/s/a.mp4", Updated: t0},
			{Key: "videos/s/b.WEBM", Updated: t0.Add(time.Minute)},
			{Key: "videos/s/c.txt", Updated: t0.Add(time.Hour)},
		}, "videos/s/b.WEBM", true},
		{"tie breaks on key", []Recording{
			{Key: "videos/s/a.mp4", Updated: t0},
			{Key: "videos/s/z.mp4", Updated: t0},
		}, "videos/s/z.mp4", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := latest(tt.objs)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKey, got.Key)
		})
	}
}

func TestFSLocator(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "videos", "s1")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	old := filepath.Join(dir, "old.mp4")
	recent := filepath.Join(dir, "recent.webm")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(recent, []byte("xy"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	l := FSLocator{Root: root}
	rec, ok, err := l.Find(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "videos/s1/recent.webm", rec.Key)
	assert.Equal(t, int64(2), rec.Size)

	_, ok, err = l.Find(context.Background(), "no-such-session")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGCSLocatorFind(t *testing.T) {
	var gotPrefix string
	l := &GCSLocator{bucket: "b", list: func(_ context.Context, prefix string) ([]Recording, error) {
		gotPrefix = prefix
		return []Recording{{Key: prefix + "take1.mp4", URL: "gs://b/" + prefix + "take1.mp4"}}, nil
	}}
	rec, ok, err := l.Find(context.Background(), "s9")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "videos/s9/", gotPrefix)
	assert.Equal(t, "gs://b/videos/s9/take1.mp4", rec.URL)
	assert.NoError(t, l.Close())

	failing := &GCSLocator{list: func(context.Context, string) ([]Recording, error) {
		return nil, errors.New("permission denied")
	}}
	_, _, err = failing.Find(context.Background(), "s9")
	assert.Error(t, err)
}

func TestNewGCSLocatorRequiresBucket(t *testing.T) {
	_, err := NewGCSLocator(context.Background(), "")
	assert.Error(t, err)
}

func TestNone(t *testing.T) {
	_, ok, err := None{}.Find(context.Background(), "s")
	assert.NoError(t, err)
	assert.False(t, ok)
}
