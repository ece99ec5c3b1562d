package models

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildZip creates an in-memory zip archive from name -> content pairs.
func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// artifactServer serves fixed payloads by path.
func artifactServer(payloads map[string][]byte) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	}))
}

func TestStoreFetchDirect(t *testing.T) {
	server := artifactServer(map[string][]byte{
		"/model.onnx": []byte("onnx-bytes"),
	})
	defer server.Close()

	dir := t.TempDir()
	store, err := NewStore(dir, server.Client(), nil)
	require.NoError(t, err)

	spec := ModelSpec{ID: "m", URL: server.URL + "/model.onnx", Output: "model.onnx"}
	require.False(t, store.Exists(spec))

	require.NoError(t, store.Fetch(context.Background(), spec))

	assert.True(t, store.Exists(spec))
	data, err := os.ReadFile(store.Path(spec))
	require.NoError(t, err)
	assert.Equal(t, "onnx-bytes", string(data))
}

func TestStoreFetchArchive(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"model.onnx":       "onnx-bytes",
		"README.md":        "ignore me",
		"nested/extra.txt": "ignore me too",
	})
	server := artifactServer(map[string][]byte{
		"/model.zip": archive,
	})
	defer server.Close()

	dir := t.TempDir()
	store, err := NewStore(dir, server.Client(), nil)
	require.NoError(t, err)

	spec := ModelSpec{ID: "m", URL: server.URL + "/model.zip", Output: "model.onnx"}
	require.NoError(t, store.Fetch(context.Background(), spec))

	// Only the .onnx entry is kept; the temp archive is gone.
	assert.True(t, store.Exists(spec))
	assert.NoFileExists(t, filepath.Join(dir, "README.md"))
	assert.NoFileExists(t, filepath.Join(dir, "extra.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "m_temp.zip"))
}

func TestStoreFetchArchiveFlattensNestedEntries(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"export/onnx/model.onnx": "onnx-bytes",
	})
	server := artifactServer(map[string][]byte{
		"/model.zip": archive,
	})
	defer server.Close()

	dir := t.TempDir()
	store, err := NewStore(dir, server.Client(), nil)
	require.NoError(t, err)

	spec := ModelSpec{ID: "m", URL: server.URL + "/model.zip", Output: "model.onnx"}
	require.NoError(t, store.Fetch(context.Background(), spec))
	assert.FileExists(t, filepath.Join(dir, "model.onnx"))
}

func TestStoreFetchArchiveNoArtifact(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"README.md": "no model here",
	})
	server := artifactServer(map[string][]byte{
		"/model.zip": archive,
	})
	defer server.Close()

	dir := t.TempDir()
	store, err := NewStore(dir, server.Client(), nil)
	require.NoError(t, err)

	spec := ModelSpec{ID: "m", URL: server.URL + "/model.zip", Output: "model.onnx"}
	err = store.Fetch(context.Background(), spec)
	require.ErrorIs(t, err, ErrFetch)

	// The temp archive is deleted on the failure path too.
	assert.NoFileExists(t, filepath.Join(dir, "m_temp.zip"))
	assert.False(t, store.Exists(spec))
}

func TestStoreFetchHTTPError(t *testing.T) {
	server := artifactServer(nil)
	defer server.Close()

	dir := t.TempDir()
	store, err := NewStore(dir, server.Client(), nil)
	require.NoError(t, err)

	spec := ModelSpec{ID: "m", URL: server.URL + "/missing.onnx", Output: "model.onnx"}
	err = store.Fetch(context.Background(), spec)
	require.ErrorIs(t, err, ErrFetch)

	// No partial file at the final path.
	assert.False(t, store.Exists(spec))
	assert.NoFileExists(t, filepath.Join(dir, "model.onnx.tmp"))
}

func TestStoreFetchCancelledContext(t *testing.T) {
	server := artifactServer(map[string][]byte{
		"/model.onnx": []byte("onnx-bytes"),
	})
	defer server.Close()

	dir := t.TempDir()
	store, err := NewStore(dir, server.Client(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	spec := ModelSpec{ID: "m", URL: server.URL + "/model.onnx", Output: "model.onnx"}
	err = store.Fetch(ctx, spec)
	require.ErrorIs(t, err, ErrFetch)
	assert.False(t, store.Exists(spec))
}

func TestStoreSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil, nil)
	require.NoError(t, err)

	specs := []ModelSpec{
		{ID: "a", Output: "a.onnx"},
		{ID: "b", Output: "b.onnx"},
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.onnx"), []byte("x"), 0644))

	snap := store.Snapshot(specs)
	assert.True(t, snap.Has("a.onnx"))
	assert.False(t, snap.Has("b.onnx"))
}

func TestStoreExistsIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil, nil)
	require.NoError(t, err)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "model.onnx"), 0755))
	assert.False(t, store.Exists(ModelSpec{ID: "m", Output: "model.onnx"}))
}
