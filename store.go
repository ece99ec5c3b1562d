package models

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultLockTimeout is the default timeout for acquiring fetch locks.
const DefaultLockTimeout = 30 * time.Second

// onnxSuffix is the artifact extension kept when extracting archives.
const onnxSuffix = ".onnx"

// Store manages the local artifact directory: presence checks and
// retrieval of ONNX files from their source URLs.
type Store struct {
	// dir is the directory holding ONNX artifacts.
	dir string

	// httpClient is used for all artifact downloads.
	httpClient HTTPClient

	// logger receives diagnostic messages. May be nil.
	logger Logger

	// lockTimeout is the maximum duration to wait for a fetch lock.
	lockTimeout time.Duration
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
// A nil client falls back to http.DefaultClient.
func NewStore(dir string, client HTTPClient, logger Logger) (*Store, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating models directory: %v", ErrConfig, err)
	}
	return &Store{
		dir:         dir,
		httpClient:  client,
		logger:      logger,
		lockTimeout: DefaultLockTimeout,
	}, nil
}

// Dir returns the artifact directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute path the artifact is expected at.
func (s *Store) Path(spec ModelSpec) string {
	return filepath.Join(s.dir, spec.Output)
}

// Exists reports whether the expected local artifact is present.
// Always re-checks the filesystem; presence is never cached.
func (s *Store) Exists(spec ModelSpec) bool {
	info, err := os.Stat(s.Path(spec))
	return err == nil && info.Mode().IsRegular()
}

// Snapshot captures the local presence of every given spec's artifact.
func (s *Store) Snapshot(specs []ModelSpec) LocalSnapshot {
	snap := make(LocalSnapshot, len(specs))
	for _, spec := range specs {
		if s.Exists(spec) {
			snap.Add(spec.Output)
		}
	}
	return snap
}

// Fetch retrieves the artifact from its source URL into a temporary
// location and atomically publishes it at the expected local path. Archive
// sources (".zip") are downloaded fully, then only .onnx entries are
// extracted; the temporary archive is deleted on success and failure alike.
// No partial file is ever left at the final path.
//
// Fetch does not overwrite checks: callers consult Exists first, and a
// caller forcing a re-fetch must delete the existing artifact itself.
func (s *Store) Fetch(ctx context.Context, spec ModelSpec) error {
	lockPath := filepath.Join(s.dir, "."+spec.ID+".fetch.lock")
	lock, err := newFetchLock(lockPath, s.lockTimeout)
	if err != nil {
		return fmt.Errorf("%w: creating fetch lock: %v", ErrFetch, err)
	}
	if err := lock.lock(); err != nil {
		return fmt.Errorf("%w: another process is fetching %s: %v", ErrFetch, spec.ID, err)
	}
	defer lock.unlock()

	if strings.HasSuffix(spec.URL, ".zip") {
		return s.fetchArchive(ctx, spec)
	}
	return s.fetchDirect(ctx, spec)
}

// fetchDirect streams the artifact to a temp file and renames it into place.
func (s *Store) fetchDirect(ctx context.Context, spec ModelSpec) error {
	tmp := s.Path(spec) + ".tmp"
	if err := s.downloadTo(ctx, spec.URL, tmp); err != nil {
		return err
	}

	if err := os.Rename(tmp, s.Path(spec)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: publishing %s: %v", ErrFetch, spec.Output, err)
	}

	if s.logger != nil {
		s.logger.Info("artifact fetched", "id", spec.ID, "output", spec.Output)
	}
	return nil
}

// fetchArchive downloads the zip to a temp path, extracts matching .onnx
// entries, and removes the archive.
func (s *Store) fetchArchive(ctx context.Context, spec ModelSpec) error {
	archivePath := filepath.Join(s.dir, spec.ID+"_temp.zip")
	if err := s.downloadTo(ctx, spec.URL, archivePath); err != nil {
		return err
	}
	defer os.Remove(archivePath)

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: opening archive for %s: %v", ErrFetch, spec.ID, err)
	}
	defer zr.Close()

	extracted := 0
	for _, entry := range zr.File {
		if !strings.HasSuffix(entry.Name, onnxSuffix) {
			continue
		}
		if err := s.extractEntry(entry); err != nil {
			return err
		}
		extracted++
	}

	if extracted == 0 {
		return fmt.Errorf("%w: archive for %s contains no %s artifact", ErrFetch, spec.ID, onnxSuffix)
	}

	if s.logger != nil {
		s.logger.Info("artifact extracted", "id", spec.ID, "entries", extracted)
	}
	return nil
}

// extractEntry writes one archive entry into the models directory using the
// entry's base name, via temp-then-rename. Nested archive paths are
// flattened; only the filename matters to the registry.
func (s *Store) extractEntry(entry *zip.File) error {
	name := filepath.Base(entry.Name)
	final := filepath.Join(s.dir, name)
	tmp := final + ".tmp"

	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("%w: reading archive entry %s: %v", ErrFetch, entry.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrFetch, name, err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: extracting %s: %v", ErrFetch, name, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: writing %s: %v", ErrFetch, name, err)
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: publishing %s: %v", ErrFetch, name, err)
	}
	return nil
}

// downloadTo performs an HTTP GET and streams the body to path.
// The destination is removed on any failure.
func (s *Store) downloadTo(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request for %s: %v", ErrFetch, url, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetching %s: %v", ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: fetching %s: status %d", ErrFetch, url, resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrFetch, path, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("%w: downloading %s: %v", ErrFetch, url, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: writing %s: %v", ErrFetch, path, err)
	}
	return nil
}
