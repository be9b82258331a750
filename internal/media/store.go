package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Store persists media bytes under a name and returns a stable reference.
type Store interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// DiskStore writes media files under a base directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a disk-backed media store.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Save writes the bytes and returns the file path as the reference.
func (s *DiskStore) Save(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Uploader tries the primary store and falls back to the secondary.
// Media failure never blocks a ledger commit: when both stores fail the
// record is committed without a media reference.
type Uploader struct {
	primary  Store
	fallback Store
	maxDim   int
}

// NewUploader creates an uploader over a primary and fallback store.
func NewUploader(primary, fallback Store, maxDim int) *Uploader {
	return &Uploader{primary: primary, fallback: fallback, maxDim: maxDim}
}

// Upload recompresses and stores the media, returning its reference or ""
// when both stores failed.
func (u *Uploader) Upload(ctx context.Context, name string, data []byte) string {
	data = Recompress(data, u.maxDim)
	name = fmt.Sprintf("%s.jpg", name)

	ref, err := u.primary.Save(ctx, name, data)
	if err == nil {
		return ref
	}
	log.Printf("primary media store failed for %s: %v", name, err)

	if u.fallback == nil {
		return ""
	}
	ref, err = u.fallback.Save(ctx, name, data)
	if err != nil {
		log.Printf("fallback media store failed for %s: %v", name, err)
		return ""
	}
	return ref
}
