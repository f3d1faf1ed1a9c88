// Package blob stores receipt PDFs by file name.
//
// Uploading a name that already exists keeps the previous content as a
// snapshot, the way versioned blob containers do. DeleteIfExists removes the
// blob together with its snapshots, so a cleaned-up name leaves nothing
// behind.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
)

// ErrNotFound is returned by Download for a name with no stored content.
var ErrNotFound = errors.New("blob not found")

// UploadResult describes a stored blob. StatusCode mirrors the blob API's
// HTTP status (201 on upload).
type UploadResult struct {
	StatusCode int
	Name       string
	Version    int64
}

// Store is a flat namespace of blobs.
type Store interface {
	Upload(ctx context.Context, name string, r io.Reader) (UploadResult, error)
	Download(ctx context.Context, name string) ([]byte, error)
	Exists(ctx context.Context, name string) (bool, error)

	// DeleteIfExists removes the blob and its snapshots. It reports whether
	// anything was deleted; a missing blob is not an error.
	DeleteIfExists(ctx context.Context, name string) (bool, error)

	Close() error
}

// UploadFile uploads the content of the local file at path under name.
func UploadFile(ctx context.Context, s Store, name, path string) (UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return s.Upload(ctx, name, f)
}

func uploaded(name string, version int64) UploadResult {
	return UploadResult{StatusCode: http.StatusCreated, Name: name, Version: version}
}
