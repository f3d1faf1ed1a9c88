package datastore

import (
	"context"
	"net/http"

	"github.com/roach88/receiptcheck/internal/blob"
)

// Blobs manages receipt PDFs in blob storage.
type Blobs struct {
	store blob.Store
}

func NewBlobs(s blob.Store) *Blobs {
	return &Blobs{store: s}
}

// UploadPDF uploads the local file at path under name. A failed upload still
// returns a result, with StatusCode 500, so callers can assert on it.
func (b *Blobs) UploadPDF(ctx context.Context, name, path string) (blob.UploadResult, error) {
	res, err := blob.UploadFile(ctx, b.store, name, path)
	if err != nil {
		return blob.UploadResult{StatusCode: http.StatusInternalServerError, Name: name}, err
	}
	return res, nil
}

// DeletePDF removes name and its snapshots. A missing blob is not an error.
func (b *Blobs) DeletePDF(ctx context.Context, name string) error {
	_, err := b.store.DeleteIfExists(ctx, name)
	return err
}

// PDFExists reports whether any version of name is stored.
func (b *Blobs) PDFExists(ctx context.Context, name string) (bool, error) {
	return b.store.Exists(ctx, name)
}
