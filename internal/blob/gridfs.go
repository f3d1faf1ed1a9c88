package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFS stores blobs in a GridFS bucket. Each upload of a name is a new
// GridFS revision; older revisions act as snapshots.
//
// The bucket holds one read and one write deadline, so operations run one at
// a time under mu with the caller's deadline applied.
type GridFS struct {
	mu     sync.Mutex
	bucket *gridfs.Bucket
}

// NewGridFS opens the bucket called name in db.
func NewGridFS(db *mongo.Database, name string) (*GridFS, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open gridfs bucket %s: %w", name, err)
	}
	return &GridFS{bucket: bucket}, nil
}

// lock takes the bucket for one operation and sets its deadlines from ctx.
// The v1 bucket API takes deadlines instead of contexts.
func (g *GridFS) lock(ctx context.Context) (unlock func(), err error) {
	g.mu.Lock()
	if err := ctx.Err(); err != nil {
		g.mu.Unlock()
		return nil, err
	}
	deadline, _ := ctx.Deadline()
	if err := g.bucket.SetReadDeadline(deadline); err != nil {
		g.mu.Unlock()
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}
	if err := g.bucket.SetWriteDeadline(deadline); err != nil {
		g.mu.Unlock()
		return nil, fmt.Errorf("failed to set write deadline: %w", err)
	}
	return g.mu.Unlock, nil
}

func (g *GridFS) Upload(ctx context.Context, name string, r io.Reader) (UploadResult, error) {
	unlock, err := g.lock(ctx)
	if err != nil {
		return UploadResult{}, err
	}
	defer unlock()

	revisions, err := g.revisions(ctx, name)
	if err != nil {
		return UploadResult{}, err
	}
	if _, err := g.bucket.UploadFromStream(name, r); err != nil {
		return UploadResult{}, fmt.Errorf("failed to upload blob %s: %w", name, err)
	}
	return uploaded(name, int64(len(revisions)+1)), nil
}

func (g *GridFS) Download(ctx context.Context, name string) ([]byte, error) {
	unlock, err := g.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var buf bytes.Buffer
	if _, err := g.bucket.DownloadToStreamByName(name, &buf); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to download blob %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (g *GridFS) Exists(ctx context.Context, name string) (bool, error) {
	unlock, err := g.lock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	revisions, err := g.revisions(ctx, name)
	if err != nil {
		return false, err
	}
	return len(revisions) > 0, nil
}

func (g *GridFS) DeleteIfExists(ctx context.Context, name string) (bool, error) {
	unlock, err := g.lock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	revisions, err := g.revisions(ctx, name)
	if err != nil {
		return false, err
	}
	for _, id := range revisions {
		if err := g.bucket.Delete(id); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return false, fmt.Errorf("failed to delete blob %s: %w", name, err)
		}
	}
	return len(revisions) > 0, nil
}

// revisions lists the file ids stored under name, oldest first. The caller
// holds the lock.
func (g *GridFS) revisions(ctx context.Context, name string) ([]primitive.ObjectID, error) {
	opts := options.GridFSFind().SetSort(bson.D{{Key: "uploadDate", Value: 1}})
	cursor, err := g.bucket.Find(bson.M{"filename": name}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list blob %s: %w", name, err)
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	for cursor.Next(ctx) {
		var file struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&file); err != nil {
			return nil, fmt.Errorf("failed to decode blob %s: %w", name, err)
		}
		ids = append(ids, file.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to list blob %s: %w", name, err)
	}
	return ids, nil
}

// Close is a no-op; the mongo client is owned by the caller.
func (g *GridFS) Close() error {
	return nil
}
