package store

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
)

// WriteResult describes a successful write. StatusCode mirrors the document
// API's HTTP status (201 on create) so steps can assert on it.
type WriteResult struct {
	StatusCode int
	ID         string
}

// Key addresses one document.
type Key struct {
	ID           string
	PartitionKey string
}

// Container is a collection of JSON documents.
type Container interface {
	// Name returns the container name.
	Name() string

	// Create stores doc under (id, partitionKey). An existing key is a
	// KindConflict error.
	Create(ctx context.Context, id, partitionKey string, doc any) (WriteResult, error)

	// Read decodes the document stored under (id, partitionKey) into out.
	Read(ctx context.Context, id, partitionKey string, out any) error

	// Delete removes the document stored under (id, partitionKey). A missing
	// key is a KindNotFound error.
	Delete(ctx context.Context, id, partitionKey string) error

	// QueryIDs returns the keys of documents whose field equals value.
	// field is a dotted path such as "creditor.idPA". SQLite returns keys in
	// insertion order; Mongo makes no ordering promise.
	QueryIDs(ctx context.Context, field, value string) ([]Key, error)
}

// Database groups containers.
type Database interface {
	Container(name string) Container
}

// Client owns the backend connection.
type Client interface {
	Database(name string) Database
	Close() error
}

func created(id string) WriteResult {
	return WriteResult{StatusCode: http.StatusCreated, ID: id}
}

// validField matches dotted JSON paths made of identifiers.
var validField = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

func checkField(op, container, field string) error {
	if !validField.MatchString(field) {
		return &Error{Kind: KindInvalid, Op: op, Container: container, Err: fmt.Errorf("invalid field %q", field)}
	}
	return nil
}

func checkID(op, container, id string) error {
	if id == "" {
		return &Error{Kind: KindInvalid, Op: op, Container: container, Err: fmt.Errorf("empty id")}
	}
	return nil
}
