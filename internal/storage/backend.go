// Package storage persists named JSON documents with optimistic concurrency.
package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document changed since it was read")
)

// Version is an opaque revision token returned by Read and Write.
type Version string

const (
	// Any makes a write unconditional.
	Any Version = ""
	// Absent makes a write succeed only if the document does not exist yet.
	Absent Version = "absent"
)

// Document is a stored document and the revision it was read at.
type Document struct {
	Data    []byte
	Version Version
}

// Backend stores whole documents by name. Write with a match other than Any
// fails with ErrConflict when the stored revision differs.
type Backend interface {
	Read(ctx context.Context, name string) (Document, error)
	Write(ctx context.Context, name string, data []byte, match Version) (Version, error)
	Ping(ctx context.Context) error
}
