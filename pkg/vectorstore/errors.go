package vectorstore

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrCollectionNotFound means no active index handle exists for the
	// conversation; the caller must ingest a document first.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists means CreateCollection was called twice for the
	// same conversation without a teardown in between.
	ErrCollectionExists = errors.New("collection already exists")
)

// StoreOpError reports a backing-store or embedding-provider failure during
// an insert, delete or search, wrapping the underlying cause.
type StoreOpError struct {
	Op             string
	ConversationId uuid.UUID
	Err            error
}

func (e *StoreOpError) Error() string {
	return fmt.Sprintf("store operation %s failed for conversation %s: %v", e.Op, e.ConversationId, e.Err)
}

func (e *StoreOpError) Unwrap() error {
	return e.Err
}

// ValidationError reports a caller precondition violation, e.g. mismatched
// chunk/id sequences.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}
