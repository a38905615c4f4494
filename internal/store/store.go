// internal/store/store.go
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrAbort is returned by a transaction function to abandon the transaction
// without committing. The Transaction call itself reports Committed=false
// and a nil error.
var ErrAbort = errors.New("store: transaction aborted")

// ErrContention is returned when a transaction could not commit within the
// store's internal retry budget because the document kept changing underneath.
var ErrContention = errors.New("store: transaction retry budget exhausted")

// TxResult is the outcome of a Transaction call.
type TxResult struct {
	// Committed is false when the transaction function aborted.
	Committed bool
	// Value is the document content after the transaction settled: the
	// committed value on success, or the value observed at abort time.
	// A nil Value with Committed=true means the function committed no
	// document (the key was and remains absent).
	Value json.RawMessage
}

// TxFunc receives the current document (nil if absent) and returns the value
// to commit. Returning current unchanged commits a no-op; returning ErrAbort
// abandons the transaction. The store may invoke the function multiple times
// if the document is concurrently modified, so it must be pure apart from
// deriving its return value.
type TxFunc func(current json.RawMessage) (json.RawMessage, error)

// Store is a keyed JSON document store with an optimistic transaction
// primitive: Transaction re-reads and re-runs fn until the commit lands on an
// unmodified document, or the retry budget runs out.
type Store interface {
	// Get decodes the document at key into dest. Returns false if absent.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set unconditionally writes the document at key.
	Set(ctx context.Context, key string, value interface{}) error

	// Transaction atomically applies fn to the document at key.
	Transaction(ctx context.Context, key string, fn TxFunc) (TxResult, error)
}
