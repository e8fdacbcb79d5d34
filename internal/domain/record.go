// Package domain defines the core record types, collaborator ports, and
// error taxonomy shared by the pod agent runtime.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Record is an opaque unit of streaming data. The runtime never inspects
// Payload, Key, Headers, Topic, or Timestamp; it only needs a stable
// identity to key records in a map across retry trials, which ID supplies.
type Record struct {
	id uuid.UUID

	Key       []byte
	Payload   any
	Headers   map[string]string
	Topic     string
	Timestamp time.Time
}

// NewRecord constructs a Record with a freshly assigned identity. Every
// component that reads or derives a Record from another (a topic consumer,
// a processor emitting output, an agent producing records directly) calls
// this so the tracker can key on identity without relying on pointer
// equality surviving a language or process boundary.
func NewRecord(payload any) *Record {
	return &Record{id: uuid.New(), Payload: payload, Timestamp: time.Now()}
}

// ID returns the record's hidden identity, stable for the lifetime of the
// Record value.
func (r *Record) ID() uuid.UUID {
	return r.id
}

// Batch is an ordered sequence of Records produced by a single source read
// or processor invocation. It preserves source order and may be empty.
type Batch []*Record

// ProcessingResult pairs a source record with its processing outcome:
// either a (possibly empty) derived batch, or a terminal error.
type ProcessingResult struct {
	Source  *Record
	Derived Batch
	Err     error
}
