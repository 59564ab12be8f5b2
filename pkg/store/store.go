// Package store defines the host-store transactional boundary consumed by
// the facade, and provides three reference stores: an in-memory quad store
// with a multi-participant transaction coordinator, a BadgerDB-backed quad
// store without one, and an adapter over a remote Neo4j database.
package store

import (
	"context"
	"errors"
)

// ReadWrite is the transaction mode of the host store.
type ReadWrite int

const (
	Read ReadWrite = iota
	Write
)

func (rw ReadWrite) String() string {
	if rw == Write {
		return "write"
	}
	return "read"
}

var (
	// ErrTxnDone is returned when a finished transaction is used again.
	ErrTxnDone = errors.New("store: transaction already completed")
	// ErrReadOnly is returned when a read transaction attempts a mutation.
	ErrReadOnly = errors.New("store: mutation in read transaction")
	// ErrComponentExists is returned when a participant is registered
	// under an identifier already in use.
	ErrComponentExists = errors.New("store: component id already registered")
)

// Quad is one statement in the host store. An empty Graph means the default
// graph. Lang and Datatype qualify a literal Object.
type Quad struct {
	Graph     string
	Subject   string
	Predicate string
	Object    string
	Lang      string
	Datatype  string
}

// Store is the host store's transactional boundary.
type Store interface {
	// Begin starts a transaction. At most one write transaction is in
	// flight at a time; Begin(Write) blocks until the writer is free.
	Begin(ctx context.Context, rw ReadWrite) (Txn, error)
	Close() error
}

// Txn is one host-store transaction. Commit and Abort finish the
// transaction's changes but a write transaction keeps writer exclusivity
// until End, so a caller can sequence work against other components inside
// the single-writer window. End must be called on every path; calling End
// without Commit discards the transaction.
type Txn interface {
	Add(q Quad) error
	Delete(q Quad) error
	// Find matches quads by graph, subject and predicate; empty strings
	// are wildcards.
	Find(graph, subject, predicate string) ([]Quad, error)
	Commit() error
	Abort() error
	End() error
}

// ComponentID distinguishes an externally registered participant from the
// components the host manages internally.
type ComponentID string

// Participant receives prepare/commit/abort callbacks in lock step with the
// store's own transaction when registered with a Coordinated store.
type Participant interface {
	Begin(rw ReadWrite) error
	PrepareCommit() error
	Commit() error
	Abort() error
}

// Coordinated is the capability interface of stores whose transaction
// coordinator accepts external participants. Stores without it leave
// commit sequencing to the caller.
type Coordinated interface {
	Register(id ComponentID, p Participant) error
}
