// Package temporal binds a full-text search index to the transaction
// lifecycle of a quad store, so that index updates commit and abort
// together with the store changes that caused them.
//
// A Dataset wraps a store.Store and an index.Index. Quads added or removed
// through a Dataset transaction are mapped to index documents via an
// entity.Definition, and the index is carried through a two-phase commit
// sequenced with the store's own commit. Stores that expose a transaction
// coordinator (store.Coordinated) drive the index as a registered
// participant; for all other stores the Dataset sequences the two commits
// itself under an exit lock.
package temporal
