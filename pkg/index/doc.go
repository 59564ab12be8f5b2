// Package index provides the full-text index engine consumed by the
// transactional facade. The engine keeps its searchable state in memory
// (roaring-bitmap postings over analyzed fields) and makes it durable in a
// BadgerDB directory through a two-phase protocol: PrepareCommit stages the
// pending write batch durably under the next generation, Commit advances the
// committed generation and publishes a new immutable snapshot, Rollback
// discards the staged batch and replaces the writer handle.
//
// Readers obtained from OpenReader observe exactly one committed snapshot
// and never a half-committed state.
package index
