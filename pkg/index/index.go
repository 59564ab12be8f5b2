package index

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/semantalytics/jena-temporal/pkg/entity"
)

// DatatypePrefix marks a datatype URI stored in the language field, to
// distinguish it from a language tag.
const DatatypePrefix = "^^"

// XSDString is the datatype of plain string literals; it is never recorded
// in the language field.
const XSDString = "http://www.w3.org/2001/XMLSchema#string"

// Index is the writer-side contract of the search index engine. A single
// writer is assumed; write exclusivity is enforced by the host store, not
// here.
type Index interface {
	// Add indexes a new document for the entity.
	Add(e *entity.Entity) error
	// Update replaces any document with the same entity identifier.
	Update(e *entity.Entity) error
	// Delete removes documents whose dedup key matches the given
	// field/value pair of the entity.
	Delete(e *entity.Entity, field, value string) error

	// PrepareCommit flushes pending writes to a durable but not yet
	// visible state.
	PrepareCommit() error
	// Commit makes the prepared state visible. It must follow a
	// successful PrepareCommit.
	Commit() error
	// Rollback discards pending writes and reopens the writer handle.
	Rollback() error
	// Close releases the engine. Safe after Commit or Rollback; never
	// reopens a handle.
	Close() error

	// OpenReader returns a point-in-time handle over the committed state.
	OpenReader() (Reader, error)
}

// Reader is a point-in-time read handle. Implementations are immutable
// snapshots; Close releases the handle and must be called before the
// enclosing search returns.
type Reader interface {
	// Postings returns the documents containing term in field. The
	// returned bitmap must not be modified.
	Postings(field, term string) *roaring.Bitmap
	// FieldDocs returns the documents carrying any value for field.
	FieldDocs(field string) *roaring.Bitmap
	// Live returns the documents not deleted as of this snapshot.
	Live() *roaring.Bitmap
	// Positions returns the token positions of term in field for one
	// document; the term frequency is its length.
	Positions(field, term string, doc uint32) []uint32
	// Stored returns the stored fields of a document.
	Stored(doc uint32) (*StoredDoc, bool)
	// DocCount returns the number of live documents.
	DocCount() uint64
	Close() error
}

// StoredDoc is the stored (unanalyzed) form of an indexed document, from
// which hits are reconstructed.
type StoredDoc struct {
	Entity string            `json:"entity"`
	Graph  string            `json:"graph,omitempty"`
	Lang   string            `json:"lang,omitempty"` // tag, or DatatypePrefix+URI
	Values map[string]string `json:"values"`
	UIDs   []string          `json:"uids,omitempty"`
}
