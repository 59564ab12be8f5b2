// Package producer turns quad-level change notifications into index
// maintenance. A Producer observes the adds and deletes of a write
// transaction, maps each quad through the entity definition, and applies
// the corresponding document operation to the index.
package producer

import (
	"log/slog"

	"github.com/semantalytics/jena-temporal/pkg/entity"
	"github.com/semantalytics/jena-temporal/pkg/index"
	"github.com/semantalytics/jena-temporal/pkg/store"
)

// Producer relays transactional change events to a secondary index. Start
// and Finish bracket a write transaction; change notifications outside a
// bracket are ignored. A Producer is driven by a single write transaction
// at a time.
type Producer struct {
	def    *entity.Definition
	idx    index.Index
	log    *slog.Logger
	active bool
}

// New creates a Producer feeding idx using def to map predicates to index
// fields. A nil logger means slog.Default().
func New(def *entity.Definition, idx index.Index, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{def: def, idx: idx, log: logger}
}

// Start begins observing a write transaction's changes.
func (p *Producer) Start() { p.active = true }

// Finish stops observing. It is called on both the commit and the abort
// path; the index's own two-phase protocol decides what happens to the
// observed changes.
func (p *Producer) Finish() { p.active = false }

// Active reports whether a transaction bracket is open.
func (p *Producer) Active() bool { return p.active }

// QuadAdded indexes the object literal of q, if its predicate is mapped in
// the definition. Quads with unmapped predicates are ignored.
func (p *Producer) QuadAdded(q store.Quad) error {
	if !p.active {
		return nil
	}
	e, field := p.entityFromQuad(q)
	if e == nil {
		return nil
	}
	p.log.Debug("index add", "entity", e.ID(), "field", field)
	return p.idx.Add(e)
}

// QuadDeleted removes the document for the object literal of q, keyed by
// the mapped field and the literal value. Quads with unmapped predicates
// are ignored, as are deletions when the definition carries no UID field.
func (p *Producer) QuadDeleted(q store.Quad) error {
	if !p.active {
		return nil
	}
	e, field := p.entityFromQuad(q)
	if e == nil {
		return nil
	}
	p.log.Debug("index delete", "entity", e.ID(), "field", field)
	return p.idx.Delete(e, field, q.Object)
}

// entityFromQuad maps q to an index entity. It returns nil when the
// predicate has no field mapping.
func (p *Producer) entityFromQuad(q store.Quad) (*entity.Entity, string) {
	field := p.def.Field(q.Predicate)
	if field == "" {
		return nil, ""
	}
	e := entity.New(q.Subject, q.Graph)
	e.SetLang(q.Lang)
	e.SetDatatype(q.Datatype)
	e.Put(field, q.Object)
	return e, field
}
