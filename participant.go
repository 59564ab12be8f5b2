package temporal

import (
	"github.com/semantalytics/jena-temporal/pkg/index"
	"github.com/semantalytics/jena-temporal/pkg/store"
)

// indexParticipant adapts an index.Index to the store's transaction
// coordinator, for stores that drive external components through their own
// commit cycle.
type indexParticipant struct {
	idx index.Index
}

var _ store.Participant = (*indexParticipant)(nil)

func (p *indexParticipant) Begin(rw store.ReadWrite) error {
	// The index has no per-transaction read state; there is nothing to
	// set up until prepare.
	return nil
}

func (p *indexParticipant) PrepareCommit() error {
	return p.idx.PrepareCommit()
}

func (p *indexParticipant) Commit() error {
	return p.idx.Commit()
}

func (p *indexParticipant) Abort() error {
	return p.idx.Rollback()
}
