package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MemStore is an in-memory quad store with a multi-participant transaction
// coordinator: registered participants receive prepare/commit/abort in lock
// step with the store's own commit. It exercises the delegated coordination
// strategy.
type MemStore struct {
	mu    sync.RWMutex
	quads map[Quad]struct{}

	// writeMu serializes write transactions; held from Begin(Write) to
	// End.
	writeMu sync.Mutex

	pmu          sync.Mutex
	participants map[ComponentID]Participant
	order        []ComponentID

	log *slog.Logger
}

var (
	_ Store       = (*MemStore)(nil)
	_ Coordinated = (*MemStore)(nil)
)

// NewMemStore creates an empty in-memory store. A nil logger means
// slog.Default().
func NewMemStore(logger *slog.Logger) *MemStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemStore{
		quads:        make(map[Quad]struct{}),
		participants: make(map[ComponentID]Participant),
		log:          logger,
	}
}

// Register adds an external participant to the coordinator.
func (s *MemStore) Register(id ComponentID, p Participant) error {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	if _, ok := s.participants[id]; ok {
		return fmt.Errorf("%w: %s", ErrComponentExists, id)
	}
	s.participants[id] = p
	s.order = append(s.order, id)
	return nil
}

func (s *MemStore) Begin(ctx context.Context, rw ReadWrite) (Txn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rw == Write {
		s.writeMu.Lock()
	}
	txn := &memTxn{store: s, rw: rw}
	// Participants only take part in write transactions; reads have
	// nothing to coordinate.
	if rw == Write {
		s.pmu.Lock()
		defer s.pmu.Unlock()
		for _, id := range s.order {
			if err := s.participants[id].Begin(rw); err != nil {
				txn.finished = true
				_ = txn.End()
				return nil, err
			}
		}
	}
	return txn, nil
}

func (s *MemStore) Close() error { return nil }

type memTxn struct {
	store   *MemStore
	rw      ReadWrite
	adds    []Quad
	deletes []Quad

	finished bool // Commit or Abort ran
	ended    bool // End ran, writer lock released
}

func (t *memTxn) Add(q Quad) error {
	if t.finished {
		return ErrTxnDone
	}
	if t.rw != Write {
		return ErrReadOnly
	}
	t.adds = append(t.adds, q)
	return nil
}

func (t *memTxn) Delete(q Quad) error {
	if t.finished {
		return ErrTxnDone
	}
	if t.rw != Write {
		return ErrReadOnly
	}
	t.deletes = append(t.deletes, q)
	return nil
}

func (t *memTxn) Find(graph, subject, predicate string) ([]Quad, error) {
	if t.finished {
		return nil, ErrTxnDone
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	var out []Quad
	match := func(q Quad) bool {
		return (graph == "" || q.Graph == graph) &&
			(subject == "" || q.Subject == subject) &&
			(predicate == "" || q.Predicate == predicate)
	}
	for q := range t.store.quads {
		if match(q) {
			out = append(out, q)
		}
	}
	// Uncommitted writes of this transaction are visible to it.
	for _, q := range t.adds {
		if match(q) {
			out = append(out, q)
		}
	}
	return out, nil
}

// Commit drives the coordinator: every participant prepares, the store's
// own changes are applied, then every participant commits. A prepare
// failure aborts all participants and the transaction.
func (t *memTxn) Commit() error {
	if t.finished {
		return ErrTxnDone
	}

	s := t.store
	participants := t.participantList()

	for _, p := range participants {
		if err := p.PrepareCommit(); err != nil {
			// Abort every participant, prepared or not, so none carries
			// buffered writes into the next transaction.
			for _, q := range participants {
				if aerr := q.Abort(); aerr != nil {
					s.log.Warn("participant abort failed", "error", aerr)
				}
			}
			t.finish()
			return fmt.Errorf("store: participant prepare: %w", err)
		}
	}

	s.mu.Lock()
	for _, q := range t.deletes {
		delete(s.quads, q)
	}
	for _, q := range t.adds {
		s.quads[q] = struct{}{}
	}
	s.mu.Unlock()

	var commitErr error
	for _, p := range participants {
		if err := p.Commit(); err != nil && commitErr == nil {
			commitErr = fmt.Errorf("store: participant commit: %w", err)
		}
	}
	t.finish()
	return commitErr
}

func (t *memTxn) Abort() error {
	if t.finished {
		return nil
	}
	for _, p := range t.participantList() {
		if err := p.Abort(); err != nil {
			t.store.log.Warn("participant abort failed", "error", err)
		}
	}
	t.finish()
	return nil
}

// End aborts an unfinished transaction and releases writer exclusivity.
// A second writer can begin only after End, not after Commit.
func (t *memTxn) End() error {
	if !t.finished {
		_ = t.Abort()
	}
	if t.ended {
		return nil
	}
	t.ended = true
	if t.rw == Write {
		t.store.writeMu.Unlock()
	}
	return nil
}

func (t *memTxn) participantList() []Participant {
	if t.rw != Write {
		return nil
	}
	s := t.store
	s.pmu.Lock()
	defer s.pmu.Unlock()
	out := make([]Participant, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.participants[id])
	}
	return out
}

func (t *memTxn) finish() {
	t.finished = true
	t.adds, t.deletes = nil, nil
}
