package store

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

const quadPrefix = "q:"

// BadgerStore is a quad store over a BadgerDB directory. It exposes no
// participant hook, so a facade over it must sequence index and store
// commits itself (the non-delegated strategy).
type BadgerStore struct {
	db *badger.DB

	// writeMu serializes write transactions; the store is single-writer.
	writeMu sync.Mutex
}

var _ Store = (*BadgerStore)(nil)

// BadgerOptions configures a BadgerStore.
type BadgerOptions struct {
	Dir      string
	InMemory bool
}

// OpenBadgerStore opens or creates a badger-backed quad store.
func OpenBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(opts.Dir)
	bopts.InMemory = opts.InMemory
	if opts.InMemory {
		bopts.Dir = ""
		bopts.ValueDir = ""
	}
	bopts.SyncWrites = true
	bopts.Logger = nil
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Begin(ctx context.Context, rw ReadWrite) (Txn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rw == Write {
		s.writeMu.Lock()
	}
	return &badgerTxn{store: s, rw: rw, txn: s.db.NewTransaction(rw == Write)}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

type badgerTxn struct {
	store *BadgerStore
	rw    ReadWrite
	txn   *badger.Txn

	finished bool // Commit or Abort ran
	ended    bool // End ran, writer lock released
}

func quadKey(q Quad) []byte {
	parts := []string{quadPrefix + q.Graph, q.Subject, q.Predicate, q.Object, q.Lang, q.Datatype}
	return []byte(strings.Join(parts, "\x00"))
}

func quadFromKey(key []byte) (Quad, bool) {
	parts := strings.Split(string(bytes.TrimPrefix(key, []byte(quadPrefix))), "\x00")
	if len(parts) != 6 {
		return Quad{}, false
	}
	return Quad{
		Graph:     parts[0],
		Subject:   parts[1],
		Predicate: parts[2],
		Object:    parts[3],
		Lang:      parts[4],
		Datatype:  parts[5],
	}, true
}

func (t *badgerTxn) Add(q Quad) error {
	if t.finished {
		return ErrTxnDone
	}
	if t.rw != Write {
		return ErrReadOnly
	}
	return t.txn.Set(quadKey(q), nil)
}

func (t *badgerTxn) Delete(q Quad) error {
	if t.finished {
		return ErrTxnDone
	}
	if t.rw != Write {
		return ErrReadOnly
	}
	err := t.txn.Delete(quadKey(q))
	if err == badger.ErrKeyNotFound {
		return nil
	}
	return err
}

func (t *badgerTxn) Find(graph, subject, predicate string) ([]Quad, error) {
	if t.finished {
		return nil, ErrTxnDone
	}
	var out []Quad
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	defer it.Close()
	prefix := []byte(quadPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		q, ok := quadFromKey(it.Item().Key())
		if !ok {
			continue
		}
		if (graph == "" || q.Graph == graph) &&
			(subject == "" || q.Subject == subject) &&
			(predicate == "" || q.Predicate == predicate) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (t *badgerTxn) Commit() error {
	if t.finished {
		return ErrTxnDone
	}
	t.finished = true
	return t.txn.Commit()
}

func (t *badgerTxn) Abort() error {
	if t.finished {
		return nil
	}
	t.finished = true
	t.txn.Discard()
	return nil
}

// End discards an unfinished transaction and releases writer exclusivity.
// A second writer can begin only after End, not after Commit.
func (t *badgerTxn) End() error {
	if !t.finished {
		t.finished = true
		t.txn.Discard()
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
