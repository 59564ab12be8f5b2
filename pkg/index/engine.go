package index

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/s2"

	"github.com/semantalytics/jena-temporal/pkg/entity"
)

const (
	metaGenKey   = "m:gen"
	opPrefix     = "o:"
	opKindAdd    = byte('A')
	opKindDelete = byte('D')
)

// Options configures an Engine.
type Options struct {
	// Dir is the durable index directory. Ignored when InMemory is set.
	Dir string
	// InMemory keeps the badger backing store in memory. Intended for
	// tests.
	InMemory bool
	// Definition is the entity/field mapping. Required.
	Definition *entity.Definition
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Engine is the badger-backed reference implementation of Index.
//
// The writer buffers operations in memory. PrepareCommit writes the batch
// durably under the next generation and builds the next snapshot;
// Commit advances the committed generation key and publishes the snapshot
// atomically; Rollback drops the staged batch and replaces the writer
// handle. Readers hold the published snapshot pointer.
type Engine struct {
	db  *badger.DB
	def *entity.Definition
	log *slog.Logger

	keyword Analyzer
	text    Analyzer

	// mu guards the writer side. Write exclusivity across transactions is
	// the host store's concern; this lock only keeps the engine's own
	// bookkeeping consistent.
	mu     sync.Mutex
	w      *writer
	gen    uint64
	closed bool

	committed atomic.Pointer[segment]
}

type pendingOp struct {
	kind  byte
	doc   *document // add
	field string    // delete
	term  string    // delete
}

// writer is the index writer handle. A rollback invalidates the handle and
// a fresh one is opened before Rollback returns, so the next transaction
// always starts with a usable writer.
type writer struct {
	pending  []pendingOp
	prepared bool
	staged   *segment
}

var _ Index = (*Engine)(nil)

// Open opens or creates an index engine. Staged batches from a previous
// crash (generation past the committed one) are discarded.
func Open(opts Options) (*Engine, error) {
	if opts.Definition == nil {
		return nil, opErr("open", fmt.Errorf("nil entity definition"))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

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
		return nil, opErr("open", err)
	}

	e := &Engine{
		db:      db,
		def:     opts.Definition,
		log:     logger,
		keyword: KeywordAnalyzer{},
		text:    StandardAnalyzer{},
		w:       &writer{},
	}
	if err := e.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

// load rebuilds the committed snapshot by replaying the durable operation
// log up to the committed generation, and removes staged leftovers beyond
// it.
func (e *Engine) load() error {
	var committedGen uint64
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaGenKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			committedGen = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	if err != nil {
		return opErr("open", err)
	}

	seg := newSegment()
	var stale [][]byte

	err = e.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(opPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			gen, err := opKeyGen(item.Key())
			if err != nil {
				return err
			}
			if gen > committedGen {
				stale = append(stale, item.KeyCopy(nil))
				continue
			}
			err = item.Value(func(val []byte) error {
				return e.replay(seg, val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return opErr("open", err)
	}

	if len(stale) > 0 {
		e.log.Warn("discarding staged index batch from interrupted transaction", "entries", len(stale))
		err = e.db.Update(func(txn *badger.Txn) error {
			for _, k := range stale {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return opErr("open", err)
		}
	}

	e.gen = committedGen
	e.committed.Store(seg)
	return nil
}

func (e *Engine) replay(seg *segment, val []byte) error {
	if len(val) == 0 {
		return fmt.Errorf("empty op record")
	}
	switch val[0] {
	case opKindAdd:
		raw, err := s2.Decode(nil, val[1:])
		if err != nil {
			return err
		}
		var stored StoredDoc
		if err := json.Unmarshal(raw, &stored); err != nil {
			return err
		}
		seg.addDoc(analyze(e.def, e.keyword, e.text, &stored))
	case opKindDelete:
		var t struct {
			Field string `json:"field"`
			Term  string `json:"term"`
		}
		if err := json.Unmarshal(val[1:], &t); err != nil {
			return err
		}
		seg.deleteTerm(t.Field, t.Term)
	default:
		return fmt.Errorf("unknown op kind %q", val[0])
	}
	return nil
}

// Add indexes a new document for the entity.
func (e *Engine) Add(ent *entity.Entity) error {
	return e.write("add", func(w *writer) {
		stored := storedFromEntity(e.def, ent)
		w.pending = append(w.pending, pendingOp{
			kind: opKindAdd,
			doc:  analyze(e.def, e.keyword, e.text, stored),
		})
	})
}

// Update replaces any document carrying the same entity identifier, then
// indexes the entity.
func (e *Engine) Update(ent *entity.Entity) error {
	return e.write("update", func(w *writer) {
		w.pending = append(w.pending, pendingOp{
			kind:  opKindDelete,
			field: e.def.EntityField,
			term:  ent.ID(),
		})
		stored := storedFromEntity(e.def, ent)
		w.pending = append(w.pending, pendingOp{
			kind: opKindAdd,
			doc:  analyze(e.def, e.keyword, e.text, stored),
		})
	})
}

// Delete removes documents whose dedup checksum matches the explicit
// field/value pair. A no-op when no uid field is configured.
func (e *Engine) Delete(ent *entity.Entity, field, value string) error {
	if e.def.UIDField == "" {
		return nil
	}
	return e.write("delete", func(w *writer) {
		w.pending = append(w.pending, pendingOp{
			kind:  opKindDelete,
			field: e.def.UIDField,
			term:  ent.Checksum(field, value),
		})
	})
}

func (e *Engine) write(op string, fn func(*writer)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return opErr(op, ErrClosed)
	}
	if e.w.prepared {
		return opErr(op, ErrPrepared)
	}
	fn(e.w)
	return nil
}

// PrepareCommit flushes the pending batch to a durable, not yet visible
// state under the next generation. On failure the batch stays pending; the
// caller is expected to roll back.
func (e *Engine) PrepareCommit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return opErr("prepareCommit", ErrClosed)
	}
	if e.w.prepared {
		return opErr("prepareCommit", ErrPrepared)
	}

	staged := e.committed.Load().derive()
	gen := e.gen + 1

	wb := e.db.NewWriteBatch()
	defer wb.Cancel()
	for seq, op := range e.w.pending {
		val, err := encodeOp(op)
		if err != nil {
			return opErr("prepareCommit", err)
		}
		if err := wb.Set(opKey(gen, uint64(seq)), val); err != nil {
			return opErr("prepareCommit", err)
		}
		switch op.kind {
		case opKindAdd:
			staged.addDoc(op.doc)
		case opKindDelete:
			staged.deleteTerm(op.field, op.term)
		}
	}
	if err := wb.Flush(); err != nil {
		return opErr("prepareCommit", err)
	}

	e.w.prepared = true
	e.w.staged = staged
	return nil
}

// Commit makes the prepared batch visible: the committed-generation key
// advances durably and the staged snapshot is published. Must follow a
// successful PrepareCommit.
func (e *Engine) Commit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return opErr("commit", ErrClosed)
	}
	if !e.w.prepared {
		return opErr("commit", ErrNotPrepared)
	}

	gen := e.gen + 1
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], gen)
	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(metaGenKey), buf[:])
	})
	if err != nil {
		return opErr("commit", err)
	}

	e.committed.Store(e.w.staged)
	e.gen = gen
	e.w = &writer{}
	return nil
}

// Rollback discards the pending batch, removes any staged entries, and
// opens a fresh writer handle before returning. Calling it again with
// nothing pending is harmless.
func (e *Engine) Rollback() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return opErr("rollback", ErrClosed)
	}

	// Drop the next generation's staged entries unconditionally: a failed
	// prepare may have flushed part of the batch.
	err := e.db.DropPrefix([]byte(fmt.Sprintf("%s%016x:", opPrefix, e.gen+1)))
	// The old writer handle is invalid from here on; open a new one so the
	// next transaction starts clean.
	e.w = &writer{}
	return opErr("rollback", err)
}

// Close releases the engine. Safe after Commit or Rollback; a closed engine
// never reopens a handle.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.w = nil
	return opErr("close", e.db.Close())
}

// OpenReader returns a point-in-time handle over the committed snapshot.
func (e *Engine) OpenReader() (Reader, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, opErr("openReader", ErrClosed)
	}
	return &snapshotReader{seg: e.committed.Load()}, nil
}

func opKey(gen, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%016x:%016x", opPrefix, gen, seq))
}

func opKeyGen(key []byte) (uint64, error) {
	rest := bytes.TrimPrefix(key, []byte(opPrefix))
	if len(rest) < 16 {
		return 0, fmt.Errorf("malformed op key %q", key)
	}
	var gen uint64
	if _, err := fmt.Sscanf(string(rest[:16]), "%016x", &gen); err != nil {
		return 0, fmt.Errorf("malformed op key %q: %w", key, err)
	}
	return gen, nil
}

func encodeOp(op pendingOp) ([]byte, error) {
	switch op.kind {
	case opKindAdd:
		raw, err := json.Marshal(op.doc.stored)
		if err != nil {
			return nil, err
		}
		return append([]byte{opKindAdd}, s2.Encode(nil, raw)...), nil
	case opKindDelete:
		raw, err := json.Marshal(struct {
			Field string `json:"field"`
			Term  string `json:"term"`
		}{op.field, op.term})
		if err != nil {
			return nil, err
		}
		return append([]byte{opKindDelete}, raw...), nil
	default:
		return nil, fmt.Errorf("unknown op kind %q", op.kind)
	}
}
