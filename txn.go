package temporal

import (
	"fmt"

	"github.com/semantalytics/jena-temporal/pkg/store"
)

// TxnType is the kind of transaction requested from Begin.
type TxnType int

const (
	// TxnRead is a read transaction.
	TxnRead TxnType = iota
	// TxnWrite is a write transaction.
	TxnWrite
	// TxnReadPromote is a read transaction promotable to write. Not
	// supported by Dataset.
	TxnReadPromote
	// TxnReadCommittedPromote is a read transaction promotable to write
	// with read-committed semantics. Not supported by Dataset.
	TxnReadCommittedPromote
)

func (t TxnType) String() string {
	switch t {
	case TxnRead:
		return "read"
	case TxnWrite:
		return "write"
	case TxnReadPromote:
		return "read-promote"
	case TxnReadCommittedPromote:
		return "read-committed-promote"
	default:
		return fmt.Sprintf("TxnType(%d)", int(t))
	}
}

func (t TxnType) readWrite() store.ReadWrite {
	if t == TxnWrite {
		return store.Write
	}
	return store.Read
}

// Txn is a handle on one dataset transaction. All transactional operations
// go through the handle; a Txn is used by a single goroutine.
//
// Every Txn must be finished with Commit, Abort or End. End after Commit or
// Abort is harmless.
type Txn struct {
	ds       *Dataset
	typ      TxnType
	mode     store.ReadWrite
	storeTxn store.Txn
	done     bool
}

// Type returns the transaction type the handle was begun with.
func (t *Txn) Type() TxnType { return t.typ }

// Active reports whether the transaction has not yet finished.
func (t *Txn) Active() bool { return !t.done }

// Add stores a quad and, when its predicate is mapped in the entity
// definition, indexes its object literal. An index failure is returned to
// the caller, who should abort the transaction.
func (t *Txn) Add(q store.Quad) error {
	if t.done {
		return ErrNoTransaction
	}
	if err := t.storeTxn.Add(q); err != nil {
		return err
	}
	return t.ds.producer.QuadAdded(q)
}

// Delete removes a quad and the index document derived from it, if any.
func (t *Txn) Delete(q store.Quad) error {
	if t.done {
		return ErrNoTransaction
	}
	if err := t.storeTxn.Delete(q); err != nil {
		return err
	}
	return t.ds.producer.QuadDeleted(q)
}

// Find queries the store by graph, subject and predicate; empty arguments
// are wildcards. Within a write transaction its own uncommitted adds are
// visible.
func (t *Txn) Find(graph, subject, predicate string) ([]store.Quad, error) {
	if t.done {
		return nil, ErrNoTransaction
	}
	return t.storeTxn.Find(graph, subject, predicate)
}

// Commit makes the transaction's changes durable in both the store and the
// index. On any failure the transaction is aborted on both sides and the
// error returned; the handle is finished on every path.
func (t *Txn) Commit() error {
	if t.done {
		return ErrNoTransaction
	}
	if t.mode == store.Write {
		t.ds.producer.Finish()
	}

	var err error
	switch {
	case t.ds.strategy == delegated:
		// The store's coordinator drives the index participant.
		err = t.storeTxn.Commit()
		t.endStore()
	case t.mode == store.Write:
		err = t.ds.commitWrite(t)
	default:
		err = t.storeTxn.Commit()
		t.endStore()
	}
	t.finish()
	return err
}

// Abort discards the transaction's changes on both sides. Abort never
// fails; secondary errors on the abort path are logged and discarded.
func (t *Txn) Abort() {
	if t.done {
		return
	}
	if t.mode == store.Write {
		t.ds.producer.Finish()
	}

	switch {
	case t.ds.strategy == delegated:
		// The coordinator aborts the index participant.
		if err := t.storeTxn.Abort(); err != nil {
			t.ds.log.Warn("store abort failed", "error", err)
		}
		t.endStore()
	case t.mode == store.Write:
		t.ds.txnExitLock.Lock()
		t.abortBothLocked()
		t.ds.txnExitLock.Unlock()
	default:
		if err := t.storeTxn.Abort(); err != nil {
			t.ds.log.Warn("store abort failed", "error", err)
		}
		t.endStore()
	}
	t.finish()
}

// End releases the transaction. A write transaction that was neither
// committed nor aborted is an abandoned write and is aborted here.
func (t *Txn) End() {
	if t.done {
		return
	}
	if t.mode == store.Write {
		t.ds.log.Warn("write transaction ended without commit or abort")
		t.Abort()
		return
	}
	if err := t.storeTxn.End(); err != nil {
		t.ds.log.Warn("store end failed", "error", err)
	}
	t.finish()
}

// abortBothLocked aborts the store transaction and rolls the index back,
// then releases the store's writer exclusivity. The store must stay locked
// until the index rollback completes: a second writer beginning earlier
// could buffer index writes that the rollback would wipe. Callers hold the
// dataset exit lock. Errors are logged; the abort path never raises.
func (t *Txn) abortBothLocked() {
	if err := t.storeTxn.Abort(); err != nil {
		t.ds.log.Warn("store abort failed", "error", err)
	}
	if err := t.ds.index.Rollback(); err != nil {
		t.ds.log.Warn("index rollback failed", "error", err)
	}
	t.endStore()
}

// endStore releases the store transaction, and with it write exclusivity.
func (t *Txn) endStore() {
	if err := t.storeTxn.End(); err != nil {
		t.ds.log.Warn("store end failed", "error", err)
	}
}

func (t *Txn) finish() {
	t.done = true
}
