package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/semantalytics/jena-temporal/pkg/entity"
	"github.com/semantalytics/jena-temporal/pkg/index"
	"github.com/semantalytics/jena-temporal/pkg/producer"
	"github.com/semantalytics/jena-temporal/pkg/query"
	"github.com/semantalytics/jena-temporal/pkg/store"
)

type commitStrategy int

const (
	// nonDelegated sequences the index commit with the store commit
	// under the dataset's own exit lock.
	nonDelegated commitStrategy = iota
	// delegated registers the index as a participant in the store's
	// transaction coordinator, which drives prepare, commit and abort.
	delegated
)

// Options configures a Dataset.
type Options struct {
	// Store is the host quad store. Required.
	Store store.Store
	// Index is the secondary search index. Required.
	Index index.Index
	// Definition maps predicates to index fields. Required.
	Definition *entity.Definition
	// Logger receives structured logs. Nil means slog.Default().
	Logger *slog.Logger
	// CloseIndex closes the index when the dataset is closed.
	CloseIndex bool
}

// Dataset couples a quad store with a full-text index so that both commit
// and abort together. A Dataset is safe for concurrent use; the store
// serializes write transactions.
type Dataset struct {
	store    store.Store
	index    index.Index
	def      *entity.Definition
	producer *producer.Producer
	queries  *query.Engine
	log      *slog.Logger

	strategy   commitStrategy
	closeIndex bool

	// txnExitLock guards the commit/abort critical section of a write
	// transaction in non-delegated mode. It is held only for the
	// duration of that section and is always acquired after the store's
	// writer lock. Holding it across the whole transaction instead
	// would invert that order against a concurrent writer blocked in
	// Begin and deadlock.
	txnExitLock sync.Mutex

	mu     sync.Mutex
	closed bool
}

// New builds a Dataset over a store and an index. Stores implementing
// store.Coordinated get the index registered as a commit participant;
// every other store gets the dataset's own commit sequencing. The strategy
// is fixed here and never changes for the dataset's lifetime.
func New(opts Options) (*Dataset, error) {
	if opts.Store == nil {
		return nil, errors.New("temporal: no store")
	}
	if opts.Index == nil {
		return nil, errors.New("temporal: no index")
	}
	if opts.Definition == nil {
		return nil, errors.New("temporal: no entity definition")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	ds := &Dataset{
		store:      opts.Store,
		index:      opts.Index,
		def:        opts.Definition,
		producer:   producer.New(opts.Definition, opts.Index, log),
		queries:    query.New(opts.Definition, opts.Index, log),
		log:        log,
		closeIndex: opts.CloseIndex,
	}

	if c, ok := opts.Store.(store.Coordinated); ok {
		id := store.ComponentID("temporal-index-" + uuid.NewString())
		if err := c.Register(id, &indexParticipant{idx: opts.Index}); err != nil {
			return nil, fmt.Errorf("temporal: register index participant: %w", err)
		}
		ds.strategy = delegated
		log.Debug("index coordination delegated to store", "component", string(id))
	} else {
		ds.strategy = nonDelegated
	}
	return ds, nil
}

// Begin starts a transaction of the given type and returns its handle.
// The promotable read types are not supported and yield an
// *UnsupportedTxnTypeError. Begin of a write transaction blocks until the
// store's writer lock is available.
func (ds *Dataset) Begin(ctx context.Context, typ TxnType) (*Txn, error) {
	if typ == TxnReadPromote || typ == TxnReadCommittedPromote {
		return nil, &UnsupportedTxnTypeError{Type: typ}
	}
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return nil, ErrClosed
	}
	ds.mu.Unlock()

	rw := typ.readWrite()
	storeTxn, err := ds.store.Begin(ctx, rw)
	if err != nil {
		return nil, fmt.Errorf("temporal: begin %s: %w", typ, err)
	}
	if rw == store.Write {
		ds.producer.Start()
	}
	return &Txn{ds: ds, typ: typ, mode: rw, storeTxn: storeTxn}, nil
}

// commitWrite runs the non-delegated write commit: index prepare, then
// store commit, then index commit, all under the exit lock. A failure in
// any step aborts both sides; a failure after the store commit cannot be
// undone and is surfaced as fatal.
func (ds *Dataset) commitWrite(t *Txn) error {
	ds.txnExitLock.Lock()
	defer ds.txnExitLock.Unlock()

	if err := ds.index.PrepareCommit(); err != nil {
		ds.log.Error("index prepare failed", "error", err)
		t.abortBothLocked()
		return err
	}
	// Commit finishes the store transaction's changes but keeps writer
	// exclusivity; the next writer can begin only once the index side of
	// the exit is done and the transaction is ended.
	if err := t.storeTxn.Commit(); err != nil {
		ds.log.Error("store commit failed", "error", err)
		t.abortBothLocked()
		return fmt.Errorf("temporal: store commit: %w", err)
	}
	if err := ds.index.Commit(); err != nil {
		// The store is already committed; the pair is no longer
		// atomic beyond this point.
		ds.log.Error("index commit failed after store commit", "error", err)
		t.abortBothLocked()
		return err
	}
	t.endStore()
	return nil
}

// Search runs a query against the last committed index state. It needs no
// surrounding transaction and never observes uncommitted writes.
func (ds *Dataset) Search(req query.Request) ([]query.Hit, error) {
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return nil, ErrClosed
	}
	ds.mu.Unlock()
	return ds.queries.Search(req)
}

// SearchText searches the primary field for free text, escaping any query
// metacharacters first.
func (ds *Dataset) SearchText(text string, limit int) ([]query.Hit, error) {
	return ds.Search(query.Request{Text: query.Escape(text), Limit: limit})
}

// Definition returns the entity definition the dataset was built with.
func (ds *Dataset) Definition() *entity.Definition { return ds.def }

// Close releases the store and, if configured, the index. Close is
// idempotent; transactions must be finished first.
func (ds *Dataset) Close() error {
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return nil
	}
	ds.closed = true
	ds.mu.Unlock()

	var errs []error
	if err := ds.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if ds.closeIndex {
		if err := ds.index.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
