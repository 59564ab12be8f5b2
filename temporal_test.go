package temporal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semantalytics/jena-temporal/pkg/entity"
	"github.com/semantalytics/jena-temporal/pkg/index"
	"github.com/semantalytics/jena-temporal/pkg/query"
	"github.com/semantalytics/jena-temporal/pkg/store"
)

const labelPredicate = "http://example/label"

func testDefinition() *entity.Definition {
	def := entity.NewDefinition("uri", "text")
	def.GraphField = "graph"
	def.LangField = "lang"
	def.UIDField = "uid"
	def.Map(labelPredicate, "text")
	return def
}

func newDataset(t *testing.T, st store.Store) *Dataset {
	t.Helper()
	def := testDefinition()
	idx, err := index.Open(index.Options{InMemory: true, Definition: def})
	require.NoError(t, err)

	ds, err := New(Options{
		Store:      st,
		Index:      idx,
		Definition: def,
		CloseIndex: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })
	return ds
}

// eachStrategy runs a test against both coordination strategies: the badger
// store has no coordinator (non-delegated), the in-memory store has one
// (delegated).
func eachStrategy(t *testing.T, fn func(t *testing.T, ds *Dataset)) {
	t.Run("nonDelegated", func(t *testing.T) {
		st, err := store.OpenBadgerStore(store.BadgerOptions{InMemory: true})
		require.NoError(t, err)
		fn(t, newDataset(t, st))
	})
	t.Run("delegated", func(t *testing.T) {
		fn(t, newDataset(t, store.NewMemStore(nil)))
	})
}

func labelQuad(subject, text string) store.Quad {
	return store.Quad{
		Subject:   subject,
		Predicate: labelPredicate,
		Object:    text,
	}
}

func searchSubjects(t *testing.T, ds *Dataset, text string) []string {
	t.Helper()
	hits, err := ds.Search(query.Request{Text: text})
	require.NoError(t, err)
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Subject)
	}
	return out
}

func TestCommitMakesBothVisible(t *testing.T) {
	eachStrategy(t, func(t *testing.T, ds *Dataset) {
		ctx := context.Background()

		txn, err := ds.Begin(ctx, TxnWrite)
		require.NoError(t, err)
		require.NoError(t, txn.Add(labelQuad("http://example/s", "hello world")))

		// Not searchable until the transaction commits.
		assert.Empty(t, searchSubjects(t, ds, "hello"))

		require.NoError(t, txn.Commit())
		assert.False(t, txn.Active())
		assert.Equal(t, []string{"http://example/s"}, searchSubjects(t, ds, "hello"))

		read, err := ds.Begin(ctx, TxnRead)
		require.NoError(t, err)
		quads, err := read.Find("", "http://example/s", "")
		require.NoError(t, err)
		assert.Len(t, quads, 1)
		read.End()
	})
}

func TestAbortDiscardsBoth(t *testing.T) {
	eachStrategy(t, func(t *testing.T, ds *Dataset) {
		ctx := context.Background()

		txn, err := ds.Begin(ctx, TxnWrite)
		require.NoError(t, err)
		require.NoError(t, txn.Add(labelQuad("http://example/s", "doomed")))
		txn.Abort()

		assert.Empty(t, searchSubjects(t, ds, "doomed"))

		read, err := ds.Begin(ctx, TxnRead)
		require.NoError(t, err)
		quads, err := read.Find("", "", "")
		require.NoError(t, err)
		assert.Empty(t, quads)
		read.End()

		// The dataset stays usable after an abort.
		txn, err = ds.Begin(ctx, TxnWrite)
		require.NoError(t, err)
		require.NoError(t, txn.Add(labelQuad("http://example/t", "kept")))
		require.NoError(t, txn.Commit())
		assert.Equal(t, []string{"http://example/t"}, searchSubjects(t, ds, "kept"))
	})
}

func TestEndWithoutCommitAborts(t *testing.T) {
	eachStrategy(t, func(t *testing.T, ds *Dataset) {
		txn, err := ds.Begin(context.Background(), TxnWrite)
		require.NoError(t, err)
		require.NoError(t, txn.Add(labelQuad("http://example/s", "abandoned")))
		txn.End()

		assert.False(t, txn.Active())
		assert.Empty(t, searchSubjects(t, ds, "abandoned"))
	})
}

func TestDeleteRemovesFromIndex(t *testing.T) {
	eachStrategy(t, func(t *testing.T, ds *Dataset) {
		ctx := context.Background()
		q := labelQuad("http://example/s", "transient")

		txn, err := ds.Begin(ctx, TxnWrite)
		require.NoError(t, err)
		require.NoError(t, txn.Add(q))
		require.NoError(t, txn.Commit())
		assert.Len(t, searchSubjects(t, ds, "transient"), 1)

		txn, err = ds.Begin(ctx, TxnWrite)
		require.NoError(t, err)
		require.NoError(t, txn.Delete(q))
		require.NoError(t, txn.Commit())
		assert.Empty(t, searchSubjects(t, ds, "transient"))
	})
}

func TestPromoteTypesRejected(t *testing.T) {
	st := store.NewMemStore(nil)
	ds := newDataset(t, st)

	for _, typ := range []TxnType{TxnReadPromote, TxnReadCommittedPromote} {
		_, err := ds.Begin(context.Background(), typ)
		require.Error(t, err)
		var unsupported *UnsupportedTxnTypeError
		require.True(t, errors.As(err, &unsupported))
		assert.Equal(t, typ, unsupported.Type)
	}
}

func TestFinishedHandle(t *testing.T) {
	ds := newDataset(t, store.NewMemStore(nil))

	txn, err := ds.Begin(context.Background(), TxnWrite)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	assert.ErrorIs(t, txn.Add(labelQuad("http://example/s", "late")), ErrNoTransaction)
	assert.ErrorIs(t, txn.Commit(), ErrNoTransaction)
	_, err = txn.Find("", "", "")
	assert.ErrorIs(t, err, ErrNoTransaction)

	// Abort and End after the fact are harmless.
	txn.Abort()
	txn.End()
}

func TestMalformedQuery(t *testing.T) {
	ds := newDataset(t, store.NewMemStore(nil))

	_, err := ds.Search(query.Request{Text: "[[malformed"})
	require.Error(t, err)
	var perr *query.ParseError
	require.True(t, errors.As(err, &perr))

	// SearchText escapes first, so the same input is just text.
	hits, err := ds.SearchText("[[malformed", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchLangScoped(t *testing.T) {
	ds := newDataset(t, store.NewMemStore(nil))
	ctx := context.Background()

	txn, err := ds.Begin(ctx, TxnWrite)
	require.NoError(t, err)
	en := labelQuad("http://example/en", "gift")
	en.Lang = "en"
	de := labelQuad("http://example/de", "gift")
	de.Lang = "de"
	require.NoError(t, txn.Add(en))
	require.NoError(t, txn.Add(de))
	require.NoError(t, txn.Commit())

	hits, err := ds.Search(query.Request{Text: "gift", Lang: "en"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "http://example/en", hits[0].Subject)
	assert.Equal(t, "en", hits[0].Literal.Lang)

	hits, err = ds.Search(query.Request{Text: "gift", Lang: "de"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "http://example/de", hits[0].Subject)
}

// gatedIndex blocks inside Commit and Rollback until the gate is released,
// holding a transaction's exit critical section open.
type gatedIndex struct {
	index.Index
	gate chan struct{}
}

func (g *gatedIndex) Commit() error {
	<-g.gate
	return g.Index.Commit()
}

func (g *gatedIndex) Rollback() error {
	<-g.gate
	return g.Index.Rollback()
}

func newGatedDataset(t *testing.T) (*Dataset, chan struct{}) {
	t.Helper()
	def := testDefinition()
	idx, err := index.Open(index.Options{InMemory: true, Definition: def})
	require.NoError(t, err)
	gate := make(chan struct{})
	st, err := store.OpenBadgerStore(store.BadgerOptions{InMemory: true})
	require.NoError(t, err)

	ds, err := New(Options{
		Store:      st,
		Index:      &gatedIndex{Index: idx, gate: gate},
		Definition: def,
		CloseIndex: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })
	return ds, gate
}

// TestWriterExcludedDuringCommit holds the first transaction's index commit
// open and checks that a second write transaction cannot begin until the
// whole exit completes. Beginning earlier, the second writer's adds would
// hit the still-prepared index writer and fail on valid input.
func TestWriterExcludedDuringCommit(t *testing.T) {
	ds, gate := newGatedDataset(t)
	ctx := context.Background()

	first, err := ds.Begin(ctx, TxnWrite)
	require.NoError(t, err)
	require.NoError(t, first.Add(labelQuad("http://example/a", "first")))

	firstDone := make(chan error, 1)
	go func() { firstDone <- first.Commit() }()

	secondBegun := make(chan struct{})
	secondDone := make(chan error, 1)
	go func() {
		second, err := ds.Begin(ctx, TxnWrite)
		close(secondBegun)
		if err != nil {
			secondDone <- err
			return
		}
		if err := second.Add(labelQuad("http://example/b", "second")); err != nil {
			second.Abort()
			secondDone <- err
			return
		}
		secondDone <- second.Commit()
	}()

	select {
	case <-secondBegun:
		t.Fatal("second writer began during the first writer's commit")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	require.NoError(t, <-firstDone)
	select {
	case <-secondBegun:
	case <-time.After(5 * time.Second):
		t.Fatal("second writer never began after the first writer's commit")
	}
	require.NoError(t, <-secondDone)

	assert.ElementsMatch(t, []string{"http://example/a"}, searchSubjects(t, ds, "first"))
	assert.ElementsMatch(t, []string{"http://example/b"}, searchSubjects(t, ds, "second"))
}

// TestWriterExcludedDuringAbort holds the first transaction's index rollback
// open; a second writer beginning inside that window would have its buffered
// adds wiped by the rollback and committed with nothing indexed.
func TestWriterExcludedDuringAbort(t *testing.T) {
	ds, gate := newGatedDataset(t)
	ctx := context.Background()

	first, err := ds.Begin(ctx, TxnWrite)
	require.NoError(t, err)
	require.NoError(t, first.Add(labelQuad("http://example/a", "doomed")))

	firstDone := make(chan struct{})
	go func() {
		first.Abort()
		close(firstDone)
	}()

	secondBegun := make(chan struct{})
	secondDone := make(chan error, 1)
	go func() {
		second, err := ds.Begin(ctx, TxnWrite)
		close(secondBegun)
		if err != nil {
			secondDone <- err
			return
		}
		if err := second.Add(labelQuad("http://example/b", "survivor")); err != nil {
			second.Abort()
			secondDone <- err
			return
		}
		secondDone <- second.Commit()
	}()

	select {
	case <-secondBegun:
		t.Fatal("second writer began during the first writer's abort")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	<-firstDone
	require.NoError(t, <-secondDone)

	assert.Empty(t, searchSubjects(t, ds, "doomed"))
	assert.ElementsMatch(t, []string{"http://example/b"}, searchSubjects(t, ds, "survivor"))
}

// TestConcurrentWriters drives many write transactions while readers search,
// against both strategies. A lock-order inversion between the store's writer
// lock and the commit critical section would deadlock here.
func TestConcurrentWriters(t *testing.T) {
	eachStrategy(t, func(t *testing.T, ds *Dataset) {
		const writers = 8
		const perWriter = 10

		done := make(chan struct{})
		go func() {
			defer close(done)
			var wg sync.WaitGroup
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						subject := fmt.Sprintf("http://example/s-%d-%d", w, i)
						txn, err := ds.Begin(context.Background(), TxnWrite)
						if err != nil {
							t.Error(err)
							return
						}
						if err := txn.Add(labelQuad(subject, "concurrent")); err != nil {
							t.Error(err)
							txn.Abort()
							return
						}
						if i%3 == 0 {
							txn.Abort()
							continue
						}
						if err := txn.Commit(); err != nil {
							t.Error(err)
							return
						}
					}
				}(w)
			}
			// Readers run alongside the writers.
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					if _, err := ds.Search(query.Request{Text: "concurrent"}); err != nil {
						t.Error(err)
						return
					}
				}
			}()
			wg.Wait()
		}()

		select {
		case <-done:
		case <-time.After(30 * time.Second):
			t.Fatal("transactions deadlocked")
		}

		// Every committed write is searchable, every aborted one is not.
		want := 0
		for i := 0; i < perWriter; i++ {
			if i%3 != 0 {
				want += writers
			}
		}
		assert.Len(t, searchSubjects(t, ds, "concurrent"), want)
	})
}
