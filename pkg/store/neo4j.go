package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sony/gobreaker"
)

// Neo4jStore adapts a remote Neo4j database to the Store boundary using
// explicit transactions. Neo4j exposes no external-participant hook, so a
// facade over it runs in non-delegated mode. Remote calls go through a
// circuit breaker so a struggling server fails fast instead of piling up
// transactions.
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
	cb       *gobreaker.CircuitBreaker

	// writeMu keeps the single-writer contract that the in-process stores
	// get from their own locks.
	writeMu sync.Mutex
}

var _ Store = (*Neo4jStore)(nil)

// NewNeo4jStore connects to a Neo4j server.
func NewNeo4jStore(uri, username, password, database string) (*Neo4jStore, error) {
	client, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if database == "" {
		database = "neo4j"
	}

	st := gobreaker.Settings{
		Name:     "neo4j-store",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	}

	return &Neo4jStore{
		client:   client,
		database: database,
		cb:       gobreaker.NewCircuitBreaker(st),
	}, nil
}

func (s *Neo4jStore) Begin(ctx context.Context, rw ReadWrite) (Txn, error) {
	if rw == Write {
		s.writeMu.Lock()
	}
	mode := neo4j.AccessModeRead
	if rw == Write {
		mode = neo4j.AccessModeWrite
	}
	session := s.client.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   mode,
	})
	res, err := s.cb.Execute(func() (any, error) {
		return session.BeginTransaction(ctx)
	})
	if err != nil {
		_ = session.Close(ctx)
		if rw == Write {
			s.writeMu.Unlock()
		}
		return nil, fmt.Errorf("failed to begin neo4j transaction: %w", err)
	}
	return &neo4jTxn{
		store:   s,
		ctx:     ctx,
		session: session,
		tx:      res.(neo4j.ExplicitTransaction),
		rw:      rw,
	}, nil
}

func (s *Neo4jStore) Close() error {
	return s.client.Close(context.Background())
}

type neo4jTxn struct {
	store   *Neo4jStore
	ctx     context.Context
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	rw      ReadWrite

	finished bool // Commit or Abort ran
	ended    bool // End ran, session closed, writer lock released
}

func quadParams(q Quad) map[string]any {
	return map[string]any{
		"graph":     q.Graph,
		"subject":   q.Subject,
		"predicate": q.Predicate,
		"object":    q.Object,
		"lang":      q.Lang,
		"datatype":  q.Datatype,
	}
}

func (t *neo4jTxn) run(query string, params map[string]any) (neo4j.ResultWithContext, error) {
	res, err := t.store.cb.Execute(func() (any, error) {
		return t.tx.Run(t.ctx, query, params)
	})
	if err != nil {
		return nil, err
	}
	return res.(neo4j.ResultWithContext), nil
}

func (t *neo4jTxn) Add(q Quad) error {
	if t.finished {
		return ErrTxnDone
	}
	if t.rw != Write {
		return ErrReadOnly
	}
	_, err := t.run(`
		MERGE (q:Quad {graph: $graph, subject: $subject, predicate: $predicate,
		               object: $object, lang: $lang, datatype: $datatype})
	`, quadParams(q))
	return err
}

func (t *neo4jTxn) Delete(q Quad) error {
	if t.finished {
		return ErrTxnDone
	}
	if t.rw != Write {
		return ErrReadOnly
	}
	_, err := t.run(`
		MATCH (q:Quad {graph: $graph, subject: $subject, predicate: $predicate,
		               object: $object, lang: $lang, datatype: $datatype})
		DELETE q
	`, quadParams(q))
	return err
}

func (t *neo4jTxn) Find(graph, subject, predicate string) ([]Quad, error) {
	if t.finished {
		return nil, ErrTxnDone
	}
	res, err := t.run(`
		MATCH (q:Quad)
		WHERE ($graph = '' OR q.graph = $graph)
		  AND ($subject = '' OR q.subject = $subject)
		  AND ($predicate = '' OR q.predicate = $predicate)
		RETURN q.graph AS graph, q.subject AS subject, q.predicate AS predicate,
		       q.object AS object, q.lang AS lang, q.datatype AS datatype
	`, map[string]any{"graph": graph, "subject": subject, "predicate": predicate})
	if err != nil {
		return nil, err
	}

	var out []Quad
	for res.Next(t.ctx) {
		rec := res.Record()
		q := Quad{}
		if v, ok := rec.Get("graph"); ok {
			q.Graph, _ = v.(string)
		}
		if v, ok := rec.Get("subject"); ok {
			q.Subject, _ = v.(string)
		}
		if v, ok := rec.Get("predicate"); ok {
			q.Predicate, _ = v.(string)
		}
		if v, ok := rec.Get("object"); ok {
			q.Object, _ = v.(string)
		}
		if v, ok := rec.Get("lang"); ok {
			q.Lang, _ = v.(string)
		}
		if v, ok := rec.Get("datatype"); ok {
			q.Datatype, _ = v.(string)
		}
		out = append(out, q)
	}
	return out, res.Err()
}

func (t *neo4jTxn) Commit() error {
	if t.finished {
		return ErrTxnDone
	}
	t.finished = true
	return t.tx.Commit(t.ctx)
}

func (t *neo4jTxn) Abort() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return t.tx.Rollback(t.ctx)
}

// End rolls back an unfinished transaction, closes the session and releases
// writer exclusivity. A second writer can begin only after End.
func (t *neo4jTxn) End() error {
	if !t.finished {
		t.finished = true
		_ = t.tx.Rollback(t.ctx)
	}
	if t.ended {
		return nil
	}
	t.ended = true
	_ = t.session.Close(t.ctx)
	if t.rw == Write {
		t.store.writeMu.Unlock()
	}
	return nil
}
