// Package export dumps the committed index state to Parquet files.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/sync/errgroup"

	"github.com/semantalytics/jena-temporal/pkg/index"
)

// defaultBatchSize is the number of documents per Parquet part file.
const defaultBatchSize = 10000

// Record is the Parquet schema for one indexed document.
type Record struct {
	Entity string `parquet:"entity"`
	Graph  string `parquet:"graph"`
	Lang   string `parquet:"lang"`
	Values string `parquet:"values"` // JSON string
	UIDs   string `parquet:"uids"`   // JSON string
}

// ReaderOpener opens point-in-time read handles over the committed index
// state.
type ReaderOpener interface {
	OpenReader() (index.Reader, error)
}

// Exporter writes snapshot dumps of an index into a directory.
type Exporter struct {
	baseDir   string
	batchSize int
	log       *slog.Logger

	mu      sync.Mutex
	part    int
	written int
}

// NewExporter creates an exporter writing under baseDir, which is created
// if missing. A nil logger means slog.Default().
func NewExporter(baseDir string, logger *slog.Logger) (*Exporter, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{baseDir: baseDir, batchSize: defaultBatchSize, log: logger}, nil
}

// Export dumps every live document of the last committed index state and
// returns the number of documents written. Part files are written
// concurrently; the dump observes a single point-in-time snapshot.
func (e *Exporter) Export(ctx context.Context, idx ReaderOpener) (int, error) {
	r, err := idx.OpenReader()
	if err != nil {
		return 0, err
	}
	defer r.Close()

	stamp := time.Now().Format("20060102_150405")
	batches := make(chan []Record)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(batches)
		batch := make([]Record, 0, e.batchSize)
		it := r.Live().Iterator()
		for it.HasNext() {
			doc := it.Next()
			stored, ok := r.Stored(doc)
			if !ok {
				continue
			}
			rec, err := recordFrom(stored)
			if err != nil {
				return err
			}
			batch = append(batch, rec)
			if len(batch) == e.batchSize {
				select {
				case batches <- batch:
				case <-ctx.Done():
					return ctx.Err()
				}
				batch = make([]Record, 0, e.batchSize)
			}
		}
		if len(batch) > 0 {
			select {
			case batches <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	e.mu.Lock()
	e.part, e.written = 0, 0
	e.mu.Unlock()
	for w := 0; w < 4; w++ {
		g.Go(func() error {
			for batch := range batches {
				e.mu.Lock()
				n := e.part
				e.part++
				e.written += len(batch)
				e.mu.Unlock()
				path := filepath.Join(e.baseDir, fmt.Sprintf("documents_%s_part%03d.parquet", stamp, n))
				if err := parquet.WriteFile(path, batch); err != nil {
					return fmt.Errorf("failed to write parquet file: %w", err)
				}
				e.log.Debug("wrote export part", "path", path, "documents", len(batch))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.written, nil
}

func recordFrom(stored *index.StoredDoc) (Record, error) {
	values, err := json.Marshal(stored.Values)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal values: %w", err)
	}
	uids, err := json.Marshal(stored.UIDs)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal uids: %w", err)
	}
	return Record{
		Entity: stored.Entity,
		Graph:  stored.Graph,
		Lang:   stored.Lang,
		Values: string(values),
		UIDs:   string(uids),
	}, nil
}
