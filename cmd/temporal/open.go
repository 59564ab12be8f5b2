package temporal

import (
	"fmt"

	jt "github.com/semantalytics/jena-temporal"
	"github.com/semantalytics/jena-temporal/pkg/config"
	"github.com/semantalytics/jena-temporal/pkg/index"
	"github.com/semantalytics/jena-temporal/pkg/store"
)

// openDataset builds the store, the index and the dataset described by the
// configuration. The returned dataset owns both and closes them.
func openDataset(cfg *config.Config) (*jt.Dataset, error) {
	log := newLogger(cfg.Log.Level, cfg.Log.Format)

	def, err := cfg.Definition()
	if err != nil {
		return nil, err
	}

	var st store.Store
	switch cfg.Store.Driver {
	case "mem":
		st = store.NewMemStore(log)
	case "badger":
		st, err = store.OpenBadgerStore(store.BadgerOptions{Dir: cfg.Store.Path})
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
	case "neo4j":
		st, err = store.NewNeo4jStore(cfg.Store.URI, cfg.Store.Username, cfg.Store.Password, cfg.Store.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	idx, err := index.Open(index.Options{
		Dir:        cfg.Index.Path,
		InMemory:   cfg.Index.InMemory,
		Definition: def,
		Logger:     log,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	ds, err := jt.New(jt.Options{
		Store:      st,
		Index:      idx,
		Definition: def,
		Logger:     log,
		CloseIndex: true,
	})
	if err != nil {
		idx.Close()
		st.Close()
		return nil, err
	}
	return ds, nil
}
