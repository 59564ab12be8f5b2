package temporal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	jt "github.com/semantalytics/jena-temporal"
	"github.com/semantalytics/jena-temporal/pkg/config"
	"github.com/semantalytics/jena-temporal/pkg/store"
)

var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Bulk-load quads from a JSON lines file",
	Long: `Load quads from a file with one JSON object per line:

  {"graph":"","subject":"http://example/a","predicate":"http://example/p","object":"some text","lang":"en"}

Quads are stored and indexed in batched transactions.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

var loadBatchSize int

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().IntVar(&loadBatchSize, "batch-size", 1000, "Quads per transaction")
}

type quadLine struct {
	Graph     string `json:"graph"`
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Lang      string `json:"lang"`
	Datatype  string `json:"datatype"`
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ds, err := openDataset(cfg)
	if err != nil {
		return err
	}
	defer ds.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := context.Background()
	var txn *jt.Txn
	loaded, inBatch := 0, 0

	commit := func() error {
		if txn == nil {
			return nil
		}
		err := txn.Commit()
		txn = nil
		inBatch = 0
		return err
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var q quadLine
		if err := json.Unmarshal(raw, &q); err != nil {
			if txn != nil {
				txn.Abort()
			}
			return fmt.Errorf("line %d: %w", line, err)
		}

		if txn == nil {
			txn, err = ds.Begin(ctx, jt.TxnWrite)
			if err != nil {
				return err
			}
		}
		if err := txn.Add(store.Quad{
			Graph:     q.Graph,
			Subject:   q.Subject,
			Predicate: q.Predicate,
			Object:    q.Object,
			Lang:      q.Lang,
			Datatype:  q.Datatype,
		}); err != nil {
			txn.Abort()
			return fmt.Errorf("line %d: %w", line, err)
		}
		loaded++
		inBatch++

		if inBatch >= loadBatchSize {
			if err := commit(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if txn != nil {
			txn.Abort()
		}
		return err
	}
	if err := commit(); err != nil {
		return err
	}

	fmt.Printf("Loaded %d quads\n", loaded)
	return nil
}
