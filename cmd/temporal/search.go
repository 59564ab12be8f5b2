package temporal

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/semantalytics/jena-temporal/pkg/config"
	"github.com/semantalytics/jena-temporal/pkg/query"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the index",
	Long: `Search the index with a Lucene-style query string and print the hits
as JSON. Use --escape for free text that should not be interpreted as
query syntax.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var (
	searchPredicate string
	searchGraph     string
	searchLang      string
	searchLimit     int
	searchHighlight string
	searchEscape    bool
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchPredicate, "predicate", "", "Predicate URI selecting the field to search")
	searchCmd.Flags().StringVar(&searchGraph, "graph", "", "Graph URI to scope the search to")
	searchCmd.Flags().StringVar(&searchLang, "lang", "", "Language tag filter (\"none\" for untagged values)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum number of hits (0 = default cap)")
	searchCmd.Flags().StringVar(&searchHighlight, "highlight", "", "Highlight option string (e.g. \"s:<<|e:>>\")")
	searchCmd.Flags().BoolVar(&searchEscape, "escape", false, "Escape query metacharacters in the query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ds, err := openDataset(cfg)
	if err != nil {
		return err
	}
	defer ds.Close()

	text := args[0]
	if searchEscape {
		text = query.Escape(text)
	}
	hits, err := ds.Search(query.Request{
		Text:      text,
		Predicate: searchPredicate,
		GraphURI:  searchGraph,
		Lang:      searchLang,
		Limit:     searchLimit,
		Highlight: searchHighlight,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(hits)
}
