package temporal

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semantalytics/jena-temporal/pkg/config"
	"github.com/semantalytics/jena-temporal/pkg/export"
	"github.com/semantalytics/jena-temporal/pkg/index"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Export the committed index state to Parquet",
	Long: `Dump every live document of the last committed index state to Parquet
part files under the export directory.`,
	RunE: runDump,
}

var dumpDir string

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVar(&dumpDir, "out", "", "Output directory (default from config)")
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := newLogger(cfg.Log.Level, cfg.Log.Format)

	def, err := cfg.Definition()
	if err != nil {
		return err
	}

	idx, err := index.Open(index.Options{
		Dir:        cfg.Index.Path,
		Definition: def,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer idx.Close()

	dir := dumpDir
	if dir == "" {
		dir = cfg.Export.Path
	}
	exp, err := export.NewExporter(dir, log)
	if err != nil {
		return err
	}

	n, err := exp.Export(context.Background(), idx)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d documents to %s\n", n, dir)
	return nil
}
