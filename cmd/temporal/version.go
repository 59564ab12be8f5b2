package temporal

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/semantalytics/jena-temporal/pkg/server/handlers"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("temporal %s (commit %s, %s)\n", handlers.Version, handlers.GitCommit, runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
