package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/coworker/internal/connectors/filesystem"
)

var watchTenant string

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep a directory ingested",
	Long: `Ingests every file under a directory, then follows changes: new and
modified files are re-ingested and removed files are deleted. Document ids
are paths relative to the directory. Hidden files are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchTenant, "tenant", "t", "", "tenant (company) id")
	_ = watchCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errIngestionNotConfigured
	}
	watcher := filesystem.New(args[0], watchTenant, ingestionService)
	defer watcher.Close()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	return ignoreCanceled(watcher.Run(cmd.Context()))
}
