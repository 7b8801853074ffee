package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/RishiKendai/provenance/internal/corpus"
	"github.com/RishiKendai/provenance/internal/plagiarism"
	"github.com/spf13/cobra"
)

var entryType string

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest every .txt file in a directory",
	Long: `Segments each .txt file into sentences, embeds them and stores them in
the vector index. Corpus sentences are also added to the exact-match index.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest a directory, then re-ingest files as they change",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	for _, cmd := range []*cobra.Command{ingestCmd, watchCmd} {
		cmd.Flags().StringVar(&entryType, "type", plagiarism.EntryTypeCorpus, "entry type (corpus, ai_generated or academic_source)")
		rootCmd.AddCommand(cmd)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	components, release, err := loadComponents(ctx)
	if err != nil {
		return err
	}
	defer release()

	results, err := components.Ingestor.IngestDir(ctx, args[0], entryType)
	printIngestResults(cmd, results)
	return err
}

func printIngestResults(cmd *cobra.Command, results []*corpus.Result) {
	if len(results) == 0 {
		cmd.Println("No .txt files ingested.")
		return
	}

	total := 0
	for _, r := range results {
		cmd.Printf("  %-32s %5d entries  %5d new exact\n", r.Source, r.Entries, r.ExactInserted)
		total += r.Entries
	}
	cmd.Printf("Ingested %d entries from %d files.\n", total, len(results))
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, release, err := loadComponents(ctx)
	if err != nil {
		return err
	}
	defer release()

	results, err := components.Ingestor.IngestDir(ctx, args[0], entryType)
	if err != nil {
		return err
	}
	printIngestResults(cmd, results)

	watcher, err := corpus.NewWatcher(components.Ingestor, entryType)
	if err != nil {
		return err
	}
	defer watcher.Close()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	return watcher.Run(ctx, args[0])
}
