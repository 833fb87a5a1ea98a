package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"campfire/internal/model"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [docs-dir]",
	Short: "Index a directory of guideline documents into the corpus",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		exitWith(ExitConfigInvalid, "ERROR: "+err.Error())
	}
	defer a.Close()

	docsDir := a.cfg.Corpus.DocsDir
	if len(args) == 1 {
		docsDir = args[0]
	}
	if docsDir == "" {
		exitWith(ExitConfigInvalid, "ERROR: CONFIG_INVALID: no docs directory; pass one or set corpus.docs_dir")
	}

	ctx := cmd.Context()
	if err := a.openCorpus(ctx); err != nil {
		exitWith(ExitCorpusUnavailable, "ERROR: "+err.Error())
	}

	result, err := a.store.IngestDir(ctx, docsDir, a.logger)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", docsDir, err)
	}

	stats, err := a.store.Stats(ctx)
	if err != nil {
		stats = model.CorpusStats{}
	}

	s := newStyles(os.Stdout, globalFlags.JSON)
	if !globalFlags.Quiet {
		fmt.Println(s.Success.Render("Ingest complete"))
		fmt.Println(s.kv("Ingested", fmt.Sprintf("%d", result.Ingested)))
		fmt.Println(s.kv("Skipped", fmt.Sprintf("%d", result.Skipped)))
		fmt.Println(s.kv("Documents", fmt.Sprintf("%d", stats.Documents)))
		fmt.Println(s.kv("Chunks", fmt.Sprintf("%d", stats.Chunks)))
	}
	return nil
}
