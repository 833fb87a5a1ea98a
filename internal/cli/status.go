package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus contents and configuration summary",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		exitWith(ExitConfigInvalid, "ERROR: "+err.Error())
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.openCorpus(ctx); err != nil {
		exitWith(ExitCorpusUnavailable, "ERROR: "+err.Error())
	}

	stats, err := a.store.Stats(ctx)
	if err != nil {
		return err
	}

	if globalFlags.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	s := newStyles(os.Stdout, false)
	fmt.Println(s.Header.Render("Corpus"))
	fmt.Println(s.kv("Database", a.cfg.Corpus.DBPath))
	fmt.Println(s.kv("Documents", fmt.Sprintf("%d", stats.Documents)))
	fmt.Println(s.kv("Chunks", fmt.Sprintf("%d", stats.Chunks)))
	fmt.Println(s.kv("Total chars", fmt.Sprintf("%d", stats.TotalChars)))

	if len(stats.ByDocID) > 0 {
		fmt.Println()
		fmt.Println(s.Header.Render("Documents"))
		ids := make([]string, 0, len(stats.ByDocID))
		for id := range stats.ByDocID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Println(s.kv(id, fmt.Sprintf("%d chars", stats.ByDocID[id])))
		}
	}

	fmt.Println()
	fmt.Println(s.Header.Render("Model"))
	fmt.Println(s.kv("Provider", a.cfg.LLM.Provider))
	fmt.Println(s.kv("Model", a.cfg.LLM.Model))
	return nil
}
