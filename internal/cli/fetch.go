package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"tradelens/internal/adapter/census"
	"tradelens/internal/adapter/store"
	"tradelens/internal/usecase"
)

var fetchRetry bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch per-country trade values from the Census API",
	Long: `Fetch export and import values for every HS6 code in the concordance.

Codes already present in the results file are skipped, so an interrupted
run resumes where it left off. Failed codes land in the error collection;
rerun with --retry to reprocess exactly those.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchRetry, "retry", false, "reprocess only previously failed codes")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	paths := cfg.ArtifactPaths(GetRootDir())

	checkpoint, err := store.OpenCheckpoint(paths.Checkpoint)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer checkpoint.Close()

	client := census.New(cfg.Census)
	uc := usecase.NewFetchUseCase(client, checkpoint, paths, cfg.Batch.Concurrency, cfg.Batch.FlushEvery)

	if fetchRetry {
		fmt.Println("Retrying previously failed codes...")
	}

	bar := newBar(-1, "Fetching trade data")
	result, err := uc.Run(fetchRetry, func(done, total int) {
		if bar.GetMax() <= 0 {
			bar.ChangeMax(total)
		}
		bar.Set(done)
	})
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	if result.Processed == 0 {
		fmt.Println("All done! Nothing to fetch.")
		return nil
	}

	fmt.Printf("\nDone! Success: %d | Errors: %d\n", result.Results, result.Errors)
	if result.Errors > 0 {
		fmt.Println("Run 'tradelens fetch --retry' to retry errors")
	}
	return nil
}
