package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"tradelens/internal/adapter/openai"
	"tradelens/internal/adapter/store"
	"tradelens/internal/usecase"
)

var scoreRetry bool

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score defense criticality with a language model",
	Long: `Ask the configured language model to rate each commodity's defense
criticality on a 0-10 scale. Already-scored codes are skipped; failures
land in the error collection for a --retry pass.

A score of 10 marks mission-critical weapons systems or irreplaceable
supply-chain inputs; 0 marks pure civilian consumer goods.`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreRetry, "retry", false, "reprocess only previously failed codes")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	paths := cfg.ArtifactPaths(GetRootDir())

	scorer, err := openai.NewScorer(cfg.Scoring)
	if err != nil {
		return fmt.Errorf("failed to create scorer: %w", err)
	}

	checkpoint, err := store.OpenCheckpoint(paths.Checkpoint)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer checkpoint.Close()

	uc := usecase.NewScoreUseCase(scorer, checkpoint, paths, cfg.Batch.Concurrency, cfg.Batch.FlushEvery)

	if scoreRetry {
		fmt.Println("Retrying previously failed codes...")
	}

	bar := newBar(-1, "Scoring defense criticality")
	result, err := uc.Run(scoreRetry, func(done, total int) {
		if bar.GetMax() <= 0 {
			bar.ChangeMax(total)
		}
		bar.Set(done)
	})
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}

	if result.Processed == 0 {
		fmt.Println("All done! Nothing to score.")
		return nil
	}

	fmt.Printf("\nDone! Scored: %d | Errors: %d\n", result.Results, result.Errors)
	fmt.Println("\nScore distribution:")
	for score := 10; score >= 0; score-- {
		if result.Distribution[score] > 0 {
			fmt.Printf("  Score %d: %d codes\n", score, result.Distribution[score])
		}
	}
	if result.Errors > 0 {
		fmt.Println("\nRun 'tradelens score --retry' to retry errors")
	}
	return nil
}
