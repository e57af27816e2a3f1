package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"tradelens/internal/usecase"
)

var deficitCmd = &cobra.Command{
	Use:   "deficit",
	Short: "Calculate per-country trade deficits",
	Long: `Add a per-country deficit mapping (import minus export) to every HS6
record in the trade data. Positive values are trade deficits, negative
values surpluses. Safe to re-run; the transform is idempotent.`,
	RunE: runDeficit,
}

var chinaIndexCmd = &cobra.Command{
	Use:   "china-index",
	Short: "Generate the China trade deficit index",
	Long: `Extract the trade deficit with China for each HS6 code, keeping only
positive deficits, and write them ranked largest-first.`,
	RunE: runChinaIndex,
}

func init() {
	rootCmd.AddCommand(deficitCmd)
	rootCmd.AddCommand(chinaIndexCmd)
}

func runDeficit(cmd *cobra.Command, args []string) error {
	paths := GetConfig().ArtifactPaths(GetRootDir())

	fmt.Println("Loading trade data...")
	count, err := usecase.RunDeficit(paths)
	if err != nil {
		return fmt.Errorf("deficit calculation failed: %w", err)
	}

	fmt.Printf("Done! Added deficit calculations to %d HS6 codes\n", count)
	return nil
}

func runChinaIndex(cmd *cobra.Command, args []string) error {
	paths := GetConfig().ArtifactPaths(GetRootDir())

	fmt.Println("Extracting China trade deficits...")
	index, err := usecase.RunChinaIndex(paths)
	if err != nil {
		return fmt.Errorf("china index generation failed: %w", err)
	}

	fmt.Printf("Saved %d HS6 codes with a China trade deficit\n\n", len(index))
	fmt.Println("Top 10 China trade deficits:")
	for i, entry := range index.Ranked() {
		if i >= 10 {
			break
		}
		fmt.Printf("  %d. HS6 %s: $%s\n", i+1, entry.HS6, groupDigits(entry.Deficit))
	}
	return nil
}
