package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"tradelens/internal/usecase"
)

var concordanceCmd = &cobra.Command{
	Use:   "concordance",
	Short: "Build the NAICS to products mapping",
	Long: `Join the manufacturing NAICS code list against the export and import
concordance tables and write the NAICS to products map.

The concordance tables are located by the configured globs (vintage-
stamped files such as expconcord24.csv); the newest match is used.`,
	RunE: runConcordance,
}

func init() {
	rootCmd.AddCommand(concordanceCmd)
}

func runConcordance(cmd *cobra.Command, args []string) error {
	paths := GetConfig().ArtifactPaths(GetRootDir())

	uc := usecase.NewConcordanceUseCase(
		paths.NAICSNames,
		paths.ExportConcordance,
		paths.ImportConcordance,
		paths.NAICSProducts,
	)

	fmt.Println("Building NAICS to products mapping...")

	bar := newBar(-1, "Joining")
	result, err := uc.Run(func(done, total int) {
		if bar.GetMax() <= 0 {
			bar.ChangeMax(total)
		}
		bar.Set(done)
	})
	if err != nil {
		return fmt.Errorf("concordance build failed: %w", err)
	}

	fmt.Printf("\nConcordance complete:\n")
	fmt.Printf("  NAICS codes processed:    %d\n", result.NAICSCodes)
	fmt.Printf("  NAICS codes with exports: %d\n", result.NAICSWithExports)
	fmt.Printf("  NAICS codes with imports: %d\n", result.NAICSWithImports)
	fmt.Printf("  Export products:          %d (from %d rows)\n", result.TotalExports, result.ExportRows)
	fmt.Printf("  Import products:          %d (from %d rows)\n", result.TotalImports, result.ImportRows)
	fmt.Printf("\nOutput saved to: %s\n", paths.NAICSProducts)
	return nil
}
