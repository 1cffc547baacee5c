package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/peekknuf/dqsweep/internal/analysis"
	"github.com/peekknuf/dqsweep/internal/results"
)

var (
	sigInput  string
	sigOutput string
	sigAlpha  float64
	sigAll    bool
)

var significanceCmd = &cobra.Command{
	Use:   "significance",
	Short: "Find the smallest error fraction each metric reacts to",
	Long: `Significance reads the result table and compares, for every metric and
error, the metric values at each fraction against the clean values with a
two-sample Kolmogorov-Smirnov test. The p-value is exact while the product of
the sample sizes stays at or below one million and asymptotic beyond. By
default only the smallest significant fraction per metric and error is kept.

Examples:
  dqsweep significance                   # result table from config.yaml
  dqsweep significance --alpha 0.01      # stricter threshold
  dqsweep significance --all             # every significant fraction`,
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("alpha") {
			cfg.Analysis.Alpha = sigAlpha
		}
		if cfg.Analysis.Alpha <= 0 || cfg.Analysis.Alpha >= 1 {
			log.Fatalf("Alpha must be between 0 and 1, got %g", cfg.Analysis.Alpha)
		}
		if cfg.Folders.Results == "" && (sigInput == "" || sigOutput == "") {
			log.Fatalf("Please set folders.results or pass --input and --output")
		}

		input := sigInput
		if input == "" {
			input = cfg.ResultsPath()
		}
		output := sigOutput
		if output == "" {
			output = cfg.AnalysisPath()
		}

		rows, err := results.ReadAll(input)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", input, err)
		}
		if len(rows) == 0 {
			fmt.Printf("No measurements in %s\n", input)
			return
		}

		findings := analysis.Significant(rows, cfg.Analysis.Alpha)
		if !sigAll {
			findings = analysis.MinimumFractions(findings)
		}

		if err := analysis.WriteCSV(output, findings); err != nil {
			log.Fatalf("Failed to write %s: %v", output, err)
		}

		fmt.Printf("%-32s %-28s %8s %9s %10s\n", "Metric", "Error", "Fraction", "Statistic", "p value")
		for _, f := range findings {
			fmt.Printf("%-32s %-28s %8s %9.4f %10.3g\n",
				f.Metric, f.Error, results.FormatFraction(f.Fraction), f.Statistic, f.PValue)
		}
		fmt.Printf("\n%d findings at alpha %g saved to %s\n", len(findings), cfg.Analysis.Alpha, output)
	},
}

func init() {
	rootCmd.AddCommand(significanceCmd)

	significanceCmd.Flags().StringVarP(&sigInput, "input", "i", "",
		"result table to analyse (default: the configured result file)")
	significanceCmd.Flags().StringVarP(&sigOutput, "output", "o", "",
		"where to write the findings (default: the configured analysis file)")
	significanceCmd.Flags().Float64Var(&sigAlpha, "alpha", analysis.DefaultAlpha,
		"significance level")
	significanceCmd.Flags().BoolVar(&sigAll, "all", false,
		"keep every significant fraction, not only the smallest")
}
