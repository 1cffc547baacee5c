package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/peekknuf/dqsweep/internal/connectors"
	"github.com/peekknuf/dqsweep/internal/dataset"
	"github.com/peekknuf/dqsweep/internal/validator"
)

var (
	inspectWorkers   int
	inspectRecursive bool
	inspectOutput    string
	inspectColumn    string
)

// InspectResult is the shape of one batch as the sweep will see it.
type InspectResult struct {
	File    connectors.FileMeta
	Rows    int
	Columns []ColumnPlan
	Load    time.Duration
	Error   error
}

// ColumnPlan lists what the sweep would measure and inject on a column.
type ColumnPlan struct {
	Name    string
	Type    string
	Class   validator.Class
	Missing int
	Metrics []string
	Errors  []string
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [directory]",
	Short: "Show the inferred column types and the sweep planned for each batch",
	Long: `Inspect loads every batch the way run does and prints, per column, the
inferred dtype and the metrics and errors that apply to it. Nothing is
written to the result table.

Examples:
  dqsweep inspect                      # data folder from config.yaml
  dqsweep inspect ./data --recursive   # another folder
  dqsweep inspect --output plan.txt    # save the report
  dqsweep inspect --column price       # one column only`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := cfg.Folders.Data
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			log.Fatalf("Please specify a data folder")
		}

		files, err := connectors.DiscoverFiles(dir, cfg.Run.Extension,
			connectors.DiscoveryOptions{Recursive: inspectRecursive})
		if err != nil {
			log.Fatalf("Failed to discover files: %v", err)
		}
		fmt.Printf("Found %d %s files in %s\n", len(files), cfg.Run.Extension, dir)

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(files),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetDescription("[cyan][reset] Loading batches..."),
				progressbar.OptionSetWidth(20),
				progressbar.OptionShowCount(),
			)
		}

		start := time.Now()
		results := inspectFiles(files, cfg.LoadOptions(), bar)
		if bar != nil {
			bar.Finish()
			fmt.Fprintln(os.Stderr)
		}

		report := renderInspect(results, time.Since(start))
		if inspectOutput != "" {
			if err := os.WriteFile(inspectOutput, []byte(report), 0644); err != nil {
				log.Fatalf("Failed to write to output file %s: %v", inspectOutput, err)
			}
			fmt.Printf("Report saved to %s\n", inspectOutput)
			return
		}
		fmt.Print(report)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().IntVarP(&inspectWorkers, "workers", "w", 4,
		"batches loaded in parallel")
	inspectCmd.Flags().BoolVarP(&inspectRecursive, "recursive", "r", false,
		"search the folder recursively")
	inspectCmd.Flags().StringVar(&inspectOutput, "output", "",
		"file to save the report (default: stdout)")
	inspectCmd.Flags().StringVarP(&inspectColumn, "column", "c", "",
		"only report this column")
}

// inspectFiles loads every file concurrently. Results keep file order and a
// failing batch is reported, not fatal.
func inspectFiles(files []connectors.FileMeta, opts dataset.LoadOptions, bar *progressbar.ProgressBar) []InspectResult {
	v := validator.New()
	out := make([]InspectResult, len(files))

	var g errgroup.Group
	g.SetLimit(max(inspectWorkers, 1))
	for i, f := range files {
		g.Go(func() error {
			out[i] = inspectFile(v, f, opts)
			if bar != nil {
				bar.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	return out
}

func inspectFile(v *validator.Validator, f connectors.FileMeta, opts dataset.LoadOptions) InspectResult {
	start := time.Now()
	res := InspectResult{File: f}

	b, err := dataset.Load(f.Path, f.Number, opts)
	if err != nil {
		res.Error = err
		return res
	}
	res.Rows = b.Rows
	res.Load = time.Since(start)

	columns := b.Columns
	if inspectColumn != "" {
		columns = nil
		if c, ok := b.Column(inspectColumn); ok {
			columns = []*dataset.Column{c}
		}
	}

	for _, c := range columns {
		class := validator.Classify(c)
		res.Columns = append(res.Columns, ColumnPlan{
			Name:    c.Name,
			Type:    c.DType().String(),
			Class:   class,
			Missing: c.MissingCount(),
			Metrics: v.Metrics(class),
			Errors:  v.Errors(class),
		})
	}
	return res
}

func renderInspect(results []InspectResult, total time.Duration) string {
	var out strings.Builder

	var rows, cols, measurements int
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			continue
		}
		rows += r.Rows
		cols += len(r.Columns)
		for _, c := range r.Columns {
			measurements += len(c.Metrics) * (1 + len(c.Errors)*len(cfg.Run.Fractions))
		}
	}

	out.WriteString("=== SWEEP PLAN ===\n")
	out.WriteString(fmt.Sprintf("Batches: %d (%d unreadable)\n", len(results), failed))
	out.WriteString(fmt.Sprintf("Rows: %s\n", humanize.Comma(int64(rows))))
	out.WriteString(fmt.Sprintf("Columns: %d\n", cols))
	out.WriteString(fmt.Sprintf("Fractions: %d\n", len(cfg.Run.Fractions)))
	out.WriteString(fmt.Sprintf("Result rows at most: %s\n", humanize.Comma(int64(measurements))))
	out.WriteString(fmt.Sprintf("Load time: %v\n\n", total.Round(time.Millisecond)))

	v := validator.New()
	out.WriteString("=== APPLICABILITY ===\n")
	for _, class := range validator.Classes {
		out.WriteString(fmt.Sprintf("%-8s %2d metrics, %2d errors\n",
			class, len(v.Metrics(class)), len(v.Errors(class))))
	}
	out.WriteString("\n")

	for _, r := range results {
		if r.Error != nil {
			log.Printf("Failed to load %s: %v", r.File.Path, r.Error)
			continue
		}

		out.WriteString(fmt.Sprintf("#%d %s (%s, %s rows, modified %s)\n",
			r.File.Number, r.File.Name, humanize.Bytes(uint64(r.File.Size)),
			humanize.Comma(int64(r.Rows)), humanize.Time(r.File.Modified)))
		out.WriteString(fmt.Sprintf("  %-24s %-8s %-8s %8s %8s %7s\n",
			"Column", "Type", "Class", "Missing", "Metrics", "Errors"))
		out.WriteString("  " + strings.Repeat("-", 70) + "\n")
		for _, c := range r.Columns {
			name := c.Name
			if len(name) > 24 {
				name = name[:21] + "..."
			}
			out.WriteString(fmt.Sprintf("  %-24s %-8s %-8s %8d %8d %7d\n",
				name, c.Type, c.Class, c.Missing, len(c.Metrics), len(c.Errors)))
		}
		out.WriteString("\n")
	}

	return out.String()
}
