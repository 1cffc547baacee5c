package cmd

import (
	"fmt"
	"log"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/peekknuf/dqsweep/internal/journal"
)

var (
	statusJournalDir string
	statusPending    bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the batch checkpoints recorded by earlier runs",
	Long: `Status lists the journal entry of every batch. A batch still marked
started lost its rows to an interrupted run; run again to measure it.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir := cfg.Journal.Dir
		if statusJournalDir != "" {
			dir = statusJournalDir
		}
		if dir == "" {
			log.Fatalf("No journal configured: set journal.dir or pass --journal")
		}

		j, err := journal.Open(journal.Config{Dir: dir})
		if err != nil {
			log.Fatalf("Failed to open journal: %v", err)
		}
		defer j.Close()

		var entries []journal.Entry
		if statusPending {
			entries, err = j.Incomplete()
		} else {
			entries, err = j.Entries()
		}
		if err != nil {
			log.Fatalf("Failed to read journal: %v", err)
		}

		if len(entries) == 0 {
			fmt.Println("No checkpoints recorded")
			return
		}

		fmt.Printf("%-6s %-32s %-8s %10s %-14s %s\n", "#", "Batch", "State", "Rows", "When", "Run")
		pending := 0
		for _, e := range entries {
			if e.State == journal.StateStarted {
				pending++
			}
			fmt.Printf("%-6d %-32s %-8s %10s %-14s %s\n",
				e.Number, e.Batch, e.State, humanize.Comma(int64(e.Rows)), humanize.Time(e.At), e.RunID)
		}
		fmt.Printf("\n%d batches, %d not flushed\n", len(entries), pending)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusJournalDir, "journal", "",
		"journal directory (default: journal.dir from the config)")
	statusCmd.Flags().BoolVar(&statusPending, "pending", false,
		"only list batches that were started but never flushed")
}
