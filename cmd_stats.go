package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statsFlags struct {
	top int
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the candidate pool and its best-ranked candidates",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsFlags.top, "top", 5, "Number of candidates to list (0 lists all)")
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	stats := a.store.Stats(statsFlags.top)
	// A table unless a format was asked for.
	if cmd.Flags().Changed("output") {
		return printValue(cmd, stats)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Candidates: %d\n", stats.TotalCandidates)
	if stats.LastFetch != nil {
		fmt.Fprintf(out, "Last fetch: %s (%s ago)\n", stats.LastFetch.Format("2006-01-02 15:04:05 MST"), stats.CacheAge.Round(time.Second))
	} else {
		fmt.Fprintf(out, "Last fetch: never\n")
	}
	fmt.Fprintf(out, "Stale:      %t\n", stats.IsStale)
	if len(stats.Top) == 0 {
		return nil
	}
	fmt.Fprintf(out, "\n%-50s %6s %6s %6s %5s %5s %5s\n", "CANDIDATE", "BASE", "BONUS", "FINAL", "OK", "FAIL", "STRK")
	for _, c := range stats.Top {
		fmt.Fprintf(out, "%-50s %6.2f %6.2f %6.2f %5d %5d %5d\n",
			c.ID, c.BaseScore, c.RecencyBonus, c.FinalScore, c.SuccessCount, c.FailureCount, c.ConsecutiveFailures)
	}
	return nil
}
