package handlers

import (
	"fmt"
	"os"

	"stockwatch/internal/logger"

	"github.com/spf13/cobra"
)

// NewStatsCmd creates the database statistics command
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runStats(); err != nil {
				logger.Error("Failed to get stats", err)
				os.Exit(1)
			}
		},
	}
}

func runStats() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	stats, err := st.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	fmt.Println("📊 Database Statistics")
	fmt.Println("======================")
	fmt.Printf("📰 Articles stored: %d\n", stats.ItemCount)
	fmt.Printf("🤖 Enrichments: %d\n", stats.EnrichmentCount)
	fmt.Printf("📈 Metric snapshots: %d\n", stats.SnapshotCount)
	fmt.Printf("🎯 Watchlist entries: %d\n", stats.WatchlistCount)

	return nil
}
