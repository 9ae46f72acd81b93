package handlers

import (
	"context"
	"fmt"
	"os"
	"slices"

	"stockwatch/internal/config"
	"stockwatch/internal/logger"
	"stockwatch/internal/metrics"
	"stockwatch/internal/notify"
	"stockwatch/internal/store"

	"github.com/spf13/cobra"
)

// NewMetricsCmd creates the stock metrics command
func NewMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Fetch stock metrics and alert on significant changes",
		Long: `Fetch the latest metrics for tracked symbols from the finance API,
compare them against the stored snapshots, send a Telegram alert for
every symbol whose metrics moved past their thresholds, and store the
new snapshots.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runMetrics(); err != nil {
				logger.Error("Metrics run failed", err)
				os.Exit(1)
			}
		},
	}
}

func runMetrics() error {
	cfg := config.Get()
	if cfg.Finance.APIURL == "" {
		return fmt.Errorf("finance API URL is not configured. Set FINANCE_API_URL or finance.api_url in config file")
	}

	st, err := store.NewStore(cfg.App.DataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close store", err)
		}
	}()

	ctx := context.Background()

	client := metrics.NewAPIClient(cfg.Finance.APIURL)
	updates, err := client.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch metrics: %w", err)
	}

	// An explicit symbol list narrows what the API returned.
	if len(cfg.Finance.Symbols) > 0 {
		updates = slices.DeleteFunc(updates, func(u metrics.Update) bool {
			return !slices.Contains(cfg.Finance.Symbols, u.Symbol)
		})
	}

	if len(updates) == 0 {
		fmt.Println("No metric updates to process")
		return nil
	}

	fmt.Printf("📈 Processing metrics for %d symbols...\n", len(updates))

	notifier := notify.NewTelegramClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	processor := metrics.NewProcessor(st, notifier, logger.Get())

	if err := processor.Process(ctx, updates); err != nil {
		return fmt.Errorf("failed to process metric updates: %w", err)
	}

	fmt.Println("✅ Metric snapshots updated")
	return nil
}
