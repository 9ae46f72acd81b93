package handlers

import (
	"fmt"
	"os"
	"strings"

	"stockwatch/internal/config"
	"stockwatch/internal/core"
	"stockwatch/internal/logger"
	"stockwatch/internal/store"

	"github.com/spf13/cobra"
)

// NewWatchlistCmd creates the watchlist management command
func NewWatchlistCmd() *cobra.Command {
	watchlistCmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Manage the keywords and symbols that trigger alerts",
		Long:  `List, add, and remove the watchlist entries matched against every new article.`,
	}

	// Add subcommands
	watchlistCmd.AddCommand(newWatchlistListCmd())
	watchlistCmd.AddCommand(newWatchlistAddCmd())
	watchlistCmd.AddCommand(newWatchlistRemoveCmd())

	return watchlistCmd
}

func newWatchlistListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all watchlist entries",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runWatchlistList(); err != nil {
				logger.Error("Failed to list watchlist", err)
				os.Exit(1)
			}
		},
	}
}

func newWatchlistAddCmd() *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add <value>",
		Short: "Add a keyword or stock symbol to the watchlist",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			itemType, _ := cmd.Flags().GetString("type")
			if err := runWatchlistAdd(args[0], itemType); err != nil {
				logger.Error("Failed to add watchlist entry", err)
				os.Exit(1)
			}
		},
	}

	addCmd.Flags().String("type", "keyword", "Entry type: keyword or symbol")
	return addCmd
}

func newWatchlistRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <value>",
		Short: "Remove an entry from the watchlist",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runWatchlistRemove(args[0]); err != nil {
				logger.Error("Failed to remove watchlist entry", err)
				os.Exit(1)
			}
		},
	}
}

func runWatchlistList() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	userID := config.GetUserID()
	items, err := st.ListWatchlist(userID)
	if err != nil {
		return fmt.Errorf("failed to list watchlist: %w", err)
	}

	if len(items) == 0 {
		fmt.Printf("Watchlist for %s is empty\n", userID)
		return nil
	}

	fmt.Printf("🎯 Watchlist for %s (%d entries)\n", userID, len(items))
	for _, item := range items {
		icon := "🔑"
		if item.ItemType == core.WatchlistStockSymbol {
			icon = "📊"
		}
		fmt.Printf("   %s %s\n", icon, item.ItemValue)
	}
	return nil
}

func runWatchlistAdd(value, itemType string) error {
	var t core.WatchlistItemType
	switch strings.ToLower(itemType) {
	case "keyword":
		t = core.WatchlistKeyword
	case "symbol", "stock", "stock_symbol":
		t = core.WatchlistStockSymbol
	default:
		return fmt.Errorf("unknown entry type %q (use keyword or symbol)", itemType)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := st.AddWatchlistItem(config.GetUserID(), t, value); err != nil {
		return fmt.Errorf("failed to add watchlist entry: %w", err)
	}

	fmt.Printf("✅ Added %q to watchlist\n", value)
	return nil
}

func runWatchlistRemove(value string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := st.RemoveWatchlistItem(config.GetUserID(), value); err != nil {
		return fmt.Errorf("failed to remove watchlist entry: %w", err)
	}

	fmt.Printf("✅ Removed %q from watchlist\n", value)
	return nil
}

// openStore opens the store at the configured data directory.
func openStore() (*store.Store, error) {
	st, err := store.NewStore(config.GetDataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		logger.Error("Failed to close store", err)
	}
}
