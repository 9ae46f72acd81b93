package handlers

import (
	"context"
	"fmt"
	"os"

	"stockwatch/internal/config"
	"stockwatch/internal/llm"
	"stockwatch/internal/logger"
	"stockwatch/internal/notify"
	"stockwatch/internal/pipeline"
	"stockwatch/internal/scrape"
	"stockwatch/internal/store"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

// NewCrawlCmd creates the news crawl command
func NewCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Crawl all active news sources and process new articles",
		Long: `Fetch every active source's listing page, extract article stubs,
and run each new article through dedup, AI enrichment, watchlist
matching, and Telegram alerting.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runCrawl(); err != nil {
				logger.Error("Crawl failed", err)
				os.Exit(1)
			}
		},
	}
}

func runCrawl() error {
	cfg := config.Get()

	st, err := store.NewStore(cfg.App.DataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close store", err)
		}
	}()

	analyzer, err := llm.NewClient(cfg.Gemini.Model, config.GetGeminiTimeout())
	if err != nil {
		return fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	notifier := notify.NewTelegramClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	pipe := pipeline.New(st, analyzer, notifier, cfg.App.UserID, logger.Get())

	scraper := scrape.NewScraper()
	if cfg.Crawl.UserAgent != "" {
		scraper.UserAgent = cfg.Crawl.UserAgent
	}

	sources, err := st.ListSources(true)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	if len(sources) == 0 {
		fmt.Println("No active sources configured. Add one with: stockwatch sources add")
		return nil
	}

	fmt.Printf("🔍 Crawling %d sources...\n", len(sources))

	// One limiter across all sources keeps the inter-article pause steady
	// even at source boundaries.
	limiter := rate.NewLimiter(rate.Every(config.GetFetchDelay()), 1)
	ctx := context.Background()

	var total, fresh, alerted int
	for i, src := range sources {
		fmt.Printf("⏳ [%d/%d] %s\n", i+1, len(sources), src.Name)

		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		items, err := scraper.ScrapeSource(ctx, src)
		if err != nil {
			logger.Error("Failed to scrape source", err, "source", src.Name)
			continue
		}

		for _, raw := range items {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}

			outcome, err := pipe.Ingest(ctx, raw)
			if err != nil {
				logger.Error("Failed to ingest article", err, "url", raw.URL)
				continue
			}

			total++
			if outcome.Duplicate {
				continue
			}
			fresh++
			if outcome.Notified {
				alerted++
			}
			fmt.Printf("   📰 %s [%s]\n", outcome.Item.Title, outcome.Tier)
		}

		if err := st.MarkSourceCrawled(src.ID); err != nil {
			logger.Error("Failed to mark source crawled", err, "source", src.Name)
		}
	}

	fmt.Printf("✅ Done: %d articles seen, %d new, %d alerts sent\n", total, fresh, alerted)
	return nil
}
