package handlers

import (
	"fmt"
	"os"

	"stockwatch/internal/core"
	"stockwatch/internal/logger"

	"github.com/spf13/cobra"
)

// NewSourcesCmd creates the crawl source management command
func NewSourcesCmd() *cobra.Command {
	sourcesCmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage the news sources the crawler visits",
		Long:  `List and add the listing pages crawled for new articles, including the CSS selectors used to extract them.`,
	}

	// Add subcommands
	sourcesCmd.AddCommand(newSourcesListCmd())
	sourcesCmd.AddCommand(newSourcesAddCmd())

	return sourcesCmd
}

func newSourcesListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show configured sources",
		Run: func(cmd *cobra.Command, args []string) {
			all, _ := cmd.Flags().GetBool("all")
			if err := runSourcesList(all); err != nil {
				logger.Error("Failed to list sources", err)
				os.Exit(1)
			}
		},
	}

	listCmd.Flags().Bool("all", false, "Include inactive sources")
	return listCmd
}

func newSourcesAddCmd() *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add a news source",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			container, _ := cmd.Flags().GetString("container")
			title, _ := cmd.Flags().GetString("title")
			summary, _ := cmd.Flags().GetString("summary")
			if err := runSourcesAdd(args[0], args[1], container, title, summary); err != nil {
				logger.Error("Failed to add source", err)
				os.Exit(1)
			}
		},
	}

	addCmd.Flags().String("container", ".item-news", "CSS selector for one article block")
	addCmd.Flags().String("title", "h3 a", "CSS selector for the title link inside a block")
	addCmd.Flags().String("summary", ".description", "CSS selector for the summary inside a block")
	return addCmd
}

func runSourcesList(includeInactive bool) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	sources, err := st.ListSources(!includeInactive)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if len(sources) == 0 {
		fmt.Println("No sources configured. Add one with: stockwatch sources add")
		return nil
	}

	fmt.Printf("📡 Sources (%d)\n", len(sources))
	for _, src := range sources {
		status := "active"
		if !src.Active {
			status = "inactive"
		}
		fmt.Printf("   %s [%s]\n      %s\n", src.Name, status, src.URL)
		if !src.LastCrawledAt.IsZero() {
			fmt.Printf("      last crawled: %s\n", src.LastCrawledAt.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}

func runSourcesAdd(name, url, container, title, summary string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	src := core.CrawlSource{
		Name:              name,
		URL:               url,
		ContainerSelector: container,
		TitleSelector:     title,
		SummarySelector:   summary,
		Active:            true,
	}

	if err := st.AddSource(src); err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}

	fmt.Printf("✅ Added source %q\n", name)
	return nil
}
