package core

import "time"

// Item represents a single ingested news record.
type Item struct {
	ID                 string    `json:"id"`                  // Unique identifier for the item
	Title              string    `json:"title"`               // Headline as scraped from the source
	URL                string    `json:"url"`                 // Canonical article URL (unique)
	Summary            string    `json:"summary"`             // Lead paragraph / sapo text (may be empty)
	PublishedDateText  string    `json:"published_date_text"` // Publication date as printed by the source
	SourceLabel        string    `json:"source_label"`        // Source page the item was scraped from
	ContentFingerprint string    `json:"content_fingerprint"` // Content-derived dedup key over title+summary
	CreatedAt          time.Time `json:"created_at"`          // When the item was first persisted
}

// Enrichment holds the AI-derived annotation for one Item. Created at most
// once per Item; fields stay empty when the corresponding analysis call failed.
type Enrichment struct {
	ID             string    `json:"id"`              // Unique identifier for the enrichment
	ItemID         string    `json:"item_id"`         // Owning Item (1:1)
	Summary        string    `json:"summary"`         // AI-written summary (empty if summarize failed)
	Category       string    `json:"category"`        // Free-text category label
	SentimentScore float64   `json:"sentiment_score"` // -1.0 to 1.0
	ImpactScore    float64   `json:"impact_score"`    // 0.0 to 1.0
	Keywords       []string  `json:"keywords"`        // Extracted key entities, ordered
	RawAnalysis    string    `json:"raw_analysis"`    // Full analysis payload as JSON, kept for audit
	CreatedAt      time.Time `json:"created_at"`      // When the enrichment was persisted
}

// WatchlistItemType distinguishes keyword entries from stock-symbol entries.
type WatchlistItemType string

const (
	WatchlistKeyword     WatchlistItemType = "KEYWORD"
	WatchlistStockSymbol WatchlistItemType = "STOCK_SYMBOL"
)

// WatchlistItem is one entry in a user's watchlist. The ingestion pipeline
// reads these; they are managed through the watchlist command.
type WatchlistItem struct {
	ID        string            `json:"id"`         // Unique identifier for the entry
	UserID    string            `json:"user_id"`    // Owner of the entry
	ItemType  WatchlistItemType `json:"item_type"`  // KEYWORD or STOCK_SYMBOL
	ItemValue string            `json:"item_value"` // The keyword or symbol text
	CreatedAt time.Time         `json:"created_at"` // When the entry was added
}

// MetricSnapshot is a point-in-time set of numeric-as-text metrics for one
// traded symbol. One row per symbol; re-crawls overwrite the latest row.
type MetricSnapshot struct {
	ID        string            `json:"id"`         // Unique identifier for the snapshot
	Symbol    string            `json:"symbol"`     // Ticker symbol
	Metrics   map[string]string `json:"metrics"`    // Named metrics (price, pe, pb, market_cap, volume, ...)
	RawData   string            `json:"raw_data"`   // Full crawled payload as JSON
	UpdatedAt time.Time         `json:"updated_at"` // Last write time; "latest" is most recent by this
	CreatedAt time.Time         `json:"created_at"` // When the symbol was first seen
}

// CrawlSource describes one news page the crawler visits, with the CSS
// selectors needed to pull items out of it.
type CrawlSource struct {
	ID                string    `json:"id"`                 // Unique identifier for the source
	Name              string    `json:"name"`               // Human-readable source name
	URL               string    `json:"url"`                // Listing page URL
	ContainerSelector string    `json:"container_selector"` // Selector for one article block
	TitleSelector     string    `json:"title_selector"`     // Selector for the title link inside a block
	SummarySelector   string    `json:"summary_selector"`   // Selector for the summary inside a block
	Active            bool      `json:"active"`             // Whether the crawler visits this source
	LastCrawledAt     time.Time `json:"last_crawled_at"`    // End of the last crawl of this source
	CreatedAt         time.Time `json:"created_at"`         // When the source was added
}

// RawItem is what the scraper hands to the pipeline before any identity or
// enrichment work has happened.
type RawItem struct {
	Title             string `json:"title"`               // Scraped headline
	URL               string `json:"url"`                 // Article URL
	Summary           string `json:"summary"`             // Scraped summary (may be empty)
	PublishedDateText string `json:"published_date_text"` // Date string as printed, unparsed
	SourceLabel       string `json:"source_label"`        // Which source page produced this
}
