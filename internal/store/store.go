package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stockwatch/internal/core"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite-backed persistence layer for items, enrichments, the
// watchlist, metric snapshots, and crawl sources.
type Store struct {
	db   *sql.DB
	path string

	// admitMu serializes the check-then-create sequence in Admit so that two
	// concurrent items with the same URL or fingerprint cannot both persist.
	admitMu sync.Mutex
}

// NewStore opens (or creates) the database under dataDir and ensures the
// schema exists.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "stockwatch.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	itemsTable := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		summary TEXT,
		published_date_text TEXT,
		source_label TEXT,
		content_fingerprint TEXT,
		created_at DATETIME
	);`

	fingerprintIndex := `
	CREATE INDEX IF NOT EXISTS idx_items_fingerprint ON items (content_fingerprint);`

	enrichmentsTable := `
	CREATE TABLE IF NOT EXISTS enrichments (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL UNIQUE,
		summary TEXT,
		category TEXT,
		sentiment_score REAL,
		impact_score REAL,
		keywords TEXT,
		raw_analysis TEXT,
		created_at DATETIME,
		FOREIGN KEY (item_id) REFERENCES items (id)
	);`

	watchlistTable := `
	CREATE TABLE IF NOT EXISTS watchlist_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		item_type TEXT NOT NULL,
		item_value TEXT NOT NULL,
		created_at DATETIME,
		UNIQUE (user_id, item_type, item_value)
	);`

	snapshotsTable := `
	CREATE TABLE IF NOT EXISTS metric_snapshots (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL UNIQUE,
		metrics TEXT,
		raw_data TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`

	sourcesTable := `
	CREATE TABLE IF NOT EXISTS crawl_sources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		container_selector TEXT,
		title_selector TEXT,
		summary_selector TEXT,
		active INTEGER DEFAULT 1,
		last_crawled_at DATETIME,
		created_at DATETIME
	);`

	statements := []string{itemsTable, fingerprintIndex, enrichmentsTable, watchlistTable, snapshotsTable, sourcesTable}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// FindItemByURL returns the item with the exact URL, or nil if none exists.
func (s *Store) FindItemByURL(url string) (*core.Item, error) {
	query := `
	SELECT id, title, url, summary, published_date_text, source_label, content_fingerprint, created_at
	FROM items
	WHERE url = ?`

	return s.scanItem(s.db.QueryRow(query, url))
}

// FindItemByFingerprint returns the first item with the given content
// fingerprint, or nil if none exists.
func (s *Store) FindItemByFingerprint(fp string) (*core.Item, error) {
	query := `
	SELECT id, title, url, summary, published_date_text, source_label, content_fingerprint, created_at
	FROM items
	WHERE content_fingerprint = ?
	ORDER BY created_at ASC
	LIMIT 1`

	return s.scanItem(s.db.QueryRow(query, fp))
}

func (s *Store) scanItem(row *sql.Row) (*core.Item, error) {
	var item core.Item
	err := row.Scan(
		&item.ID,
		&item.Title,
		&item.URL,
		&item.Summary,
		&item.PublishedDateText,
		&item.SourceLabel,
		&item.ContentFingerprint,
		&item.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}
	return &item, nil
}

// Admit is the dedup gate: it looks up the URL first, then the fingerprint,
// and only creates a new row when neither matches. It returns the persisted
// item and whether it already existed. The whole check-then-create sequence
// runs under one lock, backed by the UNIQUE url index.
func (s *Store) Admit(raw core.RawItem, fp string) (*core.Item, bool, error) {
	s.admitMu.Lock()
	defer s.admitMu.Unlock()

	existing, err := s.FindItemByURL(raw.URL)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	existing, err = s.FindItemByFingerprint(fp)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	item := core.Item{
		ID:                 uuid.NewString(),
		Title:              raw.Title,
		URL:                raw.URL,
		Summary:            raw.Summary,
		PublishedDateText:  raw.PublishedDateText,
		SourceLabel:        raw.SourceLabel,
		ContentFingerprint: fp,
		CreatedAt:          time.Now().UTC(),
	}

	query := `
	INSERT INTO items
	(id, title, url, summary, published_date_text, source_label, content_fingerprint, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.Exec(query,
		item.ID,
		item.Title,
		item.URL,
		item.Summary,
		item.PublishedDateText,
		item.SourceLabel,
		item.ContentFingerprint,
		item.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert item: %w", err)
	}

	return &item, false, nil
}

// CreateEnrichment persists the enrichment for an item. The UNIQUE item_id
// constraint rejects a second enrichment for the same item.
func (s *Store) CreateEnrichment(e core.Enrichment) (*core.Enrichment, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	keywords, _ := json.Marshal(e.Keywords)

	query := `
	INSERT INTO enrichments
	(id, item_id, summary, category, sentiment_score, impact_score, keywords, raw_analysis, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		e.ID,
		e.ItemID,
		e.Summary,
		e.Category,
		e.SentimentScore,
		e.ImpactScore,
		string(keywords),
		e.RawAnalysis,
		e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert enrichment: %w", err)
	}

	return &e, nil
}

// GetEnrichment returns the enrichment for an item, or nil if none exists.
func (s *Store) GetEnrichment(itemID string) (*core.Enrichment, error) {
	query := `
	SELECT id, item_id, summary, category, sentiment_score, impact_score, keywords, raw_analysis, created_at
	FROM enrichments
	WHERE item_id = ?`

	var e core.Enrichment
	var keywordsJSON string

	err := s.db.QueryRow(query, itemID).Scan(
		&e.ID,
		&e.ItemID,
		&e.Summary,
		&e.Category,
		&e.SentimentScore,
		&e.ImpactScore,
		&keywordsJSON,
		&e.RawAnalysis,
		&e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan enrichment: %w", err)
	}

	if keywordsJSON != "" {
		if err := json.Unmarshal([]byte(keywordsJSON), &e.Keywords); err != nil {
			return nil, fmt.Errorf("failed to decode keywords: %w", err)
		}
	}

	return &e, nil
}

// ListWatchlist returns all watchlist entries for a user.
func (s *Store) ListWatchlist(userID string) ([]core.WatchlistItem, error) {
	query := `
	SELECT id, user_id, item_type, item_value, created_at
	FROM watchlist_items
	WHERE user_id = ?
	ORDER BY created_at ASC`

	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []core.WatchlistItem
	for rows.Next() {
		var item core.WatchlistItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.ItemType, &item.ItemValue, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// AddWatchlistItem adds one entry to a user's watchlist.
func (s *Store) AddWatchlistItem(userID string, itemType core.WatchlistItemType, value string) error {
	query := `
	INSERT OR IGNORE INTO watchlist_items (id, user_id, item_type, item_value, created_at)
	VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query, uuid.NewString(), userID, string(itemType), value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert watchlist item: %w", err)
	}
	return nil
}

// RemoveWatchlistItem deletes a user's watchlist entry by value.
func (s *Store) RemoveWatchlistItem(userID, value string) error {
	_, err := s.db.Exec(`DELETE FROM watchlist_items WHERE user_id = ? AND item_value = ?`, userID, value)
	if err != nil {
		return fmt.Errorf("failed to delete watchlist item: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent metric snapshot for a symbol, or nil
// if the symbol has never been stored.
func (s *Store) LatestSnapshot(symbol string) (*core.MetricSnapshot, error) {
	query := `
	SELECT id, symbol, metrics, raw_data, created_at, updated_at
	FROM metric_snapshots
	WHERE symbol = ?
	ORDER BY updated_at DESC
	LIMIT 1`

	var snap core.MetricSnapshot
	var metricsJSON string

	err := s.db.QueryRow(query, symbol).Scan(
		&snap.ID,
		&snap.Symbol,
		&metricsJSON,
		&snap.RawData,
		&snap.CreatedAt,
		&snap.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	if metricsJSON != "" {
		if err := json.Unmarshal([]byte(metricsJSON), &snap.Metrics); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot metrics: %w", err)
		}
	}

	return &snap, nil
}

// UpsertSnapshot writes the latest metrics for a symbol, overwriting the
// existing row's fields when the symbol already has one.
func (s *Store) UpsertSnapshot(symbol string, metrics map[string]string) (*core.MetricSnapshot, error) {
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot metrics: %w", err)
	}

	now := time.Now().UTC()
	snap := core.MetricSnapshot{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Metrics:   metrics,
		RawData:   string(metricsJSON),
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
	INSERT INTO metric_snapshots (id, symbol, metrics, raw_data, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (symbol) DO UPDATE SET
		metrics = excluded.metrics,
		raw_data = excluded.raw_data,
		updated_at = excluded.updated_at`

	if _, err := s.db.Exec(query, snap.ID, snap.Symbol, string(metricsJSON), snap.RawData, snap.CreatedAt, snap.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return s.LatestSnapshot(symbol)
}

// ListSources returns crawl sources, optionally only the active ones.
func (s *Store) ListSources(activeOnly bool) ([]core.CrawlSource, error) {
	query := `
	SELECT id, name, url, container_selector, title_selector, summary_selector, active, last_crawled_at, created_at
	FROM crawl_sources`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sources []core.CrawlSource
	for rows.Next() {
		var src core.CrawlSource
		var lastCrawled sql.NullTime
		err := rows.Scan(
			&src.ID,
			&src.Name,
			&src.URL,
			&src.ContainerSelector,
			&src.TitleSelector,
			&src.SummarySelector,
			&src.Active,
			&lastCrawled,
			&src.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		if lastCrawled.Valid {
			src.LastCrawledAt = lastCrawled.Time
		}
		sources = append(sources, src)
	}

	return sources, rows.Err()
}

// AddSource registers a crawl source.
func (s *Store) AddSource(src core.CrawlSource) error {
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO crawl_sources
	(id, name, url, container_selector, title_selector, summary_selector, active, last_crawled_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?)`

	_, err := s.db.Exec(query,
		src.ID,
		src.Name,
		src.URL,
		src.ContainerSelector,
		src.TitleSelector,
		src.SummarySelector,
		src.Active,
		src.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert source: %w", err)
	}
	return nil
}

// MarkSourceCrawled records the end of a crawl of the given source.
func (s *Store) MarkSourceCrawled(id string) error {
	_, err := s.db.Exec(`UPDATE crawl_sources SET last_crawled_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}
	return nil
}

// Stats summarizes row counts for CLI display.
type Stats struct {
	ItemCount       int `json:"item_count"`
	EnrichmentCount int `json:"enrichment_count"`
	SnapshotCount   int `json:"snapshot_count"`
	WatchlistCount  int `json:"watchlist_count"`
}

// GetStats returns row counts across the main tables.
func (s *Store) GetStats() (Stats, error) {
	var stats Stats
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM items`, &stats.ItemCount},
		{`SELECT COUNT(*) FROM enrichments`, &stats.EnrichmentCount},
		{`SELECT COUNT(*) FROM metric_snapshots`, &stats.SnapshotCount},
		{`SELECT COUNT(*) FROM watchlist_items`, &stats.WatchlistCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return stats, fmt.Errorf("failed to count rows: %w", err)
		}
	}
	return stats, nil
}
