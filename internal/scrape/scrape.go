package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockwatch/internal/core"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// Summaries shorter than this are usually captions or section labels.
	minSummaryLength = 20
)

// fallbackTitleSelectors are tried inside a block when the configured title
// selector comes up empty. News listing markup shifts often enough that a
// single selector per source does not survive long.
var fallbackTitleSelectors = []string{"h3 a", "h2 a", "h1 a", ".title a", ".title-news a", "a"}

// fallbackSummarySelectors mirror the sapo/lead conventions of Vietnamese
// news sites.
var fallbackSummarySelectors = []string{".description", ".sapo", ".lead", ".summary", ".excerpt", ".intro", ".abstract"}

// Scraper fetches configured listing pages and extracts article stubs.
type Scraper struct {
	HTTPClient *http.Client
	UserAgent  string
}

// NewScraper creates a Scraper with a 30-second request timeout.
func NewScraper() *Scraper {
	return &Scraper{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		UserAgent:  defaultUserAgent,
	}
}

// ScrapeSource fetches the source's listing page and returns the article
// stubs found on it. Items without a title are dropped; items without an
// href fall back to the listing URL itself, matching how single-article
// pages behave.
func (s *Scraper) ScrapeSource(ctx context.Context, source core.CrawlSource) ([]core.RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", source.URL, err)
	}
	req.Header.Set("User-Agent", s.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "vi-VN,vi;q=0.9,en;q=0.8")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", source.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status code %d", source.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", source.URL, err)
	}

	return ParseListing(string(body), source)
}

// ParseListing extracts article stubs from already-fetched listing HTML.
// Split out from ScrapeSource so parsing can be exercised without a network.
func ParseListing(htmlContent string, source core.CrawlSource) ([]core.RawItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", source.URL, err)
	}

	base, err := url.Parse(source.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source URL %s: %w", source.URL, err)
	}

	var items []core.RawItem
	seen := make(map[string]bool)

	doc.Find(source.ContainerSelector).Each(func(_ int, block *goquery.Selection) {
		title, href := extractTitle(block, source.TitleSelector)
		if title == "" {
			return
		}

		itemURL := resolveURL(base, href)
		if seen[itemURL] {
			return
		}
		seen[itemURL] = true

		items = append(items, core.RawItem{
			Title:             title,
			URL:               itemURL,
			Summary:           extractSummary(block, source.SummarySelector),
			PublishedDateText: strings.TrimSpace(block.Find("time, .time, .date").First().Text()),
			SourceLabel:       source.Name,
		})
	})

	return items, nil
}

// extractTitle tries the configured selector first, then the common listing
// patterns, and returns the first non-empty title text with its href.
func extractTitle(block *goquery.Selection, configured string) (string, string) {
	selectors := fallbackTitleSelectors
	if configured != "" {
		selectors = append([]string{configured}, fallbackTitleSelectors...)
	}

	for _, sel := range selectors {
		link := block.Find(sel).First()
		if link.Length() == 0 {
			continue
		}
		title := strings.TrimSpace(link.Text())
		if title == "" {
			continue
		}
		href, _ := link.Attr("href")
		return title, href
	}
	return "", ""
}

// extractSummary reads the sapo text for a block. When the configured
// selector and the common ones all miss, the first substantial paragraph
// serves as the summary.
func extractSummary(block *goquery.Selection, configured string) string {
	selectors := fallbackSummarySelectors
	if configured != "" {
		selectors = append([]string{configured}, fallbackSummarySelectors...)
	}

	for _, sel := range selectors {
		text := strings.TrimSpace(block.Find(sel).First().Text())
		if len(text) > minSummaryLength {
			return text
		}
	}

	var summary string
	block.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.TrimSpace(p.Text())
		if len(text) > minSummaryLength {
			summary = text
			return false
		}
		return true
	})
	return summary
}

// resolveURL turns an href into an absolute URL. A missing or unparsable
// href falls back to the listing page itself.
func resolveURL(base *url.URL, href string) string {
	if href == "" {
		return base.String()
	}
	ref, err := url.Parse(href)
	if err != nil {
		return base.String()
	}
	return base.ResolveReference(ref).String()
}
