package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"stockwatch/internal/core"
)

const listingHTML = `
<html><body>
<div class="item-news">
  <h3 class="title-news"><a href="/kinh-doanh/bai-mot-1234.html">NHNN giữ nguyên lãi suất điều hành</a></h3>
  <p class="description">Ngân hàng Nhà nước quyết định giữ nguyên các mức lãi suất điều hành trong quý này.</p>
  <span class="time">28/8/2026</span>
</div>
<div class="item-news">
  <h3 class="title-news"><a href="https://vnexpress.net/bai-hai-5678.html">VCB công bố kết quả kinh doanh</a></h3>
  <p>Ngắn.</p>
  <p>Ngân hàng báo lãi trước thuế tăng mạnh so với cùng kỳ năm ngoái.</p>
</div>
<div class="item-news">
  <h3 class="title-news"><a href="/bai-mot-1234.html"></a></h3>
</div>
<div class="banner">không phải bài viết</div>
</body></html>`

func testSource() core.CrawlSource {
	return core.CrawlSource{
		Name:              "VnExpress - Kinh doanh",
		URL:               "https://vnexpress.net/kinh-doanh",
		ContainerSelector: ".item-news",
		TitleSelector:     "h3.title-news a",
		SummarySelector:   ".description",
	}
}

func TestParseListing(t *testing.T) {
	items, err := ParseListing(listingHTML, testSource())
	if err != nil {
		t.Fatalf("ParseListing failed: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items (titleless block dropped), got %d", len(items))
	}

	first := items[0]
	if first.Title != "NHNN giữ nguyên lãi suất điều hành" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.URL != "https://vnexpress.net/kinh-doanh/bai-mot-1234.html" {
		t.Errorf("relative href not resolved: %q", first.URL)
	}
	if first.Summary != "Ngân hàng Nhà nước quyết định giữ nguyên các mức lãi suất điều hành trong quý này." {
		t.Errorf("Summary = %q", first.Summary)
	}
	if first.PublishedDateText != "28/8/2026" {
		t.Errorf("PublishedDateText = %q", first.PublishedDateText)
	}
	if first.SourceLabel != "VnExpress - Kinh doanh" {
		t.Errorf("SourceLabel = %q", first.SourceLabel)
	}

	second := items[1]
	if second.URL != "https://vnexpress.net/bai-hai-5678.html" {
		t.Errorf("absolute href should pass through: %q", second.URL)
	}
	// No .description on the second block: the first substantial paragraph
	// serves as the summary, skipping the too-short one.
	if second.Summary != "Ngân hàng báo lãi trước thuế tăng mạnh so với cùng kỳ năm ngoái." {
		t.Errorf("fallback Summary = %q", second.Summary)
	}
}

func TestParseListing_FallbackTitleSelector(t *testing.T) {
	src := testSource()
	src.TitleSelector = ".does-not-exist a"

	items, err := ParseListing(listingHTML, src)
	if err != nil {
		t.Fatalf("ParseListing failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("fallback selectors should still find titles, got %d items", len(items))
	}
}

func TestParseListing_DeduplicatesWithinPage(t *testing.T) {
	html := `
<div class="item-news"><h3 class="title-news"><a href="/a.html">Tin A</a></h3></div>
<div class="item-news"><h3 class="title-news"><a href="/a.html">Tin A (nhắc lại)</a></h3></div>`

	items, err := ParseListing(html, testSource())
	if err != nil {
		t.Fatalf("ParseListing failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("same href twice on one page should yield 1 item, got %d", len(items))
	}
}

func TestParseListing_MissingHrefFallsBackToPageURL(t *testing.T) {
	html := `<div class="item-news"><h3 class="title-news"><a>Chỉ số P/B là gì?</a></h3></div>`

	items, err := ParseListing(html, testSource())
	if err != nil {
		t.Fatalf("ParseListing failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].URL != "https://vnexpress.net/kinh-doanh" {
		t.Errorf("URL = %q, want the listing page URL", items[0].URL)
	}
}

func TestScrapeSource(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Write([]byte(listingHTML))
	}))
	defer server.Close()

	src := testSource()
	src.URL = server.URL

	items, err := NewScraper().ScrapeSource(context.Background(), src)
	if err != nil {
		t.Fatalf("ScrapeSource failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}
	if gotUserAgent == "" {
		t.Error("expected a User-Agent header on the request")
	}
}

func TestScrapeSource_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	src := testSource()
	src.URL = server.URL

	if _, err := NewScraper().ScrapeSource(context.Background(), src); err == nil {
		t.Error("expected an error for a 403 response")
	}
}
