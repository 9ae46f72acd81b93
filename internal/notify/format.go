package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockwatch/internal/alerts"
	"stockwatch/internal/core"
	"stockwatch/internal/metrics"
)

// ReservedChars is Telegram's MarkdownV2 special-character set. Every literal
// occurrence in dynamic text must be backslash-escaped. The channel owns this
// set, so it is injectable; this is the default.
const ReservedChars = "_*[]()~`>#+-=|{}.!"

// Escape backslash-escapes every reserved MarkdownV2 character in s. It is
// applied per field, before any template interpolation, so a pathological
// value can only mangle itself, never the rest of the message.
func Escape(s string) string {
	return EscapeWith(s, ReservedChars)
}

// EscapeWith escapes the given reserved character set.
func EscapeWith(s, reserved string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(reserved, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatKeywordAlert renders the full watchlist-match message: category,
// impact, sentiment, matched keywords, title, analysis snippet, and link.
func FormatKeywordAlert(item *core.Item, decision alerts.Decision) string {
	category := Escape(strings.ToUpper(orDefault(decision.Category, "Tin tức")))
	impact := Escape(orDefault(decision.ImpactLevel, "N/A"))
	sentiment := Escape(orDefault(decision.Sentiment, "N/A"))
	keywords := Escape(strings.Join(decision.MatchedKeywords, ", "))
	title := Escape(item.Title)
	analysis := Escape(decision.AnalysisSummary)
	url := Escape(item.URL)

	parts := []string{
		"🎯 *WATCHLIST ALERT*",
		fmt.Sprintf("📂 %s \\| 📊 %s \\| 💭 %s", category, impact, sentiment),
		fmt.Sprintf("🔍 Từ khóa: *%s*", keywords),
		"\\-\\-\\-",
		fmt.Sprintf("*%s*", title),
		fmt.Sprintf("_%s_", analysis),
		"",
		fmt.Sprintf("[Đọc ngay](%s)", url),
	}

	return strings.Join(parts, "\n")
}

// FormatImpactAlert renders the high-impact message. The leading emoji keys
// off the impact label: "high" burns, everything else sparks.
func FormatImpactAlert(item *core.Item, decision alerts.Decision) string {
	category := Escape(strings.ToUpper(orDefault(decision.Category, "Tin tức")))
	impact := Escape(strings.ToUpper(orDefault(decision.ImpactLevel, "N/A")))
	sentiment := Escape(orDefault(decision.Sentiment, "N/A"))
	title := Escape(item.Title)
	analysis := Escape(decision.AnalysisSummary)
	url := Escape(item.URL)

	emoji := "⚡"
	if strings.EqualFold(decision.ImpactLevel, "high") {
		emoji = "🔥"
	}

	parts := []string{
		fmt.Sprintf("%s *TIN TỨC TÁC ĐỘNG %s*", emoji, impact),
		fmt.Sprintf("📂 %s \\| 💭 %s", category, sentiment),
		"\\-\\-\\-",
		fmt.Sprintf("*%s*", title),
		fmt.Sprintf("_%s_", analysis),
		"",
		fmt.Sprintf("[Đọc ngay](%s)", url),
	}

	return strings.Join(parts, "\n")
}

// FormatFallbackAlert renders the minimal keyword-only message used when
// enrichment failed: title, link, and matched keywords, nothing else.
func FormatFallbackAlert(item *core.Item, matchedKeywords []string) string {
	keywords := Escape(strings.Join(matchedKeywords, ", "))
	title := Escape(item.Title)
	url := Escape(item.URL)

	parts := []string{
		"🔔 *TIN MỚI TỪ WATCHLIST*",
		fmt.Sprintf("🔍 Từ khóa: *%s*", keywords),
		"",
		fmt.Sprintf("*%s*", title),
		"",
		fmt.Sprintf("[Đọc ngay](%s)", url),
	}

	return strings.Join(parts, "\n")
}

// FormatMetricAlert renders the stock-metric change message for one symbol.
func FormatMetricAlert(symbol string, changes []metrics.Change, now time.Time) string {
	parts := []string{
		fmt.Sprintf("📈 *CẢNH BÁO CỔ PHIẾU %s*", Escape(symbol)),
		"",
		"*Thay đổi đáng chú ý:*",
	}

	for _, change := range changes {
		parts = append(parts, fmt.Sprintf("• %s", Escape(change.Describe())))
	}

	parts = append(parts,
		"",
		fmt.Sprintf("🕐 Thời gian: %s", Escape(now.Format("15:04 02/01/2006"))),
	)

	return strings.Join(parts, "\n")
}

// SendMetricAlert formats and delivers a metric-change alert, satisfying the
// metric processor's sender contract.
func (c *TelegramClient) SendMetricAlert(ctx context.Context, symbol string, changes []metrics.Change) error {
	return c.Send(ctx, FormatMetricAlert(symbol, changes, time.Now()))
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
