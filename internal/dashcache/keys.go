package dashcache

import (
	"strings"
)

// Key kinds. A key is "<kind>:<accountSlug>[:<dimension>...]".
const (
	KindTeamMetrics = "team-metrics"
	KindTrends      = "trends"
	KindAssetStatus = "asset-status"
	KindWidgets     = "widgets"
)

var componentEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// escape keeps separators out of key components so distinct inputs never
// produce the same key.
func escape(s string) string {
	return componentEscaper.Replace(s)
}

func build(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(kind)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(escape(p))
	}
	return b.String()
}

// TeamMetrics is the key for an account's headline metrics.
func TeamMetrics(accountSlug string) string {
	return build(KindTeamMetrics, accountSlug)
}

// Trends is the key for a metric's time series over a range, e.g.
// "trends:acme-inc:assets:30d".
func Trends(accountSlug, metricType, timeRange string) string {
	return build(KindTrends, accountSlug, metricType, timeRange)
}

// AssetStatus is the key for an account's asset status distribution.
func AssetStatus(accountSlug string) string {
	return build(KindAssetStatus, accountSlug)
}

// Widgets is the key for a user's widget layout within an account.
func Widgets(accountSlug, userID string) string {
	return build(KindWidgets, accountSlug, userID)
}

// AccountPrefix returns the prefix shared by every key of kind for an account,
// including the trailing separator.
func AccountPrefix(kind, accountSlug string) string {
	return build(kind, accountSlug) + ":"
}
