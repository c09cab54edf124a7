package dashboard

import (
	"encoding/json"
	"time"
)

// Metric types that can be charted over time.
const (
	MetricLicenses = "licenses"
	MetricAssets   = "assets"
	MetricMembers  = "members"
)

// MetricTypes lists every chartable metric.
var MetricTypes = []string{MetricLicenses, MetricAssets, MetricMembers}

// TimeRange is a trailing window of whole days, e.g. "30d".
type TimeRange string

// Supported time ranges.
const (
	Range7d  TimeRange = "7d"
	Range30d TimeRange = "30d"
	Range90d TimeRange = "90d"
)

// Days returns the window length, or 0 for an unsupported range.
func (r TimeRange) Days() int {
	switch r {
	case Range7d:
		return 7
	case Range30d:
		return 30
	case Range90d:
		return 90
	}
	return 0
}

// ValidMetricType reports whether m is a chartable metric.
func ValidMetricType(m string) bool {
	for _, t := range MetricTypes {
		if m == t {
			return true
		}
	}
	return false
}

// TeamMetrics are an account's headline figures.
type TeamMetrics struct {
	TotalLicenses    int `json:"totalLicenses"`
	ExpiringLicenses int `json:"expiringLicenses"`
	ExpiredLicenses  int `json:"expiredLicenses"`
	TotalSeats       int `json:"totalSeats"`
	TotalAssets      int `json:"totalAssets"`
	AssignedAssets   int `json:"assignedAssets"`
	Members          int `json:"members"`
}

// TrendPoint is one day of a trend series.
type TrendPoint struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
}

// StatusCount is the number of assets in a status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Widget is one tile of a user's dashboard layout.
type Widget struct {
	Position int             `json:"position"`
	Type     string          `json:"type"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Overview bundles the figures shown on the dashboard landing page.
type Overview struct {
	Metrics     TeamMetrics   `json:"metrics"`
	AssetStatus []StatusCount `json:"assetStatus"`
	AssetTrend  []TrendPoint  `json:"assetTrend"`
	GeneratedAt time.Time     `json:"generatedAt"`
}
