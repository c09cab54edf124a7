// Package dashboard serves account dashboard aggregates through the
// dashboard cache.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fluxera/fluxera/internal/account"
	"github.com/fluxera/fluxera/internal/apperr"
	"github.com/fluxera/fluxera/internal/dashcache"
)

// DefaultExpiringWindow is how far ahead a license counts as expiring.
const DefaultExpiringWindow = 30 * 24 * time.Hour

const maxWidgets = 24

// Recorder receives cache hit and miss notifications per key kind.
type Recorder interface {
	CacheHit(kind string)
	CacheMiss(kind string)
}

type nopRecorder struct{}

func (nopRecorder) CacheHit(string)  {}
func (nopRecorder) CacheMiss(string) {}

// Service computes dashboard figures, serving repeated reads from the cache.
type Service struct {
	repo           Repository
	cache          *dashcache.Cache
	recorder       Recorder
	expiringWindow time.Duration
	now            func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder reports cache hits and misses to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithExpiringWindow sets how far ahead a license counts as expiring.
func WithExpiringWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.expiringWindow = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service.
func NewService(repo Repository, cache *dashcache.Cache, opts ...Option) *Service {
	s := &Service{
		repo:           repo,
		cache:          cache,
		recorder:       nopRecorder{},
		expiringWindow: DefaultExpiringWindow,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func cached[T any](s *Service, kind, key string, compute func() (T, error)) (T, error) {
	v, hit, err := dashcache.Fetch(s.cache, key, 0, compute)
	if err != nil {
		return v, err
	}
	if hit {
		s.recorder.CacheHit(kind)
	} else {
		s.recorder.CacheMiss(kind)
	}
	return v, nil
}

// TeamMetrics returns the account's headline figures.
func (s *Service) TeamMetrics(ctx context.Context, acct *account.Account) (TeamMetrics, error) {
	return cached(s, dashcache.KindTeamMetrics, dashcache.TeamMetrics(acct.Slug), func() (TeamMetrics, error) {
		return s.repo.TeamMetrics(ctx, acct.ID, s.now().Add(s.expiringWindow))
	})
}

// Trends returns the daily series for metricType over timeRange.
func (s *Service) Trends(ctx context.Context, acct *account.Account, metricType string, timeRange TimeRange) ([]TrendPoint, error) {
	if !ValidMetricType(metricType) {
		return nil, apperr.Validation(
			fmt.Sprintf("metric must be one of: %s", strings.Join(MetricTypes, ", ")),
			apperr.Details{"metric": metricType},
		)
	}
	days := timeRange.Days()
	if days == 0 {
		return nil, apperr.Validation("range must be one of: 7d, 30d, 90d", apperr.Details{"range": string(timeRange)})
	}

	key := dashcache.Trends(acct.Slug, metricType, string(timeRange))
	return cached(s, dashcache.KindTrends, key, func() ([]TrendPoint, error) {
		return s.repo.Trend(ctx, acct.ID, metricType, days)
	})
}

// AssetStatus returns the account's asset count per status.
func (s *Service) AssetStatus(ctx context.Context, acct *account.Account) ([]StatusCount, error) {
	return cached(s, dashcache.KindAssetStatus, dashcache.AssetStatus(acct.Slug), func() ([]StatusCount, error) {
		return s.repo.AssetStatus(ctx, acct.ID)
	})
}

// Widgets returns userID's widget layout for the account.
func (s *Service) Widgets(ctx context.Context, acct *account.Account, userID uuid.UUID) ([]Widget, error) {
	return cached(s, dashcache.KindWidgets, dashcache.Widgets(acct.Slug, userID.String()), func() ([]Widget, error) {
		return s.repo.Widgets(ctx, acct.ID, userID)
	})
}

// SaveWidgets replaces userID's widget layout and drops the cached copy.
func (s *Service) SaveWidgets(ctx context.Context, acct *account.Account, userID uuid.UUID, widgets []Widget) error {
	if err := validateWidgets(widgets); err != nil {
		return err
	}
	if err := s.repo.ReplaceWidgets(ctx, acct.ID, userID, widgets); err != nil {
		return err
	}
	s.cache.Delete(dashcache.Widgets(acct.Slug, userID.String()))
	return nil
}

// Overview gathers metrics, asset status and the 30 day asset trend
// concurrently.
func (s *Service) Overview(ctx context.Context, acct *account.Account) (Overview, error) {
	var ov Overview
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		m, err := s.TeamMetrics(gctx, acct)
		ov.Metrics = m
		return err
	})
	g.Go(func() error {
		st, err := s.AssetStatus(gctx, acct)
		ov.AssetStatus = st
		return err
	})
	g.Go(func() error {
		tr, err := s.Trends(gctx, acct, MetricAssets, Range30d)
		ov.AssetTrend = tr
		return err
	})

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	ov.GeneratedAt = s.now().UTC()
	return ov, nil
}

// Invalidate drops every account-wide cached figure for slug. Per-user widget
// layouts are left alone.
func (s *Service) Invalidate(slug string) {
	s.cache.Delete(dashcache.TeamMetrics(slug))
	s.cache.Delete(dashcache.AssetStatus(slug))
	s.cache.DeletePrefix(dashcache.AccountPrefix(dashcache.KindTrends, slug))
}

// Purge drops every cached entry of a deleted account, per-user widget
// layouts included, so a later account with the same slug starts cold.
func (s *Service) Purge(slug string) {
	s.Invalidate(slug)
	s.cache.DeletePrefix(dashcache.AccountPrefix(dashcache.KindWidgets, slug))
}

func validateWidgets(widgets []Widget) error {
	if len(widgets) > maxWidgets {
		return apperr.Validation(fmt.Sprintf("at most %d widgets are allowed", maxWidgets), nil)
	}
	seen := make(map[int]bool, len(widgets))
	for _, w := range widgets {
		if strings.TrimSpace(w.Type) == "" {
			return apperr.Validation("widget type is required", apperr.Details{"position": w.Position})
		}
		if w.Position < 0 {
			return apperr.Validation("widget position must not be negative", apperr.Details{"position": w.Position})
		}
		if seen[w.Position] {
			return apperr.Validation("widget positions must be unique", apperr.Details{"position": w.Position})
		}
		seen[w.Position] = true
	}
	return nil
}
