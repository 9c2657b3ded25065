// Package catalog joins the cached KLARA catalog with the locally stored
// overrides and serves the merged views to the storefront and admin surfaces.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/illmade-knight/go-klaracatalog/pkg/cache"
	"github.com/illmade-knight/go-klaracatalog/pkg/enrichment"
	"github.com/illmade-knight/go-klaracatalog/pkg/klara"
	"github.com/illmade-knight/go-klaracatalog/pkg/override"
	"github.com/rs/zerolog"
)

// ErrArticleNotFound is returned when an article id is not in the catalog.
var ErrArticleNotFound = errors.New("article not found")

// Source is the read side of the KLARA catalog. *klara.Client satisfies it.
type Source interface {
	FetchArticles(ctx context.Context, categoryID, search string) []klara.Article
	FetchCategories(ctx context.Context) []klara.Category
	CountArticlesInCategory(ctx context.Context, categoryID string) int
	InvalidateAll(ctx context.Context)
	Stats() (cache.CacheStats, bool)
}

// Broadcaster fans a cache clear out to other instances.
type Broadcaster interface {
	PublishClear(ctx context.Context, reason string) error
}

// CategoryView is a category together with the number of articles in it.
type CategoryView struct {
	klara.Category
	ArticleCount int `json:"articleCount"`
}

// AdminArticle is an admin row: the merged view plus the raw override, so the
// edit form can tell inherited values from overridden ones.
type AdminArticle struct {
	override.ArticleView
	Canonical klara.Article      `json:"canonical"`
	Override  *override.Override `json:"override,omitempty"`
	// Degraded is set when the override store could not be read. Visible then
	// reflects the last state seen, and unknown articles are treated as hidden.
	Degraded bool `json:"degraded,omitempty"`
}

// Option configures a Service.
type Option func(*Service)

// WithBroadcaster publishes cache clears to other instances.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Service) { s.broadcaster = b }
}

// WithClock overrides the time source used for the "new" badge and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is the composition of catalog source and override store.
type Service struct {
	source      Source
	overrides   override.Store
	broadcaster Broadcaster
	now         func() time.Time
	logger      zerolog.Logger
	enrich      enrichment.BatchEnricher[klara.Article, AdminArticle]
	visibility  *visibilityMemo
}

// NewService creates a catalog Service.
func NewService(source Source, overrides override.Store, logger zerolog.Logger, opts ...Option) (*Service, error) {
	if source == nil || overrides == nil {
		return nil, fmt.Errorf("catalog source and override store cannot be nil")
	}
	s := &Service{
		source:     source,
		overrides:  overrides,
		now:        time.Now,
		logger:     logger.With().Str("component", "CatalogService").Logger(),
		visibility: newVisibilityMemo(),
	}
	for _, opt := range opts {
		opt(s)
	}

	enrich, err := enrichment.NewBatchEnricherFunc(
		overrides.GetMany,
		func(a klara.Article) (string, bool) { return a.ID, a.ID != "" },
		s.apply,
		s.logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create override enricher: %w", err)
	}
	s.enrich = enrich
	return s, nil
}

func (s *Service) apply(a klara.Article, ov *override.Override, found bool) AdminArticle {
	if !found {
		ov = nil
	}
	return AdminArticle{
		ArticleView: override.Merge(a, ov, s.now()),
		Canonical:   a,
		Override:    ov,
	}
}

// AdminArticles returns every article, hidden ones included, with its override.
func (s *Service) AdminArticles(ctx context.Context, categoryID, search string) []AdminArticle {
	return s.merged(ctx, s.source.FetchArticles(ctx, categoryID, search))
}

// merged joins overrides onto articles. When the override store is
// unavailable the rows carry canonical data, and visibility falls back to
// the last known state so hidden articles stay hidden.
func (s *Service) merged(ctx context.Context, articles []klara.Article) []AdminArticle {
	rows, degraded := s.enrich(ctx, articles)
	if !degraded {
		s.visibility.record(rows)
		return rows
	}
	s.logger.Warn().Int("article_count", len(rows)).Msg("Override store unavailable, serving canonical data with last known visibility.")
	for i := range rows {
		rows[i].Degraded = true
		rows[i].Visible = s.visibility.lastKnown(rows[i].ID)
	}
	return rows
}

// ListArticles returns merged article views. Hidden articles are dropped
// unless includeHidden is set.
func (s *Service) ListArticles(ctx context.Context, categoryID, search string, includeHidden bool) []override.ArticleView {
	rows := s.AdminArticles(ctx, categoryID, search)
	out := make([]override.ArticleView, 0, len(rows))
	for _, row := range rows {
		if !row.Visible && !includeHidden {
			continue
		}
		out = append(out, row.ArticleView)
	}
	return out
}

// GetArticle returns the admin row for a single article.
func (s *Service) GetArticle(ctx context.Context, id string) (AdminArticle, error) {
	canonical, err := s.findArticle(ctx, id)
	if err != nil {
		return AdminArticle{}, err
	}
	return s.merged(ctx, []klara.Article{canonical})[0], nil
}

func (s *Service) findArticle(ctx context.Context, id string) (klara.Article, error) {
	for _, a := range s.source.FetchArticles(ctx, "", "") {
		if a.ID == id {
			return a, nil
		}
	}
	return klara.Article{}, fmt.Errorf("%w: %s", ErrArticleNotFound, id)
}

// Categories returns all categories with their article counts. The counts
// come from a single article listing.
func (s *Service) Categories(ctx context.Context) []CategoryView {
	categories := s.source.FetchCategories(ctx)
	out := make([]CategoryView, 0, len(categories))
	if len(categories) == 0 {
		return out
	}
	articles := s.source.FetchArticles(ctx, "", "")
	for _, c := range categories {
		count := 0
		for _, a := range articles {
			if a.InCategory(c.ID) {
				count++
			}
		}
		out = append(out, CategoryView{Category: c, ArticleCount: count})
	}
	return out
}

// CountArticlesInCategory returns the canonical article count of a category.
func (s *Service) CountArticlesInCategory(ctx context.Context, categoryID string) int {
	return s.source.CountArticlesInCategory(ctx, categoryID)
}

// SaveOverride diffs form against the canonical article and persists the
// result. An override that changes nothing is deleted instead of stored.
func (s *Service) SaveOverride(ctx context.Context, id string, form override.Form) (*override.Override, error) {
	canonical, err := s.findArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	ov, err := override.BuildPayload(canonical, form)
	if err != nil {
		return nil, err
	}
	if ov.IsEmpty() {
		if err := s.overrides.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to delete empty override for %s: %w", id, err)
		}
		s.visibility.set(id, true)
		s.logger.Info().Str("article_id", id).Msg("Override matched canonical data and was removed.")
		return ov, nil
	}
	ov.UpdatedAt = s.now().UTC()
	if err := s.overrides.Save(ctx, ov); err != nil {
		return nil, fmt.Errorf("failed to save override for %s: %w", id, err)
	}
	s.visibility.set(id, ov.IsActive == nil || *ov.IsActive)
	s.logger.Info().Str("article_id", id).Str("state", string(override.StateOf(ov))).Msg("Override saved.")
	return ov, nil
}

// DeleteOverride reverts an article to its canonical data.
func (s *Service) DeleteOverride(ctx context.Context, id string) error {
	if err := s.overrides.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete override for %s: %w", id, err)
	}
	s.visibility.set(id, true)
	s.logger.Info().Str("article_id", id).Msg("Override deleted.")
	return nil
}

// ClearCache empties the local catalog cache and, when configured, asks the
// other instances to do the same. A failed broadcast is logged; the local
// clear has already happened.
func (s *Service) ClearCache(ctx context.Context, reason string) {
	s.source.InvalidateAll(ctx)
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.PublishClear(ctx, reason); err != nil {
		s.logger.Error().Err(err).Msg("Failed to broadcast cache clear.")
	}
}

// CacheStats reports the catalog cache contents, if the store supports it.
func (s *Service) CacheStats() (cache.CacheStats, bool) {
	return s.source.Stats()
}
