// Package tmdb implements the movie catalog gateway against the TMDB search
// API.
package tmdb

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/skyflick/skyflick/internal/config"
	"github.com/skyflick/skyflick/internal/domain"
	"github.com/skyflick/skyflick/internal/observability"
)

const serviceLabel = "tmdb"

// mediaKindMovie is the only media kind consumed from ranked search results;
// TV and person entries are skipped.
const mediaKindMovie = "movie"

// Client implements domain.MovieCatalog using the TMDB multi search endpoint.
type Client struct {
	apiKey       string
	baseURL      string
	imageBaseURL string
	posterSize   string
	httpClient   *http.Client
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewClient creates a movie catalog client.
func NewClient(cfg config.TMDBConfig, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		imageBaseURL: cfg.ImageBaseURL,
		posterSize:   cfg.PosterSize,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		logger:       logger,
		metrics:      metrics,
	}
}

// SearchMovie looks up a title and returns the first movie-kind result, or
// nil when the catalog has no movie match. Errors carry the per-title
// catalog-lookup kind; the caller converts them to a not-found status.
func (c *Client) SearchMovie(ctx context.Context, title string) (*domain.MovieMetadata, error) {
	params := url.Values{
		"api_key":       {c.apiKey},
		"query":         {title},
		"language":      {"ko-KR"},
		"include_adult": {"false"},
		"page":          {"1"},
	}
	fullURL := c.baseURL + "/search/multi?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, domain.Errorf(domain.KindCatalogLookupFailed, "create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(serviceLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "error").Inc()
		return nil, domain.Errorf(domain.KindCatalogLookupFailed, "catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, domain.Errorf(domain.KindCatalogLookupFailed,
			"catalog API status %d: %s", resp.StatusCode, body)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "error").Inc()
		return nil, domain.Errorf(domain.KindCatalogLookupFailed, "decode catalog response: %w", err)
	}
	c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "success").Inc()

	for _, r := range sr.Results {
		if r.MediaType != mediaKindMovie {
			continue
		}
		meta := &domain.MovieMetadata{
			ID:          r.ID,
			Overview:    r.Overview,
			ReleaseDate: r.ReleaseDate,
		}
		if r.PosterPath != "" {
			meta.PosterURL = c.imageBaseURL + c.posterSize + r.PosterPath
		}
		return meta, nil
	}
	return nil, nil
}

// TMDB API response types.

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID          int64  `json:"id"`
	MediaType   string `json:"media_type"`
	Title       string `json:"title"`
	Overview    string `json:"overview"`
	ReleaseDate string `json:"release_date"`
	PosterPath  string `json:"poster_path"`
}
