package domain

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Search status values for resolved movies.
const (
	StatusFound    = "found"
	StatusNotFound = "not_found"
)

// CandidateTitle is an unverified movie name extracted from generated text,
// prior to catalog resolution.
type CandidateTitle struct {
	RawText      string `json:"-"`
	DisplayTitle string `json:"display_title"`
}

var parentheticalRe = regexp.MustCompile(`\([^)]*\)`)

// QueryTitle returns the cleaned, parenthetical-free string used as the
// catalog query key. The Local(Foreign) dual form is informational for the
// generator, not part of the lookup key.
func (c CandidateTitle) QueryTitle() string {
	s := parentheticalRe.ReplaceAllString(c.DisplayTitle, " ")
	return strings.Join(strings.Fields(s), " ")
}

// MovieMetadata holds the catalog fields of a found movie.
type MovieMetadata struct {
	ID          int64  `json:"id"`
	Overview    string `json:"overview,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	PosterURL   string `json:"poster_url,omitempty"`
}

// ResolvedMovie is the per-title resolution outcome. Entries are independent
// of their siblings; a lookup failure surfaces as StatusNotFound, never as an
// error for the batch.
type ResolvedMovie struct {
	Title        string         `json:"title"`
	SearchStatus string         `json:"search_status"`
	Metadata     *MovieMetadata `json:"metadata,omitempty"`
}

// MovieCatalog looks up a title against the external movie catalog.
// A nil result with a nil error means the catalog had no movie-kind match.
type MovieCatalog interface {
	SearchMovie(ctx context.Context, title string) (*MovieMetadata, error)
}

// GenerationResult is the normalized output of the text generation service.
type GenerationResult struct {
	Text       string `json:"text"`
	TokensUsed int    `json:"tokens_used"`
	Truncated  bool   `json:"truncated"`
}

// RecommendationEvent is the record published for each completed run.
type RecommendationEvent struct {
	RunID     string            `json:"run_id"`
	Grid      GridCell          `json:"grid"`
	Weather   NormalizedWeather `json:"weather"`
	Movies    []ResolvedMovie   `json:"movies"`
	CreatedAt time.Time         `json:"created_at"`
}
