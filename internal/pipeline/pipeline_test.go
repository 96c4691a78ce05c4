package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyflick/skyflick/internal/domain"
	"github.com/skyflick/skyflick/internal/observability"
)

type stubWeather struct {
	items    []domain.ObservationItem
	err      error
	gotCell  domain.GridCell
	numCalls int
}

func (s *stubWeather) Observations(ctx context.Context, cell domain.GridCell) ([]domain.ObservationItem, error) {
	s.numCalls++
	s.gotCell = cell
	return s.items, s.err
}

type stubGenerator struct {
	result    domain.GenerationResult
	err       error
	gotPrompt string
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string, temperature float64, maxOutputTokens int) (domain.GenerationResult, error) {
	s.gotPrompt = prompt
	return s.result, s.err
}

type stubCatalog struct {
	mu      sync.Mutex
	results map[string]*domain.MovieMetadata
	errOn   map[string]error
	queries []string
}

func (s *stubCatalog) SearchMovie(ctx context.Context, title string) (*domain.MovieMetadata, error) {
	s.mu.Lock()
	s.queries = append(s.queries, title)
	s.mu.Unlock()
	if err := s.errOn[title]; err != nil {
		return nil, err
	}
	return s.results[title], nil
}

type stubPublisher struct {
	events []domain.RecommendationEvent
	err    error
}

func (s *stubPublisher) Publish(ctx context.Context, event domain.RecommendationEvent) error {
	s.events = append(s.events, event)
	return s.err
}

func defaultObservations() []domain.ObservationItem {
	mk := func(cat, val string) domain.ObservationItem {
		return domain.ObservationItem{Category: cat, Value: val, ForecastDate: "20260831", ForecastTime: "1030"}
	}
	return []domain.ObservationItem{
		mk("SKY", "4"), mk("PTY", "0"), mk("T1H", "16.0"),
		mk("REH", "85"), mk("WSD", "2.4"),
	}
}

func newTestPipeline(w WeatherGateway, g TextGenerator, c domain.MovieCatalog, e EventPublisher) *Pipeline {
	return New(w, g, c, e,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting(), 0.8, 1024)
}

func TestPipeline_Run(t *testing.T) {
	weather := &stubWeather{items: defaultObservations()}
	generator := &stubGenerator{result: domain.GenerationResult{Text: "[영화1, 영화2]", TokensUsed: 150}}
	catalog := &stubCatalog{results: map[string]*domain.MovieMetadata{
		"영화1": {ID: 1, Overview: "줄거리1"},
		"영화2": {ID: 2, Overview: "줄거리2"},
	}}

	p := newTestPipeline(weather, generator, catalog, nil)
	seoul := domain.Position{Latitude: 37.5665, Longitude: 126.9780}

	res, err := p.Run(context.Background(), Request{Position: &seoul})

	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, domain.GridCell{X: 60, Y: 127}, res.Grid)
	assert.Equal(t, domain.GridCell{X: 60, Y: 127}, weather.gotCell)
	assert.Equal(t, "흐림", res.Weather.Description)
	assert.Contains(t, generator.gotPrompt, "현재 날씨는 흐림")

	require.Len(t, res.Movies, 2)
	assert.Equal(t, "영화1", res.Movies[0].Title)
	assert.Equal(t, domain.StatusFound, res.Movies[0].SearchStatus)
	require.NotNil(t, res.Movies[0].Metadata)
	assert.Equal(t, int64(1), res.Movies[0].Metadata.ID)
	assert.Equal(t, domain.StatusFound, res.Movies[1].SearchStatus)
}

func TestPipeline_Run_GridPassthrough(t *testing.T) {
	weather := &stubWeather{items: defaultObservations()}
	generator := &stubGenerator{result: domain.GenerationResult{Text: "[영화1]"}}
	catalog := &stubCatalog{}

	p := newTestPipeline(weather, generator, catalog, nil)
	cell := domain.GridCell{X: 98, Y: 76}

	res, err := p.Run(context.Background(), Request{Grid: &cell})

	require.NoError(t, err)
	assert.Equal(t, cell, res.Grid)
	assert.Equal(t, cell, weather.gotCell)
}

func TestPipeline_Run_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"neither position nor grid", Request{}},
		{"latitude out of range", Request{Position: &domain.Position{Latitude: 95, Longitude: 127}}},
		{"longitude out of range", Request{Position: &domain.Position{Latitude: 37, Longitude: 200}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			weather := &stubWeather{items: defaultObservations()}
			p := newTestPipeline(weather, &stubGenerator{}, &stubCatalog{}, nil)

			res, err := p.Run(context.Background(), tt.req)

			require.Error(t, err)
			assert.Equal(t, StateFailed, res.State)

			var se *domain.StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, StageLocate, se.Stage)
			assert.Equal(t, domain.KindInvalidInput, se.Kind)
			assert.Zero(t, weather.numCalls)
		})
	}
}

func TestPipeline_Run_WeatherGatewayFailure(t *testing.T) {
	weather := &stubWeather{err: domain.Errorf(domain.KindUpstreamUnavailable, "weather API status 502")}
	p := newTestPipeline(weather, &stubGenerator{}, &stubCatalog{}, nil)
	seoul := domain.Position{Latitude: 37.5665, Longitude: 126.9780}

	res, err := p.Run(context.Background(), Request{Position: &seoul})

	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)

	var se *domain.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageWeather, se.Stage)
	assert.Equal(t, domain.KindUpstreamUnavailable, se.Kind)
}

func TestPipeline_Run_EmptyObservations(t *testing.T) {
	weather := &stubWeather{items: nil}
	p := newTestPipeline(weather, &stubGenerator{}, &stubCatalog{}, nil)
	seoul := domain.Position{Latitude: 37.5665, Longitude: 126.9780}

	res, err := p.Run(context.Background(), Request{Position: &seoul})

	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)

	var se *domain.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageNormalize, se.Stage)
	assert.Equal(t, domain.KindMalformedUpstreamData, se.Kind)
}

func TestPipeline_Run_TruncatedGeneration(t *testing.T) {
	weather := &stubWeather{items: defaultObservations()}
	generator := &stubGenerator{
		result: domain.GenerationResult{Text: "[영화1, 영화", Truncated: true},
		err:    domain.Errorf(domain.KindTruncated, "generation stopped early: finish reason MAX_TOKENS"),
	}
	p := newTestPipeline(weather, generator, &stubCatalog{}, nil)
	seoul := domain.Position{Latitude: 37.5665, Longitude: 126.9780}

	res, err := p.Run(context.Background(), Request{Position: &seoul})

	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	// A truncated generation never yields a partial movie list.
	assert.Empty(t, res.Movies)

	var se *domain.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageGenerate, se.Stage)
	assert.Equal(t, domain.KindTruncated, se.Kind)
}

func TestPipeline_Run_NoTitlesIsNotFatal(t *testing.T) {
	weather := &stubWeather{items: defaultObservations()}
	generator := &stubGenerator{result: domain.GenerationResult{Text: "죄송하지만 추천할 영화가 없습니다."}}
	p := newTestPipeline(weather, generator, &stubCatalog{}, nil)
	seoul := domain.Position{Latitude: 37.5665, Longitude: 126.9780}

	res, err := p.Run(context.Background(), Request{Position: &seoul})

	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Empty(t, res.Movies)
}

func TestPipeline_Run_ResolverIsolatesFailures(t *testing.T) {
	weather := &stubWeather{items: defaultObservations()}
	generator := &stubGenerator{result: domain.GenerationResult{Text: "[영화1, 영화2, 영화3]"}}
	catalog := &stubCatalog{
		results: map[string]*domain.MovieMetadata{
			"영화1": {ID: 1},
			"영화3": {ID: 3},
		},
		errOn: map[string]error{
			"영화2": fmt.Errorf("catalog timeout"),
		},
	}
	p := newTestPipeline(weather, generator, catalog, nil)
	seoul := domain.Position{Latitude: 37.5665, Longitude: 126.9780}

	res, err := p.Run(context.Background(), Request{Position: &seoul})

	require.NoError(t, err)
	require.Len(t, res.Movies, 3)
	assert.Equal(t, domain.StatusFound, res.Movies[0].SearchStatus)
	assert.Equal(t, domain.StatusNotFound, res.Movies[1].SearchStatus)
	assert.Nil(t, res.Movies[1].Metadata)
	assert.Equal(t, domain.StatusFound, res.Movies[2].SearchStatus)
	// Order follows the extracted titles regardless of lookup completion order.
	assert.Equal(t, []string{"영화1", "영화2", "영화3"},
		[]string{res.Movies[0].Title, res.Movies[1].Title, res.Movies[2].Title})
}

// blockingCatalog parks every lookup until the context is cancelled.
type blockingCatalog struct{}

func (blockingCatalog) SearchMovie(ctx context.Context, title string) (*domain.MovieMetadata, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestPipeline_ResolveAll_ContextCancel(t *testing.T) {
	p := newTestPipeline(&stubWeather{}, &stubGenerator{}, blockingCatalog{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	titles := []domain.CandidateTitle{
		{DisplayTitle: "영화1"}, {DisplayTitle: "영화2"}, {DisplayTitle: "영화3"},
	}

	done := make(chan []domain.ResolvedMovie, 1)
	go func() { done <- p.resolveAll(ctx, "run-1", titles) }()

	cancel()

	select {
	case movies := <-done:
		// Abandoned lookups still yield a full-length result; every entry is
		// not_found because the caller discards the run anyway.
		require.Len(t, movies, len(titles))
		for i, m := range movies {
			assert.Equal(t, titles[i].DisplayTitle, m.Title)
			assert.Equal(t, domain.StatusNotFound, m.SearchStatus)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("resolver did not return after context cancellation")
	}
}

func TestPipeline_Run_ExclusionsReachPrompt(t *testing.T) {
	weather := &stubWeather{items: defaultObservations()}
	generator := &stubGenerator{result: domain.GenerationResult{Text: "[영화3]"}}
	p := newTestPipeline(weather, generator, &stubCatalog{}, nil)
	seoul := domain.Position{Latitude: 37.5665, Longitude: 126.9780}

	_, err := p.Run(context.Background(), Request{
		Position:      &seoul,
		Selections:    domain.UserSelection{"mood": "편안한"},
		ExcludeTitles: []string{"영화1", "영화2"},
	})

	require.NoError(t, err)
	assert.Contains(t, generator.gotPrompt, "제외해줘: 영화1, 영화2")
	assert.Contains(t, generator.gotPrompt, "기분: 편안한")
}

func TestPipeline_Run_PublishesEvent(t *testing.T) {
	weather := &stubWeather{items: defaultObservations()}
	generator := &stubGenerator{result: domain.GenerationResult{Text: "[영화1]"}}
	catalog := &stubCatalog{results: map[string]*domain.MovieMetadata{"영화1": {ID: 1}}}
	publisher := &stubPublisher{}

	p := newTestPipeline(weather, generator, catalog, publisher)
	seoul := domain.Position{Latitude: 37.5665, Longitude: 126.9780}

	res, err := p.Run(context.Background(), Request{Position: &seoul})

	require.NoError(t, err)
	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, res.RunID, event.RunID)
	assert.Equal(t, res.Grid, event.Grid)
	assert.Len(t, event.Movies, 1)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestPipeline_Run_PublishFailureIsNotFatal(t *testing.T) {
	weather := &stubWeather{items: defaultObservations()}
	generator := &stubGenerator{result: domain.GenerationResult{Text: "[영화1]"}}
	publisher := &stubPublisher{err: fmt.Errorf("broker unreachable")}

	p := newTestPipeline(weather, generator, &stubCatalog{}, publisher)
	seoul := domain.Position{Latitude: 37.5665, Longitude: 126.9780}

	res, err := p.Run(context.Background(), Request{Position: &seoul})

	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
}

func TestPipeline_CheckReadiness(t *testing.T) {
	p := newTestPipeline(&stubWeather{}, &stubGenerator{}, &stubCatalog{}, nil)

	assert.NoError(t, p.CheckReadiness(context.Background()))
}
