// Package pipeline orchestrates one recommendation run: position → grid →
// weather → prompt → generated text → candidate titles → resolved movies.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/skyflick/skyflick/internal/domain"
	"github.com/skyflick/skyflick/internal/observability"
)

// State identifies the orchestrator's progress through a run. Transitions
// are strictly forward; Failed is terminal and reachable from any step.
type State string

const (
	StateIdle              State = "idle"
	StateLocated           State = "located"
	StateWeatherFetched    State = "weather_fetched"
	StateWeatherNormalized State = "weather_normalized"
	StatePromptBuilt       State = "prompt_built"
	StateGenerated         State = "generated"
	StateTitlesExtracted   State = "titles_extracted"
	StateResolved          State = "resolved"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// Stage names surfaced to callers and logs. The first four can appear in a
// StageError; extraction and resolution are non-fatal and show up in warn
// logs only.
const (
	StageLocate    = "grid_projector"
	StageWeather   = "weather_gateway"
	StageNormalize = "weather_normalizer"
	StageGenerate  = "text_gateway"
	StageExtract   = "title_extractor"
	StageResolve   = "movie_resolver"
)

// WeatherGateway fetches raw observations for a grid cell.
type WeatherGateway interface {
	Observations(ctx context.Context, cell domain.GridCell) ([]domain.ObservationItem, error)
}

// TextGenerator sends a prompt to the generation service.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, temperature float64, maxOutputTokens int) (domain.GenerationResult, error)
}

// EventPublisher emits completed runs to the event stream. Optional.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.RecommendationEvent) error
}

// Request is the pipeline's public entry input: either a position or a
// precomputed grid cell, plus user preferences and an optional exclusion
// list of previously shown titles.
type Request struct {
	Position      *domain.Position
	Grid          *domain.GridCell
	Selections    domain.UserSelection
	ExcludeTitles []string
}

// Result is the terminal output of a run.
type Result struct {
	RunID   string
	State   State
	Grid    domain.GridCell
	Weather domain.NormalizedWeather
	Movies  []domain.ResolvedMovie
}

// Pipeline sequences the recommendation stages. All state is request-scoped;
// a Pipeline is safe for concurrent runs.
type Pipeline struct {
	weather   WeatherGateway
	generator TextGenerator
	catalog   domain.MovieCatalog
	events    EventPublisher // nil when the event stream is disabled
	logger    *slog.Logger
	metrics   *observability.Metrics

	temperature     float64
	maxOutputTokens int
}

// New creates a Pipeline with the given gateways and observability. Pass a
// nil events publisher to disable the event stream.
func New(weather WeatherGateway, generator TextGenerator, catalog domain.MovieCatalog,
	events EventPublisher, logger *slog.Logger, metrics *observability.Metrics,
	temperature float64, maxOutputTokens int) *Pipeline {
	return &Pipeline{
		weather:         weather,
		generator:       generator,
		catalog:         catalog,
		events:          events,
		logger:          logger,
		metrics:         metrics,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
	}
}

// CheckReadiness reports whether the pipeline can serve runs. Upstream
// credentials are validated at startup, so a constructed pipeline with its
// gateways wired is always ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	return nil
}

// Run executes one recommendation request through the full stage sequence.
// Failures at the weather gateway, normalizer, or text gateway are fatal and
// surface as a *domain.StageError with the originating stage and kind; an
// empty title extraction is not fatal and yields zero movies.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	runID := uuid.NewString()
	res := Result{RunID: runID, State: StateIdle}

	p.metrics.RunsInFlight.Inc()
	defer p.metrics.RunsInFlight.Dec()
	start := time.Now()

	cell, err := p.locate(req)
	if err != nil {
		return p.fail(res, StageLocate, err)
	}
	res.Grid = cell
	res.State = StateLocated

	items, err := p.weather.Observations(ctx, cell)
	if err != nil {
		return p.fail(res, StageWeather, err)
	}
	res.State = StateWeatherFetched

	weather, err := domain.NormalizeWeather(cell, items)
	if err != nil {
		return p.fail(res, StageNormalize, err)
	}
	res.Weather = weather
	res.State = StateWeatherNormalized

	prompt := domain.BuildPrompt(weather, req.Selections, req.ExcludeTitles)
	res.State = StatePromptBuilt

	gen, err := p.generator.Generate(ctx, prompt, p.temperature, p.maxOutputTokens)
	if err != nil {
		return p.fail(res, StageGenerate, err)
	}
	res.State = StateGenerated

	titles := domain.ExtractTitles(gen.Text)
	res.State = StateTitlesExtracted
	if len(titles) == 0 {
		p.logger.Warn("no titles extracted from generation",
			"run_id", runID, "stage", StageExtract)
	}

	res.Movies = p.resolveAll(ctx, runID, titles)
	res.State = StateResolved

	res.State = StateDone
	p.metrics.RunsTotal.WithLabelValues(string(StateDone)).Inc()
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("recommendation run completed",
		"run_id", runID,
		"nx", cell.X, "ny", cell.Y,
		"titles", len(titles),
		"movies", len(res.Movies),
		"duration", time.Since(start))

	p.publishEvent(ctx, res)
	return res, nil
}

// locate resolves the request's grid cell, preferring a precomputed cell and
// otherwise projecting the position after validating it.
func (p *Pipeline) locate(req Request) (domain.GridCell, error) {
	if req.Grid != nil {
		return *req.Grid, nil
	}
	if req.Position == nil {
		return domain.GridCell{}, domain.Errorf(domain.KindInvalidInput,
			"either a position or a grid cell is required")
	}
	if !req.Position.Valid() {
		return domain.GridCell{}, domain.Errorf(domain.KindInvalidInput,
			"coordinates (%v, %v) out of range",
			req.Position.Latitude, req.Position.Longitude)
	}
	return domain.ToGrid(*req.Position), nil
}

// fail records a fatal stage failure and wraps it with the stage name. The
// originating kind passes through unchanged; unclassified errors default to
// the upstream-unavailable kind.
func (p *Pipeline) fail(res Result, stage string, err error) (Result, error) {
	kind := domain.KindOf(err)
	if kind == "" {
		kind = domain.KindUpstreamUnavailable
	}
	res.State = StateFailed
	p.metrics.RunsTotal.WithLabelValues(string(StateFailed)).Inc()
	p.metrics.StageFailures.WithLabelValues(stage, string(kind)).Inc()
	p.logger.Error("pipeline stage failed",
		"run_id", res.RunID, "stage", stage, "kind", string(kind), "error", err)
	return res, &domain.StageError{Stage: stage, Kind: kind, Err: err}
}

// publishEvent emits the completed run to the event stream, best effort.
func (p *Pipeline) publishEvent(ctx context.Context, res Result) {
	if p.events == nil {
		return
	}
	event := domain.RecommendationEvent{
		RunID:     res.RunID,
		Grid:      res.Grid,
		Weather:   res.Weather,
		Movies:    res.Movies,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.events.Publish(ctx, event); err != nil {
		p.metrics.EventPublishErrors.Inc()
		p.logger.Warn("recommendation event publish failed", "run_id", res.RunID, "error", err)
		return
	}
	p.metrics.EventsPublished.Inc()
}
