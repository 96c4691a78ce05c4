package pipeline

import (
	"context"
	"sync"

	"github.com/skyflick/skyflick/internal/domain"
)

// resolveAll fans out catalog lookups, one goroutine per candidate title.
// Output order and length always match the input; per-title failures become
// not-found entries and never abort the batch. On context cancellation the
// remaining lookups fail fast and the whole result is discarded by the caller.
func (p *Pipeline) resolveAll(ctx context.Context, runID string, titles []domain.CandidateTitle) []domain.ResolvedMovie {
	movies := make([]domain.ResolvedMovie, len(titles))

	var wg sync.WaitGroup
	for i, title := range titles {
		wg.Add(1)
		go func(i int, title domain.CandidateTitle) {
			defer wg.Done()
			movies[i] = p.resolveOne(ctx, runID, title)
		}(i, title)
	}
	wg.Wait()

	return movies
}

// resolveOne looks up a single title, converting lookup errors and empty
// results into a not-found status.
func (p *Pipeline) resolveOne(ctx context.Context, runID string, title domain.CandidateTitle) domain.ResolvedMovie {
	meta, err := p.catalog.SearchMovie(ctx, title.QueryTitle())
	if err != nil {
		p.metrics.CatalogLookups.WithLabelValues("error").Inc()
		p.logger.Warn("catalog lookup failed",
			"run_id", runID, "stage", StageResolve,
			"title", title.DisplayTitle, "error", err)
		return domain.ResolvedMovie{Title: title.DisplayTitle, SearchStatus: domain.StatusNotFound}
	}
	if meta == nil {
		p.metrics.CatalogLookups.WithLabelValues("not_found").Inc()
		return domain.ResolvedMovie{Title: title.DisplayTitle, SearchStatus: domain.StatusNotFound}
	}

	p.metrics.CatalogLookups.WithLabelValues("found").Inc()
	return domain.ResolvedMovie{
		Title:        title.DisplayTitle,
		SearchStatus: domain.StatusFound,
		Metadata:     meta,
	}
}
