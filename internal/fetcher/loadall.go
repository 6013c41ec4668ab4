package fetcher

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/bnema/adblock-filter-compiler/internal/models"
)

// LoadResult is the outcome of loading one list
type LoadResult struct {
	List     models.FilterList
	Document models.SourceDocument
	Bytes    int
	Err      error
}

// LoadAll loads every list concurrently with at most workers in flight.
// Results are returned in list order; failed lists carry Err and an empty
// document.
func (f *Fetcher) LoadAll(ctx context.Context, lists []models.FilterList, workers int) []LoadResult {
	p := pool.New()
	if workers > 0 {
		p = p.WithMaxGoroutines(workers)
	}

	results := make([]LoadResult, len(lists))
	for i, list := range lists {
		p.Go(func() {
			doc, err := f.Load(ctx, list)
			results[i] = LoadResult{List: list, Document: doc, Bytes: len(doc.Text), Err: err}
			if err != nil {
				f.logger.Warnw("Source unavailable", "list", list.Name, "error", err)
			}
		})
	}
	p.Wait()

	return results
}

// Documents returns the documents of the successful results
func Documents(results []LoadResult) []models.SourceDocument {
	var docs []models.SourceDocument
	for _, r := range results {
		if r.Err == nil {
			docs = append(docs, r.Document)
		}
	}
	return docs
}
