package climate

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// SeriesBuilder sweeps the baseline years for a query, one fetch at a time.
type SeriesBuilder struct {
	sessions  SessionFactory
	extractor Extractor
	cache     SampleCache
	baseline  Baseline
}

// NewSeriesBuilder creates a SeriesBuilder. cache may be nil to disable memoization.
func NewSeriesBuilder(sessions SessionFactory, extractor Extractor, cache SampleCache, baseline Baseline) *SeriesBuilder {
	return &SeriesBuilder{
		sessions:  sessions,
		extractor: extractor,
		cache:     cache,
		baseline:  baseline,
	}
}

// Baseline returns the configured year range.
func (b *SeriesBuilder) Baseline() Baseline {
	return b.baseline
}

// Build returns the historical sample for q. Per-year failures only shrink the
// sample; the error is non-nil only when no session could be opened.
func (b *SeriesBuilder) Build(ctx context.Context, q Query) (Sample, error) {
	key := q.Key()
	if b.cache != nil {
		if s, ok := b.cache.Get(key); ok {
			log.Printf("DEBUG: sample cache hit for %s (%d points)", key, s.RawDataPoints())
			return s, nil
		}
	}

	session, err := b.sessions.NewSession()
	if err != nil {
		return Sample{}, fmt.Errorf("open archive session: %w", err)
	}
	defer session.Close()

	spec := q.Variable.Spec()
	years := make([]int, 0, b.baseline.Len())
	values := make([]float64, 0, b.baseline.Len())

	log.Printf("INFO: building %s sample for %s over %s", spec.Name, key, b.baseline)

	// Years lost to fetch failures may come back, so such samples are not cached.
	var fetchFailures int
	for year := b.baseline.Start; year <= b.baseline.End; year++ {
		v, err := b.extractor.Extract(ctx, session, year, q, spec)
		if err != nil {
			if logYearFailure(spec.Name, year, err) {
				fetchFailures++
			}
			continue
		}
		years = append(years, year)
		values = append(values, v)
	}

	s := NewSample(q, b.baseline, years, values)
	log.Printf("INFO: retrieved %d/%d years for %s", s.RawDataPoints(), b.baseline.Len(), key)

	switch {
	case b.cache == nil:
	case fetchFailures > 0:
		log.Printf("WARN: not caching %s: %d years failed to fetch", key, fetchFailures)
	default:
		b.cache.Put(key, s)
	}
	return s, nil
}

// logYearFailure reports a skipped year and whether it was a fetch failure.
func logYearFailure(name string, year int, err error) bool {
	var extractErr *ExtractionError
	switch {
	case errors.Is(err, ErrMissingYear):
		log.Printf("INFO: %s %d skipped: %v", name, year, err)
	case errors.As(err, &extractErr):
		log.Printf("WARN: %s %d extraction failed: %v", name, year, err)
	default:
		log.Printf("ERROR: %s %d fetch failed: %v", name, year, err)
		return true
	}
	return false
}
