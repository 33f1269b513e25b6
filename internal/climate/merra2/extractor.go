package merra2

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/i474232898/terraclime/internal/climate"
	"github.com/i474232898/terraclime/internal/earthdata"
)

// Extractor reduces one daily MERRA-2 granule to a single value at the
// grid cell nearest the query.
type Extractor struct {
	baseURL string
	timeout time.Duration
	tempDir string
	open    GridOpener
}

// NewExtractor creates an Extractor that reads granules with OpenNetCDF.
func NewExtractor(baseURL string, timeout time.Duration) *Extractor {
	return NewExtractorWithOpener(baseURL, timeout, "", OpenNetCDF)
}

// NewExtractorWithOpener creates an Extractor with a custom grid reader.
// An empty tempDir means os.TempDir.
func NewExtractorWithOpener(baseURL string, timeout time.Duration, tempDir string, open GridOpener) *Extractor {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Extractor{
		baseURL: baseURL,
		timeout: timeout,
		tempDir: tempDir,
		open:    open,
	}
}

// Extract fetches the granule for year and returns the converted daily value.
func (e *Extractor) Extract(ctx context.Context, f climate.Fetcher, year int, q climate.Query, spec climate.VariableSpec) (float64, error) {
	date, ok := q.Date(year)
	if !ok {
		return 0, fmt.Errorf("%w: %04d-%02d-%02d is not a valid date", climate.ErrMissingYear, year, q.Month, q.Day)
	}

	u, err := GranuleURL(e.baseURL, spec.Collection, date)
	if err != nil {
		return 0, &climate.ExtractionError{Year: year, Err: err}
	}

	payload, err := f.Get(ctx, u, e.timeout)
	if err != nil {
		if errors.Is(err, earthdata.ErrNotFound) {
			return 0, fmt.Errorf("%w: %v", climate.ErrMissingYear, err)
		}
		return 0, err
	}

	return e.reduce(payload, year, q, spec)
}

func (e *Extractor) reduce(payload []byte, year int, q climate.Query, spec climate.VariableSpec) (value float64, err error) {
	// The reader works on random-access files, not streams.
	path, err := writeTemp(e.tempDir, payload)
	if err != nil {
		return 0, &climate.ExtractionError{Year: year, Err: err}
	}
	defer os.Remove(path)

	defer func() {
		if r := recover(); r != nil {
			err = &climate.ExtractionError{Year: year, Err: fmt.Errorf("decoder panic: %v", r)}
		}
	}()

	grid, err := e.open(path)
	if err != nil {
		return 0, &climate.ExtractionError{Year: year, Err: err}
	}
	defer grid.Close()

	lats, lons, err := grid.Axes()
	if err != nil {
		return 0, &climate.ExtractionError{Year: year, Err: err}
	}
	latIdx, lonIdx, err := NearestCell(lats, lons, q.Latitude, q.Longitude)
	if err != nil {
		return 0, &climate.ExtractionError{Year: year, Err: err}
	}

	series := make([][]float64, 0, len(spec.Fields))
	for _, field := range spec.Fields {
		s, err := grid.CellSeries(field, latIdx, lonIdx)
		if err != nil {
			return 0, &climate.ExtractionError{Year: year, Field: field, Err: err}
		}
		series = append(series, s)
	}

	raw, err := spec.Aggregation.Reduce(validSteps(series))
	if err != nil {
		return 0, &climate.ExtractionError{Year: year, Err: err}
	}
	return spec.Conversion.Apply(raw), nil
}

func writeTemp(dir string, payload []byte) (string, error) {
	f, err := os.CreateTemp(dir, "merra2-*.nc4")
	if err != nil {
		return "", fmt.Errorf("create temp granule: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write temp granule: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close temp granule: %w", err)
	}
	return path, nil
}
