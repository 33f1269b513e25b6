package merra2

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/i474232898/terraclime/internal/climate"
	"github.com/i474232898/terraclime/internal/earthdata"
)

type fakeFetcher struct {
	urls []string
	body []byte
	err  error
}

func (f *fakeFetcher) Get(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.body, f.err
}

// fakeGrid is a 2x2 grid whose fields are keyed by name.
type fakeGrid struct {
	lats, lons []float64
	fields     map[string][]float64
	closed     bool
}

func (g *fakeGrid) Axes() ([]float64, []float64, error) { return g.lats, g.lons, nil }

func (g *fakeGrid) CellSeries(field string, latIdx, lonIdx int) ([]float64, error) {
	s, ok := g.fields[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldMissing, field)
	}
	return s, nil
}

func (g *fakeGrid) Close() { g.closed = true }

func newTestExtractor(t *testing.T, grid *fakeGrid, seenPath *string) (*Extractor, string) {
	t.Helper()
	dir := t.TempDir()
	open := func(path string) (Grid, error) {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("granule not on disk while opening: %v", err)
		}
		if b, _ := os.ReadFile(path); string(b) != "granule-bytes" {
			t.Errorf("temp file holds %q", b)
		}
		if seenPath != nil {
			*seenPath = path
		}
		return grid, nil
	}
	return NewExtractorWithOpener("http://archive.test/MERRA2", time.Second, dir, open), dir
}

func mustQuery(t *testing.T, month, day int, v climate.Variable) climate.Query {
	t.Helper()
	q, err := climate.NewQuery(37.74, -119.59, month, day, v)
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	return q
}

func TestExtractMaxTemperature(t *testing.T) {
	grid := &fakeGrid{
		lats:   []float64{37.5, 38},
		lons:   []float64{-120, -119.375},
		fields: map[string][]float64{"T2M": {290.15, 305.15, 1e15, 300.15}},
	}
	var seen string
	ex, dir := newTestExtractor(t, grid, &seen)
	f := &fakeFetcher{body: []byte("granule-bytes")}

	got, err := ex.Extract(context.Background(), f, 2015, mustQuery(t, 7, 15, climate.MaxTempC), climate.MaxTempC.Spec())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if math.Abs(got-32) > 1e-9 {
		t.Errorf("max temp = %v, want 32", got)
	}

	wantURL := "http://archive.test/MERRA2/M2T1NXSLV.5.12.4/2015/07/MERRA2_400.tavg1_2d_slv_Nx.20150715.nc4"
	if len(f.urls) != 1 || f.urls[0] != wantURL {
		t.Errorf("fetched %v, want %s", f.urls, wantURL)
	}
	if !grid.closed {
		t.Error("grid was not closed")
	}
	if filepath.Dir(seen) != dir {
		t.Errorf("temp granule %s not in %s", seen, dir)
	}
	if _, err := os.Stat(seen); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temp granule left behind: %v", err)
	}
}

func TestExtractWindSpeed(t *testing.T) {
	grid := &fakeGrid{
		lats: []float64{37.5},
		lons: []float64{-119.375},
		fields: map[string][]float64{
			"U10M": {3, 0},
			"V10M": {4, 5},
		},
	}
	ex, _ := newTestExtractor(t, grid, nil)

	got, err := ex.Extract(context.Background(), &fakeFetcher{body: []byte("granule-bytes")}, 1999,
		mustQuery(t, 1, 10, climate.WindSpeedKPH), climate.WindSpeedKPH.Spec())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if math.Abs(got-18) > 1e-9 {
		t.Errorf("wind speed = %v kph, want 18", got)
	}
}

func TestExtractMissingYear(t *testing.T) {
	grid := &fakeGrid{lats: []float64{0}, lons: []float64{0}}
	ex, _ := newTestExtractor(t, grid, nil)

	// Feb 29 in a non-leap year never reaches the network.
	f := &fakeFetcher{}
	_, err := ex.Extract(context.Background(), f, 2001, mustQuery(t, 2, 29, climate.MaxTempC), climate.MaxTempC.Spec())
	if !errors.Is(err, climate.ErrMissingYear) {
		t.Fatalf("err = %v, want ErrMissingYear", err)
	}
	if len(f.urls) != 0 {
		t.Errorf("fetched %v for an invalid date", f.urls)
	}

	notFound := &fakeFetcher{err: fmt.Errorf("%w: gone", earthdata.ErrNotFound)}
	_, err = ex.Extract(context.Background(), notFound, 2001, mustQuery(t, 3, 1, climate.MaxTempC), climate.MaxTempC.Spec())
	if !errors.Is(err, climate.ErrMissingYear) {
		t.Fatalf("err = %v, want ErrMissingYear", err)
	}
}

func TestExtractFetchErrorPassesThrough(t *testing.T) {
	ex, _ := newTestExtractor(t, &fakeGrid{}, nil)
	fetchErr := &earthdata.FetchError{URL: "x", StatusCode: 503}

	_, err := ex.Extract(context.Background(), &fakeFetcher{err: fetchErr}, 2010,
		mustQuery(t, 3, 1, climate.MaxTempC), climate.MaxTempC.Spec())
	if !errors.Is(err, fetchErr) {
		t.Fatalf("err = %v, want the fetch error", err)
	}
	if errors.Is(err, climate.ErrMissingYear) {
		t.Error("fetch failures must not be reported as missing years")
	}
}

func TestExtractMissingField(t *testing.T) {
	grid := &fakeGrid{
		lats:   []float64{0},
		lons:   []float64{0},
		fields: map[string][]float64{"PRECTOT": {1e-5}},
	}
	ex, _ := newTestExtractor(t, grid, nil)

	_, err := ex.Extract(context.Background(), &fakeFetcher{body: []byte("granule-bytes")}, 2010,
		mustQuery(t, 3, 1, climate.PrecipitationMM), climate.PrecipitationMM.Spec())

	var extractErr *climate.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("err = %v, want ExtractionError", err)
	}
	if extractErr.Field != "PRECTOTCORR" || extractErr.Year != 2010 {
		t.Errorf("ExtractionError = %+v", extractErr)
	}
	if !errors.Is(err, ErrFieldMissing) {
		t.Error("ExtractionError should wrap ErrFieldMissing")
	}
}

func TestExtractAllFillValues(t *testing.T) {
	grid := &fakeGrid{
		lats:   []float64{0},
		lons:   []float64{0},
		fields: map[string][]float64{"DUSSMASS": {1e15, 1e15}},
	}
	ex, _ := newTestExtractor(t, grid, nil)

	_, err := ex.Extract(context.Background(), &fakeFetcher{body: []byte("granule-bytes")}, 2010,
		mustQuery(t, 3, 1, climate.DustUGM3), climate.DustUGM3.Spec())
	var extractErr *climate.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("err = %v, want ExtractionError", err)
	}
}

func TestExtractRecoversDecoderPanic(t *testing.T) {
	open := func(string) (Grid, error) { panic("corrupt superblock") }
	ex := NewExtractorWithOpener("", time.Second, t.TempDir(), open)

	_, err := ex.Extract(context.Background(), &fakeFetcher{body: []byte("junk")}, 2010,
		mustQuery(t, 3, 1, climate.MaxTempC), climate.MaxTempC.Spec())
	var extractErr *climate.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("err = %v, want ExtractionError", err)
	}
}

func TestExtractFromNetCDFGranule(t *testing.T) {
	payload, err := os.ReadFile(writeGranule(t))
	if err != nil {
		t.Fatalf("read granule: %v", err)
	}
	ex := NewExtractor("http://archive.test/MERRA2", time.Second)

	// 37.74,-119.59 maps to lat 38, lon -119.375, where T2M is 284 K then 294 K.
	got, err := ex.Extract(context.Background(), &fakeFetcher{body: payload}, 2015,
		mustQuery(t, 7, 15, climate.MaxTempC), climate.MaxTempC.Spec())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if math.Abs(got-20.85) > 1e-9 {
		t.Errorf("max temp = %v, want 20.85", got)
	}
}
