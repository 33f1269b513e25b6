package climate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidQuery is returned for out-of-range coordinates or dates.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrMissingYear means the archive has nothing for this year, or the date
	// does not exist in it (Feb 29 of a non-leap year). Expected; the year is skipped.
	ErrMissingYear = errors.New("missing year")
)

// ExtractionError reports that a granule was fetched but could not be reduced
// to a value. It usually points at an upstream schema change.
type ExtractionError struct {
	Year  int
	Field string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("extract %s for %d: %v", e.Field, e.Year, e.Err)
	}
	return fmt.Sprintf("extract %d: %v", e.Year, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Query identifies one historical sample: a location, a calendar day and a variable.
// Construct with NewQuery.
type Query struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Month     int      `json:"month"`
	Day       int      `json:"day"`
	Variable  Variable `json:"-"`
}

// NewQuery validates the inputs and returns an immutable Query.
func NewQuery(lat, lon float64, month, day int, v Variable) (Query, error) {
	if lat < -90 || lat > 90 {
		return Query{}, fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidQuery, lat)
	}
	if lon < -180 || lon > 180 {
		return Query{}, fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidQuery, lon)
	}
	if month < 1 || month > 12 {
		return Query{}, fmt.Errorf("%w: month %d out of range [1, 12]", ErrInvalidQuery, month)
	}
	if last := DaysIn(time.Month(month)); day < 1 || day > last {
		return Query{}, fmt.Errorf("%w: day %d out of range [1, %d] for month %d", ErrInvalidQuery, day, last, month)
	}
	if v < 0 || v >= variableCount {
		return Query{}, fmt.Errorf("%w: unknown variable %d", ErrInvalidQuery, int(v))
	}
	return Query{Latitude: lat, Longitude: lon, Month: month, Day: day, Variable: v}, nil
}

// Key returns the canonical cache key for the query.
func (q Query) Key() string {
	return fmt.Sprintf("%.6f:%.6f:%02d-%02d:%s", q.Latitude, q.Longitude, q.Month, q.Day, q.Variable)
}

// Date returns the query's calendar day in the given year. ok is false when the
// day does not exist that year.
func (q Query) Date(year int) (time.Time, bool) {
	d := time.Date(year, time.Month(q.Month), q.Day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || int(d.Month()) != q.Month || d.Day() != q.Day {
		return time.Time{}, false
	}
	return d, true
}

// DaysIn returns the maximum day of month across years, so February allows 29.
func DaysIn(m time.Month) int {
	return time.Date(2000, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Baseline is an inclusive range of years.
type Baseline struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// DefaultBaseline is the 1991-2020 climate normal period.
var DefaultBaseline = Baseline{Start: 1991, End: 2020}

// Len returns the number of years in the range.
func (b Baseline) Len() int {
	if b.End < b.Start {
		return 0
	}
	return b.End - b.Start + 1
}

// Contains reports whether year lies within the range.
func (b Baseline) Contains(year int) bool {
	return year >= b.Start && year <= b.End
}

func (b Baseline) String() string {
	return fmt.Sprintf("%d-%d", b.Start, b.End)
}

// Sample is the per-year series for one Query. It is never mutated after construction.
type Sample struct {
	query    Query
	baseline Baseline
	years    []int
	values   []float64
}

// NewSample builds a sample from parallel year/value slices, dropping any year
// outside the baseline. The inputs are copied.
func NewSample(q Query, b Baseline, years []int, values []float64) Sample {
	s := Sample{query: q, baseline: b}
	for i := range years {
		if i >= len(values) || !b.Contains(years[i]) {
			continue
		}
		s.years = append(s.years, years[i])
		s.values = append(s.values, values[i])
	}
	return s
}

func (s Sample) Query() Query       { return s.query }
func (s Sample) Baseline() Baseline { return s.baseline }

// RawDataPoints is the number of years actually retrieved.
func (s Sample) RawDataPoints() int { return len(s.values) }

// Values returns a copy of the per-year values, ordered by year.
func (s Sample) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Years returns a copy of the years that contributed a value.
func (s Sample) Years() []int {
	out := make([]int, len(s.years))
	copy(out, s.years)
	return out
}

// Likelihood holds exactly one of the two probabilities.
type Likelihood struct {
	ProbabilityOfEvent   *float64 `json:"probability_of_event,omitempty"`
	ProbabilityExceeding *float64 `json:"probability_exceeding,omitempty"`
}

// Result is the statistical summary of a sample.
type Result struct {
	Mean          float64    `json:"mean"`
	StdDev        float64    `json:"std_dev"`
	Likelihood    Likelihood `json:"likelihood"`
	RawDataPoints int        `json:"raw_data_points"`
}

// Request is the input of the analyze operation.
type Request struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Month     int      `json:"month"`
	Day       int      `json:"day"`
	Variables []string `json:"variables"`
}

// VariableResult is one entry of a Report.
type VariableResult struct {
	Variable string `json:"variable"`
	Unit     string `json:"unit"`
	Result
}

// Metadata describes where the numbers came from.
type Metadata struct {
	DataSource    string `json:"data_source"`
	ClimatePeriod string `json:"climate_period"`
}

// Report is the output of the analyze operation. Results may be empty.
type Report struct {
	ID       string           `json:"id"`
	Query    Request          `json:"query"`
	Place    string           `json:"place,omitempty"`
	Results  []VariableResult `json:"results"`
	Metadata Metadata         `json:"metadata"`
}
