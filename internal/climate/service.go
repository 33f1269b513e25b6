package climate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

const dataSource = "NASA MERRA-2 hourly collections via GES DISC"

// Service orchestrates sample building and likelihood analysis for many variables.
type Service struct {
	builder *SeriesBuilder
	places  PlaceResolver
}

// NewService creates a new Service. places may be nil.
func NewService(builder *SeriesBuilder, places PlaceResolver) *Service {
	return &Service{
		builder: builder,
		places:  places,
	}
}

// Analyze builds and analyzes a sample for every recognized variable in req.
// Unknown variable names are skipped, as are variables whose sample is empty.
func (s *Service) Analyze(ctx context.Context, req Request) (Report, error) {
	if len(req.Variables) == 0 {
		return Report{}, fmt.Errorf("%w: at least one variable is required", ErrInvalidQuery)
	}
	// Validate coordinates and date once, before any network traffic.
	if _, err := NewQuery(req.Latitude, req.Longitude, req.Month, req.Day, MaxTempC); err != nil {
		return Report{}, err
	}

	report := Report{
		ID:      uuid.NewString(),
		Query:   req,
		Results: make([]VariableResult, 0, len(req.Variables)),
		Metadata: Metadata{
			DataSource:    dataSource,
			ClimatePeriod: s.builder.Baseline().String(),
		},
	}

	for _, name := range req.Variables {
		spec, ok := LookupVariable(name)
		if !ok {
			log.Printf("DEBUG: skipping unknown variable %q", name)
			continue
		}

		q, err := NewQuery(req.Latitude, req.Longitude, req.Month, req.Day, spec.Variable)
		if err != nil {
			return Report{}, err
		}

		sample, err := s.builder.Build(ctx, q)
		if err != nil {
			return Report{}, err
		}

		res, ok := Analyze(sample, spec)
		if !ok {
			log.Printf("INFO: no historical data for %s at %s; omitting from report", spec.Name, q.Key())
			continue
		}

		report.Results = append(report.Results, VariableResult{
			Variable: spec.Name,
			Unit:     spec.Unit,
			Result:   res,
		})
	}

	if s.places != nil {
		placeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if place, err := s.places.Resolve(placeCtx, req.Latitude, req.Longitude); err != nil {
			log.Printf("WARN: reverse geocode failed for %.4f,%.4f: %v", req.Latitude, req.Longitude, err)
		} else {
			report.Place = place
		}
	}

	return report, nil
}

// Warm builds and caches samples for the given variables without analyzing them.
func (s *Service) Warm(ctx context.Context, lat, lon float64, month, day int, variables []Variable) error {
	for _, v := range variables {
		q, err := NewQuery(lat, lon, month, day, v)
		if err != nil {
			return err
		}
		if _, err := s.builder.Build(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
