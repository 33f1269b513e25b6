package climate

import (
	"context"
	"time"
)

// Fetcher retrieves one remote resource. Implementations wrap a 404 so that
// errors.Is(err, earthdata.ErrNotFound) holds.
type Fetcher interface {
	Get(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

// Session is a Fetcher that holds connections open until closed.
type Session interface {
	Fetcher
	Close()
}

// SessionFactory opens an authenticated session. Credential failures are
// returned unchanged and abort the whole analysis.
type SessionFactory interface {
	NewSession() (Session, error)
}

// Extractor turns one year's granule into a single converted value.
// It returns ErrMissingYear, *ExtractionError, or a fetch error.
type Extractor interface {
	Extract(ctx context.Context, f Fetcher, year int, q Query, spec VariableSpec) (float64, error)
}

// SampleCache is the contract the bounded in-memory sample cache must satisfy.
type SampleCache interface {
	Get(key string) (Sample, bool)
	Put(key string, s Sample)
}

// PlaceResolver labels a coordinate with a human-readable place name.
type PlaceResolver interface {
	Resolve(ctx context.Context, lat, lon float64) (string, error)
}
