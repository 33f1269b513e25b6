package geo

import (
	"context"
	"errors"
	"fmt"

	"github.com/kelvins/geocoder"
)

var errNoAddress = errors.New("no address for location")

// GoogleResolver labels coordinates through the Google reverse geocoding API.
// Lookups are best-effort: a call abandoned on cancellation keeps running in
// the background until the library returns.
type GoogleResolver struct {
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGoogleResolver creates a GoogleResolver for the given API key. The
// geocoder package keys every request through one package-level variable, so
// the key is set here once and a process should hold a single resolver.
func NewGoogleResolver(apiKey string) *GoogleResolver {
	geocoder.ApiKey = apiKey
	return &GoogleResolver{reverse: geocoder.GeocodingReverse}
}

// Resolve returns the formatted address closest to the coordinate.
func (r *GoogleResolver) Resolve(ctx context.Context, lat, lon float64) (string, error) {
	type result struct {
		place string
		err   error
	}
	done := make(chan result, 1)

	// The library has no context support; abandon the call on cancellation.
	go func() {
		addresses, err := r.reverse(geocoder.Location{Latitude: lat, Longitude: lon})
		if err != nil {
			done <- result{err: fmt.Errorf("reverse geocode: %w", err)}
			return
		}
		if len(addresses) == 0 {
			done <- result{err: errNoAddress}
			return
		}
		place := addresses[0].FormattedAddress
		if place == "" {
			place = addresses[0].FormatAddress()
		}
		done <- result{place: place}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.place, res.err
	}
}
