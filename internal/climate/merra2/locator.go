package merra2

import (
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/terraclime/internal/climate"
)

// DefaultBaseURL is the GES DISC MERRA-2 data root.
const DefaultBaseURL = "https://goldsmr4.gesdisc.eosdis.nasa.gov/data/MERRA2"

var products = map[climate.Collection]string{
	climate.CollectionSingleLevel: "M2T1NXSLV.5.12.4",
	climate.CollectionSurfaceFlux: "M2T1NXFLX.5.12.4",
	climate.CollectionAerosol:     "M2T1NXAER.5.12.4",
}

// Stream returns the production stream id that processed the given year.
func Stream(year int) string {
	switch {
	case year <= 1991:
		return "100"
	case year <= 2000:
		return "200"
	case year <= 2010:
		return "300"
	default:
		return "400"
	}
}

// GranuleURL builds the locator of one daily granule, e.g.
// {base}/M2T1NXSLV.5.12.4/2011/01/MERRA2_400.tavg1_2d_slv_Nx.20110101.nc4.
func GranuleURL(base string, c climate.Collection, date time.Time) (string, error) {
	product, ok := products[c]
	if !ok {
		return "", fmt.Errorf("unknown MERRA-2 collection %q", c)
	}
	if base == "" {
		base = DefaultBaseURL
	}
	return fmt.Sprintf("%s/%s/%04d/%02d/MERRA2_%s.%s.%s.nc4",
		strings.TrimRight(base, "/"),
		product,
		date.Year(), int(date.Month()),
		Stream(date.Year()),
		c,
		date.Format("20060102"),
	), nil
}
