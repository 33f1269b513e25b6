package merra2

import (
	"errors"
	"fmt"
	"math"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// ErrFieldMissing is returned when a granule lacks a requested variable.
var ErrFieldMissing = errors.New("field not in dataset")

// fillThreshold catches the MERRA-2 _FillValue (1e15) without reading attributes.
const fillThreshold = 1e14

// Grid is an opened granule laid out as [time][lat][lon].
type Grid interface {
	Axes() (lats, lons []float64, err error)
	// CellSeries returns every timestep of field at one grid cell.
	CellSeries(field string, latIdx, lonIdx int) ([]float64, error)
	Close()
}

// GridOpener opens a granule stored at path.
type GridOpener func(path string) (Grid, error)

type netcdfGrid struct {
	nc api.Group
}

// OpenNetCDF opens a NetCDF4/HDF5 (or classic CDF) granule.
func OpenNetCDF(path string) (Grid, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open netcdf: %w", err)
	}
	return &netcdfGrid{nc: nc}, nil
}

func (g *netcdfGrid) Close() {
	g.nc.Close()
}

func (g *netcdfGrid) Axes() ([]float64, []float64, error) {
	lats, err := g.axis("lat")
	if err != nil {
		return nil, nil, err
	}
	lons, err := g.axis("lon")
	if err != nil {
		return nil, nil, err
	}
	return lats, lons, nil
}

func (g *netcdfGrid) axis(name string) ([]float64, error) {
	vg, err := g.nc.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFieldMissing, name)
	}
	v, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	switch vals := v.(type) {
	case []float64:
		return vals, nil
	case []float32:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("axis %s has unsupported type %T", name, v)
	}
}

func (g *netcdfGrid) CellSeries(field string, latIdx, lonIdx int) ([]float64, error) {
	vg, err := g.nc.GetVarGetter(field)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFieldMissing, field)
	}
	v, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}

	switch data := v.(type) {
	case [][][]float32:
		out := make([]float64, 0, len(data))
		for t := range data {
			if err := checkCell(data[t], latIdx, lonIdx); err != nil {
				return nil, fmt.Errorf("%s: %w", field, err)
			}
			out = append(out, float64(data[t][latIdx][lonIdx]))
		}
		return out, nil
	case [][][]float64:
		out := make([]float64, 0, len(data))
		for t := range data {
			if err := checkCell(data[t], latIdx, lonIdx); err != nil {
				return nil, fmt.Errorf("%s: %w", field, err)
			}
			out = append(out, data[t][latIdx][lonIdx])
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s has unsupported layout %T", field, v)
	}
}

func checkCell[T float32 | float64](plane [][]T, latIdx, lonIdx int) error {
	if latIdx < 0 || latIdx >= len(plane) || lonIdx < 0 || lonIdx >= len(plane[latIdx]) {
		return fmt.Errorf("cell (%d, %d) outside grid", latIdx, lonIdx)
	}
	return nil
}

// nearestIndex returns the index of the axis value closest to x.
func nearestIndex(axis []float64, x float64) int {
	best, bestDist := -1, math.Inf(1)
	for i, a := range axis {
		if d := math.Abs(a - x); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// nearestLonIndex is nearestIndex on a circle, so it works for both
// -180..180 and 0..360 longitude axes.
func nearestLonIndex(axis []float64, lon float64) int {
	best, bestDist := -1, math.Inf(1)
	for i, a := range axis {
		d := math.Mod(math.Abs(a-lon), 360)
		if d > 180 {
			d = 360 - d
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// NearestCell maps a coordinate onto the closest grid point.
func NearestCell(lats, lons []float64, lat, lon float64) (int, int, error) {
	if len(lats) == 0 || len(lons) == 0 {
		return 0, 0, errors.New("grid has empty lat/lon axes")
	}
	return nearestIndex(lats, lat), nearestLonIndex(lons, lon), nil
}

// validSteps drops timesteps where any series holds a fill value or NaN,
// keeping the series aligned.
func validSteps(series [][]float64) [][]float64 {
	if len(series) == 0 {
		return series
	}
	n := len(series[0])
	for _, s := range series[1:] {
		n = min(n, len(s))
	}

	out := make([][]float64, len(series))
	for t := 0; t < n; t++ {
		ok := true
		for _, s := range series {
			if math.IsNaN(s[t]) || math.Abs(s[t]) >= fillThreshold {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for k, s := range series {
			out[k] = append(out[k], s[t])
		}
	}
	return out
}
