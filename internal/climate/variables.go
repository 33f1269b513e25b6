package climate

import (
	"errors"
	"fmt"
	"math"
)

// Variable identifies one entry of the closed variable registry.
type Variable int

const (
	MaxTempC Variable = iota
	MinTempC
	PrecipitationMM
	WindSpeedKPH
	DustUGM3

	variableCount
)

// Aggregation is the rule that reduces one day of hourly samples to a scalar.
type Aggregation int

const (
	DailyMax Aggregation = iota
	DailyMin
	// DailyTotal yields the day-mean rate; a per-second conversion then scales it to a daily total.
	DailyTotal
	// DailyVectorMagnitudeMean expects two series (u, v) of equal length.
	DailyVectorMagnitudeMean
	DailyMean
)

// LikelihoodKind selects how Analyze turns a sample into a probability.
type LikelihoodKind int

const (
	NormalExceedance LikelihoodKind = iota
	EventFrequency
)

// Conversion is an affine unit conversion: v*Scale + Offset.
type Conversion struct {
	Scale  float64
	Offset float64
}

// Apply converts a raw aggregated value to display units.
func (c Conversion) Apply(v float64) float64 {
	return v*c.Scale + c.Offset
}

// Collection names a MERRA-2 hourly collection, e.g. "tavg1_2d_slv_Nx".
type Collection string

const (
	CollectionSingleLevel Collection = "tavg1_2d_slv_Nx"
	CollectionSurfaceFlux Collection = "tavg1_2d_flx_Nx"
	CollectionAerosol     Collection = "tavg1_2d_aer_Nx"
)

// VariableSpec describes how a logical variable is derived and judged.
type VariableSpec struct {
	Variable    Variable       `json:"-"`
	Name        string         `json:"name"`
	Collection  Collection     `json:"collection"`
	Fields      []string       `json:"fields"`
	Aggregation Aggregation    `json:"-"`
	Conversion  Conversion     `json:"-"`
	Unit        string         `json:"unit"`
	Threshold   float64        `json:"threshold"`
	Likelihood  LikelihoodKind `json:"-"`
}

var registry = [variableCount]VariableSpec{
	MaxTempC: {
		Variable:    MaxTempC,
		Name:        "max_temp_c",
		Collection:  CollectionSingleLevel,
		Fields:      []string{"T2M"},
		Aggregation: DailyMax,
		Conversion:  Conversion{Scale: 1, Offset: -273.15},
		Unit:        "°C",
		Threshold:   32,
		Likelihood:  NormalExceedance,
	},
	MinTempC: {
		Variable:    MinTempC,
		Name:        "min_temp_c",
		Collection:  CollectionSingleLevel,
		Fields:      []string{"T2M"},
		Aggregation: DailyMin,
		Conversion:  Conversion{Scale: 1, Offset: -273.15},
		Unit:        "°C",
		Threshold:   0,
		Likelihood:  NormalExceedance,
	},
	PrecipitationMM: {
		Variable:    PrecipitationMM,
		Name:        "precipitation_mm",
		Collection:  CollectionSurfaceFlux,
		Fields:      []string{"PRECTOTCORR"},
		Aggregation: DailyTotal,
		Conversion:  Conversion{Scale: 86400},
		Unit:        "mm",
		Threshold:   1,
		Likelihood:  EventFrequency,
	},
	WindSpeedKPH: {
		Variable:    WindSpeedKPH,
		Name:        "wind_speed_kph",
		Collection:  CollectionSingleLevel,
		Fields:      []string{"U10M", "V10M"},
		Aggregation: DailyVectorMagnitudeMean,
		Conversion:  Conversion{Scale: 3.6},
		Unit:        "kph",
		Threshold:   40,
		Likelihood:  NormalExceedance,
	},
	DustUGM3: {
		Variable:    DustUGM3,
		Name:        "dust_ug_m3",
		Collection:  CollectionAerosol,
		Fields:      []string{"DUSSMASS"},
		Aggregation: DailyMean,
		Conversion:  Conversion{Scale: 1e9},
		Unit:        "µg/m³",
		Threshold:   150,
		Likelihood:  NormalExceedance,
	},
}

// Spec returns the registry entry for v.
func (v Variable) Spec() VariableSpec {
	if v < 0 || v >= variableCount {
		panic(fmt.Sprintf("climate: unknown variable %d", int(v)))
	}
	return registry[v]
}

func (v Variable) String() string {
	if v < 0 || v >= variableCount {
		return fmt.Sprintf("Variable(%d)", int(v))
	}
	return registry[v].Name
}

// LookupVariable resolves a logical name such as "max_temp_c".
func LookupVariable(name string) (VariableSpec, bool) {
	for _, spec := range registry {
		if spec.Name == name {
			return spec, true
		}
	}
	return VariableSpec{}, false
}

// Variables returns every registry entry in declaration order.
func Variables() []VariableSpec {
	out := make([]VariableSpec, len(registry))
	copy(out, registry[:])
	return out
}

var errNoSamples = errors.New("no valid samples for the day")

// Reduce applies the aggregation to one series per field.
func (a Aggregation) Reduce(series [][]float64) (float64, error) {
	if len(series) == 0 || len(series[0]) == 0 {
		return 0, errNoSamples
	}
	s := series[0]

	switch a {
	case DailyMax:
		best := s[0]
		for _, v := range s[1:] {
			best = math.Max(best, v)
		}
		return best, nil
	case DailyMin:
		best := s[0]
		for _, v := range s[1:] {
			best = math.Min(best, v)
		}
		return best, nil
	case DailyTotal, DailyMean:
		// Timesteps are hourly means; for rates the day-mean times 86400s is the daily total.
		var sum float64
		for _, v := range s {
			sum += v
		}
		return sum / float64(len(s)), nil
	case DailyVectorMagnitudeMean:
		if len(series) < 2 {
			return 0, fmt.Errorf("vector magnitude needs two components, got %d", len(series))
		}
		u, v := series[0], series[1]
		if len(u) != len(v) {
			return 0, fmt.Errorf("component length mismatch: %d vs %d", len(u), len(v))
		}
		var sum float64
		for i := range u {
			sum += math.Hypot(u[i], v[i])
		}
		return sum / float64(len(u)), nil
	default:
		return 0, fmt.Errorf("unknown aggregation %d", int(a))
	}
}
