package climate

import (
	"math"
	"testing"
)

func TestRegistryIsClosed(t *testing.T) {
	vars := Variables()
	if len(vars) != 5 {
		t.Fatalf("registry has %d entries, want 5", len(vars))
	}
	for i, spec := range vars {
		if int(spec.Variable) != i {
			t.Errorf("entry %d carries variable %d", i, spec.Variable)
		}
		got, ok := LookupVariable(spec.Name)
		if !ok || got.Variable != spec.Variable {
			t.Errorf("LookupVariable(%q) = %v, %v", spec.Name, got.Variable, ok)
		}
		if len(spec.Fields) == 0 {
			t.Errorf("%s has no source fields", spec.Name)
		}
	}

	if _, ok := LookupVariable("humidity_pct"); ok {
		t.Error("unknown variable resolved")
	}
}

func TestOnlyPrecipitationCountsEvents(t *testing.T) {
	for _, spec := range Variables() {
		wantEvent := spec.Variable == PrecipitationMM
		if (spec.Likelihood == EventFrequency) != wantEvent {
			t.Errorf("%s: likelihood kind %v", spec.Name, spec.Likelihood)
		}
	}
}

func TestAggregationReduce(t *testing.T) {
	tests := []struct {
		name   string
		agg    Aggregation
		series [][]float64
		want   float64
	}{
		{name: "max", agg: DailyMax, series: [][]float64{{280, 295.5, 290}}, want: 295.5},
		{name: "min", agg: DailyMin, series: [][]float64{{280, 275.25, 290}}, want: 275.25},
		{name: "mean", agg: DailyMean, series: [][]float64{{1, 2, 3, 6}}, want: 3},
		{name: "daily total rate", agg: DailyTotal, series: [][]float64{{0, 0, 4e-5, 4e-5}}, want: 2e-5},
		{name: "vector magnitude", agg: DailyVectorMagnitudeMean, series: [][]float64{{3, 0}, {4, 2}}, want: 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.agg.Reduce(tt.series)
			if err != nil {
				t.Fatalf("Reduce: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Reduce = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregationReduceErrors(t *testing.T) {
	if _, err := DailyMax.Reduce(nil); err == nil {
		t.Error("expected error for no series")
	}
	if _, err := DailyMean.Reduce([][]float64{{}}); err == nil {
		t.Error("expected error for empty series")
	}
	if _, err := DailyVectorMagnitudeMean.Reduce([][]float64{{1, 2}}); err == nil {
		t.Error("expected error for a single wind component")
	}
	if _, err := DailyVectorMagnitudeMean.Reduce([][]float64{{1, 2}, {1}}); err == nil {
		t.Error("expected error for mismatched components")
	}
}

func TestConversions(t *testing.T) {
	tests := []struct {
		v    Variable
		raw  float64
		want float64
	}{
		{MaxTempC, 273.15, 0},
		{MinTempC, 300.15, 27},
		{PrecipitationMM, 1.0 / 86400, 1},
		{WindSpeedKPH, 10, 36},
		{DustUGM3, 1.5e-7, 150},
	}
	for _, tt := range tests {
		got := tt.v.Spec().Conversion.Apply(tt.raw)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: Apply(%v) = %v, want %v", tt.v, tt.raw, got, tt.want)
		}
	}
}
