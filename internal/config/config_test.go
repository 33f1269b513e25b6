package config

import (
	"testing"
	"time"

	"github.com/i474232898/terraclime/internal/climate"
	"github.com/i474232898/terraclime/internal/climate/merra2"
	"github.com/i474232898/terraclime/internal/earthdata"
)

func envOf(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envOf(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.ArchiveBaseURL != merra2.DefaultBaseURL {
		t.Errorf("ArchiveBaseURL = %q", cfg.ArchiveBaseURL)
	}
	if cfg.Earthdata.LoginHost != earthdata.DefaultLoginHost || cfg.Earthdata.Mode != earthdata.ModeAuto {
		t.Errorf("Earthdata = %+v", cfg.Earthdata)
	}
	if cfg.Earthdata.CircuitCooldown != 30*time.Second {
		t.Errorf("CircuitCooldown = %v", cfg.Earthdata.CircuitCooldown)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("FetchTimeout = %v", cfg.FetchTimeout)
	}
	if cfg.Baseline != climate.DefaultBaseline {
		t.Errorf("Baseline = %v", cfg.Baseline)
	}
	if len(cfg.WarmupLocations) != 0 {
		t.Errorf("WarmupLocations = %v", cfg.WarmupLocations)
	}
	if len(cfg.WarmupVariables) != 2 {
		t.Errorf("WarmupVariables = %v", cfg.WarmupVariables)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(envOf(map[string]string{
		"PORT":                "9090",
		"EARTHDATA_AUTH_MODE": "form",
		"FETCH_TIMEOUT":       "2m",
		"BASELINE_START_YEAR": "2001",
		"BASELINE_END_YEAR":   "2010",
		"SAMPLE_CACHE_SIZE":   "0",
		"WARMUP_LOCATIONS":    "37.74,-119.59; 51.5, -0.12",
		"WARMUP_VARIABLES":    "wind_speed_kph",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" || cfg.Earthdata.Mode != earthdata.ModeForm || cfg.FetchTimeout != 2*time.Minute {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Baseline.Len() != 10 {
		t.Errorf("Baseline = %v", cfg.Baseline)
	}
	if cfg.SampleCacheSize != 0 {
		t.Errorf("SampleCacheSize = %d", cfg.SampleCacheSize)
	}
	want := []WarmLocation{{37.74, -119.59}, {51.5, -0.12}}
	if len(cfg.WarmupLocations) != 2 || cfg.WarmupLocations[0] != want[0] || cfg.WarmupLocations[1] != want[1] {
		t.Errorf("WarmupLocations = %v", cfg.WarmupLocations)
	}
	if len(cfg.WarmupVariables) != 1 || cfg.WarmupVariables[0] != climate.WindSpeedKPH {
		t.Errorf("WarmupVariables = %v", cfg.WarmupVariables)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]map[string]string{
		"auth mode":      {"EARTHDATA_AUTH_MODE": "oauth"},
		"timeout":        {"FETCH_TIMEOUT": "soon"},
		"cooldown":       {"EARTHDATA_CIRCUIT_COOLDOWN": "later"},
		"baseline":       {"BASELINE_START_YEAR": "2020", "BASELINE_END_YEAR": "1991"},
		"location":       {"WARMUP_LOCATIONS": "37.74"},
		"location value": {"WARMUP_LOCATIONS": "north,-119"},
		"variable":       {"WARMUP_VARIABLES": "humidity"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := load(envOf(env)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
