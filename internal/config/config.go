package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/terraclime/internal/climate"
	"github.com/i474232898/terraclime/internal/climate/merra2"
	"github.com/i474232898/terraclime/internal/common"
	"github.com/i474232898/terraclime/internal/earthdata"
)

// WarmLocation is a coordinate whose samples are pre-built by the scheduler.
type WarmLocation struct {
	Latitude  float64
	Longitude float64
}

type AppConfig struct {
	Port string

	// Archive access.
	ArchiveBaseURL string
	Earthdata      earthdata.Config
	FetchTimeout   time.Duration

	// Years swept for every sample.
	Baseline climate.Baseline

	// Max number of samples kept in memory (0 = unlimited).
	SampleCacheSize int

	// Cache warm-up; disabled when no locations are configured.
	WarmupInterval  time.Duration
	WarmupLocations []WarmLocation
	WarmupVariables []climate.Variable

	GeocoderAPIKey string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return load(os.Getenv)
}

func load(getenv func(string) string) (*AppConfig, error) {
	cfg := &AppConfig{
		Port:            getenvDefault(getenv, "PORT", "8080"),
		ArchiveBaseURL:  getenvDefault(getenv, "MERRA2_BASE_URL", merra2.DefaultBaseURL),
		Earthdata:       earthdata.DefaultConfig(),
		SampleCacheSize: getenvInt(getenv, "SAMPLE_CACHE_SIZE", 128),
		GeocoderAPIKey:  getenv("GEOCODER_API_KEY"),
	}

	cfg.Earthdata.LoginHost = getenvDefault(getenv, "EARTHDATA_LOGIN_HOST", earthdata.DefaultLoginHost)
	mode, err := earthdata.ParseMode(getenv("EARTHDATA_AUTH_MODE"))
	if err != nil {
		return nil, fmt.Errorf("invalid EARTHDATA_AUTH_MODE: %w", err)
	}
	cfg.Earthdata.Mode = mode
	cfg.Earthdata.MaxRedirects = getenvInt(getenv, "EARTHDATA_MAX_REDIRECTS", 10)
	cfg.Earthdata.Backoff.MaxRetries = getenvInt(getenv, "EARTHDATA_MAX_RETRIES", 2)
	cfg.Earthdata.CircuitCooldown, err = time.ParseDuration(getenvDefault(getenv, "EARTHDATA_CIRCUIT_COOLDOWN", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid EARTHDATA_CIRCUIT_COOLDOWN: %w", err)
	}

	// Per-fetch timeout: default 30 seconds.
	cfg.FetchTimeout, err = time.ParseDuration(getenvDefault(getenv, "FETCH_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
	}

	cfg.Baseline = climate.Baseline{
		Start: getenvInt(getenv, "BASELINE_START_YEAR", climate.DefaultBaseline.Start),
		End:   getenvInt(getenv, "BASELINE_END_YEAR", climate.DefaultBaseline.End),
	}
	if cfg.Baseline.Len() == 0 {
		return nil, fmt.Errorf("invalid baseline %s: end precedes start", cfg.Baseline)
	}

	cfg.WarmupInterval, err = time.ParseDuration(getenvDefault(getenv, "WARMUP_INTERVAL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid WARMUP_INTERVAL: %w", err)
	}

	cfg.WarmupLocations, err = parseLocations(getenv("WARMUP_LOCATIONS"))
	if err != nil {
		return nil, err
	}

	cfg.WarmupVariables, err = parseVariables(getenvDefault(getenv, "WARMUP_VARIABLES", "max_temp_c,precipitation_mm"))
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseLocations reads "lat,lon;lat,lon".
func parseLocations(s string) ([]WarmLocation, error) {
	var locs []WarmLocation
	for _, pair := range common.SplitList(s, ";") {
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid WARMUP_LOCATIONS entry %q: want lat,lon", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid WARMUP_LOCATIONS latitude %q: %w", parts[0], err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid WARMUP_LOCATIONS longitude %q: %w", parts[1], err)
		}
		locs = append(locs, WarmLocation{Latitude: lat, Longitude: lon})
	}
	return locs, nil
}

func parseVariables(s string) ([]climate.Variable, error) {
	var vars []climate.Variable
	for _, name := range common.SplitList(s, ",") {
		spec, ok := climate.LookupVariable(name)
		if !ok {
			return nil, fmt.Errorf("invalid WARMUP_VARIABLES: unknown variable %q", name)
		}
		vars = append(vars, spec.Variable)
	}
	return vars, nil
}

func getenvDefault(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(getenv func(string) string, key string, def int) int {
	if v := getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
