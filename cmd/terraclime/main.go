package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/i474232898/terraclime/internal/climate"
	"github.com/i474232898/terraclime/internal/climate/merra2"
	"github.com/i474232898/terraclime/internal/config"
	"github.com/i474232898/terraclime/internal/earthdata"
	"github.com/i474232898/terraclime/internal/geo"
	"github.com/i474232898/terraclime/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "terraclime",
	Short: "Historical weather likelihood from NASA MERRA-2 reanalysis",
}

func init() {
	rootCmd.AddCommand(serveCmd, analyzeCmd, variablesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildService wires the archive session, extractor, cache and analyzer.
func buildService(cfg *config.AppConfig, explicit earthdata.Credentials) (*climate.Service, *store.SampleCache) {
	resolver := earthdata.NewCredentialResolver(cfg.Earthdata.LoginHost, explicit)
	sessions := earthdata.NewFactory(resolver, cfg.Earthdata)
	extractor := merra2.NewExtractor(cfg.ArchiveBaseURL, cfg.FetchTimeout)
	cache := store.NewSampleCache(cfg.SampleCacheSize)

	builder := climate.NewSeriesBuilder(sessions, extractor, cache, cfg.Baseline)

	var places climate.PlaceResolver
	if cfg.GeocoderAPIKey != "" {
		places = geo.NewGoogleResolver(cfg.GeocoderAPIKey)
	} else {
		log.Printf("INFO: GEOCODER_API_KEY not set; reports will not carry place names")
	}

	return climate.NewService(builder, places), cache
}
