package merra2

import (
	"testing"
	"time"

	"github.com/i474232898/terraclime/internal/climate"
)

func TestStream(t *testing.T) {
	tests := map[int]string{
		1980: "100", 1991: "100",
		1992: "200", 2000: "200",
		2001: "300", 2010: "300",
		2011: "400", 2020: "400",
	}
	for year, want := range tests {
		if got := Stream(year); got != want {
			t.Errorf("Stream(%d) = %s, want %s", year, got, want)
		}
	}
}

func TestGranuleURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		c    climate.Collection
		date time.Time
		want string
	}{
		{
			name: "single level",
			base: DefaultBaseURL,
			c:    climate.CollectionSingleLevel,
			date: time.Date(2011, time.January, 1, 0, 0, 0, 0, time.UTC),
			want: "https://goldsmr4.gesdisc.eosdis.nasa.gov/data/MERRA2/M2T1NXSLV.5.12.4/2011/01/MERRA2_400.tavg1_2d_slv_Nx.20110101.nc4",
		},
		{
			name: "surface flux with trailing slash",
			base: "http://mirror.local/MERRA2/",
			c:    climate.CollectionSurfaceFlux,
			date: time.Date(1995, time.July, 15, 0, 0, 0, 0, time.UTC),
			want: "http://mirror.local/MERRA2/M2T1NXFLX.5.12.4/1995/07/MERRA2_200.tavg1_2d_flx_Nx.19950715.nc4",
		},
		{
			name: "aerosol defaults base",
			c:    climate.CollectionAerosol,
			date: time.Date(2004, time.February, 29, 0, 0, 0, 0, time.UTC),
			want: DefaultBaseURL + "/M2T1NXAER.5.12.4/2004/02/MERRA2_300.tavg1_2d_aer_Nx.20040229.nc4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GranuleURL(tt.base, tt.c, tt.date)
			if err != nil {
				t.Fatalf("GranuleURL: %v", err)
			}
			if got != tt.want {
				t.Errorf("GranuleURL =\n  %s\nwant\n  %s", got, tt.want)
			}
		})
	}

	if _, err := GranuleURL("", climate.Collection("tavg3_3d_asm_Nv"), time.Now()); err == nil {
		t.Error("expected error for unknown collection")
	}
}
