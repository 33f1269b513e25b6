package main

import (
	"encoding/json"
	"fmt"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/i474232898/terraclime/internal/climate"
	"github.com/i474232898/terraclime/internal/config"
	"github.com/i474232898/terraclime/internal/earthdata"
)

var analyzeOpts struct {
	lat, lon   float64
	month, day int
	variables  []string
	username   string
	asJSON     bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze weather likelihood for one location and day",
	Long: `Sweep the baseline years of MERRA-2 for the given location and calendar
day and print mean, standard deviation and likelihood per variable.`,
	RunE: runAnalyze,
}

var variablesCmd = &cobra.Command{
	Use:   "variables",
	Short: "List supported variables",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tUNIT\tTHRESHOLD\tFIELDS")
		for _, spec := range climate.Variables() {
			fmt.Fprintf(w, "%s\t%s\t%g\t%v\n", spec.Name, spec.Unit, spec.Threshold, spec.Fields)
		}
		return w.Flush()
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.Float64Var(&analyzeOpts.lat, "lat", 0, "latitude in degrees")
	f.Float64Var(&analyzeOpts.lon, "lon", 0, "longitude in degrees")
	f.IntVar(&analyzeOpts.month, "month", 0, "month (1-12)")
	f.IntVar(&analyzeOpts.day, "day", 0, "day of month")
	f.StringSliceVar(&analyzeOpts.variables, "var", []string{"max_temp_c"}, "variables to analyze")
	f.StringVar(&analyzeOpts.username, "username", "", "Earthdata username (prompts for the password)")
	f.BoolVar(&analyzeOpts.asJSON, "json", false, "print the raw report as JSON")
	_ = analyzeCmd.MarkFlagRequired("lat")
	_ = analyzeCmd.MarkFlagRequired("lon")
	_ = analyzeCmd.MarkFlagRequired("month")
	_ = analyzeCmd.MarkFlagRequired("day")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var explicit earthdata.Credentials
	if analyzeOpts.username != "" {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return fmt.Errorf("--username needs an interactive terminal for the password")
		}
		fmt.Fprint(cmd.ErrOrStderr(), "Earthdata password: ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr())
		explicit = earthdata.Credentials{Username: analyzeOpts.username, Password: string(passwordBytes)}
	}

	service, _ := buildService(cfg, explicit)
	report, err := service.Analyze(cmd.Context(), climate.Request{
		Latitude:  analyzeOpts.lat,
		Longitude: analyzeOpts.lon,
		Month:     analyzeOpts.month,
		Day:       analyzeOpts.day,
		Variables: analyzeOpts.variables,
	})
	if err != nil {
		return err
	}

	if analyzeOpts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printReport(cmd, report)
}

func printReport(cmd *cobra.Command, report climate.Report) error {
	out := cmd.OutOrStdout()
	if report.Place != "" {
		fmt.Fprintf(out, "%s\n", report.Place)
	}
	fmt.Fprintf(out, "%.4f, %.4f on %02d-%02d (%s)\n\n",
		report.Query.Latitude, report.Query.Longitude, report.Query.Month, report.Query.Day, report.Metadata.ClimatePeriod)

	if len(report.Results) == 0 {
		fmt.Fprintln(out, "No results returned for the selected variables.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VARIABLE\tMEAN\tSTD DEV\tLIKELIHOOD\tYEARS")
	for _, r := range report.Results {
		likelihood := "-"
		switch {
		case r.Likelihood.ProbabilityOfEvent != nil:
			likelihood = fmt.Sprintf("%.0f%% chance of event", *r.Likelihood.ProbabilityOfEvent*100)
		case r.Likelihood.ProbabilityExceeding != nil:
			likelihood = fmt.Sprintf("%.0f%% chance of exceeding", *r.Likelihood.ProbabilityExceeding*100)
		}
		fmt.Fprintf(w, "%s\t%.1f %s\t%.1f\t%s\t%d\n", r.Variable, r.Mean, r.Unit, r.StdDev, likelihood, r.RawDataPoints)
	}
	return w.Flush()
}
