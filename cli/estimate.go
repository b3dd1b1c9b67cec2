package cli

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"

	"staffing-estimator/config"
	"staffing-estimator/estimator"
	"staffing-estimator/formatter"
	"staffing-estimator/metrics"
	"staffing-estimator/parser"
	"staffing-estimator/report"
)

const pushJobName = "staffing_estimator"

// estimateFlags are the process-level options of the estimate command that
// are not part of the run configuration.
type estimateFlags struct {
	metricsAddr string
	pushURL     string
	wait        bool
}

func (a *app) newEstimateCmd() *cobra.Command {
	var opts estimateFlags

	cmd := &cobra.Command{
		Use:   "estimate <orders.csv|orders.xlsx>",
		Short: "Estimate hourly resources and shift blocks from an orders export",
		Long: `Estimate hourly resources and shift blocks from an orders export.

Examples:
  staffing-estimator estimate orders.csv
  staffing-estimator estimate orders.xlsx --productivity 120 --shift-duration 8h --max-resources 6
  staffing-estimator estimate orders.csv --forecast-start 2024-04-01 --forecast-end 2024-04-14 --format json
  staffing-estimator estimate orders.csv --report --output-dir reports`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEstimate(cmd, args[0], opts)
		},
	}

	d := config.Default()
	f := cmd.Flags()
	f.Int("open-hour", d.OpenHour, "First store hour (0-23)")
	f.Int("close-hour", d.CloseHour, "Last store hour (0-23, inclusive)")
	f.Float64("productivity", d.Productivity, "Items one picker handles per hour (10-500)")
	f.Duration("shift-duration", d.ShiftDuration, "Shift length between 4h and 9h, e.g. 6h or 7h30m")
	f.Int("max-resources", d.MaxResources, "Headcount cap per shift block (0 = unlimited)")
	f.String("grouping", string(d.Grouping), "Resource table rows: weekday|date")
	f.String("over-staff-policy", string(d.OverStaffPolicy), "Over-staffed flag: cap_exceeds_required|required_exceeds_cap|none")
	f.String("strategy", d.Aggregation.Strategy, "Demand reduction across dates: sum|mean|peak|percentile")
	f.Float64("percentile", d.Aggregation.Percentile, "Percentile used by the percentile strategy")
	f.Float64("fatigue", d.Aggregation.FatiguePercent, "Productivity discount in percent")
	f.String("event-start", "", "Special event first date (YYYY-MM-DD)")
	f.String("event-end", "", "Special event last date (YYYY-MM-DD)")
	f.Float64("event-impact", 0, "Special event demand uplift in percent (0-200)")
	f.String("forecast-start", "", "Forecast first date (YYYY-MM-DD)")
	f.String("forecast-end", "", "Forecast last date (YYYY-MM-DD)")
	f.Int("forecast-max-days", d.Forecast.MaxSpanDays, "Maximum forecast span in days")
	f.Int("forecast-max-lead-days", d.Forecast.MaxLeadDays, "Maximum days between today and the forecast start (0 = unlimited)")
	f.Int("ranking-limit", d.Ranking.Limit, "Number of pickers in the ranking (0 = all)")
	f.String("format", d.Output.Format, "Output format: text|json|csv")
	f.Bool("report", d.Output.Report, "Also write an XLSX report")
	f.String("output-dir", d.Output.Dir, "Directory for XLSX reports")

	for key, flag := range map[string]string{
		"open_hour":                   "open-hour",
		"close_hour":                  "close-hour",
		"productivity":                "productivity",
		"shift_duration":              "shift-duration",
		"max_resources":               "max-resources",
		"grouping":                    "grouping",
		"over_staff_policy":           "over-staff-policy",
		"aggregation.strategy":        "strategy",
		"aggregation.percentile":      "percentile",
		"aggregation.fatigue_percent": "fatigue",
		"event.start":                 "event-start",
		"event.end":                   "event-end",
		"event.impact_percent":        "event-impact",
		"forecast.start":              "forecast-start",
		"forecast.end":                "forecast-end",
		"forecast.max_span_days":      "forecast-max-days",
		"forecast.max_lead_days":      "forecast-max-lead-days",
		"ranking.limit":               "ranking-limit",
		"output.format":               "format",
		"output.report":               "report",
		"output.dir":                  "output-dir",
	} {
		a.bind(cmd, key, flag)
	}

	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Address to expose Prometheus metrics (e.g., :9090)")
	f.StringVar(&opts.pushURL, "push-url", "", "Pushgateway URL to push metrics to (e.g., http://localhost:9091)")
	f.BoolVar(&opts.wait, "wait", false, "Keep process running after completion to allow for metric scraping")
	return cmd
}

func (a *app) runEstimate(cmd *cobra.Command, path string, opts estimateFlags) error {
	cfg, logger, err := a.load(cmd)
	if err != nil {
		return err
	}

	if opts.metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
			logger.Info().Str("addr", opts.metricsAddr).Msg("metrics server listening")
			if err := http.ListenAndServe(opts.metricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer file.Close()

	rows, err := parser.ReadRows(path, file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	result, err := estimator.New(logger).Run(cmd.Context(), rows, cfg)
	if err != nil {
		return err
	}

	out, err := formatter.Format(result, cfg.Output.Format)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)

	if cfg.Output.Report {
		reportPath, err := report.Write(result, cfg.Output.Dir)
		if err != nil {
			return err
		}
		logger.Info().Str("path", reportPath).Msg("report written")
	}

	if opts.pushURL != "" {
		if err := push.New(opts.pushURL, pushJobName).Gatherer(metrics.Registry).Push(); err != nil {
			logger.Error().Err(err).Msg("pushing to Pushgateway")
		} else {
			logger.Info().Str("url", opts.pushURL).Msg("metrics pushed to Pushgateway")
		}
	}

	if opts.wait && opts.metricsAddr != "" {
		logger.Info().Msg("process kept alive for metric scraping, press Ctrl+C to exit")
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
	} else if opts.metricsAddr != "" && opts.pushURL == "" {
		// Give a scraper a moment for the final values.
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}
