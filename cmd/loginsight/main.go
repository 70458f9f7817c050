package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xoelrdgz/loginsight/internal/adapters/analytics"
	"github.com/xoelrdgz/loginsight/internal/adapters/detection"
	"github.com/xoelrdgz/loginsight/internal/adapters/input"
	"github.com/xoelrdgz/loginsight/internal/adapters/output"
	"github.com/xoelrdgz/loginsight/internal/app"
	"github.com/xoelrdgz/loginsight/internal/ports"
)

var (
	cfgFile string

	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "loginsight",
	Short: "Brute-force blocking and busy-hour analysis for access logs",
	Long: `loginsight reads a web server access log once, from the first line to
the last, and reports:

  - the hosts with the most requests
  - the busiest one-hour windows
  - the resources that served the most bytes
  - every request sent by a source while it was blocked for repeated
    failed logins (3 failures within 20s block the source for 5 minutes)`,
	SilenceUsage: true,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [log hosts hours resources blocked]",
	Short: "Analyze a log file and write the reports",
	Long: `Analyze a closed access log and write the report files.

Examples:
  loginsight analyze --log ./access.log
  loginsight analyze ./log.txt ./hosts.txt ./hours.txt ./resources.txt ./blocked.txt
  loginsight analyze --log ./access.log --summary --metrics-textfile ./loginsight.prom
  loginsight analyze --log ./access.json --format json --max-records 100000`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 5 {
			return fmt.Errorf("expected 0 or 5 positional arguments, got %d", len(args))
		}
		return nil
	},
	RunE: runAnalyze,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic access log with brute-force bursts",
	Long: `Write a deterministic synthetic access log for trying loginsight out.

Examples:
  loginsight generate --lines 100000 -o ./sample.log
  loginsight generate --format json --seed 7 > sample.json`,
	RunE: runGenerate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("loginsight %s\n", Version)
		fmt.Printf("Commit:  %s\n", Commit)
		fmt.Printf("Built:   %s\n", BuildTime)
	},
}

// analyzeFlags maps each analyze flag to its configuration key.
var analyzeFlags = map[string]string{
	"log":              "input.path",
	"format":           "input.format",
	"max-records":      "input.max_records",
	"hosts":            "reports.hosts",
	"hours":            "reports.hours",
	"resources":        "reports.resources",
	"blocked":          "reports.blocked",
	"block-events":     "output.block_events",
	"pretty-events":    "output.block_events_pretty",
	"rejects":          "output.rejects",
	"summary":          "output.summary",
	"metrics-textfile": "metrics.textfile",
	"metrics-addr":     "metrics.addr",
	"log-level":        "logging.level",
	"log-format":       "logging.format",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")

	f := analyzeCmd.Flags()
	f.StringP("log", "l", "", "log file to analyze")
	f.String("format", "clf", "input format: clf, json or auto")
	f.Int64("max-records", 0, "stop after this many records (0 = no limit)")
	f.String("hosts", "hosts.txt", "hosts report path")
	f.String("hours", "hours.txt", "busy hours report path")
	f.String("resources", "resources.txt", "resources report path")
	f.String("blocked", "blocked.txt", "blocked requests report path")
	f.String("block-events", "", "append scheduled blocks as JSON lines to this file (- for stdout)")
	f.Bool("pretty-events", false, "indent block events JSON")
	f.String("rejects", "", "write refused input lines as JSON lines to this file")
	f.Bool("summary", false, "print a summary to stdout")
	f.String("metrics-textfile", "", "write Prometheus metrics to this textfile when done")
	f.String("metrics-addr", "", "serve /metrics and /ready on this address while running")
	f.String("log-level", "info", "log level: debug, info, warn or error")
	f.String("log-format", "console", "log format: console or json")

	g := generateCmd.Flags()
	g.IntP("lines", "n", 10000, "number of lines")
	g.Int64("seed", 1, "random seed")
	g.String("format", "clf", "output format: clf or json")
	g.Int("attack-percent", 5, "percentage of lines that start a brute-force burst")
	g.StringP("output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command, args []string) (*app.Config, error) {
	v, err := app.NewViper(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	if len(args) == 5 {
		v.Set("input.path", args[0])
		v.Set("reports.hosts", args[1])
		v.Set("reports.hours", args[2])
		v.Set("reports.resources", args[3])
		v.Set("reports.blocked", args[4])
	}

	return app.Load(v)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for flag, key := range analyzeFlags {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

func setupLogging(cfg app.LoggingConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	switch cfg.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	setupLogging(cfg.Logging)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	parser, err := input.NewParser(cfg.Input.Format)
	if err != nil {
		return err
	}
	reader := input.NewFileReader(cfg.Input.Path, parser, cfg.Input.BufferSize)

	rejects, err := output.NewRejectLog(cfg.Output.Rejects)
	if err != nil {
		return fmt.Errorf("create reject log: %w", err)
	}
	defer closeLogged("reject log", rejects.Close)

	var events *output.BlockEventLog
	if cfg.Output.BlockEvents != "" {
		events, err = output.NewBlockEventLog(output.BlockEventLogConfig{
			FilePath: cfg.Output.BlockEvents,
			Pretty:   cfg.Output.BlockEventsPretty,
		})
		if err != nil {
			return fmt.Errorf("create block event log: %w", err)
		}
		defer closeLogged("block event log", events.Close)
	}

	// The analyzer closes the blocked report, so it is opened last.
	var blocked ports.BlockedSink
	if cfg.Reports.Blocked != "" {
		blockedLog, err := output.NewBlockedLog(cfg.Reports.Blocked)
		if err != nil {
			return err
		}
		blocked = blockedLog
	}

	analyzer := app.NewAnalyzer(
		reader,
		detection.NewLoginBlocker(cfg.Blocker.Detection()),
		analytics.NewBusyWindowTracker(cfg.BusyHours.Analytics()),
		analytics.NewFrequencyCounter(),
		blocked,
		app.AnalyzerConfig{
			Source:       filepath.Base(cfg.Input.Path),
			MaxRecords:   cfg.Input.MaxRecords,
			TopHosts:     cfg.Reports.TopHosts,
			TopResources: cfg.Reports.TopResources,
		},
	)

	analyzer.AddRejectObserver(rejects)
	if events != nil {
		analyzer.AddBlockObserver(events)
	}

	recent := output.NewRecentBlocks(cfg.Output.RecentBlocks)
	if cfg.Output.Summary {
		analyzer.AddBlockObserver(recent)
	}

	var metrics *output.PrometheusMetrics
	if cfg.Metrics.Textfile != "" || cfg.Metrics.Addr != "" {
		metrics = output.NewPrometheusMetrics("loginsight", Version)
		analyzer.AddProcessingObserver(metrics)
		analyzer.AddProgressObserver(metrics)
		analyzer.AddBlockObserver(metrics)
		analyzer.AddRejectObserver(metrics)
		metrics.SetReadiness(output.NewReadinessChecker(analyzer.Stats(), time.Second))
	}
	if metrics != nil && cfg.Metrics.Addr != "" {
		if err := metrics.StartServer(cfg.Metrics.Server()); err != nil {
			log.Warn().Err(err).Msg("Failed to start metrics server")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := metrics.StopServer(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("Metrics server shutdown error")
				}
			}()
		}
	}

	log.Info().
		Str("source", cfg.Input.Path).
		Str("format", parser.Format()).
		Str("run_id", analyzer.RunID()).
		Msg("loginsight started")

	summary, err := analyzer.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn().Msg("Interrupted, reports not written")
		}
		return err
	}

	reports := output.NewFileReportWriter(output.ReportPaths{
		Hosts:     cfg.Reports.Hosts,
		Hours:     cfg.Reports.Hours,
		Resources: cfg.Reports.Resources,
	})
	if err := reports.WriteReports(summary); err != nil {
		return err
	}

	if metrics != nil {
		metrics.ObserveSummary(summary)
		if cfg.Metrics.Textfile != "" {
			if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
				return err
			}
		}
	}

	if cfg.Output.Summary {
		fmt.Println(output.RenderSummary(summary, recent.Events()))
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	setupLogging(app.LoggingConfig{Level: "info"})

	f := cmd.Flags()
	lines, _ := f.GetInt("lines")
	seed, _ := f.GetInt64("seed")
	formatName, _ := f.GetString("format")
	attack, _ := f.GetInt("attack-percent")
	outPath, _ := f.GetString("output")

	format, err := input.ParseOutputFormat(formatName)
	if err != nil {
		return err
	}

	cfg := input.DefaultGeneratorConfig()
	cfg.Lines = lines
	cfg.Seed = seed
	cfg.AttackPercent = attack
	cfg.Format = format

	n, err := writeSample(outPath, cfg)
	if err != nil {
		return err
	}
	if outPath != "" {
		log.Info().Str("path", outPath).Int("lines", cfg.Lines).Int64("bytes", n).Msg("Sample log written")
	}
	return nil
}

// writeSample writes a generated log to path, or to stdout when path is
// empty.
func writeSample(path string, cfg input.GeneratorConfig) (int64, error) {
	gen := input.NewSampleGenerator(cfg)
	if path == "" {
		n, err := gen.WriteTo(os.Stdout)
		if err != nil {
			return n, fmt.Errorf("write sample log: %w", err)
		}
		return n, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	n, err := gen.WriteTo(file)
	if err != nil {
		_ = file.Close()
		return n, fmt.Errorf("write sample log: %w", err)
	}
	if err := file.Close(); err != nil {
		return n, fmt.Errorf("close sample log: %w", err)
	}
	return n, nil
}

func closeLogged(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Warn().Err(err).Str("component", name).Msg("Close failed")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
