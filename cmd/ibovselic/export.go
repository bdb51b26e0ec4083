package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ibovselic/internal/config"
	"ibovselic/internal/exporter"
	"ibovselic/internal/httpx"
	"ibovselic/internal/logging"
	"ibovselic/internal/provider/b3"
	"ibovselic/internal/provider/bcb"
	"ibovselic/internal/telemetry"
)

// exportCmd implements the "export" command.
type exportCmd struct {
	startYear   int
	endYear     int
	dataDir     string
	ibov        bool
	selic       bool
	selicMeta   bool
	selicSerie  int
	chunkSize   int
	verbose     bool
	metricsFile string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "downloads IBOVESPA and SELIC history as JSON files" }
func (*exportCmd) Usage() string {
	return `export -start-year YYYY -end-year YYYY [-ibov | -selic | -selic-meta] [flags]:

Downloads the requested series year chunk by chunk and writes one JSON file
per series under -data-dir. Without a series flag, IBOV, SELIC and SELIC meta
are exported in that order; the first failure aborts the run.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.startYear, "start-year", 0, "initial year (inclusive), required")
	f.IntVar(&c.endYear, "end-year", 0, "final year (inclusive), required")
	f.StringVar(&c.dataDir, "data-dir", "", "folder where the JSON files are stored (default from config, data/raw)")
	f.BoolVar(&c.ibov, "ibov", false, "export only IBOV data")
	f.BoolVar(&c.selic, "selic", false, "export only SELIC data")
	f.BoolVar(&c.selicMeta, "selic-meta", false, "export only SELIC meta data")
	f.IntVar(&c.selicSerie, "selic-serie", 0, fmt.Sprintf("SGS serie code used with -selic (default from config, %d)", bcb.SeriesSelicMonthly))
	f.IntVar(&c.chunkSize, "chunk-size", 0, "years per request (default from config, 10)")
	f.BoolVar(&c.verbose, "verbose", false, "enable debug logs")
	f.StringVar(&c.metricsFile, "metrics-file", "", "write prometheus metrics to this file when done")
}

type target int

const (
	targetIBOV target = iota
	targetSELIC
	targetSELICMeta
)

var errUsage = errors.New("usage")

// targets returns the exports selected by the flags, in run order.
func (c *exportCmd) targets() ([]target, error) {
	if c.startYear == 0 || c.endYear == 0 {
		return nil, fmt.Errorf("%w: -start-year and -end-year are required", errUsage)
	}
	var out []target
	if c.ibov {
		out = append(out, targetIBOV)
	}
	if c.selic {
		out = append(out, targetSELIC)
	}
	if c.selicMeta {
		out = append(out, targetSELICMeta)
	}
	switch len(out) {
	case 0:
		return []target{targetIBOV, targetSELIC, targetSELICMeta}, nil
	case 1:
		return out, nil
	}
	return nil, fmt.Errorf("%w: -ibov, -selic and -selic-meta are mutually exclusive", errUsage)
}

// apply overlays the command flags on the loaded configuration.
func (c *exportCmd) apply(cfg *config.Config) {
	if c.dataDir != "" {
		cfg.DataDir = c.dataDir
	}
	if c.chunkSize != 0 {
		cfg.ChunkSize = c.chunkSize
	}
	if c.selicSerie != 0 {
		cfg.BCB.DefaultSeries = c.selicSerie
	}
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	targets, err := c.targets()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		f.Usage()
		return subcommands.ExitUsageError
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load config: %v\n", err)
		return subcommands.ExitFailure
	}
	c.apply(&cfg)

	logger, err := logging.New(cfg.Logging, c.verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not create logger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer logger.Sync()
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	metrics := telemetry.NewMetrics()
	exp, err := exporter.New(cfg.DataDir,
		exporter.WithChunkSize(cfg.ChunkSize),
		exporter.WithObserver(telemetry.Fanout(telemetry.NewLogObserver(logger), metrics)),
	)
	if err != nil {
		logger.Error("Invalid exporter settings", zap.Error(err))
		return subcommands.ExitFailure
	}
	logger.Debug("Exporter ready",
		zap.String("data_dir", exp.DataDir()),
		zap.Int("chunk_size", exp.ChunkSize()),
		zap.Int("selic_serie", cfg.BCB.DefaultSeries))

	facade := exporter.NewFacade(exp,
		b3.New(b3.WithBaseURL(cfg.B3.BaseURL), b3.WithHTTPClient(newHTTPClient(b3.RequestTimeout, logger))),
		bcb.New(bcb.WithBaseURL(cfg.BCB.BaseURL), bcb.WithHTTPClient(newHTTPClient(bcb.RequestTimeout, logger))),
		exporter.Files{IBOV: cfg.Files.IBOV, SELIC: cfg.Files.SELIC, SELICMeta: cfg.Files.SELICMeta},
	)

	err = run(ctx, facade, targets, c.startYear, c.endYear, cfg.BCB.DefaultSeries)

	if c.metricsFile != "" {
		if werr := metrics.WriteTextfile(c.metricsFile); werr != nil {
			logger.Warn("Could not write metrics", zap.String("path", c.metricsFile), zap.Error(werr))
		}
	}
	if err != nil {
		logger.Error("Run aborted", zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// run executes targets in order and prints each written path on stdout.
func run(ctx context.Context, facade *exporter.Facade, targets []target, startYear, endYear, series int) error {
	for _, t := range targets {
		var path string
		var err error
		switch t {
		case targetIBOV:
			path, err = facade.ExportIBOV(ctx, startYear, endYear)
		case targetSELIC:
			path, err = facade.ExportSELIC(ctx, startYear, endYear, series)
		case targetSELICMeta:
			path, err = facade.ExportSELICMeta(ctx, startYear, endYear)
		}
		if err != nil {
			return err
		}
		fmt.Println(path)
	}
	return nil
}

func newHTTPClient(timeout time.Duration, logger *zap.Logger) *httpx.Client {
	hc := httpx.New(timeout)
	hc.Logger = logger.Named("http")
	return hc
}
