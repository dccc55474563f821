package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/agentrace/internal/agent"
	"github.com/GriffinCanCode/AgentOS/agentrace/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/agentrace/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/agentrace/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/agentrace/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/agentrace/internal/shared/id"
)

var defaultIntents = []string{
	"upper hello world and count the quick brown fox",
	"echo tracing is on and what time is it",
}

func main() {
	cfg := config.LoadOrDefault()

	// Flags override environment
	dir := flag.String("dir", cfg.Tracing.Dir, "Trace output directory")
	format := flag.String("format", cfg.Tracing.Format, "Trace format (json, yaml, toml)")
	compression := flag.String("compression", cfg.Tracing.Compression, "Trace compression (none, gzip, zstd)")
	enabled := flag.Bool("trace", cfg.Tracing.Enabled, "Record a trace")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development logging")
	metricsFile := flag.String("metrics", "", "Write tracer metrics to this textfile")
	flag.Parse()

	logger := logging.NewFromLevel(cfg.Logging.Level, *dev)
	defer logger.Sync()

	if *metricsFile == "" && cfg.Metrics.Enabled {
		*metricsFile = cfg.Metrics.File
	}

	intents := flag.Args()
	if len(intents) == 0 {
		intents = defaultIntents
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, runOptions{
		dir:         *dir,
		format:      tracing.Format(*format),
		compression: tracing.Compression(*compression),
		enabled:     *enabled,
		metricsFile: *metricsFile,
		model:       cfg.Agent.Model,
		intents:     intents,
	}); err != nil {
		logger.Error("session failed", zap.Error(err))
		os.Exit(1)
	}
}

type runOptions struct {
	dir         string
	format      tracing.Format
	compression tracing.Compression
	enabled     bool
	metricsFile string
	model       string
	intents     []string
}

func run(ctx context.Context, logger *logging.Logger, opts runOptions) error {
	sessionID := id.NewSessionID()
	client := agent.NewScriptedClient(opts.model, nil)
	a := agent.New(client, agent.DefaultTools(), logger.Component("agent"))

	var tracer *tracing.Tracer
	var registry *prometheus.Registry
	if opts.enabled {
		exporter, err := tracing.NewFileExporter(opts.dir,
			tracing.WithFormat(opts.format),
			tracing.WithCompression(opts.compression),
			tracing.WithExportLogger(logger.Component("exporter")),
		)
		if err != nil {
			return err
		}

		tracerOpts := []tracing.Option{
			tracing.WithExporter(exporter),
			tracing.WithLogger(logger.Component("tracer")),
		}
		if opts.metricsFile != "" {
			registry = prometheus.NewRegistry()
			tracerOpts = append(tracerOpts, tracing.WithMetrics(monitoring.NewMetrics(registry)))
		}
		tracer = tracing.New(tracerOpts...)

		var tok tracing.Token
		ctx, tok = tracer.Activate(ctx)
		defer tracer.Deactivate(tok)
	}

	logger.Info("Starting session",
		zap.String("session_id", sessionID.String()),
		zap.Int("intents", len(opts.intents)),
		zap.Bool("tracing", opts.enabled),
	)

	outcomes, err := a.RunSession(ctx, sessionID, opts.intents)
	for _, o := range outcomes {
		for _, answer := range o.Answers {
			fmt.Printf("%s -> %s\n", o.Intent, answer)
		}
	}

	if tracer != nil {
		// Rewrites the session file already written by auto-export so its path can be printed.
		if path, exportErr := tracer.Export(); exportErr != nil {
			logger.Error("trace export failed", zap.Error(exportErr))
		} else if path != "" {
			fmt.Printf("trace: %s\n", path)
		}
	}
	if registry != nil {
		if werr := prometheus.WriteToTextfile(opts.metricsFile, registry); werr != nil {
			logger.Warn("failed to write metrics", zap.Error(werr))
		}
	}
	return err
}
