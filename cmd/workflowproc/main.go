// =============================================================================
// Workflow processor entry point
// =============================================================================
// CLI for executing workflow requests against the built-in tool registry.
//
// Usage:
//
//	workflowproc run                          # read request JSON from stdin
//	workflowproc run --request req.json       # read request from file
//	workflowproc run --config config.yaml     # with config file
//	workflowproc tools                        # list registered tools
//	workflowproc version                      # show version info
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/BaSui01/workflowproc/config"
	"github.com/BaSui01/workflowproc/dispatch"
	"github.com/BaSui01/workflowproc/engine"
	"github.com/BaSui01/workflowproc/internal/metrics"
	"github.com/BaSui01/workflowproc/internal/telemetry"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runWorkflow(os.Args[2:])
	case "tools":
		listTools()
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// run command
// =============================================================================

func runWorkflow(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	requestPath := fs.String("request", "-", "Path to request JSON ('-' for stdin)")
	fs.Parse(args)

	loader := config.NewLoader().WithEnvPrefix("WORKFLOWPROC")
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(2)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting workflow processor",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := otelProviders.Shutdown(ctx); shutdownErr != nil {
			logger.Warn("telemetry shutdown", zap.Error(shutdownErr))
		}
	}()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	dispatcher := buildDispatcher(cfg.Dispatcher, logger, collector)

	eng := engine.New(dispatcher,
		engine.WithLogger(logger),
		engine.WithMetrics(collector),
		engine.WithDefaults(engine.Defaults{
			Atomic:      cfg.Engine.Atomic,
			MaxParallel: cfg.Engine.MaxParallel,
			MaxFailures: cfg.Engine.MaxFailures,
		}),
	)

	req, err := readRequest(*requestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read request: %v\n", err)
		os.Exit(2)
	}

	resp := eng.Process(context.Background(), req)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode response: %v\n", err)
		os.Exit(2)
	}

	if !resp.Success {
		os.Exit(1)
	}
}

// buildDispatcher assembles the dispatch chain: builtin registry,
// optional rate limiting, optional circuit breaking, then instrumentation.
func buildDispatcher(cfg config.DispatcherConfig, logger *zap.Logger, collector *metrics.Collector) dispatch.Dispatcher {
	var d dispatch.Dispatcher = newBuiltinRegistry()

	if cfg.RateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
		d = dispatch.WithRateLimit(d, limiter)
	}
	if cfg.BreakerEnabled {
		d = dispatch.WithBreaker(d, cfg.Breaker, logger)
	}
	return dispatch.WithInstrumentation(d, logger, collector)
}

func readRequest(path string) (*engine.Request, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var req engine.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("parse request JSON: %w", err)
	}
	return &req, nil
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics endpoint listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics endpoint stopped", zap.Error(err))
	}
}

// =============================================================================
// tools command
// =============================================================================

func listTools() {
	reg := newBuiltinRegistry()
	names := reg.Tools()
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
}

// =============================================================================
// version and help
// =============================================================================

func printVersion() {
	fmt.Printf("workflowproc %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`workflowproc - workflow execution engine

Usage:
  workflowproc <command> [options]

Commands:
  run       Execute a workflow request
  tools     List registered tools
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>    Path to configuration file (YAML)
  --request <path>   Path to request JSON ('-' reads stdin, the default)

Examples:
  workflowproc run --request workflow.json
  cat workflow.json | workflowproc run
  workflowproc run --config /etc/workflowproc/config.yaml --request workflow.json
  workflowproc tools
  workflowproc version`)
}

// =============================================================================
// logger initialization
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	} else {
		zapConfig.Encoding = "json"
	}

	// Workflow responses go to stdout, so logs default to stderr.
	if len(zapConfig.OutputPaths) == 0 {
		zapConfig.OutputPaths = []string{"stderr"}
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
