package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"gopkg.in/yaml.v3"

	"github.com/Lxr713/AO3-Crawler/pkg/checkpoint"
	"github.com/Lxr713/AO3-Crawler/pkg/config"
	"github.com/Lxr713/AO3-Crawler/pkg/crawl"
	"github.com/Lxr713/AO3-Crawler/pkg/fetch"
	"github.com/Lxr713/AO3-Crawler/pkg/metrics"
	"github.com/Lxr713/AO3-Crawler/pkg/output"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	configFileFlag := flag.String("config", "config.yaml", "Path to YAML config file")
	logLevelFlag := flag.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	inputFlag := flag.String("input", "", "Work ID source: text file or discover checkpoint (overrides config)")
	checkpointFlag := flag.String("checkpoint", "", "Batch checkpoint file (overrides config)")
	retryFailedFlag := flag.Bool("retry-failed", false, "Return previously failed works to the pending set")
	metricsFlag := flag.String("metrics", "", "Address for the metrics HTTP endpoint (empty to disable)")
	flag.Parse()

	if level, err := logrus.ParseLevel(*logLevelFlag); err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", *logLevelFlag, err)
	} else {
		log.SetLevel(level)
	}

	cfg, warnings, err := loadConfig(*configFileFlag)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	for _, w := range warnings {
		log.Warn(w)
	}
	if *inputFlag != "" {
		cfg.InputFile = *inputFlag
	}
	if *checkpointFlag != "" {
		cfg.CheckpointFile = *checkpointFlag
	}

	runID := uuid.NewString()
	runLog := logrus.NewEntry(log).WithField("run_id", runID)
	runLog.WithFields(logrus.Fields{
		"max_concurrent": cfg.MaxConcurrent, "max_retries": cfg.MaxRetries,
		"input": cfg.InputFile, "checkpoint": cfg.CheckpointFile,
	}).Info("Batch crawl starting")

	if *metricsFlag != "" {
		go func() {
			runLog.Infof("Metrics endpoint on http://%s/metrics", *metricsFlag)
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(*metricsFlag, mux); err != nil {
				runLog.Errorf("Metrics server failed: %v", err)
			}
		}()
	}

	ctx, cancel := signalContext(runLog)
	defer cancel()

	// --- Resolve the unit list (fatal: nothing to do without it) ---
	units, err := checkpoint.LoadUnitIDs(cfg.InputFile)
	if err != nil {
		log.Fatalf("Cannot resolve work IDs: %v (run the discover phase first, or pass -input)", err)
	}
	runLog.Infof("Loaded %d work IDs from %s", len(units), cfg.InputFile)

	// --- Components ---
	store := checkpoint.NewStore(cfg.CheckpointFile, runLog)
	writer, err := output.NewWriter(cfg.OutputDir, runLog)
	if err != nil {
		log.Fatalf("Output dir: %v", err)
	}
	client := fetch.NewClient(cfg, runLog)
	sem := semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	fetcher := fetch.NewFetcher(client, sem, cfg, runLog)
	proc := crawl.NewWorkProcessor(cfg, fetcher, writer, runLog)

	orch := crawl.New(cfg, store, proc, runID, crawl.Options{RetryFailed: *retryFailedFlag}, runLog)
	summary, runErr := orch.Run(ctx, units)

	if err := writer.WriteSummary(summary); err != nil {
		runLog.Errorf("Failed to write run summary: %v", err)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			runLog.Warn("Crawl cancelled gracefully")
			os.Exit(0)
		}
		runLog.Errorf("Crawl finished with error: %v", runErr)
		os.Exit(1)
	}
	runLog.Info("Crawl completed successfully")
}

// loadConfig reads and validates the YAML config, returning any non-fatal
// warnings alongside it.
func loadConfig(path string) (*config.AppConfig, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read config '%s': %w", path, err)
	}
	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parse config '%s': %w", path, err)
	}
	warnings, err := cfg.Validate()
	if err != nil {
		return nil, warnings, fmt.Errorf("validate config '%s': %w", path, err)
	}
	return &cfg, warnings, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM. A second
// signal, or a graceful-shutdown window elapsing, forces exit.
func signalContext(log *logrus.Entry) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warnf("Received signal: %v. Initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig = <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded. Forcing exit.")
			os.Exit(1)
		}
	}()

	return ctx, cancel
}
