package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"voicepipe/internal/adapters/brightdata"
	"voicepipe/internal/adapters/checker"
	"voicepipe/internal/adapters/snapshotstore"
	"voicepipe/internal/adapters/ytdlp"
	"voicepipe/internal/config"
	"voicepipe/internal/denoise"
	"voicepipe/internal/extractor"
	"voicepipe/internal/filter"
	"voicepipe/internal/service"
	"voicepipe/internal/snapshot"
	"voicepipe/internal/voiceonly"
)

func main() {
	// Load .env if present; environment variables may be set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	outputDir := flag.String("output-dir", "", "Override output directory")
	forceRecheck := flag.Bool("force-recheck", false, "Recheck accounts even if already logged")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: voicepipe [flags] <input-file>")
		fmt.Println("\nInput: usernames, one per line (.txt) or in a username column (.csv)")
		fmt.Println("\nExample:")
		fmt.Println("  voicepipe -output-dir ./output usernames.txt")
		os.Exit(1)
	}
	inputFile := flag.Arg(0)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}

	if _, err := os.Stat(inputFile); err != nil {
		logger.Error("input file not found", "path", inputFile)
		os.Exit(1)
	}

	store, err := snapshotstore.Open(cfg.Output.RegistryPath())
	if err != nil {
		logger.Error("cannot open snapshot store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	validator, err := checker.NewValidator(
		checker.NewHTTPChecker(cfg.Validation.Timeout),
		cfg.Validation,
		cfg.Output.CheckerLogPath(),
		logger,
	)
	if err != nil {
		logger.Error("cannot initialize validator", "error", err)
		os.Exit(1)
	}

	runner := ytdlp.New()
	pipeline := service.New(
		cfg,
		validator,
		brightdata.New(cfg.BrightData),
		snapshot.NewManager(store, logger),
		filter.NewDetector(cfg.Validation.Timeout, logger),
		extractor.New(runner, cfg.Sample, cfg.Output.SamplesDir(), logger),
		denoise.New(cfg.Denoise, cfg.Output.AnalysisDir(), logger),
		voiceonly.New(cfg.VoiceOnly, cfg.Output.AnalysisDir(), logger),
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received interrupt signal, cancelling")
		cancel()
	}()

	if err := pipeline.Run(ctx, inputFile, *forceRecheck); err != nil {
		logger.Error("pipeline failed", "error", err)
		os.Exit(1)
	}
}
