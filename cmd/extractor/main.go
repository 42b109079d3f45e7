package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/passbi/txc_segments/internal/batch"
	"github.com/passbi/txc_segments/internal/cache"
	"github.com/passbi/txc_segments/internal/config"
	"github.com/passbi/txc_segments/internal/db"
	"github.com/passbi/txc_segments/internal/export"
	"github.com/passbi/txc_segments/internal/models"
	"github.com/passbi/txc_segments/internal/quality"
	"github.com/passbi/txc_segments/internal/txc"
)

func main() {
	inputDir := flag.String("input", "", "Directory of TransXChange XML documents (required)")
	outputDir := flag.String("output", "", "Directory for CSV outputs (default: input directory)")
	configPath := flag.String("config", "config.yml", "Path to YAML config file")
	strategyName := flag.String("strategy", "", "Lookup strategy: suffix or targeted")
	policyName := flag.String("runtime-policy", "", "Undecodable run times: null or zero")
	workers := flag.Int("workers", 0, "Number of documents processed in parallel")
	useDB := flag.Bool("db", false, "Store the run in Postgres")
	sqlitePath := flag.String("sqlite", "", "Store the run in this SQLite file")
	useCache := flag.Bool("cache", false, "Reuse results of unchanged documents from Redis")
	noFeatures := flag.Bool("no-features", false, "Skip the model feature table")

	flag.Parse()

	if *inputDir == "" {
		fmt.Println("Usage: txc-extract --input=<dir> [--output=<dir>] [--strategy=suffix|targeted] [--runtime-policy=null|zero] [--workers=N] [--db] [--sqlite=<file>] [--cache]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	config.InitLogging()
	config.LoadEnvFiles(".env", ".env.local")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Explicit flags win over file and environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			cfg.Output.Dir = *outputDir
		case "strategy":
			cfg.Extraction.Strategy = *strategyName
		case "runtime-policy":
			cfg.Extraction.RuntimePolicy = *policyName
		case "workers":
			cfg.Extraction.Workers = *workers
		case "db":
			cfg.Database.Enabled = *useDB
		case "sqlite":
			cfg.SQLite.Path = *sqlitePath
		case "cache":
			cfg.Cache.Enabled = *useCache
		case "no-features":
			cfg.Output.Features = !*noFeatures
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = *inputDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *inputDir); err != nil {
		if errors.Is(err, batch.ErrNoDocuments) {
			log.Printf("[!] %v", err)
			os.Exit(1)
		}
		log.Fatalf("Extraction failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, inputDir string) error {
	strategy, err := txc.GetStrategy(cfg.Extraction.Strategy)
	if err != nil {
		return err
	}
	policy, err := txc.ParseRuntimePolicy(cfg.Extraction.RuntimePolicy)
	if err != nil {
		return err
	}

	log.Println("Starting TransXChange extraction...")
	log.Printf("Input: %s", inputDir)
	log.Printf("Strategy: %s, run time policy: %s, workers: %d", strategy.Name(), policy, cfg.Extraction.Workers)

	log.Println("Step 1/4: Finding documents...")
	paths, err := batch.FindDocuments(inputDir)
	if err != nil {
		return err
	}
	log.Printf("Found %d XML documents", len(paths))

	runner := &batch.Runner{
		Extractor: txc.NewExtractor(txc.Options{Strategy: strategy, RuntimePolicy: policy}),
		Workers:   cfg.Extraction.Workers,
	}
	if cfg.Cache.Enabled {
		cacheCfg := cache.ConfigFrom(cfg.Cache)
		if rdb, err := cache.GetClient(cacheCfg); err != nil {
			log.Printf("Warning: result cache disabled: %v", err)
		} else {
			defer cache.Close()
			runner.Cache = cache.NewResultCache(rdb, cacheCfg.TTL)
		}
	}

	log.Println("Step 2/4: Extracting timing segments...")
	result, err := runner.Run(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to run batch: %w", err)
	}
	if ctx.Err() != nil {
		log.Printf("Warning: interrupted, %d documents were skipped", result.Summary.Failed)
	}

	if err := result.Err(); err != nil {
		log.Printf("[!] %v", err)
		export.PrintSummary(os.Stdout, result.Summary, nil)
		return nil
	}

	log.Println("Step 3/4: Writing outputs...")
	stops := export.UniqueStops(result.Segments)
	outputs, err := writeOutputs(cfg, result.Segments, stops)
	if err != nil {
		return err
	}

	log.Println("Step 4/4: Storing run...")
	if ctx.Err() != nil {
		log.Println("Warning: interrupted, skipping store; the CSV outputs are complete for the documents processed")
	} else if err := storeRun(ctx, cfg, inputDir, strategy.Name(), result, stops); err != nil {
		log.Printf("Warning: failed to store run: %v", err)
	}

	report := quality.Analyze(result.Segments, quality.KeyFields)
	export.PrintSummary(os.Stdout, result.Summary, report, outputs...)
	log.Printf("Unique stops: %d", len(stops))
	return nil
}

func writeOutputs(cfg *config.Config, segments []models.TimingSegment, stops []models.UniqueStop) ([]string, error) {
	files := export.NewOutputFiles(cfg.Output.Dir, time.Now())

	if err := export.WriteFile(files.Segments, func(w io.Writer) error {
		return export.WriteSegmentsCSV(w, segments)
	}); err != nil {
		return nil, err
	}
	outputs := []string{files.Segments}

	if cfg.Output.Stops {
		if err := export.WriteFile(files.Stops, func(w io.Writer) error {
			return export.WriteStopsCSV(w, stops)
		}); err != nil {
			return nil, err
		}
		outputs = append(outputs, files.Stops)
	}

	if cfg.Output.Features {
		features := export.DeriveAllFeatures(segments)
		if skipped := len(segments) - len(features); skipped > 0 {
			log.Printf("Warning: %d segments without coordinates left out of the feature table", skipped)
		}
		if err := export.WriteFile(files.Features, func(w io.Writer) error {
			return export.WriteFeaturesCSV(w, features)
		}); err != nil {
			return nil, err
		}
		outputs = append(outputs, files.Features)
	}

	return outputs, nil
}

func storeRun(ctx context.Context, cfg *config.Config, inputDir, strategy string, result *batch.Result, stops []models.UniqueStop) error {
	var sinks []db.Sink

	if cfg.Database.Enabled {
		pool, err := db.GetDB(db.ConfigFrom(cfg.Database))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		store := db.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	if cfg.SQLite.Path != "" {
		store, err := db.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	if len(sinks) == 0 {
		log.Println("No store configured (use --db or --sqlite to enable)")
		return nil
	}

	for _, sink := range sinks {
		run := db.NewRun(inputDir, strategy)
		run.ID = result.Summary.RunID
		if err := db.SaveRun(ctx, sink, run, result.Summary, result.Segments, stops); err != nil {
			return err
		}
		log.Printf("Stored run %s (%d segments, %d stops)", run.ID, len(result.Segments), len(stops))
	}
	return nil
}
