// Command dsmetl ingests a DSM settlement file into the canonical store.
//
// It loads the pipeline config, validates it, reads the source file, runs the
// normalization pipeline and performs the idempotent upsert, writing one
// ingestion-log entry per attempt.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"dsmetl/internal/clean"
	"dsmetl/internal/config"
	"dsmetl/internal/loader"
	"dsmetl/internal/metrics"
	"dsmetl/internal/metrics/datadog"
	"dsmetl/internal/metrics/prompush"
	"dsmetl/internal/pipeline"
	"dsmetl/internal/storage"
	"dsmetl/internal/table"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "dsmetl/internal/storage/all"
)

func main() {
	var (
		cfgPath           string
		filePath          string
		metricsBackendFlg string
		pushGatewayURLFlg string
		overwrite         bool
		skipExisting      bool
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/pipelines/sample.json", "pipeline config JSON path")
	flag.StringVar(&filePath, "file", "", "settlement file to ingest (overrides source.path from config)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (pushgateway, datadog, none); overrides config")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&overwrite, "overwrite", false, "replace rows whose (site, month) already exists; overrides config")
	flag.BoolVar(&skipExisting, "skip-existing", false, "leave existing rows untouched; overrides config")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if overwrite && skipExisting {
		fatalf("-overwrite and -skip-existing are mutually exclusive")
	}

	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	if filePath != "" {
		p.Source.Path = filePath
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintln(os.Stderr, iss)
	}
	if config.HasErrors(issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}

	// If validate flag is set, only validate the configuration and exit
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	mode := p.Ingest.Overwrite
	if overwrite {
		mode = true
	}
	if skipExisting {
		mode = false
	}

	closeMetrics := setupMetrics(p, metricsBackendFlg, pushGatewayURLFlg, *verbose)
	defer closeMetrics()

	ctx := context.Background()
	start := time.Now()

	store, err := storage.New(ctx, storage.Config(p.Storage))
	if err != nil {
		fatalf("open storage: %v", err)
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		fatalf("init storage: %v", err)
	}

	aliases := clean.DefaultAliases()
	if p.Aliases.Path != "" {
		aliases, err = clean.LoadAliases(p.Aliases.Path)
		if err != nil {
			fatalf("load aliases: %v", err)
		}
	}

	var ref *table.Table
	if p.Reference.Path != "" {
		ref, err = loader.Load(p.Reference.Path, loader.Options{})
		if err != nil {
			fatalf("load reference: %v", err)
		}
	}

	src, err := loader.Load(p.Source.Path, loader.Options{Sheet: p.Source.Sheet})
	if err != nil {
		fatalf("load source: %v", err)
	}
	if *verbose {
		log.Printf("pipeline: source=%s rows=%d overwrite=%v storage=%s",
			p.Source.Path, src.NumRows(), mode, p.Storage.Kind)
	}

	pl := pipeline.New(store, aliases, ref)
	stats, err := pl.Ingest(ctx, src, filepath.Base(p.Source.Path), mode)
	if err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("ingest: inserted=%d updated=%d skipped=%d dropped=%d total=%d",
		stats.Inserted, stats.Updated, stats.Skipped, stats.Dropped, stats.Total)
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// setupMetrics wires the metrics backend selected by flag → config → env and
// returns the shutdown hook (final flush).
func setupMetrics(p config.Pipeline, backendFlg, gwURLFlg string, verbose bool) func() {
	backendName := backendFlg
	if backendName == "" {
		backendName = p.Metrics.Backend
	}
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}

	jobName := p.Job
	if jobName == "" {
		jobName = "dsm_ingest"
	}

	switch backendName {
	case "pushgateway":
		// Decide Pushgateway URL: flag → config → env → default.
		gwURL := gwURLFlg
		if gwURL == "" {
			gwURL = p.Metrics.PushgatewayURL
		}
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}

		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, jobName)
		metrics.SetBackend(b)
		return func() {
			if err := metrics.Flush(); err != nil {
				log.Printf("metrics: flush error: %v", err)
			}
		}

	case "datadog":
		extraTags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: jobName,
			Tags:    extraTags,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: backend=%v job_name=%v tags=%v", backendName, jobName, extraTags)
		metrics.SetBackend(b)
		// Close() stops the periodic flush loop and then performs a final
		// Flush(); it is the clean shutdown path for this backend.
		return func() {
			if err := b.Close(); err != nil {
				log.Printf("metrics: datadog close/flush error: %v", err)
			}
		}

	case "", "none":
		// metrics disabled; nop backend remains
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
	return func() {}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
