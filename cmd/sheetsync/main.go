package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"sheetsync/internal/config"
	"sheetsync/internal/feed"
	"sheetsync/internal/metrics"
	"sheetsync/internal/metrics/datadog"
	"sheetsync/internal/server"
	"sheetsync/internal/storage"
	"sheetsync/internal/syncer"

	// register all destination backends with the storage factory.
	// config specifies which to use but we build in support for all of them.
	_ "sheetsync/internal/storage/all"
)

// main is the entry point for the sync service. It loads configuration, runs
// one blocking sync at startup, then serves the health and webhook endpoints.
func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		validate          bool
		skipStartupSync   bool
	)

	flag.StringVar(&cfgPath, "config", "", "optional YAML config path (env vars override)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (datadog, none)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&skipStartupSync, "skip-startup-sync", false, "do not run a sync before serving")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasError(issues) {
		log.Printf("configuration is invalid")
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid")
		os.Exit(0)
	}

	// Decide metrics backend: flag → env → default.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "datadog":
		extraTags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			Tags:       extraTags,
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: backend=%v tags=%v", backendName, extraTags)
			metrics.SetBackend(b)
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}
	case "", "none":
		// metrics disabled; nop backend remains
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{
		Kind:     cfg.StorageKind,
		DSN:      cfg.DatabaseDSN,
		Endpoint: cfg.StoreEndpoint,
		Key:      cfg.StoreKey,
	})
	if err != nil {
		fatalf("open storage: %v", err)
	}
	defer repo.Close()

	s := &syncer.Syncer{
		Source:      &feed.Client{URL: cfg.FeedURL},
		Repo:        repo,
		Logger:      log.Default(),
		SettleDelay: cfg.SettleDelay,
	}

	// The startup sync blocks so the destination is populated before the
	// service starts acknowledging webhooks.
	if !skipStartupSync {
		report, err := s.Run(ctx)
		if err != nil {
			fatalf("startup sync: %v", err)
		}
		if report.Failed() {
			log.Printf("startup sync finished with table errors (run=%s)", report.RunID)
		}
	}

	srv := &server.Server{
		Secret: cfg.WebhookSecret,
		Runner: s,
		Logger: log.Default(),
	}

	log.Printf("listening on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Handler()); err != nil {
		fatalf("serve: %v", err)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
