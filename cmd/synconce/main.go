// Command synconce performs a single sync run and prints the per-table
// report. Useful for cron-style deployments and for inspecting a feed before
// pointing the long-running service at it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"sheetsync/internal/config"
	"sheetsync/internal/feed"
	"sheetsync/internal/storage"
	"sheetsync/internal/syncer"

	_ "sheetsync/internal/storage/all"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "optional YAML config path (env vars override)")
	verbose := flag.Bool("v", false, "enable verbose logs")
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
		fatalf("configuration is invalid")
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
		SettleDelay: cfg.SettleDelay,
	}
	if *verbose {
		s.Logger = log.Default()
	}

	report, err := s.Run(ctx)
	if err != nil {
		fatalf("sync: %v", err)
	}

	fmt.Printf("run %s finished in %s\n", report.RunID, report.Duration.Truncate(time.Millisecond))
	for _, t := range report.Tables {
		if t.Err != nil {
			fmt.Printf("  %-30s %-13s %v\n", t.Table, t.Status, t.Err)
			continue
		}
		fmt.Printf("  %-30s %-13s rows=%d\n", t.Table, t.Status, t.Rows)
	}

	if report.Failed() {
		os.Exit(1)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
