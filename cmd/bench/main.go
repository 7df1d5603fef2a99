// README: Smoke and load runner for a deployed API; checks Postgres, Redis and the HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"droptaxi/internal/config"
)

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	sum := summarize(NewRunner(cfg).RunAll(ctx))
	fmt.Printf("\n== Summary ==\n%s\n", sum)
	if !sum.ok(cfg.Strict) {
		os.Exit(1)
	}
}

type Config struct {
	BaseURL        string
	DSN            string
	RedisAddr      string
	MigrationPath  string
	ApplyMigration bool
	Strict         bool
	Timeout        time.Duration
	Concurrency    int
	Duration       time.Duration
}

// loadConfig takes storage addresses from the API's own configuration so the
// runner checks the same instances the server talks to.
func loadConfig() Config {
	app, _ := config.Load()
	cfg := Config{
		BaseURL:       "http://localhost" + app.HTTP.Addr,
		DSN:           app.DB.DSN,
		RedisAddr:     app.Redis.Addr,
		MigrationPath: "migrations/0001_init.sql",
		Timeout:       60 * time.Second,
		Concurrency:   20,
		Duration:      10 * time.Second,
	}
	if v := os.Getenv("DROPTAXI_BENCH_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "API base URL (DROPTAXI_BENCH_BASE_URL)")
	flag.StringVar(&cfg.DSN, "dsn", cfg.DSN, "Postgres DSN")
	flag.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address")
	flag.StringVar(&cfg.MigrationPath, "migration", cfg.MigrationPath, "Migration SQL path")
	flag.BoolVar(&cfg.ApplyMigration, "apply-migration", false, "Apply migration SQL before the checks")
	flag.BoolVar(&cfg.Strict, "strict", false, "Fail on pending checks")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Total timeout")
	flag.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Concurrent clients")
	flag.DurationVar(&cfg.Duration, "duration", cfg.Duration, "Duration of load checks")
	flag.Parse()

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Concurrency < 2 {
		cfg.Concurrency = 2
	}
	return cfg
}
