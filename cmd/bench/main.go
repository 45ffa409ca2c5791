// README: Smoke/concurrency runner for a live medride API; executes HTTP/DB/Redis checks and prints results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"medride/internal/config"
)

// Config drives one bench run. DSN and RedisAddr share the API's env keys so
// a single .env serves both binaries; empty values skip those checks.
type Config struct {
	BaseURL       string
	DSN           string
	RedisAddr     string
	MigrationPath string
	Strict        bool
	Timeout       time.Duration
	Concurrency   int
	Duration      time.Duration
}

func main() {
	_ = godotenv.Load()
	cfg := parseFlags(flag.CommandLine, os.Args[1:])

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	results := NewRunner(cfg).RunAll(ctx)
	tally := summarize(results)
	fmt.Printf("\n== Summary ==\nPASS=%d FAIL=%d SKIP=%d\n", tally[StatusPass], tally[StatusFail], tally[StatusSkip])

	if tally[StatusFail] > 0 || (cfg.Strict && tally[StatusSkip] > 0) {
		os.Exit(1)
	}
}

func summarize(results []Result) map[string]int {
	tally := make(map[string]int, 3)
	for _, r := range results {
		tally[r.Status]++
	}
	return tally
}

func parseFlags(fs *flag.FlagSet, args []string) Config {
	cfg := Config{}
	fs.StringVar(&cfg.BaseURL, "base-url", config.String("MEDRIDE_BENCH_BASE_URL", "http://localhost:8080"), "API base URL")
	fs.StringVar(&cfg.DSN, "dsn", config.String("MEDRIDE_DB_DSN", ""), "Postgres DSN (empty skips DB checks)")
	fs.StringVar(&cfg.RedisAddr, "redis", config.String("MEDRIDE_REDIS_ADDR", ""), "Redis address (empty skips Redis checks)")
	fs.StringVar(&cfg.MigrationPath, "migration", config.String("MEDRIDE_BENCH_MIGRATION", "migrations/0001_init.up.sql"), "Migration SQL path")
	fs.BoolVar(&cfg.Strict, "strict", config.Bool("MEDRIDE_BENCH_STRICT", false), "Fail on skipped checks")
	fs.DurationVar(&cfg.Timeout, "timeout", config.Duration("MEDRIDE_BENCH_TIMEOUT", time.Minute), "Total timeout")
	fs.IntVar(&cfg.Concurrency, "concurrency", config.Int("MEDRIDE_BENCH_CONCURRENCY", 20), "Concurrency for race and perf checks")
	fs.DurationVar(&cfg.Duration, "duration", config.Duration("MEDRIDE_BENCH_DURATION", 10*time.Second), "Duration for perf checks")
	_ = fs.Parse(args)

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return cfg
}
