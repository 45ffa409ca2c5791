// README: Bench flag parsing and summary tests.
package main

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFlagsPrefersFlagsOverEnv(t *testing.T) {
	t.Setenv("MEDRIDE_BENCH_BASE_URL", "http://env:9000/")
	t.Setenv("MEDRIDE_BENCH_STRICT", "yes")
	t.Setenv("MEDRIDE_BENCH_CONCURRENCY", "lots")

	cfg := parseFlags(flag.NewFlagSet("bench", flag.ContinueOnError), []string{"-duration=2s"})
	assert.Equal(t, "http://env:9000", cfg.BaseURL)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 20, cfg.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.Duration)

	cfg = parseFlags(flag.NewFlagSet("bench", flag.ContinueOnError), []string{"-base-url=http://cli", "-concurrency=-3"})
	assert.Equal(t, "http://cli", cfg.BaseURL)
	assert.Equal(t, 1, cfg.Concurrency)
}

func TestSummarize(t *testing.T) {
	tally := summarize([]Result{{Status: StatusPass}, {Status: StatusFail}, {Status: StatusPass}, {Status: StatusSkip}})
	assert.Equal(t, 2, tally[StatusPass])
	assert.Equal(t, 1, tally[StatusFail])
	assert.Equal(t, 1, tally[StatusSkip])
}
