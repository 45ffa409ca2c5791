// README: Bench checks for pricing tiers, lifecycle transitions, concurrent accepts and throughput.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

type requestView struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	StatusVersion int    `json:"status_version"`
	EstimatedCost struct {
		Amount int64 `json:"amount"`
	} `json:"estimated_cost"`
}

func createPayload(distanceKm float64) map[string]any {
	return map[string]any{
		"requester_id":   "bench-cg",
		"requester_role": "caregiver",
		"patient_name":   "Bench Patient",
		"contact_phone":  "0700000000",
		"pickup":         "Village A",
		"destination":    "Sub-county Hospital",
		"distance_km":    distanceKm,
		"urgency":        "high",
		"payment_method": "wallet",
	}
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusSkip, Note: "dsn not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: StatusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Migration: tables exist",
			Run:  tablesExist,
		},
		{
			Name: "API: health",
			Run: func(ctx context.Context, r *Runner) Result {
				status, _, latency, err := r.do(ctx, http.MethodGet, base+"/health", nil)
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return expect(status, latency, http.StatusOK)
			},
		},

		quoteCase("Pricing: 2 km -> short tier", base, 2, 5000),
		quoteCase("Pricing: 4 km -> medium tier", base, 4, 10000),
		quoteCase("Pricing: 8 km -> long tier", base, 8, 22000),
		quoteCase("Pricing: 0.4 km clamps to 1 km", base, 0.4, 5000),
		httpCase("Pricing: negative distance -> 400", http.MethodPost, base+"/api/v1/quotes", map[string]any{"distance_km": -1}, http.StatusBadRequest),

		httpCase("Request: missing fields -> 400", http.MethodPost, base+"/api/v1/requests", map[string]any{}, http.StatusBadRequest),
		httpCase("Request: unknown id -> 404", http.MethodGet, base+"/api/v1/requests/does-not-exist", nil, http.StatusNotFound),

		{Name: "Lifecycle: create/accept/start/complete", Run: lifecycle},
		{Name: "Lifecycle: completed cannot transition", Run: completedIsTerminal},
		{Name: "Lifecycle: cancelled cannot be accepted", Run: cancelledIsTerminal},

		{
			Name: "Concurrency: many riders accept one request",
			Run:  concurrentAccept,
		},

		{
			Name: "Perf: quote throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, base+"/api/v1/quotes", map[string]any{"distance_km": 6.5})
			},
		},
	}
}

func (r *Runner) do(ctx context.Context, method, url string, body any) (int, []byte, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, time.Since(start), err
}

func (r *Runner) create(ctx context.Context, distanceKm float64) (requestView, error) {
	var view requestView
	status, body, _, err := r.do(ctx, http.MethodPost, r.cfg.BaseURL+"/api/v1/requests", createPayload(distanceKm))
	if err != nil {
		return view, err
	}
	if status != http.StatusCreated {
		return view, fmt.Errorf("create: status=%d", status)
	}
	if err := json.Unmarshal(body, &view); err != nil {
		return view, fmt.Errorf("create: %w", err)
	}
	return view, nil
}

func (r *Runner) step(ctx context.Context, id, action string, body any) (int, error) {
	status, _, _, err := r.do(ctx, http.MethodPost, r.cfg.BaseURL+"/api/v1/requests/"+id+"/"+action, body)
	return status, err
}

func expect(status int, latency time.Duration, want int) Result {
	note := fmt.Sprintf("status=%d", status)
	if status != want {
		return Result{Status: StatusFail, Latency: latency, Note: note + fmt.Sprintf(" want=%d", want)}
	}
	return Result{Status: StatusPass, Latency: latency, Note: note}
}

func httpCase(name, method, url string, body any, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			status, _, latency, err := r.do(ctx, method, url, body)
			if err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			return expect(status, latency, want)
		},
	}
}

func quoteCase(name, base string, distanceKm float64, wantCents int64) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			status, body, latency, err := r.do(ctx, http.MethodPost, base+"/api/v1/quotes", map[string]any{"distance_km": distanceKm})
			if err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			if status != http.StatusOK {
				return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
			}
			var out struct {
				Quote struct {
					Tier  string `json:"tier"`
					Total struct {
						Amount int64 `json:"amount"`
					} `json:"total"`
				} `json:"quote"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			note := fmt.Sprintf("tier=%s amount=%d", out.Quote.Tier, out.Quote.Total.Amount)
			if out.Quote.Total.Amount != wantCents {
				return Result{Status: StatusFail, Latency: latency, Note: note + fmt.Sprintf(" want=%d", wantCents)}
			}
			return Result{Status: StatusPass, Latency: latency, Note: note}
		},
	}
}

func lifecycle(ctx context.Context, r *Runner) Result {
	start := time.Now()
	req, err := r.create(ctx, 8)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if req.EstimatedCost.Amount != 22000 {
		return Result{Status: StatusFail, Note: fmt.Sprintf("estimated_cost=%d want=22000", req.EstimatedCost.Amount)}
	}
	steps := []struct {
		action string
		body   any
	}{
		{"accept", map[string]any{"rider_id": "bench-rider"}},
		{"start", nil},
		{"complete", nil},
	}
	for _, s := range steps {
		status, err := r.step(ctx, req.ID, s.action, s.body)
		if err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		if status != http.StatusOK {
			return Result{Status: StatusFail, Note: fmt.Sprintf("%s: status=%d", s.action, status)}
		}
	}
	return Result{Status: StatusPass, Latency: time.Since(start), Note: "request=" + req.ID}
}

func completedIsTerminal(ctx context.Context, r *Runner) Result {
	req, err := r.create(ctx, 3)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	for _, a := range []string{"accept", "start", "complete"} {
		if _, err := r.step(ctx, req.ID, a, map[string]any{"rider_id": "bench-rider"}); err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
	}
	for _, a := range []string{"complete", "cancel", "start"} {
		status, err := r.step(ctx, req.ID, a, map[string]any{"rider_id": "bench-rider"})
		if err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		if status != http.StatusConflict {
			return Result{Status: StatusFail, Note: fmt.Sprintf("%s after complete: status=%d", a, status)}
		}
	}
	return Result{Status: StatusPass}
}

func cancelledIsTerminal(ctx context.Context, r *Runner) Result {
	req, err := r.create(ctx, 5)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if status, err := r.step(ctx, req.ID, "cancel", map[string]any{"reason": "bench"}); err != nil || status != http.StatusOK {
		return Result{Status: StatusFail, Note: fmt.Sprintf("cancel: status=%d err=%v", status, err)}
	}
	status, err := r.step(ctx, req.ID, "accept", map[string]any{"rider_id": "bench-rider"})
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	return expect(status, 0, http.StatusConflict)
}

func concurrentAccept(ctx context.Context, r *Runner) Result {
	req, err := r.create(ctx, 4)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succ      int
		conflicts int
		throttled int
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status, err := r.step(ctx, req.ID, "accept", map[string]any{"rider_id": fmt.Sprintf("bench-rider-%d", i)})
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case status >= 200 && status < 300:
				succ++
			case status == http.StatusConflict:
				conflicts++
			case status == http.StatusTooManyRequests:
				throttled++
			}
		}(i)
	}
	wg.Wait()

	note := fmt.Sprintf("success=%d conflict=%d throttled=%d", succ, conflicts, throttled)
	// Throttled callers never reached the service; they neither won nor lost.
	if succ != 1 || succ+conflicts+throttled != r.cfg.Concurrency {
		return Result{Status: StatusFail, Note: note}
	}
	return Result{Status: StatusPass, Note: note}
}

func perfLoad(ctx context.Context, r *Runner, url string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var (
		count    int64
		errCount int64
		mu       sync.Mutex
		wg       sync.WaitGroup
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				status, _, _, err := r.do(ctx, http.MethodPost, url, payload)
				mu.Lock()
				if err != nil || status >= 500 {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func tablesExist(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: StatusSkip, Note: "dsn not configured"}
	}
	tables, err := extractTables(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
			t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: StatusFail, Note: "missing table: " + t}
		}
	}
	return Result{Status: StatusPass, Note: fmt.Sprintf("tables=%d", len(tables))}
}

var createTableRe = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	matches := createTableRe.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}
