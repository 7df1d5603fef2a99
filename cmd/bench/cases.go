// README: Runner checks: environment, migration, HTTP contract, duplicate-submit race and load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	statusPass    = "PASS"
	statusFail    = "FAIL"
	statusPending = "PENDING"
	statusSkip    = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

// summary counts results per status.
type summary map[string]int

func summarize(results []Result) summary {
	s := summary{}
	for _, r := range results {
		s[r.Status]++
	}
	return s
}

// ok fails on any FAIL, and on PENDING too when strict.
func (s summary) ok(strict bool) bool {
	return s[statusFail] == 0 && (!strict || s[statusPending] == 0)
}

func (s summary) String() string {
	return fmt.Sprintf("%s=%d %s=%d %s=%d %s=%d",
		statusPass, s[statusPass], statusFail, s[statusFail],
		statusPending, s[statusPending], statusSkip, s[statusSkip])
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 15 * time.Second},
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
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
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

func place(name string, lat, lng float64) map[string]any {
	return map[string]any{"displayName": name, "location": map[string]any{"lat": lat, "lng": lng}}
}

func estimateBody() map[string]any {
	return map[string]any{
		"source":      place("Chennai", 13.0827, 80.2707),
		"destination": place("Pondicherry", 11.9416, 79.8083),
		"vehicleType": "sedan",
		"tripType":    "single",
	}
}

// benchBooking uses a random far-future date so repeated runs never collide
// with earlier fingerprints.
func benchBooking() map[string]any {
	date := time.Now().AddDate(5, 0, rand.Intn(3650)).Format("2006-01-02")
	b := estimateBody()
	b["date"] = date
	b["name"] = "Bench Runner"
	b["phone"] = fmt.Sprintf("9%09d", rand.Intn(1_000_000_000))
	return b
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusFail, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Migration: apply (optional)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: statusSkip, Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				sql, err := os.ReadFile(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, s := range splitSQL(string(sql)) {
					if _, err := r.db.Exec(ctx, s); err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				var missing []string
				for _, t := range tables {
					var ok bool
					if err := r.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, t).Scan(&ok); err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
					if !ok {
						missing = append(missing, t)
					}
				}
				if len(missing) > 0 {
					return Result{Status: statusFail, Note: "missing " + strings.Join(missing, ",")}
				}
				return Result{Status: statusPass}
			},
		},
		httpCase("API: health", http.MethodGet, base+"/health", nil, []int{200}, nil),
		httpCase("API: rate table", http.MethodGet, base+"/api/fares/rates", nil, []int{200}, nil),
		// 502 means the maps provider is not reachable from the server.
		httpCase("API: fare estimate", http.MethodPost, base+"/api/fares/estimate", estimateBody(), []int{200}, []int{502}),
		httpCase("API: estimate without coordinates rejected", http.MethodPost, base+"/api/fares/estimate", map[string]any{
			"source":      map[string]any{"displayName": "Chennai"},
			"destination": place("Madurai", 9.9252, 78.1198),
			"vehicleType": "sedan",
		}, []int{422}, nil),
		httpCase("API: booking with bad phone rejected", http.MethodPost, base+"/api/bookings", func() map[string]any {
			b := benchBooking()
			b["phone"] = "12345"
			return b
		}(), []int{422}, []int{502}),
		httpCase("API: admin requires auth", http.MethodGet, base+"/api/admin/bookings", nil, []int{401}, nil),
		{
			Name: "Concurrency: duplicate submissions create one booking",
			Run: func(ctx context.Context, r *Runner) Result {
				return duplicateRace(ctx, r, base+"/api/bookings")
			},
		},
		{
			Name: "Perf: rate table throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodGet, base+"/api/fares/rates", nil)
			},
		},
		{
			Name: "Perf: cached estimate throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodPost, base+"/api/fares/estimate", estimateBody())
			},
		},
	}
}

func httpCase(name, method, url string, body any, okStatuses, pendingStatuses []int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			status, err := r.send(ctx, method, url, body)
			lat := time.Since(start)
			if err != nil {
				return Result{Status: statusFail, Latency: lat, Note: err.Error()}
			}
			switch {
			case contains(okStatuses, status):
				return Result{Status: statusPass, Latency: lat}
			case contains(pendingStatuses, status):
				return Result{Status: statusPending, Latency: lat, Note: fmt.Sprintf("status=%d", status)}
			}
			return Result{Status: statusFail, Latency: lat, Note: fmt.Sprintf("status=%d", status)}
		},
	}
}

func (r *Runner) send(ctx context.Context, method, url string, body any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// duplicateRace fires the same booking from every client at once; exactly
// one must be created and the rest rejected as duplicates.
func duplicateRace(ctx context.Context, r *Runner, url string) Result {
	body := benchBooking()
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		statuses = map[int]int{}
	)
	start := make(chan struct{})
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			st, err := r.send(ctx, http.MethodPost, url, body)
			if err != nil {
				st = -1
			}
			mu.Lock()
			statuses[st]++
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	note := fmt.Sprintf("%v", statuses)
	if statuses[502] > 0 {
		return Result{Status: statusPending, Note: "maps unavailable " + note}
	}
	if statuses[201] == 1 && statuses[409] == r.cfg.Concurrency-1 {
		return Result{Status: statusPass, Note: note}
	}
	return Result{Status: statusFail, Note: note}
}

func perfLoad(ctx context.Context, r *Runner, method, url string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		count    int64
		errCount int64
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				st, err := r.send(ctx, method, url, payload)
				mu.Lock()
				if err != nil || st >= 500 {
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
		return Result{Status: statusFail, Note: fmt.Sprintf("no successful requests, errors=%d", errCount)}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
