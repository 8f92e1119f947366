package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Check names reported by /health and /ready.
const (
	CheckRecords = "records"
	CheckImages  = "images"
)

// pingTimeout bounds a single dependency ping.
const pingTimeout = 2 * time.Second

// HealthChecker defines interface for health checking
type HealthChecker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a ping function, such as a record store's Ping, to
// HealthChecker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// PingCheck wraps ping so one slow dependency cannot hold the whole report.
func PingCheck(ping func(ctx context.Context) error) HealthChecker {
	return CheckFunc(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return ping(ctx)
	})
}

// Checks maps a dependency name to its checker.
type Checks map[string]HealthChecker

// Run pings every dependency concurrently.
func (c Checks) Run(ctx context.Context) map[string]CheckStatus {
	out := make(map[string]CheckStatus, len(c))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, checker := range c {
		wg.Add(1)
		go func(name string, checker HealthChecker) {
			defer wg.Done()
			st := CheckStatus{Status: statusHealthy}
			if err := checker.Check(ctx); err != nil {
				st = CheckStatus{Status: statusUnhealthy, Message: err.Error()}
			}
			mu.Lock()
			out[name] = st
			mu.Unlock()
		}(name, checker)
	}
	wg.Wait()
	return out
}

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// HealthStatus represents the health status
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// CheckStatus represents individual check status
type CheckStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthHandler reports every dependency and answers 503 if any is down.
func HealthHandler(checks Checks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := HealthStatus{
			Status:    statusHealthy,
			Timestamp: time.Now().UTC(),
			Checks:    checks.Run(ctx),
		}
		for _, st := range health.Checks {
			if st.Status != statusHealthy {
				health.Status = statusUnhealthy
			}
		}

		code := http.StatusOK
		if health.Status != statusHealthy {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, health)
	}
}

// ReadinessHandler answers 503 while the record store is unreachable.
// Results cannot be saved without it; the image store is optional.
func ReadinessHandler(checks Checks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ready", http.StatusOK
		if c, ok := checks[CheckRecords]; ok {
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			defer cancel()
			if err := c.Check(ctx); err != nil {
				status, code = "not ready", http.StatusServiceUnavailable
			}
		}
		writeStatus(w, code, map[string]interface{}{
			"status":    status,
			"timestamp": time.Now().UTC(),
		})
	}
}

// LivenessHandler creates a liveness check handler (simplest check)
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeStatus(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
