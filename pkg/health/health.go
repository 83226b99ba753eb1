// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Response struct {
	Status     Status                 `json:"status"`
	Version    string                 `json:"version,omitempty"`
	Uptime     string                 `json:"uptime,omitempty"`
	Checks     map[string]CheckResult `json:"checks,omitempty"`
	ReportedAt time.Time              `json:"reported_at"`
}

// Pinger is anything that can verify its connection, such as database.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Checker struct {
	version   string
	startTime time.Time
	timeout   time.Duration
	ready     atomic.Bool
	checks    map[string]Pinger
}

func NewChecker(version string) *Checker {
	return &Checker{
		version:   version,
		startTime: time.Now(),
		timeout:   5 * time.Second,
		checks:    make(map[string]Pinger),
	}
}

// Add registers a readiness check. Call it before serving.
func (c *Checker) Add(name string, p Pinger) *Checker {
	c.checks[name] = p
	return c
}

func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

// Register mounts /livez and /readyz.
func (c *Checker) Register(e *echo.Echo) {
	e.GET("/livez", c.Liveness)
	e.GET("/readyz", c.Readiness)
}

func (c *Checker) Liveness(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.response(StatusHealthy, nil))
}

func (c *Checker) Readiness(ctx echo.Context) error {
	if !c.ready.Load() {
		return ctx.JSON(http.StatusServiceUnavailable, c.response(StatusUnhealthy, map[string]CheckResult{
			"startup": {Status: StatusUnhealthy, Message: "service is still starting up"},
		}))
	}

	checks := c.run(ctx.Request().Context())
	status := StatusHealthy
	for _, result := range checks {
		if result.Status == StatusUnhealthy {
			status = StatusUnhealthy
		}
	}

	code := http.StatusOK
	if status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, c.response(status, checks))
}

func (c *Checker) response(status Status, checks map[string]CheckResult) Response {
	return Response{
		Status:     status,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		Checks:     checks,
		ReportedAt: time.Now(),
	}
}

func (c *Checker) run(ctx context.Context) map[string]CheckResult {
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]CheckResult, len(names))
	for _, name := range names {
		results[name] = c.ping(ctx, c.checks[name])
	}
	return results
}

func (c *Checker) ping(ctx context.Context, p Pinger) CheckResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := p.PingContext(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: err.Error(), Latency: time.Since(start).String()}
	}
	return CheckResult{Status: StatusHealthy, Latency: time.Since(start).String()}
}
