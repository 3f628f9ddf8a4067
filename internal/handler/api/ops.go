package api

import (
	"context"
	"net/http"
	"time"

	"FxCockpit/internal/scheduler"
	xhttp "FxCockpit/pkg/http"
	xlogger "FxCockpit/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	stateUp       = "up"
	stateDown     = "down"
	stateDisabled = "disabled"
)

// HealthCheck checks one dependency. A nil Check reports the component as disabled.
// Only critical failures turn the endpoint into a 503.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// JobRunner is the part of the scheduler exposed over HTTP.
type JobRunner interface {
	Status() []scheduler.JobStatus
	RunNow(ctx context.Context, name string) error
}

// OpsHandler serves health and scheduler endpoints.
type OpsHandler struct {
	logger *xlogger.Logger
	checks []HealthCheck
	jobs   JobRunner
}

func NewOpsHandler(logger *xlogger.Logger, jobs JobRunner, checks ...HealthCheck) *OpsHandler {
	return &OpsHandler{logger: logger.With("api.ops"), checks: checks, jobs: jobs}
}

func (h *OpsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	g := e.Group("/api/scheduler")
	g.GET("/jobs", h.Jobs)
	g.POST("/jobs/:name/run", h.RunJob)
}

func (h *OpsHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	res := xhttp.HealthStatus{Status: "ok", Components: make(map[string]string, len(h.checks)), Time: time.Now().UTC()}
	code := http.StatusOK
	for _, hc := range h.checks {
		if hc.Check == nil {
			res.Components[hc.Name] = stateDisabled
			continue
		}
		if err := hc.Check(ctx); err != nil {
			res.Components[hc.Name] = stateDown
			h.logger.Warn("health check failed", xlogger.String("component", hc.Name), xlogger.Error(err))
			if hc.Critical {
				res.Status = "unavailable"
				code = http.StatusServiceUnavailable
			} else if res.Status == "ok" {
				res.Status = "degraded"
			}
			continue
		}
		res.Components[hc.Name] = stateUp
	}
	return c.JSON(code, res)
}

func (h *OpsHandler) Jobs(c echo.Context) error {
	st := h.jobs.Status()
	return xhttp.ListResponse(c, st, int64(len(st)))
}

// RunJob triggers a job synchronously and reports its outcome.
func (h *OpsHandler) RunJob(c echo.Context) error {
	if err := h.jobs.RunNow(c.Request().Context(), c.Param("name")); err != nil {
		return fail(c, h.logger, "manual job run failed", err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"job": c.Param("name"), "result": "ok"})
}
