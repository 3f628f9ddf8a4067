package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	"FxCockpit/internal/scheduler"
	"FxCockpit/internal/service/ratelimit"
	"FxCockpit/internal/services/alerts"
	"FxCockpit/internal/services/session"
	"FxCockpit/internal/snapshot"
	"FxCockpit/internal/usecase"
	xhttp "FxCockpit/pkg/http"
	xlogger "FxCockpit/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memAlertRepo struct {
	mu    sync.Mutex
	rules map[string]models.AlertRule
}

func (r *memAlertRepo) List(context.Context) ([]models.AlertRule, error) { return nil, nil }

func (r *memAlertRepo) Save(_ context.Context, rule models.AlertRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID] = rule
	return nil
}

func (r *memAlertRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rules, id)
	return nil
}

type stubGenerator struct {
	provider string
	err      error
}

func (s *stubGenerator) Provider() string { return s.provider }
func (s *stubGenerator) Set(p string) error {
	if p != "gemini" && p != "claude" {
		return fmt.Errorf("unknown provider %q: %w", p, domain.ErrValidation)
	}
	s.provider = p
	return nil
}
func (s *stubGenerator) Generate(context.Context, models.NarrativeContext) (string, error) {
	return "- calm Tokyo session", s.err
}

type emptyNarratives struct{}

func (emptyNarratives) Append(context.Context, models.Narrative, []byte) error { return nil }
func (emptyNarratives) Latest(context.Context) (*models.Narrative, error) {
	return nil, domain.ErrNotFound
}
func (emptyNarratives) List(context.Context, int) ([]models.Narrative, error) {
	return []models.Narrative{}, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordJobRun(string, string, float64) {}
func (nopMetrics) RecordJobSkipped(string)              {}
func (nopMetrics) RecordSnapshotVersion(uint64)         {}
func (nopMetrics) RecordLastPrice(string, float64)      {}
func (nopMetrics) RecordAlertTriggered(string)          {}
func (nopMetrics) RecordError(string)                   {}
func (nopMetrics) RecordLatency(string, float64)        {}

type fixture struct {
	e     *echo.Echo
	store *snapshot.Store
	book  *usecase.QuoteBook
	gen   *stubGenerator
}

func newFixture(t *testing.T, checks ...HealthCheck) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	log := xlogger.Nop()
	clock := session.NewClock(loc, session.DefaultDefinitions(loc))
	store := snapshot.NewStore("USDJPY")
	book := usecase.NewQuoteBook()
	gen := &stubGenerator{provider: "gemini"}

	alertSvc := usecase.NewAlertService(alerts.NewEngine(&memAlertRepo{rules: map[string]models.AlertRule{}}, log), "USDJPY", nil)
	narr := usecase.NewNarrativeService("USDJPY", gen, emptyNarratives{}, store, book, nil, nil, nopMetrics{},
		ratelimit.New(), 5, 1.5, log)
	sched := scheduler.New(loc, log)
	require.NoError(t, sched.Register(scheduler.Job{Name: "sessions", Interval: time.Minute, Run: func(context.Context) error { return nil }}))

	srv := xhttp.NewServer([]xhttp.Handler{
		NewMarketHandler(log, usecase.NewQueryService(store, clock)),
		NewAlertHandler(log, alertSvc),
		NewNarrativeHandler(log, narr),
		NewOpsHandler(log, sched, checks...),
	})
	return &fixture{e: srv.Echo(), store: store, book: book, gen: gen}
}

func (f *fixture) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func TestMarketRoutes(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/api/statistics", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.store.Update(func(s *models.Snapshot) {
		s.Statistics = snapshot.Apply(s.Statistics, &models.StatisticsReport{Bias: models.BiasBearish}, nil, time.Now())
	})
	rec, body := f.do(t, http.MethodGet, "/api/statistics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "bearish", data["data"].(map[string]interface{})["bias"])
	assert.Equal(t, false, data["stale"])

	rec, body = f.do(t, http.MethodGet, "/api/sessions/status?at=2024-03-06T13:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	board := body["data"].(map[string]interface{})["data"].(map[string]interface{})
	assert.Equal(t, "22:00", board["current_time"])

	rec, _ = f.do(t, http.MethodGet, "/api/sessions/status?at=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = f.do(t, http.MethodGet, "/api/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "USDJPY", body["data"].(map[string]interface{})["symbol"])
}

func TestAlertRoutes(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodPost, "/api/alerts", `{"symbol":"USDJPY","condition":"above","price":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	verrs := body["data"].([]interface{})
	require.Len(t, verrs, 1)
	assert.Equal(t, "price", verrs[0].(map[string]interface{})["field"])
	assert.Equal(t, "ERR_GT", verrs[0].(map[string]interface{})["code"])

	rec, body = f.do(t, http.MethodPost, "/api/alerts", `{"symbol":"USDJPY","condition":"sideways","price":150}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ERR_CONDITION", body["data"].([]interface{})[0].(map[string]interface{})["code"])

	rec, body = f.do(t, http.MethodPost, "/api/alerts", `{"symbol":"USDJPY","condition":"above","price":150.5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rule := body["data"].(map[string]interface{})
	id := rule["id"].(string)
	assert.Equal(t, "above", rule["condition"])
	assert.Equal(t, "USDJPY is above 150.5", rule["message"])

	rec, body = f.do(t, http.MethodGet, "/api/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["data"].(map[string]interface{})["total"])

	rec, _ = f.do(t, http.MethodPost, "/api/alerts/"+id+"/reset", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodDelete, "/api/alerts/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = f.do(t, http.MethodDelete, "/api/alerts/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = f.do(t, http.MethodPost, "/api/alerts/"+id+"/reset", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNarrativeRoutes(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/api/narratives/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/narratives/generate", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.book.Update(models.Quote{Symbol: "USDJPY", Price: 150.3, Timestamp: time.Now()})
	rec, body := f.do(t, http.MethodPost, "/api/narratives/generate", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "- calm Tokyo session", body["data"].(map[string]interface{})["content"])

	f.gen.err = fmt.Errorf("quota exceeded: %w", domain.ErrExternalService)
	rec, _ = f.do(t, http.MethodPost, "/api/narratives/generate", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/narratives?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = f.do(t, http.MethodGet, "/api/narratives", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = f.do(t, http.MethodPut, "/api/settings/narrative-provider", `{"provider":"claude"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "claude", body["data"].(map[string]interface{})["provider"])

	rec, _ = f.do(t, http.MethodPut, "/api/settings/narrative-provider", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNarrativeRateLimit(t *testing.T) {
	f := newFixture(t)
	f.book.Update(models.Quote{Symbol: "USDJPY", Price: 150.3, Timestamp: time.Now()})

	codes := map[int]int{}
	for i := 0; i < 6; i++ {
		rec, _ := f.do(t, http.MethodPost, "/api/narratives/generate", "")
		codes[rec.Code]++
	}
	assert.Equal(t, 5, codes[http.StatusCreated])
	assert.Equal(t, 1, codes[http.StatusTooManyRequests])
}

func TestOpsRoutes(t *testing.T) {
	f := newFixture(t,
		HealthCheck{Name: "database", Critical: true, Check: func(context.Context) error { return nil }},
		HealthCheck{Name: "clickhouse"},
		HealthCheck{Name: "feed", Check: func(context.Context) error { return errors.New("disconnected") }},
	)

	rec, body := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", body["status"])
	comps := body["components"].(map[string]interface{})
	assert.Equal(t, "up", comps["database"])
	assert.Equal(t, "disabled", comps["clickhouse"])
	assert.Equal(t, "down", comps["feed"])

	rec, body = f.do(t, http.MethodGet, "/api/scheduler/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["data"].(map[string]interface{})["total"])

	rec, _ = f.do(t, http.MethodPost, "/api/scheduler/jobs/sessions/run", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, http.MethodPost, "/api/scheduler/jobs/nope/run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCriticalFailure(t *testing.T) {
	f := newFixture(t, HealthCheck{Name: "database", Critical: true, Check: func(context.Context) error { return errors.New("locked") }})
	rec, body := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", body["status"])
}
