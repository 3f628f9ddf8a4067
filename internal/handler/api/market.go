package api

import (
	"time"

	"FxCockpit/internal/usecase"
	xhttp "FxCockpit/pkg/http"
	xlogger "FxCockpit/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketHandler serves the snapshot sections.
type MarketHandler struct {
	logger *xlogger.Logger
	query  *usecase.QueryService
}

func NewMarketHandler(logger *xlogger.Logger, query *usecase.QueryService) *MarketHandler {
	return &MarketHandler{logger: logger.With("api.market"), query: query}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/sessions/status", h.Sessions)
	g.GET("/statistics", h.Statistics)
	g.GET("/correlations", h.Correlations)
	g.GET("/keylevels", h.KeyLevels)
	g.GET("/scenarios", h.Scenarios)
	g.GET("/snapshot", h.Snapshot)
}

// Sessions returns the session board; ?at= evaluates it at another instant.
func (h *MarketHandler) Sessions(c echo.Context) error {
	if c.QueryParam("at") == "" {
		return xhttp.SuccessResponse(c, h.query.Sessions())
	}
	at, appErr := xhttp.QueryTime(c, "at", time.Now())
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, h.query.SessionsAt(at))
}

func (h *MarketHandler) Statistics(c echo.Context) error {
	sec, err := h.query.Statistics()
	if err != nil {
		return fail(c, h.logger, "statistics unavailable", err)
	}
	return xhttp.SuccessResponse(c, sec)
}

func (h *MarketHandler) Correlations(c echo.Context) error {
	sec, err := h.query.Correlations()
	if err != nil {
		return fail(c, h.logger, "correlations unavailable", err)
	}
	return xhttp.SuccessResponse(c, sec)
}

func (h *MarketHandler) KeyLevels(c echo.Context) error {
	sec, err := h.query.KeyLevels()
	if err != nil {
		return fail(c, h.logger, "key levels unavailable", err)
	}
	return xhttp.SuccessResponse(c, sec)
}

func (h *MarketHandler) Scenarios(c echo.Context) error {
	sec, err := h.query.Scenarios()
	if err != nil {
		return fail(c, h.logger, "scenarios unavailable", err)
	}
	return xhttp.SuccessResponse(c, sec)
}

func (h *MarketHandler) Snapshot(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, h.query.Snapshot())
}
