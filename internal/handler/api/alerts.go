package api

import (
	"FxCockpit/internal/usecase"
	xhttp "FxCockpit/pkg/http"
	xlogger "FxCockpit/pkg/logger"

	"github.com/labstack/echo/v4"
)

type createAlertRequest struct {
	Symbol    string  `json:"symbol" validate:"required"`
	Condition string  `json:"condition" validate:"required,condition"`
	Price     float64 `json:"price" validate:"gt=0"`
	Message   string  `json:"message" validate:"max=280"`
}

type AlertHandler struct {
	logger *xlogger.Logger
	alerts *usecase.AlertService
}

func NewAlertHandler(logger *xlogger.Logger, alerts *usecase.AlertService) *AlertHandler {
	return &AlertHandler{logger: logger.With("api.alerts"), alerts: alerts}
}

func (h *AlertHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/alerts")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/reset", h.Reset)
}

func (h *AlertHandler) List(c echo.Context) error {
	rules := h.alerts.List()
	return xhttp.ListResponse(c, rules, int64(len(rules)))
}

func (h *AlertHandler) Create(c echo.Context) error {
	req := &createAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rule, err := h.alerts.Create(c.Request().Context(), usecase.AlertInput{
		Symbol:    req.Symbol,
		Condition: req.Condition,
		Price:     req.Price,
		Message:   req.Message,
	})
	if err != nil {
		return fail(c, h.logger, "create alert failed", err)
	}
	return xhttp.CreatedResponse(c, rule)
}

func (h *AlertHandler) Delete(c echo.Context) error {
	if err := h.alerts.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, h.logger, "delete alert failed", err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *AlertHandler) Reset(c echo.Context) error {
	rule, err := h.alerts.Reset(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, h.logger, "reset alert failed", err)
	}
	return xhttp.SuccessResponse(c, rule)
}
