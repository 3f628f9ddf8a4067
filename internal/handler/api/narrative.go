package api

import (
	"FxCockpit/internal/usecase"
	xhttp "FxCockpit/pkg/http"
	xlogger "FxCockpit/pkg/logger"

	"github.com/labstack/echo/v4"
)

type historyRequest struct {
	Limit int `query:"limit" default:"20" validate:"min=1,max=100"`
}

type providerRequest struct {
	Provider string `json:"provider" validate:"required"`
}

type providerResponse struct {
	Provider string `json:"provider"`
}

type NarrativeHandler struct {
	logger    *xlogger.Logger
	narrative *usecase.NarrativeService
}

func NewNarrativeHandler(logger *xlogger.Logger, narrative *usecase.NarrativeService) *NarrativeHandler {
	return &NarrativeHandler{logger: logger.With("api.narrative"), narrative: narrative}
}

func (h *NarrativeHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/narratives/latest", h.Latest)
	g.GET("/narratives", h.History)
	g.POST("/narratives/generate", h.Generate)
	g.GET("/settings/narrative-provider", h.Provider)
	g.PUT("/settings/narrative-provider", h.SetProvider)
}

func (h *NarrativeHandler) Latest(c echo.Context) error {
	n, err := h.narrative.Latest(c.Request().Context())
	if err != nil {
		return fail(c, h.logger, "latest narrative failed", err)
	}
	return xhttp.SuccessResponse(c, n)
}

func (h *NarrativeHandler) History(c echo.Context) error {
	req := &historyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	items, err := h.narrative.History(c.Request().Context(), req.Limit)
	if err != nil {
		return fail(c, h.logger, "narrative history failed", err)
	}
	return xhttp.ListResponse(c, items, int64(len(items)))
}

// Generate runs the provider synchronously.
func (h *NarrativeHandler) Generate(c echo.Context) error {
	n, err := h.narrative.Generate(c.Request().Context())
	if err != nil {
		return fail(c, h.logger, "narrative generation failed", err)
	}
	return xhttp.CreatedResponse(c, n)
}

func (h *NarrativeHandler) Provider(c echo.Context) error {
	return xhttp.SuccessResponse(c, providerResponse{Provider: h.narrative.Provider()})
}

func (h *NarrativeHandler) SetProvider(c echo.Context) error {
	req := &providerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.narrative.SetProvider(req.Provider); err != nil {
		return fail(c, h.logger, "provider switch failed", err)
	}
	return xhttp.SuccessResponse(c, providerResponse{Provider: h.narrative.Provider()})
}
