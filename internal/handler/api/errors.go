package api

import (
	"errors"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/scheduler"
	"FxCockpit/internal/usecase"
	xhttp "FxCockpit/pkg/http"
	xlogger "FxCockpit/pkg/logger"

	"github.com/labstack/echo/v4"
)

// toAppError maps domain sentinels onto HTTP statuses.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, domain.ErrValidation):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, scheduler.ErrUnknownJob):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrRateLimited):
		return xhttp.TooManyRequestsError(err.Error()).WithError(err)
	case errors.Is(err, scheduler.ErrJobRunning), errors.Is(err, scheduler.ErrLockHeld):
		return xhttp.ConflictError(err.Error()).WithError(err)
	case errors.Is(err, domain.ErrExternalService):
		return xhttp.BadGatewayError(err.Error()).WithError(err)
	case errors.Is(err, domain.ErrDataUnavailable):
		return xhttp.ServiceUnavailableError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

// fail logs server-side failures and writes the mapped error envelope.
func fail(c echo.Context, log *xlogger.Logger, msg string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		log.Error(msg, xlogger.Error(err), xlogger.String("path", c.Path()))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
