package http

import (
	"time"

	xutil "FxCockpit/pkg/util"

	"github.com/labstack/echo/v4"
)

// QueryTime reads an optional time query parameter. A present but unparsable value is a 400.
func QueryTime(c echo.Context, name string, def time.Time) (time.Time, *AppError) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	t, ok := xutil.ParseTime(raw)
	if !ok {
		return time.Time{}, BadRequestErrorf("%s must be RFC3339 or unix seconds", name)
	}
	return t, nil
}
