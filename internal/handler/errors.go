package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every error as {"error": "<message>"}. Errors that
// are not *echo.HTTPError become a 500 with a generic message.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "http_error")
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := http.StatusText(code)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			switch m := he.Message.(type) {
			case string:
				msg = m
			case error:
				msg = m.Error()
			default:
				msg = http.StatusText(code)
			}
			if he.Internal != nil && code >= http.StatusInternalServerError {
				logger.Error("request failed", "path", c.Request().URL.Path, "err", he.Internal)
			}
		} else {
			logger.Error("unhandled error", "path", c.Request().URL.Path, "err", err)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, map[string]string{"error": msg})
		}
		if werr != nil {
			logger.Warn("writing error response", "err", werr)
		}
	}
}

// fail builds an HTTP error with a client-facing message, keeping the cause
// for logs.
func fail(code int, msg string, cause error) *echo.HTTPError {
	he := echo.NewHTTPError(code, msg)
	if cause != nil {
		he = he.SetInternal(cause)
	}
	return he
}
