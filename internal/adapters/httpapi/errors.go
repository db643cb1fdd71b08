package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bnema/classroom/internal/application"
	"github.com/bnema/classroom/internal/domain"
	"github.com/labstack/echo/v4"
)

var statusBySentinel = []struct {
	err  error
	code int
}{
	{domain.ErrRoleConflict, http.StatusConflict},
	{domain.ErrSessionEnded, http.StatusGone},
	{domain.ErrSessionNotFound, http.StatusNotFound},
	{domain.ErrSceneDirectoryNotFound, http.StatusNotFound},
	{domain.ErrInvalidToken, http.StatusUnauthorized},
}

// newHTTPErrorHandler maps domain errors to status codes. Bodies are
// {"error": message}, plus "fields" for validation failures.
func newHTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code, body := errorResponse(err)
		if code >= http.StatusInternalServerError {
			logger.Error("request failed", "method", c.Request().Method, "path", c.Request().URL.Path, "error", err)
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			logger.Error("write error response", "error", err)
		}
	}
}

func errorResponse(err error) (int, echo.Map) {
	var validationErr *application.ValidationError
	if errors.As(err, &validationErr) {
		fields := make(map[string]string, len(validationErr.Fields))
		for _, field := range validationErr.Fields {
			fields[field.Field] = field.Message
		}
		return http.StatusBadRequest, echo.Map{"error": "invalid request", "fields": fields}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message, ok := httpErr.Message.(string)
		if !ok {
			message = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, echo.Map{"error": message}
	}

	for _, candidate := range statusBySentinel {
		if errors.Is(err, candidate.err) {
			return candidate.code, echo.Map{"error": err.Error()}
		}
	}

	return http.StatusInternalServerError, echo.Map{"error": http.StatusText(http.StatusInternalServerError)}
}
