package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrNotReady    = errors.New("not ready")
	ErrUnavailable = errors.New("unavailable")
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Reload  bool   `json:"reload,omitempty"`
}

func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

func (e *APIError) ToHTTP(status int) *echo.HTTPError {
	return echo.NewHTTPError(status, e)
}

func BadRequest(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusBadRequest)
}

func NotFound(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusNotFound)
}

func Conflict(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusConflict)
}

func BadGateway(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusBadGateway)
}

func Unavailable(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusServiceUnavailable)
}

func InternalError(code, message string) *echo.HTTPError {
	return NewAPIError(code, message).ToHTTP(http.StatusInternalServerError)
}

// ErrorHandler is the last-resort boundary for the HTTP surface. Anything that
// is not already an *echo.HTTPError (including panics turned into errors by the
// Recover middleware) is answered with a generic body that tells the client to
// reload rather than retry the same request.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			body := he.Message
			if msg, ok := he.Message.(string); ok {
				body = NewAPIError(http.StatusText(he.Code), msg)
			}
			if writeErr := respond(c, he.Code, body); writeErr != nil {
				logger.Error("write error response failed", "error", writeErr)
			}
			return
		}

		logger.Error("unhandled request error", "error", err, "path", c.Request().URL.Path)
		apiErr := NewAPIError("internal_error", "something went wrong, reload to start over")
		apiErr.Reload = true
		if writeErr := respond(c, http.StatusInternalServerError, apiErr); writeErr != nil {
			logger.Error("write error response failed", "error", writeErr)
		}
	}
}

func respond(c echo.Context, status int, body any) error {
	if c.Request().Method == http.MethodHead {
		return c.NoContent(status)
	}
	return c.JSON(status, body)
}
