package presenter

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error             string `json:"error"`
	AttemptsRemaining *int   `json:"attemptsRemaining,omitempty"`
	RetryAfterSeconds *int   `json:"retryAfterSeconds,omitempty"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func BadRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func Unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: msg})
}

// Mismatch reports a wrong code along with how many attempts are left, so the
// UI can render "N attempts remaining" without another round-trip.
func Mismatch(c echo.Context, attemptsRemaining int) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{
		Error:             "incorrect code",
		AttemptsRemaining: &attemptsRemaining,
	})
}

func Gone(c echo.Context, msg string) error {
	return c.JSON(http.StatusGone, errorResponse{Error: msg})
}

func TooManyRequests(c echo.Context, msg string, retryAfterSeconds int) error {
	resp := errorResponse{Error: msg}
	if retryAfterSeconds > 0 {
		resp.RetryAfterSeconds = &retryAfterSeconds
	}
	return c.JSON(http.StatusTooManyRequests, resp)
}

func Conflict(c echo.Context, msg string) error {
	return c.JSON(http.StatusConflict, errorResponse{Error: msg})
}

func NotFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

// Unavailable hides the underlying store failure behind a generic retryable
// message; the cause is logged server-side only.
func Unavailable(c echo.Context, err error) error {
	slog.Error("store unavailable", "error", err)
	return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "temporarily unavailable, please try again"})
}

func InternalError(c echo.Context, err error) error {
	slog.Error("internal error", "error", err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
