package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/livraison/courier-tracking/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// domainStatus maps sentinel errors to a status and the message shown to clients.
// An empty message means the error's own text is shown.
var domainStatus = []struct {
	target error
	code   int
	msg    string
}{
	{domain.ErrValidation, http.StatusBadRequest, ""},
	{domain.ErrCourierNotFound, http.StatusNotFound, "courier not found"},
	{domain.ErrCourierExists, http.StatusConflict, "courier already exists"},
	{domain.ErrSubmissionInProgress, http.StatusConflict, "a submission with this idempotency key is in progress"},
	{domain.ErrStore, http.StatusServiceUnavailable, "storage unavailable"},
}

// NewHTTPErrorHandler renders every handler error as {"error": "<message>"}.
// Storage and unexpected failures are logged; their details never reach the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := statusFor(err)
		if code >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Int("status", code).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprint(he.Message)
	}

	for _, m := range domainStatus {
		if !errors.Is(err, m.target) {
			continue
		}
		if m.msg != "" {
			return m.code, m.msg
		}
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return m.code, ve.Error()
		}
		return m.code, err.Error()
	}

	return http.StatusInternalServerError, "internal server error"
}
