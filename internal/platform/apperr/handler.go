package apperr

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Response is the JSON body of every error response.
type Response struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HTTPErrorHandler renders *Error, *echo.HTTPError and unknown errors as a
// Response. Internal errors are logged and their detail is not exposed.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		rid, _ := c.Get("request_id").(string)
		status, body := render(err)
		body.RequestID = rid

		if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Str("request_id", rid).Msg("writing error response")
		}
	}
}

func render(err error) (int, Response) {
	if e, ok := As(err); ok {
		status := e.Kind.Status()
		if e.Kind == KindInternal {
			return status, Response{Error: CodeInternal, Message: "internal server error"}
		}
		return status, Response{Error: e.Code, Message: e.Message, Details: e.Details}
	}

	if he, ok := err.(*echo.HTTPError); ok {
		msg := fmt.Sprintf("%v", he.Message)
		if he.Code >= http.StatusInternalServerError {
			msg = http.StatusText(he.Code)
		}
		return he.Code, Response{Error: codeForStatus(he.Code), Message: msg}
	}

	return http.StatusInternalServerError, Response{Error: CodeInternal, Message: "internal server error"}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusInternalServerError:
		return CodeInternal
	}
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}
