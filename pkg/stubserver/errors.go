package stubserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// HTTPError is rendered as {"detail": message}.
type HTTPError struct {
	Status int    `json:"-"`
	Detail string `json:"detail"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Detail)
}

func NewBadRequestError(detail string) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Detail: detail}
}

func NewInternalError(detail string) *HTTPError {
	return &HTTPError{Status: http.StatusInternalServerError, Detail: detail}
}

// ErrorHandler renders every handler error as an HTTPError.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *HTTPError
	switch e := err.(type) {
	case *HTTPError:
		httpErr = e
	case *echo.HTTPError:
		httpErr = &HTTPError{Status: e.Code, Detail: fmt.Sprintf("%v", e.Message)}
	default:
		log.Error().Err(err).Str("component", "stubserver").Str("path", c.Path()).Msg("unhandled error")
		httpErr = NewInternalError(err.Error())
	}

	if err := c.JSON(httpErr.Status, httpErr); err != nil {
		log.Warn().Err(err).Str("component", "stubserver").Msg("could not write error response")
	}
}
