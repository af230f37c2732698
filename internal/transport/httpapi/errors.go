package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Leganyst/clinic-scheduling/internal/service"
)

// общий формат ответа API
type envelope struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data"`
	Total   *int      `json:"total,omitempty"`
	Page    *pageMeta `json:"page,omitempty"`
}

type pageMeta struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
	HasPrev  bool `json:"hasPrev"`
}

func total(n int) *int {
	return &n
}

// statusOf сопоставляет ошибку с HTTP-статусом и текстом для клиента.
func statusOf(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprint(he.Message)
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Error()
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, service.Message(err)
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, service.Message(err)
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, service.Message(err)
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, service.Message(err)
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func errorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := statusOf(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("request_id", fmt.Sprintf("%v", c.Get(ctxRequestID))).Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, envelope{Success: false, Message: msg})
		}
		if err != nil {
			log.Error().Err(err).Msg("write error response")
		}
	}
}

// requestValidator подключает validator/v10 к c.Validate.
type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.Validate(req)
}
