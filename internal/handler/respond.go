package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/ecommerce-backend/internal/auth"
	"github.com/iliyamo/ecommerce-backend/internal/metrics"
	"github.com/iliyamo/ecommerce-backend/internal/queue"
	"github.com/iliyamo/ecommerce-backend/internal/validation"
)

// StatusFor maps an orchestrator code to an HTTP status.
func StatusFor(code auth.ErrorCode) int {
	switch code {
	case auth.Success:
		return http.StatusOK
	case auth.UserAlreadyExists, auth.Conflict:
		return http.StatusConflict
	case auth.EmailNotConfirmed:
		return http.StatusForbidden
	case auth.InternalServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// respond writes res, or hands err to the echo error handler.  Every
// outcome is counted under op.
func respond(c echo.Context, m *metrics.Metrics, op string, res auth.Result, err error, successStatus int) error {
	if err != nil {
		m.ObserveAuthResult(op, auth.InternalServerError.String())
		return err
	}
	m.ObserveAuthResult(op, res.Code.String())
	status := StatusFor(res.Code)
	if res.Code == auth.Success && successStatus != 0 {
		status = successStatus
	}
	return c.JSON(status, res)
}

// invalid answers a payload that failed field validation.
func invalid(c echo.Context, m *metrics.Metrics, op string, err error) error {
	m.ObserveAuthResult(op, auth.InvalidData.String())
	return c.JSON(http.StatusBadRequest, auth.Result{Code: auth.InvalidData, Errors: validation.Fields(err)})
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, auth.Result{Code: auth.InvalidData, Errors: []string{"Invalid request body."}})
}

// forbidden is the ownership denial.  It never carries details.
func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
}

// ErrorHandler renders errors that escaped the handlers.  echo HTTP
// errors keep their status; a notification timeout becomes 503; anything
// else is logged and reported as InternalServerError without details.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			msg, ok := he.Message.(string)
			if !ok {
				msg = http.StatusText(he.Code)
			}
			_ = c.JSON(he.Code, echo.Map{"error": msg})
		case errors.Is(err, queue.ErrTimeout):
			log.WithError(err).WithField("path", c.Path()).Warn("notification timed out")
			c.Response().Header().Set("Retry-After", "30")
			_ = c.JSON(http.StatusServiceUnavailable, echo.Map{
				"code":    auth.InternalServerError,
				"message": "The notification service is slow to respond. Please retry.",
			})
		default:
			log.WithError(err).WithField("path", c.Path()).Error("unhandled error")
			_ = c.JSON(http.StatusInternalServerError, echo.Map{
				"code":    auth.InternalServerError,
				"message": "An unexpected error occurred.",
			})
		}
	}
}
