package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/ecommerce-backend/internal/handler"
	"github.com/iliyamo/ecommerce-backend/internal/metrics"
	"github.com/iliyamo/ecommerce-backend/internal/middleware"
)

// New returns an Echo instance with the middleware both services share:
// panic recovery, request logging, HTTP metrics and the JSON error
// handler.
func New(log logrus.FieldLogger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	if m != nil {
		e.Use(m.Middleware())
	}
	return e
}
