package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ecommerce-backend/internal/auth"
	"github.com/iliyamo/ecommerce-backend/internal/middleware"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// caller returns the authenticated principal.  Routes using it sit behind
// JWTAuth, so a missing principal is a wiring error reported as 401.
func caller(c echo.Context) (auth.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return p, nil
}

// pageParams reads ?page=&size=, defaulting to the first page.  Bad
// values are reported as ok=false.
func pageParams(c echo.Context) (page, size int, ok bool) {
	page, size = 1, defaultPageSize
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		page = n
	}
	if v := c.QueryParam("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		size = n
	}
	return page, size, true
}

func parseProductID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
