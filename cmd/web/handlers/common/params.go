package common

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// RequireInt64Param extracts a positive integer route parameter or returns
// a 400 error.
func RequireInt64Param(c echo.Context, param string) (int64, error) {
	n, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || n <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+param)
	}
	return n, nil
}

// OptionalIntQuery reads an integer query parameter, falling back to def
// when absent or malformed.
func OptionalIntQuery(c echo.Context, param string, def int) int {
	v := c.QueryParam(param)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
