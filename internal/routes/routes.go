// Package routes binds handlers to the /api/v1 URL space.
package routes

import "github.com/labstack/echo/v4"

// Guards are the middlewares shared by the route groups. Nil entries are
// skipped.
type Guards struct {
	Authenticate echo.MiddlewareFunc
	Optional     echo.MiddlewareFunc
	AuthLimit    echo.MiddlewareFunc
}

func chain(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
