package handlers

import (
	"net/http"

	"marketplace/internal/identity"
	"marketplace/internal/utils"

	"github.com/labstack/echo/v4"
)

// Response is the envelope of every API response, errors included.
type Response struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Code    int         `json:"code"`
}

// PageData is the data block of paginated responses.
type PageData struct {
	Data       interface{} `json:"data"`
	Pagination utils.Meta  `json:"pagination"`
}

func Respond(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, Response{Status: code < http.StatusBadRequest, Message: message, Data: data, Code: code})
}

func ok(c echo.Context, message string, data interface{}) error {
	return Respond(c, http.StatusOK, message, data)
}

func created(c echo.Context, message string, data interface{}) error {
	return Respond(c, http.StatusCreated, message, data)
}

func paginated(c echo.Context, message string, items interface{}, meta utils.Meta) error {
	return ok(c, message, PageData{Data: items, Pagination: meta})
}

// Fail writes an error envelope.
func Fail(c echo.Context, code int, message string, data interface{}) error {
	return Respond(c, code, message, data)
}

func principal(c echo.Context) *identity.AccessContext {
	return identity.FromContext(c.Request().Context())
}

func userID(c echo.Context) string {
	return identity.UserIDOf(principal(c))
}

func page(c echo.Context) utils.Page {
	return utils.ParsePage(c.QueryParam)
}
