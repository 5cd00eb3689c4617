package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
}

func errorStatus(c echo.Context, status int, message string) error {
	return c.JSON(status, errorResponse{Error: message})
}

func badRequest(c echo.Context, message string) error {
	return errorStatus(c, http.StatusBadRequest, message)
}

func unauthorized(c echo.Context) error {
	return errorStatus(c, http.StatusUnauthorized, "invalid credentials")
}

func forbidden(c echo.Context) error {
	return errorStatus(c, http.StatusForbidden, "access denied")
}

func notFound(c echo.Context, message string) error {
	return errorStatus(c, http.StatusNotFound, message)
}

func conflict(c echo.Context, message string) error {
	return errorStatus(c, http.StatusConflict, message)
}

func serverError(c echo.Context) error {
	return errorStatus(c, http.StatusInternalServerError, "internal server error")
}
