package handler

import "github.com/labstack/echo/v4"

// Every response is wrapped in the same envelope so clients can branch on
// status without inspecting HTTP codes:
//
//	{"status": "success"|"error", "message": ..., "data": ...}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(c echo.Context, code int, message string, data any) error {
	return c.JSON(code, envelope{Status: "success", Message: message, Data: data})
}

func fail(c echo.Context, code int, message string) error {
	return c.JSON(code, envelope{Status: "error", Message: message})
}
