package echoapi

import (
	"github.com/labstack/echo/v4"
)

// envelope wraps every response body.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

func respond(ctx echo.Context, code int, data interface{}) error {
	return ctx.JSON(code, envelope{Success: true, Data: data})
}

func respondMessage(ctx echo.Context, code int, msg string) error {
	return ctx.JSON(code, envelope{Success: true, Message: msg})
}
