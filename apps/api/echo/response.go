package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/presence/core"
)

// Response is the envelope of every API response.
type Response struct {
	Success    bool           `json:"success"`
	Data       interface{}    `json:"data,omitempty"`
	Message    string         `json:"message,omitempty"`
	Errors     interface{}    `json:"errors,omitempty"`
	Pagination *core.PageInfo `json:"pagination,omitempty"`
}

func respond(ctx echo.Context, code int, data interface{}) error {
	return ctx.JSON(code, Response{Success: true, Data: data})
}

func respondPage(ctx echo.Context, data interface{}, page core.Pagination, total int) error {
	info := core.NewPageInfo(page, total)
	return ctx.JSON(http.StatusOK, Response{Success: true, Data: data, Pagination: &info})
}

func respondMessage(ctx echo.Context, code int, msg string, data ...interface{}) error {
	res := Response{Success: true, Message: msg}
	if len(data) > 0 {
		res.Data = data[0]
	}
	return ctx.JSON(code, res)
}
