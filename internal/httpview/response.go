package httpview

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/xiangqi-arena-viewer/internal/obslog"
)

// Response is the JSON envelope every api route returns.
type Response struct {
	Status int `json:"Status"`
	Body   any `json:"Body,omitempty"`
}

type ErrorResponse struct {
	ErrorDescription string `json:"ErrorDescription"`
}

const (
	internalErrorJSON = `{"Status":500,"Body":{"ErrorDescription":"internal server error"}}`
	malformedJSONDesc = "json unmarshalling error"
)

func writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	raw, err := json.Marshal(Response{Status: status, Body: body})
	if err != nil {
		obslog.L().Error("http_response_marshal", zap.Error(err))
		ctx.SetContentType("application/json")
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(internalErrorJSON)
		return
	}
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetStatusCode(status)
	ctx.SetBody(raw)
}

func writeError(ctx *fasthttp.RequestCtx, status int, desc string) {
	writeJSON(ctx, status, ErrorResponse{ErrorDescription: desc})
}
