package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Business codes carried in the response envelope.
const (
	CodeOK           = 0
	CodeInvalid      = 40001
	CodeUnauthorized = 40100
	CodeForbidden    = 40300
	CodeNotFound     = 40400
	CodeRateLimited  = 42901
	CodeInternal     = 50000
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, CodeOK, "success", data)
}

// Created answers 201; data carries at least the new resource id.
func Created(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusCreated, CodeOK, "created", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// Invalid returns 400 with the per-field messages as data.
func Invalid(ctx *gin.Context, fields map[string]string) {
	Respond(ctx, http.StatusBadRequest, CodeInvalid, "validation failed", fields)
}
