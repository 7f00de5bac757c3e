package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mxforum/mxforum/middleware"
	"github.com/mxforum/mxforum/store"
	"github.com/mxforum/mxforum/utils"
)

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

// mustUserID writes 401 and reports false when the caller is anonymous.
func mustUserID(ctx *gin.Context) (uint, bool) {
	id, ok := getUserID(ctx)
	if !ok || id == 0 {
		utils.Error(ctx, http.StatusUnauthorized, utils.CodeUnauthorized, "unauthorized")
		return 0, false
	}
	return id, true
}

// pathID parses a numeric path parameter. Anything else cannot name a
// resource, so it is answered with 404.
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusNotFound, utils.CodeNotFound, "not found")
		return 0, false
	}
	return uint(id), true
}

// parseLimit reads the optional limit query; absent means no limit.
func parseLimit(ctx *gin.Context) (int, bool) {
	raw := ctx.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		utils.Invalid(ctx, map[string]string{"limit": "must be a positive integer"})
		return 0, false
	}
	return n, true
}

// respondError maps store errors onto the HTTP contract.
func respondError(ctx *gin.Context, err error) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.Invalid(ctx, verr.Fields)
	case errors.Is(err, store.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, utils.CodeNotFound, "not found")
	case errors.Is(err, store.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, utils.CodeForbidden, "forbidden")
	default:
		utils.Logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeInternal, "internal server error")
	}
}
