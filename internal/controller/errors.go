package controller

import (
	"errors"
	"kege_trainer_backend/internal/util"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// respondError 将服务层错误映射为 HTTP 状态码。
func respondError(ctx *gin.Context, err error) {
	switch {
	case util.IsNotFound(err):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrAttemptFinished):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrAttemptNotFinished):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
