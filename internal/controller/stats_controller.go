package controller

import (
	"kege_trainer_backend/internal/service"
	"kege_trainer_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StatsController struct {
	StatsService *service.StatsService
}

func NewStatsController(statsService *service.StatsService) *StatsController {
	return &StatsController{StatsService: statsService}
}

// @Summary 已完成的尝试列表
// @Tags 统计
// @Security BearerAuth
// @Produce json
// @Param limit query int false "数量上限"
// @Success 200 {object} util.Response
// @Router /api/stats/attempts [get]
func (c *StatsController) Attempts(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	limit := util.QueryInt(ctx.Query("limit"), 0)
	items, err := c.StatsService.ListUserAttempts(ctx.Request.Context(), user.UserID, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// @Summary 按题号统计正确率
// @Tags 统计
// @Security BearerAuth
// @Produce json
// @Param days query int false "统计窗口（天）"
// @Success 200 {object} util.Response
// @Router /api/stats/performance [get]
func (c *StatsController) Performance(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	days := util.QueryInt(ctx.Query("days"), 0)
	perf, err := c.StatsService.PerformanceBySlot(ctx.Request.Context(), user.UserID, days)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, perf)
}

// @Summary 完整试卷用时趋势
// @Tags 统计
// @Security BearerAuth
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/stats/trends [get]
func (c *StatsController) Trends(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	points, err := c.StatsService.SpeedTrends(ctx.Request.Context(), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, points)
}

// @Summary 个人汇总
// @Tags 统计
// @Security BearerAuth
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/stats/summary [get]
func (c *StatsController) Summary(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	summary, err := c.StatsService.Summary(ctx.Request.Context(), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}
