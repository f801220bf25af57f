package controller

import (
	"kege_trainer_backend/internal/service"
	"kege_trainer_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	DashboardService *service.DashboardService
}

func NewDashboardController(dashboardService *service.DashboardService) *DashboardController {
	return &DashboardController{DashboardService: dashboardService}
}

// @Summary 管理员仪表盘
// @Tags 管理
// @Security BearerAuth
// @Produce json
// @Param days query int false "统计窗口（天）"
// @Success 200 {object} util.Response
// @Router /api/admin/dashboard [get]
func (c *DashboardController) GetDashboard(ctx *gin.Context) {
	days := util.QueryInt(ctx.Query("days"), 0)
	dashboard, err := c.DashboardService.Dashboard(ctx.Request.Context(), days)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, dashboard)
}
