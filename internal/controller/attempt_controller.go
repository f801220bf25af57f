package controller

import (
	"kege_trainer_backend/internal/service"
	"kege_trainer_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService *service.AttemptService
	StatsService   *service.StatsService
}

func NewAttemptController(attemptService *service.AttemptService, statsService *service.StatsService) *AttemptController {
	return &AttemptController{AttemptService: attemptService, StatsService: statsService}
}

type SaveAnswerRequest struct {
	VariantTaskID uint    `json:"variantTaskId" binding:"required"`
	AnswerText    *string `json:"answerText"`
}

func viewerFrom(user *util.Claims) service.Viewer {
	return service.Viewer{UserID: user.UserID, IsAdmin: user.IsAdmin()}
}

// @Summary 开始变体作答
// @Tags 作答
// @Security BearerAuth
// @Produce json
// @Param id path int true "变体ID"
// @Success 200 {object} util.Response
// @Router /api/variants/{id}/attempts [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	variantID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	attempt, err := c.AttemptService.Start(ctx.Request.Context(), user.UserID, variantID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// @Summary 获取作答数据
// @Tags 作答
// @Security BearerAuth
// @Produce json
// @Param id path int true "尝试ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id} [get]
func (c *AttemptController) Data(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	attemptID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	data, err := c.AttemptService.AttemptData(ctx.Request.Context(), viewerFrom(user), attemptID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, data)
}

// @Summary 保存答案
// @Tags 作答
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "尝试ID"
// @Param body body SaveAnswerRequest true "答案"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/answers [post]
func (c *AttemptController) SaveAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	attemptID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req SaveAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.AttemptService.SaveAnswer(ctx.Request.Context(), user.UserID, attemptID, req.VariantTaskID, req.AnswerText)
	if err != nil {
		respondError(ctx, err)
		return
	}
	// 作答期间不回显判定结果
	util.Success(ctx, gin.H{
		"variantTaskId": answer.VariantTaskID,
		"answerText":    answer.AnswerText,
		"updatedAt":     answer.UpdatedAt,
	})
}

// @Summary 结束作答
// @Tags 作答
// @Security BearerAuth
// @Produce json
// @Param id path int true "尝试ID"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/attempts/{id}/finish [post]
func (c *AttemptController) Finish(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	attemptID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	attempt, err := c.AttemptService.Finish(ctx.Request.Context(), user.UserID, attemptID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// @Summary 作答结果汇总
// @Tags 作答
// @Security BearerAuth
// @Produce json
// @Param id path int true "尝试ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/summary [get]
func (c *AttemptController) Summary(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	attemptID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	summary, err := c.StatsService.SummarizeAttempt(ctx.Request.Context(), viewerFrom(user), attemptID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}
