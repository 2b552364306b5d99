package controller

import (
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// RecordAccess godoc
// @Summary 记录资料访问
// @Description 更新最后访问时间并累计学习时长，不改变完成度
// @Tags 学习进度
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id   path int                   true  "资料ID"
// @Param   body body service.AccessRequest false "本次学习时长"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "未选课"
// @Router /api/materials/{id}/access [post]
func (c *ProgressController) RecordAccess(ctx *gin.Context) {
	materialID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.AccessRequest
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	user := currentClaims(ctx)
	if err := c.ProgressService.RecordAccess(ctx.Request.Context(), user.AccountID, materialID, req); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"recorded": true})
}

// CompleteMaterial godoc
// @Summary 完成资料
// @Description 标记完成并同步重算课程进度；progressUpdated 为 false 时进度数字可能未刷新
// @Tags 学习进度
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id   path int                   true  "资料ID"
// @Param   body body service.AccessRequest false "本次学习时长"
// @Success 200 {object} util.Response{data=service.MaterialCompletion} "成功"
// @Failure 403 {object} util.Response "未选课"
// @Failure 404 {object} util.Response "资料不存在"
// @Router /api/materials/{id}/complete [post]
func (c *ProgressController) CompleteMaterial(ctx *gin.Context) {
	materialID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.AccessRequest
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	user := currentClaims(ctx)
	result, err := c.ProgressService.CompleteMaterial(ctx.Request.Context(), user.AccountID, materialID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetCourseProgress godoc
// @Summary 课程学习进度
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseProgress} "成功"
// @Failure 403 {object} util.Response "未选课"
// @Router /api/courses/{id}/progress [get]
func (c *ProgressController) GetCourseProgress(ctx *gin.Context) {
	courseID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}

	user := currentClaims(ctx)
	progress, err := c.ProgressService.GetCourseProgress(ctx.Request.Context(), user.AccountID, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}
