package controller

import (
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ModuleController struct {
	ModuleService *service.ModuleService
}

func NewModuleController(moduleService *service.ModuleService) *ModuleController {
	return &ModuleController{ModuleService: moduleService}
}

// Create godoc
// @Summary 新增章节
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id   path int                   true "课程ID"
// @Param   body body service.ModuleRequest true "章节信息"
// @Success 201 {object} util.Response{data=model.CourseModule} "创建成功"
// @Router /api/tutor/courses/{id}/modules [post]
func (c *ModuleController) Create(ctx *gin.Context) {
	courseID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.ModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	module, err := c.ModuleService.Create(ctx.Request.Context(), currentClaims(ctx), courseID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, module)
}

// Update godoc
// @Summary 更新章节
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id   path int                   true "章节ID"
// @Param   body body service.ModuleRequest true "章节信息"
// @Success 200 {object} util.Response{data=model.CourseModule} "成功"
// @Router /api/tutor/modules/{id} [put]
func (c *ModuleController) Update(ctx *gin.Context) {
	moduleID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.ModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	module, err := c.ModuleService.Update(ctx.Request.Context(), currentClaims(ctx), moduleID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, module)
}

// Delete godoc
// @Summary 删除章节
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "章节ID"
// @Success 200 {object} util.Response "删除成功"
// @Router /api/tutor/modules/{id} [delete]
func (c *ModuleController) Delete(ctx *gin.Context) {
	moduleID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.ModuleService.Delete(ctx.Request.Context(), currentClaims(ctx), moduleID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// Reorder godoc
// @Summary 调整章节顺序
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id   path int                    true "课程ID"
// @Param   body body service.ReorderRequest true "按新顺序排列的章节ID"
// @Success 200 {object} util.Response{data=[]model.CourseModule} "成功"
// @Router /api/tutor/courses/{id}/modules/order [put]
func (c *ModuleController) Reorder(ctx *gin.Context) {
	courseID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.ReorderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	modules, err := c.ModuleService.Reorder(ctx.Request.Context(), currentClaims(ctx), courseID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, modules)
}
