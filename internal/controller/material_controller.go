package controller

import (
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MaterialController struct {
	MaterialService *service.MaterialService
}

func NewMaterialController(materialService *service.MaterialService) *MaterialController {
	return &MaterialController{MaterialService: materialService}
}

// Create godoc
// @Summary 新增课程资料
// @Description JSON 创建链接/文本资料；multipart 上传文件，视频会探测时长等元数据
// @Tags 课程管理
// @Accept  json,mpfd
// @Produce  json
// @Security ApiKeyAuth
// @Param   id          path     int                     true  "课程ID"
// @Param   body        body     service.MaterialRequest false "资料信息（JSON）"
// @Param   file        formData file                    false "资料文件（multipart）"
// @Param   title       formData string                  false "标题（multipart）"
// @Param   moduleId    formData int                     false "章节ID（multipart）"
// @Success 201 {object} util.Response{data=model.Material} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误或文件类型不支持"
// @Router /api/tutor/courses/{id}/materials [post]
func (c *MaterialController) Create(ctx *gin.Context) {
	courseID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}

	if isMultipart(ctx) {
		c.createWithFile(ctx, courseID)
		return
	}

	var req service.MaterialRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	material, err := c.MaterialService.Create(ctx.Request.Context(), currentClaims(ctx), courseID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, material)
}

func (c *MaterialController) createWithFile(ctx *gin.Context, courseID uint) {
	var req service.MaterialUploadRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	material, err := c.MaterialService.CreateWithFile(ctx.Request.Context(), currentClaims(ctx), courseID, req, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, material)
}

// Update godoc
// @Summary 更新课程资料
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id   path int                           true "资料ID"
// @Param   body body service.MaterialUpdateRequest true "资料信息"
// @Success 200 {object} util.Response{data=model.Material} "成功"
// @Router /api/tutor/materials/{id} [put]
func (c *MaterialController) Update(ctx *gin.Context) {
	materialID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.MaterialUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	material, err := c.MaterialService.Update(ctx.Request.Context(), currentClaims(ctx), materialID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, material)
}

// Delete godoc
// @Summary 删除课程资料
// @Description 同时尝试删除存储中的文件
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "资料ID"
// @Success 200 {object} util.Response "删除成功"
// @Router /api/tutor/materials/{id} [delete]
func (c *MaterialController) Delete(ctx *gin.Context) {
	materialID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.MaterialService.Delete(ctx.Request.Context(), currentClaims(ctx), materialID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}
