package controller

import (
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StudentController struct {
	StudentService *service.StudentService
}

func NewStudentController(studentService *service.StudentService) *StudentController {
	return &StudentController{StudentService: studentService}
}

// GetProfile godoc
// @Summary 我的资料
// @Tags 个人
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Student} "成功"
// @Router /api/profile [get]
func (c *StudentController) GetProfile(ctx *gin.Context) {
	user := currentClaims(ctx)
	student, err := c.StudentService.GetProfile(ctx.Request.Context(), user.AccountID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, student)
}

// UpdateProfile godoc
// @Summary 更新资料
// @Description 只更新请求中出现的字段
// @Tags 个人
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ProfileRequest true "资料"
// @Success 200 {object} util.Response{data=model.Student} "成功"
// @Router /api/profile [put]
func (c *StudentController) UpdateProfile(ctx *gin.Context) {
	var req service.ProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := currentClaims(ctx)
	student, err := c.StudentService.UpdateProfile(ctx.Request.Context(), user.AccountID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, student)
}

// UploadAvatar godoc
// @Summary 上传头像
// @Tags 个人
// @Accept  mpfd
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "头像图片，最大 5MB"
// @Success 200 {object} util.Response{data=model.Student} "成功"
// @Failure 400 {object} util.Response "文件类型或大小不符"
// @Router /api/profile/avatar [post]
func (c *StudentController) UploadAvatar(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	user := currentClaims(ctx)
	student, err := c.StudentService.UploadAvatar(ctx.Request.Context(), user.AccountID, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, student)
}

// SetBlocked godoc
// @Summary 封禁/解封学生
// @Description 封禁会立即使该学生的登录会话失效
// @Tags 管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id   path int                  true "学生ID"
// @Param   body body service.BlockRequest true "是否封禁"
// @Success 200 {object} util.Response "成功"
// @Router /api/admin/students/{id}/block [patch]
func (c *StudentController) SetBlocked(ctx *gin.Context) {
	studentID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.BlockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.StudentService.SetBlocked(ctx.Request.Context(), currentClaims(ctx), studentID, req); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"blocked": *req.Blocked})
}
