package controller

import (
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EnrollmentController struct {
	EnrollmentService *service.EnrollmentService
}

func NewEnrollmentController(enrollmentService *service.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollmentService}
}

// Enroll godoc
// @Summary 选课
// @Tags 选课
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 201 {object} util.Response{data=model.Enrollment} "选课成功"
// @Failure 400 {object} util.Response "课程未发布"
// @Failure 409 {object} util.Response "已选过该课程"
// @Router /api/courses/{id}/enroll [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	courseID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}

	user := currentClaims(ctx)
	enrollment, err := c.EnrollmentService.Enroll(ctx.Request.Context(), user.AccountID, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, enrollment)
}

// ListMine godoc
// @Summary 我的选课
// @Tags 选课
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Enrollment} "成功"
// @Router /api/enrollments [get]
func (c *EnrollmentController) ListMine(ctx *gin.Context) {
	user := currentClaims(ctx)
	enrollments, err := c.EnrollmentService.ListMine(ctx.Request.Context(), user.AccountID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, enrollments)
}

// ListByCourse godoc
// @Summary 课程的选课学生
// @Tags 选课
// @Produce  json
// @Security ApiKeyAuth
// @Param   id    path  int true  "课程ID"
// @Param   page  query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/tutor/courses/{id}/enrollments [get]
func (c *EnrollmentController) ListByCourse(ctx *gin.Context) {
	courseID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	page, limit := util.ParsePagination(ctx)

	enrollments, total, err := c.EnrollmentService.ListByCourse(ctx.Request.Context(), currentClaims(ctx), courseID, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: enrollments, Total: total, Page: page, Limit: limit})
}

// SetStatus godoc
// @Summary 管理员退课/恢复选课
// @Tags 管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id   path int                             true "选课ID"
// @Param   body body service.EnrollmentStatusRequest true "DROPPED 或 ACTIVE"
// @Success 200 {object} util.Response{data=model.Enrollment} "成功"
// @Failure 400 {object} util.Response "状态流转不合法"
// @Router /api/admin/enrollments/{id}/status [patch]
func (c *EnrollmentController) SetStatus(ctx *gin.Context) {
	enrollmentID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.EnrollmentStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	enrollment, err := c.EnrollmentService.SetStatus(ctx.Request.Context(), currentClaims(ctx), enrollmentID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, enrollment)
}

// Recompute godoc
// @Summary 重算选课进度
// @Tags 管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "选课ID"
// @Success 200 {object} util.Response{data=model.ProgressSnapshot} "成功"
// @Router /api/admin/enrollments/{id}/recompute [post]
func (c *EnrollmentController) Recompute(ctx *gin.Context) {
	enrollmentID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}

	snapshot, err := c.EnrollmentService.Recompute(ctx.Request.Context(), currentClaims(ctx), enrollmentID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, snapshot)
}
