package controller

import (
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// ListCatalog godoc
// @Summary 课程目录
// @Description 已发布的公开课程，附带评分
// @Tags 课程
// @Produce  json
// @Param   category query string false "分类"
// @Param   search   query string false "标题关键字"
// @Param   page     query int    false "页码"
// @Param   limit    query int    false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/courses [get]
func (c *CourseController) ListCatalog(ctx *gin.Context) {
	page, limit := util.ParsePagination(ctx)
	courses, total, err := c.CourseService.ListCatalog(ctx.Request.Context(), service.CatalogQuery{
		Category: ctx.Query("category"),
		Search:   ctx.Query("search"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: courses, Total: total, Page: page, Limit: limit})
}

// GetDetail godoc
// @Summary 课程详情
// @Description 包含章节、资料、作业与评分；未选课时不返回资料文件地址与正文
// @Tags 课程
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseDetail} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id} [get]
func (c *CourseController) GetDetail(ctx *gin.Context) {
	courseID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}

	detail, err := c.CourseService.GetDetail(ctx.Request.Context(), courseID, util.GetUserFromContext(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// ListManaged godoc
// @Summary 我管理的课程
// @Description 讲师看到自己创建的课程，管理员看到全部
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   status query string false "DRAFT / PUBLISHED / ARCHIVED"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/tutor/courses [get]
func (c *CourseController) ListManaged(ctx *gin.Context) {
	page, limit := util.ParsePagination(ctx)
	courses, total, err := c.CourseService.ListManaged(ctx.Request.Context(), currentClaims(ctx),
		model.CourseStatus(ctx.Query("status")), page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: courses, Total: total, Page: page, Limit: limit})
}

// Create godoc
// @Summary 创建课程
// @Description 新课程为草稿状态
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/tutor/courses [post]
func (c *CourseController) Create(ctx *gin.Context) {
	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.Create(ctx.Request.Context(), currentClaims(ctx), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// Update godoc
// @Summary 更新课程
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id   path int                   true "课程ID"
// @Param   body body service.CourseRequest true "课程信息"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 403 {object} util.Response "无权限"
// @Router /api/tutor/courses/{id} [put]
func (c *CourseController) Update(ctx *gin.Context) {
	courseID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.Update(ctx.Request.Context(), currentClaims(ctx), courseID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// ChangeStatus godoc
// @Summary 发布或归档课程
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id   path int                         true "课程ID"
// @Param   body body service.CourseStatusRequest true "目标状态"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 400 {object} util.Response "状态流转不合法"
// @Router /api/tutor/courses/{id}/status [patch]
func (c *CourseController) ChangeStatus(ctx *gin.Context) {
	courseID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.CourseStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.ChangeStatus(ctx.Request.Context(), currentClaims(ctx), courseID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// Delete godoc
// @Summary 删除课程
// @Description 只能删除草稿
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response "删除成功"
// @Failure 409 {object} util.Response "非草稿课程"
// @Router /api/tutor/courses/{id} [delete]
func (c *CourseController) Delete(ctx *gin.Context) {
	courseID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.CourseService.Delete(ctx.Request.Context(), currentClaims(ctx), courseID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}
