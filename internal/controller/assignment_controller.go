package controller

import (
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"
	"mime/multipart"

	"github.com/gin-gonic/gin"
)

type AssignmentController struct {
	AssignmentService *service.AssignmentService
}

func NewAssignmentController(assignmentService *service.AssignmentService) *AssignmentController {
	return &AssignmentController{AssignmentService: assignmentService}
}

// Create godoc
// @Summary 新增作业
// @Tags 作业
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id   path int                       true "课程ID"
// @Param   body body service.AssignmentRequest true "作业信息"
// @Success 201 {object} util.Response{data=model.Assignment} "创建成功"
// @Router /api/tutor/courses/{id}/assignments [post]
func (c *AssignmentController) Create(ctx *gin.Context) {
	courseID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.AssignmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	assignment, err := c.AssignmentService.Create(ctx.Request.Context(), currentClaims(ctx), courseID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, assignment)
}

// Update godoc
// @Summary 更新作业
// @Tags 作业
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id   path int                       true "作业ID"
// @Param   body body service.AssignmentRequest true "作业信息"
// @Success 200 {object} util.Response{data=model.Assignment} "成功"
// @Router /api/tutor/assignments/{id} [put]
func (c *AssignmentController) Update(ctx *gin.Context) {
	assignmentID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.AssignmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	assignment, err := c.AssignmentService.Update(ctx.Request.Context(), currentClaims(ctx), assignmentID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, assignment)
}

// Delete godoc
// @Summary 删除作业
// @Tags 作业
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "作业ID"
// @Success 200 {object} util.Response "删除成功"
// @Router /api/tutor/assignments/{id} [delete]
func (c *AssignmentController) Delete(ctx *gin.Context) {
	assignmentID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.AssignmentService.Delete(ctx.Request.Context(), currentClaims(ctx), assignmentID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// ListSubmissions godoc
// @Summary 作业提交列表
// @Tags 作业
// @Produce  json
// @Security ApiKeyAuth
// @Param   id    path  int true  "作业ID"
// @Param   page  query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/tutor/assignments/{id}/submissions [get]
func (c *AssignmentController) ListSubmissions(ctx *gin.Context) {
	assignmentID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	page, limit := util.ParsePagination(ctx)

	submissions, total, err := c.AssignmentService.ListSubmissions(ctx.Request.Context(), currentClaims(ctx), assignmentID, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: submissions, Total: total, Page: page, Limit: limit})
}

// Submit godoc
// @Summary 提交作业
// @Description 每份作业只能提交一次；提交后同步重算课程进度
// @Tags 作业
// @Accept  json,mpfd
// @Produce  json
// @Security ApiKeyAuth
// @Param   id      path     int                       true  "作业ID"
// @Param   body    body     service.SubmissionRequest false "作业内容（JSON）"
// @Param   content formData string                    false "作业内容（multipart）"
// @Param   file    formData file                      false "附件（multipart）"
// @Success 200 {object} util.Response{data=service.SubmissionResult} "提交成功"
// @Failure 403 {object} util.Response "未选课"
// @Failure 409 {object} util.Response "已提交过"
// @Router /api/assignments/{id}/submit [post]
func (c *AssignmentController) Submit(ctx *gin.Context) {
	assignmentID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}

	var req service.SubmissionRequest
	var file *multipart.FileHeader
	if isMultipart(ctx) {
		if err := ctx.ShouldBind(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
		// 附件可选
		file, _ = ctx.FormFile("file")
	} else if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := currentClaims(ctx)
	result, err := c.AssignmentService.Submit(ctx.Request.Context(), user.AccountID, assignmentID, req, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetMySubmission godoc
// @Summary 我的作业提交
// @Tags 作业
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "作业ID"
// @Success 200 {object} util.Response{data=model.AssignmentSubmission} "成功"
// @Failure 404 {object} util.Response "尚未提交"
// @Router /api/assignments/{id}/submission [get]
func (c *AssignmentController) GetMySubmission(ctx *gin.Context) {
	assignmentID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}

	user := currentClaims(ctx)
	submission, err := c.AssignmentService.GetMySubmission(ctx.Request.Context(), user.AccountID, assignmentID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, submission)
}

// Grade godoc
// @Summary 批改作业
// @Description 分数不能超过作业满分，批改后邮件通知学生
// @Tags 作业
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id   path int                  true "提交ID"
// @Param   body body service.GradeRequest true "分数与评语"
// @Success 200 {object} util.Response{data=model.AssignmentSubmission} "成功"
// @Failure 400 {object} util.Response "分数超出满分"
// @Router /api/tutor/submissions/{id}/grade [post]
func (c *AssignmentController) Grade(ctx *gin.Context) {
	submissionID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	submission, err := c.AssignmentService.Grade(ctx.Request.Context(), currentClaims(ctx), submissionID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, submission)
}
