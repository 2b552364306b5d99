package controller

import (
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	ReviewService *service.ReviewService
}

func NewReviewController(reviewService *service.ReviewService) *ReviewController {
	return &ReviewController{ReviewService: reviewService}
}

// List godoc
// @Summary 课程评价列表
// @Tags 课程
// @Produce  json
// @Param   id    path  int true  "课程ID"
// @Param   page  query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/courses/{id}/reviews [get]
func (c *ReviewController) List(ctx *gin.Context) {
	courseID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	page, limit := util.ParsePagination(ctx)

	reviews, total, err := c.ReviewService.List(ctx.Request.Context(), courseID, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: reviews, Total: total, Page: page, Limit: limit})
}

// Upsert godoc
// @Summary 评价课程
// @Description 每个学生每门课一条评价，重复提交覆盖
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id   path int                   true "课程ID"
// @Param   body body service.ReviewRequest true "评分与评语"
// @Success 200 {object} util.Response{data=model.Review} "成功"
// @Failure 403 {object} util.Response "未选课"
// @Router /api/courses/{id}/reviews [post]
func (c *ReviewController) Upsert(ctx *gin.Context) {
	courseID, ok := util.ParseUintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := currentClaims(ctx)
	review, err := c.ReviewService.Upsert(ctx.Request.Context(), user.AccountID, courseID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, review)
}
