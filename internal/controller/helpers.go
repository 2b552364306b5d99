package controller

import (
	"edu_platform_backend/internal/util"
	"strings"

	"github.com/gin-gonic/gin"
)

// currentClaims 路由已经过 SessionAuth，这里不会为 nil
func currentClaims(ctx *gin.Context) *util.Claims {
	return util.GetUserFromContext(ctx)
}

func isMultipart(ctx *gin.Context) bool {
	return strings.HasPrefix(ctx.ContentType(), "multipart/form-data")
}

// bindOptionalJSON 允许空请求体
func bindOptionalJSON(ctx *gin.Context, obj interface{}) bool {
	if ctx.Request.ContentLength == 0 {
		return true
	}
	if err := ctx.ShouldBindJSON(obj); err != nil {
		util.BadRequest(ctx, err.Error())
		return false
	}
	return true
}
