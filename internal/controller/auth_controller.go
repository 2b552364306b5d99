package controller

import (
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService  *service.AuthService
	CookieName   string
	SecureCookie bool // 生产环境 Cookie 仅走 HTTPS
}

func NewAuthController(authService *service.AuthService, cookieName string, secureCookie bool) *AuthController {
	return &AuthController{
		AuthService:  authService,
		CookieName:   cookieName,
		SecureCookie: secureCookie,
	}
}

func (c *AuthController) setSessionCookie(ctx *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(c.CookieName, token, maxAge, "/", "", c.SecureCookie, true)
}

func (c *AuthController) clearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(c.CookieName, "", -1, "/", "", c.SecureCookie, true)
}

// SendOTP godoc
// @Summary 发送邮箱验证码
// @Description 注册或重置密码前获取验证码，10 分钟内有效
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.SendOTPRequest true "邮箱与用途"
// @Success 200 {object} util.Response "发送成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/auth/otp [post]
func (c *AuthController) SendOTP(ctx *gin.Context) {
	var req service.SendOTPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.AuthService.SendOTP(ctx.Request.Context(), req); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"sent": true})
}

// Register godoc
// @Summary 学生注册
// @Description 使用邮箱验证码注册学生账户
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.RegisterRequest true "注册信息"
// @Success 201 {object} util.Response{data=model.Student} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误或验证码无效"
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Router /api/auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req service.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	student, err := c.AuthService.Register(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, student)
}

// Login godoc
// @Summary 学生登录
// @Description 密码登录，签发新会话并使其他设备上的会话失效
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.LoginRequest true "登录凭证"
// @Success 200 {object} util.Response{data=service.LoginResult} "登录成功"
// @Failure 401 {object} util.Response "邮箱或密码错误"
// @Failure 403 {object} util.Response "账户已被封禁"
// @Failure 409 {object} util.Response "并发登录，请重试"
// @Router /api/auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req service.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AuthService.Login(ctx.Request.Context(), req, ctx.ClientIP())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	c.setSessionCookie(ctx, result.Token, result.ExpiresAt)
	util.Success(ctx, result)
}

// GoogleLogin godoc
// @Summary Google 登录
// @Description 校验 Google ID Token，不存在的账户自动创建
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.GoogleLoginRequest true "Google ID Token"
// @Success 200 {object} util.Response{data=service.LoginResult} "登录成功"
// @Failure 401 {object} util.Response "凭证无效"
// @Router /api/auth/google [post]
func (c *AuthController) GoogleLogin(ctx *gin.Context) {
	var req service.GoogleLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AuthService.GoogleLogin(ctx.Request.Context(), req, ctx.ClientIP())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	c.setSessionCookie(ctx, result.Token, result.ExpiresAt)
	util.Success(ctx, result)
}

// TutorLogin godoc
// @Summary 讲师/管理员登录
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.LoginRequest true "登录凭证"
// @Success 200 {object} util.Response{data=service.LoginResult} "登录成功"
// @Failure 401 {object} util.Response "邮箱或密码错误"
// @Router /api/tutor/auth/login [post]
func (c *AuthController) TutorLogin(ctx *gin.Context) {
	var req service.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AuthService.TutorLogin(ctx.Request.Context(), req, ctx.ClientIP())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	c.setSessionCookie(ctx, result.Token, result.ExpiresAt)
	util.Success(ctx, result)
}

// Logout godoc
// @Summary 退出登录
// @Description 清除当前会话标记，学生与讲师共用
// @Tags 认证
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response "已退出"
// @Failure 401 {object} util.Response "未登录"
// @Router /api/auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	if err := c.AuthService.Logout(ctx.Request.Context(), currentClaims(ctx)); err != nil {
		util.HandleError(ctx, err)
		return
	}
	c.clearSessionCookie(ctx)
	util.Success(ctx, gin.H{"loggedOut": true})
}

// ResetPassword godoc
// @Summary 重置密码
// @Description 验证码校验通过后重置密码，并使所有已登录会话失效
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.ResetPasswordRequest true "重置信息"
// @Success 200 {object} util.Response "重置成功"
// @Failure 400 {object} util.Response "验证码无效"
// @Router /api/auth/password/reset [post]
func (c *AuthController) ResetPassword(ctx *gin.Context) {
	var req service.ResetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.AuthService.ResetPassword(ctx.Request.Context(), req); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"reset": true})
}
