package middleware

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type SessionChecker interface {
	Check(ctx context.Context, rawToken string) service.SessionOutcome
}

// candidateTokens Cookie 在前，Authorization: Bearer 在后
func candidateTokens(c *gin.Context, cookieName string) []string {
	var tokens []string
	if cookieName != "" {
		if token, err := c.Cookie(cookieName); err == nil && token != "" {
			tokens = append(tokens, token)
		}
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// checkRequest 依次校验候选凭证，残留的旧 Cookie 不会挡住有效的 Bearer。
// 全部失败时返回第一个凭证的结果。
func checkRequest(c *gin.Context, guard SessionChecker, cookieName string) service.SessionOutcome {
	tokens := candidateTokens(c, cookieName)
	if len(tokens) == 0 {
		return guard.Check(c.Request.Context(), "")
	}

	var first service.SessionOutcome
	for i, token := range tokens {
		outcome := guard.Check(c.Request.Context(), token)
		if outcome.Authorized {
			return outcome
		}
		if i == 0 {
			first = outcome
		}
	}
	return first
}

// SessionAuth 校验签名、有效期以及账户上的当前会话标记
func SessionAuth(guard SessionChecker, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome := checkRequest(c, guard, cookieName)
		if !outcome.Authorized {
			util.Error(c, http.StatusUnauthorized, outcome.Message())
			c.Abort()
			return
		}

		c.Set(util.ContextClaimsKey, outcome.Claims)
		c.Next()
	}
}

// OptionalSessionAuth 有合法会话时写入 claims，否则按游客继续
func OptionalSessionAuth(guard SessionChecker, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(candidateTokens(c, cookieName)) > 0 {
			if outcome := checkRequest(c, guard, cookieName); outcome.Authorized {
				c.Set(util.ContextClaimsKey, outcome.Claims)
			}
		}
		c.Next()
	}
}

func StudentOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}
		if claims.AccountType != model.AccountStudent {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RoleMiddleware 仅讲师账户；管理员拥有全部讲师权限
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		hasRole := false
		if claims.AccountType == model.AccountTutor {
			for _, role := range roles {
				if claims.Role == model.RoleAdmin || claims.Role == role {
					hasRole = true
					break
				}
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
