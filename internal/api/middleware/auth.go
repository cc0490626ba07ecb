package middleware

import (
	"Capstone/internal/pkg/consts"
	"Capstone/internal/pkg/redis"
	"Capstone/internal/pkg/response"
	"Capstone/internal/pkg/security"
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 负责验证 JWT 并将账号身份信息注入 Context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		signature, err := security.ExtractSignature(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		// 吊销名单命中即拒绝
		if redis.Rdb != nil {
			revoked, err := redis.Exists(c.Request.Context(), consts.TokenRevokedKey+signature)
			if err != nil {
				response.Fail(c, response.InternalServerError, "未知错误")
				c.Abort()
				return
			}
			if revoked {
				response.Fail(c, response.Unauthorized, "Token 无效或已过期")
				c.Abort()
				return
			}
		}

		claims, err := security.ValidateToken(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		c.Set(KeyAccountID, claims.AccountID)
		c.Set(KeyRoles, claims.Roles)

		newCtx := context.WithValue(c.Request.Context(), KeyAccountID, claims.AccountID)
		c.Request = c.Request.WithContext(newCtx)

		c.Next()
	}
}
