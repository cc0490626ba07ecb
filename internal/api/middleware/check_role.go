package middleware

import (
	"Capstone/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// CheckRoles 检查当前账号是否拥有至少一个指定的角色
func CheckRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles := c.GetStringSlice(KeyRoles)

		hasPermission := false
		for _, required := range requiredRoles {
			for _, role := range roles {
				if required == role {
					hasPermission = true
					break
				}
			}
			if hasPermission {
				break
			}
		}

		if !hasPermission {
			response.Fail(c, response.Forbidden, "权限不足：无权访问该资源")
			c.Abort()
			return
		}

		c.Next()
	}
}
