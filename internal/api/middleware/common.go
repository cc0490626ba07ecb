package middleware

import (
	"github.com/gin-gonic/gin"
)

const (
	KeyAccountID = "account_id"
	KeyRoles     = "roles"
)

// GetAccountID 取出认证中间件写入的账号 ID
func GetAccountID(c *gin.Context) int64 {
	return c.GetInt64(KeyAccountID)
}
