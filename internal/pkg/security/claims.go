package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const JWTExpirationTime = time.Hour * 24

// AccountClaims Token 中携带的业务身份
type AccountClaims struct {
	AccountID int64    `json:"account_id"`
	Roles     []string `json:"roles"`
	jwt.RegisteredClaims
}

// IsAdmin 判断是否具有管理员角色
func (c *AccountClaims) IsAdmin() bool {
	for _, r := range c.Roles {
		if r == "admin" {
			return true
		}
	}
	return false
}
