package handler

import (
	"Capstone/internal/pkg/redis"
	"Capstone/internal/pkg/response"
	"Capstone/internal/pkg/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db    *gorm.DB
	store *storage.Store
}

func NewHealthHandler(db *gorm.DB, store *storage.Store) *HealthHandler {
	return &HealthHandler{
		db:    db,
		store: store,
	}
}

// Check 数据库、存储、缓存三项探活
func (s *HealthHandler) Check(c *gin.Context) {
	status := gin.H{
		"database": "ok",
		"storage":  "ok",
		"redis":    "ok",
	}
	healthy := true

	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status["database"] = "unreachable"
		healthy = false
	}

	if !s.store.Writable() {
		status["storage"] = "not writable"
		healthy = false
	}

	if redis.Rdb == nil {
		status["redis"] = "disabled"
	} else if err := redis.Rdb.Ping(c.Request.Context()).Err(); err != nil {
		status["redis"] = "unreachable"
		healthy = false
	}

	if !healthy {
		response.Fail(c, response.InternalServerError, "service degraded")
		return
	}
	response.Success(c, status)
}
