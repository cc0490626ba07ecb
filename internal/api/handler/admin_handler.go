package handler

import (
	"Capstone/internal/pkg/response"
	"Capstone/internal/pkg/scheduler"
	"Capstone/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

// AdminHandler 后台任务与全局统计的管理接口
type AdminHandler struct {
	mediaSvc service.MediaService
	statsSvc service.StatsService
	sched    *scheduler.Scheduler
}

func NewAdminHandler(mediaSvc service.MediaService, statsSvc service.StatsService, sched *scheduler.Scheduler) *AdminHandler {
	return &AdminHandler{
		mediaSvc: mediaSvc,
		statsSvc: statsSvc,
		sched:    sched,
	}
}

// Jobs 所有后台任务的状态快照
func (s *AdminHandler) Jobs(c *gin.Context) {
	if s.sched == nil {
		response.Fail(c, response.InternalServerError, "后台任务未启用")
		return
	}
	response.Success(c, s.sched.Status())
}

// RunJob 立刻触发一次指定任务
func (s *AdminHandler) RunJob(c *gin.Context) {
	if s.sched == nil {
		response.Fail(c, response.InternalServerError, "后台任务未启用")
		return
	}

	if err := s.sched.RunNow(c.Request.Context(), c.Param("job_id")); err != nil {
		response.Fail(c, response.BadRequest, err.Error())
		return
	}
	response.Success(c, nil)
}

// CleanupGroup 立即清理指定分组下全部待清理资产
func (s *AdminHandler) CleanupGroup(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("group_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	outcome, err := s.mediaSvc.CleanupByGroup(c.Request.Context(), groupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, outcome)
}

// Stats 全局统计，优先走缓存快照
func (s *AdminHandler) Stats(c *gin.Context) {
	snapshot, err := s.statsSvc.CachedSnapshot(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, snapshot)
}
