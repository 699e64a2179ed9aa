package handler

import (
	"time"

	"github.com/fleetops/manager/internal/model"
	"github.com/fleetops/manager/internal/service"
	"github.com/fleetops/manager/pkg/errors"
	"github.com/fleetops/manager/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DispatchHandler 命令下发处理器
type DispatchHandler struct {
	dispatchService *service.DispatchService
	scheduleService *service.ScheduleService
	logger          *zap.Logger
}

// NewDispatchHandler 创建命令下发处理器实例
func NewDispatchHandler(dispatchService *service.DispatchService, scheduleService *service.ScheduleService, logger *zap.Logger) *DispatchHandler {
	return &DispatchHandler{
		dispatchService: dispatchService,
		scheduleService: scheduleService,
		logger:          logger,
	}
}

// QueueCommandRequest 单主机命令请求
type QueueCommandRequest struct {
	Hostname string `json:"hostname" binding:"required"`
	Command  string `json:"command" binding:"required"`
}

// QueueGroupCommandRequest 分组命令请求
type QueueGroupCommandRequest struct {
	Group   string `json:"group" binding:"required"`
	Command string `json:"command" binding:"required"`
}

// QueueAllCommandRequest 全量命令请求
type QueueAllCommandRequest struct {
	Command string `json:"command" binding:"required"`
}

// ScheduleCommandRequest 定时命令请求
type ScheduleCommandRequest struct {
	Command      string    `json:"command" binding:"required"`
	TargetType   string    `json:"target_type" binding:"required,oneof=host group all"`
	TargetValue  string    `json:"target_value"`
	ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
}

// QueueCommand 向单台主机下发命令
// POST /api/manager/commands/host
func (h *DispatchHandler) QueueCommand(c *gin.Context) {
	var req QueueCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}
	if !validateAndRespond(c, req.Hostname, "") {
		return
	}

	err := h.dispatchService.DispatchToHost(c.Request.Context(), req.Hostname, req.Command)
	if err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			response.Error(c, apiErr)
		} else {
			h.logger.Error("queue command failed",
				zap.String("hostname", req.Hostname),
				zap.Error(err))
			response.InternalServerError(c, "命令下发失败，请稍后重试")
		}
		return
	}

	response.Success(c, gin.H{
		"message":  "命令已入队",
		"hostname": req.Hostname,
	})
}

// QueueCommandGroup 向分组下发命令
// POST /api/manager/commands/group
func (h *DispatchHandler) QueueCommandGroup(c *gin.Context) {
	var req QueueGroupCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}
	if err := validateGroup(req.Group); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	count, err := h.dispatchService.DispatchToGroup(c.Request.Context(), req.Group, req.Command)
	if err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			response.Error(c, apiErr)
		} else {
			h.logger.Error("queue group command failed",
				zap.String("group", req.Group),
				zap.Error(err))
			response.InternalServerError(c, "命令下发失败，请稍后重试")
		}
		return
	}

	response.Success(c, gin.H{
		"message": "命令已入队",
		"group":   req.Group,
		"count":   count,
	})
}

// QueueCommandAll 向全部主机下发命令
// POST /api/manager/commands/all
func (h *DispatchHandler) QueueCommandAll(c *gin.Context) {
	var req QueueAllCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	count, err := h.dispatchService.DispatchToAll(c.Request.Context(), req.Command)
	if err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			response.Error(c, apiErr)
		} else {
			h.logger.Error("queue command for all failed", zap.Error(err))
			response.InternalServerError(c, "命令下发失败，请稍后重试")
		}
		return
	}

	response.Success(c, gin.H{
		"message": "命令已入队",
		"count":   count,
	})
}

// ScheduleCommand 创建定时命令
// POST /api/manager/schedules
func (h *DispatchHandler) ScheduleCommand(c *gin.Context) {
	var req ScheduleCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	target, err := model.ParseTarget(req.TargetType, req.TargetValue)
	if err != nil {
		response.BadRequest(c, "无效的命令目标: "+err.Error())
		return
	}

	sc, err := h.scheduleService.Schedule(c.Request.Context(), req.Command, target, req.ScheduledFor)
	if err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			response.Error(c, apiErr)
		} else {
			h.logger.Error("schedule command failed",
				zap.String("target", target.String()),
				zap.Error(err))
			response.InternalServerError(c, "创建定时命令失败，请稍后重试")
		}
		return
	}

	response.Success(c, sc)
}

// ListSchedules 获取定时命令列表
// GET /api/manager/schedules
func (h *DispatchHandler) ListSchedules(c *gin.Context) {
	schedules, err := h.scheduleService.ListAll(c.Request.Context())
	if err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			response.Error(c, apiErr)
		} else {
			h.logger.Error("list schedules failed", zap.Error(err))
			response.InternalServerError(c, "获取定时命令列表失败，请稍后重试")
		}
		return
	}

	response.Success(c, gin.H{
		"schedules": schedules,
		"count":     len(schedules),
	})
}
