package handler

import (
	"io"
	"strings"

	"github.com/fleetops/manager/internal/service"
	"github.com/fleetops/manager/pkg/errors"
	"github.com/fleetops/manager/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AgentHandler 主机管理处理器
type AgentHandler struct {
	agentService *service.AgentService
	logger       *zap.Logger
}

// NewAgentHandler 创建主机管理处理器实例
func NewAgentHandler(agentService *service.AgentService, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{
		agentService: agentService,
		logger:       logger,
	}
}

// AgentRegisterRequest 主机注册请求
type AgentRegisterRequest struct {
	Hostname string `json:"hostname" binding:"required"`
	Group    string `json:"group"`
}

// HeartbeatRequest 心跳请求
type HeartbeatRequest struct {
	// Status 主机上报的运行状态（如idle/busy），可选
	Status string `json:"status"`
	// Group 主机所属分组，可选
	Group string `json:"group"`
}

// Register 注册新主机
// POST /api/manager/register
func (h *AgentHandler) Register(c *gin.Context) {
	var req AgentRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}
	if !validateAndRespond(c, req.Hostname, req.Group) {
		return
	}

	agent, err := h.agentService.Register(c.Request.Context(), req.Hostname, req.Group)
	if err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			response.Error(c, apiErr)
		} else {
			h.logger.Error("register agent failed",
				zap.String("hostname", req.Hostname),
				zap.Error(err))
			response.InternalServerError(c, "注册失败，请稍后重试")
		}
		return
	}

	response.Success(c, gin.H{
		"id":        agent.ID,
		"hostname":  agent.Hostname,
		"group":     agent.Group,
		"status":    agent.Status,
		"agent_key": agent.AgentKey,
	})
}

// Heartbeat 处理主机心跳
// POST /api/manager/heartbeat
// 主机密钥通过 Authorization: Bearer <key> 传递。
// 响应data为待执行命令，无命令时为 "ok"。
func (h *AgentHandler) Heartbeat(c *gin.Context) {
	agentKey, ok := extractBearerToken(c)
	if !ok {
		response.ErrorWithMessage(c, errors.ErrUnauthorized, "缺少授权信息")
		return
	}

	// 请求体可为空（EOF表示空body，分块传输时ContentLength不可靠）
	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}
	if req.Status != "" {
		if err := validateStatus(req.Status); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	if req.Group != "" {
		if err := validateGroup(req.Group); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	command, err := h.agentService.Heartbeat(c.Request.Context(), agentKey, req.Status, req.Group)
	if err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			response.Error(c, apiErr)
		} else {
			h.logger.Error("heartbeat failed", zap.Error(err))
			response.InternalServerError(c, "心跳处理失败，请稍后重试")
		}
		return
	}

	response.Success(c, gin.H{
		"command": command,
	})
}

// List 分页获取主机列表
// GET /api/manager/agents?page=1&page_size=20
func (h *AgentHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 20)

	agents, total, err := h.agentService.List(c.Request.Context(), page, pageSize)
	if err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			response.Error(c, apiErr)
		} else {
			h.logger.Error("list agents failed", zap.Error(err))
			response.InternalServerError(c, "获取主机列表失败，请稍后重试")
		}
		return
	}

	response.Success(c, gin.H{
		"agents":    agents,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListPending 获取待审批主机列表
// GET /api/manager/agents/pending
func (h *AgentHandler) ListPending(c *gin.Context) {
	agents, err := h.agentService.ListPending(c.Request.Context())
	if err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			response.Error(c, apiErr)
		} else {
			h.logger.Error("list pending agents failed", zap.Error(err))
			response.InternalServerError(c, "获取待审批主机失败，请稍后重试")
		}
		return
	}

	response.Success(c, gin.H{
		"agents": agents,
		"count":  len(agents),
	})
}

// Get 根据ID获取主机
// GET /api/manager/agents/:id
func (h *AgentHandler) Get(c *gin.Context) {
	id := parseUintParam(c, "id")
	if id == 0 {
		response.BadRequest(c, "无效的主机ID")
		return
	}

	agent, err := h.agentService.GetByID(c.Request.Context(), id)
	if err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			response.Error(c, apiErr)
		} else {
			h.logger.Error("get agent failed",
				zap.Uint("agent_id", id),
				zap.Error(err))
			response.InternalServerError(c, "获取主机失败，请稍后重试")
		}
		return
	}

	response.Success(c, agent)
}

// Approve 审批通过待审批主机
// POST /api/manager/agents/:id/approve
func (h *AgentHandler) Approve(c *gin.Context) {
	id := parseUintParam(c, "id")
	if id == 0 {
		response.BadRequest(c, "无效的主机ID")
		return
	}

	agent, err := h.agentService.Approve(c.Request.Context(), id)
	if err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			response.Error(c, apiErr)
		} else {
			h.logger.Error("approve agent failed",
				zap.Uint("agent_id", id),
				zap.Error(err))
			response.InternalServerError(c, "审批失败，请稍后重试")
		}
		return
	}

	response.Success(c, gin.H{
		"message":  "审批成功",
		"id":       agent.ID,
		"hostname": agent.Hostname,
		"status":   agent.Status,
	})
}

// Delete 删除主机
// DELETE /api/manager/agents/:id
func (h *AgentHandler) Delete(c *gin.Context) {
	id := parseUintParam(c, "id")
	if id == 0 {
		response.BadRequest(c, "无效的主机ID")
		return
	}

	if err := h.agentService.Delete(c.Request.Context(), id); err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			response.Error(c, apiErr)
		} else {
			h.logger.Error("delete agent failed",
				zap.Uint("agent_id", id),
				zap.Error(err))
			response.InternalServerError(c, "删除失败，请稍后重试")
		}
		return
	}

	response.Success(c, gin.H{
		"message": "删除成功",
	})
}

// extractBearerToken 从Authorization头提取Bearer凭证
func extractBearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
