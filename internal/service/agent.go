package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/fleetops/manager/internal/model"
	"github.com/fleetops/manager/internal/queue"
	"github.com/fleetops/manager/internal/repository"
	pkgerrors "github.com/fleetops/manager/pkg/errors"
	"go.uber.org/zap"
)

// HeartbeatAck 没有待执行命令时心跳的应答内容
const HeartbeatAck = "ok"

// agentKeyBytes 主机密钥的随机字节数，base64后约43个字符
const agentKeyBytes = 32

// AgentService 主机管理服务
type AgentService struct {
	agentRepo repository.AgentRepository
	commands  *queue.CommandQueue
	logger    *zap.Logger
}

// NewAgentService 创建主机管理服务
func NewAgentService(agentRepo repository.AgentRepository, commands *queue.CommandQueue, logger *zap.Logger) *AgentService {
	return &AgentService{
		agentRepo: agentRepo,
		commands:  commands,
		logger:    logger,
	}
}

// Register 注册新主机
// 主机名全局唯一，重复注册返回冲突错误。
// 新主机初始状态为 pending，审批通过前心跳会被拒绝。
func (s *AgentService) Register(ctx context.Context, hostname, group string) (*model.Agent, error) {
	if hostname == "" {
		return nil, pkgerrors.New(pkgerrors.ErrInvalidParams, "hostname is required")
	}

	existing, err := s.agentRepo.GetByHostname(ctx, hostname)
	if err != nil {
		s.logger.Error("failed to check hostname",
			zap.String("hostname", hostname),
			zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to check hostname", err)
	}
	if existing != nil {
		return nil, pkgerrors.ErrHostnameTakenMsg
	}

	key, err := generateAgentKey()
	if err != nil {
		s.logger.Error("failed to generate agent key", zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.ErrInternalServer, "failed to generate agent key", err)
	}

	agent := &model.Agent{
		Hostname: hostname,
		AgentKey: key,
		Group:    group,
		Status:   model.AgentStatusPending,
	}

	if err := s.agentRepo.Create(ctx, agent); err != nil {
		s.logger.Error("failed to create agent",
			zap.String("hostname", hostname),
			zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to create agent", err)
	}

	s.logger.Info("agent registered",
		zap.String("hostname", hostname),
		zap.String("group", group),
		zap.Uint("agent_id", agent.ID))

	return agent, nil
}

// Heartbeat 处理主机心跳
// 校验密钥和审批状态，刷新存活时间并记录主机上报的运行状态，
// 取出待执行命令。没有待执行命令时返回 HeartbeatAck。
func (s *AgentService) Heartbeat(ctx context.Context, agentKey, status, group string) (string, error) {
	agent, err := s.agentRepo.GetByAgentKey(ctx, agentKey)
	if err != nil {
		s.logger.Error("failed to look up agent by key", zap.Error(err))
		return "", pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to look up agent", err)
	}
	if agent == nil {
		return "", pkgerrors.ErrInvalidAgentKeyMsg
	}

	if agent.IsPending() {
		s.logger.Debug("heartbeat rejected for pending agent",
			zap.String("hostname", agent.Hostname))
		return "", pkgerrors.ErrAgentNotApprovedMsg
	}

	// 刷新存活状态。状态记录主机上报值（如idle/busy），未上报时落回
	// approved，离线主机由此随心跳自动恢复
	now := time.Now()
	agent.LastHeartbeat = &now
	if status != "" {
		agent.Status = status
	} else {
		agent.Status = model.AgentStatusApproved
	}
	// 主机侧分组变更时随心跳更新
	if group != "" && group != agent.Group {
		s.logger.Info("agent group changed",
			zap.String("hostname", agent.Hostname),
			zap.String("old_group", agent.Group),
			zap.String("new_group", group))
		agent.Group = group
	}

	if err := s.agentRepo.Update(ctx, agent); err != nil {
		s.logger.Error("failed to update agent liveness",
			zap.String("hostname", agent.Hostname),
			zap.Error(err))
		return "", pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to update agent", err)
	}

	command, ok := s.commands.TakeAndClear(agent.Hostname)
	if !ok {
		return HeartbeatAck, nil
	}

	s.logger.Info("command delivered",
		zap.String("hostname", agent.Hostname),
		zap.String("command", command))

	return command, nil
}

// Approve 审批通过待审批主机
func (s *AgentService) Approve(ctx context.Context, id uint) (*model.Agent, error) {
	agent, err := s.agentRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get agent",
			zap.Uint("agent_id", id),
			zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to get agent", err)
	}
	if agent == nil {
		return nil, pkgerrors.ErrAgentNotFoundMsg
	}

	if !agent.IsPending() {
		// 重复审批是幂等操作
		return agent, nil
	}

	agent.Status = model.AgentStatusApproved
	// 审批时间作为存活基准，审批后一直沉默的主机也会被离线扫描命中
	now := time.Now()
	agent.LastHeartbeat = &now
	if err := s.agentRepo.Update(ctx, agent); err != nil {
		s.logger.Error("failed to approve agent",
			zap.Uint("agent_id", id),
			zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to approve agent", err)
	}

	s.logger.Info("agent approved",
		zap.Uint("agent_id", id),
		zap.String("hostname", agent.Hostname))

	return agent, nil
}

// ListPending 获取待审批主机列表
func (s *AgentService) ListPending(ctx context.Context) ([]*model.Agent, error) {
	agents, err := s.agentRepo.ListByStatus(ctx, model.AgentStatusPending)
	if err != nil {
		s.logger.Error("failed to list pending agents", zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to list pending agents", err)
	}
	return agents, nil
}

// List 分页获取主机列表
func (s *AgentService) List(ctx context.Context, page, pageSize int) ([]*model.Agent, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	agents, total, err := s.agentRepo.List(ctx, page, pageSize)
	if err != nil {
		s.logger.Error("failed to list agents", zap.Error(err))
		return nil, 0, pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to list agents", err)
	}
	return agents, total, nil
}

// GetByID 根据ID获取主机
func (s *AgentService) GetByID(ctx context.Context, id uint) (*model.Agent, error) {
	agent, err := s.agentRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get agent",
			zap.Uint("agent_id", id),
			zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to get agent", err)
	}
	if agent == nil {
		return nil, pkgerrors.ErrAgentNotFoundMsg
	}
	return agent, nil
}

// Delete 删除主机并清除其待执行命令
func (s *AgentService) Delete(ctx context.Context, id uint) error {
	agent, err := s.agentRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get agent",
			zap.Uint("agent_id", id),
			zap.Error(err))
		return pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to get agent", err)
	}
	if agent == nil {
		return pkgerrors.ErrAgentNotFoundMsg
	}

	if err := s.agentRepo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete agent",
			zap.Uint("agent_id", id),
			zap.Error(err))
		return pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to delete agent", err)
	}

	// 防止命令残留到重名的新主机
	s.commands.TakeAndClear(agent.Hostname)

	s.logger.Info("agent deleted",
		zap.Uint("agent_id", id),
		zap.String("hostname", agent.Hostname))

	return nil
}

// generateAgentKey 生成主机密钥
func generateAgentKey() (string, error) {
	buf := make([]byte, agentKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
