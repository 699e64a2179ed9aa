package service

import (
	"context"

	"github.com/fleetops/manager/internal/model"
	"github.com/fleetops/manager/internal/queue"
	"github.com/fleetops/manager/internal/repository"
	pkgerrors "github.com/fleetops/manager/pkg/errors"
	"go.uber.org/zap"
)

// DispatchService 命令下发服务
// 按主机、分组或全量入队命令，命令随下一次心跳送达。
type DispatchService struct {
	agentRepo repository.AgentRepository
	commands  *queue.CommandQueue
	logger    *zap.Logger
}

// NewDispatchService 创建命令下发服务
func NewDispatchService(agentRepo repository.AgentRepository, commands *queue.CommandQueue, logger *zap.Logger) *DispatchService {
	return &DispatchService{
		agentRepo: agentRepo,
		commands:  commands,
		logger:    logger,
	}
}

// DispatchToHost 向单台主机下发命令
// 主机不存在时不入队，直接返回错误。
func (s *DispatchService) DispatchToHost(ctx context.Context, hostname, command string) error {
	if command == "" {
		return pkgerrors.New(pkgerrors.ErrInvalidParams, "command is required")
	}

	agent, err := s.agentRepo.GetByHostname(ctx, hostname)
	if err != nil {
		s.logger.Error("failed to get agent",
			zap.String("hostname", hostname),
			zap.Error(err))
		return pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to get agent", err)
	}
	if agent == nil {
		return pkgerrors.ErrAgentNotFoundMsg
	}

	s.commands.Enqueue(agent.Hostname, command)

	s.logger.Info("command queued",
		zap.String("hostname", agent.Hostname),
		zap.String("command", command))

	return nil
}

// DispatchToGroup 向分组内全部主机下发命令，返回入队的主机数
// 分组下没有主机时返回错误。
func (s *DispatchService) DispatchToGroup(ctx context.Context, group, command string) (int, error) {
	if command == "" {
		return 0, pkgerrors.New(pkgerrors.ErrInvalidParams, "command is required")
	}
	if group == "" {
		return 0, pkgerrors.New(pkgerrors.ErrInvalidParams, "group is required")
	}

	agents, err := s.agentRepo.ListByGroup(ctx, group)
	if err != nil {
		s.logger.Error("failed to list agents by group",
			zap.String("group", group),
			zap.Error(err))
		return 0, pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to list agents by group", err)
	}
	if len(agents) == 0 {
		return 0, pkgerrors.ErrGroupEmptyMsg
	}

	for _, agent := range agents {
		s.commands.Enqueue(agent.Hostname, command)
	}

	s.logger.Info("command queued for group",
		zap.String("group", group),
		zap.String("command", command),
		zap.Int("count", len(agents)))

	return len(agents), nil
}

// DispatchToAll 向全部主机下发命令，返回入队的主机数
// 没有已注册主机时返回错误。
func (s *DispatchService) DispatchToAll(ctx context.Context, command string) (int, error) {
	if command == "" {
		return 0, pkgerrors.New(pkgerrors.ErrInvalidParams, "command is required")
	}

	agents, err := s.agentRepo.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list agents", zap.Error(err))
		return 0, pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to list agents", err)
	}
	if len(agents) == 0 {
		return 0, pkgerrors.ErrFleetEmptyMsg
	}

	for _, agent := range agents {
		s.commands.Enqueue(agent.Hostname, command)
	}

	s.logger.Info("command queued for all agents",
		zap.String("command", command),
		zap.Int("count", len(agents)))

	return len(agents), nil
}

// Dispatch 按目标类型下发命令，返回入队的主机数
func (s *DispatchService) Dispatch(ctx context.Context, target model.Target, command string) (int, error) {
	switch target.Type {
	case model.TargetHost:
		if err := s.DispatchToHost(ctx, target.Value, command); err != nil {
			return 0, err
		}
		return 1, nil
	case model.TargetGroup:
		return s.DispatchToGroup(ctx, target.Value, command)
	case model.TargetAll:
		return s.DispatchToAll(ctx, command)
	default:
		return 0, pkgerrors.New(pkgerrors.ErrInvalidParams, "unknown dispatch target")
	}
}
