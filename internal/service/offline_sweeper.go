package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetops/manager/internal/model"
	"github.com/fleetops/manager/internal/repository"
	"go.uber.org/zap"
)

// OfflineSweeper 离线主机扫描服务
// 周期执行，把超过存活窗口没有心跳的主机标记为offline。
// 主机恢复心跳后由心跳处理自动转回approved。
type OfflineSweeper struct {
	agentRepo   repository.AgentRepository
	logger      *zap.Logger
	staleWindow time.Duration
}

// NewOfflineSweeper 创建离线主机扫描服务实例
func NewOfflineSweeper(agentRepo repository.AgentRepository, staleWindow time.Duration, logger *zap.Logger) *OfflineSweeper {
	return &OfflineSweeper{
		agentRepo:   agentRepo,
		logger:      logger,
		staleWindow: staleWindow,
	}
}

// Sweep 执行一轮离线扫描
func (s *OfflineSweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.staleWindow)

	stale, err := s.agentRepo.ListStale(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to list stale agents", zap.Error(err))
		return fmt.Errorf("failed to list stale agents: %w", err)
	}

	if len(stale) == 0 {
		s.logger.Debug("no stale agents found")
		return nil
	}

	ids := make([]uint, 0, len(stale))
	hostnames := make([]string, 0, len(stale))
	for _, agent := range stale {
		ids = append(ids, agent.ID)
		hostnames = append(hostnames, agent.Hostname)
	}

	if err := s.agentRepo.UpdateStatusBulk(ctx, ids, model.AgentStatusOffline); err != nil {
		s.logger.Error("failed to mark agents offline",
			zap.Int("count", len(ids)),
			zap.Error(err))
		return fmt.Errorf("failed to mark agents offline: %w", err)
	}

	s.logger.Warn("agents marked offline",
		zap.Int("count", len(ids)),
		zap.Strings("hostnames", hostnames),
		zap.Duration("stale_window", s.staleWindow),
		zap.Time("cutoff", cutoff))

	return nil
}
