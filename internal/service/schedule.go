package service

import (
	"context"
	"time"

	"github.com/fleetops/manager/internal/model"
	"github.com/fleetops/manager/internal/repository"
	pkgerrors "github.com/fleetops/manager/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScheduleService 定时命令服务
type ScheduleService struct {
	scheduleRepo repository.ScheduledCommandRepository
	logger       *zap.Logger
}

// NewScheduleService 创建定时命令服务
func NewScheduleService(scheduleRepo repository.ScheduledCommandRepository, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{
		scheduleRepo: scheduleRepo,
		logger:       logger,
	}
}

// Schedule 创建定时命令
// 执行时间必须晚于当前时间，目标在执行时才解析。
func (s *ScheduleService) Schedule(ctx context.Context, command string, target model.Target, scheduledFor time.Time) (*model.ScheduledCommand, error) {
	if command == "" {
		return nil, pkgerrors.New(pkgerrors.ErrInvalidParams, "command is required")
	}
	if !scheduledFor.After(time.Now()) {
		return nil, pkgerrors.ErrSchedulePastMsg
	}

	sc := &model.ScheduledCommand{
		ID:           uuid.NewString(),
		Command:      command,
		TargetType:   string(target.Type),
		TargetValue:  target.Value,
		ScheduledFor: scheduledFor,
	}

	if err := s.scheduleRepo.Create(ctx, sc); err != nil {
		s.logger.Error("failed to create scheduled command",
			zap.String("target", target.String()),
			zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to create scheduled command", err)
	}

	s.logger.Info("command scheduled",
		zap.String("schedule_id", sc.ID),
		zap.String("target", target.String()),
		zap.Time("scheduled_for", scheduledFor))

	return sc, nil
}

// GetByID 根据ID获取定时命令
func (s *ScheduleService) GetByID(ctx context.Context, id string) (*model.ScheduledCommand, error) {
	sc, err := s.scheduleRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get scheduled command",
			zap.String("schedule_id", id),
			zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to get scheduled command", err)
	}
	if sc == nil {
		return nil, pkgerrors.ErrScheduleNotFoundMsg
	}
	return sc, nil
}

// ListAll 获取全部定时命令，按执行时间升序
func (s *ScheduleService) ListAll(ctx context.Context) ([]*model.ScheduledCommand, error) {
	schedules, err := s.scheduleRepo.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list scheduled commands", zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.ErrDatabase, "failed to list scheduled commands", err)
	}
	return schedules, nil
}
