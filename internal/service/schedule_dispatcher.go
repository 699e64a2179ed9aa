package service

import (
	"context"
	"errors"
	"time"

	"github.com/fleetops/manager/internal/repository"
	pkgerrors "github.com/fleetops/manager/pkg/errors"
	"go.uber.org/zap"
)

// ScheduleDispatcher 定时命令派发服务
// 周期执行，把进入容忍窗口的定时命令交给下发服务入队。
// 超出容忍窗口仍未派发的命令放弃执行，只记录告警。
type ScheduleDispatcher struct {
	scheduleRepo repository.ScheduledCommandRepository
	dispatch     *DispatchService
	logger       *zap.Logger
	tolerance    time.Duration
}

// NewScheduleDispatcher 创建定时命令派发服务实例
func NewScheduleDispatcher(scheduleRepo repository.ScheduledCommandRepository, dispatch *DispatchService, tolerance time.Duration, logger *zap.Logger) *ScheduleDispatcher {
	return &ScheduleDispatcher{
		scheduleRepo: scheduleRepo,
		dispatch:     dispatch,
		logger:       logger,
		tolerance:    tolerance,
	}
}

// DispatchDue 执行一轮派发
// 单条命令失败不中断本轮其余命令。
func (d *ScheduleDispatcher) DispatchDue(ctx context.Context) error {
	pending, err := d.scheduleRepo.ListPending(ctx)
	if err != nil {
		d.logger.Error("failed to list pending schedules", zap.Error(err))
		return err
	}

	now := time.Now()
	for _, sc := range pending {
		if sc.IsExpired(now, d.tolerance) {
			// 超窗的命令不补发，标记executed防止反复扫描
			d.logger.Warn("scheduled command missed its window",
				zap.String("schedule_id", sc.ID),
				zap.Time("scheduled_for", sc.ScheduledFor),
				zap.Duration("tolerance", d.tolerance))
			if err := d.scheduleRepo.MarkExecuted(ctx, sc.ID); err != nil {
				d.logger.Error("failed to mark expired schedule",
					zap.String("schedule_id", sc.ID),
					zap.Error(err))
			}
			continue
		}
		if !sc.IsDue(now, d.tolerance) {
			continue
		}

		target, err := sc.Target()
		if err != nil {
			// 入库前已校验过目标，到这里说明数据被改坏了
			d.logger.Error("invalid schedule target",
				zap.String("schedule_id", sc.ID),
				zap.String("target_type", sc.TargetType),
				zap.Error(err))
			if err := d.scheduleRepo.MarkExecuted(ctx, sc.ID); err != nil {
				d.logger.Error("failed to mark schedule executed",
					zap.String("schedule_id", sc.ID),
					zap.Error(err))
			}
			continue
		}

		count, err := d.dispatch.Dispatch(ctx, target, sc.Command)
		if err != nil {
			var apiErr *pkgerrors.APIError
			if errors.As(err, &apiErr) && apiErr.GetHTTPStatus() == 404 {
				// 目标已不存在，标记executed避免重复尝试
				d.logger.Warn("scheduled command target not found",
					zap.String("schedule_id", sc.ID),
					zap.String("target_type", sc.TargetType),
					zap.String("target_value", sc.TargetValue))
				if err := d.scheduleRepo.MarkExecuted(ctx, sc.ID); err != nil {
					d.logger.Error("failed to mark schedule executed",
						zap.String("schedule_id", sc.ID),
						zap.Error(err))
				}
				continue
			}

			d.logger.Error("failed to dispatch scheduled command",
				zap.String("schedule_id", sc.ID),
				zap.Error(err))
			continue
		}

		if err := d.scheduleRepo.MarkExecuted(ctx, sc.ID); err != nil {
			d.logger.Error("failed to mark schedule executed",
				zap.String("schedule_id", sc.ID),
				zap.Error(err))
			continue
		}

		d.logger.Info("scheduled command dispatched",
			zap.String("schedule_id", sc.ID),
			zap.String("command", sc.Command),
			zap.Int("queued", count),
			zap.Time("scheduled_for", sc.ScheduledFor))
	}

	return nil
}
