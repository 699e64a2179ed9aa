package repository

import (
	"context"
	"fmt"

	"github.com/fleetops/manager/internal/model"
	"gorm.io/gorm"
)

// ScheduledCommandRepository 定时命令数据仓库接口
type ScheduledCommandRepository interface {
	// Create 创建定时命令
	Create(ctx context.Context, cmd *model.ScheduledCommand) error

	// GetByID 根据ID获取定时命令（不存在返回nil, nil）
	GetByID(ctx context.Context, id string) (*model.ScheduledCommand, error)

	// ListAll 列举全部定时命令（审计视图）
	ListAll(ctx context.Context) ([]*model.ScheduledCommand, error)

	// ListPending 列举尚未执行的定时命令
	ListPending(ctx context.Context) ([]*model.ScheduledCommand, error)

	// MarkExecuted 将定时命令标记为已执行
	MarkExecuted(ctx context.Context, id string) error
}

// scheduledCommandRepository 定时命令数据仓库实现
type scheduledCommandRepository struct {
	db *gorm.DB
}

// NewScheduledCommandRepository 创建定时命令数据仓库
func NewScheduledCommandRepository(db *gorm.DB) ScheduledCommandRepository {
	return &scheduledCommandRepository{
		db: db,
	}
}

// Create 创建定时命令
func (r *scheduledCommandRepository) Create(ctx context.Context, cmd *model.ScheduledCommand) error {
	if err := r.db.WithContext(ctx).Create(cmd).Error; err != nil {
		return fmt.Errorf("failed to create scheduled command: %w", err)
	}
	return nil
}

// GetByID 根据ID获取定时命令
func (r *scheduledCommandRepository) GetByID(ctx context.Context, id string) (*model.ScheduledCommand, error) {
	var cmd model.ScheduledCommand
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&cmd).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduled command: %w", err)
	}

	return &cmd, nil
}

// ListAll 列举全部定时命令
func (r *scheduledCommandRepository) ListAll(ctx context.Context) ([]*model.ScheduledCommand, error) {
	var cmds []*model.ScheduledCommand
	err := r.db.WithContext(ctx).
		Order("scheduled_for ASC").
		Find(&cmds).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled commands: %w", err)
	}

	return cmds, nil
}

// ListPending 列举尚未执行的定时命令
func (r *scheduledCommandRepository) ListPending(ctx context.Context) ([]*model.ScheduledCommand, error) {
	var cmds []*model.ScheduledCommand
	err := r.db.WithContext(ctx).
		Where("executed = ?", false).
		Order("scheduled_for ASC").
		Find(&cmds).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list pending scheduled commands: %w", err)
	}

	return cmds, nil
}

// MarkExecuted 将定时命令标记为已执行
func (r *scheduledCommandRepository) MarkExecuted(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).
		Model(&model.ScheduledCommand{}).
		Where("id = ?", id).
		Update("executed", true).
		Error

	if err != nil {
		return fmt.Errorf("failed to mark scheduled command executed: %w", err)
	}

	return nil
}
