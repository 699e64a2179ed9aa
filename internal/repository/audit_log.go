package repository

import (
	"context"
	"time"

	"github.com/fleetops/manager/internal/model"
	"gorm.io/gorm"
)

// AuditLogRepository 审计日志数据访问接口
type AuditLogRepository interface {
	// Create 创建审计日志
	Create(ctx context.Context, log *model.AuditLog) error
	// List 获取审计日志列表
	List(ctx context.Context, page, pageSize int) ([]*model.AuditLog, int64, error)
	// ListByUserID 根据用户ID获取审计日志
	ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*model.AuditLog, int64, error)
	// ListByAction 根据操作类型获取审计日志
	ListByAction(ctx context.Context, action string, page, pageSize int) ([]*model.AuditLog, int64, error)
	// DeleteOlderThan 删除指定时间之前的审计日志
	DeleteOlderThan(ctx context.Context, duration time.Duration) (int64, error)
}

// auditLogRepository 审计日志数据访问实现
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志数据访问实例
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Create 创建审计日志
func (r *auditLogRepository) Create(ctx context.Context, log *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// List 获取审计日志列表
func (r *auditLogRepository) List(ctx context.Context, page, pageSize int) ([]*model.AuditLog, int64, error) {
	var logs []*model.AuditLog
	var total int64

	// 计算总数
	if err := r.db.WithContext(ctx).Model(&model.AuditLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页查询
	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Offset(offset).
		Limit(pageSize).
		Order("id DESC").
		Find(&logs).Error

	return logs, total, err
}

// ListByUserID 根据用户ID获取审计日志
func (r *auditLogRepository) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*model.AuditLog, int64, error) {
	var logs []*model.AuditLog
	var total int64

	query := r.db.WithContext(ctx).Model(&model.AuditLog{}).Where("user_id = ?", userID)

	// 计算总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页查询
	offset := (page - 1) * pageSize
	err := query.
		Offset(offset).
		Limit(pageSize).
		Order("id DESC").
		Find(&logs).Error

	return logs, total, err
}

// ListByAction 根据操作类型获取审计日志
func (r *auditLogRepository) ListByAction(ctx context.Context, action string, page, pageSize int) ([]*model.AuditLog, int64, error) {
	var logs []*model.AuditLog
	var total int64

	query := r.db.WithContext(ctx).Model(&model.AuditLog{}).Where("action = ?", action)

	// 计算总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页查询
	offset := (page - 1) * pageSize
	err := query.
		Offset(offset).
		Limit(pageSize).
		Order("id DESC").
		Find(&logs).Error

	return logs, total, err
}

// DeleteOlderThan 删除指定时间之前的审计日志
func (r *auditLogRepository) DeleteOlderThan(ctx context.Context, duration time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-duration)

	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoffTime).
		Delete(&model.AuditLog{})

	return result.RowsAffected, result.Error
}
