package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetops/manager/internal/model"
	"gorm.io/gorm"
)

// AgentRepository Agent数据仓库接口
type AgentRepository interface {
	// Create 创建Agent
	Create(ctx context.Context, agent *model.Agent) error

	// GetByID 根据ID获取Agent（不存在返回nil, nil）
	GetByID(ctx context.Context, id uint) (*model.Agent, error)

	// GetByHostname 根据主机名获取Agent（不存在返回nil, nil）
	GetByHostname(ctx context.Context, hostname string) (*model.Agent, error)

	// GetByAgentKey 根据Agent密钥获取Agent（不存在返回nil, nil）
	GetByAgentKey(ctx context.Context, agentKey string) (*model.Agent, error)

	// ListByGroup 列举指定分组下的所有Agent
	ListByGroup(ctx context.Context, group string) ([]*model.Agent, error)

	// ListByStatus 列举指定状态的所有Agent
	ListByStatus(ctx context.Context, status string) ([]*model.Agent, error)

	// ListAll 列举全部Agent（不分页，命令全量下发使用）
	ListAll(ctx context.Context) ([]*model.Agent, error)

	// List 分页列举Agent
	List(ctx context.Context, page, pageSize int) ([]*model.Agent, int64, error)

	// ListStale 列举心跳早于cutoff且尚未标记离线的Agent
	ListStale(ctx context.Context, cutoff time.Time) ([]*model.Agent, error)

	// Update 更新Agent
	Update(ctx context.Context, agent *model.Agent) error

	// UpdateStatusBulk 批量更新状态（离线巡检使用）
	UpdateStatusBulk(ctx context.Context, ids []uint, status string) error

	// Delete 删除Agent（物理删除，释放唯一主机名）
	Delete(ctx context.Context, id uint) error
}

// agentRepository Agent数据仓库实现
type agentRepository struct {
	db *gorm.DB
}

// NewAgentRepository 创建Agent数据仓库
func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepository{
		db: db,
	}
}

// Create 创建Agent
func (r *agentRepository) Create(ctx context.Context, agent *model.Agent) error {
	if err := r.db.WithContext(ctx).Create(agent).Error; err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

// GetByID 根据ID获取Agent
func (r *agentRepository) GetByID(ctx context.Context, id uint) (*model.Agent, error) {
	var agent model.Agent
	err := r.db.WithContext(ctx).First(&agent, id).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	return &agent, nil
}

// GetByHostname 根据主机名获取Agent
func (r *agentRepository) GetByHostname(ctx context.Context, hostname string) (*model.Agent, error) {
	var agent model.Agent
	err := r.db.WithContext(ctx).
		Where("hostname = ?", hostname).
		First(&agent).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent by hostname: %w", err)
	}

	return &agent, nil
}

// GetByAgentKey 根据Agent密钥获取Agent
func (r *agentRepository) GetByAgentKey(ctx context.Context, agentKey string) (*model.Agent, error) {
	var agent model.Agent
	err := r.db.WithContext(ctx).
		Where("agent_key = ?", agentKey).
		First(&agent).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent by key: %w", err)
	}

	return &agent, nil
}

// ListByGroup 列举指定分组下的所有Agent
func (r *agentRepository) ListByGroup(ctx context.Context, group string) ([]*model.Agent, error) {
	var agents []*model.Agent
	err := r.db.WithContext(ctx).
		Where("`group` = ?", group).
		Find(&agents).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list agents by group: %w", err)
	}

	return agents, nil
}

// ListByStatus 列举指定状态的所有Agent
func (r *agentRepository) ListByStatus(ctx context.Context, status string) ([]*model.Agent, error) {
	var agents []*model.Agent
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Find(&agents).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list agents by status: %w", err)
	}

	return agents, nil
}

// ListAll 列举全部Agent
func (r *agentRepository) ListAll(ctx context.Context) ([]*model.Agent, error) {
	var agents []*model.Agent
	err := r.db.WithContext(ctx).Find(&agents).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}

	return agents, nil
}

// List 分页列举Agent
func (r *agentRepository) List(ctx context.Context, page, pageSize int) ([]*model.Agent, int64, error) {
	var agents []*model.Agent
	var total int64

	// 计算总数
	if err := r.db.WithContext(ctx).Model(&model.Agent{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count agents: %w", err)
	}

	// 分页查询
	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Offset(offset).
		Limit(pageSize).
		Order("id ASC").
		Find(&agents).Error

	if err != nil {
		return nil, 0, fmt.Errorf("failed to list agents: %w", err)
	}

	return agents, total, nil
}

// ListStale 列举心跳早于cutoff且尚未标记离线的Agent
func (r *agentRepository) ListStale(ctx context.Context, cutoff time.Time) ([]*model.Agent, error) {
	var agents []*model.Agent
	err := r.db.WithContext(ctx).
		Where("status <> ? AND last_heartbeat < ?", model.AgentStatusOffline, cutoff).
		Find(&agents).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list stale agents: %w", err)
	}

	return agents, nil
}

// Update 更新Agent
func (r *agentRepository) Update(ctx context.Context, agent *model.Agent) error {
	if err := r.db.WithContext(ctx).Save(agent).Error; err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}
	return nil
}

// UpdateStatusBulk 批量更新状态
func (r *agentRepository) UpdateStatusBulk(ctx context.Context, ids []uint, status string) error {
	if len(ids) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Model(&model.Agent{}).
		Where("id IN ?", ids).
		Update("status", status).
		Error

	if err != nil {
		return fmt.Errorf("failed to bulk update agent status: %w", err)
	}

	return nil
}

// Delete 删除Agent
// 物理删除，释放唯一的主机名供重新注册使用
func (r *agentRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Delete(&model.Agent{}, id).Error

	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}

	return nil
}
