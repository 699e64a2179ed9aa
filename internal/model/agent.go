package model

import (
	"time"
)

// Agent状态常量
// 注意：status是自由字符串，Agent在心跳中自行上报运行状态（如idle/busy），
// 以下常量是系统内部主动写入的状态值
const (
	// AgentStatusPending 已注册，等待管理员审批
	AgentStatusPending = "pending"
	// AgentStatusApproved 已审批，允许心跳
	AgentStatusApproved = "approved"
	// AgentStatusOffline 离线（由离线巡检任务写入）
	AgentStatusOffline = "offline"
)

// Agent Agent模型，对应一台受管主机
type Agent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Hostname 主机名（全局唯一）
	Hostname string `gorm:"uniqueIndex;size:100;not null" json:"hostname"`

	// AgentKey Agent密钥（全局唯一，注册时生成，仅注册响应返回一次）
	AgentKey string `gorm:"uniqueIndex;size:64;not null" json:"-"`

	// Group 分组标签（可变，Agent可通过心跳上报迁入新分组）
	Group string `gorm:"index;size:100" json:"group"`

	// Status 状态(pending/approved/offline/Agent自行上报的状态)
	Status string `gorm:"index;size:20;not null;default:'pending'" json:"status"`

	// LastHeartbeat 存活基准时间（审批时写入初值，此后随心跳推进；
	// 待审批主机为空）
	LastHeartbeat *time.Time `json:"last_heartbeat"`
}

// TableName 指定表名
func (Agent) TableName() string {
	return "agents"
}

// IsPending Agent是否等待审批
func (a *Agent) IsPending() bool {
	return a.Status == AgentStatusPending
}

// IsApproved Agent是否已通过审批
// 审批是一次性门槛：审批后status会被心跳覆盖为上报值，
// 此后只要不回到pending就视为已审批
func (a *Agent) IsApproved() bool {
	return a.Status != AgentStatusPending
}

// IsOffline Agent是否已被标记离线
func (a *Agent) IsOffline() bool {
	return a.Status == AgentStatusOffline
}
