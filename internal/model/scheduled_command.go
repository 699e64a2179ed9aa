package model

import (
	"time"
)

// ScheduledCommand 定时命令模型
// 记录一条未来时刻的命令下发指令；executed只会从false翻转为true一次，
// 执行后记录保留作为审计痕迹，核心逻辑不删除
type ScheduledCommand struct {
	// ID UUID主键
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Command 下发给Agent的命令（对Manager是不透明字符串）
	Command string `gorm:"size:500;not null" json:"command"`

	// TargetType 目标类型(host/group/all)
	TargetType string `gorm:"size:10;not null" json:"target_type"`

	// TargetValue 目标值（host为主机名，group为分组名，all为空）
	TargetValue string `gorm:"size:100" json:"target_value,omitempty"`

	// ScheduledFor 计划执行时间（创建时必须在将来）
	ScheduledFor time.Time `gorm:"index;not null" json:"scheduled_for"`

	// Executed 是否已执行（单向翻转，由定时下发任务写入）
	Executed bool `gorm:"index;not null;default:false" json:"executed"`
}

// TableName 指定表名
func (ScheduledCommand) TableName() string {
	return "scheduled_commands"
}

// Target 还原下发目标
func (s *ScheduledCommand) Target() (Target, error) {
	return ParseTarget(s.TargetType, s.TargetValue)
}

// IsDue 计划时间是否落在now±tolerance的执行窗口内
func (s *ScheduledCommand) IsDue(now time.Time, tolerance time.Duration) bool {
	delta := now.Sub(s.ScheduledFor)
	return delta >= -tolerance && delta <= tolerance
}

// IsExpired 执行窗口是否已经整体错过
func (s *ScheduledCommand) IsExpired(now time.Time, tolerance time.Duration) bool {
	return now.Sub(s.ScheduledFor) > tolerance
}
