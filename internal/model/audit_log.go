package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// AuditLog 审计日志模型
type AuditLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID   uint   `gorm:"index;not null" json:"user_id"`    // 操作用户ID
	Username string `gorm:"size:50;not null" json:"username"` // 冗余字段，方便查询

	Action   string `gorm:"size:100;not null" json:"action"` // 操作类型，如：dispatch_command, approve_agent
	Resource string `gorm:"size:100" json:"resource"`        // 操作的资源，如：agent:123
	Method   string `gorm:"size:10" json:"method"`           // HTTP方法
	Path     string `gorm:"size:200" json:"path"`            // 请求路径
	IP       string `gorm:"size:50" json:"ip"`               // 操作者IP

	Status  int     `gorm:"not null" json:"status"`   // 操作结果状态码
	Details JSONMap `gorm:"type:json" json:"details"` // 详细信息，JSON格式

	Duration int64 `json:"duration"` // 请求耗时（毫秒）
}

// TableName 指定表名
func (AuditLog) TableName() string {
	return "audit_logs"
}

// IsSuccess 操作是否成功
func (a *AuditLog) IsSuccess() bool {
	return a.Status >= 200 && a.Status < 300
}

// JSONMap 用于存储JSON格式的map[string]interface{}
type JSONMap map[string]interface{}

// Scan 实现sql.Scanner接口
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONMap)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Value 实现driver.Valuer接口
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}
