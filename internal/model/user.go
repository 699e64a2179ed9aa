package model

import (
	"time"

	"gorm.io/gorm"
)

// 登录锁定策略
const (
	// MaxLoginAttempts 连续失败多少次后锁定账号
	MaxLoginAttempts = 4
	// LockoutDuration 锁定时长
	LockoutDuration = 10 * time.Minute
)

// User 用户模型
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username string `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Password string `gorm:"size:100;not null" json:"-"` // 加密后的密码
	Email    string `gorm:"uniqueIndex;size:100" json:"email"`

	Role   string `gorm:"size:20;not null;default:'user'" json:"role"`     // admin, user
	Status string `gorm:"size:20;not null;default:'active'" json:"status"` // active, disabled

	// LoginAttempts 连续登录失败次数（登录成功时清零）
	LoginAttempts int `gorm:"not null;default:0" json:"-"`
	// LockedUntil 锁定截止时间（nil表示未锁定）
	LockedUntil *time.Time `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// IsAdmin 是否为管理员
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// IsActive 是否为活跃用户
func (u *User) IsActive() bool {
	return u.Status == "active"
}

// IsLocked 账号当前是否处于锁定期内
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}
