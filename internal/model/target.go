package model

import "fmt"

// TargetType 命令下发目标类型
type TargetType string

const (
	// TargetHost 单台主机
	TargetHost TargetType = "host"
	// TargetGroup 一个分组
	TargetGroup TargetType = "group"
	// TargetAll 全部Agent
	TargetAll TargetType = "all"
)

// Target 命令下发目标
// host/group目标必须携带值，all目标不携带值；只能通过构造函数创建，
// 保证任何Target实例有且只有一种合法形态
type Target struct {
	Type  TargetType `json:"type"`
	Value string     `json:"value,omitempty"`
}

// HostTarget 构造单主机目标
func HostTarget(hostname string) (Target, error) {
	if hostname == "" {
		return Target{}, fmt.Errorf("host target requires a hostname")
	}
	return Target{Type: TargetHost, Value: hostname}, nil
}

// GroupTarget 构造分组目标
func GroupTarget(group string) (Target, error) {
	if group == "" {
		return Target{}, fmt.Errorf("group target requires a group name")
	}
	return Target{Type: TargetGroup, Value: group}, nil
}

// AllTarget 构造全量目标
func AllTarget() Target {
	return Target{Type: TargetAll}
}

// ParseTarget 从类型字符串和值构造目标
func ParseTarget(targetType, value string) (Target, error) {
	switch TargetType(targetType) {
	case TargetHost:
		return HostTarget(value)
	case TargetGroup:
		return GroupTarget(value)
	case TargetAll:
		if value != "" {
			return Target{}, fmt.Errorf("all target must not carry a value")
		}
		return AllTarget(), nil
	default:
		return Target{}, fmt.Errorf("unknown target type: %q", targetType)
	}
}

// String 目标的可读形式
func (t Target) String() string {
	if t.Type == TargetAll {
		return string(TargetAll)
	}
	return fmt.Sprintf("%s:%s", t.Type, t.Value)
}
