package handler

import (
	"github.com/fleetops/manager/pkg/response"
	"github.com/gin-gonic/gin"
)

// validateHostname 验证主机名格式
func validateHostname(hostname string) error {
	if hostname == "" {
		return &ValidationError{Field: "hostname", Message: "主机名不能为空"}
	}
	if len(hostname) > 253 {
		return &ValidationError{Field: "hostname", Message: "主机名长度不能超过253字符"}
	}
	// 只允许字母、数字、连字符、点
	for _, r := range hostname {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '.') {
			return &ValidationError{Field: "hostname", Message: "主机名包含非法字符"}
		}
	}
	return nil
}

// validateGroup 验证分组名格式
func validateGroup(group string) error {
	if len(group) > 100 {
		return &ValidationError{Field: "group", Message: "分组名长度不能超过100字符"}
	}
	// 只允许字母、数字、连字符、下划线
	for _, r := range group {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_') {
			return &ValidationError{Field: "group", Message: "分组名包含非法字符"}
		}
	}
	return nil
}

// validateStatus 验证主机上报的运行状态
func validateStatus(status string) error {
	if len(status) > 20 {
		return &ValidationError{Field: "status", Message: "状态长度不能超过20字符"}
	}
	// pending是审批门槛的保留值，不允许主机自行上报
	if status == "pending" {
		return &ValidationError{Field: "status", Message: "状态不能使用保留值"}
	}
	for _, r := range status {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_') {
			return &ValidationError{Field: "status", Message: "状态包含非法字符"}
		}
	}
	return nil
}

// ValidationError 验证错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// validateAndRespond 验证参数并响应错误（如果验证失败）
func validateAndRespond(c *gin.Context, hostname, group string) bool {
	if err := validateHostname(hostname); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	if group != "" {
		if err := validateGroup(group); err != nil {
			response.BadRequest(c, err.Error())
			return false
		}
	}
	return true
}
