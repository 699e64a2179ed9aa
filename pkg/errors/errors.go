package errors

import "fmt"

// ErrorCode 错误码
type ErrorCode int

const (
	// 0: 成功
	Success ErrorCode = 0

	// 1xxx: 客户端错误
	ErrInvalidParams      ErrorCode = 1001 // 参数错误
	ErrUnauthorized       ErrorCode = 1002 // 未授权
	ErrForbidden          ErrorCode = 1003 // 禁止访问
	ErrNotFound           ErrorCode = 1004 // 资源不存在
	ErrConflict           ErrorCode = 1005 // 资源冲突
	ErrTooManyRequests    ErrorCode = 1006 // 请求过多
	ErrInvalidToken       ErrorCode = 1007 // Token无效
	ErrTokenExpired       ErrorCode = 1008 // Token过期
	ErrInvalidCredentials ErrorCode = 1009 // 用户名或密码错误

	// 2xxx: 业务错误
	ErrAgentNotFound     ErrorCode = 2001 // 主机不存在
	ErrAgentNotApproved  ErrorCode = 2002 // 主机未审批
	ErrHostnameTaken     ErrorCode = 2003 // 主机名已注册
	ErrInvalidAgentKey   ErrorCode = 2004 // 主机密钥无效
	ErrGroupEmpty        ErrorCode = 2005 // 分组下没有主机
	ErrFleetEmpty        ErrorCode = 2006 // 没有已注册的主机
	ErrScheduleNotFound  ErrorCode = 2007 // 定时命令不存在
	ErrSchedulePast      ErrorCode = 2008 // 定时时间已过期
	ErrUserNotFound      ErrorCode = 2009 // 用户不存在
	ErrUserDisabled      ErrorCode = 2010 // 用户已禁用
	ErrUserAlreadyExists ErrorCode = 2011 // 用户已存在
	ErrAccountLocked     ErrorCode = 2012 // 账户已锁定

	// 5xxx: 服务器内部错误
	ErrInternalServer ErrorCode = 5001 // 服务器内部错误
	ErrDatabase       ErrorCode = 5002 // 数据库错误
	ErrFileOperation  ErrorCode = 5003 // 文件操作错误
)

// APIError API错误
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"` // 详细错误信息（可选）
}

// Error 实现error接口
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// New 创建API错误
func New(code ErrorCode, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewWithDetails 创建带详细信息的API错误
func NewWithDetails(code ErrorCode, message, details string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap 包装标准错误
func Wrap(code ErrorCode, message string, err error) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: err.Error(),
	}
}

// 预定义的错误
var (
	// 客户端错误
	ErrInvalidParamsMsg      = New(ErrInvalidParams, "参数错误")
	ErrUnauthorizedMsg       = New(ErrUnauthorized, "未授权")
	ErrForbiddenMsg          = New(ErrForbidden, "禁止访问")
	ErrNotFoundMsg           = New(ErrNotFound, "资源不存在")
	ErrConflictMsg           = New(ErrConflict, "资源冲突")
	ErrTooManyRequestsMsg    = New(ErrTooManyRequests, "请求过多")
	ErrInvalidTokenMsg       = New(ErrInvalidToken, "Token无效")
	ErrTokenExpiredMsg       = New(ErrTokenExpired, "Token已过期")
	ErrInvalidCredentialsMsg = New(ErrInvalidCredentials, "用户名或密码错误")

	// 业务错误
	ErrAgentNotFoundMsg     = New(ErrAgentNotFound, "主机不存在")
	ErrAgentNotApprovedMsg  = New(ErrAgentNotApproved, "主机尚未审批通过")
	ErrHostnameTakenMsg     = New(ErrHostnameTaken, "主机名已注册")
	ErrInvalidAgentKeyMsg   = New(ErrInvalidAgentKey, "主机密钥无效")
	ErrGroupEmptyMsg        = New(ErrGroupEmpty, "分组下没有主机")
	ErrFleetEmptyMsg        = New(ErrFleetEmpty, "没有已注册的主机")
	ErrScheduleNotFoundMsg  = New(ErrScheduleNotFound, "定时命令不存在")
	ErrSchedulePastMsg      = New(ErrSchedulePast, "定时时间不能早于当前时间")
	ErrUserNotFoundMsg      = New(ErrUserNotFound, "用户不存在")
	ErrUserDisabledMsg      = New(ErrUserDisabled, "用户已禁用")
	ErrUserAlreadyExistsMsg = New(ErrUserAlreadyExists, "用户已存在")
	ErrAccountLockedMsg     = New(ErrAccountLocked, "账户已锁定，请稍后再试")

	// 服务器错误
	ErrInternalServerMsg = New(ErrInternalServer, "服务器内部错误")
	ErrDatabaseMsg       = New(ErrDatabase, "数据库错误")
	ErrFileOperationMsg  = New(ErrFileOperation, "文件操作错误")
)

// GetHTTPStatus 获取HTTP状态码
func (e *APIError) GetHTTPStatus() int {
	switch {
	case e.Code >= 1000 && e.Code < 2000:
		// 客户端错误
		switch e.Code {
		case ErrUnauthorized, ErrInvalidToken, ErrTokenExpired, ErrInvalidCredentials:
			return 401
		case ErrForbidden:
			return 403
		case ErrNotFound:
			return 404
		case ErrConflict:
			return 409
		case ErrTooManyRequests:
			return 429
		default:
			return 400
		}
	case e.Code >= 2000 && e.Code < 4000:
		// 业务错误
		switch e.Code {
		case ErrAgentNotFound, ErrGroupEmpty, ErrFleetEmpty, ErrScheduleNotFound, ErrUserNotFound:
			return 404
		case ErrAgentNotApproved, ErrInvalidAgentKey:
			return 401
		case ErrHostnameTaken, ErrUserAlreadyExists:
			return 409
		case ErrUserDisabled, ErrAccountLocked:
			return 403
		default:
			return 400
		}
	case e.Code >= 5000:
		// 服务器错误
		return 500
	default:
		return 500
	}
}
