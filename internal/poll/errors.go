package poll

import (
	"errors"
	"fmt"
)

// Kind 定义了投票间操作失败的封闭错误类别。
// 边界层（HTTP处理器、websocket网关）根据类别决定HTTP状态码
// 或下发给客户端的异常事件类型。
type Kind string

const (
	// KindNotFound 表示投票间或其引用的实体不存在或已过期
	KindNotFound Kind = "NotFound"
	// KindInvalidState 表示操作在当前生命周期阶段不合法
	KindInvalidState Kind = "InvalidState"
	// KindUnauthenticated 表示缺少凭证或凭证无效
	KindUnauthenticated Kind = "Unauthenticated"
	// KindForbidden 表示凭证有效但权限不足（非管理员执行管理员操作）
	KindForbidden Kind = "Forbidden"
	// KindValidationFailed 表示输入格式不合法
	KindValidationFailed Kind = "ValidationFailed"
	// KindStorageUnavailable 表示存储协作方故障，不是调用方的问题
	KindStorageUnavailable Kind = "StorageUnavailable"
	// KindUnknown 表示未被识别的内部错误，对外不泄露细节
	KindUnknown Kind = "Unknown"
)

// Error 是携带类别的投票间领域错误。
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// Error 实现error接口。
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap 返回底层原因，支持errors.Is/As链。
func (e *Error) Unwrap() error {
	return e.cause
}

// NewError 构造一个指定类别的领域错误。
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf 构造一个带格式化消息的领域错误。
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError 将一个底层错误包装为指定类别的领域错误，保留原因链。
func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf 提取一个错误的类别。非领域错误统一归为 KindUnknown，
// 保证边界层总能对类别做穷举switch。
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindUnknown
}

// MessageOf 提取一个错误对外可见的消息。
// 未识别的错误不暴露内部细节，只返回一个通用提示。
func MessageOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "服务器内部错误"
}
