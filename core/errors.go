package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 错误分类：
//   - INVALID_INPUT：校验失败（例如未知的交互类型），在持久化之前拒绝
//   - NOT_FOUND：引用的商品/用户不存在；推荐结果中会被静默丢弃
//   - UNAVAILABLE：依赖（交互日志、商品目录）不可达，原样向上传递，不做重试
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "UNAVAILABLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "catalog"）
	Err     error  // 底层错误，可为空
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Module + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is 让 errors.Is 按 Module 与 Code 匹配哨兵错误。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// GetDomainError 获取错误链中的 DomainError，如果不存在则返回 nil
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// NewValidationError 创建 INVALID_INPUT 错误。
func NewValidationError(module, message string) *DomainError {
	return NewDomainError(module, ErrorCodeInvalidInput, message)
}

// NewNotFoundError 创建 NOT_FOUND 错误。
func NewNotFoundError(module, message string) *DomainError {
	return NewDomainError(module, ErrorCodeNotFound, message)
}

// NewDependencyError 包装依赖（驱动、网络）的失败，创建 UNAVAILABLE 错误。
func NewDependencyError(module, op string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    ErrorCodeUnavailable,
		Message: op,
		Err:     err,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound     = "NOT_FOUND"     // 资源不存在
	ErrorCodeUnavailable  = "UNAVAILABLE"   // 依赖不可用
	ErrorCodeInvalidInput = "INVALID_INPUT" // 输入无效
)

// 模块名称常量
const (
	ModuleStore       = "store"
	ModuleInteraction = "interaction"
	ModuleCatalog     = "catalog"
	ModuleService     = "service"
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsValidation 检查错误是否为 INVALID_INPUT
func IsValidation(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsDependency 检查错误是否为 UNAVAILABLE
func IsDependency(err error) bool { return hasCode(err, ErrorCodeUnavailable) }
