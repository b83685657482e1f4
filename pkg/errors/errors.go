package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrPermissionDenied 当前角色不具备执行该操作的能力
var ErrPermissionDenied = errors.New("无权执行该操作")

// ValidationError 业务规则校验失败。
// Message 原样透传给调用方（例如存储过程返回的提示），不做改写。
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidation 创建业务校验错误
func NewValidation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// AsValidation 判断 err 链中是否包含 ValidationError
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
