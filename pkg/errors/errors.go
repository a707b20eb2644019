// Package errors 定义抽签引擎跨层共享的错误分类。
//
// 四类业务错误：
//   - StateTransitionError：非法的生命周期跳转，或当前状态不允许的操作
//   - ValidationError：期间/愿望等输入不合法，写入前即被拒绝
//   - ReferenceError：引用了不存在的期间/公寓/执行记录，抽签会整体中止
//   - PublicationConflictError：已有执行记录处于发布状态时再次发布
package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// StateTransitionError 生命周期跳转或状态门禁失败
type StateTransitionError struct {
	Op   string // 尝试的操作，例如 "transition"、"submit_wish"
	From string // 当前状态
	To   string // 目标状态；状态门禁类错误为空
}

func (e *StateTransitionError) Error() string {
	if e.To != "" {
		return fmt.Sprintf("不允许的状态跳转 %s -> %s（操作: %s）", e.From, e.To, e.Op)
	}
	return fmt.Sprintf("当前状态 %s 不允许执行操作 %s", e.From, e.Op)
}

// ValidationError 输入校验失败
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "参数校验失败: " + e.Reason
	}
	return fmt.Sprintf("参数校验失败 [%s]: %s", e.Field, e.Reason)
}

// ReferenceError 引用了不存在的实体
type ReferenceError struct {
	Kind     string // period | apartment | execution | user
	ID       string
	Referrer string // 发起引用的一方，例如 "wish w-1"
}

func (e *ReferenceError) Error() string {
	if e.Referrer == "" {
		return fmt.Sprintf("引用的%s不存在: %s", e.Kind, e.ID)
	}
	return fmt.Sprintf("%s 引用的%s不存在: %s", e.Referrer, e.Kind, e.ID)
}

// PublicationConflictError 抽签已有已发布的执行记录
type PublicationConflictError struct {
	DrawingID   string
	PublishedID string
	RequestedID string
}

func (e *PublicationConflictError) Error() string {
	return fmt.Sprintf("抽签 %s 已发布执行记录 %s，需先撤销发布才能发布 %s",
		e.DrawingID, e.PublishedID, e.RequestedID)
}

// Validation 构造 ValidationError 的快捷方式
func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Reference 构造 ReferenceError 的快捷方式
func Reference(kind, id, referrer string) error {
	return &ReferenceError{Kind: kind, ID: id, Referrer: referrer}
}

// IsStateTransition 判断错误链中是否包含 StateTransitionError
func IsStateTransition(err error) bool {
	var target *StateTransitionError
	return errors.As(err, &target)
}

// IsValidation 判断错误链中是否包含 ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsReference 判断错误链中是否包含 ReferenceError
func IsReference(err error) bool {
	var target *ReferenceError
	return errors.As(err, &target)
}

// IsPublicationConflict 判断错误链中是否包含 PublicationConflictError
func IsPublicationConflict(err error) bool {
	var target *PublicationConflictError
	return errors.As(err, &target)
}
