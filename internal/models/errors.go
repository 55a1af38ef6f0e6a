package models

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout 所有有界等待超时错误的哨兵值
// 用法: errors.Is(err, models.ErrTimeout)
var ErrTimeout = errors.New("等待超时")

// ErrElementNotFound 必需的子元素不存在
var ErrElementNotFound = errors.New("元素不存在")

// ErrIncompleteRecord 视频条目缺少必需字段
var ErrIncompleteRecord = errors.New("视频条目不完整")

// UnsupportedVariantError 页面节点不属于任何已识别的视频条目布局
// 属于结构性错误,向调用方传播,不允许静默跳过
type UnsupportedVariantError struct {
	// Tag 节点的标签名
	Tag string
}

// Error 实现error接口
func (e *UnsupportedVariantError) Error() string {
	return fmt.Sprintf("不支持的视频元素类型: %q", e.Tag)
}

// PreconditionError 预期的控件不具备预期特征(如搜索框placeholder不含"Search")
type PreconditionError struct {
	// Control 控件描述或选择器
	Control string

	// Attribute 检查的属性名
	Attribute string

	// Want 期望包含的内容
	Want string

	// Got 实际读取到的内容
	Got string
}

// Error 实现error接口
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("前置条件不满足 [%s]: 属性 %s 应包含 %q, 实际为 %q",
		e.Control, e.Attribute, e.Want, e.Got)
}

// TimeoutError 有界等待超时
// 在编排层被解释为"可能触发了自动化流量检测"
type TimeoutError struct {
	// Op 等待的操作 (如 "wait-interactable")
	Op string

	// Selector 等待的元素选择器
	Selector string

	// Timeout 等待上限
	Timeout time.Duration

	// Cause 底层错误 (通常为context.DeadlineExceeded)
	Cause error
}

// Error 实现error接口
func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s 超时 [%s] (上限 %s)", e.Op, e.Selector, e.Timeout)
	if e.Cause != nil && !errors.Is(e.Cause, context.DeadlineExceeded) {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

// Is 使errors.Is(err, ErrTimeout)成立
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Unwrap 支持errors.Unwrap
func (e *TimeoutError) Unwrap() error {
	if e.Cause == nil {
		return context.DeadlineExceeded
	}
	return e.Cause
}

// IsStructural 判断错误是否属于结构性/编程错误
// 结构性错误应终止运行,其余视为站点侧的瞬时错误
func IsStructural(err error) bool {
	var unsupported *UnsupportedVariantError
	var precondition *PreconditionError
	return errors.As(err, &unsupported) || errors.As(err, &precondition)
}

// ConfigError 配置文件读取或解析失败
type ConfigError struct {
	// FilePath 配置文件路径
	FilePath string

	// Cause 底层错误 (如viper.ConfigParseError)
	Cause error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
