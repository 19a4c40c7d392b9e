// Package apperr 定义公告生成流水线共用的错误分类。
//
// 调用方统一用 errors.Is 判断类别：
//   - ErrNotFound   分类、模板、音频片段不存在
//   - ErrValidation 参数未填充、语言代码不受支持等
//   - ErrProvider   翻译或语音合成服务调用失败
//
// 批量任务中单个单元的失败不会作为 error 返回，而是记录在各自的结果结构里。
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound 资源不存在。
	ErrNotFound = errors.New("资源不存在")
	// ErrValidation 输入校验失败。
	ErrValidation = errors.New("参数校验失败")
	// ErrProvider 外部服务（翻译 / TTS）调用失败。
	ErrProvider = errors.New("外部服务调用失败")
)

// NotFound 构造一个 ErrNotFound 类别的错误。
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Validation 构造一个 ErrValidation 类别的错误。
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ProviderError 包装外部服务返回的原始错误，保留操作名。
type ProviderError struct {
	Op  string
	Err error
}

// Provider 构造 ProviderError。err 为 nil 时只保留操作名。
func Provider(op string, err error) error {
	return &ProviderError{Op: op, Err: err}
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, ErrProvider.Error())
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap 同时暴露 ErrProvider 与底层错误。
func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProvider}
	}
	return []error{ErrProvider, e.Err}
}

// MissingParametersError 表示模板填充后仍有未解析的占位符。
type MissingParametersError struct {
	Placeholders []string
}

func (e *MissingParametersError) Error() string {
	return "缺少参数: " + strings.Join(e.Placeholders, ", ")
}

// Is 使 MissingParametersError 归入 ErrValidation。
func (e *MissingParametersError) Is(target error) bool {
	return target == ErrValidation
}
