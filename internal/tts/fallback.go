package tts

import (
	"context"
	"errors"

	"github.com/rhinocodelab/wras/internal/logger"
)

// FallbackEngine 主引擎失败时改用备用引擎。
// 上下文取消不触发回退。
type FallbackEngine struct {
	primary  Engine
	fallback Engine
}

// NewFallbackEngine 组合主引擎和备用引擎。fallback 为 nil 时直接返回 primary。
func NewFallbackEngine(primary, fallback Engine) Engine {
	if fallback == nil {
		return primary
	}
	return &FallbackEngine{primary: primary, fallback: fallback}
}

// Synthesize 先调用主引擎，失败后调用备用引擎。两者都失败时返回备用引擎的错误并附带主引擎错误。
func (f *FallbackEngine) Synthesize(ctx context.Context, text, lang string) (*Result, error) {
	res, err := f.primary.Synthesize(ctx, text, lang)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	logger.Warnf("[tts] 主引擎合成失败，改用备用引擎: %v", err)
	res, fbErr := f.fallback.Synthesize(ctx, text, lang)
	if fbErr != nil {
		return nil, errors.Join(fbErr, err)
	}
	return res, nil
}
