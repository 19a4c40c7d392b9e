package tts

import (
	"context"
	"sort"

	"github.com/rhinocodelab/wras/internal/apperr"
)

// Result 是一次语音合成的结果。
type Result struct {
	// Audio MP3 编码的音频数据。
	Audio []byte
	// Duration 音频时长（秒），由解码后的音频流计算得到。
	Duration float64
}

// Engine 定义语音合成后端接口。
// 合成失败必须返回 error，不允许用默认时长伪装成功。
type Engine interface {
	// Synthesize 使用 lang 对应的音色将文本合成为 MP3。
	Synthesize(ctx context.Context, text, lang string) (*Result, error)
}

// VoiceTable 语言代码 -> 音色。
type VoiceTable[V any] map[string]V

// Lookup 返回语言对应的音色，未配置的语言返回 ErrValidation。
func (t VoiceTable[V]) Lookup(lang string) (V, error) {
	v, ok := t[lang]
	if !ok {
		var zero V
		return zero, apperr.Validation("语言 %s 没有可用的音色", lang)
	}
	return v, nil
}

// Languages 返回已配置音色的语言代码（升序）。
func (t VoiceTable[V]) Languages() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// merge 用 override 覆盖 base 中的同名项，返回新表。
func merge[V any](base, override map[string]V) VoiceTable[V] {
	out := make(VoiceTable[V], len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
