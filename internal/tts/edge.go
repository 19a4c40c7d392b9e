package tts

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"
	"github.com/rhinocodelab/wras/internal/apperr"
	"github.com/rhinocodelab/wras/internal/logger"
)

// DefaultEdgeVoices 内置的印度语种神经网络音色。
var DefaultEdgeVoices = map[string]string{
	"en": "en-IN-NeerjaNeural",
	"hi": "hi-IN-SwaraNeural",
	"mr": "mr-IN-AarohiNeural",
	"gu": "gu-IN-DhwaniNeural",
}

// EdgeEngine 使用微软 Edge TTS 实现语音合成，
// 通过 edge-tts-go 获取 MP3 音频，时长由 go-mp3 解码计算。
type EdgeEngine struct {
	voices VoiceTable[string]
}

// NewEdgeEngine 创建 Edge TTS 引擎。voices 覆盖内置音色表中的同名语言。
func NewEdgeEngine(voices map[string]string) *EdgeEngine {
	return &EdgeEngine{voices: merge(DefaultEdgeVoices, voices)}
}

// Synthesize 将文本合成为 MP3。
func (e *EdgeEngine) Synthesize(ctx context.Context, text, lang string) (*Result, error) {
	voice, err := e.voices.Lookup(lang)
	if err != nil {
		return nil, err
	}
	logger.Debugf("[tts] edge-tts: 正在合成 %d 个字符，语音=%s", len([]rune(text)), voice)

	comm, err := edge.NewCommunicate(text, edge.WithVoice(voice))
	if err != nil {
		return nil, apperr.Provider("edge_tts", fmt.Errorf("创建实例失败: %w", err))
	}

	ch, err := comm.Stream()
	if err != nil {
		return nil, apperr.Provider("edge_tts", fmt.Errorf("开始流式合成失败: %w", err))
	}

	data, err := collectAudio(ctx, ch)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperr.Provider("edge_tts", fmt.Errorf("未收到音频数据"))
	}

	duration, err := MP3Duration(data)
	if err != nil {
		return nil, err
	}

	logger.Debugf("[tts] edge-tts: 收到 %d 字节 MP3，时长 %.2fs", len(data), duration)
	return &Result{Audio: data, Duration: duration}, nil
}

// collectAudio 拼接 Stream() 中 type=="audio" 的数据。
// 上下文取消时提前返回，并在后台读完剩余消息，避免库内的发送协程阻塞。
func collectAudio(ctx context.Context, ch <-chan map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	for msg := range ch {
		if err := ctx.Err(); err != nil {
			go func() {
				for range ch {
				}
			}()
			return nil, err
		}
		if msgType, ok := msg["type"].(string); ok && msgType == "audio" {
			if data, ok := msg["data"].([]byte); ok {
				buf.Write(data)
			}
		}
	}
	return buf.Bytes(), nil
}
