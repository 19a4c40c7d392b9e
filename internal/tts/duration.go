package tts

import (
	"bytes"
	"fmt"

	"github.com/hajimehoshi/go-mp3"
	"github.com/rhinocodelab/wras/internal/apperr"
)

// go-mp3 始终输出 16-bit 立体声 PCM
const bytesPerFrame = 4

// MP3Duration 解码 MP3 数据并返回时长（秒）。
func MP3Duration(data []byte) (float64, error) {
	if len(data) == 0 {
		return 0, apperr.Provider("mp3_duration", fmt.Errorf("音频数据为空"))
	}

	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, apperr.Provider("mp3_duration", fmt.Errorf("MP3 解码失败: %w", err))
	}

	sampleRate := decoder.SampleRate()
	length := decoder.Length()
	if sampleRate <= 0 || length <= 0 {
		return 0, apperr.Provider("mp3_duration", fmt.Errorf("无法计算时长 (length=%d, rate=%d)", length, sampleRate))
	}

	return float64(length) / bytesPerFrame / float64(sampleRate), nil
}
