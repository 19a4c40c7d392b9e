package tts

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"github.com/rhinocodelab/wras/internal/apperr"
	"github.com/rhinocodelab/wras/internal/logger"
	tts "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tts/v20190823"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
)

// DefaultTencentVoices 腾讯云 TTS 只提供英文音色，印度语种需要在配置中显式指定。
var DefaultTencentVoices = map[string]int64{
	"en": 101051, // WeRose，英文女声
}

// 腾讯云 PrimaryLanguage: 1 中文, 2 英文
var tencentPrimaryLanguage = map[string]int64{
	"en": 2,
}

// TencentEngine 使用腾讯云 TTS 实现语音合成。
type TencentEngine struct {
	client *tts.Client
	voices VoiceTable[int64]
	speed  float64
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string
	SecretKey string
	Region    string
	Speed     float64
	// Voices 语言代码 -> VoiceType，覆盖内置表。
	Voices map[string]int64
}

// NewTencentEngine 创建腾讯云 TTS 引擎。
func NewTencentEngine(cfg TencentConfig) (*TencentEngine, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("[tts] 腾讯云 TTS 需要 SecretID 和 SecretKey")
	}
	if cfg.Region == "" {
		cfg.Region = "ap-guangzhou"
	}
	if cfg.Speed == 0 {
		cfg.Speed = 1.0
	}

	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tts.tencentcloudapi.com"

	client, err := tts.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("[tts] 创建腾讯云 TTS 客户端失败: %w", err)
	}

	voices := merge(DefaultTencentVoices, cfg.Voices)
	logger.Infof("[tts] 腾讯云 TTS 引擎已初始化 (languages=%v, region=%s)", voices.Languages(), cfg.Region)

	return &TencentEngine{
		client: client,
		voices: voices,
		speed:  cfg.Speed,
	}, nil
}

// Synthesize 将文本合成为 MP3。腾讯云返回 Base64 编码的音频。
func (e *TencentEngine) Synthesize(ctx context.Context, text, lang string) (*Result, error) {
	voiceType, err := e.voices.Lookup(lang)
	if err != nil {
		return nil, err
	}
	logger.Debugf("[tts] 腾讯云 TTS: 正在合成 %d 个字符，音色=%d", len([]rune(text)), voiceType)

	request := tts.NewTextToVoiceRequest()
	request.Text = common.StringPtr(text)
	request.SessionId = common.StringPtr(uuid.NewString())
	request.VoiceType = common.Int64Ptr(voiceType)
	request.Codec = common.StringPtr("mp3")
	request.Speed = common.Float64Ptr(e.speed)
	request.Volume = common.Float64Ptr(5.0)
	if pl, ok := tencentPrimaryLanguage[lang]; ok {
		request.PrimaryLanguage = common.Int64Ptr(pl)
	}

	response, err := e.client.TextToVoiceWithContext(ctx, request)
	if err != nil {
		return nil, apperr.Provider("tencent_tts", err)
	}
	if response.Response == nil || response.Response.Audio == nil {
		return nil, apperr.Provider("tencent_tts", fmt.Errorf("未返回音频数据"))
	}

	mp3Data, err := base64.StdEncoding.DecodeString(*response.Response.Audio)
	if err != nil {
		return nil, apperr.Provider("tencent_tts", fmt.Errorf("Base64 解码失败: %w", err))
	}

	duration, err := MP3Duration(mp3Data)
	if err != nil {
		return nil, err
	}

	logger.Debugf("[tts] 腾讯云 TTS: 收到 %d 字节 MP3，时长 %.2fs", len(mp3Data), duration)
	return &Result{Audio: mp3Data, Duration: duration}, nil
}
