package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是 WRAS 公告生成服务的顶层配置结构。
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Languages LanguageConfig  `yaml:"languages"`
	Translate TranslateConfig `yaml:"translate"`
	TTS       TTSConfig       `yaml:"tts"`
	Audio     AudioConfig     `yaml:"audio"`
	Segments  SegmentsConfig  `yaml:"segments"`
	Log       LogConfig       `yaml:"log"`
}

// DatabaseConfig 数据库配置。
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LanguageConfig 语言配置。
type LanguageConfig struct {
	// Base 基础语言，所有翻译都以该语言的模板为源。
	Base string `yaml:"base"`
	// Supported 支持的全部语言（包含 Base）。
	Supported []string `yaml:"supported"`
}

// TranslateConfig 腾讯云机器翻译配置。
type TranslateConfig struct {
	SecretID  string `yaml:"secret_id"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	ProjectID int64  `yaml:"project_id"`
}

// TTSConfig 语音合成配置。
type TTSConfig struct {
	// Engine 主引擎: edge / tencent
	Engine string `yaml:"engine"`
	// Fallback 主引擎失败时使用的备用引擎，为空则不启用。
	Fallback string        `yaml:"fallback"`
	Edge     EdgeConfig    `yaml:"edge"`
	Tencent  TencentConfig `yaml:"tencent"`
}

// EdgeConfig Edge TTS 配置。
type EdgeConfig struct {
	// Voices 语言代码 -> 音色名，未配置的语言使用内置表。
	Voices map[string]string `yaml:"voices"`
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string           `yaml:"secret_id"`
	SecretKey string           `yaml:"secret_key"`
	Region    string           `yaml:"region"`
	Speed     float64          `yaml:"speed"`
	Voices    map[string]int64 `yaml:"voices"`
}

// AudioConfig 音频文件存储配置。
type AudioConfig struct {
	// BaseDir 音频文件根目录。
	BaseDir string `yaml:"base_dir"`
	// PublicPrefix 对外访问的 URL 前缀，存储路径相对 BaseDir 拼接在其后。
	PublicPrefix string `yaml:"public_prefix"`
}

// SegmentsConfig 音频片段生成配置。
type SegmentsConfig struct {
	// CatalogFile 片段目录 YAML，为空则使用内置目录。
	CatalogFile string `yaml:"catalog_file"`
	// RequestDelayMs 每次成功合成后的等待时间（毫秒）。
	RequestDelayMs int `yaml:"request_delay_ms"`
	// CategoryDelayMs 批量模式下分类之间的等待时间（毫秒）。
	CategoryDelayMs int `yaml:"category_delay_ms"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	return cfg, nil
}

// Parse 解析 YAML 内容，展开环境变量并填充默认值。
func Parse(data []byte) (*Config, error) {
	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	setDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/wras.db"
	}
	if cfg.Languages.Base == "" {
		cfg.Languages.Base = "en"
	}
	if len(cfg.Languages.Supported) == 0 {
		cfg.Languages.Supported = []string{"en", "hi", "mr", "gu"}
	}
	if cfg.Translate.Region == "" {
		cfg.Translate.Region = "ap-guangzhou"
	}
	if cfg.TTS.Engine == "" {
		cfg.TTS.Engine = "edge"
	}
	if cfg.TTS.Tencent.Region == "" {
		cfg.TTS.Tencent.Region = cfg.Translate.Region
	}
	// TTS 未单独配置凭证时复用翻译的凭证
	if cfg.TTS.Tencent.SecretID == "" && cfg.TTS.Tencent.SecretKey == "" {
		cfg.TTS.Tencent.SecretID = cfg.Translate.SecretID
		cfg.TTS.Tencent.SecretKey = cfg.Translate.SecretKey
	}
	if cfg.TTS.Tencent.Speed == 0 {
		cfg.TTS.Tencent.Speed = 1.0
	}
	if cfg.Audio.BaseDir == "" {
		cfg.Audio.BaseDir = "./data/ai-audio-translations"
	}
	if cfg.Audio.PublicPrefix == "" {
		cfg.Audio.PublicPrefix = "/ai-audio-translations"
	}
	if cfg.Segments.RequestDelayMs == 0 {
		cfg.Segments.RequestDelayMs = 2000
	}
	if cfg.Segments.CategoryDelayMs == 0 {
		cfg.Segments.CategoryDelayMs = 5000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	cfg.Translate.SecretID = strings.TrimSpace(cfg.Translate.SecretID)
	cfg.Translate.SecretKey = strings.TrimSpace(cfg.Translate.SecretKey)
	cfg.TTS.Tencent.SecretID = strings.TrimSpace(cfg.TTS.Tencent.SecretID)
	cfg.TTS.Tencent.SecretKey = strings.TrimSpace(cfg.TTS.Tencent.SecretKey)
	for i, l := range cfg.Languages.Supported {
		cfg.Languages.Supported[i] = strings.ToLower(strings.TrimSpace(l))
	}
	cfg.Languages.Base = strings.ToLower(strings.TrimSpace(cfg.Languages.Base))
}

func (cfg *Config) validate() error {
	found := false
	for _, l := range cfg.Languages.Supported {
		if l == cfg.Languages.Base {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("基础语言 %s 不在支持列表 %v 中", cfg.Languages.Base, cfg.Languages.Supported)
	}
	if cfg.Segments.RequestDelayMs < 0 || cfg.Segments.CategoryDelayMs < 0 {
		return fmt.Errorf("片段生成延迟不能为负数")
	}
	return nil
}

// TargetLanguages 返回除基础语言外的全部支持语言。
func (cfg *Config) TargetLanguages() []string {
	out := make([]string, 0, len(cfg.Languages.Supported))
	for _, l := range cfg.Languages.Supported {
		if l != cfg.Languages.Base {
			out = append(out, l)
		}
	}
	return out
}
