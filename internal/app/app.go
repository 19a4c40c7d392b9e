// Package app 按配置组装公告生成服务的全部组件。
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rhinocodelab/wras/internal/announce"
	"github.com/rhinocodelab/wras/internal/apperr"
	"github.com/rhinocodelab/wras/internal/audio"
	"github.com/rhinocodelab/wras/internal/config"
	"github.com/rhinocodelab/wras/internal/database"
	"github.com/rhinocodelab/wras/internal/logger"
	"github.com/rhinocodelab/wras/internal/segment"
	"github.com/rhinocodelab/wras/internal/translate"
	"github.com/rhinocodelab/wras/internal/tts"
)

// App 持有数据库连接、存储和各编排器。
type App struct {
	cfg *config.Config

	DB            *database.DB
	Files         *audio.Store
	Categories    *announce.CategoryStore
	Templates     *announce.TemplateStore
	AudioFiles    *announce.AudioFileStore
	Announcements *announce.AnnouncementStore
	Segments      *segment.Store
	Catalog       *segment.Catalog

	// Translator 未配置翻译凭证时为 nil。
	Translator    *announce.Translator
	TemplateAudio *announce.TemplateAudioGenerator
	SegmentGen    *segment.Generator
	Assembler     *announce.Assembler
}

// New 根据配置创建 App。数据库会自动迁移。
func New(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}
	langs := a.Languages()

	var err error

	// 片段目录先于其他组件加载，缺项直接启动失败
	a.Catalog, err = segment.LoadCatalog(cfg.Segments.CatalogFile, langs.Supported)
	if err != nil {
		return nil, fmt.Errorf("加载片段目录失败: %w", err)
	}

	a.DB, err = database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}
	if err := a.DB.Migrate(); err != nil {
		a.Close()
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	a.Files, err = audio.NewStore(cfg.Audio.BaseDir, cfg.Audio.PublicPrefix)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("初始化音频存储失败: %w", err)
	}

	a.Categories = announce.NewCategoryStore(a.DB)
	a.Templates = announce.NewTemplateStore(a.DB)
	a.AudioFiles = announce.NewAudioFileStore(a.DB)
	a.Announcements = announce.NewAnnouncementStore(a.DB)
	a.Segments = segment.NewStore(a.DB)

	// 翻译服务（可选）
	if cfg.Translate.SecretID != "" && cfg.Translate.SecretKey != "" {
		provider, err := translate.NewTencentProvider(translate.TencentConfig{
			SecretID:  cfg.Translate.SecretID,
			SecretKey: cfg.Translate.SecretKey,
			Region:    cfg.Translate.Region,
			ProjectID: cfg.Translate.ProjectID,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("初始化翻译服务失败: %w", err)
		}
		a.Translator = announce.NewTranslator(a.Categories, a.Templates, provider, langs)
	} else {
		logger.Warnf("[app] 未配置翻译凭证，模板翻译和语言识别不可用")
	}

	// TTS 引擎
	engine, err := newEngine(cfg.TTS.Engine, cfg.TTS)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("初始化 TTS 引擎失败: %w", err)
	}
	if cfg.TTS.Fallback != "" && cfg.TTS.Fallback != cfg.TTS.Engine {
		fallback, err := newEngine(cfg.TTS.Fallback, cfg.TTS)
		if err != nil {
			logger.Warnf("[app] TTS 回退引擎 %s 不可用: %v", cfg.TTS.Fallback, err)
		} else {
			engine = tts.NewFallbackEngine(engine, fallback)
			logger.Infof("[app] 已启用 TTS 回退引擎: %s", cfg.TTS.Fallback)
		}
	}

	a.TemplateAudio = announce.NewTemplateAudioGenerator(a.Categories, a.Templates, a.AudioFiles, engine, a.Files, langs)
	a.SegmentGen = segment.NewGenerator(a.Categories, a.Segments, a.Catalog, engine, a.Files, langs, segment.Options{
		RequestDelay:  time.Duration(cfg.Segments.RequestDelayMs) * time.Millisecond,
		CategoryDelay: time.Duration(cfg.Segments.CategoryDelayMs) * time.Millisecond,
	})
	a.Assembler = announce.NewAssembler(a.Categories, a.Templates, a.AudioFiles, a.Announcements, a.Files, langs)

	logger.Infof("[app] 所有组件初始化完成 (tts=%s, languages=%v)", cfg.TTS.Engine, langs.Supported)
	return a, nil
}

// newEngine 按名称创建 TTS 引擎。
func newEngine(name string, cfg config.TTSConfig) (tts.Engine, error) {
	switch name {
	case "edge":
		return tts.NewEdgeEngine(cfg.Edge.Voices), nil
	case "tencent":
		return tts.NewTencentEngine(tts.TencentConfig{
			SecretID:  cfg.Tencent.SecretID,
			SecretKey: cfg.Tencent.SecretKey,
			Region:    cfg.Tencent.Region,
			Speed:     cfg.Tencent.Speed,
			Voices:    cfg.Tencent.Voices,
		})
	default:
		return nil, fmt.Errorf("未知的 TTS 引擎: %s", name)
	}
}

// Languages 返回配置中的语言集合。
func (a *App) Languages() announce.Languages {
	return announce.Languages{Base: a.cfg.Languages.Base, Supported: a.cfg.Languages.Supported}
}

// CategoryByCode 按代码查询分类，不存在时返回 ErrNotFound。
func (a *App) CategoryByCode(ctx context.Context, code string) (*announce.Category, error) {
	c, err := a.Categories.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("分类 %s 不存在", code)
	}
	return c, nil
}

// CheckCatalog 检查数据库中的分类都在片段目录中，返回缺失的分类错误。
func (a *App) CheckCatalog(ctx context.Context) error {
	categories, err := a.Categories.List(ctx)
	if err != nil {
		return err
	}
	codes := make([]string, 0, len(categories))
	for _, c := range categories {
		codes = append(codes, c.Code)
	}
	return a.Catalog.Require(codes)
}

// Close 释放资源。
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	logger.Infof("[app] 已关闭")
}
