package announce

import (
	"context"
	"path"

	"github.com/rhinocodelab/wras/internal/apperr"
	"github.com/rhinocodelab/wras/internal/audio"
	"github.com/rhinocodelab/wras/internal/logger"
	"github.com/rhinocodelab/wras/internal/tts"
)

// TemplateAudioPath 返回模板整句音频相对音频根目录的路径。
func TemplateAudioPath(categoryCode, lang string) string {
	return path.Join("announcements", categoryCode, lang, categoryCode+"_"+lang+".mp3")
}

// AudioResult 单个分类的整句音频生成结果。
type AudioResult struct {
	CategoryID int64             `json:"category_id"`
	Generated  int               `json:"audio_files_generated"`
	Languages  []string          `json:"languages"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// BulkAudioResult 全部分类的整句音频生成结果。
type BulkAudioResult struct {
	TotalCategories int              `json:"total_categories"`
	Generated       int              `json:"total_audio_files_generated"`
	Processed       []int64          `json:"categories_processed"`
	Failed          map[int64]string `json:"failed_categories,omitempty"`
}

// TemplateAudioGenerator 将整条模板文本合成为音频。
type TemplateAudioGenerator struct {
	categories *CategoryStore
	templates  *TemplateStore
	audioFiles *AudioFileStore
	engine     tts.Engine
	files      *audio.Store
	langs      Languages
}

// NewTemplateAudioGenerator 创建整句音频生成器。
func NewTemplateAudioGenerator(categories *CategoryStore, templates *TemplateStore, audioFiles *AudioFileStore,
	engine tts.Engine, files *audio.Store, langs Languages) *TemplateAudioGenerator {
	return &TemplateAudioGenerator{
		categories: categories,
		templates:  templates,
		audioFiles: audioFiles,
		engine:     engine,
		files:      files,
		langs:      langs,
	}
}

// Generate 为分类下 languages 中各语言的模板生成整句音频，languages 为空表示全部支持语言。
// 已有音频且 overwrite 为 false 时跳过；单个模板失败不影响其他模板。
func (g *TemplateAudioGenerator) Generate(ctx context.Context, categoryID int64, languages []string, overwrite bool) (*AudioResult, error) {
	languages, err := g.langs.Resolve(languages)
	if err != nil {
		return nil, err
	}

	category, err := g.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, apperr.NotFound("分类 %d 不存在", categoryID)
	}

	templates, err := g.templates.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(languages))
	for _, l := range languages {
		wanted[l] = true
	}

	result := &AudioResult{
		CategoryID: categoryID,
		Languages:  languages,
		Errors:     make(map[string]string),
	}
	for _, tpl := range templates {
		if !wanted[tpl.LanguageCode] {
			continue
		}
		if tpl.HasAudio && !overwrite {
			logger.Debugf("[announce] 跳过已有整句音频: %s/%s", category.Code, tpl.LanguageCode)
			continue
		}

		if err := g.render(ctx, category, tpl); err != nil {
			logger.Warnf("[announce] 生成 %s/%s 整句音频失败: %v", category.Code, tpl.LanguageCode, err)
			result.Errors[tpl.LanguageCode] = err.Error()
			continue
		}
		result.Generated++
	}

	logger.Infof("[announce] 分类 %s 整句音频完成: 生成 %d, 失败 %d", category.Code, result.Generated, len(result.Errors))
	return result, nil
}

func (g *TemplateAudioGenerator) render(ctx context.Context, category *Category, tpl Template) error {
	res, err := g.engine.Synthesize(ctx, tpl.Text, tpl.LanguageCode)
	if err != nil {
		return err
	}
	rel := TemplateAudioPath(category.Code, tpl.LanguageCode)
	if err := g.files.Write(rel, res.Audio); err != nil {
		return err
	}
	_, err = g.audioFiles.Upsert(ctx, tpl.ID, tpl.LanguageCode, rel, res.Duration)
	return err
}

// GenerateAll 依次为全部分类生成整句音频。
func (g *TemplateAudioGenerator) GenerateAll(ctx context.Context, languages []string, overwrite bool) (*BulkAudioResult, error) {
	if _, err := g.langs.Resolve(languages); err != nil {
		return nil, err
	}
	categories, err := g.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	result := &BulkAudioResult{
		TotalCategories: len(categories),
		Processed:       []int64{},
		Failed:          make(map[int64]string),
	}
	for _, c := range categories {
		r, err := g.Generate(ctx, c.ID, languages, overwrite)
		if err != nil {
			result.Failed[c.ID] = err.Error()
			continue
		}
		result.Generated += r.Generated
		result.Processed = append(result.Processed, c.ID)
	}
	return result, nil
}
