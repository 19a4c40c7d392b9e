package announce

import (
	"context"
	"strings"

	"github.com/rhinocodelab/wras/internal/apperr"
	"github.com/rhinocodelab/wras/internal/logger"
	"github.com/rhinocodelab/wras/internal/placeholder"
	"github.com/rhinocodelab/wras/internal/translate"
)

// TranslationResult 单个分类的模板翻译结果。
type TranslationResult struct {
	CategoryID int64    `json:"category_id"`
	Generated  int      `json:"translations_generated"`
	Languages  []string `json:"languages"`
	// Errors 语言代码 -> 失败原因。
	Errors map[string]string `json:"errors,omitempty"`
	// Warnings 语言代码 -> 占位符还原不完整的说明，译文仍已保存。
	Warnings map[string]string `json:"warnings,omitempty"`
}

// BulkTranslationResult 全部分类的模板翻译结果。
type BulkTranslationResult struct {
	TotalCategories int     `json:"total_categories"`
	Generated       int     `json:"total_translations_generated"`
	Processed       []int64 `json:"categories_processed"`
	// Failed 分类 ID -> 无法开始翻译的原因（例如缺少基础模板）。
	Failed map[int64]string `json:"failed_categories,omitempty"`
	// Errors 按分类汇总的单语言失败。
	Errors map[int64]map[string]string `json:"errors,omitempty"`
}

// Translator 用基础语言模板机器翻译出其他语言的模板。
type Translator struct {
	categories *CategoryStore
	templates  *TemplateStore
	provider   translate.Provider
	langs      Languages
}

// NewTranslator 创建模板翻译器。
func NewTranslator(categories *CategoryStore, templates *TemplateStore, provider translate.Provider, langs Languages) *Translator {
	return &Translator{
		categories: categories,
		templates:  templates,
		provider:   provider,
		langs:      langs,
	}
}

// Generate 为分类生成 targets 中各语言的模板，targets 为空时使用全部非基础语言。
// 已有模板且 overwrite 为 false 时跳过。单个语言翻译失败只记录在结果中，不影响其他语言。
func (t *Translator) Generate(ctx context.Context, categoryID int64, targets []string, overwrite bool) (*TranslationResult, error) {
	targets, err := t.resolveTargets(targets)
	if err != nil {
		return nil, err
	}

	category, err := t.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, apperr.NotFound("分类 %d 不存在", categoryID)
	}

	base, err := t.templates.Get(ctx, categoryID, t.langs.Base)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, apperr.NotFound("分类 %s 缺少 %s 基础模板", category.Code, t.langs.Base)
	}

	result := &TranslationResult{
		CategoryID: categoryID,
		Languages:  targets,
		Errors:     make(map[string]string),
		Warnings:   make(map[string]string),
	}

	masked, mapping := placeholder.Mask(base.Text)

	for _, lang := range targets {
		existing, err := t.templates.Get(ctx, categoryID, lang)
		if err != nil {
			result.Errors[lang] = err.Error()
			continue
		}
		if existing != nil && !overwrite {
			logger.Debugf("[announce] 跳过已有模板: %s/%s", category.Code, lang)
			continue
		}

		translated, err := t.provider.Translate(ctx, masked, t.langs.Base, lang)
		if err != nil {
			logger.Warnf("[announce] 翻译 %s/%s 失败: %v", category.Code, lang, err)
			result.Errors[lang] = err.Error()
			continue
		}

		text := placeholder.Unmask(translated, mapping)
		if missing, extra := placeholder.Verify(base.Text, text); len(missing) > 0 || len(extra) > 0 {
			msg := describePlaceholderDrift(missing, extra)
			logger.Warnf("[announce] %s/%s 占位符还原不完整: %s", category.Code, lang, msg)
			result.Warnings[lang] = msg
		}

		if _, err := t.templates.Upsert(ctx, categoryID, lang, text); err != nil {
			result.Errors[lang] = err.Error()
			continue
		}
		result.Generated++
		logger.Infof("[announce] 已生成模板 %s/%s", category.Code, lang)
	}

	logger.Infof("[announce] 分类 %s 翻译完成: 生成 %d, 失败 %d", category.Code, result.Generated, len(result.Errors))
	return result, nil
}

// GenerateAll 依次翻译全部分类。分类级失败（如缺少基础模板）记录后继续下一个分类。
func (t *Translator) GenerateAll(ctx context.Context, targets []string, overwrite bool) (*BulkTranslationResult, error) {
	if _, err := t.resolveTargets(targets); err != nil {
		return nil, err
	}

	categories, err := t.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	result := &BulkTranslationResult{
		TotalCategories: len(categories),
		Processed:       []int64{},
		Failed:          make(map[int64]string),
		Errors:          make(map[int64]map[string]string),
	}
	for _, c := range categories {
		r, err := t.Generate(ctx, c.ID, targets, overwrite)
		if err != nil {
			logger.Warnf("[announce] 分类 %s 翻译失败: %v", c.Code, err)
			result.Failed[c.ID] = err.Error()
			continue
		}
		result.Generated += r.Generated
		result.Processed = append(result.Processed, c.ID)
		if len(r.Errors) > 0 {
			result.Errors[c.ID] = r.Errors
		}
	}
	return result, nil
}

// DetectLanguage 识别文本语言。
func (t *Translator) DetectLanguage(ctx context.Context, text string) (string, error) {
	return t.provider.DetectLanguage(ctx, text)
}

// resolveTargets 校验目标语言并去掉基础语言。
func (t *Translator) resolveTargets(targets []string) ([]string, error) {
	if len(targets) == 0 {
		return t.langs.Targets(), nil
	}
	if err := t.langs.Validate(targets); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(targets))
	for _, l := range dedupe(targets) {
		if l != t.langs.Base {
			out = append(out, l)
		}
	}
	return out, nil
}

func describePlaceholderDrift(missing, extra []string) string {
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "缺失 "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		parts = append(parts, "多出 "+strings.Join(extra, ", "))
	}
	return strings.Join(parts, "; ")
}
