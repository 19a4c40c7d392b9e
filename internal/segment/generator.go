package segment

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rhinocodelab/wras/internal/announce"
	"github.com/rhinocodelab/wras/internal/apperr"
	"github.com/rhinocodelab/wras/internal/audio"
	"github.com/rhinocodelab/wras/internal/logger"
	"github.com/rhinocodelab/wras/internal/tts"
	"go.uber.org/zap"
)

// FilePath 返回片段音频相对音频根目录的路径。
func FilePath(categoryCode, lang, name string) string {
	return path.Join("segments", categoryCode, lang, name+".mp3")
}

// FailureKey 返回片段失败记录的键：<分类ID>/<语言>/<片段名>。
func FailureKey(categoryID int64, lang, name string) string {
	return fmt.Sprintf("%d/%s/%s", categoryID, lang, name)
}

// Options 批量生成的节流参数。
type Options struct {
	// RequestDelay 每次成功合成后的等待时间。
	RequestDelay time.Duration
	// CategoryDelay 批量模式下分类之间的等待时间。
	CategoryDelay time.Duration
}

// Result 单个分类的片段生成结果。
type Result struct {
	JobID        string   `json:"job_id"`
	CategoryID   int64    `json:"category_id"`
	CategoryCode string   `json:"category_code"`
	Generated    int      `json:"total_generated"`
	Skipped      int      `json:"skipped"`
	Failed       []string `json:"failed_segments"`
	// Errors 失败键 -> 原因。
	Errors map[string]string `json:"errors,omitempty"`
}

// BulkResult 全部分类的片段生成结果。
type BulkResult struct {
	JobID           string            `json:"job_id"`
	TotalCategories int               `json:"total_categories"`
	Generated       int               `json:"total_generated"`
	Skipped         int               `json:"skipped"`
	Processed       []string          `json:"categories_processed"`
	Failed          []string          `json:"failed_segments"`
	Errors          map[string]string `json:"errors,omitempty"`
	// FailedCategories 分类代码 -> 无法开始生成的原因。
	FailedCategories map[string]string `json:"failed_categories,omitempty"`
}

// Generator 按目录文本合成片段音频并记录到数据库。
// 一次调用就是一个顺序执行的任务，节流等待只影响该任务本身。
type Generator struct {
	categories *announce.CategoryStore
	store      *Store
	catalog    *Catalog
	engine     tts.Engine
	files      *audio.Store
	langs      announce.Languages
	opts       Options

	sleep func(ctx context.Context, d time.Duration) error
}

// NewGenerator 创建片段生成器。
func NewGenerator(categories *announce.CategoryStore, store *Store, catalog *Catalog, engine tts.Engine,
	files *audio.Store, langs announce.Languages, opts Options) *Generator {
	return &Generator{
		categories: categories,
		store:      store,
		catalog:    catalog,
		engine:     engine,
		files:      files,
		langs:      langs,
		opts:       opts,
		sleep:      sleepContext,
	}
}

// GenerateForCategory 为分类生成 languages 中各语言的全部片段，languages 为空表示全部支持语言。
// 已存在的片段在 overwrite 为 false 时跳过；单个片段失败记录在 Failed 中，不影响其余片段。
func (g *Generator) GenerateForCategory(ctx context.Context, categoryID int64, languages []string, overwrite bool) (*Result, error) {
	languages, err := g.langs.Resolve(languages)
	if err != nil {
		return nil, err
	}
	category, err := g.lookup(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	log := logger.With("job", jobID)
	log.Infof("[segment] 开始生成分类 %s 的片段，语言=%v", category.Code, languages)

	result, err := g.generateCategory(ctx, log, category, languages, overwrite)
	if result != nil {
		result.JobID = jobID
	}
	return result, err
}

// GenerateAll 依次为全部分类生成片段，分类之间等待 CategoryDelay。
// 某个分类无法开始（例如不在片段目录中）时记录在 FailedCategories，继续下一个分类。
func (g *Generator) GenerateAll(ctx context.Context, languages []string, overwrite bool) (*BulkResult, error) {
	languages, err := g.langs.Resolve(languages)
	if err != nil {
		return nil, err
	}
	categories, err := g.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	log := logger.With("job", jobID)
	log.Infof("[segment] 开始批量生成: %d 个分类, 请求间隔 %v, 分类间隔 %v",
		len(categories), g.opts.RequestDelay, g.opts.CategoryDelay)

	bulk := &BulkResult{
		JobID:            jobID,
		TotalCategories:  len(categories),
		Processed:        []string{},
		Failed:           []string{},
		Errors:           make(map[string]string),
		FailedCategories: make(map[string]string),
	}

	for i := range categories {
		category := &categories[i]
		if !g.catalog.Has(category.Code) {
			err := apperr.NotFound("片段目录中没有分类 %s", category.Code)
			log.Warnf("[segment] 跳过分类: %v", err)
			bulk.FailedCategories[category.Code] = err.Error()
			continue
		}

		log.Infof("[segment] 处理分类 %d/%d: %s", i+1, len(categories), category.Code)
		r, err := g.generateCategory(ctx, log, category, languages, overwrite)
		if r != nil {
			bulk.Generated += r.Generated
			bulk.Skipped += r.Skipped
			bulk.Failed = append(bulk.Failed, r.Failed...)
			for k, v := range r.Errors {
				bulk.Errors[k] = v
			}
			bulk.Processed = append(bulk.Processed, category.Code)
		}
		if err != nil {
			return bulk, err
		}

		if i < len(categories)-1 {
			if err := g.sleep(ctx, g.opts.CategoryDelay); err != nil {
				return bulk, err
			}
		}
	}

	log.Infof("[segment] 批量生成完成: 生成 %d, 跳过 %d, 失败 %d, 分类失败 %d",
		bulk.Generated, bulk.Skipped, len(bulk.Failed), len(bulk.FailedCategories))
	return bulk, nil
}

// generateCategory 顺序生成一个分类的片段。只有上下文取消会返回 error，此时结果包含已完成的部分。
func (g *Generator) generateCategory(ctx context.Context, log *zap.SugaredLogger, category *announce.Category,
	languages []string, overwrite bool) (*Result, error) {
	result := &Result{
		CategoryID:   category.ID,
		CategoryCode: category.Code,
		Failed:       []string{},
		Errors:       make(map[string]string),
	}

	for _, lang := range languages {
		for _, name := range g.catalog.Segments {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			key := FailureKey(category.ID, lang, name)
			done, err := g.generateOne(ctx, category, lang, name, overwrite)
			if err != nil {
				log.Warnf("[segment] 生成 %s 失败: %v", key, err)
				result.Failed = append(result.Failed, key)
				result.Errors[key] = err.Error()
				continue
			}
			if !done {
				result.Skipped++
				continue
			}

			result.Generated++
			log.Debugf("[segment] 已生成 %s", key)
			if err := g.sleep(ctx, g.opts.RequestDelay); err != nil {
				return result, err
			}
		}
	}

	log.Infof("[segment] 分类 %s 完成: 生成 %d, 跳过 %d, 失败 %d",
		category.Code, result.Generated, result.Skipped, len(result.Failed))
	return result, nil
}

// generateOne 生成单个片段。返回 false, nil 表示已存在而跳过。
func (g *Generator) generateOne(ctx context.Context, category *announce.Category, lang, name string, overwrite bool) (bool, error) {
	text, ok := g.catalog.Text(category.Code, lang, name)
	if !ok {
		return false, apperr.NotFound("片段目录中没有 %s/%s/%s", category.Code, lang, name)
	}

	existing, err := g.store.Get(ctx, category.ID, name, lang)
	if err != nil {
		return false, err
	}
	if existing != nil && !overwrite {
		return false, nil
	}

	res, err := g.engine.Synthesize(ctx, text, lang)
	if err != nil {
		return false, err
	}

	rel := FilePath(category.Code, lang, name)
	if err := g.files.Write(rel, res.Audio); err != nil {
		return false, err
	}

	seg := &Segment{
		CategoryID:   category.ID,
		Name:         name,
		Text:         text,
		LanguageCode: lang,
		FilePath:     rel,
		Duration:     res.Duration,
	}
	if err := g.store.Upsert(ctx, seg); err != nil {
		return false, err
	}
	return true, nil
}

func (g *Generator) lookup(ctx context.Context, categoryID int64) (*announce.Category, error) {
	category, err := g.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, apperr.NotFound("分类 %d 不存在", categoryID)
	}
	if !g.catalog.Has(category.Code) {
		return nil, apperr.NotFound("片段目录中没有分类 %s", category.Code)
	}
	return category, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
