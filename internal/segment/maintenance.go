package segment

import (
	"context"
	"path"

	"github.com/rhinocodelab/wras/internal/apperr"
	"github.com/rhinocodelab/wras/internal/audio"
	"github.com/rhinocodelab/wras/internal/logger"
)

// DeleteResult 删除片段的结果。数据库删除成功后文件删除失败不会回滚，失败项记录在 Files 中。
type DeleteResult struct {
	RowsDeleted int64              `json:"rows_deleted"`
	Files       audio.DeleteReport `json:"-"`
	FilesFailed []string           `json:"files_failed,omitempty"`
}

// DeleteForCategory 删除分类下的全部片段：先删数据库记录，再尽力删除音频目录。
func (g *Generator) DeleteForCategory(ctx context.Context, categoryID int64) (*DeleteResult, error) {
	category, err := g.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, apperr.NotFound("分类 %d 不存在", categoryID)
	}

	rows, err := g.store.DeleteByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	logger.Infof("[segment] 已删除分类 %s 的 %d 条片段记录", category.Code, rows)

	return g.removeFiles(rows, path.Join("segments", category.Code)), nil
}

// ClearAll 删除全部片段记录和音频文件。
func (g *Generator) ClearAll(ctx context.Context) (*DeleteResult, error) {
	rows, err := g.store.DeleteAll(ctx)
	if err != nil {
		return nil, err
	}
	logger.Infof("[segment] 已清空 %d 条片段记录", rows)

	return g.removeFiles(rows, "segments"), nil
}

func (g *Generator) removeFiles(rows int64, rel string) *DeleteResult {
	result := &DeleteResult{RowsDeleted: rows}
	report, err := g.files.DeleteTree(rel)
	if err != nil {
		logger.Errorf("[segment] 删除音频目录 %s 失败: %v", rel, err)
		result.FilesFailed = append(result.FilesFailed, rel)
		return result
	}
	result.Files = report
	for _, f := range report.Failed {
		result.FilesFailed = append(result.FilesFailed, f.Path)
	}
	return result
}

// LanguageAvailability 某语言下片段的生成情况。
type LanguageAvailability struct {
	Total     int             `json:"total_segments"`
	Available int             `json:"available_segments"`
	Segments  map[string]bool `json:"segments"`
}

// Availability 分类下各语言片段的生成情况。
type Availability struct {
	CategoryID   int64                            `json:"category_id"`
	CategoryCode string                           `json:"category_code"`
	Languages    map[string]*LanguageAvailability `json:"languages"`
}

// Availability 统计分类在每种支持语言下已生成的片段。记录存在且文件存在才算可用。
func (g *Generator) Availability(ctx context.Context, categoryID int64) (*Availability, error) {
	category, err := g.lookup(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	segments, err := g.store.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(segments))
	for _, s := range segments {
		if g.files.Exists(s.FilePath) {
			present[s.LanguageCode+"/"+s.Name] = true
		}
	}

	out := &Availability{
		CategoryID:   category.ID,
		CategoryCode: category.Code,
		Languages:    make(map[string]*LanguageAvailability, len(g.langs.Supported)),
	}
	for _, lang := range g.langs.Supported {
		la := &LanguageAvailability{
			Total:    len(g.catalog.Segments),
			Segments: make(map[string]bool, len(g.catalog.Segments)),
		}
		for _, name := range g.catalog.Segments {
			ok := present[lang+"/"+name]
			la.Segments[name] = ok
			if ok {
				la.Available++
			}
		}
		out.Languages[lang] = la
	}
	return out, nil
}
