package announce

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rhinocodelab/wras/internal/apperr"
	"github.com/rhinocodelab/wras/internal/database"
)

const templateSelect = `SELECT t.id, t.category_id, t.language_code, t.template_text, t.created_at, t.updated_at,
	EXISTS (SELECT 1 FROM announcement_audio_files f WHERE f.template_id = t.id)
	FROM announcement_templates t`

// TemplateStore 公告模板存储（SQLite）。
type TemplateStore struct {
	db *database.DB
}

// NewTemplateStore 创建模板存储。
func NewTemplateStore(db *database.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// Get 查询 (分类, 语言) 对应的模板，不存在时返回 nil, nil。
func (s *TemplateStore) Get(ctx context.Context, categoryID int64, lang string) (*Template, error) {
	row := s.db.QueryRowContext(ctx, templateSelect+` WHERE t.category_id = ? AND t.language_code = ?`, categoryID, lang)
	return scanTemplate(row)
}

// GetByID 按 ID 查询模板，不存在时返回 nil, nil。
func (s *TemplateStore) GetByID(ctx context.Context, id int64) (*Template, error) {
	row := s.db.QueryRowContext(ctx, templateSelect+` WHERE t.id = ?`, id)
	return scanTemplate(row)
}

// ListByCategory 返回分类下的全部模板，按语言代码排序。
func (s *TemplateStore) ListByCategory(ctx context.Context, categoryID int64) ([]Template, error) {
	return s.list(ctx, templateSelect+` WHERE t.category_id = ? ORDER BY t.language_code`, categoryID)
}

// List 返回全部模板，按分类和语言排序。
func (s *TemplateStore) List(ctx context.Context) ([]Template, error) {
	return s.list(ctx, templateSelect+` ORDER BY t.category_id, t.language_code`)
}

func (s *TemplateStore) list(ctx context.Context, query string, args ...any) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询模板失败: %w", err)
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Upsert 写入 (分类, 语言) 的模板，已存在时更新文本。
func (s *TemplateStore) Upsert(ctx context.Context, categoryID int64, lang, text string) (*Template, error) {
	now := database.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO announcement_templates (category_id, language_code, template_text, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(category_id, language_code) DO UPDATE SET template_text = excluded.template_text, updated_at = excluded.updated_at`,
		categoryID, lang, text, now, now)
	if err != nil {
		return nil, fmt.Errorf("保存模板失败: %w", err)
	}
	return s.Get(ctx, categoryID, lang)
}

// UpdateText 修改模板文本。文本为空返回 ErrValidation，模板不存在返回 ErrNotFound。
func (s *TemplateStore) UpdateText(ctx context.Context, id int64, text string) (*Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("模板文本不能为空")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE announcement_templates SET template_text = ?, updated_at = ? WHERE id = ?`,
		text, database.Now(), id)
	if err != nil {
		return nil, fmt.Errorf("更新模板失败: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("模板 %d 不存在", id)
	}
	return s.GetByID(ctx, id)
}

func scanTemplate(row scanner) (*Template, error) {
	var t Template
	var createdAt, updatedAt string
	if err := row.Scan(&t.ID, &t.CategoryID, &t.LanguageCode, &t.Text, &createdAt, &updatedAt, &t.HasAudio); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询模板失败: %w", err)
	}
	t.CreatedAt = database.ParseTime(createdAt)
	t.UpdatedAt = database.ParseTime(updatedAt)
	return &t, nil
}
