package announce

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rhinocodelab/wras/internal/database"
)

const categoryColumns = `id, category_code, description, created_at, updated_at`

// CategoryStore 公告分类存储（SQLite）。
type CategoryStore struct {
	db *database.DB
}

// NewCategoryStore 创建分类存储。
func NewCategoryStore(db *database.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// Create 新建分类。
func (s *CategoryStore) Create(ctx context.Context, code, description string) (*Category, error) {
	now := database.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO announcement_categories (category_code, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		code, description, now, now)
	if err != nil {
		return nil, fmt.Errorf("创建分类 %s 失败: %w", code, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("获取分类 ID 失败: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID 按 ID 查询分类，不存在时返回 nil, nil。
func (s *CategoryStore) GetByID(ctx context.Context, id int64) (*Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM announcement_categories WHERE id = ?`, id)
	return scanCategory(row)
}

// GetByCode 按分类代码查询，不存在时返回 nil, nil。
func (s *CategoryStore) GetByCode(ctx context.Context, code string) (*Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM announcement_categories WHERE category_code = ?`, code)
	return scanCategory(row)
}

// List 按 ID 升序返回全部分类。
func (s *CategoryStore) List(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM announcement_categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("查询分类失败: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Delete 删除分类，模板、音频片段和公告记录随之级联删除。
func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM announcement_categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("删除分类失败: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(row scanner) (*Category, error) {
	var c Category
	var createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.Code, &c.Description, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询分类失败: %w", err)
	}
	c.CreatedAt = database.ParseTime(createdAt)
	c.UpdatedAt = database.ParseTime(updatedAt)
	return &c, nil
}
