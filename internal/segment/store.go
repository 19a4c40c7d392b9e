package segment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rhinocodelab/wras/internal/database"
)

// Segment 一个已生成的音频片段。
type Segment struct {
	ID           int64     `json:"id"`
	CategoryID   int64     `json:"category_id"`
	Name         string    `json:"segment_name"`
	Text         string    `json:"segment_text"`
	LanguageCode string    `json:"language_code"`
	FilePath     string    `json:"audio_file_path"`
	Duration     float64   `json:"audio_duration"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const segmentSelect = `SELECT id, category_id, segment_name, segment_text, language_code, audio_file_path, audio_duration, created_at, updated_at
	FROM announcement_audio_segments`

// Store 音频片段存储（SQLite）。
type Store struct {
	db *database.DB
}

// NewStore 创建片段存储。
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Get 查询 (分类, 片段名, 语言) 对应的片段，不存在时返回 nil, nil。
func (s *Store) Get(ctx context.Context, categoryID int64, name, lang string) (*Segment, error) {
	row := s.db.QueryRowContext(ctx, segmentSelect+` WHERE category_id = ? AND segment_name = ? AND language_code = ?`,
		categoryID, name, lang)
	seg, err := scanSegment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询片段失败: %w", err)
	}
	return seg, nil
}

// Upsert 写入片段，已存在时更新文本、路径和时长。回填 ID 与时间。
func (s *Store) Upsert(ctx context.Context, seg *Segment) error {
	now := database.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO announcement_audio_segments
			(category_id, segment_name, segment_text, language_code, audio_file_path, audio_duration, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(category_id, segment_name, language_code) DO UPDATE SET
			segment_text = excluded.segment_text,
			audio_file_path = excluded.audio_file_path,
			audio_duration = excluded.audio_duration,
			updated_at = excluded.updated_at`,
		seg.CategoryID, seg.Name, seg.Text, seg.LanguageCode, seg.FilePath, seg.Duration, now, now)
	if err != nil {
		return fmt.Errorf("保存片段 %s/%s 失败: %w", seg.LanguageCode, seg.Name, err)
	}

	saved, err := s.Get(ctx, seg.CategoryID, seg.Name, seg.LanguageCode)
	if err != nil {
		return err
	}
	*seg = *saved
	return nil
}

// ListByCategory 返回分类下全部片段。
func (s *Store) ListByCategory(ctx context.Context, categoryID int64) ([]Segment, error) {
	return s.list(ctx, segmentSelect+` WHERE category_id = ? ORDER BY language_code, segment_name`, categoryID)
}

// ListByLanguage 返回分类下某语言的片段。
func (s *Store) ListByLanguage(ctx context.Context, categoryID int64, lang string) ([]Segment, error) {
	return s.list(ctx, segmentSelect+` WHERE category_id = ? AND language_code = ? ORDER BY segment_name`, categoryID, lang)
}

// List 返回全部片段，按分类、语言、片段名排序。
func (s *Store) List(ctx context.Context) ([]Segment, error) {
	return s.list(ctx, segmentSelect+` ORDER BY category_id, language_code, segment_name`)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Segment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询片段失败: %w", err)
	}
	defer rows.Close()

	var out []Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("读取片段失败: %w", err)
		}
		out = append(out, *seg)
	}
	return out, rows.Err()
}

// DeleteByCategory 删除分类下全部片段记录，返回删除行数。
func (s *Store) DeleteByCategory(ctx context.Context, categoryID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM announcement_audio_segments WHERE category_id = ?`, categoryID)
	if err != nil {
		return 0, fmt.Errorf("删除片段失败: %w", err)
	}
	return res.RowsAffected()
}

// DeleteAll 删除全部片段记录，返回删除行数。
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM announcement_audio_segments`)
	if err != nil {
		return 0, fmt.Errorf("清空片段失败: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSegment(row scanner) (*Segment, error) {
	var seg Segment
	var createdAt, updatedAt string
	err := row.Scan(&seg.ID, &seg.CategoryID, &seg.Name, &seg.Text, &seg.LanguageCode,
		&seg.FilePath, &seg.Duration, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	seg.CreatedAt = database.ParseTime(createdAt)
	seg.UpdatedAt = database.ParseTime(updatedAt)
	return &seg, nil
}
