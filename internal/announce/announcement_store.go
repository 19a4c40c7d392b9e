package announce

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rhinocodelab/wras/internal/database"
)

// AnnouncementStore 已生成公告的审计记录，只追加。
type AnnouncementStore struct {
	db *database.DB
}

// NewAnnouncementStore 创建公告记录存储。
func NewAnnouncementStore(db *database.DB) *AnnouncementStore {
	return &AnnouncementStore{db: db}
}

// Create 写入一条公告记录，回填 ID 和创建时间。
func (s *AnnouncementStore) Create(ctx context.Context, a *Announcement) error {
	params := a.Parameters
	if params == nil {
		params = map[string]string{}
	}
	// encoding/json 按键排序输出，同样的参数总是得到同样的 JSON
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("序列化公告参数失败: %w", err)
	}

	var audioPath sql.NullString
	if a.AudioPath != "" {
		audioPath = sql.NullString{String: a.AudioPath, Valid: true}
	}

	now := database.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO generated_announcements (category_id, language_code, parameters_json, generated_text, audio_file_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.CategoryID, a.LanguageCode, string(paramsJSON), a.Text, audioPath, now)
	if err != nil {
		return fmt.Errorf("保存公告记录失败: %w", err)
	}
	a.ID, _ = res.LastInsertId()
	a.CreatedAt = database.ParseTime(now)
	return nil
}

// ListByCategory 按时间倒序返回分类下最近的公告记录，limit <= 0 表示不限制。
func (s *AnnouncementStore) ListByCategory(ctx context.Context, categoryID int64, limit int) ([]Announcement, error) {
	query := `SELECT id, category_id, language_code, parameters_json, generated_text, audio_file_path, created_at
		FROM generated_announcements WHERE category_id = ? ORDER BY id DESC`
	args := []any{categoryID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询公告记录失败: %w", err)
	}
	defer rows.Close()

	var out []Announcement
	for rows.Next() {
		var a Announcement
		var paramsJSON, createdAt string
		var audioPath sql.NullString
		if err := rows.Scan(&a.ID, &a.CategoryID, &a.LanguageCode, &paramsJSON, &a.Text, &audioPath, &createdAt); err != nil {
			return nil, fmt.Errorf("读取公告记录失败: %w", err)
		}
		if err := json.Unmarshal([]byte(paramsJSON), &a.Parameters); err != nil {
			return nil, fmt.Errorf("解析公告参数失败: %w", err)
		}
		a.AudioPath = audioPath.String
		a.CreatedAt = database.ParseTime(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}
