package announce

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rhinocodelab/wras/internal/database"
)

// AudioFileStore 模板整句音频存储（SQLite）。
type AudioFileStore struct {
	db *database.DB
}

// NewAudioFileStore 创建整句音频存储。
func NewAudioFileStore(db *database.DB) *AudioFileStore {
	return &AudioFileStore{db: db}
}

// GetByTemplate 查询模板对应的音频，不存在时返回 nil, nil。
func (s *AudioFileStore) GetByTemplate(ctx context.Context, templateID int64) (*TemplateAudio, error) {
	var a TemplateAudio
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, template_id, language_code, audio_file_path, audio_duration, created_at
		 FROM announcement_audio_files WHERE template_id = ?`, templateID,
	).Scan(&a.ID, &a.TemplateID, &a.LanguageCode, &a.FilePath, &a.Duration, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询模板音频失败: %w", err)
	}
	a.CreatedAt = database.ParseTime(createdAt)
	return &a, nil
}

// Upsert 写入模板音频记录，每个模板只保留一条。
func (s *AudioFileStore) Upsert(ctx context.Context, templateID int64, lang, path string, duration float64) (*TemplateAudio, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO announcement_audio_files (template_id, language_code, audio_file_path, audio_duration, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(template_id) DO UPDATE SET
			language_code = excluded.language_code,
			audio_file_path = excluded.audio_file_path,
			audio_duration = excluded.audio_duration`,
		templateID, lang, path, duration, database.Now())
	if err != nil {
		return nil, fmt.Errorf("保存模板音频失败: %w", err)
	}
	return s.GetByTemplate(ctx, templateID)
}
