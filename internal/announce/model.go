// Package announce 管理公告分类与模板，负责模板翻译、整句音频生成和公告填充。
package announce

import "time"

// Category 公告分类，例如 arriving、delay。
type Category struct {
	ID          int64     `json:"id"`
	Code        string    `json:"category_code"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Template 某分类在某语言下的公告模板，文本中可包含 {name} 占位符。
type Template struct {
	ID           int64     `json:"id"`
	CategoryID   int64     `json:"category_id"`
	LanguageCode string    `json:"language_code"`
	Text         string    `json:"template_text"`
	HasAudio     bool      `json:"has_audio"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TemplateAudio 模板整句音频，每个模板至多一条。
type TemplateAudio struct {
	ID           int64     `json:"id"`
	TemplateID   int64     `json:"template_id"`
	LanguageCode string    `json:"language_code"`
	FilePath     string    `json:"audio_file_path"`
	Duration     float64   `json:"audio_duration"`
	CreatedAt    time.Time `json:"created_at"`
}

// Announcement 已生成公告的审计记录，写入后不再修改。
type Announcement struct {
	ID           int64             `json:"id"`
	CategoryID   int64             `json:"category_id"`
	LanguageCode string            `json:"language_code"`
	Parameters   map[string]string `json:"parameters"`
	Text         string            `json:"generated_text"`
	AudioPath    string            `json:"audio_file_path,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
