package announce

import (
	"context"

	"github.com/rhinocodelab/wras/internal/apperr"
	"github.com/rhinocodelab/wras/internal/audio"
	"github.com/rhinocodelab/wras/internal/logger"
	"github.com/rhinocodelab/wras/internal/placeholder"
)

// Generated 填充后的公告。
type Generated struct {
	ID       int64  `json:"id"`
	Text     string `json:"announcement_text"`
	AudioURL string `json:"audio_url,omitempty"`
}

// Assembler 用运行时参数填充模板，生成最终公告。
type Assembler struct {
	categories    *CategoryStore
	templates     *TemplateStore
	audioFiles    *AudioFileStore
	announcements *AnnouncementStore
	files         *audio.Store
	langs         Languages
}

// NewAssembler 创建公告填充器。
func NewAssembler(categories *CategoryStore, templates *TemplateStore, audioFiles *AudioFileStore,
	announcements *AnnouncementStore, files *audio.Store, langs Languages) *Assembler {
	return &Assembler{
		categories:    categories,
		templates:     templates,
		audioFiles:    audioFiles,
		announcements: announcements,
		files:         files,
		langs:         langs,
	}
}

// Generate 填充 (分类代码, 语言) 的模板。
// 不支持的语言返回 ErrValidation；填充后仍有占位符时返回 *apperr.MissingParametersError，
// 不返回任何部分结果，也不写审计记录。
func (a *Assembler) Generate(ctx context.Context, categoryCode, lang string, params map[string]string) (*Generated, error) {
	if err := a.langs.Validate([]string{lang}); err != nil {
		return nil, err
	}

	category, err := a.categories.GetByCode(ctx, categoryCode)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, apperr.NotFound("分类 %s 不存在", categoryCode)
	}

	tpl, err := a.templates.Get(ctx, category.ID, lang)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, apperr.NotFound("分类 %s 没有 %s 模板", categoryCode, lang)
	}

	text := placeholder.Fill(tpl.Text, params)
	if remaining := placeholder.Extract(text); len(remaining) > 0 {
		return nil, &apperr.MissingParametersError{Placeholders: placeholder.Unique(remaining)}
	}

	var audioPath string
	if tpl.HasAudio {
		af, err := a.audioFiles.GetByTemplate(ctx, tpl.ID)
		if err != nil {
			return nil, err
		}
		if af != nil {
			audioPath = af.FilePath
		}
	}

	record := &Announcement{
		CategoryID:   category.ID,
		LanguageCode: lang,
		Parameters:   params,
		Text:         text,
		AudioPath:    audioPath,
	}
	if err := a.announcements.Create(ctx, record); err != nil {
		return nil, err
	}

	out := &Generated{ID: record.ID, Text: text}
	if audioPath != "" {
		out.AudioURL = a.files.PublicURL(audioPath)
	}
	logger.Infof("[announce] 已生成公告 #%d (%s/%s)", record.ID, categoryCode, lang)
	return out, nil
}
