package announce

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rhinocodelab/wras/internal/apperr"
	"github.com/rhinocodelab/wras/internal/audio"
	"github.com/rhinocodelab/wras/internal/database"
	"github.com/rhinocodelab/wras/internal/tts"
)

var testLangs = Languages{Base: "en", Supported: []string{"en", "hi", "mr", "gu"}}

type testEnv struct {
	db            *database.DB
	categories    *CategoryStore
	templates     *TemplateStore
	audioFiles    *AudioFileStore
	announcements *AnnouncementStore
	files         *audio.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	files, err := audio.NewStore(filepath.Join(dir, "audio"), "/ai-audio-translations")
	if err != nil {
		t.Fatalf("创建音频存储失败: %v", err)
	}
	return &testEnv{
		db:            db,
		categories:    NewCategoryStore(db),
		templates:     NewTemplateStore(db),
		audioFiles:    NewAudioFileStore(db),
		announcements: NewAnnouncementStore(db),
		files:         files,
	}
}

// bootstrap 创建默认分类和英文模板，返回 code -> Category。
func (e *testEnv) bootstrap(t *testing.T) map[string]*Category {
	t.Helper()
	ctx := context.Background()
	if _, err := Bootstrap(ctx, e.categories, e.templates, "en", DefaultCategories); err != nil {
		t.Fatalf("Bootstrap 失败: %v", err)
	}
	out := make(map[string]*Category)
	for _, d := range DefaultCategories {
		c, err := e.categories.GetByCode(ctx, d.Code)
		if err != nil || c == nil {
			t.Fatalf("查询分类 %s 失败: %v", d.Code, err)
		}
		out[d.Code] = c
	}
	return out
}

// fakeProvider 在文本前加 [lang] 前缀，可按目标语言注入错误。
type fakeProvider struct {
	fail      map[string]error
	transform func(text, target string) string
	calls     int
}

func (p *fakeProvider) Translate(ctx context.Context, text, source, target string) (string, error) {
	p.calls++
	if err := p.fail[target]; err != nil {
		return "", err
	}
	if p.transform != nil {
		return p.transform(text, target), nil
	}
	return "[" + target + "] " + text, nil
}

func (p *fakeProvider) DetectLanguage(ctx context.Context, text string) (string, error) {
	return "en", nil
}

// fakeEngine 返回固定的音频数据，可按语言注入错误。
type fakeEngine struct {
	fail  map[string]error
	calls int
}

func (e *fakeEngine) Synthesize(ctx context.Context, text, lang string) (*tts.Result, error) {
	e.calls++
	if err := e.fail[lang]; err != nil {
		return nil, err
	}
	return &tts.Result{Audio: []byte("mp3:" + lang + ":" + text), Duration: 1.25}, nil
}

var errProviderDown = apperr.Provider("fake", errors.New("service unavailable"))
