package segment

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rhinocodelab/wras/internal/announce"
	"github.com/rhinocodelab/wras/internal/apperr"
	"github.com/rhinocodelab/wras/internal/audio"
	"github.com/rhinocodelab/wras/internal/database"
	"github.com/rhinocodelab/wras/internal/tts"
)

// fakeEngine 按文本注入失败，记录调用次数。
type fakeEngine struct {
	mu       sync.Mutex
	failText map[string]bool
	calls    int
}

func (e *fakeEngine) Synthesize(ctx context.Context, text, lang string) (*tts.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failText[text] {
		return nil, apperr.Provider("fake_tts", errors.New("quota exceeded"))
	}
	return &tts.Result{Audio: []byte(lang + ":" + text), Duration: 0.8}, nil
}

type testEnv struct {
	categories map[string]*announce.Category
	store      *Store
	files      *audio.Store
	catalog    *Catalog
	engine     *fakeEngine
	gen        *Generator
	sleeps     []time.Duration
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	db, err := database.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}

	categoryStore := announce.NewCategoryStore(db)
	if _, err := announce.Bootstrap(ctx, categoryStore, announce.NewTemplateStore(db), "en", announce.DefaultCategories); err != nil {
		t.Fatalf("Bootstrap 失败: %v", err)
	}
	list, _ := categoryStore.List(ctx)
	categories := make(map[string]*announce.Category)
	for i := range list {
		categories[list[i].Code] = &list[i]
	}

	files, err := audio.NewStore(filepath.Join(dir, "audio"), "/ai-audio-translations")
	if err != nil {
		t.Fatalf("创建音频存储失败: %v", err)
	}
	catalog, err := LoadCatalog("", allLangs)
	if err != nil {
		t.Fatalf("加载目录失败: %v", err)
	}

	env := &testEnv{
		categories: categories,
		store:      NewStore(db),
		files:      files,
		catalog:    catalog,
		engine:     &fakeEngine{failText: map[string]bool{}},
	}
	env.gen = NewGenerator(categoryStore, env.store, catalog, env.engine, files,
		announce.Languages{Base: "en", Supported: allLangs},
		Options{RequestDelay: 2 * time.Second, CategoryDelay: 5 * time.Second})
	env.gen.sleep = func(ctx context.Context, d time.Duration) error {
		env.sleeps = append(env.sleeps, d)
		return nil
	}
	return env
}

func (e *testEnv) countSleeps(d time.Duration) int {
	n := 0
	for _, s := range e.sleeps {
		if s == d {
			n++
		}
	}
	return n
}

func TestGenerateAllIsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	delay := env.categories["delay"]
	failing, _ := env.catalog.Text("delay", "hi", "suffix")
	env.engine.failText[failing] = true

	r, err := env.gen.GenerateAll(ctx, nil, false)
	if err != nil {
		t.Fatalf("GenerateAll 失败: %v", err)
	}

	want := []string{FailureKey(delay.ID, "hi", "suffix")}
	if !reflect.DeepEqual(r.Failed, want) {
		t.Fatalf("Failed = %v, want %v", r.Failed, want)
	}
	if want[0] != "2/hi/suffix" {
		t.Errorf("失败键 = %s", want[0])
	}
	if r.Generated != 63 {
		t.Errorf("Generated = %d, want 63", r.Generated)
	}
	if r.TotalCategories != 4 || len(r.Processed) != 4 || len(r.FailedCategories) != 0 {
		t.Errorf("结果 = %+v", r)
	}
	if r.JobID == "" {
		t.Error("应生成任务 ID")
	}

	// 每个 (分类, 语言) 组合除 delay/hi 外都生成了全部片段
	for code, c := range env.categories {
		for _, lang := range allLangs {
			segs, _ := env.store.ListByLanguage(ctx, c.ID, lang)
			wantN := 4
			if code == "delay" && lang == "hi" {
				wantN = 3
			}
			if len(segs) != wantN {
				t.Errorf("%s/%s 片段数 = %d, want %d", code, lang, len(segs), wantN)
			}
		}
	}

	// 每次成功后等待请求间隔，分类之间等待分类间隔（最后一个分类后不等待）
	if n := env.countSleeps(2 * time.Second); n != 63 {
		t.Errorf("请求间隔次数 = %d, want 63", n)
	}
	if n := env.countSleeps(5 * time.Second); n != 3 {
		t.Errorf("分类间隔次数 = %d, want 3", n)
	}
}

func TestGenerateForCategorySkipsExisting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.categories["arriving"].ID

	r, err := env.gen.GenerateForCategory(ctx, id, []string{"en", "hi"}, false)
	if err != nil {
		t.Fatalf("GenerateForCategory 失败: %v", err)
	}
	if r.Generated != 8 || len(r.Failed) != 0 {
		t.Fatalf("第一次 = %+v", r)
	}

	seg, _ := env.store.Get(ctx, id, "prefix", "hi")
	if seg == nil || seg.FilePath != "segments/arriving/hi/prefix.mp3" || seg.Duration != 0.8 {
		t.Fatalf("片段记录 = %+v", seg)
	}
	if seg.Text != "कृपया ध्यान दें! ट्रेन संख्या" {
		t.Errorf("片段文本 = %q", seg.Text)
	}
	if !env.files.Exists(seg.FilePath) {
		t.Error("片段文件应已写入")
	}

	calls := env.engine.calls
	r, _ = env.gen.GenerateForCategory(ctx, id, []string{"en", "hi"}, false)
	if r.Generated != 0 || r.Skipped != 8 || env.engine.calls != calls {
		t.Errorf("第二次应全部跳过: %+v, calls=%d", r, env.engine.calls-calls)
	}

	// overwrite 重新生成且不产生重复行
	r, _ = env.gen.GenerateForCategory(ctx, id, []string{"hi"}, true)
	if r.Generated != 4 {
		t.Errorf("overwrite Generated = %d, want 4", r.Generated)
	}
	all, _ := env.store.ListByCategory(ctx, id)
	if len(all) != 8 {
		t.Errorf("片段行数 = %d, want 8", len(all))
	}
}

func TestGenerateForCategoryRefreshesText(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.categories["delay"].ID

	stale := &Segment{
		CategoryID:   id,
		Name:         "from",
		Text:         "stale text",
		LanguageCode: "mr",
		FilePath:     FilePath("delay", "mr", "from"),
		Duration:     1.5,
	}
	if err := env.store.Upsert(ctx, stale); err != nil {
		t.Fatalf("写入旧片段失败: %v", err)
	}

	// 不覆盖时保留已有行
	if _, err := env.gen.GenerateForCategory(ctx, id, []string{"mr"}, false); err != nil {
		t.Fatalf("GenerateForCategory 失败: %v", err)
	}
	seg, _ := env.store.Get(ctx, id, "from", "mr")
	if seg == nil || seg.Text != "stale text" {
		t.Fatalf("overwrite=false 不应改动已有行: %+v", seg)
	}

	if _, err := env.gen.GenerateForCategory(ctx, id, []string{"mr"}, true); err != nil {
		t.Fatalf("GenerateForCategory 失败: %v", err)
	}
	want, ok := env.catalog.Text("delay", "mr", "from")
	if !ok {
		t.Fatal("目录中缺少 delay/mr/from")
	}
	seg, _ = env.store.Get(ctx, id, "from", "mr")
	if seg == nil || seg.Text != want {
		t.Errorf("片段文本应更新为目录文本 %q，得到 %+v", want, seg)
	}
	if seg != nil && seg.Duration != 0.8 {
		t.Errorf("Duration = %v, want 0.8", seg.Duration)
	}
}

func TestGenerateForCategoryDeduplicatesLanguages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	r, err := env.gen.GenerateForCategory(ctx, env.categories["arriving"].ID, []string{"hi", "hi"}, true)
	if err != nil {
		t.Fatalf("GenerateForCategory 失败: %v", err)
	}
	if r.Generated != 4 || env.engine.calls != 4 {
		t.Errorf("Generated = %d, calls = %d, want 4/4", r.Generated, env.engine.calls)
	}
	if n := env.countSleeps(2 * time.Second); n != 4 {
		t.Errorf("请求间隔次数 = %d, want 4", n)
	}
}

func TestGenerateForCategoryErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.gen.GenerateForCategory(ctx, 9999, nil, false); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("未知分类应返回 ErrNotFound，得到 %v", err)
	}
	if _, err := env.gen.GenerateForCategory(ctx, env.categories["arriving"].ID, []string{"ta"}, false); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("不支持的语言应返回 ErrValidation，得到 %v", err)
	}
}

func TestGenerateStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	env.gen.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	r, err := env.gen.GenerateForCategory(ctx, env.categories["arriving"].ID, nil, false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled，得到 %v", err)
	}
	if r == nil || r.Generated != 1 {
		t.Errorf("取消前已完成的片段应保留在结果中: %+v", r)
	}
}

func TestDeleteForCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	arriving := env.categories["arriving"]
	delay := env.categories["delay"]

	env.gen.GenerateForCategory(ctx, arriving.ID, []string{"en"}, false)
	env.gen.GenerateForCategory(ctx, delay.ID, []string{"en"}, false)

	r, err := env.gen.DeleteForCategory(ctx, arriving.ID)
	if err != nil {
		t.Fatalf("DeleteForCategory 失败: %v", err)
	}
	if r.RowsDeleted != 4 || len(r.FilesFailed) != 0 {
		t.Errorf("结果 = %+v", r)
	}
	if env.files.Exists("segments/arriving/en/prefix.mp3") {
		t.Error("文件应已删除")
	}
	if !env.files.Exists("segments/delay/en/prefix.mp3") {
		t.Error("其他分类的文件不应删除")
	}

	// 重复删除是幂等的
	r, err = env.gen.DeleteForCategory(ctx, arriving.ID)
	if err != nil || r.RowsDeleted != 0 || len(r.FilesFailed) != 0 {
		t.Errorf("重复删除 = %+v, %v", r, err)
	}

	if _, err := env.gen.DeleteForCategory(ctx, 9999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("未知分类应返回 ErrNotFound，得到 %v", err)
	}
}

func TestClearAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.gen.GenerateAll(ctx, []string{"en"}, false)

	r, err := env.gen.ClearAll(ctx)
	if err != nil {
		t.Fatalf("ClearAll 失败: %v", err)
	}
	if r.RowsDeleted != 16 {
		t.Errorf("RowsDeleted = %d, want 16", r.RowsDeleted)
	}
	if all, _ := env.store.List(ctx); len(all) != 0 {
		t.Errorf("剩余片段 %d 条", len(all))
	}
	if env.files.Exists("segments/arriving/en/prefix.mp3") {
		t.Error("文件应已删除")
	}
}

func TestAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.categories["cancelled"]

	env.gen.GenerateForCategory(ctx, c.ID, []string{"en", "gu"}, false)
	// 文件丢失的记录不算可用
	env.files.Remove(FilePath("cancelled", "gu", "to"))

	a, err := env.gen.Availability(ctx, c.ID)
	if err != nil {
		t.Fatalf("Availability 失败: %v", err)
	}
	if len(a.Languages) != 4 {
		t.Fatalf("语言数 = %d", len(a.Languages))
	}

	tests := []struct {
		lang      string
		available int
	}{
		{"en", 4},
		{"gu", 3},
		{"hi", 0},
		{"mr", 0},
	}
	for _, tt := range tests {
		la := a.Languages[tt.lang]
		if la.Total != 4 || la.Available != tt.available {
			t.Errorf("%s: total=%d available=%d, want 4/%d", tt.lang, la.Total, la.Available, tt.available)
		}
	}
	if a.Languages["gu"].Segments["to"] || !a.Languages["gu"].Segments["from"] {
		t.Errorf("gu 片段状态 = %v", a.Languages["gu"].Segments)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("零延迟不应报错: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("期望 context.Canceled，得到 %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("取消后应立即返回")
	}
}
