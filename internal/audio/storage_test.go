package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rhinocodelab/wras/internal/apperr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "audio"), "/ai-audio-translations")
	if err != nil {
		t.Fatalf("NewStore 失败: %v", err)
	}
	return s
}

func TestWriteAndExists(t *testing.T) {
	s := newTestStore(t)
	rel := "segments/arriving/hi/prefix.mp3"

	if s.Exists(rel) {
		t.Fatal("写入前不应存在")
	}
	if err := s.Write(rel, []byte("mp3")); err != nil {
		t.Fatalf("Write 失败: %v", err)
	}
	if !s.Exists(rel) {
		t.Fatal("写入后应存在")
	}

	// 覆盖写入
	if err := s.Write(rel, []byte("mp3-v2")); err != nil {
		t.Fatalf("覆盖写入失败: %v", err)
	}
	abs, _ := s.Abs(rel)
	data, _ := os.ReadFile(abs)
	if string(data) != "mp3-v2" {
		t.Errorf("内容 = %q", data)
	}

	// 不留临时文件
	entries, _ := os.ReadDir(filepath.Dir(abs))
	if len(entries) != 1 {
		t.Errorf("目录中应只有 1 个文件，实际 %d", len(entries))
	}
}

func TestAbsRejectsEscape(t *testing.T) {
	s := newTestStore(t)
	for _, rel := range []string{"../x.mp3", "a/../../x.mp3", "/etc/passwd"} {
		if _, err := s.Abs(rel); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Abs(%q) 期望 ErrValidation，得到 %v", rel, err)
		}
	}
	if err := s.Write("../evil.mp3", nil); err == nil {
		t.Error("Write 应拒绝逃出根目录的路径")
	}
}

func TestPublicURL(t *testing.T) {
	s := newTestStore(t)
	tests := []struct {
		rel  string
		want string
	}{
		{"segments/arriving/en/prefix.mp3", "/ai-audio-translations/segments/arriving/en/prefix.mp3"},
		{"/announcements/delay/hi/delay_hi.mp3", "/ai-audio-translations/announcements/delay/hi/delay_hi.mp3"},
	}
	for _, tt := range tests {
		if got := s.PublicURL(tt.rel); got != tt.want {
			t.Errorf("PublicURL(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestRemoveIdempotent(t *testing.T) {
	s := newTestStore(t)
	s.Write("a/b.mp3", []byte("x"))
	if err := s.Remove("a/b.mp3"); err != nil {
		t.Fatalf("Remove 失败: %v", err)
	}
	if err := s.Remove("a/b.mp3"); err != nil {
		t.Fatalf("重复 Remove 不应报错: %v", err)
	}
}

func TestDeleteTree(t *testing.T) {
	s := newTestStore(t)
	for _, rel := range []string{
		"segments/arriving/en/prefix.mp3",
		"segments/arriving/en/suffix.mp3",
		"segments/arriving/hi/prefix.mp3",
		"segments/delay/en/prefix.mp3",
	} {
		if err := s.Write(rel, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	report, err := s.DeleteTree("segments/arriving")
	if err != nil {
		t.Fatalf("DeleteTree 失败: %v", err)
	}
	if !report.OK() {
		t.Fatalf("不应有失败: %v", report.Err())
	}
	// 3 个文件 + en、hi、arriving 3 个目录
	if report.Removed != 6 {
		t.Errorf("Removed = %d, want 6", report.Removed)
	}
	if s.Exists("segments/arriving/en/prefix.mp3") {
		t.Error("文件应已删除")
	}
	if !s.Exists("segments/delay/en/prefix.mp3") {
		t.Error("其他分类不应受影响")
	}

	// 幂等
	report, err = s.DeleteTree("segments/arriving")
	if err != nil || report.Removed != 0 || !report.OK() {
		t.Errorf("重复删除: report=%+v err=%v", report, err)
	}
}

func TestDeleteTreeReportsFailures(t *testing.T) {
	s := newTestStore(t)
	s.Write("segments/cancelled/en/prefix.mp3", []byte("x"))
	s.Write("segments/cancelled/en/from.mp3", []byte("x"))
	s.Write("segments/cancelled/hi/prefix.mp3", []byte("x"))

	locked, _ := s.Abs("segments/cancelled/en/from.mp3")
	s.remove = func(name string) error {
		if name == locked {
			return os.ErrPermission
		}
		return os.Remove(name)
	}

	report, err := s.DeleteTree("segments/cancelled")
	if err != nil {
		t.Fatalf("DeleteTree 失败: %v", err)
	}
	if len(report.Failed) != 1 {
		t.Fatalf("Failed = %+v, want 1 项", report.Failed)
	}
	if report.Failed[0].Path != "segments/cancelled/en/from.mp3" {
		t.Errorf("失败路径 = %s", report.Failed[0].Path)
	}
	if !errors.Is(report.Err(), os.ErrPermission) {
		t.Errorf("Err() 应包含原始错误: %v", report.Err())
	}
	// 删除了 en/prefix.mp3、hi/prefix.mp3 和 hi 目录；en 与 cancelled 因子项失败而保留
	if report.Removed != 3 {
		t.Errorf("Removed = %d, want 3", report.Removed)
	}
	if !s.Exists("segments/cancelled/en/from.mp3") {
		t.Error("失败的文件应保留")
	}
}

func TestDeleteTreeRejectsBaseDir(t *testing.T) {
	s := newTestStore(t)
	for _, rel := range []string{"", ".", "a/.."} {
		if _, err := s.DeleteTree(rel); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("DeleteTree(%q) 期望 ErrValidation，得到 %v", rel, err)
		}
	}
}
