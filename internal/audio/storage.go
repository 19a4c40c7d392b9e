package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rhinocodelab/wras/internal/apperr"
	"github.com/rhinocodelab/wras/internal/logger"
)

// Store 管理音频根目录下的文件。
// 对外的路径一律是相对根目录、以 / 分隔的路径，数据库中保存的也是这种形式。
type Store struct {
	baseDir      string
	publicPrefix string

	remove func(name string) error
}

// NewStore 创建音频文件存储，baseDir 不存在时自动创建。
func NewStore(baseDir, publicPrefix string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("创建音频目录失败: %w", err)
	}
	if publicPrefix == "" {
		publicPrefix = "/"
	}
	return &Store{
		baseDir:      baseDir,
		publicPrefix: publicPrefix,
		remove:       os.Remove,
	}, nil
}

// BaseDir 返回音频根目录。
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Abs 将相对路径解析为磁盘路径，拒绝逃出根目录的路径。
func (s *Store) Abs(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", apperr.Validation("非法的音频路径: %s", rel)
	}
	return filepath.Join(s.baseDir, clean), nil
}

// Write 原子写入音频文件：先写临时文件再重命名，读者不会看到写了一半的文件。
func (s *Store) Write(rel string, data []byte) error {
	dst, err := s.Abs(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录 %s 失败: %w", dir, err)
	}

	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("写入音频文件失败: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("重命名音频文件失败: %w", err)
	}

	logger.Debugf("[audio] 已写入 %s (%d bytes)", rel, len(data))
	return nil
}

// Exists 判断文件是否存在。
func (s *Store) Exists(rel string) bool {
	abs, err := s.Abs(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && !info.IsDir()
}

// PublicURL 将存储路径映射为对外 URL。
func (s *Store) PublicURL(rel string) string {
	return path.Join(s.publicPrefix, path.Clean("/"+rel))
}

// Remove 删除单个文件，文件不存在不算错误。
func (s *Store) Remove(rel string) error {
	abs, err := s.Abs(rel)
	if err != nil {
		return err
	}
	if err := s.remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("删除 %s 失败: %w", rel, err)
	}
	return nil
}

// PathFailure 一个删除失败的路径。
type PathFailure struct {
	Path string
	Err  error
}

// DeleteReport 是 DeleteTree 的结果。
type DeleteReport struct {
	// Removed 已删除的文件和目录数量。
	Removed int
	// Failed 删除失败的路径（相对根目录）。
	Failed []PathFailure
}

// OK 是否全部删除成功。
func (r DeleteReport) OK() bool {
	return len(r.Failed) == 0
}

// Err 将所有失败合并为一个 error，全部成功时返回 nil。
func (r DeleteReport) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.Path, f.Err))
	}
	return errors.Join(errs...)
}

// DeleteTree 删除 rel 指向的目录树，返回删除结果。
// 幂等：目录不存在时返回空报告。子项删除失败时不再尝试删除其上级目录。
// 不允许删除根目录本身。
func (s *Store) DeleteTree(rel string) (DeleteReport, error) {
	var report DeleteReport

	root, err := s.Abs(rel)
	if err != nil {
		return report, err
	}
	if filepath.Clean(root) == filepath.Clean(s.baseDir) {
		return report, apperr.Validation("不允许删除音频根目录")
	}
	if _, err := os.Lstat(root); errors.Is(err, fs.ErrNotExist) {
		return report, nil
	}

	var paths []string
	blocked := make(map[string]bool)
	fail := func(p string, err error) {
		r, _ := filepath.Rel(s.baseDir, p)
		report.Failed = append(report.Failed, PathFailure{Path: filepath.ToSlash(r), Err: err})
		for dir := p; len(dir) >= len(root); dir = filepath.Dir(dir) {
			blocked[dir] = true
			if dir == root {
				break
			}
		}
	}

	filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			fail(p, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		paths = append(paths, p)
		return nil
	})

	// 先序遍历的逆序保证子项先于父目录删除
	for i := len(paths) - 1; i >= 0; i-- {
		p := paths[i]
		if blocked[p] {
			continue
		}
		if err := s.remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fail(p, err)
			continue
		}
		report.Removed++
	}

	if !report.OK() {
		logger.Warnf("[audio] 删除 %s 时有 %d 个路径失败: %v", rel, len(report.Failed), report.Err())
	} else {
		logger.Infof("[audio] 已删除 %s (%d 项)", rel, report.Removed)
	}
	return report, nil
}
