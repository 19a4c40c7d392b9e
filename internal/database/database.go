package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rhinocodelab/wras/internal/logger"
	_ "modernc.org/sqlite"
)

// TimeFormat 是所有时间列的存储格式。
const TimeFormat = time.RFC3339Nano

// DB 是统一的 SQLite 数据库连接。
// 分类、模板、音频片段与公告记录共用同一个数据库文件。
type DB struct {
	*sql.DB
	path string
}

// Open 打开或创建数据库。
// dbPath: 数据库文件路径，如果为空则使用 ./data/wras.db
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		dbPath = filepath.Join(".", "data", "wras.db")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	// pragma 放在 DSN 中，保证连接池里的每个连接都启用外键和 WAL
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	logger.Infof("[database] 数据库已打开: %s", dbPath)

	return &DB{DB: db, path: dbPath}, nil
}

// Path 返回数据库文件路径。
func (db *DB) Path() string {
	return db.path
}

// Migrate 运行数据库迁移。
func (db *DB) Migrate() error {
	migrations := []string{
		// 公告分类
		`CREATE TABLE IF NOT EXISTS announcement_categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category_code TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		// 公告模板：每个 (分类, 语言) 至多一条
		`CREATE TABLE IF NOT EXISTS announcement_templates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category_id INTEGER NOT NULL REFERENCES announcement_categories(id) ON DELETE CASCADE,
			language_code TEXT NOT NULL,
			template_text TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(category_id, language_code)
		)`,
		// 整句模板音频：每个模板至多一条
		`CREATE TABLE IF NOT EXISTS announcement_audio_files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			template_id INTEGER NOT NULL UNIQUE REFERENCES announcement_templates(id) ON DELETE CASCADE,
			language_code TEXT NOT NULL,
			audio_file_path TEXT NOT NULL,
			audio_duration REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		// 音频片段：每个 (分类, 片段名, 语言) 至多一条
		`CREATE TABLE IF NOT EXISTS announcement_audio_segments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category_id INTEGER NOT NULL REFERENCES announcement_categories(id) ON DELETE CASCADE,
			segment_name TEXT NOT NULL,
			segment_text TEXT NOT NULL,
			language_code TEXT NOT NULL,
			audio_file_path TEXT NOT NULL,
			audio_duration REAL NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(category_id, segment_name, language_code)
		)`,
		// 已生成公告审计记录，只追加不修改
		`CREATE TABLE IF NOT EXISTS generated_announcements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category_id INTEGER NOT NULL REFERENCES announcement_categories(id) ON DELETE CASCADE,
			language_code TEXT NOT NULL,
			parameters_json TEXT NOT NULL,
			generated_text TEXT NOT NULL,
			audio_file_path TEXT,
			created_at TEXT NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_segments_category_lang ON announcement_audio_segments(category_id, language_code)`,
		`CREATE INDEX IF NOT EXISTS idx_generated_created ON generated_announcements(created_at)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			logger.Warnf("[database] 创建索引失败: %v", err)
		}
	}

	logger.Info("[database] 数据库迁移完成")
	return nil
}

// Close 关闭数据库连接。
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}

// Now 返回按 TimeFormat 格式化的当前 UTC 时间。
func Now() string {
	return time.Now().UTC().Format(TimeFormat)
}

// ParseTime 解析时间列，格式错误时返回零值。
func ParseTime(s string) time.Time {
	t, err := time.Parse(TimeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
