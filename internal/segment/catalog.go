// Package segment 按分类和语言生成可复用的公告音频片段。
//
// 片段文本来自人工审定的目录（catalog.yaml），加载时校验完整性：
// 每个分类在每种支持语言下都必须提供全部片段名，缺一项即启动失败。
package segment

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rhinocodelab/wras/internal/apperr"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog 片段目录：分类代码 -> 语言 -> 片段名 -> 文本。
type Catalog struct {
	// Segments 片段名，按播放顺序排列。
	Segments   []string                                `yaml:"segments"`
	Categories map[string]map[string]map[string]string `yaml:"categories"`
}

// LoadCatalog 读取片段目录，path 为空时使用内置目录。
func LoadCatalog(path string, languages []string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取片段目录 %s 失败: %w", path, err)
		}
	}
	return ParseCatalog(data, languages)
}

// ParseCatalog 解析并校验片段目录。
func ParseCatalog(data []byte, languages []string) (*Catalog, error) {
	c := &Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("解析片段目录失败: %w", err)
	}
	if err := c.validate(languages); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate(languages []string) error {
	if len(c.Segments) == 0 {
		return apperr.Validation("片段目录没有定义片段名")
	}
	if len(c.Categories) == 0 {
		return apperr.Validation("片段目录没有定义分类")
	}

	names := make(map[string]bool, len(c.Segments))
	for _, n := range c.Segments {
		if n == "" || names[n] {
			return apperr.Validation("片段名为空或重复: %q", n)
		}
		names[n] = true
	}

	var problems []string
	for _, code := range c.Codes() {
		byLang := c.Categories[code]
		for _, lang := range languages {
			texts, ok := byLang[lang]
			if !ok {
				problems = append(problems, fmt.Sprintf("%s/%s: 缺少语言", code, lang))
				continue
			}
			for _, n := range c.Segments {
				if strings.TrimSpace(texts[n]) == "" {
					problems = append(problems, fmt.Sprintf("%s/%s/%s: 缺少文本", code, lang, n))
				}
			}
			for n := range texts {
				if !names[n] {
					problems = append(problems, fmt.Sprintf("%s/%s/%s: 未声明的片段名", code, lang, n))
				}
			}
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return apperr.Validation("片段目录不完整:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// Codes 返回目录中的分类代码（升序）。
func (c *Catalog) Codes() []string {
	out := make([]string, 0, len(c.Categories))
	for code := range c.Categories {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Names 返回片段名，按播放顺序。
func (c *Catalog) Names() []string {
	return append([]string(nil), c.Segments...)
}

// Text 查询片段文本。
func (c *Catalog) Text(code, lang, name string) (string, bool) {
	text, ok := c.Categories[code][lang][name]
	return text, ok
}

// Has 判断目录是否包含该分类。
func (c *Catalog) Has(code string) bool {
	_, ok := c.Categories[code]
	return ok
}

// Require 检查 codes 中的分类都在目录中，用于启动时与数据库中的分类比对。
func (c *Catalog) Require(codes []string) error {
	var errs []error
	for _, code := range codes {
		if !c.Has(code) {
			errs = append(errs, apperr.Validation("片段目录缺少分类 %s", code))
		}
	}
	return errors.Join(errs...)
}
