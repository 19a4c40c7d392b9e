// Package placeholder 在机器翻译前后保护模板中的 {name} 占位符。
//
// Mask 把每一处占位符替换为形如 PHX000 的哨兵（大写辅音前缀 + 定宽数字），
// 翻译服务不会翻译、拆分或改写这类记号；Unmask 再按映射还原。
// 若原文已包含前缀，则在前缀后追加 X 直到不冲突，保证任意输入都能原样往返。
package placeholder

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var pattern = regexp.MustCompile(`\{[^{}]+\}`)

const (
	sentinelPrefix = "PHX"
	minDigits      = 3
)

// Mapping 哨兵 -> 原始占位符。
type Mapping map[string]string

// Extract 按出现顺序返回文本中的占位符，重复项保留。
func Extract(text string) []string {
	return pattern.FindAllString(text, -1)
}

// Mask 将每一处占位符替换为唯一哨兵，返回替换后的文本和还原映射。
func Mask(text string) (string, Mapping) {
	locs := pattern.FindAllStringIndex(text, -1)
	mapping := make(Mapping, len(locs))
	if len(locs) == 0 {
		return text, mapping
	}

	prefix := sentinelPrefix
	for strings.Contains(text, prefix) {
		prefix += "X"
	}
	width := len(strconv.Itoa(len(locs) - 1))
	if width < minDigits {
		width = minDigits
	}

	var b strings.Builder
	last := 0
	for i, loc := range locs {
		sentinel := fmt.Sprintf("%s%0*d", prefix, width, i)
		mapping[sentinel] = text[loc[0]:loc[1]]
		b.WriteString(text[last:loc[0]])
		b.WriteString(sentinel)
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String(), mapping
}

// Unmask 将文本中的哨兵还原为占位符，与哨兵在译文中的顺序无关。
// 丢失或被改写的哨兵无法还原，调用方可用 Verify 检测。
func Unmask(text string, mapping Mapping) string {
	if len(mapping) == 0 {
		return text
	}
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, mapping[k])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Verify 比较源文本与还原后文本的占位符多重集合。
// 返回源文本中有而还原文本中缺失的占位符，以及还原文本中多出的占位符。
func Verify(source, restored string) (missing, extra []string) {
	counts := make(map[string]int)
	for _, p := range Extract(source) {
		counts[p]++
	}
	for _, p := range Extract(restored) {
		counts[p]--
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for n := counts[k]; n > 0; n-- {
			missing = append(missing, k)
		}
		for n := counts[k]; n < 0; n++ {
			extra = append(extra, k)
		}
	}
	return missing, extra
}

// Fill 用 params[name] 替换每一处 {name}，未提供的占位符保持原样。
// 替换只扫描一遍，参数值中的花括号不会被再次展开。
func Fill(text string, params map[string]string) string {
	return pattern.ReplaceAllStringFunc(text, func(m string) string {
		if v, ok := params[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// Unique 返回去重后的占位符，保持首次出现的顺序。
func Unique(placeholders []string) []string {
	seen := make(map[string]bool, len(placeholders))
	out := make([]string, 0, len(placeholders))
	for _, p := range placeholders {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
