package announce

import (
	"github.com/rhinocodelab/wras/internal/apperr"
)

// Languages 描述基础语言和支持的语言集合。
type Languages struct {
	Base      string
	Supported []string
}

// IsSupported 判断语言代码是否受支持。
func (l Languages) IsSupported(code string) bool {
	for _, s := range l.Supported {
		if s == code {
			return true
		}
	}
	return false
}

// Validate 检查每个语言代码都受支持。
func (l Languages) Validate(codes []string) error {
	for _, c := range codes {
		if !l.IsSupported(c) {
			return apperr.Validation("不支持的语言: %s", c)
		}
	}
	return nil
}

// Targets 返回除基础语言外的支持语言。
func (l Languages) Targets() []string {
	out := make([]string, 0, len(l.Supported))
	for _, s := range l.Supported {
		if s != l.Base {
			out = append(out, s)
		}
	}
	return out
}

// Resolve 校验 codes 并按首次出现顺序去重，为空时返回全部支持语言。
func (l Languages) Resolve(codes []string) ([]string, error) {
	if len(codes) == 0 {
		return append([]string(nil), l.Supported...), nil
	}
	if err := l.Validate(codes); err != nil {
		return nil, err
	}
	return dedupe(codes), nil
}

func dedupe(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
