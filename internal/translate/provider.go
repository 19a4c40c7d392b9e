package translate

import "context"

// Provider 定义机器翻译后端接口。
// 实现内部不做重试，任何失败都以 apperr.ErrProvider 类别返回。
type Provider interface {
	// Translate 将 text 从 sourceLang 翻译为 targetLang。
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	// DetectLanguage 识别文本语言，返回语言代码。
	DetectLanguage(ctx context.Context, text string) (string, error)
}
