package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rhinocodelab/wras/internal/apperr"
	"github.com/rhinocodelab/wras/internal/logger"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"
)

// TencentConfig 腾讯云机器翻译配置。
type TencentConfig struct {
	SecretID  string
	SecretKey string
	Region    string
	ProjectID int64
}

// TencentProvider 使用腾讯云机器翻译（TMT）实现 Provider。
type TencentProvider struct {
	client    *tmt.Client
	projectID int64
}

// NewTencentProvider 创建腾讯云翻译客户端。
func NewTencentProvider(cfg TencentConfig) (*TencentProvider, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("[translate] 腾讯云翻译需要 SecretID 和 SecretKey")
	}
	if cfg.Region == "" {
		cfg.Region = "ap-guangzhou"
	}

	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tmt.tencentcloudapi.com"

	client, err := tmt.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("[translate] 创建翻译客户端失败: %w", err)
	}

	logger.Infof("[translate] 腾讯云翻译已初始化 (region=%s)", cfg.Region)
	return &TencentProvider{client: client, projectID: cfg.ProjectID}, nil
}

// Translate 调用 TextTranslate。
func (p *TencentProvider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if sourceLang == "" {
		sourceLang = "auto"
	}

	request := tmt.NewTextTranslateRequest()
	request.SourceText = common.StringPtr(text)
	request.Source = common.StringPtr(sourceLang)
	request.Target = common.StringPtr(targetLang)
	request.ProjectId = common.Int64Ptr(p.projectID)

	response, err := p.client.TextTranslateWithContext(ctx, request)
	if err != nil {
		return "", apperr.Provider("translate", err)
	}
	if response.Response == nil || response.Response.TargetText == nil {
		return "", apperr.Provider("translate", fmt.Errorf("翻译响应为空"))
	}

	result := *response.Response.TargetText
	logger.Debugf("[translate] %s -> %s: %s", sourceLang, targetLang, result)
	return result, nil
}

// DetectLanguage 调用 LanguageDetect。
func (p *TencentProvider) DetectLanguage(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", apperr.Validation("待识别文本不能为空")
	}

	request := tmt.NewLanguageDetectRequest()
	request.Text = common.StringPtr(text)
	request.ProjectId = common.Int64Ptr(p.projectID)

	response, err := p.client.LanguageDetectWithContext(ctx, request)
	if err != nil {
		return "", apperr.Provider("detect_language", err)
	}
	if response.Response == nil || response.Response.Lang == nil {
		return "", apperr.Provider("detect_language", fmt.Errorf("语言识别响应为空"))
	}
	return *response.Response.Lang, nil
}
