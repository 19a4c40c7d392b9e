package translate

import (
	"context"
	"os"
	"testing"

	"github.com/rhinocodelab/wras/internal/placeholder"
)

func TestNewTencentProviderRequiresCredentials(t *testing.T) {
	if _, err := NewTencentProvider(TencentConfig{}); err == nil {
		t.Fatal("期望缺少凭证时返回错误")
	}
}

func TestTencentProvider(t *testing.T) {
	secretID := os.Getenv("WRAS_TENCENT_SECRET_ID")
	secretKey := os.Getenv("WRAS_TENCENT_SECRET_KEY")
	if secretID == "" || secretKey == "" {
		t.Skip("跳过翻译测试: 未设置 WRAS_TENCENT_SECRET_ID 或 WRAS_TENCENT_SECRET_KEY")
	}

	p, err := NewTencentProvider(TencentConfig{SecretID: secretID, SecretKey: secretKey})
	if err != nil {
		t.Fatalf("创建翻译客户端失败: %v", err)
	}

	tests := []struct {
		name   string
		text   string
		target string
	}{
		{"英译印地语", "Attention Please! Train number {train_number} is arriving", "hi"},
		{"无占位符", "We apologize for the inconvenience.", "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			masked, m := placeholder.Mask(tt.text)
			out, err := p.Translate(context.Background(), masked, "en", tt.target)
			if err != nil {
				t.Fatalf("Translate 失败: %v", err)
			}
			restored := placeholder.Unmask(out, m)
			if missing, _ := placeholder.Verify(tt.text, restored); len(missing) != 0 {
				t.Errorf("占位符丢失: %v (译文 %q)", missing, restored)
			}
			t.Logf("翻译结果: %s -> %s", tt.text, restored)
		})
	}

	lang, err := p.DetectLanguage(context.Background(), "Hello world")
	if err != nil {
		t.Fatalf("DetectLanguage 失败: %v", err)
	}
	if lang != "en" {
		t.Errorf("DetectLanguage = %s, want en", lang)
	}
}
