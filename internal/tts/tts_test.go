package tts

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rhinocodelab/wras/internal/apperr"
)

type fakeEngine struct {
	calls int
	res   *Result
	err   error
}

func (f *fakeEngine) Synthesize(ctx context.Context, text, lang string) (*Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func TestVoiceTableLookup(t *testing.T) {
	table := merge(DefaultEdgeVoices, map[string]string{"hi": "hi-IN-MadhurNeural", "ta": "ta-IN-PallaviNeural"})

	tests := []struct {
		lang    string
		want    string
		wantErr bool
	}{
		{"en", "en-IN-NeerjaNeural", false},
		{"hi", "hi-IN-MadhurNeural", false},
		{"ta", "ta-IN-PallaviNeural", false},
		{"fr", "", true},
	}
	for _, tt := range tests {
		got, err := table.Lookup(tt.lang)
		if tt.wantErr {
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("Lookup(%s) 期望 ErrValidation，得到 %v", tt.lang, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Lookup(%s) = %q, %v; want %q", tt.lang, got, err, tt.want)
		}
	}

	if DefaultEdgeVoices["hi"] != "hi-IN-SwaraNeural" {
		t.Error("merge 不应修改内置音色表")
	}
}

func TestMP3DurationRejectsInvalidData(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("not an mp3 stream")} {
		d, err := MP3Duration(data)
		if !errors.Is(err, apperr.ErrProvider) {
			t.Errorf("MP3Duration(%q) 期望 ErrProvider，得到 %v", data, err)
		}
		if d != 0 {
			t.Errorf("失败时不应返回时长，得到 %v", d)
		}
	}
}

func TestFallbackEngine(t *testing.T) {
	ok := &Result{Audio: []byte{1}, Duration: 1.5}
	providerErr := apperr.Provider("fake", errors.New("boom"))

	t.Run("主引擎成功", func(t *testing.T) {
		primary := &fakeEngine{res: ok}
		fallback := &fakeEngine{res: &Result{}}
		res, err := NewFallbackEngine(primary, fallback).Synthesize(context.Background(), "hi", "en")
		if err != nil || res != ok {
			t.Fatalf("res=%v err=%v", res, err)
		}
		if fallback.calls != 0 {
			t.Errorf("不应调用备用引擎")
		}
	})

	t.Run("主引擎失败", func(t *testing.T) {
		primary := &fakeEngine{err: providerErr}
		fallback := &fakeEngine{res: ok}
		res, err := NewFallbackEngine(primary, fallback).Synthesize(context.Background(), "hi", "en")
		if err != nil || res != ok {
			t.Fatalf("res=%v err=%v", res, err)
		}
	})

	t.Run("都失败", func(t *testing.T) {
		primary := &fakeEngine{err: providerErr}
		fallback := &fakeEngine{err: apperr.Provider("fake2", errors.New("down"))}
		_, err := NewFallbackEngine(primary, fallback).Synthesize(context.Background(), "hi", "en")
		if !errors.Is(err, apperr.ErrProvider) {
			t.Fatalf("期望 ErrProvider，得到 %v", err)
		}
	})

	t.Run("取消不回退", func(t *testing.T) {
		primary := &fakeEngine{err: context.Canceled}
		fallback := &fakeEngine{res: ok}
		_, err := NewFallbackEngine(primary, fallback).Synthesize(context.Background(), "hi", "en")
		if !errors.Is(err, context.Canceled) || fallback.calls != 0 {
			t.Fatalf("err=%v fallback.calls=%d", err, fallback.calls)
		}
	})

	t.Run("无备用引擎", func(t *testing.T) {
		primary := &fakeEngine{res: ok}
		if NewFallbackEngine(primary, nil) != Engine(primary) {
			t.Error("fallback 为 nil 时应直接返回主引擎")
		}
	})
}

func TestEdgeEngineUnsupportedLanguage(t *testing.T) {
	_, err := NewEdgeEngine(nil).Synthesize(context.Background(), "bonjour", "fr")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("期望 ErrValidation，得到 %v", err)
	}
}

func TestEdgeEngine(t *testing.T) {
	if os.Getenv("WRAS_EDGE_TTS_TEST") == "" {
		t.Skip("跳过 Edge TTS 测试: 未设置 WRAS_EDGE_TTS_TEST")
	}
	for _, lang := range []string{"en", "hi", "mr", "gu"} {
		res, err := NewEdgeEngine(nil).Synthesize(context.Background(), "12345", lang)
		if err != nil {
			t.Fatalf("%s 合成失败: %v", lang, err)
		}
		if len(res.Audio) == 0 || res.Duration <= 0 {
			t.Errorf("%s: audio=%d bytes duration=%v", lang, len(res.Audio), res.Duration)
		}
	}
}

func TestTencentEngine(t *testing.T) {
	secretID := os.Getenv("WRAS_TENCENT_SECRET_ID")
	secretKey := os.Getenv("WRAS_TENCENT_SECRET_KEY")
	if secretID == "" || secretKey == "" {
		t.Skip("跳过腾讯云 TTS 测试: 未设置 WRAS_TENCENT_SECRET_ID 或 WRAS_TENCENT_SECRET_KEY")
	}
	e, err := NewTencentEngine(TencentConfig{SecretID: secretID, SecretKey: secretKey})
	if err != nil {
		t.Fatalf("创建引擎失败: %v", err)
	}
	res, err := e.Synthesize(context.Background(), "Attention please", "en")
	if err != nil {
		t.Fatalf("合成失败: %v", err)
	}
	if res.Duration <= 0 {
		t.Errorf("duration = %v", res.Duration)
	}
	if _, err := e.Synthesize(context.Background(), "नमस्ते", "hi"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("未配置音色的语言应返回 ErrValidation，得到 %v", err)
	}
}

func TestCollectAudio(t *testing.T) {
	ch := make(chan map[string]interface{}, 4)
	ch <- map[string]interface{}{"type": "audio", "data": []byte("ab")}
	ch <- map[string]interface{}{"type": "WordBoundary", "offset": 100}
	ch <- map[string]interface{}{"type": "audio", "data": []byte("cd")}
	close(ch)

	data, err := collectAudio(context.Background(), ch)
	if err != nil {
		t.Fatalf("collectAudio 失败: %v", err)
	}
	if string(data) != "abcd" {
		t.Errorf("data = %q, want abcd", data)
	}
}

func TestCollectAudioDrainsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// 无缓冲通道：提前返回后若无人读取，发送方会永久阻塞
	ch := make(chan map[string]interface{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			ch <- map[string]interface{}{"type": "audio", "data": []byte{byte(i)}}
		}
		close(ch)
	}()

	if _, err := collectAudio(ctx, ch); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("发送方在取消后被阻塞")
	}
}
