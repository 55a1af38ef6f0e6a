package core

import (
	"context"
	"testing"

	"github.com/RecoveryAshes/ytwatcher/internal/browser/browsertest"
)

func TestHeaderManager_GetMergedHeaders(t *testing.T) {
	t.Run("默认Accept-Language存在", func(t *testing.T) {
		hm, err := NewHeaderManager(nil, nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		if got := hm.GetMergedHeaders().Get("Accept-Language"); got != DefaultAcceptLanguage {
			t.Errorf("Accept-Language = %q, want %q", got, DefaultAcceptLanguage)
		}
	})

	t.Run("优先级 默认<配置<命令行", func(t *testing.T) {
		configHeaders := map[string]string{
			"Accept-Language": "de-DE",
			"X-Custom":        "config",
			"X-Config-Only":   "yes",
		}
		hm, err := NewHeaderManager(configHeaders, []string{"X-Custom: cli"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		headers := hm.GetMergedHeaders()
		if got := headers.Get("Accept-Language"); got != "de-DE" {
			t.Errorf("配置应覆盖默认: Accept-Language = %q", got)
		}
		if got := headers.Get("X-Custom"); got != "cli" {
			t.Errorf("命令行应覆盖配置: X-Custom = %q", got)
		}
		if got := headers.Get("X-Config-Only"); got != "yes" {
			t.Errorf("X-Config-Only = %q", got)
		}
	})

	t.Run("配置头部名称不区分大小写", func(t *testing.T) {
		hm, err := NewHeaderManager(map[string]string{"accept-language": "fr-FR"}, nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		if got := hm.GetMergedHeaders().Get("Accept-Language"); got != "fr-FR" {
			t.Errorf("Accept-Language = %q, want fr-FR", got)
		}
	})
}

func TestHeaderManager_GetSafeHeaders(t *testing.T) {
	hm, err := NewHeaderManager(nil, []string{
		"Authorization: Bearer secret-token-12345",
		"X-Goog-Visitor-Id: CgtBbGxvd0xpc3QgWSiM",
		"X-Custom: plain",
	})
	if err != nil {
		t.Fatalf("创建HeaderManager失败: %v", err)
	}

	safe := hm.GetSafeHeaders()
	if safe["Authorization"] != "Bearer ***" {
		t.Errorf("Authorization = %q, want 'Bearer ***'", safe["Authorization"])
	}
	if safe["X-Goog-Visitor-Id"] == "CgtBbGxvd0xpc3QgWSiM" {
		t.Error("访客标识应该被脱敏")
	}
	if safe["X-Custom"] != "plain" {
		t.Errorf("普通头部不应该被脱敏: %q", safe["X-Custom"])
	}
}

func TestHeaderManager_GetHeaders(t *testing.T) {
	tests := []struct {
		name       string
		config     map[string]string
		cli        []string
		wantNewErr bool
		wantErr    bool
	}{
		{name: "成功场景", cli: []string{"X-Custom: test-value"}},
		{name: "缺少冒号", cli: []string{"InvalidFormat"}, wantNewErr: true},
		{name: "命令行禁止头部", cli: []string{"Host: example.com"}, wantErr: true},
		{name: "配置禁止头部", config: map[string]string{"Cookie": "a=b"}, wantErr: true},
		{name: "非法名称", config: map[string]string{"X Bad": "v"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm, err := NewHeaderManager(tt.config, tt.cli)
			if (err != nil) != tt.wantNewErr {
				t.Fatalf("NewHeaderManager() error = %v, wantErr %v", err, tt.wantNewErr)
			}
			if err != nil {
				return
			}

			_, err = hm.GetHeaders()
			if (err != nil) != tt.wantErr {
				t.Errorf("GetHeaders() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHeaderManager_Apply(t *testing.T) {
	t.Run("应用到会话", func(t *testing.T) {
		hm, err := NewHeaderManager(nil, []string{"X-Custom: v"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		s := browsertest.New()
		if err := hm.Apply(context.Background(), s); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if s.Headers.Get("X-Custom") != "v" || s.Headers.Get("Accept-Language") != DefaultAcceptLanguage {
			t.Errorf("Headers = %v", s.Headers)
		}
	})

	t.Run("验证失败不设置", func(t *testing.T) {
		hm, err := NewHeaderManager(nil, []string{"Connection: close"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		s := browsertest.New()
		if err := hm.Apply(context.Background(), s); err == nil {
			t.Error("期望返回验证错误")
		}
		if s.Headers != nil {
			t.Errorf("验证失败时不应设置头部: %v", s.Headers)
		}
	})
}
