package browser

import (
	"context"
	"fmt"

	"github.com/RecoveryAshes/ytwatcher/internal/models"
)

// Opener 打开一个新的浏览器会话
// 身份轮换和资源回收时由Watcher调用以重建会话
type Opener func(ctx context.Context) (Session, error)

// Open 按配置的后端打开会话
func Open(ctx context.Context, cfg models.BrowserConfig) (Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case models.BackendRod:
		return OpenRod(ctx, cfg)
	case models.BackendRemote:
		return OpenRemote(ctx, cfg)
	case models.BackendChromedp:
		return OpenChromedp(ctx, cfg)
	default:
		return nil, fmt.Errorf("未知的浏览器后端: %s", cfg.Backend)
	}
}

// NewOpener 返回使用固定配置的Opener
func NewOpener(cfg models.BrowserConfig) Opener {
	return func(ctx context.Context) (Session, error) {
		return Open(ctx, cfg)
	}
}
