package youtube

import (
	"context"
	"errors"
	"fmt"

	"github.com/RecoveryAshes/ytwatcher/internal/browser"
	"github.com/RecoveryAshes/ytwatcher/internal/models"
	"github.com/RecoveryAshes/ytwatcher/internal/utils"
)

// ClosePrivacyPopup 预置同意cookie并关闭首次访问时的登录提示
// 提示未出现只记录警告
func (c *Client) ClosePrivacyPopup(ctx context.Context) error {
	err := c.session.SetCookies(ctx, browser.Cookie{
		Name:   ConsentCookieName,
		Value:  ConsentCookieValue,
		Domain: ConsentCookieDomain,
		Path:   "/",
	})
	if err != nil {
		return fmt.Errorf("设置同意cookie失败: %w", err)
	}

	if err := c.session.Navigate(ctx, HomeURL); err != nil {
		return err
	}

	btn, err := c.session.WaitInteractable(ctx, SelNoThanks, c.waitTimeout)
	if err != nil {
		if errors.Is(err, models.ErrTimeout) {
			utils.Warn("未发现登录提示")
			return nil
		}
		return err
	}
	if err := btn.Click(ctx); err != nil {
		return fmt.Errorf("关闭登录提示失败: %w", err)
	}
	return nil
}
