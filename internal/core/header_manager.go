package core

import (
	"context"
	"fmt"
	"net/http"

	"github.com/RecoveryAshes/ytwatcher/internal/browser"
	"github.com/RecoveryAshes/ytwatcher/internal/models"
	"github.com/RecoveryAshes/ytwatcher/internal/utils"
)

// DefaultAcceptLanguage 默认Accept-Language,与浏览器--lang保持一致
const DefaultAcceptLanguage = "en-US,en;q=0.9"

// HeaderManager 管理附加到浏览器请求上的HTTP头部
// 实现 HeaderProvider 接口
type HeaderManager struct {
	// defaults 系统默认头部
	defaults http.Header

	// config 配置文件 browser.headers 中的头部
	config http.Header

	// cli 从命令行参数解析的头部
	cli http.Header

	validator *utils.HeaderValidator
	redactor  *utils.HeaderRedactor
}

// NewHeaderManager 创建头部管理器
// 参数:
//   - configHeaders: 配置文件中的头部 (browser.headers)
//   - cliHeaders: 命令行传递的头部字符串列表
//
// 返回:
//   - *HeaderManager: 头部管理器实例
//   - error: 如果命令行参数解析失败
func NewHeaderManager(configHeaders map[string]string, cliHeaders []string) (*HeaderManager, error) {
	hm := &HeaderManager{
		defaults:  getDefaultHeaders(),
		config:    make(http.Header),
		validator: utils.NewHeaderValidator(),
		redactor:  utils.NewHeaderRedactor(),
	}

	for name, value := range configHeaders {
		hm.config.Set(name, value)
	}

	if len(cliHeaders) > 0 {
		parsed, err := models.CliHeaders(cliHeaders).Parse()
		if err != nil {
			return nil, err
		}
		hm.cli = parsed
	} else {
		hm.cli = make(http.Header)
	}

	return hm, nil
}

// getDefaultHeaders 返回系统默认头部
// User-Agent由浏览器自身决定,不在此覆盖
func getDefaultHeaders() http.Header {
	return http.Header{
		"Accept-Language": []string{DefaultAcceptLanguage},
	}
}

// Validate 验证所有头部的合法性
// 验证顺序: 默认 → 配置 → 命令行
func (hm *HeaderManager) Validate() error {
	if err := hm.validator.Validate(hm.defaults); err != nil {
		utils.Errorf("默认头部验证失败: %v", err)
		return err
	}

	if err := hm.validator.Validate(hm.config); err != nil {
		utils.Errorf("配置文件头部验证失败: %v", err)
		return err
	}

	if err := hm.validator.Validate(hm.cli); err != nil {
		utils.Errorf("命令行头部验证失败: %v", err)
		return err
	}

	utils.Debugf("所有HTTP头部验证通过")
	return nil
}

// GetMergedHeaders 按优先级合并头部 (default < config < cli)
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)

	for name, values := range hm.defaults {
		result[name] = values
	}
	for name, values := range hm.config {
		result[name] = values
	}
	for name, values := range hm.cli {
		result[name] = values
	}

	return result
}

// GetSafeHeaders 返回脱敏后的头部 (用于日志)
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders())
}

// GetHeaders 实现 HeaderProvider 接口
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	if err := hm.Validate(); err != nil {
		return nil, err
	}
	return hm.GetMergedHeaders(), nil
}

// Apply 将头部应用到会话的所有后续请求
func (hm *HeaderManager) Apply(ctx context.Context, session browser.Session) error {
	headers, err := hm.GetHeaders()
	if err != nil {
		return err
	}
	if err := session.SetExtraHeaders(ctx, headers); err != nil {
		return fmt.Errorf("设置附加请求头失败: %w", err)
	}
	utils.Debugf("已应用%d个附加请求头: %v", len(headers), hm.redactor.Redact(headers))
	return nil
}

var _ models.HeaderProvider = (*HeaderManager)(nil)
