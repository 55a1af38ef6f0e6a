package models

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// ValidateURL 验证URL
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("无效的URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL必须是HTTP或HTTPS协议")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL必须包含主机名")
	}
	return nil
}

// NewCycleID 生成观看周期的唯一ID(用于日志关联)
func NewCycleID() string {
	return uuid.New().String()
}
