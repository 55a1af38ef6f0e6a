package utils

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// ReadTermsFromFile 从文件中读取搜索关键词,每行一个
func ReadTermsFromFile(filepath string) ([]string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("打开关键词文件失败: %w", err)
	}
	defer file.Close()

	terms := make([]string, 0)
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// 跳过空行和注释行
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if seen[line] {
			Debugf("跳过重复关键词 (行 %d): %s", lineNum, line)
			continue
		}
		seen[line] = true
		terms = append(terms, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取关键词文件失败: %w", err)
	}

	if len(terms) == 0 {
		return nil, fmt.Errorf("关键词文件中没有有效的关键词")
	}

	Infof("从文件加载了 %d 个搜索关键词", len(terms))
	return terms, nil
}

// NormalizeChannelURL 验证频道地址并去掉末尾的斜杠和 /videos 等标签页后缀
func NormalizeChannelURL(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("URL格式无效: %w", err)
	}

	if parsed.Scheme == "" {
		return "", fmt.Errorf("URL缺少协议(http/https)")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL协议必须是http或https")
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("URL缺少主机名")
	}

	path := strings.TrimRight(parsed.Path, "/")
	for _, tab := range []string{"/videos", "/featured", "/streams", "/shorts"} {
		path = strings.TrimSuffix(path, tab)
	}
	if path == "" {
		return "", fmt.Errorf("URL缺少频道路径")
	}
	parsed.Path = path
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}
