package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/ytwatcher/internal/models"
	"github.com/RecoveryAshes/ytwatcher/internal/monitor"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "检查运行环境 (浏览器、轮换命令、日志目录、内存)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("==============================================")
		fmt.Println("  ytwatcher 环境检查")
		fmt.Println("==============================================")

		allOK := true
		fmt.Printf("✅ Go版本: %s\n", runtime.Version())
		fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

		switch appConfig.Browser.Backend {
		case models.BackendRemote:
			fmt.Printf("✅ remote后端: %s\n", appConfig.Browser.RemoteURL)
		default:
			bin := appConfig.Browser.Bin
			if bin == "" {
				if path, has := launcher.LookPath(); has {
					bin = path
				}
			}
			if bin != "" {
				fmt.Printf("✅ 浏览器: %s\n", bin)
			} else if appConfig.Browser.Backend == models.BackendRod {
				fmt.Println("⚠️  未找到本地Chromium,首次运行时rod会自动下载")
			} else {
				fmt.Println("❌ 未找到本地Chromium - chromedp后端需要已安装的Chrome/Chromium")
				allOK = false
			}
		}

		if appConfig.Identity.Enabled {
			if len(appConfig.Identity.RestartCommand) == 0 {
				fmt.Println("❌ 已启用身份轮换但未配置 identity.restart_command")
				allOK = false
			} else if path, err := exec.LookPath(appConfig.Identity.RestartCommand[0]); err != nil {
				fmt.Printf("❌ 轮换命令不可用: %s\n", appConfig.Identity.RestartCommand[0])
				allOK = false
			} else {
				fmt.Printf("✅ 轮换命令: %s %s\n", path, strings.Join(appConfig.Identity.RestartCommand[1:], " "))
			}
		}

		if err := checkWritable(appConfig.Logging.LogDir); err != nil {
			fmt.Printf("❌ 日志目录不可写: %v\n", err)
			allOK = false
		} else {
			fmt.Printf("✅ 日志目录: %s\n", appConfig.Logging.LogDir)
		}

		if sample, err := (monitor.HostSampler{}).Sample(); err == nil {
			fmt.Printf("✅ 可用内存: %dMB / %dMB\n", sample.AvailableMemory/(1024*1024), sample.TotalMemory/(1024*1024))
		} else {
			fmt.Printf("⚠️  无法读取内存信息: %v\n", err)
		}

		fmt.Println("==============================================")
		if !allOK {
			return fmt.Errorf("环境检查失败,请解决上述问题")
		}
		fmt.Println("✅ 环境检查通过")
		return nil
	},
}

// checkWritable 确认目录存在且可写
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
