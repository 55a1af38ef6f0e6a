// Package monitor 监控主机资源,在内存紧张时提示重建浏览器会话
package monitor

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const mb = 1024 * 1024

// Pressure 内存压力等级
type Pressure string

const (
	PressureNormal    Pressure = "normal"
	PressureWarning   Pressure = "warning"
	PressureCritical  Pressure = "critical"
	PressureEmergency Pressure = "emergency"
)

// Sample 一次资源采样
type Sample struct {
	TotalMemory     uint64  // 系统总内存(字节)
	AvailableMemory uint64  // 可用内存(字节)
	CPUPercent      float64 // 全部核心的平均使用率
}

// Sampler 资源采样来源
type Sampler interface {
	Sample() (Sample, error)
}

// HostSampler 使用gopsutil读取真实主机数据
type HostSampler struct {
	// CPUWindow CPU使用率的采样窗口
	CPUWindow time.Duration
}

// Sample 实现Sampler接口
func (s HostSampler) Sample() (Sample, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Sample{}, fmt.Errorf("获取系统内存失败: %w", err)
	}

	window := s.CPUWindow
	if window <= 0 {
		window = 100 * time.Millisecond
	}
	// perCPU=false 返回所有CPU的平均使用率
	var cpuPercent float64
	percentages, err := cpu.Percent(window, false)
	if err != nil {
		log.Warn().Err(err).Msg("获取CPU使用率失败")
	} else if len(percentages) > 0 {
		cpuPercent = percentages[0]
	}

	return Sample{
		TotalMemory:     vm.Total,
		AvailableMemory: vm.Available,
		CPUPercent:      cpuPercent,
	}, nil
}

// Config 资源监控配置
type Config struct {
	// MinAvailableMemory 可用内存下限(字节),低于时建议重建浏览器会话; 0表示不检查
	MinAvailableMemory int64

	// CPULoadThreshold CPU负载告警阈值(%),>=200视为禁用
	CPULoadThreshold int
}

// Status 一次检查的结论
type Status struct {
	Sample   Sample
	Pressure Pressure

	// Recycle 是否应当重建浏览器会话
	Recycle bool
	Reason  string
}

// ResourceMonitor 资源监控器
// 在两个观看周期之间调用Check,不在后台运行
type ResourceMonitor struct {
	config  Config
	sampler Sampler
}

// NewResourceMonitor 创建资源监控器,sampler为nil时使用主机数据
func NewResourceMonitor(config Config, sampler Sampler) *ResourceMonitor {
	if sampler == nil {
		sampler = HostSampler{}
	}
	return &ResourceMonitor{config: config, sampler: sampler}
}

// Check 采样并判断是否需要重建会话
// 采样失败时不建议重建
func (rm *ResourceMonitor) Check() Status {
	sample, err := rm.sampler.Sample()
	if err != nil {
		log.Warn().Err(err).Msg("资源采样失败")
		return Status{Pressure: PressureNormal}
	}

	status := Status{Sample: sample, Pressure: classifyPressure(sample.AvailableMemory)}
	availableMB := int64(sample.AvailableMemory) / mb

	if rm.config.MinAvailableMemory > 0 && int64(sample.AvailableMemory) < rm.config.MinAvailableMemory {
		status.Recycle = true
		status.Reason = fmt.Sprintf("可用内存不足(当前%dMB,下限%dMB)", availableMB, rm.config.MinAvailableMemory/mb)
		log.Warn().Msgf("%s,将重建浏览器会话", status.Reason)
		return status
	}

	if rm.config.CPULoadThreshold > 0 && rm.config.CPULoadThreshold < 200 &&
		sample.CPUPercent > float64(rm.config.CPULoadThreshold) {
		status.Reason = fmt.Sprintf("CPU负载过高(当前%.1f%%)", sample.CPUPercent)
		log.Warn().Msg(status.Reason)
	}

	if status.Pressure != PressureNormal {
		log.Debug().Msgf("内存压力: %s (可用%dMB)", status.Pressure, availableMB)
	}
	return status
}

// classifyPressure 根据可用内存判断压力等级
func classifyPressure(available uint64) Pressure {
	availableMB := available / mb
	switch {
	case availableMB < 200:
		return PressureEmergency
	case availableMB < 300:
		return PressureCritical
	case availableMB < 500:
		return PressureWarning
	default:
		return PressureNormal
	}
}
