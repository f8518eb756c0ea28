package monitor

import (
	"time"

	"go.uber.org/zap"

	"github.com/Hara602/avSentry/internal/attribution"
	"github.com/Hara602/avSentry/internal/clock"
	"github.com/Hara602/avSentry/internal/inventory"
	"github.com/Hara602/avSentry/internal/model"
	"github.com/Hara602/avSentry/internal/watcher"
)

const (
	DefaultRefreshInterval = 5 * time.Second
	DefaultInitialDelay    = 100 * time.Millisecond
)

// StatusMonitor 汇总摄像头、麦克风检测器与设备清单，对外发布完整快照
type StatusMonitor interface {
	Start() (<-chan model.MonitorStatus, error)
	// Errors 检测器的非致命错误；Stop 后关闭
	Errors() <-chan error
	Stop()
}

type Options struct {
	Camera     watcher.DeviceWatcher
	Microphone watcher.DeviceWatcher
	Inventory  inventory.Source
	// Attributor 为 nil 或 ShowProcess 为 false 时不做进程归属
	Attributor  attribution.Attributor
	ShowProcess bool

	RefreshInterval time.Duration
	InitialDelay    time.Duration
	Clock           clock.Clock
	Logger          *zap.Logger
}

func New(opts Options) StatusMonitor {
	return newAggregator(opts)
}
