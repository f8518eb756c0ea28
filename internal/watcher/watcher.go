package watcher

import (
	"time"

	"go.uber.org/zap"

	"github.com/Hara602/avSentry/internal/clock"
	"github.com/Hara602/avSentry/internal/model"
	"github.com/Hara602/avSentry/internal/sysutil"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultProbeTimeout 单次 ioreg 调用的超时
	DefaultProbeTimeout = 5 * time.Second

	logBinary = "/usr/bin/log"
)

// DeviceWatcher 单类设备 (摄像头 / 麦克风) 的活动检测器
// Start 只能调用一次；Stop 幂等，返回后不会再有任何事件，事件 channel 随之关闭
type DeviceWatcher interface {
	Start() (<-chan model.DetectorEvent, error)
	Status() model.DeviceStatus
	Stop()
}

type Options struct {
	Arch         model.Architecture
	PollInterval time.Duration
	Runner       sysutil.Runner
	Spawner      sysutil.Spawner
	Clock        clock.Clock
	Logger       *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Runner == nil {
		o.Runner = sysutil.ExecRunner{Timeout: DefaultProbeTimeout}
	}
	if o.Spawner == nil {
		o.Spawner = sysutil.ExecSpawner{}
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	o.Logger = sysutil.OrNop(o.Logger)
	return o
}
