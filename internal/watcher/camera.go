package watcher

import (
	"go.uber.org/zap"

	"github.com/Hara602/avSentry/internal/model"
)

// NewCamera 摄像头检测器
// arm64 上会先通过 ioreg 解析内置摄像头驱动名
func NewCamera(opts Options) DeviceWatcher {
	opts = opts.withDefaults()
	s := selectCameraStrategy(opts.Arch, opts.Runner)
	opts.Logger.Debug("camera strategy selected",
		zap.String("arch", string(opts.Arch)),
		zap.String("strategy", s.name()))
	return newDetector(model.Camera, s, detectorTraits{reportStderr: true}, opts)
}
