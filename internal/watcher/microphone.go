package watcher

import (
	"go.uber.org/zap"

	"github.com/Hara602/avSentry/internal/model"
)

// NewMicrophone 麦克风检测器
// 持续订阅只是辅助信号，起不来时退化为纯轮询
func NewMicrophone(opts Options) DeviceWatcher {
	opts = opts.withDefaults()
	s := selectMicrophoneStrategy(opts.Arch, opts.Runner)
	opts.Logger.Debug("microphone strategy selected",
		zap.String("arch", string(opts.Arch)),
		zap.String("strategy", s.name()))
	return newDetector(model.Microphone, s, detectorTraits{optionalStream: true}, opts)
}
