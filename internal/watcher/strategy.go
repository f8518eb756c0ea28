package watcher

import (
	"context"

	"github.com/Hara602/avSentry/internal/analysis"
	"github.com/Hara602/avSentry/internal/model"
	"github.com/Hara602/avSentry/internal/sysutil"
)

// strategy 按架构选定的探测方式，构造时确定，运行期不变
type strategy interface {
	name() string
	// probe 一次同步的权威探测
	probe(ctx context.Context) (bool, error)
	// predicate log stream 的过滤条件，空字符串表示没有持续订阅
	predicate() string
	// parseLine ok=false 表示该行与状态无关
	parseLine(line string) (active bool, ok bool)
}

func selectCameraStrategy(arch model.Architecture, runner sysutil.Runner) strategy {
	if arch == model.ARM64 {
		return &builtInOrUSBCamera{
			runner: runner,
			driver: resolveCameraDriver(runner),
		}
	}
	return &usbCamera{runner: runner}
}

func selectMicrophoneStrategy(arch model.Architecture, runner sysutil.Runner) strategy {
	if arch == model.ARM64 {
		return &digitalMic{runner: runner}
	}
	return &hdaEngineMic{runner: runner}
}

func resolveCameraDriver(runner sysutil.Runner) string {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultProbeTimeout)
	defer cancel()
	out, err := runner.Output(ctx, "ioreg", "-l")
	if err != nil {
		return analysis.DefaultCameraDriver
	}
	return analysis.CameraDriverName(string(out))
}

func probeUSBCamera(ctx context.Context, runner sysutil.Runner) (bool, error) {
	out, err := runner.Output(ctx, "ioreg", "-r", "-c", "IOUSBHostInterface", "-l")
	if err != nil {
		return false, err
	}
	return analysis.USBVideoStreaming(string(out)), nil
}

// builtInOrUSBCamera arm64：内置摄像头或外接 USB 摄像头任意一个在用即为激活
type builtInOrUSBCamera struct {
	runner sysutil.Runner
	driver string
}

func (s *builtInOrUSBCamera) name() string { return "builtin+usb" }

func (s *builtInOrUSBCamera) probe(ctx context.Context) (bool, error) {
	out, builtInErr := s.runner.Output(ctx, "ioreg", "-r", "-c", s.driver)
	if builtInErr == nil && analysis.BuiltInCameraStreaming(string(out)) {
		return true, nil
	}
	usb, usbErr := probeUSBCamera(ctx, s.runner)
	if usbErr == nil && usb {
		return true, nil
	}
	// 没有任何一路报告激活时，才把失败当作失败
	if builtInErr != nil {
		return false, builtInErr
	}
	return false, usbErr
}

func (s *builtInOrUSBCamera) predicate() string {
	return `process == "kernel" AND eventMessage CONTAINS "` + s.driver + `" AND eventMessage CONTAINS "Streaming"`
}

func (s *builtInOrUSBCamera) parseLine(line string) (bool, bool) {
	return analysis.ParseCameraLine(model.ARM64, line)
}

// usbCamera x86_64：只看 USB Video Class 接口
type usbCamera struct {
	runner sysutil.Runner
}

func (s *usbCamera) name() string { return "usb" }

func (s *usbCamera) probe(ctx context.Context) (bool, error) {
	return probeUSBCamera(ctx, s.runner)
}

func (s *usbCamera) predicate() string {
	return `subsystem CONTAINS "com.apple.UVCExtension" AND composedMessage CONTAINS "Post PowerLog"`
}

func (s *usbCamera) parseLine(line string) (bool, bool) {
	return analysis.ParseCameraLine(model.X86_64, line)
}

// digitalMic arm64：AppleExternalSecondaryAudio 下 Digital Mic 的 is running
type digitalMic struct {
	runner sysutil.Runner
}

func (s *digitalMic) name() string { return "digital-mic" }

func (s *digitalMic) probe(ctx context.Context) (bool, error) {
	out, err := s.runner.Output(ctx, "ioreg", "-r", "-d1", "-c", "AppleExternalSecondaryAudio")
	if err != nil {
		return false, err
	}
	return analysis.DigitalMicRunning(string(out)), nil
}

func (s *digitalMic) predicate() string {
	return `process == "kernel" AND eventMessage CONTAINS "Digital Mic"`
}

func (s *digitalMic) parseLine(line string) (bool, bool) {
	return analysis.ParseMicrophoneLine(line)
}

// hdaEngineMic x86_64：AppleHDAEngineInput 的 IOAudioEngineState，只轮询
type hdaEngineMic struct {
	runner sysutil.Runner
}

func (s *hdaEngineMic) name() string { return "hda-engine" }

func (s *hdaEngineMic) probe(ctx context.Context) (bool, error) {
	out, err := s.runner.Output(ctx, "ioreg", "-c", "AppleHDAEngineInput", "-k", "IOAudioEngineState")
	if err != nil {
		return false, err
	}
	return analysis.HDAEngineRunning(string(out)), nil
}

func (s *hdaEngineMic) predicate() string { return "" }

func (s *hdaEngineMic) parseLine(string) (bool, bool) { return false, false }
