package inventory

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Hara602/avSentry/internal/model"
	"github.com/Hara602/avSentry/internal/sysutil"
)

// DefaultTimeout system_profiler 比 ioreg 慢得多
const DefaultTimeout = 10 * time.Second

var (
	FallbackMicrophone = model.Device{ID: "built-in-microphone", Name: "Built-in Microphone"}
	FallbackCamera     = model.Device{ID: "built-in-camera", Name: "Built-in Camera"}
)

// Source 设备清单来源，调用方只关心结果，失败时返回兜底设备
type Source interface {
	Discover(ctx context.Context) model.Inventory
}

// SystemProfiler 通过 system_profiler -json 发现音频输入与摄像头
type SystemProfiler struct {
	runner sysutil.Runner
	log    *zap.Logger
}

func New(runner sysutil.Runner, logger *zap.Logger) *SystemProfiler {
	if runner == nil {
		runner = sysutil.ExecRunner{Timeout: DefaultTimeout}
	}
	return &SystemProfiler{runner: runner, log: sysutil.OrNop(logger)}
}

func (p *SystemProfiler) Discover(ctx context.Context) model.Inventory {
	return model.Inventory{
		AudioInputs:  p.discover(ctx, "SPAudioDataType", ParseAudioInputs, FallbackMicrophone),
		VideoDevices: p.discover(ctx, "SPCameraDataType", ParseCameras, FallbackCamera),
	}
}

func (p *SystemProfiler) discover(ctx context.Context, dataType string, parse func([]byte) ([]model.Device, error), fallback model.Device) []model.Device {
	out, err := p.runner.Output(ctx, "system_profiler", dataType, "-json")
	if err != nil {
		p.log.Warn("system_profiler failed", zap.String("type", dataType), zap.Error(err))
		return []model.Device{fallback}
	}
	devices, err := parse(out)
	if err != nil {
		p.log.Warn("unexpected system_profiler output", zap.String("type", dataType), zap.Error(err))
		return []model.Device{fallback}
	}
	if len(devices) == 0 {
		return []model.Device{fallback}
	}
	return devices
}

type profilerItem struct {
	Name               string `json:"_name"`
	ModelID            string `json:"spcamera_model-id"`
	InputSource        any    `json:"coreaudio_input_source"`
	DefaultInputDevice any    `json:"coreaudio_default_audio_input_device"`
}

type audioReport struct {
	Audio []struct {
		Items []profilerItem `json:"_items"`
	} `json:"SPAudioDataType"`
}

type cameraReport struct {
	Cameras []profilerItem `json:"SPCameraDataType"`
}

// ParseAudioInputs 只保留带输入能力的音频设备
func ParseAudioInputs(data []byte) ([]model.Device, error) {
	var report audioReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrap(err, "decode SPAudioDataType")
	}
	if len(report.Audio) == 0 {
		return nil, nil
	}
	var devices []model.Device
	for _, item := range report.Audio[0].Items {
		if item.Name == "" {
			continue
		}
		if !present(item.InputSource) && !present(item.DefaultInputDevice) {
			continue
		}
		devices = append(devices, model.Device{ID: deviceID(item.Name), Name: item.Name})
	}
	return devices, nil
}

// ParseCameras id 优先取 model-id，没有时退回设备名
func ParseCameras(data []byte) ([]model.Device, error) {
	var report cameraReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrap(err, "decode SPCameraDataType")
	}
	var devices []model.Device
	for _, item := range report.Cameras {
		if item.Name == "" {
			continue
		}
		id := item.ModelID
		if id == "" {
			id = item.Name
		}
		devices = append(devices, model.Device{ID: deviceID(id), Name: item.Name})
	}
	return devices, nil
}

var whitespace = regexp.MustCompile(`\s+`)

func deviceID(s string) string {
	return whitespace.ReplaceAllString(strings.ToLower(s), "-")
}

// present 字段存在且不是零值 (system_profiler 里这些字段通常是 "spaudio_yes" 之类的字符串)
func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	default:
		return true
	}
}
