package model

import "time"

// Architecture CPU 架构类别，决定探测策略
type Architecture string

const (
	ARM64  Architecture = "arm64"
	X86_64 Architecture = "x86_64"
)

// ParseArchitecture uname 的 machine 字段只区分 arm64，其余一律按 x86_64 处理
func ParseArchitecture(machine string) Architecture {
	if machine == string(ARM64) {
		return ARM64
	}
	return X86_64
}

// DeviceClass 设备类别：摄像头 / 麦克风
type DeviceClass string

const (
	Camera     DeviceClass = "camera"
	Microphone DeviceClass = "microphone"
)

// DeviceType 展示用的设备类型
type DeviceType string

const (
	Audio DeviceType = "audio"
	Video DeviceType = "video"
)

// DeviceStatus 某一类设备最后已知的活动状态
type DeviceStatus struct {
	Active    bool
	Timestamp time.Time
}

// Device 设备清单中的一项 (来自 system_profiler)
type Device struct {
	ID   string
	Name string
}

// Inventory 设备清单快照，刷新时整体替换
type Inventory struct {
	AudioInputs  []Device
	VideoDevices []Device
}

// DeviceInfo 设备身份 + 所属类别的活动状态，每次发布时重新生成
type DeviceInfo struct {
	ID        string
	Name      string
	Type      DeviceType
	Active    bool
	Timestamp time.Time
}

// ProcessInfo 占用设备的进程 (尽力而为)
type ProcessInfo struct {
	PID  int
	Name string
}

type ProcessAttribution struct {
	Camera     []ProcessInfo
	Microphone []ProcessInfo
}

// MonitorStatus 发布单元，发布后不再修改
type MonitorStatus struct {
	Camera     DeviceStatus
	Microphone DeviceStatus
	Devices    []DeviceInfo
	Processes  *ProcessAttribution // 未开启进程归属时为 nil
}

// EventKind 检测器事件类型
type EventKind string

const (
	EventChange EventKind = "change"
	EventError  EventKind = "error"
)

// DetectorEvent 检测器输出事件
type DetectorEvent struct {
	Class  DeviceClass
	Kind   EventKind
	Status DeviceStatus // Kind == EventChange 时有效
	Err    error        // Kind == EventError 时有效
}

// HistoryEvent 状态变化历史记录
type HistoryEvent struct {
	Timestamp time.Time
	Class     DeviceClass
	Active    bool
}
