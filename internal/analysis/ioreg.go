package analysis

import (
	"bufio"
	"regexp"
	"strings"
)

// DefaultCameraDriver ioreg 中找不到驱动名时的默认值
const DefaultCameraDriver = "AppleH13CamIn"

// digitalMicWindow "Digital Mic" 之后检查的行数
const digitalMicWindow = 30

var (
	cameraDriver     = regexp.MustCompile(`AppleH[0-9]*CamIn`)
	audioEngineState = regexp.MustCompile(`IOAudioEngineState"?\s*=\s*(\d+)`)
)

// CameraDriverName 从 `ioreg -l` 输出中取第一个 AppleH<n>CamIn
func CameraDriverName(output string) string {
	if name := cameraDriver.FindString(output); name != "" {
		return name
	}
	return DefaultCameraDriver
}

// BuiltInCameraStreaming `ioreg -r -c <driver>` 中 FrontCameraStreaming = Yes
func BuiltInCameraStreaming(output string) bool {
	for _, line := range lines(output) {
		if strings.Contains(line, "FrontCameraStreaming") && strings.Contains(line, "= Yes") {
			return true
		}
	}
	return false
}

// DigitalMicRunning `ioreg -r -d1 -c AppleExternalSecondaryAudio` 中，
// "Digital Mic" 附近的 "is running" 属性为 Yes
func DigitalMicRunning(output string) bool {
	ls := lines(output)
	for i, line := range ls {
		if !strings.Contains(line, "Digital Mic") {
			continue
		}
		end := min(i+digitalMicWindow, len(ls)-1)
		for _, l := range ls[i : end+1] {
			if strings.Contains(l, "is running") && strings.Contains(l, "= Yes") {
				return true
			}
		}
	}
	return false
}

// HDAEngineRunning `ioreg -c AppleHDAEngineInput -k IOAudioEngineState` 中第一个状态值为 1
func HDAEngineRunning(output string) bool {
	m := audioEngineState.FindStringSubmatch(output)
	return m != nil && m[1] == "1"
}

func lines(output string) []string {
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		out = append(out, scanner.Text())
	}
	return out
}
