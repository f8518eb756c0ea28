package analysis

import (
	"regexp"
	"strings"

	"github.com/Hara602/avSentry/internal/model"
)

// FilterDiagnostic log stream 启动时打印的提示，不是状态变化
const FilterDiagnostic = "Filtering the log data"

var (
	streamingState = regexp.MustCompile(`name:\s*Streaming,\s*state:\s*(\d+)`)
	word           = regexp.MustCompile(`[a-z]+`)
)

// IsFilterDiagnostic 判断是否为 log stream 自身的过滤提示
func IsFilterDiagnostic(line string) bool {
	return strings.Contains(line, FilterDiagnostic)
}

// ParseCameraLine 从摄像头日志行中提取状态，ok=false 表示该行与状态无关
func ParseCameraLine(arch model.Architecture, line string) (active bool, ok bool) {
	if IsFilterDiagnostic(line) {
		return false, false
	}

	if arch == model.ARM64 {
		m := streamingState.FindStringSubmatch(line)
		if m == nil {
			return false, false
		}
		return m[1] == "1", true
	}

	// Intel: UVCExtension 的 "Post PowerLog" 行
	lower := strings.ToLower(line)
	if !strings.Contains(lower, "post powerlog") {
		return false, false
	}
	// 按单词匹配，避免 "extension" 这类单词里的 "on" 被误判
	for _, w := range word.FindAllString(lower, -1) {
		switch w {
		case "on", "start":
			return true, true
		case "off", "stop":
			return false, true
		}
	}
	return false, false
}

// ParseMicrophoneLine 解析内核 "Digital Mic" 日志行
func ParseMicrophoneLine(line string) (active bool, ok bool) {
	if IsFilterDiagnostic(line) {
		return false, false
	}
	switch {
	case strings.Contains(line, "Digital Mic: streaming audio"):
		return true, true
	case strings.Contains(line, "Digital Mic: off"):
		return false, true
	}
	return false, false
}
