package analysis

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// USB Video Class 接口常量
const (
	USBClassVideo             = 14
	USBSubClassVideoStreaming = 2
)

var (
	numberValue = regexp.MustCompile(`=\s*(\d+)`)
	bufferBytes = regexp.MustCompile(`"Bytes"=(\d+)`)
)

// USBVideoStreaming 解析 `ioreg -r -c IOUSBHostInterface -l` 的输出
// 某个接口同时满足 bInterfaceClass=14 (Video)、bInterfaceSubClass=2 (Streaming)
// 且 UsbUserClientBufferAllocations 的 Bytes > 0，则认为 USB 摄像头正在推流
func USBVideoStreaming(output string) bool {
	interfaceClass, interfaceSubClass := 0, 0

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "bInterfaceClass"):
			if m := numberValue.FindStringSubmatch(line); m != nil {
				interfaceClass, _ = strconv.Atoi(m[1])
			}
		case strings.Contains(line, "bInterfaceSubClass"):
			if m := numberValue.FindStringSubmatch(line); m != nil {
				interfaceSubClass, _ = strconv.Atoi(m[1])
			}
		case strings.Contains(line, "UsbUserClientBufferAllocations"):
			if m := bufferBytes.FindStringSubmatch(line); m != nil {
				n, _ := strconv.Atoi(m[1])
				if interfaceClass == USBClassVideo &&
					interfaceSubClass == USBSubClassVideoStreaming &&
					n > 0 {
					return true
				}
			}
			// 下一个接口重新计数
			interfaceClass, interfaceSubClass = 0, 0
		}
	}
	return false
}
