package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Hara602/avSentry/internal/model"
	"github.com/Hara602/avSentry/internal/sysutil"
)

const (
	DefaultTimeout = 5 * time.Second
	Title          = "avSentry"
)

var labels = map[model.DeviceClass]struct{ icon, name string }{
	model.Camera:     {"📹", "Camera"},
	model.Microphone: {"🎙️", "Microphone"},
}

// Notifier 通过 osascript 发送桌面通知
type Notifier struct {
	runner sysutil.Runner
}

func New(runner sysutil.Runner) *Notifier {
	if runner == nil {
		runner = sysutil.ExecRunner{Timeout: DefaultTimeout}
	}
	return &Notifier{runner: runner}
}

func (n *Notifier) Send(ctx context.Context, title, message string) error {
	_, err := n.runner.Output(ctx, "osascript", "-e", Script(title, message))
	return errors.Wrap(err, "osascript")
}

// DeviceChange 设备状态变化的通知
func (n *Notifier) DeviceChange(ctx context.Context, class model.DeviceClass, active bool) error {
	return n.Send(ctx, Title, Message(class, active))
}

func Message(class model.DeviceClass, active bool) string {
	l, ok := labels[class]
	if !ok {
		l.name = string(class)
	}
	if active {
		return fmt.Sprintf("%s %s is now active", l.icon, l.name)
	}
	return fmt.Sprintf("%s %s stopped", l.icon, l.name)
}

// Script AppleScript 字符串字面量里的反斜杠和双引号需要转义
func Script(title, message string) string {
	return fmt.Sprintf(`display notification "%s" with title "%s" sound name "default"`,
		escape(message), escape(title))
}

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escape(s string) string {
	return escaper.Replace(s)
}
