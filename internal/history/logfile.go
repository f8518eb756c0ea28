package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/Hara602/avSentry/internal/model"
)

const logTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatLogLine 形如 [2024-01-01T12:00:00.000Z] CAMERA ACTIVE
func FormatLogLine(ev model.HistoryEvent) string {
	status := "STOPPED"
	if ev.Active {
		status = "ACTIVE"
	}
	ts := ev.Timestamp.UTC().Format(logTimeLayout)
	return fmt.Sprintf("[%s] %s %s\n", ts, strings.ToUpper(string(ev.Class)), status)
}

// AppendLogLine 追加一行到事件日志，目录不存在时创建
func AppendLogLine(path string, ev model.HistoryEvent) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create log dir")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "open event log")
	}
	if _, err := f.WriteString(FormatLogLine(ev)); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write event log")
	}
	return f.Close()
}
