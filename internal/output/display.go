package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Hara602/avSentry/internal/model"
)

const (
	clearScreen = "\x1b[2J\x1b[H"
	// 光标上移一行并清除整行
	eraseLine = "\x1b[1A\x1b[2K"
)

// Display 把状态写到终端：JSON 模式每次一行，人类模式仅在内容变化时原地重绘
type Display struct {
	w     io.Writer
	errW  io.Writer
	json  bool
	human Human
	last  string
}

func NewDisplay(w, errW io.Writer, jsonOutput bool) *Display {
	return &Display{w: w, errW: errW, json: jsonOutput, human: NewHuman(w)}
}

// Show 返回是否真的输出了内容
func (d *Display) Show(status model.MonitorStatus) (bool, error) {
	if d.json {
		line, err := JSON(status)
		if err != nil {
			return false, err
		}
		_, err = fmt.Fprintln(d.w, line)
		return true, err
	}

	text := d.human.Status(status)
	if text == d.last {
		return false, nil
	}
	var b strings.Builder
	if d.last != "" {
		b.WriteString(strings.Repeat(eraseLine, strings.Count(d.last, "\n")+1))
	}
	b.WriteString(text)
	b.WriteString("\n")
	d.last = text
	_, err := io.WriteString(d.w, b.String())
	return true, err
}

func (d *Display) Error(err error) {
	if d.json {
		fmt.Fprintln(d.errW, ErrorJSON(err))
		return
	}
	fmt.Fprintln(d.errW, d.human.Error(err))
}

// Start 人类模式下清屏并打印头部
func (d *Display) Start(arch model.Architecture, interval time.Duration) {
	if d.json {
		return
	}
	_, _ = io.WriteString(d.w, clearScreen+d.human.Header(arch, interval)+"\n")
}

func (d *Display) Info(msg string) {
	if d.json {
		return
	}
	fmt.Fprintln(d.w, d.human.Info(msg))
}
