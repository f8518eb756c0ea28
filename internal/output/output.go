package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/Hara602/avSentry/internal/model"
)

// TimeLayout RFC3339，固定三位毫秒
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	videoSymbol = "📹"
	audioSymbol = "🎙️"
)

type jsonStatus struct {
	Active    bool   `json:"active"`
	Timestamp string `json:"timestamp"`
}

type jsonDevice struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Active    bool   `json:"active"`
	Timestamp string `json:"timestamp"`
}

type jsonProcess struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
}

type jsonProcesses struct {
	Camera     []jsonProcess `json:"camera"`
	Microphone []jsonProcess `json:"microphone"`
}

type jsonSnapshot struct {
	Camera     jsonStatus     `json:"camera"`
	Microphone jsonStatus     `json:"microphone"`
	Devices    []jsonDevice   `json:"devices"`
	Processes  *jsonProcesses `json:"processes,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// JSON 单行 JSON，时间统一转成 UTC
func JSON(status model.MonitorStatus) (string, error) {
	snap := jsonSnapshot{
		Camera:     jsonStatus{Active: status.Camera.Active, Timestamp: formatTime(status.Camera.Timestamp)},
		Microphone: jsonStatus{Active: status.Microphone.Active, Timestamp: formatTime(status.Microphone.Timestamp)},
		Devices:    make([]jsonDevice, 0, len(status.Devices)),
	}
	for _, d := range status.Devices {
		snap.Devices = append(snap.Devices, jsonDevice{
			ID:        d.ID,
			Name:      d.Name,
			Type:      string(d.Type),
			Active:    d.Active,
			Timestamp: formatTime(d.Timestamp),
		})
	}
	if p := status.Processes; p != nil {
		snap.Processes = &jsonProcesses{
			Camera:     toJSONProcesses(p.Camera),
			Microphone: toJSONProcesses(p.Microphone),
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return "", errors.Wrap(err, "encode status")
	}
	return string(data), nil
}

func toJSONProcesses(ps []model.ProcessInfo) []jsonProcess {
	out := make([]jsonProcess, 0, len(ps))
	for _, p := range ps {
		out = append(out, jsonProcess{PID: p.PID, Name: p.Name})
	}
	return out
}

// ErrorJSON JSON 模式下的错误行
func ErrorJSON(err error) string {
	data, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{err.Error()})
	return string(data)
}

// Human 终端展示用的状态卡片 + 设备列表
type Human struct {
	active lipgloss.Style
	idle   lipgloss.Style
	dim    lipgloss.Style
	bold   lipgloss.Style
	errTag lipgloss.Style
}

// NewHuman 颜色能力按 w 检测，写到管道或文件时自动退化为纯文本
func NewHuman(w io.Writer) Human {
	r := lipgloss.NewRenderer(w)
	return Human{
		active: r.NewStyle().Background(lipgloss.Color("1")).Foreground(lipgloss.Color("15")).Bold(true),
		idle:   r.NewStyle().Background(lipgloss.Color("8")).Foreground(lipgloss.Color("15")),
		dim:    r.NewStyle().Faint(true),
		bold:   r.NewStyle().Bold(true),
		errTag: r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

func (h Human) card(label, symbol string, active bool) string {
	if active {
		return h.active.Render(fmt.Sprintf(" %s  %s: ACTIVE ", symbol, label))
	}
	return h.idle.Render(fmt.Sprintf(" %s  %s: idle   ", symbol, label))
}

func (h Human) Status(status model.MonitorStatus) string {
	var lines []string
	lines = append(lines,
		h.card("Video", videoSymbol, status.Camera.Active)+"    "+h.card("Audio", audioSymbol, status.Microphone.Active),
		"",
		h.dim.Render("─── Devices ───"),
		"",
	)
	for _, d := range status.Devices {
		symbol := audioSymbol
		if d.Type == model.Video {
			symbol = videoSymbol
		}
		lines = append(lines, h.dim.Render(fmt.Sprintf("  %s  %s", symbol, d.Name)))
	}

	if p := status.Processes; p != nil && (len(p.Camera) > 0 || len(p.Microphone) > 0) {
		lines = append(lines, "", h.dim.Render("─── Processes ───"), "")
		for _, proc := range p.Camera {
			lines = append(lines, fmt.Sprintf("  %s  %s (%d)", videoSymbol, proc.Name, proc.PID))
		}
		for _, proc := range p.Microphone {
			lines = append(lines, fmt.Sprintf("  %s  %s (%d)", audioSymbol, proc.Name, proc.PID))
		}
	}
	return strings.Join(lines, "\n")
}

func (h Human) Header(arch model.Architecture, interval time.Duration) string {
	return strings.Join([]string{
		h.bold.Render("avSentry") + " - macOS Camera/Microphone Monitor",
		h.dim.Render("Press Ctrl+C to exit"),
		"",
		h.dim.Render(fmt.Sprintf("Architecture: %s", arch)),
		h.dim.Render(fmt.Sprintf("Microphone poll interval: %dms", interval.Milliseconds())),
		"",
	}, "\n")
}

func (h Human) Error(err error) string {
	return h.errTag.Render("Error:") + " " + err.Error()
}

func (h Human) Info(msg string) string {
	return h.dim.Render(msg)
}
