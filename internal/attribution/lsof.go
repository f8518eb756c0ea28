package attribution

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Hara602/avSentry/internal/model"
	"github.com/Hara602/avSentry/internal/sysutil"
)

const DefaultTimeout = 10 * time.Second

var (
	// 打开摄像头的进程会持有这些名字的句柄
	cameraPatterns = []string{"VDC", "AppleCamera", "iSight", "FaceTime"}

	microphonePattern = "coreaudio"
	// 常驻使用 CoreAudio 的系统进程，不算占用麦克风
	systemAudioProcesses = map[string]bool{
		"coreaudiod":         true,
		"audiod":             true,
		"systemsoundserverd": true,
	}
)

// Attributor 找出正在使用设备的进程，尽力而为
type Attributor interface {
	CameraProcesses(ctx context.Context) ([]model.ProcessInfo, error)
	MicrophoneProcesses(ctx context.Context) ([]model.ProcessInfo, error)
}

// Lsof 基于 lsof 输出的进程归属
type Lsof struct {
	runner sysutil.Runner
}

func NewLsof(runner sysutil.Runner) *Lsof {
	if runner == nil {
		runner = sysutil.ExecRunner{Timeout: DefaultTimeout}
	}
	return &Lsof{runner: runner}
}

func (l *Lsof) CameraProcesses(ctx context.Context) ([]model.ProcessInfo, error) {
	out, err := l.listOpenFiles(ctx)
	if err != nil {
		return nil, err
	}
	return MatchCamera(out), nil
}

func (l *Lsof) MicrophoneProcesses(ctx context.Context) ([]model.ProcessInfo, error) {
	out, err := l.listOpenFiles(ctx)
	if err != nil {
		return nil, err
	}
	return MatchMicrophone(out), nil
}

func (l *Lsof) listOpenFiles(ctx context.Context) (string, error) {
	out, err := l.runner.Output(ctx, "lsof", "-n", "-P")
	if err != nil {
		return "", errors.Wrap(err, "lsof")
	}
	return string(out), nil
}

// MatchCamera 依次按各个模式匹配，按 PID 去重并保留首次出现的顺序
func MatchCamera(lsofOutput string) []model.ProcessInfo {
	c := newCollector()
	lines := strings.Split(lsofOutput, "\n")
	for _, pattern := range cameraPatterns {
		for _, line := range lines {
			if containsFold(line, pattern) {
				c.add(line)
			}
		}
	}
	return c.processes
}

func MatchMicrophone(lsofOutput string) []model.ProcessInfo {
	c := newCollector()
	for _, line := range strings.Split(lsofOutput, "\n") {
		if containsFold(line, microphonePattern) {
			c.add(line)
		}
	}

	processes := c.processes[:0]
	for _, p := range c.processes {
		if !systemAudioProcesses[strings.ToLower(p.Name)] {
			processes = append(processes, p)
		}
	}
	return processes
}

type collector struct {
	seen      map[int]bool
	processes []model.ProcessInfo
}

func newCollector() *collector {
	return &collector{seen: map[int]bool{}}
}

// add lsof 的前两列：COMMAND PID
func (c *collector) add(line string) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return
	}
	pid, err := strconv.Atoi(fields[1])
	if err != nil || c.seen[pid] {
		return
	}
	c.seen[pid] = true
	c.processes = append(c.processes, model.ProcessInfo{PID: pid, Name: fields[0]})
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
