package watcher

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Hara602/avSentry/internal/clock"
	"github.com/Hara602/avSentry/internal/model"
	"github.com/Hara602/avSentry/internal/sysutil"
)

const (
	cmdDriver    = "ioreg -l"
	cmdBuiltIn   = "ioreg -r -c AppleH13CamIn"
	cmdUSB       = "ioreg -r -c IOUSBHostInterface -l"
	cmdDigital   = "ioreg -r -d1 -c AppleExternalSecondaryAudio"
	cmdHDAEngine = "ioreg -c AppleHDAEngineInput -k IOAudioEngineState"

	driverOutput = `+-o AppleH13CamIn  <class AppleH13CamIn, id 0x1000002f3>`
	builtInOn    = `    "FrontCameraStreaming" = Yes`
	builtInOff   = `    "FrontCameraStreaming" = No`
	usbStreaming = "\"bInterfaceClass\" = 14\n\"bInterfaceSubClass\" = 2\n\"UsbUserClientBufferAllocations\" = {\"Bytes\"=65536}\n"
	micRunning   = "\"Digital Mic\"\n\"is running\" = Yes\n"
	micIdle      = "\"Digital Mic\"\n\"is running\" = No\n"
	hdaEngineOn  = `"IOAudioEngineState" = 1`
	hdaEngineOff = `"IOAudioEngineState" = 0`
	eventWait    = 2 * time.Second
	quietWait    = 100 * time.Millisecond
)

var epoch = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

// fakeRunner 按完整命令行返回预设输出
type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	calls   map[string]int
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: map[string]string{},
		errs:    map[string]error{},
		calls:   map[string]int{},
	}
}

func (r *fakeRunner) set(cmd, out string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[cmd] = out
	delete(r.errs, cmd)
}

func (r *fakeRunner) fail(cmd string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[cmd] = err
}

func (r *fakeRunner) count(cmd string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[cmd]
}

func (r *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[key]++
	if err := r.errs[key]; err != nil {
		return nil, err
	}
	return []byte(r.outputs[key]), nil
}

// waitCalls 等待某条命令被调用至少 n 次
func (r *fakeRunner) waitCalls(t *testing.T, cmd string, n int) {
	t.Helper()
	deadline := time.Now().Add(eventWait)
	for time.Now().Before(deadline) {
		if r.count(cmd) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%q called %d times, want at least %d", cmd, r.count(cmd), n)
}

type exitError int

func (e exitError) Error() string { return "exit status" }
func (e exitError) ExitCode() int { return int(e) }

// fakeProcess 用 io.Pipe 模拟 log stream 的输出
type fakeProcess struct {
	stdoutR, stderrR *io.PipeReader
	stdoutW, stderrW *io.PipeWriter
	noStdout         bool
	waitErr          error

	once       sync.Once
	terminated chan struct{}
}

func newFakeProcess() *fakeProcess {
	p := &fakeProcess{terminated: make(chan struct{})}
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return p
}

func (p *fakeProcess) Stdout() io.Reader {
	if p.noStdout {
		return nil
	}
	return p.stdoutR
}

func (p *fakeProcess) Stderr() io.Reader { return p.stderrR }
func (p *fakeProcess) Wait() error       { return p.waitErr }

func (p *fakeProcess) Terminate() error {
	p.once.Do(func() { close(p.terminated) })
	p.exit()
	return nil
}

// exit 模拟进程自行退出
func (p *fakeProcess) exit() {
	_ = p.stdoutW.Close()
	_ = p.stderrW.Close()
}

func (p *fakeProcess) writeLine(t *testing.T, line string) {
	t.Helper()
	if _, err := p.stdoutW.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write stdout: %v", err)
	}
}

func (p *fakeProcess) writeStderr(t *testing.T, line string) {
	t.Helper()
	if _, err := p.stderrW.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write stderr: %v", err)
	}
}

func (p *fakeProcess) isTerminated() bool {
	select {
	case <-p.terminated:
		return true
	default:
		return false
	}
}

type fakeSpawner struct {
	mu    sync.Mutex
	proc  *fakeProcess
	err   error
	calls int
	args  []string
}

func (s *fakeSpawner) Spawn(name string, args ...string) (sysutil.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.args = append([]string{name}, args...)
	if s.err != nil {
		return nil, s.err
	}
	return s.proc, nil
}

func (s *fakeSpawner) spawnCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type harness struct {
	runner  *fakeRunner
	spawner *fakeSpawner
	clock   *clock.FakeClock
}

func newHarness() *harness {
	return &harness{
		runner:  newFakeRunner(),
		spawner: &fakeSpawner{proc: newFakeProcess()},
		clock:   clock.Fake(epoch),
	}
}

func (h *harness) options(arch model.Architecture) Options {
	return Options{
		Arch:         arch,
		PollInterval: DefaultPollInterval,
		Runner:       h.runner,
		Spawner:      h.spawner,
		Clock:        h.clock,
	}
}

// tick 等 ticker 注册后推进一个轮询周期
func (h *harness) tick() {
	h.clock.WaitForTimers(1)
	h.clock.Advance(DefaultPollInterval)
}

func nextEvent(t *testing.T, events <-chan model.DetectorEvent) model.DetectorEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("event channel closed unexpectedly")
		}
		return ev
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for detector event")
	}
	return model.DetectorEvent{}
}

func nextChange(t *testing.T, events <-chan model.DetectorEvent) model.DetectorEvent {
	t.Helper()
	for {
		ev := nextEvent(t, events)
		if ev.Kind == model.EventChange {
			return ev
		}
	}
}

func nextError(t *testing.T, events <-chan model.DetectorEvent) model.DetectorEvent {
	t.Helper()
	for {
		ev := nextEvent(t, events)
		if ev.Kind == model.EventError {
			return ev
		}
	}
}

func expectNoChange(t *testing.T, events <-chan model.DetectorEvent) {
	t.Helper()
	timeout := time.After(quietWait)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == model.EventChange {
				t.Fatalf("unexpected change event: %+v", ev.Status)
			}
		case <-timeout:
			return
		}
	}
}

func expectNoEvent(t *testing.T, events <-chan model.DetectorEvent) {
	t.Helper()
	select {
	case ev, ok := <-events:
		if ok {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(quietWait):
	}
}
