package sysutil

import (
	"context"
	"io"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var (
	// ErrTimeout 外部命令超时，视为一次失败的轮询
	ErrTimeout = errors.New("command timed out")
	// ErrNoOutput 子进程没有可读的 stdout
	ErrNoOutput = errors.New("subprocess has no readable output")
)

// Runner 一次性执行外部命令并取回 stdout
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner 基于 os/exec 的 Runner，每次调用都有超时上限
type ExecRunner struct {
	Timeout time.Duration
}

func (r ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if ctxErr == context.DeadlineExceeded {
			return nil, errors.Wrapf(ErrTimeout, "%s after %v", name, r.Timeout)
		}
		return nil, ctxErr
	}
	if err != nil {
		// 非零退出码 = 工具没有给出数据，按"无数据"处理而不是错误
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out, nil
		}
		return nil, errors.Wrapf(err, "run %s", name)
	}
	return out, nil
}

// Process 长驻子进程 (log stream)
type Process interface {
	Stdout() io.Reader // 为 nil 表示拿不到输出
	Stderr() io.Reader
	// Wait 必须在 Stdout/Stderr 读完之后调用
	Wait() error
	// Terminate 发送 SIGTERM，可重复调用
	Terminate() error
}

// Spawner 启动长驻子进程
type Spawner interface {
	Spawn(name string, args ...string) (Process, error)
}

type ExecSpawner struct{}

func (ExecSpawner) Spawn(name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrapf(ErrNoOutput, "%s: %v", name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "stderr pipe for %s", name)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "spawn %s", name)
	}
	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr io.Reader
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }
func (p *execProcess) Wait() error       { return p.cmd.Wait() }

func (p *execProcess) Terminate() error {
	err := unix.Kill(p.cmd.Process.Pid, unix.SIGTERM)
	if err == unix.ESRCH {
		// 已经退出
		return nil
	}
	return err
}

// ExitCode 取子进程退出码；被信号终止时为 -1，正常为 0
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	// *exec.ExitError 通过内嵌的 *os.ProcessState 提供 ExitCode
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return -1
}
