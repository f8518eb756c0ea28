package watcher

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Hara602/avSentry/internal/analysis"
	"github.com/Hara602/avSentry/internal/clock"
	"github.com/Hara602/avSentry/internal/model"
	"github.com/Hara602/avSentry/internal/sysutil"
)

const (
	sourceProbe  = "probe"
	sourceStream = "stream"
	sourcePoll   = "poll"
)

// maxLineSize 单行日志上限，超过后读取失败
const maxLineSize = 1024 * 1024

// detectorTraits 摄像头与麦克风的行为差异
type detectorTraits struct {
	reportStderr   bool // log stream 的 stderr 作为错误上报
	optionalStream bool // 订阅失败时静默退化为纯轮询
}

// observation 来自日志流或轮询的一次观测，err 非空表示一次失败
type observation struct {
	active bool
	source string
	err    error
}

// detector 两个生产者 (日志流、轮询) + 一个消费者 (reduce) 的小 actor
// active 只由 reduce goroutine 修改
type detector struct {
	class    model.DeviceClass
	strategy strategy
	traits   detectorTraits
	interval time.Duration
	spawner  sysutil.Spawner
	clock    clock.Clock
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	observations chan observation
	events       chan model.DetectorEvent
	stop         chan struct{}
	stopOnce     sync.Once
	done         chan struct{} // reduce 退出后关闭

	mu      sync.Mutex
	status  model.DeviceStatus
	started bool
	proc    sysutil.Process
}

func newDetector(class model.DeviceClass, s strategy, traits detectorTraits, opts Options) *detector {
	ctx, cancel := context.WithCancel(context.Background())
	return &detector{
		class:        class,
		strategy:     s,
		traits:       traits,
		interval:     opts.PollInterval,
		spawner:      opts.Spawner,
		clock:        opts.Clock,
		log:          opts.Logger.With(zap.String("device", string(class))),
		ctx:          ctx,
		cancel:       cancel,
		observations: make(chan observation, 16),
		events:       make(chan model.DetectorEvent, 10),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (d *detector) Start() (<-chan model.DetectorEvent, error) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return nil, errors.Errorf("%s detector already started", d.class)
	}
	if d.stopped() {
		d.mu.Unlock()
		return nil, errors.Errorf("%s detector already stopped", d.class)
	}
	d.started = true
	d.mu.Unlock()

	// 同步探测，确定初始状态
	active, err := d.strategy.probe(d.ctx)
	if err != nil {
		d.log.Warn("initial probe failed", zap.Error(err))
		d.observations <- observation{source: sourceProbe, err: errors.Wrap(err, "initial probe")}
	}
	d.setStatus(model.DeviceStatus{Active: active, Timestamp: d.clock.Now()})

	go d.reduce(active)

	if predicate := d.strategy.predicate(); predicate != "" {
		d.startStream(predicate)
	}
	go d.pollLoop()

	d.log.Info("🎛️ detector started",
		zap.String("strategy", d.strategy.name()),
		zap.Bool("active", active),
		zap.Duration("interval", d.interval))
	return d.events, nil
}

func (d *detector) Status() model.DeviceStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

func (d *detector) Stop() {
	d.stopOnce.Do(func() {
		close(d.stop)
		d.cancel()

		d.mu.Lock()
		proc, started := d.proc, d.started
		d.proc = nil
		d.mu.Unlock()

		if proc != nil {
			if err := proc.Terminate(); err != nil {
				d.log.Warn("failed to terminate log stream", zap.Error(err))
			}
		}
		if started {
			<-d.done
		}
		d.log.Info("detector stopped")
	})
}

func (d *detector) stopped() bool {
	select {
	case <-d.stop:
		return true
	default:
		return false
	}
}

func (d *detector) setStatus(s model.DeviceStatus) {
	d.mu.Lock()
	d.status = s
	d.mu.Unlock()
}

// observe 生产者投递观测；已 stop 时直接丢弃
func (d *detector) observe(o observation) {
	select {
	case d.observations <- o:
	case <-d.stop:
	}
}

// reduce 唯一修改状态、唯一发布事件的地方
// 最后一次观测为准，只在值发生变化时发布 change
func (d *detector) reduce(active bool) {
	defer close(d.done)
	defer close(d.events)

	for {
		select {
		case <-d.stop:
			return
		case o := <-d.observations:
			// stop 与观测同时就绪时 select 随机选择，再确认一次
			if d.stopped() {
				return
			}
			if o.err != nil {
				if !d.emit(model.DetectorEvent{Class: d.class, Kind: model.EventError, Err: o.err}) {
					return
				}
				continue
			}
			if o.active == active {
				continue
			}
			active = o.active
			status := model.DeviceStatus{Active: active, Timestamp: d.clock.Now()}
			d.setStatus(status)
			d.log.Debug("state changed", zap.Bool("active", active), zap.String("source", o.source))
			if !d.emit(model.DetectorEvent{Class: d.class, Kind: model.EventChange, Status: status}) {
				return
			}
		}
	}
}

func (d *detector) emit(ev model.DetectorEvent) bool {
	select {
	case d.events <- ev:
		return true
	case <-d.stop:
		return false
	}
}

// pollLoop 定时权威探测；同一个 goroutine 串行执行，不会出现重叠的探测
func (d *detector) pollLoop() {
	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			active, err := d.strategy.probe(d.ctx)
			// stop 之后才返回的结果直接丢弃
			if d.stopped() {
				return
			}
			if err != nil {
				d.observe(observation{source: sourcePoll, err: errors.Wrapf(err, "%s poll", d.class)})
				continue
			}
			d.observe(observation{active: active, source: sourcePoll})
		}
	}
}

func (d *detector) startStream(predicate string) {
	proc, err := d.spawner.Spawn(logBinary, "stream", "--predicate", predicate)
	if err == nil && proc.Stdout() == nil {
		_ = proc.Terminate()
		proc, err = nil, errors.Wrap(sysutil.ErrNoOutput, "log stream")
	}
	if err != nil {
		if d.traits.optionalStream {
			d.log.Warn("log stream unavailable, falling back to polling", zap.Error(err))
			// 缺少 stdout 只影响辅助信号，不上报
			if errors.Is(err, sysutil.ErrNoOutput) {
				return
			}
		}
		d.observe(observation{source: sourceStream, err: err})
		return
	}

	d.mu.Lock()
	if d.stopped() {
		d.mu.Unlock()
		_ = proc.Terminate()
		return
	}
	d.proc = proc
	d.mu.Unlock()

	go d.readStream(proc)
}

func (d *detector) readStream(proc sysutil.Process) {
	var wg sync.WaitGroup
	if stderr := proc.Stderr(); stderr != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.readStderr(stderr)
		}()
	}

	scanner := bufio.NewScanner(proc.Stdout())
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		if active, ok := d.strategy.parseLine(scanner.Text()); ok {
			d.observe(observation{active: active, source: sourceStream})
		}
	}
	// 读取失败后没人再读 stdout，进程会卡在写满的管道上，先上报再终止
	if err := scanner.Err(); err != nil {
		if !d.stopped() {
			d.observe(observation{source: sourceStream, err: errors.Wrap(err, "read log stream")})
		}
		_ = proc.Terminate()
	}
	wg.Wait()
	waitErr := proc.Wait()

	if d.stopped() {
		return
	}
	if code := sysutil.ExitCode(waitErr); code > 0 {
		d.observe(observation{source: sourceStream, err: errors.Errorf("log stream exited with code %d", code)})
	}
	if d.traits.optionalStream {
		d.log.Warn("log stream ended, continuing with polling only")
	}
}

func (d *detector) readStderr(r io.Reader) {
	if !d.traits.reportStderr {
		_, _ = io.Copy(io.Discard, r)
		return
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		msg := strings.TrimSpace(scanner.Text())
		if msg == "" || analysis.IsFilterDiagnostic(msg) {
			continue
		}
		d.observe(observation{source: sourceStream, err: errors.Errorf("log stream error: %s", msg)})
	}
	// 超长行之后继续排空，避免阻塞进程
	_, _ = io.Copy(io.Discard, r)
}
