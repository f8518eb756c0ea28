package monitor

import (
	"context"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Hara602/avSentry/internal/clock"
	"github.com/Hara602/avSentry/internal/model"
	"github.com/Hara602/avSentry/internal/sysutil"
)

// aggregator 所有状态只在 run goroutine 中读写
type aggregator struct {
	opts Options
	log  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	statuses chan model.MonitorStatus
	errs     chan error
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu      sync.Mutex
	started bool

	// run goroutine 独占
	camera     model.DeviceStatus
	microphone model.DeviceStatus
	inventory  model.Inventory
	refreshing bool
}

func newAggregator(opts Options) *aggregator {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = DefaultInitialDelay
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &aggregator{
		opts:     opts,
		log:      sysutil.OrNop(opts.Logger),
		ctx:      ctx,
		cancel:   cancel,
		statuses: make(chan model.MonitorStatus, 10),
		errs:     make(chan error, 10),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (a *aggregator) Start() (<-chan model.MonitorStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil, errors.New("monitor already started")
	}
	if a.stopped() {
		return nil, errors.New("monitor already stopped")
	}

	a.inventory = a.opts.Inventory.Discover(a.ctx)
	a.log.Info("🔍 devices discovered",
		zap.Int("video", len(a.inventory.VideoDevices)),
		zap.Int("audio", len(a.inventory.AudioInputs)))

	cameraEvents, err := a.opts.Camera.Start()
	if err != nil {
		return nil, errors.Wrap(err, "start camera detector")
	}
	micEvents, err := a.opts.Microphone.Start()
	if err != nil {
		a.opts.Camera.Stop()
		return nil, errors.Wrap(err, "start microphone detector")
	}

	a.camera = a.opts.Camera.Status()
	a.microphone = a.opts.Microphone.Status()
	a.started = true

	go a.run(cameraEvents, micEvents)
	return a.statuses, nil
}

func (a *aggregator) Errors() <-chan error {
	return a.errs
}

func (a *aggregator) Stop() {
	a.stopOnce.Do(func() {
		close(a.stop)
		a.cancel()

		a.mu.Lock()
		started := a.started
		a.mu.Unlock()

		if !started {
			close(a.statuses)
			close(a.errs)
			return
		}
		a.opts.Camera.Stop()
		a.opts.Microphone.Stop()
		<-a.done
		a.log.Info("monitor stopped")
	})
}

func (a *aggregator) stopped() bool {
	select {
	case <-a.stop:
		return true
	default:
		return false
	}
}

func (a *aggregator) run(cameraEvents, micEvents <-chan model.DetectorEvent) {
	defer close(a.done)
	defer close(a.errs)
	defer close(a.statuses)

	initial := a.opts.Clock.After(a.opts.InitialDelay)
	refresh := a.opts.Clock.NewTicker(a.opts.RefreshInterval)
	defer refresh.Stop()
	inventories := make(chan model.Inventory)

	for {
		select {
		case <-a.stop:
			return
		case ev, ok := <-cameraEvents:
			if !ok {
				cameraEvents = nil
				continue
			}
			a.handle(ev)
		case ev, ok := <-micEvents:
			if !ok {
				micEvents = nil
				continue
			}
			a.handle(ev)
		case <-initial:
			initial = nil
			a.publish()
		case <-refresh.C:
			a.startRefresh(inventories)
		case inv := <-inventories:
			a.refreshing = false
			a.applyInventory(inv)
		}
	}
}

// handle 每个变化事件都发布一次快照，不合并
func (a *aggregator) handle(ev model.DetectorEvent) {
	switch ev.Kind {
	case model.EventError:
		if ev.Err == nil {
			return
		}
		a.log.Warn("detector error", zap.String("device", string(ev.Class)), zap.Error(ev.Err))
		select {
		case a.errs <- errors.Wrapf(ev.Err, "%s", ev.Class):
		case <-a.stop:
		}
	case model.EventChange:
		if ev.Class == model.Camera {
			a.camera = ev.Status
		} else {
			a.microphone = ev.Status
		}
		a.publish()
	}
}

// startRefresh system_profiler 较慢，放到单独的 goroutine 里跑，结果回到 run 处理
// 上一次刷新未完成时跳过本次
func (a *aggregator) startRefresh(inventories chan<- model.Inventory) {
	if a.refreshing {
		return
	}
	a.refreshing = true
	go func() {
		inv := a.opts.Inventory.Discover(a.ctx)
		select {
		case inventories <- inv:
		case <-a.stop:
		}
	}()
}

// applyInventory 清单 (含顺序) 没变时不发布
func (a *aggregator) applyInventory(inv model.Inventory) {
	if slices.Equal(inv.VideoDevices, a.inventory.VideoDevices) &&
		slices.Equal(inv.AudioInputs, a.inventory.AudioInputs) {
		return
	}
	a.log.Info("🔄 device list changed",
		zap.Int("video", len(inv.VideoDevices)),
		zap.Int("audio", len(inv.AudioInputs)))
	a.inventory = inv
	a.publish()
}

func (a *aggregator) publish() {
	status := model.MonitorStatus{
		Camera:     a.camera,
		Microphone: a.microphone,
		Devices:    a.buildDeviceList(),
	}
	if a.opts.ShowProcess && a.opts.Attributor != nil {
		status.Processes = a.attribute()
	}

	select {
	case a.statuses <- status:
	case <-a.stop:
	}
}

// buildDeviceList 视频设备在前，音频设备在后
func (a *aggregator) buildDeviceList() []model.DeviceInfo {
	devices := make([]model.DeviceInfo, 0, len(a.inventory.VideoDevices)+len(a.inventory.AudioInputs))
	for _, d := range a.inventory.VideoDevices {
		devices = append(devices, model.DeviceInfo{
			ID:        d.ID,
			Name:      d.Name,
			Type:      model.Video,
			Active:    a.camera.Active,
			Timestamp: a.camera.Timestamp,
		})
	}
	for _, d := range a.inventory.AudioInputs {
		devices = append(devices, model.DeviceInfo{
			ID:        d.ID,
			Name:      d.Name,
			Type:      model.Audio,
			Active:    a.microphone.Active,
			Timestamp: a.microphone.Timestamp,
		})
	}
	return devices
}

// attribute 未激活的类别直接给空列表，不去调用 lsof
func (a *aggregator) attribute() *model.ProcessAttribution {
	p := &model.ProcessAttribution{
		Camera:     []model.ProcessInfo{},
		Microphone: []model.ProcessInfo{},
	}

	var wg sync.WaitGroup
	if a.camera.Active {
		wg.Add(1)
		go func() {
			defer wg.Done()
			procs, err := a.opts.Attributor.CameraProcesses(a.ctx)
			if err != nil {
				a.log.Debug("camera attribution failed", zap.Error(err))
				return
			}
			p.Camera = procs
		}()
	}
	if a.microphone.Active {
		wg.Add(1)
		go func() {
			defer wg.Done()
			procs, err := a.opts.Attributor.MicrophoneProcesses(a.ctx)
			if err != nil {
				a.log.Debug("microphone attribution failed", zap.Error(err))
				return
			}
			p.Microphone = procs
		}()
	}
	wg.Wait()
	return p
}
