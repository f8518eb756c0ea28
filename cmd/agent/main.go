package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/Hara602/avSentry/internal/attribution"
	"github.com/Hara602/avSentry/internal/config"
	"github.com/Hara602/avSentry/internal/history"
	"github.com/Hara602/avSentry/internal/inventory"
	"github.com/Hara602/avSentry/internal/model"
	"github.com/Hara602/avSentry/internal/monitor"
	"github.com/Hara602/avSentry/internal/notify"
	"github.com/Hara602/avSentry/internal/output"
	"github.com/Hara602/avSentry/internal/sysutil"
	"github.com/Hara602/avSentry/internal/watcher"
)

const usage = `avSentry - Monitor camera and microphone usage on macOS

Usage: avsentry [options]

Options:
`

func main() {
	flags := config.NewFlags("avsentry")
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, usage+flags.Usage())
		os.Exit(2)
	}
	if flags.Help() {
		fmt.Print(usage + flags.Usage())
		return
	}
	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// 初始化日志 (stderr，stdout 留给状态输出)
	if err := sysutil.InitLogger(cfg.Log.Level); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer sysutil.Log.Sync()

	// 只支持 macOS：log stream / ioreg / system_profiler
	if !sysutil.IsDarwin() {
		sysutil.LogSugar.Fatal("avSentry only supports macOS")
	}
	arch, err := sysutil.Architecture()
	if err != nil {
		sysutil.Log.Fatal("Architecture probe failed", zap.Error(err))
	}

	sysutil.Log.Info("🛡️ avSentry Agent Starting...",
		zap.String("arch", string(arch)),
		zap.Duration("interval", cfg.Detector.PollInterval))

	display := output.NewDisplay(os.Stdout, os.Stderr, cfg.Output.JSON)
	display.Start(arch, cfg.Detector.PollInterval)

	// 初始化核心模块 (依赖注入)
	watcherOpts := watcher.Options{
		Arch:         arch,
		PollInterval: cfg.Detector.PollInterval,
		Runner:       sysutil.ExecRunner{Timeout: cfg.Detector.CommandTimeout},
		Logger:       sysutil.Log,
	}
	mon := monitor.New(monitor.Options{
		Camera:          watcher.NewCamera(watcherOpts),
		Microphone:      watcher.NewMicrophone(watcherOpts),
		Inventory:       inventory.New(nil, sysutil.Log),
		Attributor:      attribution.NewLsof(nil),
		ShowProcess:     cfg.Monitor.ShowProcess,
		RefreshInterval: cfg.Monitor.RefreshInterval,
		InitialDelay:    cfg.Monitor.InitialDelay,
		Logger:          sysutil.Log,
	})

	recorder, closeHistory := openHistory(cfg)
	defer closeHistory()
	if recorder != nil {
		if recent := recorder.Recent(); len(recent) > 0 {
			display.Info("Last event: " + strings.TrimSpace(history.FormatLogLine(recent[0])))
		}
	}

	var notifier *notify.Notifier
	if cfg.Output.Notify {
		notifier = notify.New(nil)
	}

	statuses, err := mon.Start()
	if err != nil {
		sysutil.Log.Fatal("Monitor init failed", zap.Error(err))
	}
	defer mon.Stop()

	// 捕获操作系统信号，优雅退出
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var last *model.MonitorStatus
	for {
		select {
		case status, ok := <-statuses:
			if !ok {
				return
			}
			for _, ev := range monitor.Transitions(last, status) {
				sysutil.Log.Info("📹 Device state changed",
					zap.String("device", string(ev.Class)),
					zap.Bool("active", ev.Active))
				if recorder != nil {
					recorder.Record(ev)
				}
				if notifier != nil {
					go sendNotification(notifier, ev)
				}
			}
			last = &status

			if _, err := display.Show(status); err != nil {
				sysutil.Log.Error("Failed to render status", zap.Error(err))
			}

		case err, ok := <-mon.Errors():
			if !ok {
				return
			}
			display.Error(err)

		case <-sigCh:
			display.Info("\nStopping monitor...")
			sysutil.Log.Info("Shutting down...")
			return
		}
	}
}

// openHistory 历史记录不可用时只告警，不影响监控
func openHistory(cfg *config.Config) (*history.Recorder, func()) {
	if !cfg.History.Enabled {
		return nil, func() {}
	}
	opts := history.Options{
		Size:    cfg.History.Size,
		LogFile: cfg.History.LogFile,
		Logger:  sysutil.Log,
	}
	if cfg.History.DBPath != "" {
		store, err := history.OpenStore(cfg.History.DBPath)
		if err != nil {
			sysutil.Log.Warn("History database unavailable", zap.String("path", cfg.History.DBPath), zap.Error(err))
		} else {
			opts.Store = store
		}
	}
	closeFn := func() {
		if opts.Store != nil {
			_ = opts.Store.Close()
		}
	}
	return history.NewRecorder(opts), closeFn
}

func sendNotification(n *notify.Notifier, ev model.HistoryEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), notify.DefaultTimeout)
	defer cancel()
	if err := n.DeviceChange(ctx, ev.Class, ev.Active); err != nil {
		sysutil.Log.Debug("Notification failed", zap.Error(err))
	}
}
