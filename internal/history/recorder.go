package history

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Hara602/avSentry/internal/clock"
	"github.com/Hara602/avSentry/internal/model"
	"github.com/Hara602/avSentry/internal/sysutil"
)

const DefaultSize = 10

type Options struct {
	Size    int
	LogFile string // 为空时不写文件
	Store   *Store // 为 nil 时不落库
	Clock   clock.Clock
	Logger  *zap.Logger
}

// Recorder 保存最近的状态变化，并同步写入事件日志与数据库
// 文件和数据库的错误只记日志，不影响监控
type Recorder struct {
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	events []model.HistoryEvent // 新的在前
}

func NewRecorder(opts Options) *Recorder {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	r := &Recorder{opts: opts, log: sysutil.OrNop(opts.Logger)}
	// 从数据库恢复上次运行留下的记录
	if opts.Store != nil {
		events, err := opts.Store.Recent(opts.Size)
		if err != nil {
			r.log.Warn("failed to load event history", zap.Error(err))
		} else {
			r.events = events
		}
	}
	return r
}

// add 以当前时间记录一次状态变化
func (r *Recorder) add(class model.DeviceClass, active bool) model.HistoryEvent {
	ev := model.HistoryEvent{Timestamp: r.opts.Clock.Now(), Class: class, Active: active}
	r.Record(ev)
	return ev
}

func (r *Recorder) Record(ev model.HistoryEvent) {
	r.mu.Lock()
	r.events = append([]model.HistoryEvent{ev}, r.events...)
	if len(r.events) > r.opts.Size {
		r.events = r.events[:r.opts.Size]
	}
	r.mu.Unlock()

	if r.opts.LogFile != "" {
		if err := AppendLogLine(r.opts.LogFile, ev); err != nil {
			r.log.Warn("failed to append event log", zap.String("path", r.opts.LogFile), zap.Error(err))
		}
	}
	if r.opts.Store != nil {
		if err := r.opts.Store.Insert(ev); err != nil {
			r.log.Warn("failed to persist event", zap.Error(err))
		}
	}
}

// Recent 拷贝一份，新的在前
func (r *Recorder) Recent() []model.HistoryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.HistoryEvent, len(r.events))
	copy(out, r.events)
	return out
}
