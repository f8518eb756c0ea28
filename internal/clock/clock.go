// Package clock 抽象时间操作。生产代码使用 Real()，测试使用 Fake() 手动推进时间。
package clock

import "time"

type Clock interface {
	Now() time.Time
	// After d 之后向返回的 channel 写入一次当前时间
	After(d time.Duration) <-chan time.Time
	// NewTicker d <= 0 时 panic，与 time.NewTicker 一致
	NewTicker(d time.Duration) *Ticker
}

// Ticker C 容量为 1，消费跟不上时丢弃 tick
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop 之后不再有 tick，C 不会被关闭
func (t *Ticker) Stop() { t.stopFunc() }

func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stopFunc: t.Stop}
}
