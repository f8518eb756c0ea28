package monitor

import "github.com/Hara602/avSentry/internal/model"

// Transitions 两个相邻快照之间发生变化的类别，prev 为 nil 时 (第一次快照) 没有变化
func Transitions(prev *model.MonitorStatus, cur model.MonitorStatus) []model.HistoryEvent {
	if prev == nil {
		return nil
	}
	var events []model.HistoryEvent
	if prev.Camera.Active != cur.Camera.Active {
		events = append(events, model.HistoryEvent{Timestamp: cur.Camera.Timestamp, Class: model.Camera, Active: cur.Camera.Active})
	}
	if prev.Microphone.Active != cur.Microphone.Active {
		events = append(events, model.HistoryEvent{Timestamp: cur.Microphone.Timestamp, Class: model.Microphone, Active: cur.Microphone.Active})
	}
	return events
}
