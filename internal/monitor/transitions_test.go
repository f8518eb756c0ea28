package monitor

import (
	"testing"
	"time"

	"github.com/Hara602/avSentry/internal/model"
)

func snapshot(camera, mic bool, ts time.Time) model.MonitorStatus {
	return model.MonitorStatus{
		Camera:     model.DeviceStatus{Active: camera, Timestamp: ts},
		Microphone: model.DeviceStatus{Active: mic, Timestamp: ts},
	}
}

func TestTransitions(t *testing.T) {
	later := epoch.Add(time.Second)
	tests := []struct {
		name string
		prev *model.MonitorStatus
		cur  model.MonitorStatus
		want []model.HistoryEvent
	}{
		{"first snapshot", nil, snapshot(true, true, epoch), nil},
		{"no change", &model.MonitorStatus{}, snapshot(false, false, later), nil},
		{"camera on", &model.MonitorStatus{}, snapshot(true, false, later), []model.HistoryEvent{
			{Timestamp: later, Class: model.Camera, Active: true},
		}},
		{"both flip", func() *model.MonitorStatus { s := snapshot(true, true, epoch); return &s }(), snapshot(false, false, later), []model.HistoryEvent{
			{Timestamp: later, Class: model.Camera, Active: false},
			{Timestamp: later, Class: model.Microphone, Active: false},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transitions(tt.prev, tt.cur)
			if len(got) != len(tt.want) {
				t.Fatalf("Transitions() = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("event[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
