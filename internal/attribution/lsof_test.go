package attribution

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/Hara602/avSentry/internal/model"
	"github.com/Hara602/avSentry/internal/sysutil"
)

const lsofOutput = `COMMAND     PID  USER   FD   TYPE DEVICE SIZE/OFF    NODE NAME
coreaudiod  188  _coreaudiod  txt  REG  1,18  1234  5678 /usr/sbin/coreaudiod
zoom.us     901  alice  txt  REG  1,18  4321  1111 /System/Library/Frameworks/CoreAudio.framework/CoreAudio
zoom.us     901  alice  txt  REG  1,18  4321  2222 /Library/CoreMediaIO/Plug-Ins/DAL/AppleCamera.plugin
FaceTime    733  alice  txt  REG  1,18  9999  3333 /System/Applications/FaceTime.app/Contents/MacOS/FaceTime
VDCAssist   420  root   txt  REG  1,18  8888  4444 /usr/libexec/VDCAssistant
audiod      190  root   txt  REG  1,18  7777  5555 /usr/libexec/audiod CoreAudio
Music       555  alice  txt  REG  1,18  6666  6666 /System/Library/Frameworks/coreaudio.component
broken
`

type stubRunner struct {
	out   string
	err   error
	calls int
}

func (r *stubRunner) Output(context.Context, string, ...string) ([]byte, error) {
	r.calls++
	return []byte(r.out), r.err
}

func equalProcesses(a, b []model.ProcessInfo) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMatchCamera(t *testing.T) {
	got := MatchCamera(lsofOutput)
	// VDC 的匹配在前，随后 AppleCamera、FaceTime；同一 PID 只出现一次
	want := []model.ProcessInfo{
		{PID: 420, Name: "VDCAssist"},
		{PID: 901, Name: "zoom.us"},
		{PID: 733, Name: "FaceTime"},
	}
	if !equalProcesses(got, want) {
		t.Errorf("MatchCamera() = %+v, want %+v", got, want)
	}
}

func TestMatchMicrophone(t *testing.T) {
	got := MatchMicrophone(lsofOutput)
	want := []model.ProcessInfo{
		{PID: 901, Name: "zoom.us"},
		{PID: 555, Name: "Music"},
	}
	if !equalProcesses(got, want) {
		t.Errorf("MatchMicrophone() = %+v, want %+v", got, want)
	}
}

func TestMatchEmpty(t *testing.T) {
	if got := MatchCamera(""); len(got) != 0 {
		t.Errorf("MatchCamera(\"\") = %+v", got)
	}
	if got := MatchMicrophone(""); len(got) != 0 {
		t.Errorf("MatchMicrophone(\"\") = %+v", got)
	}
}

func TestLsof(t *testing.T) {
	runner := &stubRunner{out: lsofOutput}
	l := NewLsof(runner)

	camera, err := l.CameraProcesses(context.Background())
	if err != nil || len(camera) != 3 {
		t.Fatalf("CameraProcesses() = %+v, %v", camera, err)
	}
	mic, err := l.MicrophoneProcesses(context.Background())
	if err != nil || len(mic) != 2 {
		t.Fatalf("MicrophoneProcesses() = %+v, %v", mic, err)
	}
	if runner.calls != 2 {
		t.Errorf("runner called %d times, want 2", runner.calls)
	}
}

func TestLsofError(t *testing.T) {
	l := NewLsof(&stubRunner{err: sysutil.ErrTimeout})
	if _, err := l.CameraProcesses(context.Background()); !errors.Is(err, sysutil.ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}
