package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kenjp1223/dual-camera/core/media"
)

// fakeProcess is a scriptable capture child.
type fakeProcess struct {
	done chan struct{}
	once sync.Once

	mu          sync.Mutex
	err         error
	interrupted bool
	killed      bool
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{done: make(chan struct{})}
}

// exit terminates the fake with the given error.
func (p *fakeProcess) exit(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	p.once.Do(func() { close(p.done) })
}

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Interrupt finalizes immediately, like ffmpeg flushing its output on SIGINT.
func (p *fakeProcess) Interrupt() error {
	p.mu.Lock()
	p.interrupted = true
	p.mu.Unlock()
	p.exit(nil)
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.exit(errors.New("killed"))
	return nil
}

func (p *fakeProcess) wasInterrupted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interrupted
}

func (p *fakeProcess) wasKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// fakeLauncher hands out pre-built processes in order; a scripted error
// fails the launch at that position.
type fakeLauncher struct {
	mu       sync.Mutex
	procs    []*fakeProcess
	errs     []error
	launched int
	outputs  []string
}

func (l *fakeLauncher) Launch(device, outputPath string, p Params) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.launched
	l.launched++
	l.outputs = append(l.outputs, outputPath)

	if idx < len(l.errs) && l.errs[idx] != nil {
		return nil, l.errs[idx]
	}
	if idx >= len(l.procs) {
		return nil, fmt.Errorf("unexpected launch %d", idx)
	}
	return l.procs[idx], nil
}

// fakeProber reports scripted stream info keyed by file base name.
type fakeProber struct {
	infos map[string]*media.VideoInfo
	errs  map[string]error
}

func (p *fakeProber) Probe(path string) (*media.VideoInfo, error) {
	base := filepath.Base(path)
	if err := p.errs[base]; err != nil {
		return nil, err
	}
	if info := p.infos[base]; info != nil {
		return info, nil
	}
	return nil, fmt.Errorf("no scripted info for %s", base)
}

func testDevices(t *testing.T) DevicePair {
	t.Helper()
	dir := t.TempDir()

	cam0 := filepath.Join(dir, "video0")
	cam1 := filepath.Join(dir, "video2")
	for _, dev := range []string{cam0, cam1} {
		if err := os.WriteFile(dev, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return DevicePair{Cam0: cam0, Cam1: cam1}
}

func testParams() Params {
	return Params{Duration: 10 * time.Second, FPS: 30, Width: 640, Height: 480, Subject: "test"}
}

func pairInfo(frames int) map[string]*media.VideoInfo {
	return map[string]*media.VideoInfo{
		"cam0.mp4": {Codec: "mjpeg", Width: 640, Height: 480, FPS: 30, Frames: frames},
		"cam1.mp4": {Codec: "mjpeg", Width: 640, Height: 480, FPS: 30, Frames: frames},
	}
}

func newTestSupervisor(t *testing.T, launcher Launcher, prober media.Prober) *DualSupervisor {
	t.Helper()
	settings := SupervisorSettings{DesyncTolerance: 0.01, GracePeriod: 100 * time.Millisecond}
	return NewDualSupervisorWithSettings(nil, testDevices(t), t.TempDir(), launcher, prober, settings)
}

// waitTerminal polls until the active job reaches a terminal state.
func waitTerminal(t *testing.T, s *DualSupervisor) Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status := s.Current()
		if status.State.Terminal() {
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("capture job did not reach a terminal state in time")
	return Status{}
}

func TestStartRejectsInvalidParams(t *testing.T) {
	s := newTestSupervisor(t, &fakeLauncher{}, &fakeProber{})

	_, err := s.Start(Params{Duration: 10 * time.Second, FPS: 0, Width: 640, Height: 480})
	if err == nil {
		t.Fatal("Expected start to fail")
	}
	if ReasonOf(err) != ReasonInvalidParameter {
		t.Errorf("Expected reason %s, got %s", ReasonInvalidParameter, ReasonOf(err))
	}
}

func TestStartSecondLaunchFailureKillsFirst(t *testing.T) {
	proc0 := newFakeProcess()
	launcher := &fakeLauncher{
		procs: []*fakeProcess{proc0, nil},
		errs:  []error{nil, errors.New("device busy")},
	}
	s := newTestSupervisor(t, launcher, &fakeProber{})

	_, err := s.Start(testParams())
	if err == nil {
		t.Fatal("Expected start to fail")
	}
	if ReasonOf(err) != ReasonProcessExited {
		t.Errorf("Expected reason %s, got %s", ReasonProcessExited, ReasonOf(err))
	}
	if !proc0.wasKilled() {
		t.Error("Expected the first capture process to be killed")
	}
	if got := s.Current().State; got != StateIdle {
		t.Errorf("Expected idle supervisor after failed start, got %s", got)
	}
}

func TestStartRejectsConcurrentJob(t *testing.T) {
	proc0, proc1 := newFakeProcess(), newFakeProcess()
	launcher := &fakeLauncher{procs: []*fakeProcess{proc0, proc1}}
	prober := &fakeProber{infos: pairInfo(300)}
	s := newTestSupervisor(t, launcher, prober)

	handle, err := s.Start(testParams())
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Start(testParams())
	if err == nil {
		t.Fatal("Expected second start to be rejected")
	}
	if ReasonOf(err) != ReasonDeviceNotFound {
		t.Errorf("Expected reason %s, got %s", ReasonDeviceNotFound, ReasonOf(err))
	}

	if _, err := s.Stop(handle); err != nil {
		t.Fatal(err)
	}
}

func TestEarlyChildFailureKillsSibling(t *testing.T) {
	proc0, proc1 := newFakeProcess(), newFakeProcess()
	launcher := &fakeLauncher{procs: []*fakeProcess{proc0, proc1}}
	prober := &fakeProber{infos: pairInfo(12)}
	s := newTestSupervisor(t, launcher, prober)

	if _, err := s.Start(testParams()); err != nil {
		t.Fatal(err)
	}

	proc0.exit(errors.New("exit status 1"))

	status := waitTerminal(t, s)
	if status.State != StateFailed {
		t.Fatalf("Expected state %s, got %s", StateFailed, status.State)
	}
	if status.Reason != ReasonProcessExited {
		t.Errorf("Expected reason %s, got %s", ReasonProcessExited, status.Reason)
	}
	if !proc1.wasKilled() {
		t.Error("Expected the surviving capture process to be killed")
	}
	if status.Result == nil {
		t.Fatal("Expected a terminal result")
	}
}

func TestStopFinalizesCleanly(t *testing.T) {
	proc0, proc1 := newFakeProcess(), newFakeProcess()
	launcher := &fakeLauncher{procs: []*fakeProcess{proc0, proc1}}
	prober := &fakeProber{infos: pairInfo(300)}
	s := newTestSupervisor(t, launcher, prober)

	handle, err := s.Start(testParams())
	if err != nil {
		t.Fatal(err)
	}

	result, err := s.Stop(handle)
	if err != nil {
		t.Fatal(err)
	}

	if result.State != StateDone {
		t.Fatalf("Expected state %s, got %s (reason %s)", StateDone, result.State, result.Reason)
	}
	if !proc0.wasInterrupted() || !proc1.wasInterrupted() {
		t.Error("Expected both processes to be interrupted")
	}
	if result.Cam0.Frames != 300 || result.Cam1.Frames != 300 {
		t.Errorf("Expected 300 frames per camera, got cam0=%d cam1=%d", result.Cam0.Frames, result.Cam1.Frames)
	}
}

func TestStopDetectsDesync(t *testing.T) {
	// 10s at 30fps expects 300 frames, so the tolerance is 3 frames.
	proc0, proc1 := newFakeProcess(), newFakeProcess()
	launcher := &fakeLauncher{procs: []*fakeProcess{proc0, proc1}}
	prober := &fakeProber{infos: map[string]*media.VideoInfo{
		"cam0.mp4": {Codec: "mjpeg", Width: 640, Height: 480, FPS: 30, Frames: 300},
		"cam1.mp4": {Codec: "mjpeg", Width: 640, Height: 480, FPS: 30, Frames: 290},
	}}
	s := newTestSupervisor(t, launcher, prober)

	handle, err := s.Start(testParams())
	if err != nil {
		t.Fatal(err)
	}

	result, err := s.Stop(handle)
	if err != nil {
		t.Fatal(err)
	}

	if result.State != StateFailed {
		t.Fatalf("Expected state %s, got %s", StateFailed, result.State)
	}
	if result.Reason != ReasonDesync {
		t.Errorf("Expected reason %s, got %s", ReasonDesync, result.Reason)
	}
}

func TestStopToleratesSmallFrameDrift(t *testing.T) {
	proc0, proc1 := newFakeProcess(), newFakeProcess()
	launcher := &fakeLauncher{procs: []*fakeProcess{proc0, proc1}}
	prober := &fakeProber{infos: map[string]*media.VideoInfo{
		"cam0.mp4": {Codec: "mjpeg", Width: 640, Height: 480, FPS: 30, Frames: 300},
		"cam1.mp4": {Codec: "mjpeg", Width: 640, Height: 480, FPS: 30, Frames: 298},
	}}
	s := newTestSupervisor(t, launcher, prober)

	handle, err := s.Start(testParams())
	if err != nil {
		t.Fatal(err)
	}

	result, err := s.Stop(handle)
	if err != nil {
		t.Fatal(err)
	}

	if result.State != StateDone {
		t.Errorf("Expected state %s for drift within tolerance, got %s (reason %s)",
			StateDone, result.State, result.Reason)
	}
}

func TestStopReportsUnreadableOutput(t *testing.T) {
	proc0, proc1 := newFakeProcess(), newFakeProcess()
	launcher := &fakeLauncher{procs: []*fakeProcess{proc0, proc1}}
	prober := &fakeProber{
		infos: map[string]*media.VideoInfo{
			"cam1.mp4": {Codec: "mjpeg", Width: 640, Height: 480, FPS: 30, Frames: 300},
		},
		errs: map[string]error{"cam0.mp4": errors.New("file is empty")},
	}
	s := newTestSupervisor(t, launcher, prober)

	handle, err := s.Start(testParams())
	if err != nil {
		t.Fatal(err)
	}

	result, err := s.Stop(handle)
	if err != nil {
		t.Fatal(err)
	}

	if result.State != StateFailed {
		t.Fatalf("Expected state %s, got %s", StateFailed, result.State)
	}
	if result.Reason != ReasonProcessExited {
		t.Errorf("Expected reason %s, got %s", ReasonProcessExited, result.Reason)
	}
}

func TestStatusUnknownHandle(t *testing.T) {
	s := newTestSupervisor(t, &fakeLauncher{}, &fakeProber{})

	status := s.Status(&Handle{JobID: "nope"})
	if status.State != StateIdle {
		t.Errorf("Expected state %s for unknown handle, got %s", StateIdle, status.State)
	}
}

func TestStartCreatesCaptureDirectory(t *testing.T) {
	proc0, proc1 := newFakeProcess(), newFakeProcess()
	launcher := &fakeLauncher{procs: []*fakeProcess{proc0, proc1}}
	prober := &fakeProber{infos: pairInfo(300)}
	s := newTestSupervisor(t, launcher, prober)

	handle, err := s.Start(testParams())
	if err != nil {
		t.Fatal(err)
	}

	if info, err := os.Stat(handle.Dir); err != nil || !info.IsDir() {
		t.Errorf("Expected capture directory %s to exist", handle.Dir)
	}
	if base := filepath.Base(handle.Dir); !strings.HasPrefix(base, "record_test_") {
		t.Errorf("Expected directory name with record_test_ prefix, got %s", base)
	}

	launcher.mu.Lock()
	outputs := append([]string(nil), launcher.outputs...)
	launcher.mu.Unlock()

	if len(outputs) != 2 {
		t.Fatalf("Expected 2 launches, got %d", len(outputs))
	}
	if filepath.Base(outputs[0]) != "cam0.mp4" || filepath.Base(outputs[1]) != "cam1.mp4" {
		t.Errorf("Expected cam0.mp4 and cam1.mp4 outputs, got %v", outputs)
	}

	if _, err := s.Stop(handle); err != nil {
		t.Fatal(err)
	}
}
