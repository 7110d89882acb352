package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kenjp1223/dual-camera/core/ccc/logging"
	"github.com/kenjp1223/dual-camera/core/media"
)

// Supervisor owns one node's pair of camera capture processes.
type Supervisor interface {
	// Prepare validates parameters and pre-allocates resources without
	// starting capture.
	Prepare(params Params) error
	// Start launches both capture processes with one shared start timestamp.
	Start(params Params) (*Handle, error)
	// Stop finalizes the job: graceful signal, bounded grace period, force
	// kill. It always reports Done or Failed for a known handle.
	Stop(handle *Handle) (*Result, error)
	// Status returns the last-known state of the given job.
	Status(handle *Handle) Status
	// Current returns the state of the active job, or Idle.
	Current() Status
}

// SupervisorSettings tunes the failure detection of a DualSupervisor.
type SupervisorSettings struct {
	// DesyncTolerance is the allowed frame-count difference between the two
	// output files, as a fraction of the expected frame count.
	DesyncTolerance float64
	// GracePeriod bounds how long a signalled process may take to finalize
	// its output before it is force-killed.
	GracePeriod time.Duration
}

// DefaultSupervisorSettings returns the tolerances used by the reference rig.
func DefaultSupervisorSettings() SupervisorSettings {
	return SupervisorSettings{
		DesyncTolerance: 0.01,
		GracePeriod:     5 * time.Second,
	}
}

// DualSupervisor implements Supervisor for one pair of v4l2 cameras. It runs
// at most one capture job at a time; all job state is mutated under a single
// mutex by the supervisor's own goroutines only.
type DualSupervisor struct {
	logger     logging.Logger
	devices    DevicePair
	outputRoot string
	launcher   Launcher
	prober     media.Prober
	settings   SupervisorSettings

	mu  sync.Mutex
	job *captureJob
}

type captureJob struct {
	id        string
	params    Params
	dir       string
	cam0Path  string
	cam1Path  string
	startedAt time.Time
	procs     [2]Process

	state  State
	reason Reason
	result *Result

	stopRequested atomic.Bool
	stopOnce      sync.Once
	stopCh        chan struct{}
	doneCh        chan struct{}
}

func (j *captureJob) requestStop() {
	j.stopOnce.Do(func() {
		j.stopRequested.Store(true)
		close(j.stopCh)
	})
}

// NewDualSupervisor creates a supervisor with default settings.
func NewDualSupervisor(logger logging.Logger, devices DevicePair, outputRoot string, launcher Launcher, prober media.Prober) *DualSupervisor {
	return NewDualSupervisorWithSettings(logger, devices, outputRoot, launcher, prober, DefaultSupervisorSettings())
}

// NewDualSupervisorWithSettings creates a supervisor with custom settings.
func NewDualSupervisorWithSettings(logger logging.Logger, devices DevicePair, outputRoot string, launcher Launcher, prober media.Prober, settings SupervisorSettings) *DualSupervisor {
	if logger == nil {
		logger = logging.NopLogger
	}
	if settings.DesyncTolerance <= 0 {
		settings.DesyncTolerance = 0.01
	}
	if settings.GracePeriod <= 0 {
		settings.GracePeriod = 5 * time.Second
	}

	return &DualSupervisor{
		logger:     logger,
		devices:    devices,
		outputRoot: outputRoot,
		launcher:   launcher,
		prober:     prober,
		settings:   settings,
	}
}

// Prepare validates parameters and resources without starting capture.
func (s *DualSupervisor) Prepare(params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := s.devices.Resolve(); err != nil {
		return err
	}

	s.mu.Lock()
	busy := s.job != nil && !s.job.state.Terminal()
	s.mu.Unlock()
	if busy {
		// A camera held by our own active job counts as busy.
		return NewError(ReasonDeviceNotFound, "capture already in progress")
	}

	if err := os.MkdirAll(s.outputRoot, 0755); err != nil {
		return fmt.Errorf("failed to create output root: %w", err)
	}
	return nil
}

// Start launches both camera processes back to back and begins monitoring
// their liveness.
func (s *DualSupervisor) Start(params Params) (*Handle, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := s.devices.Resolve(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job != nil && !s.job.state.Terminal() {
		return nil, NewError(ReasonDeviceNotFound, "capture already in progress")
	}

	dir := filepath.Join(s.outputRoot,
		fmt.Sprintf("record_%s_%s", params.SubjectOrDefault(), time.Now().Format("20060102_150405")))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}

	cam0Path := filepath.Join(dir, "cam0.mp4")
	cam1Path := filepath.Join(dir, "cam1.mp4")

	// One shared timestamp for both cameras; the expected stop time and the
	// frame target both derive from it.
	startedAt := time.Now()

	proc0, err := s.launcher.Launch(s.devices.Cam0, cam0Path, params)
	if err != nil {
		return nil, NewError(ReasonProcessExited, "failed to launch cam0 capture: %v", err)
	}

	proc1, err := s.launcher.Launch(s.devices.Cam1, cam1Path, params)
	if err != nil {
		// Never leave an unbalanced single-camera capture running.
		proc0.Kill()
		return nil, NewError(ReasonProcessExited, "failed to launch cam1 capture: %v", err)
	}

	job := &captureJob{
		id:        uuid.NewString(),
		params:    params,
		dir:       dir,
		cam0Path:  cam0Path,
		cam1Path:  cam1Path,
		startedAt: startedAt,
		procs:     [2]Process{proc0, proc1},
		state:     StateRecording,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	s.job = job

	s.logger.Info("capture started", "jobID", job.id, "dir", dir,
		"duration", params.Duration, "fps", params.FPS, "frames", params.ExpectedFrames())

	go s.watch(job)

	return &Handle{JobID: job.id, Dir: dir, StartedAt: startedAt}, nil
}

// watch monitors both children until the job reaches a terminal state.
func (s *DualSupervisor) watch(job *captureJob) {
	select {
	case <-job.stopCh:
		s.shutdownBoth(job)
	case <-job.procs[0].Done():
		s.onChildExit(job, 0)
	case <-job.procs[1].Done():
		s.onChildExit(job, 1)
	}
}

// onChildExit handles the first child to exit. A failing child takes its
// sibling down with it; a clean exit (frame target reached) waits for the
// sibling to finish too.
func (s *DualSupervisor) onChildExit(job *captureJob, idx int) {
	exited := job.procs[idx]
	sibling := job.procs[1-idx]

	if err := exited.Err(); err != nil && !job.stopRequested.Load() {
		s.logger.Warn("capture process exited prematurely", "jobID", job.id, "camera", idx, "error", err)
		sibling.Kill()
		s.awaitProcess(sibling)
		s.finalize(job, ReasonProcessExited,
			fmt.Errorf("cam%d capture process exited prematurely: %w", idx, err))
		return
	}

	// Clean exit. Give the sibling until its own frame target plus grace.
	remaining := time.Until(job.startedAt.Add(job.params.Duration)) + s.settings.GracePeriod
	if remaining < s.settings.GracePeriod {
		remaining = s.settings.GracePeriod
	}

	select {
	case <-sibling.Done():
		if err := sibling.Err(); err != nil && !job.stopRequested.Load() {
			s.finalize(job, ReasonProcessExited,
				fmt.Errorf("cam%d capture process exited prematurely: %w", 1-idx, err))
			return
		}
		s.finalize(job, "", nil)
	case <-job.stopCh:
		s.shutdownBoth(job)
	case <-time.After(remaining):
		s.logger.Warn("sibling capture did not finish in time, stopping it", "jobID", job.id, "camera", 1-idx)
		s.stopProcess(sibling)
		s.finalize(job, "", nil)
	}
}

// shutdownBoth performs a graceful stop of both children.
func (s *DualSupervisor) shutdownBoth(job *captureJob) {
	s.setState(job, StateStopping)

	for _, proc := range job.procs {
		proc.Interrupt()
	}
	for _, proc := range job.procs {
		s.stopProcess(proc)
	}

	s.finalize(job, "", nil)
}

// stopProcess waits out the grace period, then force-kills.
func (s *DualSupervisor) stopProcess(proc Process) {
	select {
	case <-proc.Done():
		return
	case <-time.After(s.settings.GracePeriod):
	}

	proc.Kill()
	s.awaitProcess(proc)
}

// awaitProcess waits for a killed process to be reaped.
func (s *DualSupervisor) awaitProcess(proc Process) {
	select {
	case <-proc.Done():
	case <-time.After(s.settings.GracePeriod):
	}
}

// finalize probes the output files and records the terminal state. Files are
// retained on every failure path for diagnosis.
func (s *DualSupervisor) finalize(job *captureJob, reason Reason, cause error) {
	s.setState(job, StateStopping)

	result := &Result{
		Dir:       job.dir,
		StartedAt: job.startedAt,
		Cam0:      FileResult{Path: job.cam0Path},
		Cam1:      FileResult{Path: job.cam1Path},
	}

	info0, err0 := s.prober.Probe(job.cam0Path)
	info1, err1 := s.prober.Probe(job.cam1Path)
	if info0 != nil {
		result.Cam0.Frames = info0.Frames
		result.Cam0.DurationMs = info0.Duration.Milliseconds()
	}
	if info1 != nil {
		result.Cam1.Frames = info1.Frames
		result.Cam1.DurationMs = info1.Duration.Milliseconds()
	}

	if reason == "" {
		switch {
		case err0 != nil:
			reason = ReasonProcessExited
			cause = fmt.Errorf("cam0 output unusable: %w", err0)
		case err1 != nil:
			reason = ReasonProcessExited
			cause = fmt.Errorf("cam1 output unusable: %w", err1)
		default:
			if diff := frameDiff(info0.Frames, info1.Frames); diff > s.frameTolerance(job.params) {
				reason = ReasonDesync
				cause = fmt.Errorf("frame counts diverged by %d (cam0=%d, cam1=%d, tolerance=%d)",
					diff, info0.Frames, info1.Frames, s.frameTolerance(job.params))
			}
		}
	}

	if reason != "" {
		result.State = StateFailed
		result.Reason = reason
		s.logger.Error("capture failed", "jobID", job.id, "reason", string(reason), "error", cause)
	} else {
		result.State = StateDone
		s.logger.Info("capture done", "jobID", job.id,
			"cam0Frames", result.Cam0.Frames, "cam1Frames", result.Cam1.Frames)
	}

	s.mu.Lock()
	job.state = result.State
	job.reason = reason
	job.result = result
	s.mu.Unlock()
	close(job.doneCh)
}

func (s *DualSupervisor) frameTolerance(params Params) int {
	tolerance := int(float64(params.ExpectedFrames()) * s.settings.DesyncTolerance)
	if tolerance < 1 {
		tolerance = 1
	}
	return tolerance
}

func frameDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func (s *DualSupervisor) setState(job *captureJob, state State) {
	s.mu.Lock()
	if !job.state.Terminal() {
		job.state = state
	}
	s.mu.Unlock()
}

// Stop requests a graceful stop and waits for the terminal result.
func (s *DualSupervisor) Stop(handle *Handle) (*Result, error) {
	s.mu.Lock()
	job := s.job
	s.mu.Unlock()

	if job == nil || handle == nil || job.id != handle.JobID {
		return nil, fmt.Errorf("unknown capture job")
	}

	job.requestStop()

	// The watcher needs at most two grace periods (interrupt, then kill).
	select {
	case <-job.doneCh:
	case <-time.After(3*s.settings.GracePeriod + time.Second):
		return nil, fmt.Errorf("capture job %s did not terminate in time", job.id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return job.result, nil
}

// Status returns the last-known state of the given job.
func (s *DualSupervisor) Status(handle *Handle) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job == nil || handle == nil || s.job.id != handle.JobID {
		return Status{State: StateIdle}
	}
	return s.snapshotLocked()
}

// Current returns the state of the active job, or Idle when none exists.
func (s *DualSupervisor) Current() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job == nil {
		return Status{State: StateIdle}
	}
	return s.snapshotLocked()
}

func (s *DualSupervisor) snapshotLocked() Status {
	status := Status{
		JobID:     s.job.id,
		State:     s.job.state,
		Reason:    s.job.reason,
		Dir:       s.job.dir,
		StartedAt: s.job.startedAt,
	}
	if s.job.result != nil {
		resultCopy := *s.job.result
		status.Result = &resultCopy
	}
	return status
}
