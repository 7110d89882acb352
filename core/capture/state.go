package capture

import "time"

// State is the lifecycle of one capture job. Only the supervisor that owns
// the job mutates it.
type State string

const (
	StateIdle      State = "idle"
	StatePreparing State = "preparing"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// FileResult holds the measured properties of one camera's output file.
type FileResult struct {
	Path       string `json:"path"`
	Frames     int    `json:"frames"`
	DurationMs int64  `json:"duration_ms"`
}

// Result is the terminal report of one capture job. On failure the reason
// code is set and whatever files exist are retained for diagnosis.
type Result struct {
	State     State      `json:"state"`
	Reason    Reason     `json:"reason,omitempty"`
	Dir       string     `json:"dir"`
	StartedAt time.Time  `json:"started_at"`
	Cam0      FileResult `json:"cam0"`
	Cam1      FileResult `json:"cam1"`
}

// Status is the supervisor's last-known view of a job, safe to read at any
// point of the lifecycle.
type Status struct {
	JobID     string    `json:"job_id"`
	State     State     `json:"state"`
	Reason    Reason    `json:"reason,omitempty"`
	Dir       string    `json:"dir,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	Result    *Result   `json:"result,omitempty"`
}

// Handle identifies one started capture job.
type Handle struct {
	JobID     string
	Dir       string
	StartedAt time.Time
}
