package nodeclient

import (
	"time"

	"github.com/kenjp1223/dual-camera/core/capture"
)

// CaptureRequest is the wire shape of capture parameters for Prepare and
// Start.
type CaptureRequest struct {
	DurationSeconds float64 `json:"duration_seconds"`
	FPS             int     `json:"fps"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Subject         string  `json:"subject"`
}

// NewCaptureRequest converts capture params to the wire shape.
func NewCaptureRequest(p capture.Params) CaptureRequest {
	return CaptureRequest{
		DurationSeconds: p.Duration.Seconds(),
		FPS:             p.FPS,
		Width:           p.Width,
		Height:          p.Height,
		Subject:         p.Subject,
	}
}

// Params converts the wire shape back to capture params.
func (r CaptureRequest) Params() capture.Params {
	return capture.Params{
		Duration: time.Duration(r.DurationSeconds * float64(time.Second)),
		FPS:      r.FPS,
		Width:    r.Width,
		Height:   r.Height,
		Subject:  r.Subject,
	}
}

// StartResponse identifies the job a node started.
type StartResponse struct {
	JobID     string    `json:"job_id"`
	Dir       string    `json:"dir"`
	StartedAt time.Time `json:"started_at"`
}

// errorBody is the agent's error envelope.
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}
