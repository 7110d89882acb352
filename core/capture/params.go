package capture

import (
	"strings"
	"time"
)

const (
	minFPS = 1
	maxFPS = 240

	maxDimension = 4096
)

// Params describes one requested capture: how long, how fast, how large, and
// under which subject label the output folder is filed.
type Params struct {
	Duration time.Duration `json:"duration"`
	FPS      int           `json:"fps"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Subject  string        `json:"subject"`
}

// DefaultParams returns the capture defaults of the reference rig.
func DefaultParams() Params {
	return Params{
		Duration: 60 * time.Second,
		FPS:      30,
		Width:    640,
		Height:   480,
		Subject:  "default",
	}
}

// Validate checks the parameter set against device-supported ranges. All
// violations are reported as ReasonInvalidParameter.
func (p Params) Validate() error {
	if p.Duration <= 0 {
		return NewError(ReasonInvalidParameter, "duration must be positive, got %v", p.Duration)
	}
	if p.FPS < minFPS || p.FPS > maxFPS {
		return NewError(ReasonInvalidParameter, "fps must be between %d and %d, got %d", minFPS, maxFPS, p.FPS)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return NewError(ReasonInvalidParameter, "resolution must be positive, got %dx%d", p.Width, p.Height)
	}
	if p.Width > maxDimension || p.Height > maxDimension {
		return NewError(ReasonInvalidParameter, "resolution exceeds %dx%d: %dx%d", maxDimension, maxDimension, p.Width, p.Height)
	}
	if strings.ContainsAny(p.Subject, "/\\") {
		return NewError(ReasonInvalidParameter, "subject must not contain path separators: %q", p.Subject)
	}
	return nil
}

// SubjectOrDefault returns the subject label, defaulting when empty.
func (p Params) SubjectOrDefault() string {
	if p.Subject == "" {
		return "default"
	}
	return p.Subject
}

// ExpectedFrames is the frame target per camera for this parameter set.
func (p Params) ExpectedFrames() int {
	return int(p.Duration.Seconds() * float64(p.FPS))
}
