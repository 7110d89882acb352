package fusion

import (
	"fmt"
	"path/filepath"
)

// Layout places cam0 top (vertical) or left (horizontal); cam1 takes the
// complementary position.
type Layout string

const (
	LayoutVertical   Layout = "vertical"
	LayoutHorizontal Layout = "horizontal"
)

// Rotation is a per-camera rotation applied before composition.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

func (r Rotation) valid() bool {
	switch r {
	case Rotate0, Rotate90, Rotate180, Rotate270:
		return true
	}
	return false
}

// swapsDimensions reports whether the rotation turns a WxH pane into HxW.
func (r Rotation) swapsDimensions() bool {
	return r == Rotate90 || r == Rotate270
}

// Strategy is the encode path for one fusion job.
type Strategy string

const (
	StrategyCopy      Strategy = "copy"
	StrategyTranscode Strategy = "transcode"
	StrategyHWAccel   Strategy = "hw-accel"
)

// Job is one post-processing unit. Jobs are stateless across invocations:
// re-running an identical job on unchanged inputs overwrites the output with
// an equivalent file.
type Job struct {
	// Folder containing cam0.mp4 and cam1.mp4.
	Folder string
	// OutputPath overrides the derived output name when non-empty.
	OutputPath string

	Layout       Layout
	Cam0Rotation Rotation
	Cam1Rotation Rotation

	// ForceStrategy skips automatic selection when non-empty, e.g. to retry
	// with transcode after a copy-mode failure.
	ForceStrategy Strategy
}

// Validate checks layout and rotations.
func (j Job) Validate() error {
	if j.Layout != LayoutVertical && j.Layout != LayoutHorizontal {
		return NewError(ReasonUnsupportedLayout, StageCompose, "unknown layout %q", j.Layout)
	}
	if !j.Cam0Rotation.valid() {
		return NewError(ReasonUnsupportedLayout, StageCompose, "invalid cam0 rotation %d", j.Cam0Rotation)
	}
	if !j.Cam1Rotation.valid() {
		return NewError(ReasonUnsupportedLayout, StageCompose, "invalid cam1 rotation %d", j.Cam1Rotation)
	}
	if j.Folder == "" {
		return NewError(ReasonInputMissing, StageProbe, "no capture folder given")
	}
	return nil
}

// Rotated reports whether any camera needs rotation.
func (j Job) Rotated() bool {
	return j.Cam0Rotation != Rotate0 || j.Cam1Rotation != Rotate0
}

// Cam0Path returns the cam0 input path.
func (j Job) Cam0Path() string {
	return filepath.Join(j.Folder, "cam0.mp4")
}

// Cam1Path returns the cam1 input path.
func (j Job) Cam1Path() string {
	return filepath.Join(j.Folder, "cam1.mp4")
}

// OutputName derives the composite file name from the folder name, layout
// and rotations: {folder}_concatenated_{layout}.mp4, with a r{rot0}_{rot1}
// infix when any rotation applies.
func (j Job) OutputName() string {
	if j.OutputPath != "" {
		return j.OutputPath
	}

	folderName := filepath.Base(j.Folder)
	if j.Rotated() {
		return filepath.Join(j.Folder,
			fmt.Sprintf("%s_concatenated_r%d_%d_%s.mp4", folderName, j.Cam0Rotation, j.Cam1Rotation, j.Layout))
	}
	return filepath.Join(j.Folder, fmt.Sprintf("%s_concatenated_%s.mp4", folderName, j.Layout))
}

// PreviewName derives the preview still name with a _preview_ infix.
func (j Job) PreviewName() string {
	if j.OutputPath != "" {
		return j.OutputPath
	}

	folderName := filepath.Base(j.Folder)
	if j.Rotated() {
		return filepath.Join(j.Folder,
			fmt.Sprintf("%s_preview_r%d_%d_%s.jpg", folderName, j.Cam0Rotation, j.Cam1Rotation, j.Layout))
	}
	return filepath.Join(j.Folder, fmt.Sprintf("%s_preview_%s.jpg", folderName, j.Layout))
}

// Key identifies the input pair for in-flight exclusion: two jobs over the
// same pair must not read the inputs concurrently.
func (j Job) Key() string {
	return j.Cam0Path() + "|" + j.Cam1Path()
}
