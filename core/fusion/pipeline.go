package fusion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"sync"
	"time"

	"github.com/kenjp1223/dual-camera/core/ccc/logging"
	"github.com/kenjp1223/dual-camera/core/media"
)

// Result reports a completed fusion job.
type Result struct {
	OutputPath string
	Strategy   Strategy
	Output     Geometry
	// Mismatch flags frame-count/duration divergence between the inputs.
	// The job proceeds anyway; the flag lets operators treat the composite
	// with suspicion.
	Mismatch       bool
	MismatchDetail string
}

// Pipeline fuses a node's two capture files into one composite.
type Pipeline interface {
	Fuse(ctx context.Context, job Job) (*Result, error)
	Preview(ctx context.Context, job Job) (*Result, error)
}

// Runner executes an external encoder invocation. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w\n%s", name, err, string(out))
	}
	return nil
}

// mismatchTolerance is the accepted frame-count divergence between the two
// inputs, as a fraction of the larger count.
const mismatchTolerance = 0.01

// hwProbeTimeout bounds the one-off hardware encoder detection.
const hwProbeTimeout = 5 * time.Second

// FFmpegPipeline implements Pipeline by driving the ffmpeg binary. goffmpeg
// handles probing; the two-input filter graph itself is beyond its
// single-input transcoder API, so composition invokes ffmpeg directly.
type FFmpegPipeline struct {
	logger logging.Logger
	prober media.Prober
	runner Runner

	hwOnce      sync.Once
	hwAvailable bool

	mu       sync.Mutex
	inflight map[string]*sync.Mutex
}

// NewFFmpegPipeline creates a pipeline using the system ffmpeg binary.
func NewFFmpegPipeline(logger logging.Logger, prober media.Prober) *FFmpegPipeline {
	return NewFFmpegPipelineWithRunner(logger, prober, execRunner{})
}

// NewFFmpegPipelineWithRunner creates a pipeline with a custom process
// runner.
func NewFFmpegPipelineWithRunner(logger logging.Logger, prober media.Prober, runner Runner) *FFmpegPipeline {
	if logger == nil {
		logger = logging.NopLogger
	}

	return &FFmpegPipeline{
		logger:   logger,
		prober:   prober,
		runner:   runner,
		inflight: make(map[string]*sync.Mutex),
	}
}

// lockPair serializes jobs over the same input pair: a second request waits
// for the in-flight job instead of racing it.
func (p *FFmpegPipeline) lockPair(key string) func() {
	p.mu.Lock()
	pairMu, ok := p.inflight[key]
	if !ok {
		pairMu = &sync.Mutex{}
		p.inflight[key] = pairMu
	}
	p.mu.Unlock()

	pairMu.Lock()
	return pairMu.Unlock
}

// Fuse composes the two inputs into one composite video.
func (p *FFmpegPipeline) Fuse(ctx context.Context, job Job) (*Result, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	unlock := p.lockPair(job.Key())
	defer unlock()

	info0, info1, result, err := p.inspectInputs(job)
	if err != nil {
		return nil, err
	}

	strategy := job.ForceStrategy
	if strategy == "" {
		strategy = SelectStrategy(inputProps(info0), inputProps(info1), job.Cam0Rotation, job.Cam1Rotation, false)
		if strategy != StrategyCopy && p.hardwareAvailable() {
			strategy = StrategyHWAccel
		}
	}

	graph, out := BuildGraph(
		Geometry{Width: info0.Width, Height: info0.Height},
		Geometry{Width: info1.Width, Height: info1.Height},
		job.Cam0Rotation, job.Cam1Rotation, job.Layout)

	outputPath := job.OutputName()
	p.logger.Info("fusing capture pair", "folder", job.Folder, "strategy", string(strategy),
		"layout", string(job.Layout), "output", outputPath,
		"dimensions", fmt.Sprintf("%dx%d", out.Width, out.Height))

	err = p.runner.Run(ctx, "ffmpeg", fuseArgs(job, graph, strategy, outputPath)...)
	if err != nil && strategy == StrategyHWAccel {
		// Hardware encoders fail on some hosts at runtime even when the
		// probe succeeded. Fall back to software rather than aborting.
		p.logger.Warn("hardware encode failed, falling back to software transcode", "error", err)
		strategy = StrategyTranscode
		err = p.runner.Run(ctx, "ffmpeg", fuseArgs(job, graph, strategy, outputPath)...)
	}
	if err != nil {
		return nil, NewError(ReasonEncodeFailure, StageEncode, "encoder failed: %v", err)
	}

	result.OutputPath = outputPath
	result.Strategy = strategy
	result.Output = out
	return result, nil
}

// Preview extracts a single composed frame as a still image, using the same
// rotation and layout as the full fusion. Cheap orientation check before the
// expensive encode.
func (p *FFmpegPipeline) Preview(ctx context.Context, job Job) (*Result, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	unlock := p.lockPair(job.Key())
	defer unlock()

	info0, info1, result, err := p.inspectInputs(job)
	if err != nil {
		return nil, err
	}

	graph, out := BuildGraph(
		Geometry{Width: info0.Width, Height: info0.Height},
		Geometry{Width: info1.Width, Height: info1.Height},
		job.Cam0Rotation, job.Cam1Rotation, job.Layout)

	outputPath := job.PreviewName()
	p.logger.Info("creating preview snapshot", "folder", job.Folder, "output", outputPath)

	args := []string{
		"-i", job.Cam0Path(),
		"-i", job.Cam1Path(),
		"-filter_complex", graph,
		"-map", "[v]",
		"-ss", "0.5", "-vframes", "1",
		"-y", outputPath,
	}
	if err := p.runner.Run(ctx, "ffmpeg", args...); err != nil {
		return nil, NewError(ReasonEncodeFailure, StageEncode, "preview extraction failed: %v", err)
	}

	result.OutputPath = outputPath
	result.Strategy = StrategyTranscode
	result.Output = out
	return result, nil
}

// inspectInputs probes both inputs and pre-fills the mismatch flag.
func (p *FFmpegPipeline) inspectInputs(job Job) (*media.VideoInfo, *media.VideoInfo, *Result, error) {
	info0, err := p.prober.Probe(job.Cam0Path())
	if err != nil {
		return nil, nil, nil, classifyProbeError(job.Cam0Path(), err)
	}
	info1, err := p.prober.Probe(job.Cam1Path())
	if err != nil {
		return nil, nil, nil, classifyProbeError(job.Cam1Path(), err)
	}

	result := &Result{}
	if detail := mismatchDetail(info0, info1); detail != "" {
		result.Mismatch = true
		result.MismatchDetail = detail
		p.logger.Warn("input pair diverges, proceeding anyway", "folder", job.Folder, "detail", detail)
	}

	return info0, info1, result, nil
}

func classifyProbeError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return NewError(ReasonInputMissing, StageProbe, "input %s does not exist", path)
	}
	return NewError(ReasonEncodeFailure, StageProbe, "failed to probe %s: %v", path, err)
}

// mismatchDetail reports frame-count (preferred) or duration divergence
// beyond tolerance. Empty string means the pair matches.
func mismatchDetail(info0, info1 *media.VideoInfo) string {
	if info0.Frames > 0 && info1.Frames > 0 {
		larger := max(info0.Frames, info1.Frames)
		diff := larger - min(info0.Frames, info1.Frames)
		allowed := int(float64(larger) * mismatchTolerance)
		if allowed < 1 {
			allowed = 1
		}
		if diff > allowed {
			return fmt.Sprintf("frame counts diverge: cam0=%d cam1=%d", info0.Frames, info1.Frames)
		}
		return ""
	}

	if delta := (info0.Duration - info1.Duration).Abs(); delta > time.Second {
		return fmt.Sprintf("durations diverge: cam0=%s cam1=%s", info0.Duration, info1.Duration)
	}
	return ""
}

func inputProps(info *media.VideoInfo) InputProps {
	return InputProps{
		Codec:  info.Codec,
		Width:  info.Width,
		Height: info.Height,
		FPS:    info.FPS,
	}
}

// fuseArgs builds the full ffmpeg invocation for one strategy.
func fuseArgs(job Job, graph string, strategy Strategy, outputPath string) []string {
	args := []string{
		"-i", job.Cam0Path(),
		"-i", job.Cam1Path(),
		"-filter_complex", graph,
		"-map", "[v]", "-map", "0:a?",
	}

	switch strategy {
	case StrategyCopy:
		args = append(args, "-c:v", "copy", "-avoid_negative_ts", "make_zero")
	case StrategyHWAccel:
		args = append(args, "-c:v", "h264_v4l2m2m", "-b:v", "5M", "-threads", "0")
	default:
		args = append(args, "-c:v", "libx264", "-preset", "ultrafast", "-crf", "23", "-threads", "0")
	}

	return append(args, "-y", outputPath)
}

// hardwareAvailable probes once for a usable hardware encoder by encoding a
// one-second test source to the null muxer.
func (p *FFmpegPipeline) hardwareAvailable() bool {
	p.hwOnce.Do(func() {
		// The result is cached for the pipeline's lifetime, so the probe
		// must not inherit one caller's deadline or cancellation.
		probeCtx, cancel := context.WithTimeout(context.Background(), hwProbeTimeout)
		defer cancel()

		err := p.runner.Run(probeCtx, "ffmpeg",
			"-hide_banner",
			"-f", "lavfi", "-i", "testsrc=duration=1:size=640x480:rate=1",
			"-c:v", "h264_v4l2m2m",
			"-f", "null", "-")
		p.hwAvailable = err == nil
		if p.hwAvailable {
			p.logger.Info("hardware encoder available", "encoder", "h264_v4l2m2m")
		}
	})
	return p.hwAvailable
}
