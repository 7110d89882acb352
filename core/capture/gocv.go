package capture

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/kenjp1223/dual-camera/core/ccc/logging"
)

// GoCVLauncher is the OpenCV capture backend for hosts where ffmpeg's v4l2
// input is unavailable. It satisfies the same Launcher contract as the
// ffmpeg backend: one Process per camera, bounded by the frame target.
type GoCVLauncher struct {
	logger logging.Logger
}

func NewGoCVLauncher(logger logging.Logger) *GoCVLauncher {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &GoCVLauncher{logger: logger}
}

// Launch opens the device and starts the frame loop. The returned Process
// owns the webcam and writer for its whole lifetime.
func (l *GoCVLauncher) Launch(device, outputPath string, p Params) (Process, error) {
	webcam, err := gocv.OpenVideoCapture(captureSource(device))
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %s: %w", device, err)
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(p.Width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(p.Height))
	webcam.Set(gocv.VideoCaptureFPS, float64(p.FPS))

	writer, err := gocv.VideoWriterFile(outputPath, "MJPG", float64(p.FPS), p.Width, p.Height, true)
	if err != nil {
		webcam.Close()
		return nil, fmt.Errorf("failed to create video writer for %s: %w", outputPath, err)
	}

	proc := &gocvProcess{
		logger: l.logger,
		path:   outputPath,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go proc.loop(webcam, writer, p)
	return proc, nil
}

// captureSource maps a device string to what gocv expects: a numeric index
// for "0"-style identifiers, the path itself for /dev/video* nodes.
func captureSource(device string) any {
	if id, err := strconv.Atoi(device); err == nil {
		return id
	}
	return device
}

type gocvProcess struct {
	logger logging.Logger
	path   string
	stopCh chan struct{}
	done   chan struct{}

	stopOnce sync.Once
	mu       sync.Mutex
	err      error
}

func (p *gocvProcess) loop(webcam *gocv.VideoCapture, writer *gocv.VideoWriter, params Params) {
	defer close(p.done)
	defer webcam.Close()
	defer writer.Close()

	img := gocv.NewMat()
	defer img.Close()

	frameTarget := params.ExpectedFrames()
	frameInterval := time.Second / time.Duration(params.FPS)
	nextFrameTime := time.Now()
	frameCount := 0

	for frameCount < frameTarget {
		select {
		case <-p.stopCh:
			p.logger.Debug("capture loop stopped", "path", p.path, "frames", frameCount)
			return
		default:
		}

		// Pace reads so the writer sees the requested frame rate.
		if now := time.Now(); now.Before(nextFrameTime) {
			time.Sleep(nextFrameTime.Sub(now))
		}

		if ok := webcam.Read(&img); !ok {
			p.fail(fmt.Errorf("camera stopped delivering frames after %d of %d", frameCount, frameTarget))
			return
		}
		if img.Empty() {
			continue
		}

		if err := writer.Write(img); err != nil {
			p.fail(fmt.Errorf("failed to write frame %d: %w", frameCount, err))
			return
		}
		frameCount++
		nextFrameTime = nextFrameTime.Add(frameInterval)
	}
}

func (p *gocvProcess) fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *gocvProcess) Done() <-chan struct{} {
	return p.done
}

func (p *gocvProcess) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Interrupt asks the frame loop to stop; the writer finalizes on close.
func (p *gocvProcess) Interrupt() error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	return nil
}

// Kill is identical to Interrupt for the in-process backend.
func (p *gocvProcess) Kill() error {
	return p.Interrupt()
}
