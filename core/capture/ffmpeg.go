package capture

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// buildCaptureArgs builds the ffmpeg argument list for one camera. The
// camera's MJPEG stream is written as-is (-vcodec copy); normalization
// happens later in the fusion pipeline. -frames:v bounds the capture
// locally, so a node finishes on time even if the coordinator is
// unreachable at stop time.
func buildCaptureArgs(device, outputPath string, p Params) []string {
	return []string{
		"-f", "v4l2",
		"-input_format", "mjpeg",
		"-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-framerate", fmt.Sprintf("%d", p.FPS),
		"-i", device,
		"-vcodec", "copy",
		"-frames:v", fmt.Sprintf("%d", p.ExpectedFrames()),
		outputPath,
	}
}

// Launcher starts one camera capture process.
type Launcher interface {
	Launch(device, outputPath string, p Params) (Process, error)
}

// Process is a handle to one running capture child.
type Process interface {
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Err reports the exit error; valid after Done is closed.
	Err() error
	// Interrupt asks the process to finalize its output file.
	Interrupt() error
	// Kill force-terminates the process and its process group.
	Kill() error
}

// FFmpegLauncher launches ffmpeg v4l2 capture subprocesses.
type FFmpegLauncher struct{}

func NewFFmpegLauncher() *FFmpegLauncher {
	return &FFmpegLauncher{}
}

// CheckFFmpeg verifies that the ffmpeg binary is on PATH.
func (l *FFmpegLauncher) CheckFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found on PATH: %w", err)
	}
	return nil
}

// Launch starts ffmpeg for one camera. Stderr goes to a sidecar log file
// next to the output for diagnostics.
func (l *FFmpegLauncher) Launch(device, outputPath string, p Params) (Process, error) {
	cmd := exec.Command("ffmpeg", buildCaptureArgs(device, outputPath, p)...)
	cmd.Stdin = nil
	cmd.SysProcAttr = sysProcAttr()

	if logFile, err := os.Create(outputPath + ".ffmpeg.log"); err == nil {
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg for %s: %w", device, err)
	}

	proc := &ffmpegProcess{cmd: cmd, done: make(chan struct{})}
	go proc.wait()
	return proc, nil
}

type ffmpegProcess struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu  sync.Mutex
	err error
}

func (p *ffmpegProcess) wait() {
	err := p.cmd.Wait()
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	if closer, ok := p.cmd.Stderr.(*os.File); ok && closer != nil {
		closer.Close()
	}
	close(p.done)
}

func (p *ffmpegProcess) Done() <-chan struct{} {
	return p.done
}

func (p *ffmpegProcess) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Interrupt sends SIGINT so ffmpeg writes the trailer and closes the file
// cleanly.
func (p *ffmpegProcess) Interrupt() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	return p.cmd.Process.Signal(os.Interrupt)
}

// Kill terminates the whole process group.
func (p *ffmpegProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	// Negative pid addresses the group set up by sysProcAttr.
	if err := syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL); err == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}
