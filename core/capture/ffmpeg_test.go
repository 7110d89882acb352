package capture

import (
	"strings"
	"testing"
	"time"
)

func TestBuildCaptureArgs(t *testing.T) {
	p := Params{Duration: 10 * time.Second, FPS: 30, Width: 1280, Height: 720}
	args := buildCaptureArgs("/dev/video0", "/tmp/out/cam0.mp4", p)

	joined := strings.Join(args, " ")

	expectations := []string{
		"-f v4l2",
		"-input_format mjpeg",
		"-video_size 1280x720",
		"-framerate 30",
		"-i /dev/video0",
		"-vcodec copy",
		"-frames:v 300",
	}
	for _, want := range expectations {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected args to contain %q, got: %s", want, joined)
		}
	}

	if args[len(args)-1] != "/tmp/out/cam0.mp4" {
		t.Errorf("Expected output path as last arg, got %q", args[len(args)-1])
	}
}
