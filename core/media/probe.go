package media

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xfrr/goffmpeg/transcoder"

	"github.com/kenjp1223/dual-camera/core/ccc/logging"
)

// VideoInfo holds the stream properties the capture and fusion layers care
// about.
type VideoInfo struct {
	Path     string
	Codec    string
	Width    int
	Height   int
	FPS      float64
	Duration time.Duration
	Frames   int
}

// Prober extracts VideoInfo from a file on disk.
type Prober interface {
	Probe(path string) (*VideoInfo, error)
}

// FFmpegProber implements Prober using goffmpeg's ffprobe metadata.
type FFmpegProber struct {
	logger logging.Logger
}

// NewFFmpegProber creates a new FFmpeg-based prober
func NewFFmpegProber(logger logging.Logger) *FFmpegProber {
	if logger == nil {
		logger = logging.NopLogger
	}

	return &FFmpegProber{logger: logger}
}

// Probe reads the first video stream's properties. Missing and zero-length
// files are reported before ffprobe runs so the caller can distinguish an
// absent input from a corrupt one.
func (p *FFmpegProber) Probe(path string) (*VideoInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("video file %s: %w", path, err)
	}
	if stat.Size() == 0 {
		return nil, fmt.Errorf("video file %s is empty", path)
	}

	trans := new(transcoder.Transcoder)
	if err := trans.Initialize(path, ""); err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", path, err)
	}

	metadata := trans.MediaFile().Metadata()

	for _, stream := range metadata.Streams {
		if stream.CodecType != "video" {
			continue
		}

		info := &VideoInfo{
			Path:   path,
			Codec:  stream.CodecName,
			Width:  stream.Width,
			Height: stream.Height,
			FPS:    ParseRate(stream.AvgFrameRate),
		}
		if info.FPS == 0 {
			info.FPS = ParseRate(stream.RFrameRrate)
		}

		durationStr := stream.Duration
		if durationStr == "" {
			durationStr = metadata.Format.Duration
		}
		if seconds, err := strconv.ParseFloat(durationStr, 64); err == nil {
			info.Duration = time.Duration(seconds * float64(time.Second))
		}

		if info.FPS > 0 && info.Duration > 0 {
			// goffmpeg v1.0.0 does not expose nb_frames; estimate from rate
			// and length.
			info.Frames = int(math.Round(info.Duration.Seconds() * info.FPS))
		}

		if info.Width == 0 || info.Height == 0 {
			return nil, fmt.Errorf("could not extract video dimensions from %s", path)
		}

		p.logger.Debug("probed video file", "path", path,
			"codec", info.Codec, "resolution", fmt.Sprintf("%dx%d", info.Width, info.Height),
			"fps", info.FPS, "frames", info.Frames)

		return info, nil
	}

	return nil, fmt.Errorf("no video stream in %s", path)
}

// ParseRate parses an ffprobe rational rate such as "30/1" or "30000/1001".
// Returns 0 for malformed or zero-denominator input.
func ParseRate(rate string) float64 {
	rate = strings.TrimSpace(rate)
	if rate == "" || rate == "0/0" {
		return 0
	}

	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}

	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
