package fusion

import "math"

// InputProps are the declared stream properties strategy selection operates
// on. Keeping selection a pure function of these makes it testable without
// invoking an encoder.
type InputProps struct {
	Codec  string
	Width  int
	Height int
	FPS    float64
}

// SelectStrategy picks the encode path for a pair of inputs.
//
// Copy mode remuxes without re-encoding and is only possible when both
// inputs already match (codec, resolution, frame rate) and no rotation is
// requested, since rotation is a pixel-domain transform. Otherwise the job
// must transcode, preferring the hardware encoder when the host has one.
func SelectStrategy(cam0, cam1 InputProps, rot0, rot1 Rotation, hwAvailable bool) Strategy {
	canCopy := cam0.Codec == cam1.Codec &&
		cam0.Width == cam1.Width &&
		cam0.Height == cam1.Height &&
		math.Abs(cam0.FPS-cam1.FPS) < 0.1 &&
		rot0 == Rotate0 && rot1 == Rotate0

	if canCopy {
		return StrategyCopy
	}
	if hwAvailable {
		return StrategyHWAccel
	}
	return StrategyTranscode
}
