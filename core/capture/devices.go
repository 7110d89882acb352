package capture

import (
	"os"
)

// DevicePair is the two camera device paths of one node.
type DevicePair struct {
	Cam0 string
	Cam1 string
}

// Resolve verifies that both device paths exist. It does not open them;
// exclusivity against other capture jobs is enforced by the supervisor's
// single-active-job rule, and exclusivity against foreign processes surfaces
// as an immediate capture process exit.
func (d DevicePair) Resolve() error {
	if d.Cam0 == "" || d.Cam1 == "" {
		return NewError(ReasonDeviceNotFound, "both camera devices must be configured (cam0=%q, cam1=%q)", d.Cam0, d.Cam1)
	}
	if d.Cam0 == d.Cam1 {
		return NewError(ReasonDeviceNotFound, "cam0 and cam1 resolve to the same device: %s", d.Cam0)
	}
	for _, dev := range []string{d.Cam0, d.Cam1} {
		if _, err := os.Stat(dev); err != nil {
			return NewError(ReasonDeviceNotFound, "camera device %s: %v", dev, err)
		}
	}
	return nil
}
