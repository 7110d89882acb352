package capture

import "testing"

func TestDevicePairResolve(t *testing.T) {
	tests := []struct {
		name string
		pair DevicePair
	}{
		{"empty cam0", DevicePair{Cam0: "", Cam1: "/dev/video2"}},
		{"empty cam1", DevicePair{Cam0: "/dev/video0", Cam1: ""}},
		{"same device", DevicePair{Cam0: "/dev/video0", Cam1: "/dev/video0"}},
		{"missing device", DevicePair{Cam0: "/dev/nonexistent-cam-a", Cam1: "/dev/nonexistent-cam-b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pair.Resolve()
			if err == nil {
				t.Fatal("Expected resolve error")
			}
			if ReasonOf(err) != ReasonDeviceNotFound {
				t.Errorf("Expected reason %s, got %s", ReasonDeviceNotFound, ReasonOf(err))
			}
		})
	}
}
