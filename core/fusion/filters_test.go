package fusion

import (
	"strings"
	"testing"
)

func TestBuildGraphVertical(t *testing.T) {
	graph, out := BuildGraph(
		Geometry{Width: 640, Height: 480},
		Geometry{Width: 640, Height: 480},
		Rotate0, Rotate0, LayoutVertical)

	if out.Width != 640 || out.Height != 960 {
		t.Errorf("Expected 640x960 output, got %dx%d", out.Width, out.Height)
	}
	if !strings.Contains(graph, "vstack=inputs=2[v]") {
		t.Errorf("Expected vstack in graph, got: %s", graph)
	}
	if !strings.Contains(graph, "[0:v]copy[v0_rot]") || !strings.Contains(graph, "[1:v]copy[v1_rot]") {
		t.Errorf("Expected passthrough rotation filters, got: %s", graph)
	}
}

func TestBuildGraphHorizontal(t *testing.T) {
	graph, out := BuildGraph(
		Geometry{Width: 640, Height: 480},
		Geometry{Width: 1280, Height: 720},
		Rotate0, Rotate0, LayoutHorizontal)

	if out.Width != 1920 || out.Height != 720 {
		t.Errorf("Expected 1920x720 output, got %dx%d", out.Width, out.Height)
	}
	if !strings.Contains(graph, "hstack=inputs=2[v]") {
		t.Errorf("Expected hstack in graph, got: %s", graph)
	}
	// Both panes scale to the common height.
	if !strings.Contains(graph, "scale=640:720") || !strings.Contains(graph, "scale=1280:720") {
		t.Errorf("Expected panes scaled to common height, got: %s", graph)
	}
}

func TestBuildGraphQuarterTurnSwapsDimensions(t *testing.T) {
	_, out := BuildGraph(
		Geometry{Width: 640, Height: 480},
		Geometry{Width: 640, Height: 480},
		Rotate90, Rotate0, LayoutVertical)

	// cam0 becomes 480x640, so the stack is max(480,640) wide and 640+480 tall.
	if out.Width != 640 || out.Height != 1120 {
		t.Errorf("Expected 640x1120 output, got %dx%d", out.Width, out.Height)
	}
}

func TestBuildGraphRotationFilters(t *testing.T) {
	tests := []struct {
		rot  Rotation
		want string
	}{
		{Rotate90, "[0:v]transpose=1[v0_rot]"},
		{Rotate180, "[0:v]transpose=1,transpose=1[v0_rot]"},
		{Rotate270, "[0:v]transpose=2[v0_rot]"},
	}

	for _, tt := range tests {
		graph, _ := BuildGraph(
			Geometry{Width: 640, Height: 480},
			Geometry{Width: 640, Height: 480},
			tt.rot, Rotate0, LayoutVertical)
		if !strings.Contains(graph, tt.want) {
			t.Errorf("Expected %q in graph for rotation %d, got: %s", tt.want, tt.rot, graph)
		}
	}
}

func TestBuildGraphHalfTurnKeepsDimensions(t *testing.T) {
	_, out := BuildGraph(
		Geometry{Width: 640, Height: 480},
		Geometry{Width: 640, Height: 480},
		Rotate180, Rotate180, LayoutVertical)

	if out.Width != 640 || out.Height != 960 {
		t.Errorf("Expected 640x960 output, got %dx%d", out.Width, out.Height)
	}
}
