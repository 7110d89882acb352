package fusion

import (
	"fmt"
	"strings"
)

// Geometry is a pane size in pixels.
type Geometry struct {
	Width  int
	Height int
}

// rotationFilter emits the transpose chain for one input. transpose=1 is a
// clockwise quarter turn, transpose=2 counter-clockwise; 180 degrees is two
// clockwise turns.
func rotationFilter(inputIdx int, rot Rotation) string {
	label := fmt.Sprintf("[%d:v]", inputIdx)
	out := fmt.Sprintf("[v%d_rot]", inputIdx)

	switch rot {
	case Rotate90:
		return label + "transpose=1" + out + ";"
	case Rotate180:
		return label + "transpose=1,transpose=1" + out + ";"
	case Rotate270:
		return label + "transpose=2" + out + ";"
	default:
		return label + "copy" + out + ";"
	}
}

// BuildGraph builds the filter_complex graph that rotates both panes,
// scales them to a common edge and stacks them. It returns the graph and
// the resulting output geometry.
//
// Vertical layout puts cam0 on top and matches pane widths; horizontal puts
// cam0 on the left and matches pane heights.
func BuildGraph(cam0, cam1 Geometry, rot0, rot1 Rotation, layout Layout) (string, Geometry) {
	if rot0.swapsDimensions() {
		cam0.Width, cam0.Height = cam0.Height, cam0.Width
	}
	if rot1.swapsDimensions() {
		cam1.Width, cam1.Height = cam1.Height, cam1.Width
	}

	var graph strings.Builder
	graph.WriteString(rotationFilter(0, rot0))
	graph.WriteString(rotationFilter(1, rot1))

	var out Geometry
	if layout == LayoutVertical {
		out.Width = max(cam0.Width, cam1.Width)
		out.Height = cam0.Height + cam1.Height

		fmt.Fprintf(&graph, "[v0_rot]scale=%d:%d[v0_scaled];", out.Width, cam0.Height)
		fmt.Fprintf(&graph, "[v1_rot]scale=%d:%d[v1_scaled];", out.Width, cam1.Height)
		graph.WriteString("[v0_scaled][v1_scaled]vstack=inputs=2[v]")
	} else {
		out.Width = cam0.Width + cam1.Width
		out.Height = max(cam0.Height, cam1.Height)

		fmt.Fprintf(&graph, "[v0_rot]scale=%d:%d[v0_scaled];", cam0.Width, out.Height)
		fmt.Fprintf(&graph, "[v1_rot]scale=%d:%d[v1_scaled];", cam1.Width, out.Height)
		graph.WriteString("[v0_scaled][v1_scaled]hstack=inputs=2[v]")
	}

	return graph.String(), out
}
