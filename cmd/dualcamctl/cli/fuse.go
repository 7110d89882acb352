package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kenjp1223/dual-camera/core/fusion"
)

func NewFuseCmd(deps *Dependencies) *cobra.Command {
	var (
		layout   string
		rot0     int
		rot1     int
		output   string
		strategy string
	)

	cmd := &cobra.Command{
		Use:   "fuse <folder>",
		Short: "Fuse a folder's camera pair into one composite video",
		Long:  "Combine cam0.mp4 and cam1.mp4 from a capture folder into a single stacked video, optionally rotating each input first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := fusion.Job{
				Folder:        args[0],
				OutputPath:    output,
				Layout:        fusion.Layout(layout),
				Cam0Rotation:  fusion.Rotation(rot0),
				Cam1Rotation:  fusion.Rotation(rot1),
				ForceStrategy: fusion.Strategy(strategy),
			}

			result, err := deps.Pipeline.Fuse(cmd.Context(), job)
			if err != nil {
				return err
			}

			fmt.Printf("Wrote %s (%s, %dx%d)\n", result.OutputPath, result.Strategy, result.Output.Width, result.Output.Height)
			if result.Mismatch {
				fmt.Printf("Warning: inputs diverge: %s\n", result.MismatchDetail)
			}
			return nil
		},
	}

	addFusionFlags(cmd, &layout, &rot0, &rot1, &output)
	cmd.Flags().StringVar(&strategy, "strategy", "", "Force the encode strategy (copy, transcode, hw-accel)")

	return cmd
}

func NewPreviewCmd(deps *Dependencies) *cobra.Command {
	var (
		layout string
		rot0   int
		rot1   int
		output string
	)

	cmd := &cobra.Command{
		Use:   "preview <folder>",
		Short: "Render a single-frame composite still for a capture folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := fusion.Job{
				Folder:       args[0],
				OutputPath:   output,
				Layout:       fusion.Layout(layout),
				Cam0Rotation: fusion.Rotation(rot0),
				Cam1Rotation: fusion.Rotation(rot1),
			}

			result, err := deps.Pipeline.Preview(cmd.Context(), job)
			if err != nil {
				return err
			}

			fmt.Printf("Wrote %s\n", result.OutputPath)
			return nil
		},
	}

	addFusionFlags(cmd, &layout, &rot0, &rot1, &output)

	return cmd
}

func addFusionFlags(cmd *cobra.Command, layout *string, rot0, rot1 *int, output *string) {
	cmd.Flags().StringVarP(layout, "layout", "l", "vertical", "Stack layout (vertical or horizontal)")
	cmd.Flags().IntVar(rot0, "rotate0", 0, "Rotation for cam0 in degrees (0, 90, 180, 270)")
	cmd.Flags().IntVar(rot1, "rotate1", 0, "Rotation for cam1 in degrees (0, 90, 180, 270)")
	cmd.Flags().StringVarP(output, "output", "o", "", "Output path (default: derived from the folder name)")
}

// NewFoldersCmd lists capture folders under the output root and whether each
// holds a complete camera pair.
func NewFoldersCmd(deps *Dependencies) *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List capture folders and their completeness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := os.ReadDir(root)
			if err != nil {
				return err
			}

			var names []string
			for _, entry := range entries {
				if entry.IsDir() && strings.HasPrefix(entry.Name(), "record_") {
					names = append(names, entry.Name())
				}
			}
			sort.Strings(names)

			if len(names) == 0 {
				fmt.Printf("No capture folders under %s\n", root)
				return nil
			}

			for _, name := range names {
				dir := filepath.Join(root, name)
				state := "complete"
				if !fileExists(filepath.Join(dir, "cam0.mp4")) || !fileExists(filepath.Join(dir, "cam1.mp4")) {
					state = "incomplete"
				}
				fmt.Printf("%s\t%s\n", name, state)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", deps.Config.OutputRoot, "Directory holding the capture folders")

	return cmd
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
