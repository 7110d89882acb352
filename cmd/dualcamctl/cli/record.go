package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenjp1223/dual-camera/core/capture"
	"github.com/kenjp1223/dual-camera/core/session"
)

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var (
		durationSecs float64
		fps          int
		width        int
		height       int
		subject      string
		nodeNames    []string
		bestEffort   bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Run a synchronized recording session across nodes",
		Long:  "Start a synchronized dual-camera recording on the selected nodes and poll until every node finishes. Ctrl+C aborts the session and stops all nodes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			coordinator, err := deps.coordinator(cmd)
			if err != nil {
				return err
			}

			// No --nodes means every registered node.
			if len(nodeNames) == 0 {
				list, err := deps.NodeRepo.GetAll(cmd.Context())
				if err != nil {
					return err
				}
				for _, node := range list {
					nodeNames = append(nodeNames, node.Name)
				}
			}

			params := capture.Params{
				Duration: time.Duration(durationSecs * float64(time.Second)),
				FPS:      fps,
				Width:    width,
				Height:   height,
				Subject:  subject,
			}
			policy := session.Policy{BestEffort: bestEffort || deps.Config.BestEffort}

			// Ctrl+C cancels polling; the abort itself runs on a fresh
			// context so the stop commands still go out.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			sessionID, err := coordinator.RequestSession(ctx, nodeNames, params, policy)
			if err != nil {
				return err
			}

			fmt.Printf("Session %s started.\n", sessionID)

			interval := time.Duration(secondsOrDefaultInt(deps.Config.PollIntervalSeconds, 2)) * time.Second
			status, err := pollUntilTerminal(ctx, coordinator, sessionID, interval)
			if err != nil {
				if ctx.Err() != nil {
					fmt.Println("Interrupted, aborting session...")
					abortCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()
					if abortErr := coordinator.Abort(abortCtx, sessionID); abortErr != nil {
						return abortErr
					}
					status, err = coordinator.Poll(abortCtx, sessionID)
				}
				if err != nil {
					return err
				}
			}

			printSessionStatus(status)

			if status.Outcome != session.OutcomeCompleted {
				return fmt.Errorf("session finished with outcome %s", status.Outcome)
			}
			return nil
		},
	}

	cmd.Flags().Float64VarP(&durationSecs, "duration", "d", 60, "Recording duration in seconds")
	cmd.Flags().IntVar(&fps, "fps", 30, "Frames per second")
	cmd.Flags().IntVar(&width, "width", 640, "Frame width in pixels")
	cmd.Flags().IntVar(&height, "height", 480, "Frame height in pixels")
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Subject tag used in the capture folder name")
	cmd.Flags().StringSliceVar(&nodeNames, "nodes", nil, "Nodes to record on (default: all registered)")
	cmd.Flags().BoolVar(&bestEffort, "best-effort", false, "Proceed when some nodes fail to prepare")

	return cmd
}

// pollUntilTerminal polls the session until its outcome is final.
func pollUntilTerminal(ctx context.Context, coordinator *session.Coordinator, sessionID string, interval time.Duration) (*session.Status, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := coordinator.Poll(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if status.Outcome.Terminal() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func printSessionStatus(status *session.Status) {
	fmt.Printf("Session %s: %s\n", status.ID, status.Outcome)
	for _, ns := range status.Nodes {
		line := fmt.Sprintf("  %s\t%s", ns.Node, ns.State)
		if !ns.Participating {
			line += "\t(excluded)"
		}
		if ns.Reason != "" {
			line += "\t" + ns.Reason
		}
		if ns.Result != nil {
			line += fmt.Sprintf("\t%s (cam0 %d frames, cam1 %d frames)", ns.Result.Dir, ns.Result.Cam0.Frames, ns.Result.Cam1.Frames)
		}
		fmt.Println(line)
	}
}

func secondsOrDefault(secs int, fallback time.Duration) time.Duration {
	if secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func secondsOrDefaultInt(secs, fallback int) int {
	if secs <= 0 {
		return fallback
	}
	return secs
}
