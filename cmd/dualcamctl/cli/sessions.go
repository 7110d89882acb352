package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewStatusCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "status [session-id]",
		Short: "Show archived sessions, or one session in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				status, err := deps.SessionRepo.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if status == nil {
					return fmt.Errorf("session %q not found", args[0])
				}
				printSessionStatus(status)
				return nil
			}

			list, err := deps.SessionRepo.GetAll(cmd.Context())
			if err != nil {
				return err
			}

			if len(list) == 0 {
				fmt.Println("No archived sessions.")
				return nil
			}

			for _, status := range list {
				fmt.Printf("%s\t%s\t%s\t%d nodes\n", status.ID, status.CreatedAt.Format("2006-01-02 15:04:05"), status.Outcome, len(status.Nodes))
			}
			return nil
		},
	}
}

// NewAbortCmd stops any active capture on the registered nodes directly.
// It covers the case where the controller process that owned the session is
// gone but the nodes are still recording.
func NewAbortCmd(deps *Dependencies) *cobra.Command {
	var nodeNames []string

	cmd := &cobra.Command{
		Use:   "abort",
		Short: "Stop any active capture on the registered nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := deps.NodeRepo.GetAll(cmd.Context())
			if err != nil {
				return err
			}

			selected := map[string]bool{}
			for _, name := range nodeNames {
				selected[name] = true
			}

			var failures int
			for _, node := range list {
				if len(selected) > 0 && !selected[node.Name] {
					continue
				}

				status, err := deps.Client.Stop(cmd.Context(), node)
				if err != nil {
					failures++
					fmt.Printf("%s\tstop failed: %v\n", node.Name, err)
					continue
				}
				fmt.Printf("%s\t%s\n", node.Name, status.State)
			}

			if failures > 0 {
				return fmt.Errorf("%d node(s) failed to stop", failures)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&nodeNames, "nodes", nil, "Nodes to stop (default: all registered)")

	return cmd
}
