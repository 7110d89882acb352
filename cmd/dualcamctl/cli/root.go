package cli

import (
	"github.com/spf13/cobra"

	"github.com/kenjp1223/dual-camera/core/ccc/logging"
	"github.com/kenjp1223/dual-camera/core/config"
	"github.com/kenjp1223/dual-camera/core/fusion"
	"github.com/kenjp1223/dual-camera/core/nodeclient"
	"github.com/kenjp1223/dual-camera/core/nodes"
	"github.com/kenjp1223/dual-camera/core/session"
)

// Dependencies carries the shared services the subcommands operate on.
type Dependencies struct {
	Config      *config.Config
	Logger      logging.Logger
	NodeRepo    nodes.NodeRepository
	SessionRepo session.SessionRepository
	Client      nodeclient.Client
	Pipeline    fusion.Pipeline
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dualcamctl",
		Short: "Control synchronized dual-camera recordings across nodes",
		Long:  "A CLI tool that registers camera nodes, triggers synchronized dual-camera recordings on them, and fuses the resulting file pairs into stacked videos.",
	}

	rootCmd.AddCommand(NewNodesCmd(deps))
	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewStatusCmd(deps))
	rootCmd.AddCommand(NewAbortCmd(deps))
	rootCmd.AddCommand(NewFuseCmd(deps))
	rootCmd.AddCommand(NewPreviewCmd(deps))
	rootCmd.AddCommand(NewFoldersCmd(deps))

	return rootCmd
}

// coordinator builds a session coordinator over the currently registered
// nodes. The node set is snapshotted here; nodes added later are not seen by
// sessions already in flight.
func (deps *Dependencies) coordinator(cmd *cobra.Command) (*session.Coordinator, error) {
	list, err := deps.NodeRepo.GetAll(cmd.Context())
	if err != nil {
		return nil, err
	}

	directory, err := nodes.NewDirectory(list)
	if err != nil {
		return nil, err
	}

	settings := session.CoordinatorSettings{
		PrepareTimeout: secondsOrDefault(deps.Config.PrepareTimeoutSecs, session.DefaultCoordinatorSettings().PrepareTimeout),
		CommandTimeout: secondsOrDefault(deps.Config.CommandTimeoutSecs, session.DefaultCoordinatorSettings().CommandTimeout),
	}

	return session.NewCoordinatorWithSettings(deps.Logger, directory, deps.Client, deps.SessionRepo, settings), nil
}
