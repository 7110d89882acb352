package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenjp1223/dual-camera/core/nodes"
)

func NewNodesCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "Manage the registered camera nodes",
	}

	cmd.AddCommand(newNodesAddCmd(deps))
	cmd.AddCommand(newNodesListCmd(deps))
	cmd.AddCommand(newNodesRemoveCmd(deps))

	return cmd
}

func newNodesAddCmd(deps *Dependencies) *cobra.Command {
	var cam0, cam1 string

	cmd := &cobra.Command{
		Use:   "add <name> <base-url>",
		Short: "Register a camera node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			node := &nodes.Node{
				Name:       args[0],
				BaseURL:    args[1],
				Cam0Device: cam0,
				Cam1Device: cam1,
				CreatedAt:  now,
				UpdatedAt:  now,
			}

			existing, err := deps.NodeRepo.GetByName(cmd.Context(), node.Name)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("node %q already exists", node.Name)
			}

			if err := deps.NodeRepo.Create(cmd.Context(), node); err != nil {
				return err
			}

			fmt.Printf("Registered node %s at %s\n", node.Name, node.BaseURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&cam0, "cam0", "/dev/video0", "First camera device on the node")
	cmd.Flags().StringVar(&cam1, "cam1", "/dev/video2", "Second camera device on the node")

	return cmd
}

func newNodesListCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered camera nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := deps.NodeRepo.GetAll(cmd.Context())
			if err != nil {
				return err
			}

			if len(list) == 0 {
				fmt.Println("No nodes registered.")
				return nil
			}

			for _, node := range list {
				fmt.Printf("%s\t%s\t%s,%s\n", node.Name, node.BaseURL, node.Cam0Device, node.Cam1Device)
			}
			return nil
		},
	}
}

func newNodesRemoveCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a registered camera node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, err := deps.NodeRepo.GetByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("node %q is not registered", args[0])
			}

			if err := deps.NodeRepo.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Printf("Removed node %s\n", args[0])
			return nil
		},
	}
}
