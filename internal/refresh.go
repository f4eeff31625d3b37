package internal

import (
	"github.com/spf13/cobra"
)

func NewRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-read module states from disk",
		Long: `Re-derive the state of every module from its local copy, then list them.
Useful after deleting or restoring a module directory by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := currentRegistry(cmd)
			if err != nil {
				return err
			}
			if err := reg.Refresh(cmd.Context()); err != nil {
				return err
			}
			return renderModules(reg.All())
		},
	}
}
