package internal

import (
	"github.com/MrSnakeDoc/coursemod/internal/logger"

	"github.com/spf13/cobra"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show modules that can be updated or were modified locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := currentRegistry(cmd)
			if err != nil {
				return err
			}

			updatable := reg.Updatable()
			modified, err := reg.LocallyModified(cmd.Context())
			if err != nil {
				logger.Warn("could not check every module for local changes: %v", err)
			}

			if len(updatable) == 0 && len(modified) == 0 {
				logger.Success("Every module is up to date")
				return nil
			}

			for _, m := range updatable {
				logger.Info("%s can be updated to %s", m.Name(), orDash(m.VersionID()))
			}
			for _, m := range modified {
				logger.Warn("%s has local changes since it was fetched", m.Name())
			}
			return nil
		},
	}
}
