package internal

import (
	"github.com/MrSnakeDoc/coursemod/internal/middleware"
	"github.com/MrSnakeDoc/coursemod/internal/resource"

	"github.com/spf13/cobra"
)

func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [modules...]",
		Short: "Download or update modules",
		Long: `Download modules, or update them to the published version.
You can fetch specific modules or use --all to fetch every module of the course.

Examples:
  coursemod fetch Intro            # Fetch a single module
  coursemod fetch Intro Loops      # Fetch several modules
  coursemod fetch --all            # Fetch every module
  coursemod fetch --all --updatable  # Only modules behind their published version`,
		Args: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			_, err := middleware.ResolveTargets(all, args, "Fetch", "fetch")
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := currentRegistry(cmd)
			if err != nil {
				return err
			}

			all, _ := cmd.Flags().GetBool("all")
			onlyUpdatable, _ := cmd.Flags().GetBool("updatable")

			var mods []*resource.Module
			switch {
			case !all:
				if mods, err = reg.Select(args); err != nil {
					return err
				}
			case onlyUpdatable:
				mods = reg.Updatable()
			default:
				mods = reg.All()
			}

			return reg.FetchAll(cmd.Context(), mods)
		},
	}

	cmd.Flags().BoolP("all", "a", false, "Fetch every module of the course")
	cmd.Flags().BoolP("updatable", "u", false, "With --all, only fetch modules behind their published version")
	return cmd
}
