package internal

import (
	"github.com/MrSnakeDoc/coursemod/internal/config"
	"github.com/MrSnakeDoc/coursemod/internal/errs"
	"github.com/MrSnakeDoc/coursemod/internal/globalconfig"
	"github.com/MrSnakeDoc/coursemod/internal/logger"
	"github.com/MrSnakeDoc/coursemod/internal/manifest"
	"github.com/MrSnakeDoc/coursemod/internal/middleware"
	"github.com/MrSnakeDoc/coursemod/internal/service"
	"github.com/MrSnakeDoc/coursemod/internal/utils/pathutils"

	"github.com/spf13/cobra"
)

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Point coursemod at a course manifest",
		Long: `Initialize coursemod.
This command will:
- Check that the manifest can be read and that every module entry is valid
- Create the configuration directory in ~/.config/coursemod
- Save the manifest location and the modules directory in the global configuration`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			source, _ := cmd.Flags().GetString("manifest")
			dir, _ := cmd.Flags().GetString("dir")
			if source == "" {
				return middleware.FlagComboError(errs.MissingManifest)
			}

			var err error
			if !globalconfig.IsRemote(source) {
				if source, err = pathutils.ToAbsolutePath(source); err != nil {
					return err
				}
			}
			if dir != "" {
				if dir, err = pathutils.ToAbsolutePath(dir); err != nil {
					return err
				}
			}

			cfg := config.Default()
			doc, err := manifest.Load(cmd.Context(), source, service.NewHTTPClient(cfg.HTTPTimeout))
			if err != nil {
				return err
			}
			recs, err := doc.Records()
			if err != nil {
				return err
			}

			pconf := &globalconfig.PersistentConfig{Manifest: source, ModulesDir: dir}
			if err := pconf.Save(); err != nil {
				return err
			}

			logger.Success("Initialized course %q with %d modules", doc.Name, len(recs))
			logger.Info("Modules will be stored in %s", cfg.WithModulesDir(dir).ModulesDir)
			return nil
		},
	}

	cmd.Flags().StringP("manifest", "m", "", "Path or http(s) URL of the course manifest (JSON or YAML)")
	cmd.Flags().StringP("dir", "d", "", "Directory where modules are stored")
	return cmd
}
