package internal

import (
	"fmt"
	"os"
	"strings"

	"github.com/MrSnakeDoc/coursemod/internal/logger"
	"github.com/MrSnakeDoc/coursemod/internal/middleware"
	"github.com/MrSnakeDoc/coursemod/internal/notifier"
	"github.com/MrSnakeDoc/coursemod/internal/printer"
	"github.com/MrSnakeDoc/coursemod/internal/registry"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

func init() {
	// runs after flag parsing but before argument validation, so flag
	// misuse errors are printed with the requested verbosity
	cobra.OnInitialize(func() {
		if logger.FlagJSON {
			printer.Plain(true)
		}
		logger.ConfigureLoggerFromFlags()
	})
}

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coursemod",
		Short: "Course module manager",
		Long: `Coursemod keeps the modules of a programming course in sync with their published versions.
It downloads archives or clones repositories listed in a course manifest, remembers which
version you have, and tells you when a newer one is available.`,
		Example: `coursemod init --manifest https://example.com/prog1/course.json
coursemod fetch --all`,
		Run: func(cmd *cobra.Command, _ []string) {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", Version)
				return
			}
			_ = cmd.Help()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			noNotice, _ := cmd.Flags().GetBool("no-notice")
			envNoNotice := strings.TrimSpace(os.Getenv("COURSEMOD_NO_NOTICE")) == "1"
			if noNotice || envNoNotice || logger.FlagQuiet || logger.FlagJSON {
				return
			}

			reg, err := middleware.Get[*registry.Registry](cmd, middleware.CtxKeyRegistry)
			if err != nil {
				return
			}
			notifier.DisplayUpdatable(logger.Out(), reg.Updatable())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().BoolP("version", "v", false, "Print version information")
	cmd.PersistentFlags().CountVarP(&logger.FlagVerboseCount, "verbose", "V", "Verbose output (debug logs)")
	cmd.PersistentFlags().BoolVarP(&logger.FlagQuiet, "quiet", "q", false, "Only print errors")
	cmd.PersistentFlags().BoolVar(&logger.FlagJSON, "json", false, "JSON log lines, no colors")
	cmd.PersistentFlags().Bool("no-notice", false, "Do not print the module update notice")

	RegisterSubCommands(cmd)

	return cmd
}

func Execute() error {
	root := NewRootCmd()

	if os.Getenv("COMP_LINE") != "" ||
		(len(os.Args) > 1 && strings.HasPrefix(os.Args[1], "__complete")) {
		return root.Execute()
	}

	if err := root.Execute(); err != nil {
		logger.Debug("Failed to execute root command: %v", err)
		return err
	}
	return nil
}
