package internal

import (
	"github.com/MrSnakeDoc/coursemod/internal/middleware"
	"github.com/MrSnakeDoc/coursemod/internal/registry"
	"github.com/spf13/cobra"
)

var withRegistry = middleware.UseMiddlewareChain(middleware.RequireConfig, middleware.LoadRegistry)

var defaultCommands = []middleware.CommandFactory{
	NewInitCmd,
	withRegistry(NewListCmd),
	withRegistry(NewFetchCmd),
	withRegistry(NewStatusCmd),
	withRegistry(NewRefreshCmd),
}

func RegisterSubCommands(cmd *cobra.Command) {
	for _, factory := range defaultCommands {
		cmd.AddCommand(factory())
	}
}

// currentRegistry is set by the LoadRegistry middleware.
func currentRegistry(cmd *cobra.Command) (*registry.Registry, error) {
	return middleware.Get[*registry.Registry](cmd, middleware.CtxKeyRegistry)
}
