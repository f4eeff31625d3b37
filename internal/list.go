package internal

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/coursemod/internal/kinds"
	"github.com/MrSnakeDoc/coursemod/internal/logger"
	"github.com/MrSnakeDoc/coursemod/internal/printer"
	"github.com/MrSnakeDoc/coursemod/internal/registry"
	"github.com/MrSnakeDoc/coursemod/internal/resource"

	"github.com/spf13/cobra"
)

func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the modules of the course and their state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := currentRegistry(cmd)
			if err != nil {
				return err
			}
			if logger.FlagJSON {
				return encodeModules(reg)
			}
			return renderModules(reg.All())
		},
	}
}

// moduleView is one entry of `list --json`.
type moduleView struct {
	Name           string     `json:"name"`
	Kind           string     `json:"kind"`
	VersionID      string     `json:"versionId,omitempty"`
	LocalVersionID string     `json:"localVersionId,omitempty"`
	DownloadedAt   *time.Time `json:"downloadedAt,omitempty"`
	State          string     `json:"state"`
	Updatable      bool       `json:"updatable"`
}

func encodeModules(reg *registry.Registry) error {
	snap := reg.Snapshot()
	mods := reg.All()
	views := make([]moduleView, 0, len(mods))
	for _, m := range mods {
		md := snap[m.Name()]
		v := moduleView{
			Name:         m.Name(),
			Kind:         kinds.KindOf(m.Location()),
			VersionID:    m.VersionID(),
			DownloadedAt: md.DownloadedAt,
			State:        m.State().String(),
			Updatable:    m.IsUpdatable(),
		}
		if md.DownloadedAt != nil {
			v.LocalVersionID = md.VersionID
		}
		views = append(views, v)
	}

	enc := json.NewEncoder(logger.Out())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"modules": views})
}

func renderModules(mods []*resource.Module) error {
	table := logger.CreateTable([]string{"Module", "Kind", "Version", "Local", "State", "Updatable"})
	p := printer.NewColorPrinter()

	for _, m := range mods {
		md := m.Metadata()
		local := "-"
		if md.DownloadedAt != nil {
			local = orDash(md.VersionID)
		}
		row := []string{
			m.Name(),
			kinds.KindOf(m.Location()),
			orDash(m.VersionID()),
			local,
			p.State(m.State().String()),
			strconv.FormatBool(m.IsUpdatable()),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}

	return table.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
