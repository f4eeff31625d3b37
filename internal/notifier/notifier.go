package notifier

import (
	"fmt"
	"io"
	"strings"

	"github.com/MrSnakeDoc/coursemod/internal/printer"
	"github.com/MrSnakeDoc/coursemod/internal/resource"
	"github.com/MrSnakeDoc/coursemod/internal/utils"
)

const (
	borderColor = "\033[38;5;39m"
	resetColor  = "\033[0m"
	padding     = 2
)

// DisplayUpdatable prints a boxed notice listing modules behind their remote version.
// Nothing is printed when mods is empty.
func DisplayUpdatable(w io.Writer, mods []*resource.Module) {
	if len(mods) == 0 {
		return
	}

	p := printer.NewColorPrinter()

	lines := []string{p.Success("Module updates available!")}
	for _, m := range mods {
		local := m.Metadata().VersionID
		if local == "" {
			local = "?"
		}
		lines = append(lines, fmt.Sprintf("%s %s -> %s", p.Info(m.Name()), p.Error(local), p.Success(m.VersionID())))
	}
	lines = append(lines, fmt.Sprintf("%s%s%s", p.Warning("Run "), p.Success("coursemod fetch --all"), p.Warning(" to update.")))

	drawBox(w, lines)
}

func drawBox(w io.Writer, lines []string) {
	maxWidth := utils.GetMaxWidth(lines) + padding*2
	side := borderColor + "│" + resetColor

	fmt.Fprintln(w, borderColor+"╭"+strings.Repeat("─", maxWidth)+"╮"+resetColor)
	for _, line := range lines {
		width := utils.DisplayWidth(line)
		left := (maxWidth - width) / 2
		right := maxWidth - width - left
		fmt.Fprintf(w, "%s%s%s%s%s\n", side, strings.Repeat(" ", left), line, strings.Repeat(" ", right), side)
	}
	fmt.Fprintln(w, borderColor+"╰"+strings.Repeat("─", maxWidth)+"╯"+resetColor)
}
