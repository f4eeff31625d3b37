package printer

import (
	"github.com/fatih/color"
)

type ColorPrinter struct {
	Success func(format string, a ...interface{}) string
	Error   func(format string, a ...interface{}) string
	Warning func(format string, a ...interface{}) string
	Info    func(format string, a ...interface{}) string
	Debug   func(format string, a ...interface{}) string

	states map[string]*color.Color
}

func NewColorPrinter() *ColorPrinter {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	return &ColorPrinter{
		Success: green.SprintfFunc(),
		Error:   red.SprintfFunc(),
		Warning: yellow.SprintfFunc(),
		Info:    color.New(color.FgBlue).SprintfFunc(),
		Debug:   color.New(color.FgCyan).SprintfFunc(),
		states: map[string]*color.Color{
			"loaded":  green,
			"loading": yellow,
			"error":   red,
		},
	}
}

// State colors a module state label. Labels without a color are returned as is.
func (c *ColorPrinter) State(label string) string {
	if col, ok := c.states[label]; ok {
		return col.Sprint(label)
	}
	return label
}

// Plain disables colors globally, e.g. for --json or non-TTY output.
func Plain(disable bool) {
	color.NoColor = disable
}
