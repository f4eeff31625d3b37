package logger

import (
	"io"
	"os"
)

var (
	FlagVerboseCount int  // -V, -VV
	FlagQuiet        bool // --quiet/-q
	FlagJSON         bool // --json, for CI
)

// ConfigureLoggerFromFlags maps the root command flags onto Configure.
func ConfigureLoggerFromFlags() {
	var w io.Writer = os.Stdout
	lvl := "info"

	switch {
	case FlagQuiet:
		lvl = "error"
	case FlagVerboseCount > 0:
		lvl = "debug"
	}

	Configure(Options{
		Level: lvl,
		JSON:  FlagJSON,
		Out:   w,
	})
}
