package errs

import "fmt"

type Code string

const (
	AllWithNamedModules Code = "ALL_WITH_NAMED_MODULES"
	ProvideModulesOrAll Code = "PROVIDE_MODULES_OR_ALL"
	MissingManifest     Code = "MISSING_MANIFEST"
)

var messages = map[Code]string{
	AllWithNamedModules: `Invalid flag combination: cannot use --all with named modules

Usage:
  - %[1]s every module of the course:
      coursemod %[2]s --all
  - %[1]s only specific modules:
      coursemod %[2]s intro loops

Reason:
  --all targets every module, named args target a subset.`,

	ProvideModulesOrAll: `Missing targets: provide module names or use --all

Examples:
  coursemod %[2]s intro loops   # %[1]s specific modules
  coursemod %[2]s --all         # %[1]s every module of the course`,

	MissingManifest: `Missing manifest: --manifest is required

Usage:
  coursemod init --manifest ./course.yml
  coursemod init --manifest https://example.com/course.json --dir ~/courses/prog1`,
}

func Msg(code Code, a ...any) string {
	msg := messages[code]
	if msg == "" {
		msg = string(code)
	}
	return fmt.Sprintf(msg, a...)
}
