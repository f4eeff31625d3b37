package middleware

import (
	"errors"

	"github.com/MrSnakeDoc/coursemod/internal/errs"
	"github.com/MrSnakeDoc/coursemod/internal/logger"
)

var ErrLogged = errors.New("already logged")

func FlagComboError(code errs.Code, a ...any) error {
	logger.LogError("%s", errs.Msg(code, a...))
	return ErrLogged
}

// ResolveTargets enforces "names xor --all" for commands acting on modules.
// It returns nil names when every module is targeted.
func ResolveTargets(all bool, names []string, verb, command string) ([]string, error) {
	switch {
	case all && len(names) > 0:
		return nil, FlagComboError(errs.AllWithNamedModules, verb, command)
	case !all && len(names) == 0:
		return nil, FlagComboError(errs.ProvideModulesOrAll, verb, command)
	case all:
		return nil, nil
	default:
		return names, nil
	}
}
