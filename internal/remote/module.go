package remote

import (
	"strings"

	"github.com/nestybox/winjector/internal/werrors"
)

// FindModule enumerates modules loaded in the target and returns the
// record whose base name matches name case-insensitively. Returns
// an error of kind werrors.ModuleNotFoundInTarget if nothing matches — never conflated with a genuine OS error code.
func FindModule(api API, proc ProcessHandle, name string) (*ModuleRecord, error) {
	mods, err := api.EnumModules(proc)
	if err != nil {
		return nil, werrors.New(werrors.Unknown, "remote.FindModule", err)
	}

	for i := range mods {
		if strings.EqualFold(mods[i].Name, name) {
			return &mods[i], nil
		}
	}

	return nil, werrors.New(werrors.ModuleNotFoundInTarget, "remote.FindModule", nil)
}

// ModulePresent reports whether a module matching name is currently
// loaded in the target. Used by load/unload verification.
func ModulePresent(api API, proc ProcessHandle, name string) (bool, error) {
	_, err := FindModule(api, proc, name)
	if err == nil {
		return true, nil
	}
	if werrors.Is(err, werrors.ModuleNotFoundInTarget) {
		return false, nil
	}
	return false, err
}
