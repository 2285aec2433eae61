//go:build !windows

package board

import "errors"

// renameReplace is only reachable on Windows.
func renameReplace(oldpath, newpath string) error {
	return errors.New("renameReplace called on non-Windows platform")
}
