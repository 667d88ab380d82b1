package fsops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConflictPolicy governs what happens when an operation's destination path
// already exists.
type ConflictPolicy string

const (
	ConflictOverwrite ConflictPolicy = "Overwrite"
	ConflictSkip      ConflictPolicy = "Skip"
	ConflictRename    ConflictPolicy = "Rename"
	ConflictError     ConflictPolicy = "Error"
)

// resolved is the outcome of applying a ConflictPolicy against an existing
// destination.
type resolved struct {
	path      string
	skip      bool // Skip policy: short-circuit success, caller does no I/O
}

// resolve applies policy against dest, returning the path to actually write
// to (which may differ from dest under Rename).
func resolve(policy ConflictPolicy, dest string) (resolved, error) {
	_, err := os.Lstat(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return resolved{path: dest}, nil
		}
		return resolved{}, newErr("resolve", dest, err)
	}

	switch policy {
	case ConflictOverwrite, "":
		return resolved{path: dest}, nil
	case ConflictSkip:
		return resolved{path: dest, skip: true}, nil
	case ConflictRename:
		renamed, err := nextAvailableName(dest)
		if err != nil {
			return resolved{}, err
		}
		return resolved{path: renamed}, nil
	case ConflictError:
		return resolved{}, newErr("resolve", dest, os.ErrExist)
	default:
		return resolved{}, newErr("resolve", dest, fmt.Errorf("unknown conflict policy %q", policy))
	}
}

// nextAvailableName generates "{stem} ({n}).{ext}" for the smallest n >= 1
// such that the result doesn't exist. This is the corrected form: the
// source template "{stem} ({n}){}.{ext}" produced an empty segment and is
// not reproduced here.
func nextAvailableName(dest string) (string, error) {
	dir := filepath.Dir(dest)
	base := filepath.Base(dest)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		_, err := os.Lstat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", newErr("resolve", candidate, err)
		}
	}
}
