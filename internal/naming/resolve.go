package naming

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// Resolve returns a name that does not exist in dir at the time of the call,
// probing candidate, stem_1.ext, stem_2.ext, ... The second result reports
// whether the candidate had to be changed.
//
// The existence check is not atomic with the later write; a concurrent writer
// to dir can still take the returned name.
func Resolve(dir, candidate string) (string, bool, error) {
	free, err := absent(filepath.Join(dir, candidate))
	if err != nil {
		return "", false, err
	}
	if free {
		return candidate, false, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, fmt.Errorf("list %s: %w", dir, err)
	}
	stem, ext := SplitName(candidate)
	// at most len(entries) names can be taken, so one of the first len+1 suffixes is free
	limit := len(entries) + 1
	for i := 1; i <= limit; i++ {
		name := stem + "_" + strconv.Itoa(i) + ext
		free, err := absent(filepath.Join(dir, name))
		if err != nil {
			return "", false, err
		}
		if free {
			return name, true, nil
		}
	}
	return "", false, fmt.Errorf("no free name for %q in %s after %d attempts", candidate, dir, limit)
}

func absent(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, fs.ErrNotExist):
		return true, nil
	default:
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
}
