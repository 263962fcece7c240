package suite

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ScriptExt is the extension test scripts carry.
const ScriptExt = ".test"

// Discover collects test scripts beneath each given path, in argument
// order. Files are accepted directly; directories are walked (lexically)
// for *.test files. The optional filter is a filepath.Match pattern
// applied to the base name without its extension, and only to walked
// directories: a script named explicitly always runs.
func Discover(paths []string, filter string) ([]string, error) {
	var scripts []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			scripts = append(scripts, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(path) != ScriptExt {
				return nil
			}
			if filter != "" {
				name := strings.TrimSuffix(filepath.Base(path), ScriptExt)
				ok, err := filepath.Match(filter, name)
				if err != nil {
					return fmt.Errorf("invalid filter pattern: %w", err)
				}
				if !ok {
					return nil
				}
			}
			scripts = append(scripts, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return scripts, nil
}
