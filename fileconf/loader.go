package fileconf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iph0/conf/v3"
	"github.com/iph0/conf/v3/tree"
	log "github.com/sirupsen/logrus"
)

// Loader loads configuration layers from files. Locators for the loader are
// glob patterns relative to the search directories.
type Loader struct {
	dirs []string
}

// NewLoader method creates new loader instance. Without directories the
// search directories are taken from GOCONF_PATH.
func NewLoader(dirs ...string) conf.Loader {
	if len(dirs) == 0 {
		dirs = SearchDirs()
	}

	return &Loader{
		dirs: dirs,
	}
}

// Load method loads every file that matches the pattern from the locator. Each
// file becomes a separate layer. Files are returned in order of directories
// and names.
func (l *Loader) Load(loc *conf.Locator) ([]any, error) {
	if loc.Value == "" {
		return nil, fmt.Errorf("%s: empty file pattern specified", errPref)
	}

	patterns := []string{loc.Value}

	if !filepath.IsAbs(loc.Value) {
		patterns = patterns[:0]

		for _, dir := range l.dirs {
			patterns = append(patterns, filepath.Join(dir, loc.Value))
		}
	}

	var layers []any

	for _, pattern := range patterns {
		paths, err := filepath.Glob(pattern)

		if err != nil {
			return nil, fmt.Errorf("%s: %w", errPref, err)
		}

		for _, path := range paths {
			layer, err := l.loadFile(path)

			if err != nil {
				return nil, err
			}

			layers = append(layers, layer)
		}
	}

	return layers, nil
}

func (l *Loader) loadFile(path string) (conf.M, error) {
	format, err := FormatForPath(path)

	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errPref, err)
	}

	defer file.Close()

	root, err := format.Read(file)

	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", errPref, err, path)
	}

	log.WithFields(log.Fields{
		"path": path,
	}).Debug("Configuration layer loaded")

	layer, ok := tree.ToValue(root).(map[string]any)

	if !ok {
		return conf.M{}, nil
	}

	return layer, nil
}
