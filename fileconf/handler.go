package fileconf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/iph0/conf/v3"
	"github.com/iph0/conf/v3/tree"
	"github.com/natefinch/atomic"
	log "github.com/sirupsen/logrus"
)

const (
	errPref = "fileconf"

	// PathEnv is the environment variable with search directories separated
	// by the list separator of the OS.
	PathEnv = "GOCONF_PATH"
)

// ErrFileNotFound is returned when a configuration file cannot be located.
var ErrFileNotFound = errors.New("configuration file not found")

type treeConfig interface {
	Root() *tree.Node
	AddNodes(key string, nodes ...*tree.Node) error
	ExpressionEngine() *tree.Engine
}

type rootNamer interface {
	RootElementName() string
	SetRootElementName(name string)
}

type firer interface {
	Fire(typ conf.EventType, key string, value any, before bool)
}

// FileHandler loads the content of a configuration from a file and saves it
// back. Hierarchical configurations receive the tree of the file, other
// configurations receive a property for every value.
type FileHandler struct {
	config conf.Configuration
	path   string
	dirs   []string
	format Format

	mutex      sync.Mutex
	located    string
	loading    bool
	autoSave   bool
	listenerID conf.ListenerID
}

// HandlerOption configures the file handler.
type HandlerOption func(*FileHandler)

// WithPath sets the path of the file. Relative paths are searched in the
// search directories.
func WithPath(path string) HandlerOption {
	return func(h *FileHandler) {
		h.path = path
	}
}

// WithSearchDirs sets directories to search relative paths in.
func WithSearchDirs(dirs ...string) HandlerOption {
	return func(h *FileHandler) {
		h.dirs = dirs
	}
}

// WithFormat sets the format of the file. Without it the format is chosen by
// the file extension.
func WithFormat(format Format) HandlerOption {
	return func(h *FileHandler) {
		h.format = format
	}
}

// NewFileHandler method creates new file handler for the configuration.
func NewFileHandler(config conf.Configuration,
	opts ...HandlerOption) *FileHandler {

	h := &FileHandler{
		config: config,
	}

	for _, apply := range opts {
		apply(h)
	}

	if h.dirs == nil {
		h.dirs = SearchDirs()
	}

	return h
}

// SearchDirs method returns directories from GOCONF_PATH, or the current
// directory if the variable is not set.
func SearchDirs() []string {
	rawDirs := os.Getenv(PathEnv)

	if rawDirs == "" {
		return []string{"."}
	}

	return filepath.SplitList(rawDirs)
}

// Configuration method returns the configuration of the handler.
func (h *FileHandler) Configuration() conf.Configuration {
	return h.config
}

// Path method returns the path of the file.
func (h *FileHandler) Path() string {
	return h.path
}

// SetPath method changes the path of the file.
func (h *FileHandler) SetPath(path string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.path = path
	h.located = ""
}

// Locate method returns the path of an existing file. Absolute paths are used
// as is, relative ones are searched in the search directories.
func (h *FileHandler) Locate() (string, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.locate()
}

func (h *FileHandler) locate() (string, error) {
	if h.located != "" {
		return h.located, nil
	}

	if h.path == "" {
		return "", fmt.Errorf("%s: file path not specified", errPref)
	}

	path, err := Locate(h.path, h.dirs)

	if err != nil {
		return "", err
	}

	h.located = path

	return path, nil
}

// Locate method searches the file in the directories. Absolute paths are
// only checked for existence.
func Locate(path string, dirs []string) (string, error) {
	candidates := []string{path}

	if !filepath.IsAbs(path) {
		candidates = candidates[:0]

		for _, dir := range dirs {
			candidates = append(candidates, filepath.Join(dir, path))
		}
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)

		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%s: %w: %s", errPref, ErrFileNotFound, path)
}

// Load method locates the file and loads its content into the configuration.
func (h *FileHandler) Load() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	path, err := h.locate()

	if err != nil {
		return err
	}

	return h.loadFile(path)
}

// LoadFromReader method loads the content in the format of the handler into
// the configuration.
func (h *FileHandler) LoadFromReader(r io.Reader) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	format, err := h.formatFor(h.path)

	if err != nil {
		return err
	}

	return h.load(r, format)
}

// Reload method clears the configuration and loads the file again. Listeners
// of the configuration receive EventReload.
func (h *FileHandler) Reload() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.located = ""
	path, err := h.locate()

	if err != nil {
		return err
	}

	f, isFirer := h.config.(firer)

	if isFirer {
		f.Fire(conf.EventReload, "", path, true)
	}

	h.loading = true
	h.config.ClearAll()
	h.loading = false

	if err := h.loadFile(path); err != nil {
		return err
	}

	if isFirer {
		f.Fire(conf.EventReload, "", path, false)
	}

	return nil
}

func (h *FileHandler) loadFile(path string) error {
	format, err := h.formatFor(path)

	if err != nil {
		return err
	}

	file, err := os.Open(path)

	if err != nil {
		return fmt.Errorf("%s: %w", errPref, err)
	}

	defer file.Close()

	if err := h.load(file, format); err != nil {
		return fmt.Errorf("%w: %s", err, path)
	}

	log.WithFields(log.Fields{
		"path": path,
	}).Debug("Configuration file loaded")

	return nil
}

func (h *FileHandler) load(r io.Reader, format Format) error {
	root, err := format.Read(r)

	if err != nil {
		return fmt.Errorf("%s: %w", errPref, err)
	}

	h.loading = true
	defer func() { h.loading = false }()

	if tc, ok := h.config.(treeConfig); ok {
		if rn, ok := h.config.(rootNamer); ok && root.Name() != "" {
			rn.SetRootElementName(root.Name())
		}

		if err := tc.AddNodes("", root.Children()...); err != nil {
			return fmt.Errorf("%s: %w", errPref, err)
		}

		return nil
	}

	var addErr error

	flatten(tree.DefaultEngine, root, "", func(key string, value any) {
		if addErr == nil {
			addErr = h.config.Add(key, value)
		}
	})

	return addErr
}

// Save method saves the configuration to the file of the handler. If the file
// does not exist yet, it is created in the first search directory.
func (h *FileHandler) Save() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	path, err := h.locate()

	if errors.Is(err, ErrFileNotFound) {
		path = h.path

		if !filepath.IsAbs(path) && len(h.dirs) > 0 {
			path = filepath.Join(h.dirs[0], path)
		}
	} else if err != nil {
		return err
	}

	return h.saveTo(path)
}

// SaveTo method saves the configuration to the file. The file is replaced
// atomically.
func (h *FileHandler) SaveTo(path string) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.saveTo(path)
}

func (h *FileHandler) saveTo(path string) error {
	format, err := h.formatFor(path)

	if err != nil {
		return err
	}

	var buf bytes.Buffer

	if err := h.Write(&buf, format); err != nil {
		return err
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("%s: %w", errPref, err)
	}

	log.WithFields(log.Fields{
		"path": path,
	}).Debug("Configuration file saved")

	return nil
}

// Write method writes the configuration in the format.
func (h *FileHandler) Write(w io.Writer, format Format) error {
	root, err := h.tree()

	if err != nil {
		return err
	}

	if err := format.Write(w, root); err != nil {
		return fmt.Errorf("%s: %w", errPref, err)
	}

	return nil
}

func (h *FileHandler) tree() (*tree.Node, error) {
	if tc, ok := h.config.(treeConfig); ok {
		root := tc.Root()

		if rn, ok := h.config.(rootNamer); ok {
			root.SetName(rn.RootElementName())
		}

		return root, nil
	}

	root := tree.NewNode("")

	for _, key := range h.config.Keys() {
		for _, value := range values(h.config.GetRaw(key)) {
			if _, err := tree.DefaultEngine.Add(root, key, value); err != nil {
				return nil, fmt.Errorf("%s: %w", errPref, err)
			}
		}
	}

	return root, nil
}

// IsAutoSave method reports whether the configuration is saved after every
// change.
func (h *FileHandler) IsAutoSave() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.autoSave
}

// SetAutoSave method enables or disables saving of the configuration after
// every change.
func (h *FileHandler) SetAutoSave(enabled bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if enabled == h.autoSave {
		return
	}

	h.autoSave = enabled

	if !enabled {
		h.config.RemoveListener(h.listenerID)
		return
	}

	h.listenerID = h.config.AddListener(conf.EventAny, h.autoSaveListener)
}

func (h *FileHandler) autoSaveListener(event conf.Event) {
	if event.Before || event.Type == conf.EventReload || h.loading {
		return
	}

	if err := h.Save(); err != nil {
		log.WithError(err).Error("Failed to save configuration")
	}
}

func (h *FileHandler) formatFor(path string) (Format, error) {
	if h.format != nil {
		return h.format, nil
	}

	return FormatForPath(path)
}

func values(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	}

	return []any{value}
}
