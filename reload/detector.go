package reload

import (
	"os"
	"sync"
	"time"
)

// DefaultRefreshDelay is the minimal interval between checks of a file.
const DefaultRefreshDelay = 5 * time.Second

// Detector checks whether a source of a configuration changed.
type Detector interface {
	// IsReloadingRequired reports whether the source changed since the last
	// reloading.
	IsReloadingRequired() bool

	// ReloadingPerformed is called after the source was reloaded.
	ReloadingPerformed()
}

// FileDetector detects changes of a file by its modification time. The file
// is checked at most once per refresh delay.
type FileDetector struct {
	mutex        sync.Mutex
	path         func() string
	refreshDelay time.Duration
	lastChecked  time.Time
	lastModified time.Time
}

// NewFileDetector method creates new detector for the file.
func NewFileDetector(path string, refreshDelay time.Duration) *FileDetector {
	return NewFileDetectorFunc(func() string { return path }, refreshDelay)
}

// NewFileDetectorFunc method creates new detector for the file, whose path is
// returned by the function. The function is called on every check, so the
// path can change over time.
func NewFileDetectorFunc(path func() string,
	refreshDelay time.Duration) *FileDetector {

	return &FileDetector{
		path:         path,
		refreshDelay: refreshDelay,
	}
}

// RefreshDelay method returns the minimal interval between checks.
func (d *FileDetector) RefreshDelay() time.Duration {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.refreshDelay
}

// SetRefreshDelay method changes the minimal interval between checks.
func (d *FileDetector) SetRefreshDelay(delay time.Duration) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.refreshDelay = delay
}

// IsReloadingRequired method reports whether the modification time of the file
// changed. The first check only remembers the modification time.
func (d *FileDetector) IsReloadingRequired() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	now := time.Now()

	if !d.lastChecked.IsZero() && now.Before(d.lastChecked.Add(d.refreshDelay)) {
		return false
	}

	d.lastChecked = now
	modified := d.modTime()

	if modified.IsZero() {
		return false
	}

	if d.lastModified.IsZero() {
		d.lastModified = modified
		return false
	}

	return !modified.Equal(d.lastModified)
}

// ReloadingPerformed method remembers the current modification time of the
// file.
func (d *FileDetector) ReloadingPerformed() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.lastModified = d.modTime()
}

// LastModified method returns the remembered modification time.
func (d *FileDetector) LastModified() time.Time {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.lastModified
}

func (d *FileDetector) modTime() time.Time {
	path := d.path()

	if path == "" {
		return time.Time{}
	}

	info, err := os.Stat(path)

	if err != nil {
		return time.Time{}
	}

	return info.ModTime()
}
