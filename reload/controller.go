package reload

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Event is sent to listeners of a controller when it enters the reloading
// state.
type Event struct {
	Controller *Controller
	Data       any
}

// Listener receives reloading events.
type Listener func(Event)

// Controller asks a detector for changes and notifies listeners when a
// reloading is required.
type Controller struct {
	detector Detector

	mutex     sync.Mutex
	reloading bool
	listeners []Listener
}

// NewController method creates new controller for the detector.
func NewController(detector Detector) *Controller {
	return &Controller{
		detector: detector,
	}
}

// Detector method returns the detector of the controller.
func (c *Controller) Detector() Detector {
	return c.detector
}

// AddListener method registers a listener for reloading events.
func (c *Controller) AddListener(listener Listener) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.listeners = append(c.listeners, listener)
}

// CheckForReloading method asks the detector whether a reloading is required.
// If so, the controller enters the reloading state and notifies listeners. In
// the reloading state the detector is not asked again. The data is passed to
// listeners. The method returns the reloading state.
func (c *Controller) CheckForReloading(data any) bool {
	c.mutex.Lock()

	if c.reloading || !c.detector.IsReloadingRequired() {
		reloading := c.reloading
		c.mutex.Unlock()

		return reloading
	}

	c.reloading = true
	listeners := append([]Listener(nil), c.listeners...)
	c.mutex.Unlock()

	log.WithField("data", data).Debug("Reloading required")

	event := Event{
		Controller: c,
		Data:       data,
	}

	for _, listener := range listeners {
		listener(event)
	}

	return true
}

// IsInReloadingState method reports whether a reloading is pending.
func (c *Controller) IsInReloadingState() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.reloading
}

// ResetReloadingState method leaves the reloading state and tells the detector
// that the reloading was performed.
func (c *Controller) ResetReloadingState() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.reloading {
		return
	}

	c.detector.ReloadingPerformed()
	c.reloading = false
}
