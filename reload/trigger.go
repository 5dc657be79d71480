package reload

import (
	"sync"
	"time"
)

// PeriodicTrigger calls CheckForReloading of a controller periodically.
type PeriodicTrigger struct {
	controller *Controller
	data       any
	period     time.Duration

	mutex sync.Mutex
	stop  chan struct{}
	done  chan struct{}
}

// NewPeriodicTrigger method creates new trigger. The data is passed to the
// controller on every check. A non-positive period is replaced with
// DefaultRefreshDelay.
func NewPeriodicTrigger(controller *Controller, data any,
	period time.Duration) *PeriodicTrigger {

	if period <= 0 {
		period = DefaultRefreshDelay
	}

	return &PeriodicTrigger{
		controller: controller,
		data:       data,
		period:     period,
	}
}

// Start method starts periodic checks. Calling it on a running trigger has no
// effect.
func (t *PeriodicTrigger) Start() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.stop != nil {
		return
	}

	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	go t.run(t.stop, t.done)
}

// Stop method stops periodic checks and waits until the current check is
// finished.
func (t *PeriodicTrigger) Stop() {
	t.mutex.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mutex.Unlock()

	if stop == nil {
		return
	}

	close(stop)
	<-done
}

// Period method returns the interval between checks.
func (t *PeriodicTrigger) Period() time.Duration {
	return t.period
}

// IsRunning method reports whether the trigger is started.
func (t *PeriodicTrigger) IsRunning() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.stop != nil
}

func (t *PeriodicTrigger) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.controller.CheckForReloading(t.data)
		case <-stop:
			return
		}
	}
}
