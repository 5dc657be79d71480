/*
Package reload detects changes of configuration sources and notifies
interested parties.

A Detector checks whether a source changed. A Controller asks its detector on
every CheckForReloading call and enters the reloading state when a change is
detected; its listeners are notified once until ResetReloadingState is called.
The checks are triggered by a PeriodicTrigger or by a Watcher, which receives
file system notifications.

	detector := reload.NewFileDetector("/etc/myapp.yml", time.Second)
	controller := reload.NewController(detector)

	controller.AddListener(func(event reload.Event) {
		// reload configuration
		controller.ResetReloadingState()
	})

	trigger := reload.NewPeriodicTrigger(controller, nil, 5*time.Second)
	trigger.Start()
	defer trigger.Stop()
*/
package reload
