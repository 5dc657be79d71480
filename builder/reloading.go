package builder

import (
	"github.com/iph0/conf/v3"
	"github.com/iph0/conf/v3/fileconf"
	"github.com/iph0/conf/v3/reload"
)

// ReloadingFileBuilder is a file builder that drops its configuration when the
// file changes. Checks are made by the reloading controller, which must be
// triggered by a reload.PeriodicTrigger, a reload.Watcher or directly.
type ReloadingFileBuilder struct {
	*FileBuilder
	detector   *reload.FileDetector
	controller *reload.Controller
}

// NewReloadingFileBuilder method creates new reloading builder.
func NewReloadingFileBuilder(params Params,
	opts ...conf.Option) *ReloadingFileBuilder {

	b := &ReloadingFileBuilder{
		FileBuilder: NewFileBuilder(params, opts...),
	}

	b.detector = reload.NewFileDetectorFunc(b.locate, params.RefreshDelay)
	b.controller = reload.NewController(b.detector)

	b.controller.AddListener(func(reload.Event) {
		b.Reset()
	})

	b.AddListener(EventResultCreated, func(Event) {
		b.controller.ResetReloadingState()
		b.detector.ReloadingPerformed()
	})

	return b
}

// ReloadingController method returns the controller that checks the file.
func (b *ReloadingFileBuilder) ReloadingController() *reload.Controller {
	return b.controller
}

func (b *ReloadingFileBuilder) locate() string {
	if handler := b.FileHandler(); handler != nil {
		if path, err := handler.Locate(); err == nil {
			return path
		}
	}

	path, err := fileconf.Locate(b.params.Path, b.params.searchDirs())

	if err != nil {
		return ""
	}

	return path
}
