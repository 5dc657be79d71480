package maploader

import (
	"testing"

	"github.com/iph0/conf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	configProc := NewProcessor()

	tConfig, err := configProc.Load(
		"map:default",
		"map:extra,unknown",
	)

	require.NoError(t, err)

	eConfig := conf.M{
		"foo": "bar",
		"moo": "jar",
		"zoo": "over",
	}

	assert.Equal(t, eConfig, tConfig)
}

func TestLoad_Unknown(t *testing.T) {
	t.Parallel()

	layers, err := NewLoader(conf.M{}).Load(&conf.Locator{Loader: "map", Value: "x"})

	require.NoError(t, err)
	assert.Empty(t, layers)
}

func NewProcessor() *conf.Processor {
	mapLdr := NewLoader(
		conf.M{
			"default": conf.M{
				"foo": "bar",
				"moo": "jar",
				"zoo": "arr",
			},

			"extra": conf.M{
				"zoo": "over",
			},
		},
	)

	configProc := conf.NewProcessor(
		conf.ProcessorConfig{
			Loaders: map[string]conf.Loader{
				"map": mapLdr,
			},
		},
	)

	return configProc
}
