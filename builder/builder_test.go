package builder_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iph0/conf/v3"
	"github.com/iph0/conf/v3/builder"
	"github.com/iph0/conf/v3/fileconf"
	"github.com/iph0/conf/v3/interpol"
	"github.com/iph0/conf/v3/reload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams(t *testing.T) {
	t.Parallel()

	params := builder.NewParams(
		builder.WithPath("app.yml"),
		builder.WithSearchDirs("testdata"),
		builder.WithListDelimiter(','),
		builder.WithAutoSave(),
	)

	assert.Equal(t, "app.yml", params.Path)
	assert.Equal(t, []string{"testdata"}, params.SearchDirs)
	assert.Equal(t, ",", params.ListDelimiter)
	assert.True(t, params.AutoSave)
	assert.Equal(t, reload.DefaultRefreshDelay, params.RefreshDelay)
	assert.NoError(t, params.Validate())
}

func TestParamsFromMap(t *testing.T) {
	t.Parallel()

	params, err := builder.ParamsFromMap(
		map[string]any{
			"path":            "app.yml",
			"searchDirs":      []any{"testdata", "etc"},
			"format":          "yaml",
			"listDelimiter":   ";",
			"refreshDelay":    "2s",
			"allowFailOnInit": "true",
		},
		builder.WithFlat(),
	)

	require.NoError(t, err)

	assert.Equal(t,
		builder.Params{
			Path:            "app.yml",
			SearchDirs:      []string{"testdata", "etc"},
			Format:          "yaml",
			ListDelimiter:   ";",
			Flat:            true,
			RefreshDelay:    2 * time.Second,
			AllowFailOnInit: true,
		},
		params,
	)

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			m    map[string]any
			err  string
		}{
			{"unknown key", map[string]any{"pth": "app.yml"}, "invalid keys"},
			{"long delimiter", map[string]any{"listDelimiter": ",;"}, "single character"},
			{"unknown format", map[string]any{"format": "html"}, "unknown format"},
			{"invalid delay", map[string]any{"refreshDelay": "soon"}, "invalid duration"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				_, err := builder.ParamsFromMap(tc.m)

				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)
			})
		}
	})
}

func TestFileBuilder(t *testing.T) {
	t.Parallel()

	b := builder.NewFileBuilder(
		builder.NewParams(
			builder.WithPath("app.yml"),
			builder.WithSearchDirs("testdata"),
			builder.WithListDelimiter(','),
			builder.WithFlat(),
			builder.WithLookup("app", interpol.MapLookup{"version": "1.2"}),
		),
	)

	var events []builder.EventType

	b.AddListener(builder.EventAny, func(event builder.Event) {
		events = append(events, event.Type)
	})

	assert.Nil(t, b.FileHandler())

	config, err := b.Configuration()
	require.NoError(t, err)

	assert.IsType(t, &conf.BaseConfig{}, config)
	assert.Equal(t, "myapp", config.Get("name"))
	assert.Equal(t, "1.2", config.Get("version"))
	assert.Equal(t, []any{"a", "b", "c"}, config.Get("tags"))
	assert.Equal(t, 5432, config.GetIntOr("db.port", 0))
	assert.NotNil(t, b.FileHandler())

	same, err := b.Configuration()
	require.NoError(t, err)
	assert.Same(t, config, same)

	b.Reset()
	assert.Nil(t, b.FileHandler())

	other, err := b.Configuration()
	require.NoError(t, err)
	assert.NotSame(t, config, other)

	assert.Equal(t,
		[]builder.EventType{
			builder.EventResultCreated,
			builder.EventReset,
			builder.EventResultCreated,
		},
		events,
	)
}

func TestFileBuilder_Hierarchical(t *testing.T) {
	t.Parallel()

	b := builder.NewFileBuilder(
		builder.NewParams(
			builder.WithPath("app.yml"),
			builder.WithSearchDirs("testdata"),
		),
		conf.WithLookups(
			map[string]interpol.Lookup{
				"app": interpol.MapLookup{"version": "2.0"},
			},
		),
	)

	config, err := b.Configuration()
	require.NoError(t, err)

	hc, ok := config.(*conf.HierarchicalConfig)
	require.True(t, ok)

	assert.Equal(t, "2.0", hc.Get("version"))
	assert.Equal(t, "a,b,c", hc.Get("tags"))
	assert.Equal(t, "db.example.com", hc.Get("db.host"))
}

func TestFileBuilder_MissingFile(t *testing.T) {
	t.Parallel()

	params := builder.NewParams(
		builder.WithPath("missing.yml"),
		builder.WithSearchDirs("testdata"),
	)

	_, err := builder.NewFileBuilder(params).Configuration()
	assert.ErrorIs(t, err, fileconf.ErrFileNotFound)

	params.AllowFailOnInit = true

	config, err := builder.NewFileBuilder(params).Configuration()
	require.NoError(t, err)
	assert.True(t, config.IsEmpty())
}

func TestFileBuilder_AutoSave(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "app.json")

	b := builder.NewFileBuilder(
		builder.NewParams(
			builder.WithPath(path),
			builder.WithAllowFailOnInit(),
			builder.WithAutoSave(),
		),
	)

	config, err := b.Configuration()
	require.NoError(t, err)

	require.NoError(t, config.Set("db.port", 6432))

	saved := conf.NewHierarchicalConfig()
	require.NoError(t, fileconf.NewFileHandler(saved, fileconf.WithPath(path)).Load())
	assert.Equal(t, 6432, saved.GetIntOr("db.port", 0))
}

func TestReloadingFileBuilder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "app.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: first\n"), 0o644))

	b := builder.NewReloadingFileBuilder(
		builder.NewParams(
			builder.WithPath("app.yml"),
			builder.WithSearchDirs(dir),
			builder.WithRefreshDelay(0),
		),
	)

	controller := b.ReloadingController()

	config, err := b.Configuration()
	require.NoError(t, err)
	assert.Equal(t, "first", config.Get("name"))

	assert.False(t, controller.CheckForReloading(nil))

	require.NoError(t, os.WriteFile(path, []byte("name: second\n"), 0o644))
	modified := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, modified, modified))

	assert.True(t, controller.CheckForReloading(nil))
	assert.Nil(t, b.FileHandler())

	reloaded, err := b.Configuration()
	require.NoError(t, err)

	assert.NotSame(t, config, reloaded)
	assert.Equal(t, "second", reloaded.Get("name"))
	assert.False(t, controller.IsInReloadingState())
	assert.False(t, controller.CheckForReloading(nil))
}

func TestCombinedBuilder(t *testing.T) {
	t.Parallel()

	children, err := builder.ChildParamsFromMaps(
		[]map[string]any{
			{
				"name":       "server",
				"path":       "server.json",
				"searchDirs": []string{"testdata"},
			},
		},
	)

	require.NoError(t, err)

	children = append(children,
		builder.ChildParams{
			Name: "db",
			At:   "db",

			Params: builder.NewParams(
				builder.WithPath("db.yml"),
				builder.WithSearchDirs("testdata"),
			),
		},
	)

	b := builder.NewCombinedBuilder(nil, children)

	config, err := b.Configuration()
	require.NoError(t, err)

	assert.Equal(t, []string{"server", "db"}, config.Names())
	assert.Equal(t, "db.example.com", config.Get("db.host"))
	assert.Equal(t, 8080, config.GetIntOr("server.port", 0))
	assert.NotNil(t, b.ChildBuilder("db"))

	same, err := b.Configuration()
	require.NoError(t, err)
	assert.Same(t, config, same)

	b.Reset()
	assert.Nil(t, b.ChildBuilder("db"))

	_, err = builder.ChildParamsFromMaps([]map[string]any{{"path": "db.yml"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name not specified")
}
