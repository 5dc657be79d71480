package conf

import (
	"testing"
	"time"

	"github.com/iph0/conf/v3/interpol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Configuration = (*BaseConfig)(nil)
	_ Configuration = (*HierarchicalConfig)(nil)
	_ Configuration = (*SubsetConfig)(nil)
	_ Configuration = (*CompositeConfig)(nil)
	_ Configuration = (*CombinedConfig)(nil)
)

func TestBaseConfig_Properties(t *testing.T) {
	t.Parallel()

	c := NewBaseConfig()

	require.NoError(t, c.Set("db.host", "localhost"))
	require.NoError(t, c.Add("db.port", 5432))
	require.NoError(t, c.Add("servers", []string{"a", "b"}))

	assert.Equal(t, "localhost", c.Get("db.host"))
	assert.Equal(t, 5432, c.Get("db.port"))
	assert.Equal(t, []any{"a", "b"}, c.Get("servers"))
	assert.Nil(t, c.Get("missing"))
	assert.Equal(t, []string{"db.host", "db.port", "servers"}, c.Keys())
	assert.True(t, c.Contains("servers"))
	assert.Equal(t, 3, c.Size())

	require.NoError(t, c.Add("servers", "c"))
	assert.Equal(t, []any{"a", "b", "c"}, c.GetRaw("servers"))

	require.NoError(t, c.Set("servers", "d"))
	assert.Equal(t, "d", c.Get("servers"))

	require.NoError(t, c.Set("servers", nil))
	assert.False(t, c.Contains("servers"))

	c.Clear("db.port")
	assert.Equal(t, []string{"db.host"}, c.Keys())

	c.ClearAll()
	assert.True(t, c.IsEmpty())
}

func TestBaseConfig_FromMap(t *testing.T) {
	t.Parallel()

	c := NewBaseConfigFromMap(
		M{
			"db": M{
				"host": "h",
				"port": 1,
			},
			"hosts": A{"a", "b"},
			"name":  "app",
		},
	)

	assert.Equal(t, []string{"db.host", "db.port", "hosts", "name"}, c.Keys())
	assert.Equal(t, []any{"a", "b"}, c.Get("hosts"))
	assert.Equal(t,
		M{
			"db.host": "h",
			"db.port": 1,
			"hosts":   []any{"a", "b"},
			"name":    "app",
		},
		c.ToMap(),
	)

	clone := c.Clone()
	require.NoError(t, clone.Set("name", "other"))
	assert.Equal(t, "app", c.Get("name"))
	assert.Equal(t, "other", clone.Get("name"))
}

func TestTypedGetters(t *testing.T) {
	t.Parallel()

	c := NewBaseConfigFromMap(
		M{
			"port":    "8080",
			"debug":   "true",
			"timeout": "1m30s",
			"ratio":   0.5,
			"hosts":   A{"a", "b"},
			"bad":     "x",
			"ref":     "${port}",
			"big":     int64(1) << 40,
		},
	)

	port, err := c.GetInt("port")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	port, err = c.GetInt("ref")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	big, err := c.GetInt64("big")
	require.NoError(t, err)
	assert.Equal(t, int64(1)<<40, big)

	debug, err := c.GetBool("debug")
	require.NoError(t, err)
	assert.True(t, debug)

	timeout, err := c.GetDuration("timeout")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, timeout)

	ratio, err := c.GetFloat64("ratio")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ratio, 1e-9)

	hosts, err := c.GetStringSlice("hosts")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, hosts)

	first, err := c.GetString("hosts")
	require.NoError(t, err)
	assert.Equal(t, "a", first)

	single, err := c.GetStringSlice("port")
	require.NoError(t, err)
	assert.Equal(t, []string{"8080"}, single)

	_, err = c.GetInt("bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSuchKey)

	_, err = c.GetInt("missing")
	assert.ErrorIs(t, err, ErrNoSuchKey)

	assert.Equal(t, 7, c.GetIntOr("missing", 7))
	assert.Equal(t, 7, c.GetIntOr("bad", 7))
	assert.Equal(t, "8080", c.GetStringOr("port", "x"))
	assert.True(t, c.GetBoolOr("missing", true))
	assert.Equal(t, time.Second, c.GetDurationOr("missing", time.Second))
}

func TestInterpolation(t *testing.T) {
	t.Parallel()

	c := NewBaseConfigFromMap(
		M{
			"root":  "/app",
			"tmpl":  "${root}/tmpl",
			"loop":  "${loop}",
			"ext":   "${test:x}",
			"ports": A{8080, 8081},
			"all":   "${ports}",
		},
		WithLookups(map[string]interpol.Lookup{
			"test": interpol.MapLookup{"x": "from-test"},
		}),
	)

	assert.Equal(t, "/app/tmpl", c.Get("tmpl"))
	assert.Equal(t, "from-test", c.Get("ext"))
	assert.Equal(t, []any{8080, 8081}, c.Get("all"))

	_, err := c.Value("loop")
	require.ErrorIs(t, err, interpol.ErrCycle)
	assert.Equal(t, "${loop}", c.Get("loop"))

	_, err = c.Value("missing")
	assert.ErrorIs(t, err, ErrNoSuchKey)
}

func TestListDelimiter(t *testing.T) {
	t.Parallel()

	c := NewBaseConfig(WithListDelimiter(','))

	require.NoError(t, c.Add("hosts", `a, b,c\,d`))
	assert.Equal(t, []any{"a", "b", "c,d"}, c.Get("hosts"))

	c.SetListHandler(DisabledListHandler{})
	require.NoError(t, c.Set("single", "x,y"))
	assert.Equal(t, "x,y", c.Get("single"))
}

func TestEvents(t *testing.T) {
	t.Parallel()

	c := NewBaseConfig()

	var all []Event
	var clears int

	id := c.AddListener(EventAny,
		func(ev Event) {
			all = append(all, ev)
		},
	)

	c.AddListener(EventClear,
		func(ev Event) {
			if !ev.Before {
				clears++
			}
		},
	)

	require.NoError(t, c.Set("a", 1))
	require.Len(t, all, 2)
	assert.True(t, all[0].Before)
	assert.False(t, all[1].Before)
	assert.Equal(t, EventSetProperty, all[1].Type)
	assert.Equal(t, "a", all[1].Key)
	assert.Equal(t, 1, all[1].Value)
	assert.Same(t, c, all[1].Source)

	c.ClearAll()
	assert.Equal(t, 1, clears)
	assert.Len(t, all, 4)

	assert.True(t, c.RemoveListener(id))
	assert.False(t, c.RemoveListener(id))

	require.NoError(t, c.Set("b", 2))
	assert.Len(t, all, 4)

	assert.Equal(t, "set-property", EventSetProperty.String())
	assert.Equal(t, "unknown", EventType(100).String())
}

func TestSubset(t *testing.T) {
	t.Parallel()

	c := NewBaseConfigFromMap(
		M{
			"db": M{
				"host": "h",
				"port": 1,
				"url":  "${db.host}:${db.port}",
			},
			"dbx": "no",
			"app": "x",
		},
	)

	sub := c.Subset("db")

	assert.Equal(t, []string{"host", "port", "url"}, sub.Keys())
	assert.Equal(t, "h", sub.Get("host"))
	assert.Equal(t, "h:1", sub.Get("url"))

	require.NoError(t, sub.Set("user", "u"))
	assert.Equal(t, "u", c.Get("db.user"))
	assert.Equal(t, []string{"db.host", "db.port", "db.url", "db.user"},
		c.KeysWithPrefix("db"))

	sub.ClearAll()
	assert.Equal(t, []string{"app", "dbx"}, c.Keys())
	assert.True(t, sub.IsEmpty())
}

func TestDecode(t *testing.T) {
	t.Parallel()

	type dbConfig struct {
		Host     string
		Port     int
		Timeout  time.Duration
		Replicas []string `conf:"replicas"`
		URL      string
	}

	c := NewBaseConfigFromMap(
		M{
			"db": M{
				"host":     "h",
				"port":     "5432",
				"timeout":  "5s",
				"replicas": A{"r1", "r2"},
				"url":      "${db.host}:${db.port}",
			},
		},
	)

	var cfg dbConfig
	require.NoError(t, c.Decode("db", &cfg))

	assert.Equal(t,
		dbConfig{
			Host:     "h",
			Port:     5432,
			Timeout:  5 * time.Second,
			Replicas: []string{"r1", "r2"},
			URL:      "h:5432",
		},
		cfg,
	)

	var port int
	require.NoError(t, c.Decode("db.port", &port))
	assert.Equal(t, 5432, port)

	err := c.Decode("missing", &port)
	assert.ErrorIs(t, err, ErrNoSuchKey)
}

func TestDelimiterListHandler(t *testing.T) {
	t.Parallel()

	h := DelimiterListHandler{Delimiter: ';'}

	assert.Equal(t, []string{"a", " b", `c;d`}, h.Split(`a; b;c\;d`, false))
	assert.Equal(t, []string{"a", "b"}, h.Split(" a ;b", true))
	assert.Equal(t, []string{""}, h.Split("", true))
	assert.Equal(t, `a;c\;d`, h.Join([]string{"a", "c;d"}))

	var d DisabledListHandler

	assert.Equal(t, []string{"a;b"}, d.Split("a;b", true))
	assert.Equal(t, "a", d.Join([]string{"a", "b"}))
	assert.Equal(t, "", d.Join(nil))
}
