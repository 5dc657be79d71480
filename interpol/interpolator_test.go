package interpol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInterpolator() *Interpolator {
	return New(
		WithLookups(DefaultLookups()),
		WithDefaultLookups(MapLookup{
			"dirs.root":      "/myapp",
			"dirs.templates": "${dirs.root}/templates",
			"dirs.media":     "${dirs.templates}/../media",
			"ports":          []any{8080, 8081},
			"port":           8080,
			"stage":          "prod",
			"db.prod.host":   "db.example.com",
			"loop.a":         "${loop.b}",
			"loop.b":         "x-${loop.a}",
			"self":           "${self}",
		}),
	)
}

func TestInterpolate(t *testing.T) {
	t.Parallel()

	ip := newTestInterpolator()

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{
			name:  "plain string",
			value: "no variables",
			want:  "no variables",
		},
		{
			name:  "non-string",
			value: 42,
			want:  42,
		},
		{
			name:  "embedded variable",
			value: "root is ${dirs.root}!",
			want:  "root is /myapp!",
		},
		{
			name:  "recursive",
			value: "${dirs.media}",
			want:  "/myapp/templates/../media",
		},
		{
			name:  "single variable keeps type",
			value: "${ports}",
			want:  []any{8080, 8081},
		},
		{
			name:  "list in string uses first element",
			value: "port ${ports}",
			want:  "port 8080",
		},
		{
			name:  "number in string",
			value: "http://localhost:${port}/",
			want:  "http://localhost:8080/",
		},
		{
			name:  "unresolved left verbatim",
			value: "${unknown} and ${dirs.root}",
			want:  "${unknown} and /myapp",
		},
		{
			name:  "unresolved single variable",
			value: "${unknown}",
			want:  "${unknown}",
		},
		{
			name:  "escaped",
			value: "$${dirs.root}/x and ${dirs.root}",
			want:  "${dirs.root}/x and /myapp",
		},
		{
			name:  "default value",
			value: "${db.port:-5432}",
			want:  "5432",
		},
		{
			name:  "default value is interpolated",
			value: "host=${db.host:-${dirs.root}}",
			want:  "host=/myapp",
		},
		{
			name:  "default ignored when resolved",
			value: "${stage:-dev}",
			want:  "prod",
		},
		{
			name:  "empty name",
			value: "a${}b",
			want:  "a${}b",
		},
		{
			name:  "unterminated marker",
			value: "a${dirs.root",
			want:  "a${dirs.root",
		},
		{
			name:  "prefix lookup",
			value: "${base64Decoder:aGVsbG8=}",
			want:  "hello",
		},
		{
			name:  "unknown prefix falls back to default lookups",
			value: "${nope:x}",
			want:  "${nope:x}",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ip.Interpolate(tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInterpolate_Cycle(t *testing.T) {
	t.Parallel()

	ip := newTestInterpolator()

	_, err := ip.Interpolate("${loop.a}")
	require.ErrorIs(t, err, ErrCycle)
	assert.Contains(t, err.Error(), "loop.a -> loop.b -> loop.a")

	_, err = ip.InterpolateString("value: ${self}")
	require.ErrorIs(t, err, ErrCycle)

	// the same variable twice in one value is not a cycle
	got, err := ip.InterpolateString("${dirs.root}:${dirs.root}")
	require.NoError(t, err)
	assert.Equal(t, "/myapp:/myapp", got)
}

func TestInterpolate_SubstituteInVariables(t *testing.T) {
	t.Parallel()

	ip := newTestInterpolator()

	got, err := ip.Interpolate("${db.${stage}.host}")
	require.NoError(t, err)
	assert.Equal(t, "${db.${stage}.host}", got)

	ip.SetSubstituteInVariables(true)

	got, err = ip.Interpolate("${db.${stage}.host}")
	require.NoError(t, err)
	assert.Equal(t, "db.example.com", got)
}

func TestInterpolate_NestedDefaults(t *testing.T) {
	t.Parallel()

	ip := newTestInterpolator()
	ip.SetSubstituteInVariables(true)

	tests := []struct {
		src  string
		want any
	}{
		{"${db.${missing:-prod}.host}", "db.example.com"},
		{"host=${db.${missing:-prod}.host}", "host=db.example.com"},
		{"${db.${stage}.port:-5432}", "5432"},
		{"${missing.${stage}:-${dirs.root}}", "/myapp"},
		{"${missing:-a:-b}", "a:-b"},
	}

	for _, tt := range tests {
		got, err := ip.Interpolate(tt.src)
		require.NoError(t, err, tt.src)
		assert.Equal(t, tt.want, got, tt.src)
	}

	ip.SetSubstituteInVariables(false)

	got, err := ip.Interpolate("${db.${missing:-prod}.host}")
	require.NoError(t, err)
	assert.Equal(t, "${db.${missing:-prod}.host}", got)
}

func TestInterpolateAll(t *testing.T) {
	t.Parallel()

	ip := newTestInterpolator()

	got, err := ip.InterpolateAll([]any{"${dirs.root}", 1, "${stage}-x"})
	require.NoError(t, err)
	assert.Equal(t, []any{"/myapp", 1, "prod-x"}, got)

	_, err = ip.InterpolateAll([]any{"${self}"})
	assert.ErrorIs(t, err, ErrCycle)
}

func TestResolve_Chain(t *testing.T) {
	t.Parallel()

	parent := New(WithLookup("app", MapLookup{"name": "parent-app"}),
		WithDefaultLookups(MapLookup{"color": "blue"}))
	ip := New(
		WithParent(parent),
		WithLookup("app", MapLookup{"version": "1.0"}),
		WithDefaultLookups(
			MapLookup{"size": "L"},
			LookupFunc(func(name string) (any, bool) {
				return "fn:" + name, name == "dynamic"
			}),
		),
	)

	tests := []struct {
		name string
		want any
		ok   bool
	}{
		{"app:version", "1.0", true},
		{"size", "L", true},
		{"dynamic", "fn:dynamic", true},
		{"color", "blue", true},
		{"app:name", "parent-app", true},
		{"missing", nil, false},
	}

	for _, tc := range tests {
		value, ok := ip.Resolve(tc.name)

		assert.Equal(t, tc.ok, ok, tc.name)
		assert.Equal(t, tc.want, value, tc.name)
	}

	assert.Same(t, parent, ip.Parent())
}

func TestLookupRegistration(t *testing.T) {
	t.Parallel()

	ip := New()
	ip.RegisterLookup("b", MapLookup{})
	ip.RegisterLookups(map[string]Lookup{"a": MapLookup{}, "c": MapLookup{}})

	assert.Equal(t, []string{"a", "b", "c"}, ip.Prefixes())
	assert.True(t, ip.DeregisterLookup("b"))
	assert.False(t, ip.DeregisterLookup("b"))
	assert.Len(t, ip.Lookups(), 2)

	ip.AddDefaultLookups(MapLookup{"x": 1})
	assert.Len(t, ip.DefaultLookups(), 1)

	ip.SetDefaultLookups()
	assert.Empty(t, ip.DefaultLookups())
}

func TestStringConverter(t *testing.T) {
	t.Parallel()

	ip := New(
		WithDefaultLookups(MapLookup{"flag": true}),
		WithStringConverter(func(v any) string {
			if b, ok := v.(bool); ok && b {
				return "yes"
			}

			return "no"
		}),
	)

	got, err := ip.Interpolate("enabled=${flag}")
	require.NoError(t, err)
	assert.Equal(t, "enabled=yes", got)
}

func TestStandardLookups(t *testing.T) {
	t.Setenv("INTERPOL_TEST_VAR", "from-env")

	SetSystemProperty("interpol.test", "from-sys")
	defer SetSystemProperty("interpol.test", "")

	RegisterConstant("MaxConns", 16)
	defer RegisterConstant("MaxConns", nil)

	origNow := now
	now = func() time.Time {
		return time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)
	}
	defer func() { now = origNow }()

	ip := New(WithLookups(DefaultLookups()))

	tests := []struct {
		value string
		want  any
	}{
		{"${env:INTERPOL_TEST_VAR}", "from-env"},
		{"${sys:interpol.test}", "from-sys"},
		{"${const:MaxConns}", 16},
		{"${date:2006-01-02}", "2024-05-17"},
		{"${expr:MaxConns * 2}", 32},
		{"${expr:sys(\"interpol.test\") + \"!\"}", "from-sys!"},
		{"${base64Encoder:hello}", "aGVsbG8="},
		{"${urlEncoder:a b&c}", "a+b%26c"},
		{"${urlDecoder:a+b%26c}", "a b&c"},
		{"${expr:(}", "${expr:(}"},
	}

	for _, tc := range tests {
		got, err := ip.Interpolate(tc.value)

		require.NoError(t, err, tc.value)
		assert.Equal(t, tc.want, got, tc.value)
	}

	_, ok := SystemProperty("os.name")
	assert.True(t, ok)
}
