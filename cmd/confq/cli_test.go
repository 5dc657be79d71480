package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/iph0/conf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	exit := func(code int) {
		t.Fatalf("unexpected exit with code %d", code)
	}

	err := Run(context.Background(), exit, &out,
		append([]string{"--dir", "testdata"}, args...)...)

	return out.String(), err
}

func TestGet(t *testing.T) {
	tests := []struct {
		name string
		args []string
		out  string
	}{
		{"value", []string{"get", "app.yml", "db.host"}, "db.example.com\n"},
		{"interpolated", []string{"get", "app.yml", "url"}, "http://db.example.com:5432\n"},
		{"raw", []string{"get", "--raw", "app.yml", "url"}, "http://${db.host}:${db.port}\n"},
		{"list", []string{"get", "app.yml", "servers.name"}, "alpha\nbeta\n"},
		{"index", []string{"get", "app.yml", "servers(1).name"}, "beta\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, tc.args...)

			require.NoError(t, err)
			assert.Equal(t, tc.out, out)
		})
	}

	t.Run("missing key", func(t *testing.T) {
		_, err := run(t, "get", "app.yml", "db.user")
		assert.ErrorIs(t, err, conf.ErrNoSuchKey)
	})
}

func TestKeys(t *testing.T) {
	out, err := run(t, "keys", "app.yml", "db")

	require.NoError(t, err)
	assert.Equal(t, "db.host\ndb.port\n", out)

	out, err = run(t, "keys", "app.yml")

	require.NoError(t, err)
	assert.Equal(t, "name\nurl\ndb.host\ndb.port\nservers.name\n", out)
}

func TestConvert(t *testing.T) {
	out, err := run(t, "convert", "app.yml", "--to", "json", "--interpolate")

	require.NoError(t, err)
	assert.Contains(t, out, `"url": "http://db.example.com:5432"`)
	assert.Contains(t, out, `"servers": [`)

	path := filepath.Join(t.TempDir(), "app.properties")

	_, err = run(t, "convert", "app.yml", "--to", "properties", "--output", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "db.host")
	assert.Contains(t, string(data), "${db.host}")

	_, err = run(t, "convert", "app.yml", "--to", "html")
	assert.Error(t, err)
}
