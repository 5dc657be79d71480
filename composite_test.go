package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeConfig(t *testing.T) {
	t.Parallel()

	user := NewBaseConfigFromMap(M{"port": 9090, "name": "user"})
	defaults := NewBaseConfigFromMap(
		M{
			"port": 8080,
			"host": "localhost",
			"url":  "http://${host}:${port}",
		},
	)

	c := NewCompositeConfig(nil)
	c.AddConfiguration(user)
	c.AddConfiguration(defaults)
	c.AddConfiguration(user)

	assert.Equal(t, 3, c.NumberOfConfigurations())
	assert.Equal(t, 9090, c.Get("port"))
	assert.Equal(t, "http://localhost:9090", c.Get("url"))
	assert.Equal(t, []string{"name", "port", "host", "url"}, c.Keys())
	assert.Same(t, defaults, c.Source("host"))
	assert.Nil(t, c.Source("missing"))

	require.NoError(t, c.Set("port", 1))
	assert.Equal(t, 1, c.Get("port"))
	assert.False(t, user.Contains("port"))
	assert.False(t, defaults.Contains("port"))
	assert.Equal(t, 1, c.InMemory().Get("port"))

	require.NoError(t, c.Add("extra", "x"))
	assert.Equal(t, "x", c.InMemory().Get("extra"))

	override := NewBaseConfigFromMap(M{"name": "override"})
	c.AddConfigurationFirst(override)
	assert.Equal(t, "override", c.Get("name"))
	assert.Same(t, override, c.Configurations()[0])

	assert.True(t, c.RemoveConfiguration(defaults))
	assert.False(t, c.RemoveConfiguration(defaults))
	assert.False(t, c.RemoveConfiguration(c.InMemory()))
	assert.False(t, c.Contains("host"))

	c.ClearAll()
	assert.Equal(t, 1, c.NumberOfConfigurations())
	assert.True(t, c.IsEmpty())
}

func TestCompositeConfig_Subset(t *testing.T) {
	t.Parallel()

	c := NewCompositeConfig(NewHierarchicalConfig())
	c.AddConfiguration(FromMap(M{"db": M{"host": "h1", "port": 1}}))
	c.AddConfiguration(FromMap(M{"db": M{"host": "h2", "user": "u"}}))

	sub := c.Subset("db")

	assert.Equal(t, []string{"host", "port", "user"}, sub.Keys())
	assert.Equal(t, "h1", sub.Get("host"))
	assert.Equal(t, "u", sub.Get("user"))

	require.NoError(t, sub.Set("pass", "secret"))
	assert.Equal(t, "secret", c.InMemory().Get("db.pass"))
}
