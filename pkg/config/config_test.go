package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "badger", cfg.Store.Driver)
	assert.Equal(t, "uri", cfg.Entity.EntityField)
	assert.Equal(t, "text", cfg.Entity.PrimaryField)
}

func TestEnvOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("STORE_DRIVER", "neo4j")
	t.Setenv("NEO4J_URI", "bolt://example:7687")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "neo4j", cfg.Store.Driver)
	assert.Equal(t, "bolt://example:7687", cfg.Store.URI)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestDefinition(t *testing.T) {
	viper.Reset()
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Entity.Predicates = map[string]string{
		"http://example/label":   "text",
		"http://example/comment": "comment",
	}
	def, err := cfg.Definition()
	require.NoError(t, err)
	assert.Equal(t, "uri", def.EntityField)
	assert.Equal(t, "text", def.Field("http://example/label"))
	assert.Equal(t, "comment", def.Field("http://example/comment"))

	cfg.Entity.EntityField = ""
	_, err = cfg.Definition()
	assert.Error(t, err)
}
