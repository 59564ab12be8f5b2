// Package config loads the application configuration from file and
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"

	"github.com/semantalytics/jena-temporal/pkg/entity"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Store configuration
	Store StoreConfig `mapstructure:"store"`

	// Index configuration
	Index IndexConfig `mapstructure:"index"`

	// Entity definition configuration
	Entity EntityConfig `mapstructure:"entity"`

	// Export configuration
	Export ExportConfig `mapstructure:"export"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// StoreConfig holds quad store configuration
type StoreConfig struct {
	Driver   string `mapstructure:"driver"` // mem, badger, neo4j
	Path     string `mapstructure:"path"`   // badger data directory
	URI      string `mapstructure:"uri"`    // neo4j bolt URI
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// IndexConfig holds search index configuration
type IndexConfig struct {
	Path     string `mapstructure:"path"` // index data directory
	InMemory bool   `mapstructure:"in_memory"`
}

// EntityConfig describes how quads map to index documents.
type EntityConfig struct {
	EntityField  string `mapstructure:"entity_field"`
	PrimaryField string `mapstructure:"primary_field"`
	GraphField   string `mapstructure:"graph_field"`
	LangField    string `mapstructure:"lang_field"`
	UIDField     string `mapstructure:"uid_field"`

	Multilingual bool `mapstructure:"multilingual"`

	// SearchFor maps a query language tag to the tags searched for it.
	SearchFor map[string][]string `mapstructure:"search_for"`
	// AuxIndexes maps an indexing language tag to auxiliary tags.
	AuxIndexes map[string][]string `mapstructure:"aux_indexes"`

	// Predicates maps predicate URIs to index field names.
	Predicates map[string]string `mapstructure:"predicates"`
}

// ExportConfig holds index export configuration
type ExportConfig struct {
	Path string `mapstructure:"path"` // parquet output directory
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Store defaults
	viper.SetDefault("store.driver", "badger")
	viper.SetDefault("store.path", "./data/store")
	viper.SetDefault("store.uri", "")
	viper.SetDefault("store.username", "")
	viper.SetDefault("store.password", "")
	viper.SetDefault("store.database", "")

	// Index defaults
	viper.SetDefault("index.path", "./data/index")
	viper.SetDefault("index.in_memory", false)

	// Entity defaults
	viper.SetDefault("entity.entity_field", "uri")
	viper.SetDefault("entity.primary_field", "text")
	viper.SetDefault("entity.graph_field", "graph")
	viper.SetDefault("entity.lang_field", "lang")
	viper.SetDefault("entity.uid_field", "uid")

	// Export defaults
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("export.path", fmt.Sprintf("%s/.jena-temporal/export", home))
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	// Neo4j credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Store.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Store.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Store.Password = pass
	}

	// Generic store settings
	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		config.Store.Driver = driver
	}
	if path := os.Getenv("STORE_PATH"); path != "" {
		config.Store.Path = path
	}

	// Index settings
	if path := os.Getenv("INDEX_PATH"); path != "" {
		config.Index.Path = path
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	// Log settings
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}

// Definition builds the entity definition described by the entity section.
func (c *Config) Definition() (*entity.Definition, error) {
	if c.Entity.EntityField == "" {
		return nil, fmt.Errorf("config: entity_field is required")
	}
	if c.Entity.PrimaryField == "" {
		return nil, fmt.Errorf("config: primary_field is required")
	}
	def := entity.NewDefinition(c.Entity.EntityField, c.Entity.PrimaryField)
	def.GraphField = c.Entity.GraphField
	def.LangField = c.Entity.LangField
	def.UIDField = c.Entity.UIDField
	def.Multilingual = c.Entity.Multilingual
	def.SearchFor = c.Entity.SearchFor
	def.AuxIndexes = c.Entity.AuxIndexes
	for predicate, field := range c.Entity.Predicates {
		def.Map(predicate, field)
	}
	return def, nil
}
