package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvProduction is the only NODE_ENV value that switches the production
// middleware chain on.
const EnvProduction = "production"

// MongoDBConfig holds the database connection settings.
type MongoDBConfig struct {
	// URI is the connection string (MONGODB_URI). Empty means no database.
	URI string `mapstructure:"uri"`
	// Database is used when the URI carries no database name.
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// APIConfig holds HTTP middleware settings.
type APIConfig struct {
	// AllowedOrigins are the CORS origins reflected in production.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// BodyLimit caps JSON and form bodies, in bytes.
	BodyLimit int64 `mapstructure:"body_limit"`
	// ParameterWhitelist lists query keys allowed to repeat in production.
	ParameterWhitelist []string `mapstructure:"parameter_whitelist"`
}

// DocsConfig holds the API definition served under /swagger.
type DocsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// CacheConfig holds in-process cache sizes.
type CacheConfig struct {
	PaletteSize int `mapstructure:"palette_size"`
}

// Config holds all configuration for the shopfront service
type Config struct {
	// Env mirrors NODE_ENV.
	Env string `mapstructure:"env"`
	// Port mirrors PORT.
	Port int `mapstructure:"port"`

	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	API     APIConfig     `mapstructure:"api"`
	Docs    DocsConfig    `mapstructure:"docs"`
	Cache   CacheConfig   `mapstructure:"cache"`
}

// Production reports whether the service runs with the production
// middleware chain. The comparison is exact: "Production" or "prod" do not
// count.
func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("env", "development")
	viper.SetDefault("port", 5000)
	viper.SetDefault("mongodb.uri", "")
	viper.SetDefault("mongodb.database", "shopfront")
	viper.SetDefault("mongodb.connect_timeout", 10*time.Second)
	viper.SetDefault("api.allowed_origins", []string{})
	viper.SetDefault("api.body_limit", 100*1024) // 100kb, same as a stock JSON body parser
	viper.SetDefault("api.parameter_whitelist", []string{})
	viper.SetDefault("docs.enabled", true)
	viper.SetDefault("docs.path", "docs/swagger.yaml")
	viper.SetDefault("cache.palette_size", 256)
}

// loadFromEnv sets up environment variable loading
func loadFromEnv() {
	viper.SetEnvPrefix("SHOPFRONT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// The three conventional variables are read without the prefix.
	_ = viper.BindEnv("port", "PORT")
	_ = viper.BindEnv("env", "NODE_ENV")
	_ = viper.BindEnv("mongodb.uri", "MONGODB_URI")
}

// LoadConfig loads configuration from file and environment variables.
// configFile may be empty, in which case config.yaml is looked up in the
// working directory and ./config; a missing file is not an error.
func LoadConfig(configFile string) (*Config, error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(c *Config) error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.API.BodyLimit <= 0 {
		return fmt.Errorf("api.body_limit must be positive, got %d", c.API.BodyLimit)
	}
	if c.Cache.PaletteSize <= 0 {
		return fmt.Errorf("cache.palette_size must be positive, got %d", c.Cache.PaletteSize)
	}
	if c.MongoDB.ConnectTimeout <= 0 {
		return fmt.Errorf("mongodb.connect_timeout must be positive, got %s", c.MongoDB.ConnectTimeout)
	}
	if c.Docs.Enabled && c.Docs.Path == "" {
		return fmt.Errorf("docs.path is required when docs are enabled")
	}
	return nil
}
