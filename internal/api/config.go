package api

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/amline/maktaba/core/errors"
)

// Config holds server configuration. Flags and environment variables
// (bound by the CLI layer) win over the config file, which wins over
// the defaults applied here.
type Config struct {
	Port           int
	DBPath         string
	APIKey         string
	AllowedOrigins []string
	LogLevel       string
	LogFormat      string
}

// FileConfig is the TOML config file shape. Every field is optional;
// absent fields leave the corresponding Config value untouched.
type FileConfig struct {
	Port           int      `toml:"port"`
	DBPath         string   `toml:"db_path"`
	APIKey         string   `toml:"api_key"`
	AllowedOrigins []string `toml:"allowed_origins"`
	LogLevel       string   `toml:"log_level"`
	LogFormat      string   `toml:"log_format"`
}

// LoadConfigFile reads and decodes a TOML config file.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, errors.Wrap(err, "reading config file")
	}
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fc, errors.Wrap(err, "parsing config file")
	}
	return fc, nil
}

// ApplyFile fills unset Config fields from a config file.
func (c *Config) ApplyFile(fc FileConfig) {
	if c.Port == 0 {
		c.Port = fc.Port
	}
	if c.DBPath == "" {
		c.DBPath = fc.DBPath
	}
	if c.APIKey == "" {
		c.APIKey = fc.APIKey
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = fc.AllowedOrigins
	}
	if c.LogLevel == "" {
		c.LogLevel = fc.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = fc.LogFormat
	}
}

// ApplyDefaults fills any still-unset fields with the built-in defaults.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.DBPath == "" {
		c.DBPath = "maktaba.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}
