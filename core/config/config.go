package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"appserver/core/deploy"
	"appserver/core/logger"
	"appserver/core/server"
	"appserver/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileName is the optional configuration file looked up in the config path.
const FileName = "appserver.yaml"

// Config holds all configuration for the application.
type Config struct {
	// Server holds the listen port, base directory and shutdown timeout.
	Server server.Config `mapstructure:"server"`
	// Deploy holds the deployment watcher settings.
	Deploy deploy.Config `mapstructure:"deploy"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Storage holds the bucket package sync reads from.
	Storage storage.Config `mapstructure:"storage"`
}

// LoadConfig loads configuration from, lowest precedence first, struct tag
// defaults, <path>/appserver.yaml, <path>/.env and the environment.
func LoadConfig(path string) (*Config, error) {
	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Load(filepath.Join(path, ".env"))

	v := viper.New()
	bindValues(v, Config{}, "")

	file := filepath.Join(path, FileName)
	if _, err := os.Stat(file); err == nil {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return &cfg, nil
}

// bindValues registers every mapstructure key with its default tag, so
// AutomaticEnv can see keys the file does not set.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		v.SetDefault(key, field.Tag.Get("default"))
	}
}
