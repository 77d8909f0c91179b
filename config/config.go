package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// a type with service configuration parameters
type ServiceConfig struct {
	// port on which the service listens
	Port int `yaml:"port"`
	// maximum number of allowed incoming connections
	MaxConnections int `yaml:"max_connections"`
}

// cache configuration parameters
type CacheConfig struct {
	// directory holding cached dataset files and the cache index; defaults
	// to <XDG cache home>/bred
	Root string `yaml:"root"`
}

// remote snapshot store configuration parameters
type RemoteConfig struct {
	// base URL of the remote asset store holding pre-built dataset snapshots
	BaseURL string `yaml:"base_url"`
	// timeout (in seconds) for the lightweight connectivity probe
	ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds"`
}

func (r RemoteConfig) ProbeTimeout() time.Duration {
	return time.Duration(r.ProbeTimeoutSeconds) * time.Second
}

// A Config holds every setting the service needs. It is constructed once by
// Init and passed explicitly to the components that use it; nothing reads
// configuration from ambient process state.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Cache   CacheConfig   `yaml:"cache"`
	Remote  RemoteConfig  `yaml:"remote"`
}

// This helper reads configuration data into a Config, applying defaults
// first. All environment variables of the form ${ENV_VAR} are expanded.
func readConfig(bytes []byte) (Config, error) {
	// Before we do anything else, expand any provided environment variables.
	bytes = []byte(os.ExpandEnv(string(bytes)))

	conf := Config{
		Service: ServiceConfig{
			Port:           8080,
			MaxConnections: 100,
		},
		Cache: CacheConfig{
			Root: filepath.Join(xdg.CacheHome, "bred"),
		},
		Remote: RemoteConfig{
			ProbeTimeoutSeconds: 5,
		},
	}
	if err := yaml.Unmarshal(bytes, &conf); err != nil {
		return Config{}, fmt.Errorf("Couldn't parse configuration data: %s", err.Error())
	}
	return conf, nil
}

// This helper validates the given service parameters, returning an error
// indicating success or failure.
func validateServiceParameters(params ServiceConfig) error {
	if params.Port < 0 || params.Port > 65535 {
		return fmt.Errorf("Invalid port: %d (must be 0-65535)", params.Port)
	}
	if params.MaxConnections <= 0 {
		return fmt.Errorf("Invalid max_connections: %d (must be positive)",
			params.MaxConnections)
	}
	return nil
}

// This helper validates a config, returning an error that indicates success
// or failure.
func validateConfig(conf Config) error {
	if err := validateServiceParameters(conf.Service); err != nil {
		return err
	}
	if conf.Cache.Root == "" {
		return fmt.Errorf("No cache root directory was provided!")
	}
	if conf.Remote.BaseURL != "" {
		u, err := url.Parse(conf.Remote.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("Invalid remote base URL: %s", conf.Remote.BaseURL)
		}
	}
	if conf.Remote.ProbeTimeoutSeconds <= 0 {
		return fmt.Errorf("Invalid probe timeout: %d (must be positive)",
			conf.Remote.ProbeTimeoutSeconds)
	}
	return nil
}

// Initializes a service configuration from the given YAML byte data.
func Init(yamlData []byte) (Config, error) {
	conf, err := readConfig(yamlData)
	if err != nil {
		return Config{}, err
	}
	err = validateConfig(conf)
	if err != nil {
		return Config{}, err
	}
	return conf, nil
}
