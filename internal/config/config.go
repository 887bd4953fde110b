package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SENSORCONFIG"

type Config struct {
	Endpoint       string        `mapstructure:"endpoint"`
	StatusEndpoint string        `mapstructure:"status_endpoint"`
	ListEndpoint   string        `mapstructure:"list_endpoint"`
	Body           string        `mapstructure:"body"`
	BodyFile       string        `mapstructure:"body_file"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Include        bool          `mapstructure:"include"`
	MetricsFile    string        `mapstructure:"metrics_file"`
	MQTT           MQTTConfig    `mapstructure:"mqtt"`
}

type MQTTConfig struct {
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	QoS      byte   `mapstructure:"qos"`
}

func Default() Config {
	return Config{
		Endpoint:       "localhost:3000/sensor/config",
		StatusEndpoint: "localhost:3000/sensor/status",
		ListEndpoint:   "localhost:3000/sensor/list",
		Timeout:        30 * time.Second,
		MQTT: MQTTConfig{
			QoS: 1,
		},
	}
}

// Load layers flags over SENSORCONFIG_* environment variables over the
// optional YAML config file over Default. Flags are bound by their config
// key with dashes replaced by underscores.
func Load(configFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	defaults := Default()
	v.SetDefault("endpoint", defaults.Endpoint)
	v.SetDefault("status_endpoint", defaults.StatusEndpoint)
	v.SetDefault("list_endpoint", defaults.ListEndpoint)
	v.SetDefault("body", defaults.Body)
	v.SetDefault("body_file", defaults.BodyFile)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("include", defaults.Include)
	v.SetDefault("metrics_file", defaults.MetricsFile)
	v.SetDefault("mqtt.client_id", defaults.MQTT.ClientID)
	v.SetDefault("mqtt.username", defaults.MQTT.Username)
	v.SetDefault("mqtt.password", defaults.MQTT.Password)
	v.SetDefault("mqtt.qos", defaults.MQTT.QoS)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !isConfigKey(key) {
				return
			}
			if err := v.BindPFlag(key, f); err != nil {
				bindErr = errors.Join(bindErr, err)
			}
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	resolvePayloadSource(&config, v, flags)
	if config.MQTT.QoS > 2 {
		return Config{}, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", config.MQTT.QoS)
	}
	return config, nil
}

func isConfigKey(key string) bool {
	switch key {
	case "endpoint", "status_endpoint", "list_endpoint", "body", "body_file", "timeout", "include", "metrics_file":
		return true
	}
	return false
}

// resolvePayloadSource keeps only the higher-precedence one of body and
// body_file. Both set on the same layer is left for the payload resolver to
// reject.
func resolvePayloadSource(config *Config, v *viper.Viper, flags *pflag.FlagSet) {
	if config.Body == "" || config.BodyFile == "" {
		return
	}
	bodyLayer, bodyFileLayer := layerOf(v, flags, "body"), layerOf(v, flags, "body_file")
	switch {
	case bodyLayer > bodyFileLayer:
		config.BodyFile = ""
	case bodyFileLayer > bodyLayer:
		config.Body = ""
	}
}

const (
	layerDefault = iota
	layerFile
	layerEnv
	layerFlag
)

func layerOf(v *viper.Viper, flags *pflag.FlagSet, key string) int {
	if flags != nil {
		if f := flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil && f.Changed {
			return layerFlag
		}
	}
	if _, ok := os.LookupEnv(envPrefix + "_" + strings.ToUpper(key)); ok {
		return layerEnv
	}
	if v.InConfig(key) {
		return layerFile
	}
	return layerDefault
}
