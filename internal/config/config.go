// Package config handles loading and validating the wyosat daemon's
// configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for the wyosat daemon.
type Config struct {
	Satellite SatelliteConfig `mapstructure:"satellite"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Debug     DebugConfig     `mapstructure:"debug"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Wake      WakeConfig      `mapstructure:"wake"`
	Device    DeviceConfig    `mapstructure:"device"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SatelliteConfig holds the voice-satellite TCP endpoint's own tunables.
type SatelliteConfig struct {
	Port        int    `mapstructure:"port"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Version     string `mapstructure:"version"`
}

// AdminConfig configures the gRPC admin/control surface.
type AdminConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// DebugConfig configures the debug/status HTTP surface.
type DebugConfig struct {
	Port int `mapstructure:"port"`
}

// NotifyConfig configures the MQTT side-channel notifier.
type NotifyConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
}

// WakeConfig selects and configures the on-device wake-word engine. Backend
// "" (the default) means no wake component is attached and the satellite
// runs in always-stream mode.
type WakeConfig struct {
	Backend string       `mapstructure:"backend"` // "" or "silero"
	Silero  SileroConfig `mapstructure:"silero"`
}

// SileroConfig configures the optional onnxruntime-backed Silero wake
// adapter (only compiled in with the "silero" build tag).
type SileroConfig struct {
	ModelPath   string  `mapstructure:"model_path"`
	LibraryPath string  `mapstructure:"library_path"`
	Threshold   float32 `mapstructure:"threshold"`
	PhraseName  string  `mapstructure:"phrase_name"`
}

// DeviceConfig selects the microphone/speaker backend. Backend "none" (the
// default) runs headless, with no capture or playback device attached —
// useful behind a gRPC/MQTT-only deployment or under the demo harness,
// which wires its own fake devices directly. Backend "portaudio" requires
// the binary to be built with the "portaudio" tag; "fake" attaches the
// file-dumping mock devices instead of real hardware.
type DeviceConfig struct {
	Backend      string `mapstructure:"backend"` // "none", "portaudio", or "fake"
	Rate         int    `mapstructure:"rate"`
	InputDevice  int    `mapstructure:"input_device"`  // portaudio device index, -1 for default
	OutputDevice int    `mapstructure:"output_device"` // portaudio device index, -1 for default
	FakeDir      string `mapstructure:"fake_dir"`      // output dir for the fake Sound adapter
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and
// defaults. If configFile is non-empty it is used directly; otherwise the
// standard search order applies: ./wyosat.yaml, ./configs/wyosat.yaml,
// /etc/wyosat/wyosat.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("satellite.port", 10700)
	v.SetDefault("satellite.name", "Wyoming Go Satellite")
	v.SetDefault("satellite.description", "my satellite")
	v.SetDefault("satellite.version", "1.0.0")
	v.SetDefault("admin.enabled", true)
	v.SetDefault("admin.port", 50751)
	v.SetDefault("debug.port", 8081)
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.broker", "tcp://localhost:1883")
	v.SetDefault("notify.topic", "wyosat")
	v.SetDefault("notify.client_id", "wyosat")
	v.SetDefault("wake.backend", "")
	v.SetDefault("wake.silero.model_path", "")
	v.SetDefault("wake.silero.library_path", "")
	v.SetDefault("wake.silero.threshold", 0.5)
	v.SetDefault("wake.silero.phrase_name", "hey_jarvis")
	v.SetDefault("device.backend", "none")
	v.SetDefault("device.rate", 16000)
	v.SetDefault("device.input_device", -1)
	v.SetDefault("device.output_device", -1)
	v.SetDefault("device.fake_dir", "./wyosat-audio")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("wyosat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/wyosat")
	}

	v.SetEnvPrefix("WYOSAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
