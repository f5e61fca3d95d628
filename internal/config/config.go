package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds accepted by the source setting.
const (
	SourceScreen  = "screen"
	SourcePattern = "pattern"
	SourceImage   = "image"
)

// Config represents the complete pxpaint configuration
type Config struct {
	Host   string `yaml:"host" mapstructure:"host"`
	Source string `yaml:"source" mapstructure:"source"` // screen, pattern, image:<path>

	Screen      int    `yaml:"screen" mapstructure:"screen"`             // X11 screen number
	Display     string `yaml:"display" mapstructure:"display"`           // X display name, empty uses $DISPLAY
	ShowPointer bool   `yaml:"show_pointer" mapstructure:"show_pointer"` // draw the mouse pointer

	Width   int `yaml:"width" mapstructure:"width"`   // 0 = canvas width from SIZE
	Height  int `yaml:"height" mapstructure:"height"` // 0 = canvas height from SIZE
	OffsetX int `yaml:"offset_x" mapstructure:"offset_x"`
	OffsetY int `yaml:"offset_y" mapstructure:"offset_y"`

	Count          int  `yaml:"count" mapstructure:"count"` // painter connections, 0 = CPU count
	Binary         bool `yaml:"binary" mapstructure:"binary"`
	NoFlush        bool `yaml:"no_flush" mapstructure:"no_flush"`
	FrameBuffering bool `yaml:"frame_buffering" mapstructure:"frame_buffering"`
	Alpha          int  `yaml:"alpha" mapstructure:"alpha"`

	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// LogConfig contains logger settings
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json, text
}

// TelemetryConfig contains the optional stats endpoints
type TelemetryConfig struct {
	HealthAddr string     `yaml:"health_addr" mapstructure:"health_addr"` // empty disables the HTTP server
	MQTT       MQTTConfig `yaml:"mqtt" mapstructure:"mqtt"`
}

// MQTTConfig contains MQTT broker settings
type MQTTConfig struct {
	Broker   string        `yaml:"broker" mapstructure:"broker"` // empty disables publishing
	Topic    string        `yaml:"topic" mapstructure:"topic"`
	QoS      byte          `yaml:"qos" mapstructure:"qos"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Source: SourceScreen,
		Alpha:  255,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			MQTT: MQTTConfig{
				Topic:    "pxpaint/stats",
				Interval: 5 * time.Second,
			},
		},
	}
}

// SourceSpec splits Source into its kind and argument ("image:/tmp/a.png"
// yields "image", "/tmp/a.png").
func (c *Config) SourceSpec() (kind, arg string) {
	kind, arg, _ = strings.Cut(c.Source, ":")
	return strings.ToLower(strings.TrimSpace(kind)), arg
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
