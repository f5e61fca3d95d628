package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable (PXPAINT_WIDTH, PXPAINT_LOG_LEVEL, ...).
const EnvPrefix = "PXPAINT"

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"source":          "source",
	"screen":          "screen",
	"display":         "display",
	"show-pointer":    "show_pointer",
	"width":           "width",
	"height":          "height",
	"offset-x":        "offset_x",
	"offset-y":        "offset_y",
	"count":           "count",
	"binary":          "binary",
	"no-flush":        "no_flush",
	"frame-buffering": "frame_buffering",
	"alpha":           "alpha",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"health-addr":     "telemetry.health_addr",
	"mqtt-broker":     "telemetry.mqtt.broker",
	"mqtt-topic":      "telemetry.mqtt.topic",
	"mqtt-interval":   "telemetry.mqtt.interval",
}

// RegisterFlags defines the configuration flags on fs with Default() values.
//
// -h is height, matching other pixelflut clients; help stays on --help.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.String("source", d.Source, "frame source: screen, pattern or image:<path>")
	fs.IntP("screen", "s", d.Screen, "X11 screen number to capture")
	fs.String("display", d.Display, "X display name (default $DISPLAY)")
	fs.Bool("show-pointer", d.ShowPointer, "draw the mouse pointer")
	fs.IntP("width", "w", d.Width, "output width on the canvas (default: canvas width)")
	fs.IntP("height", "h", d.Height, "output height on the canvas (default: canvas height)")
	fs.IntP("offset-x", "x", d.OffsetX, "horizontal draw offset")
	fs.IntP("offset-y", "y", d.OffsetY, "vertical draw offset")
	fs.IntP("count", "c", d.Count, "number of painter connections (default: CPU count)")
	fs.BoolP("binary", "b", d.Binary, "use the binary PB protocol")
	fs.BoolP("no-flush", "n", d.NoFlush, "do not flush after every pixel")
	fs.BoolP("frame-buffering", "f", d.FrameBuffering, "double-buffer frames so painters never mix two captures")
	fs.IntP("alpha", "a", d.Alpha, "alpha value 0-255")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn, error")
	fs.String("log-format", d.Log.Format, "log format: json or text")
	fs.String("health-addr", d.Telemetry.HealthAddr, "address for the /health and /stats endpoints (empty disables)")
	fs.String("mqtt-broker", d.Telemetry.MQTT.Broker, "MQTT broker URL for stats (empty disables)")
	fs.String("mqtt-topic", d.Telemetry.MQTT.Topic, "MQTT stats topic")
	fs.Duration("mqtt-interval", d.Telemetry.MQTT.Interval, "MQTT stats interval")
}

// BindFlags binds every registered flag present in fs to its key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// NewViper returns a viper instance with defaults and environment support.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("host", d.Host)
	v.SetDefault("source", d.Source)
	v.SetDefault("screen", d.Screen)
	v.SetDefault("display", d.Display)
	v.SetDefault("show_pointer", d.ShowPointer)
	v.SetDefault("width", d.Width)
	v.SetDefault("height", d.Height)
	v.SetDefault("offset_x", d.OffsetX)
	v.SetDefault("offset_y", d.OffsetY)
	v.SetDefault("count", d.Count)
	v.SetDefault("binary", d.Binary)
	v.SetDefault("no_flush", d.NoFlush)
	v.SetDefault("frame_buffering", d.FrameBuffering)
	v.SetDefault("alpha", d.Alpha)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("telemetry.health_addr", d.Telemetry.HealthAddr)
	v.SetDefault("telemetry.mqtt.broker", d.Telemetry.MQTT.Broker)
	v.SetDefault("telemetry.mqtt.topic", d.Telemetry.MQTT.Topic)
	v.SetDefault("telemetry.mqtt.qos", d.Telemetry.MQTT.QoS)
	v.SetDefault("telemetry.mqtt.interval", d.Telemetry.MQTT.Interval)
}

// Load reads the optional YAML file at path and unmarshals every layer
// (defaults < file < environment < flags) into a Config. The result is not
// validated.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
