package config

import (
	"fmt"
	"math"
	"strings"
)

// Validate checks if the configuration is valid
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("host is required")
	}

	return ValidateSettings(cfg)
}

// ValidateSettings checks everything except the host, so a partial
// configuration can still be inspected.
func ValidateSettings(cfg *Config) error {
	switch kind, arg := cfg.SourceSpec(); kind {
	case SourceScreen, SourcePattern:
	case SourceImage:
		if arg == "" {
			return fmt.Errorf("source image requires a path (image:<path>)")
		}
	default:
		return fmt.Errorf("unknown source %q (must be screen, pattern or image:<path>)", cfg.Source)
	}

	if cfg.Screen < 0 {
		return fmt.Errorf("screen must be >= 0, got %d", cfg.Screen)
	}

	// Output size is bounded by the 16-bit wire coordinates
	if cfg.Width < 0 || cfg.Width > math.MaxUint16+1 {
		return fmt.Errorf("width must be in [0, 65536], got %d", cfg.Width)
	}
	if cfg.Height < 0 || cfg.Height > math.MaxUint16+1 {
		return fmt.Errorf("height must be in [0, 65536], got %d", cfg.Height)
	}
	if cfg.OffsetX < 0 || cfg.OffsetX > math.MaxUint16 {
		return fmt.Errorf("offset_x must be in [0, 65535], got %d", cfg.OffsetX)
	}
	if cfg.OffsetY < 0 || cfg.OffsetY > math.MaxUint16 {
		return fmt.Errorf("offset_y must be in [0, 65535], got %d", cfg.OffsetY)
	}

	if cfg.Count < 0 {
		return fmt.Errorf("count must be >= 0, got %d", cfg.Count)
	}
	if cfg.Alpha < 0 || cfg.Alpha > math.MaxUint8 {
		return fmt.Errorf("alpha must be in [0, 255], got %d", cfg.Alpha)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format)
	}

	if cfg.Telemetry.MQTT.Broker != "" {
		if cfg.Telemetry.MQTT.Topic == "" {
			return fmt.Errorf("telemetry.mqtt.topic is required when a broker is set")
		}
		if cfg.Telemetry.MQTT.Interval <= 0 {
			return fmt.Errorf("telemetry.mqtt.interval must be > 0")
		}
		if cfg.Telemetry.MQTT.QoS > 2 {
			return fmt.Errorf("telemetry.mqtt.qos must be 0, 1 or 2, got %d", cfg.Telemetry.MQTT.QoS)
		}
	}

	return nil
}
