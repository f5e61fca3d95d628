package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/e7canasta/pxpaint/internal/config"
	"github.com/e7canasta/pxpaint/internal/logging"
	"github.com/e7canasta/pxpaint/internal/pipeline"
	"github.com/e7canasta/pxpaint/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "pxpaint [host:port]",
		Short: "Stream the screen to a pixelflut canvas",
		Long: `pxpaint captures the screen and paints it, pixel by pixel, onto a
pixelflut canvas server over one or more parallel connections.

Settings are read from defaults, an optional YAML file (--config),
PXPAINT_* environment variables and flags, in increasing precedence.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, configPath, args)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}

	// Persistent so that "config" sees the same flags. Cobra moves help off
	// -h because -h is taken by height.
	config.RegisterFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")

	cmd.AddCommand(newConfigCmd(&configPath), newVersionCmd())
	return cmd
}

func newConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config [host:port]",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *configPath, args)
			if err != nil {
				return err
			}
			if err := config.ValidateSettings(cfg); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pxpaint %s\n", version)
		},
	}
}

// loadConfig layers defaults, file, environment and the flags of cmd.
// A positional host overrides every other source.
func loadConfig(cmd *cobra.Command, configPath string, args []string) (*config.Config, error) {
	v := config.NewViper()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	if len(args) == 1 {
		v.Set("host", args[0])
	}
	return config.Load(v, configPath)
}

func run(ctx context.Context, cfg *config.Config) error {
	if _, err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}

	source, err := newSource(cfg)
	if err != nil {
		return err
	}

	p, err := pipeline.New(pipelineOptions(cfg), source)
	if err != nil {
		return err
	}

	slog.Info("pxpaint: starting",
		"version", version,
		"run_id", p.RunID(),
		"host", cfg.Host,
		"source", cfg.Source,
	)

	var health *telemetry.Server
	if cfg.Telemetry.HealthAddr != "" {
		health = telemetry.NewServer(p)
		if err := health.Start(cfg.Telemetry.HealthAddr); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := health.Shutdown(shutdownCtx); err != nil {
				slog.Warn("telemetry: health server shutdown failed", "error", err)
			}
		}()
	}

	if cfg.Telemetry.MQTT.Broker != "" {
		pub := telemetry.NewMQTTPublisher(telemetry.MQTTConfig{
			Broker:   cfg.Telemetry.MQTT.Broker,
			ClientID: "pxpaint-" + p.RunID(),
			Topic:    cfg.Telemetry.MQTT.Topic,
			QoS:      cfg.Telemetry.MQTT.QoS,
			Interval: cfg.Telemetry.MQTT.Interval,
		}, p)

		// Stats are optional: a broker that is down never stops painting.
		if err := pub.Connect(ctx); err != nil {
			slog.Warn("telemetry: mqtt disabled", "broker", cfg.Telemetry.MQTT.Broker, "error", err)
			pub.Disconnect()
		} else {
			defer pub.Disconnect()
			go pub.Run(ctx)
			if health != nil {
				health.SetMQTT(pub)
			}
		}
	}

	return p.Run(ctx)
}

func pipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		Host:            cfg.Host,
		OutputWidth:     cfg.Width,
		OutputHeight:    cfg.Height,
		OffsetX:         cfg.OffsetX,
		OffsetY:         cfg.OffsetY,
		Workers:         cfg.Count,
		Binary:          cfg.Binary,
		FlushEveryPixel: !cfg.NoFlush,
		DoubleBuffer:    cfg.FrameBuffering,
		Alpha:           uint8(cfg.Alpha),
	}
}
