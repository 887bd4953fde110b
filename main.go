package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alvaroaleman/sensorconfig/internal"
	"github.com/alvaroaleman/sensorconfig/internal/config"
)

func main() {
	o := internal.Opts{Stdout: os.Stdout}
	var logLevel, logFile string
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:           "sensorconfig",
		Short:         "Submit a sensor configuration to a sensor gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Additionally write logs to this file, rotated")
	cmd.PersistentFlags().StringVar(&o.ConfigFile, "config-file", "", "Path to configuration file")
	cmd.PersistentFlags().Duration("timeout", defaults.Timeout, "Request timeout, 0 for none")
	cmd.PersistentFlags().Bool("include", false, "Print status line and response headers before the body")
	cmd.PersistentFlags().String("metrics-file", "", "Write Prometheus metrics in textfile format to this path")
	cmd.Flags().String("endpoint", defaults.Endpoint, "Endpoint to submit the config to, http(s):// or an MQTT broker (tcp://, ssl://, ws://)")
	cmd.Flags().String("body", "", "JSON payload, replaces the default config")
	cmd.Flags().String("body-file", "", "File holding a JSON or YAML payload, replaces the default config")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log, err := setupLogger(logLevel, logFile)
		if err != nil {
			return fmt.Errorf("failed to configure logger: %w", err)
		}
		defer func() { _ = log.Sync() }()
		o.Flags = cmd.Flags()
		return internal.Run(o, log)
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Fetch the current sensor status from the gateway",
	}
	status.Flags().String("endpoint", defaults.StatusEndpoint, "Status endpoint")
	status.RunE = func(cmd *cobra.Command, args []string) error {
		log, err := setupLogger(logLevel, logFile)
		if err != nil {
			return fmt.Errorf("failed to configure logger: %w", err)
		}
		defer func() { _ = log.Sync() }()
		o.Flags = cmd.Flags()
		return internal.RunStatus(o, log)
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Fetch the list of sensors known to the gateway",
	}
	list.Flags().String("endpoint", defaults.ListEndpoint, "List endpoint")
	list.RunE = func(cmd *cobra.Command, args []string) error {
		log, err := setupLogger(logLevel, logFile)
		if err != nil {
			return fmt.Errorf("failed to configure logger: %w", err)
		}
		defer func() { _ = log.Sync() }()
		o.Flags = cmd.Flags()
		return internal.RunList(o, log)
	}
	cmd.AddCommand(status, list)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error executing command: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(logLevel, logFile string) (*zap.Logger, error) {
	var level zapcore.Level
	switch logLevel {
	case "debug":
		level = zap.DebugLevel
	case "info":
		level = zap.InfoLevel
	case "warn":
		level = zap.WarnLevel
	case "error":
		level = zap.ErrorLevel
	case "dpanic":
		level = zap.DPanicLevel
	case "panic":
		level = zap.PanicLevel
	case "fatal":
		level = zap.FatalLevel
	default:
		return nil, fmt.Errorf("unknown log level: %s", logLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if logFile == "" {
		return log, nil
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg.EncoderConfig),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    1, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
		}),
		cfg.Level,
	)
	return log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}
