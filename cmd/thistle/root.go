package main

import (
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/thistle/config"
)

// configFile is set by the persistent --config flag.
var configFile string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "thistle",
		Short:        "Blacklist screening service",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "yaml, json or toml file with settings; environment variables take precedence")
	root.AddCommand(newServeCommand(), newDetectCommand(), newMigrateCommand())
	return root
}

// bootstrap loads config and builds the logger every command starts from.
func bootstrap() (*config.Config, ectologger.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

func newLogger(cfg *config.Config) (ectologger.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}

	zapConfig := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := zapConfig.Build(zap.Fields(
		zap.String("app", cfg.AppName),
		zap.String("version", cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}
