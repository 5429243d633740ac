package routes

import (
	"context"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectoinject/loglevel"
	"github.com/Gobusters/ectologger"
)

// NewContainer creates the dependency container the route handlers resolve
// from. Container messages go to logger; a nil logger silences them.
func NewContainer(id string, logger ectologger.Logger) (ectocontainer.DIContainer, error) {
	logConfig := &ectocontainer.DIContainerLoggerConfig{
		Prefix:   "ectoinject",
		LogLevel: loglevel.INFO,
		Enabled:  logger != nil,
	}
	if logger != nil {
		logConfig.LogFunc = func(ctx context.Context, level, msg string) {
			if level == loglevel.WARN {
				logger.WithContext(ctx).Warn(msg)
				return
			}
			logger.WithContext(ctx).Debug(msg)
		}
	}

	return ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:                       id,
		AllowCaptiveDependencies: true,
		AllowMissingDependencies: true,
		LoggerConfig:             logConfig,
	})
}
