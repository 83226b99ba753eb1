// Package inject builds the dependency containers route handlers resolve
// their collaborators from.
package inject

import (
	"context"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectoinject/loglevel"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
)

// NewContainer registers a container under id. Container logs go to logger
// at debug level; a nil logger silences them.
func NewContainer(id string, logger ectologger.Logger) (ectocontainer.DIContainer, error) {
	loggerConfig := &ectocontainer.DIContainerLoggerConfig{
		Prefix:   "inject",
		LogLevel: loglevel.INFO,
		Enabled:  logger != nil,
	}
	if logger != nil {
		loggerConfig.LogFunc = func(ctx context.Context, level, msg string) {
			logger.WithContext(ctx).WithField("level", level).Debug(msg)
		}
	}

	return ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:                       id,
		AllowCaptiveDependencies: true,
		AllowMissingDependencies: true,
		LoggerConfig:             loggerConfig,
	})
}

// Middleware makes container id the active container of every request
// context, so handlers can call ectoinject.GetContext.
func Middleware(id string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, err := ectoinject.SetActiveContainer(c.Request().Context(), id)
			if err != nil {
				return err
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
