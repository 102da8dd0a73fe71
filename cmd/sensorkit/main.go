// Package main runs the sources described by a config file and logs every property update.
package main

import (
	"context"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/sensorkit/config"
	"go.viam.com/sensorkit/logging"
	"go.viam.com/sensorkit/registry"
	"go.viam.com/sensorkit/source"
	// registers the simulated sources.
	_ "go.viam.com/sensorkit/sources/fake"
	"go.viam.com/sensorkit/system"
)

var logger = logging.NewLogger("sensorkit")

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"0,required,usage=sources config file"`
	Debug      bool   `flag:"debug"`
}

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cfg, err := config.Read(ctx, argsParsed.ConfigFile, logger)
	if err != nil {
		return err
	}
	if cfg.LogFile != nil {
		appender := logging.NewFileAppender(*cfg.LogFile)
		defer func() {
			if closeErr := appender.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		logger.AddAppender(appender)
	}
	if err := cfg.UpdateLoggerRegistry(logger); err != nil {
		return err
	}
	if argsParsed.Debug || cfg.Debug {
		logger.SetLevel(logging.DEBUG)
	}

	if argsParsed.Debug {
		ctx = logging.EnableDebugMode(ctx, "")
	}
	sys, err := system.New(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sys.Close(context.Background()); closeErr != nil {
			err = errors.Wrap(closeErr, "failed to close sources")
		}
	}()

	sys.Watch(
		func(src registry.Source, update source.PropertiesUpdate) {
			formatted, fmtErr := update.Property.Format(update.Snapshot.Value)
			if fmtErr != nil {
				formatted = fmtErr.Error()
			}
			logger.Infow("property updated",
				"property", update.Property.ID(),
				"name", update.Property.DisplayName(),
				"value", formatted,
				"at", update.Snapshot.CapturedAt,
			)
		},
		func(src registry.Source, event source.Event) {
			logger.Infow("source event", "source", src.ID(), "event", event)
		},
	)

	if err := sys.StartAll(ctx); err != nil {
		logger.Warnw("some sources failed to start", "error", err)
	}
	logger.Infow("sources running", "count", len(sys.Sources()), "config", cfg.ConfigFilePath)
	<-ctx.Done()
	return nil
}
