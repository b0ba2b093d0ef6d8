// Command notifyd runs the notification broker behind its HTTP API.
//
// Configuration comes from NOTIFY_-prefixed environment variables, optionally
// through a .env file. NOTIFY_POLICY_FILE names the YAML document with the
// package, channel and do-not-disturb policy.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/notifykit/notifyd/pkg/alerting"
	"github.com/notifykit/notifyd/pkg/broker"
	"github.com/notifykit/notifyd/pkg/config"
	"github.com/notifykit/notifyd/pkg/httpapi"
	"github.com/notifykit/notifyd/pkg/httpserver"
	"github.com/notifykit/notifyd/pkg/logger"
	"github.com/notifykit/notifyd/pkg/policy"
)

type daemonConfig struct {
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	LogFormat  string `env:"LOG_FORMAT"`
	PolicyFile string `env:"POLICY_FILE,required"`
	EnvFile    string `env:"ENV_FILE"`

	Broker broker.Config
	HTTP   httpserver.Config
}

func main() {
	if err := run(); err != nil {
		slog.Error("notifyd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	var cfg daemonConfig
	if err := config.Load(&cfg, config.WithPrefix("NOTIFY_")); err != nil {
		return err
	}
	if cfg.EnvFile != "" {
		if err := config.Load(&cfg, config.WithPrefix("NOTIFY_"), config.WithEnvFiles(cfg.EnvFile), config.WithoutCache()); err != nil {
			return err
		}
	}

	logOpts := []logger.Option{
		logger.WithEnvironment(cfg.AppEnv, "notifyd"),
		logger.WithContextExtractors(httpapi.RequestIDExtractor),
	}
	if cfg.LogFormat != "" {
		logOpts = append(logOpts, logger.WithFormat(logger.Format(cfg.LogFormat)))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	pol, err := policy.LoadFile(cfg.PolicyFile)
	if err != nil {
		return err
	}

	b, err := broker.New(cfg.Broker, broker.Deps{
		Preferences: pol,
		Zen:         pol,
		Packages:    pol,
		Profiles:    pol,
		Authorizer:  pol,
		Effectors:   alerting.LogEffectors(log),
	}, broker.WithLogger(log))
	if err != nil {
		return err
	}

	api, err := httpapi.New(b, httpapi.WithLogger(log))
	if err != nil {
		return err
	}
	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(b.Run(ctx))
	g.Go(func() error {
		return srv.Run(ctx, api.Router())
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("notifyd stopped cleanly")
	return nil
}
