// Package bootstrap builds the pieces both binaries share from a loaded config.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/and161185/libdesk/internal/apiclient"
	"github.com/and161185/libdesk/internal/config"
	"github.com/and161185/libdesk/internal/migrate"
	"github.com/and161185/libdesk/internal/session"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewCLILogger returns a development logger on stderr at level.
func NewCLILogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// OpenStore opens the configured session backend. The returned close func
// is never nil. The postgres backend migrates its table first.
func OpenStore(ctx context.Context, c config.SessionConfig, log *zap.Logger) (session.Store, func(), error) {
	switch c.Backend {
	case config.BackendMemory:
		return session.NewMemory(), func() {}, nil
	case config.BackendPostgres:
		if err := migrate.Up(ctx, c.DSN, log); err != nil {
			return nil, nil, fmt.Errorf("migrate session store: %w", err)
		}
		pg, err := session.NewPostgres(ctx, c.DSN, c.Profile)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return session.NewFile(c.Dir, c.Passphrase), func() {}, nil
	}
}

// NewClient builds the backend client. Bearer tokens come from store;
// onUnauthorized may be nil.
func NewClient(c *config.Config, store session.Store, log *zap.Logger, onUnauthorized func(context.Context)) (*apiclient.Client, error) {
	return apiclient.New(apiclient.Config{
		BaseURL: c.API.BaseURL,
		Tokens: apiclient.TokenFunc(func(ctx context.Context) (string, error) {
			return session.Token(ctx, store)
		}),
		Logger:         log.Named("api"),
		OnUnauthorized: onUnauthorized,
	})
}
