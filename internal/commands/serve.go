package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"evcal/internal/auth"
	"evcal/internal/config"
	appLog "evcal/internal/log"
	"evcal/internal/session"
	"evcal/internal/web"
)

const defaultConfigPath = "./evcal.yaml"

type serveOptions struct {
	configPath string
	listen     string
}

func addServe(topLevel *cobra.Command) {
	o := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the calendar web server.",
		Example: `
evcal serve
evcal serve --config /etc/evcal/config.yaml --listen 0.0.0.0:8080
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return o.run(ctx)
		},
	}

	cmd.Flags().StringVar(&o.configPath, "config", defaultConfigPath, "Path to config file (created with defaults if missing)")
	cmd.Flags().StringVar(&o.listen, "listen", "", "HTTP listen address (overrides config if set)")

	topLevel.AddCommand(cmd)
}

func (o *serveOptions) run(ctx context.Context) error {
	conf, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", o.configPath, err)
	}
	if o.listen != "" {
		conf.Listen = o.listen
	}

	appLog.Setup(conf.Log.Level, conf.Log.Format, os.Stderr)
	appLog.Info("evcal starting", "version", Version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"token_ttl", conf.Auth.TokenTTL,
		"google", conf.Auth.Google.Enabled(),
		"session_idle_ttl", conf.Session.IdleTTL,
		"session_sweep", conf.Session.Sweep,
		"preview", conf.Preview.Enabled,
	)

	sessions := session.NewRegistry(conf.Session.IdleTTL)
	if err := sessions.StartSweeper(conf.Session.Sweep); err != nil {
		return fmt.Errorf("start session sweeper: %w", err)
	}

	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(conf, newAuthService(conf), sessions).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("http server listening", "addr", conf.Listen)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http server shutdown failed", err)
	}
	sessions.Stop(shutdownCtx)
	appLog.Info("evcal exiting")
	return serveErr
}

func newAuthService(conf *config.Config) *auth.Service {
	var google *auth.GoogleProvider
	if g := conf.Auth.Google; g.Enabled() {
		google = auth.NewGoogleProvider(g.ClientID, g.ClientSecret, g.RedirectURL)
	}
	return auth.NewService(
		auth.NewDirectory(conf.Auth.BcryptCost, conf.Auth.MinPasswordLength),
		auth.NewTokenManager(conf.Auth.JWTSecret, conf.Auth.JWTIssuer, conf.Auth.TokenTTL),
		google,
		conf.Auth.MinPasswordLength,
	)
}
