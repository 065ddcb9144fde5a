package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"noteserver/internal/auth"
	"noteserver/internal/config"
	"noteserver/internal/httpapi"
	"noteserver/internal/service"
	"noteserver/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)

	keys, err := loadKeys(cfg, logger)
	if err != nil {
		logger.Error("jwt keys", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if err := postgres.Migrate(ctx, cfg.DBDSN); err != nil {
		logger.Error("db migrate failed", "err", err)
		os.Exit(1)
	}

	pgPool, err := postgres.Open(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("db open failed", "err", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	users := postgres.NewUsersStore(pgPool)
	ephemeralTokens := postgres.NewEphemeralTokensStore(pgPool)
	channels := postgres.NewChannelsStore(pgPool)
	notes := postgres.NewNotesStore(pgPool)

	sessionTokens := &auth.TokenIssuer{Keys: keys, TTL: cfg.SessionTTL}

	tokenSvc := &service.TokenService{
		Store:           ephemeralTokens,
		VerificationTTL: cfg.VerifyTokenTTL,
		ResetTTL:        cfg.ResetTokenTTL,
	}
	mailerSvc := &service.MailerService{
		Channels: channels,
		Configs:  cfg.MailChannels,
		FromName: cfg.MailFromName,
		Logger:   logger,
	}
	notifierSvc := &service.NotifierService{
		Tokens:    tokenSvc,
		Mailer:    mailerSvc,
		BaseURL:   cfg.VerifyBaseURL(),
		Logger:    logger,
		QueueSize: cfg.NotifyQueueSize,
	}
	authSvc := &service.AuthService{
		Users:    users,
		Sessions: sessionTokens,
		Mailer:   mailerSvc,
		Notifier: notifierSvc,
	}
	notesSvc := &service.NotesService{Store: notes}
	profileSvc := &service.ProfileService{Users: users}

	notifyCtx, stopNotify := context.WithCancel(ctx)
	notifierSvc.Start(notifyCtx, cfg.NotifyWorkers)

	router := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:        logger,
		IsProd:        cfg.IsProd(),
		DBPing:        pgPool.Ping,
		Auth:          authSvc,
		Tokens:        tokenSvc,
		Notes:         notesSvc,
		Profile:       profileSvc,
		SessionTokens: sessionTokens,
		CookieSecure:  cfg.CookieSecure(),
		SessionTTL:    cfg.SessionTTL,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr, "mail_channels", len(cfg.MailChannels))
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		notifierSvc.Stop()
		stopNotify()
	case err := <-errCh:
		stopNotify()
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

// loadKeys reads the configured RSA key pair. Outside prod a missing pair is
// replaced by a generated throwaway one, which invalidates sessions on
// restart.
func loadKeys(cfg config.Config, logger *slog.Logger) (auth.KeyPair, error) {
	if cfg.JWTPrivateKeyFile != "" {
		return auth.LoadKeyPair(cfg.JWTPrivateKeyFile, cfg.JWTPublicKeyFile)
	}
	logger.Warn("jwt keys not configured, generating ephemeral pair")
	return auth.GenerateKeyPair()
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
