package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ludwingperezt/mobileappws/internal/auth"
	"github.com/ludwingperezt/mobileappws/internal/config"
	"github.com/ludwingperezt/mobileappws/internal/httpapi"
	"github.com/ludwingperezt/mobileappws/internal/notify"
	"github.com/ludwingperezt/mobileappws/internal/obs"
	"github.com/ludwingperezt/mobileappws/internal/store/memory"
	"github.com/ludwingperezt/mobileappws/internal/store/sqlstore"
	"github.com/ludwingperezt/mobileappws/internal/users"
)

// set by -ldflags at build time
var (
	version = "dev"
	commit  = "unknown"
)

type appStore interface {
	auth.Store
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Version == "dev" {
		cfg.Version = version
	}
	if cfg.Commit == "unknown" {
		cfg.Commit = commit
	}

	logger := obs.NewLogger(os.Stdout, cfg.LogLevel).With(slog.String("service", "mobileappws"))
	obs.SetLogger(logger)
	obs.Init()
	obs.InitBuildInfo(cfg.Version, cfg.Commit)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	fb, err := cfg.ApplyDevelopmentFallbacks()
	if err != nil {
		return err
	}
	if fb.EphemeralSecret {
		logger.Warn("no token secret configured; using an ephemeral one, tokens will not survive a restart")
	}
	if fb.AdminPassword {
		logger.Warn("no admin password configured; using the development default", slog.String("admin_email", cfg.AdminEmail))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	hasher := auth.NewBcryptHasher()
	seed := auth.AdminSeed{
		Email:     cfg.AdminEmail,
		Password:  cfg.AdminPassword,
		FirstName: "Admin",
		LastName:  "Admin",
	}
	if err := auth.EnsureBuiltins(ctx, store, hasher, seed, logger); err != nil {
		return err
	}

	secret, err := auth.DecodeSecret(cfg.TokenSecret)
	if err != nil {
		return err
	}
	codec, err := auth.NewTokenCodec(secret)
	if err != nil {
		return err
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	smtp := notify.SMTPConfig{
		Host: cfg.SMTP.Host,
		Port: cfg.SMTP.Port,
		User: cfg.SMTP.User,
		Pass: cfg.SMTP.Pass,
		From: cfg.SMTP.From,
	}
	if smtp.Configured() {
		notifier = notify.NewEmailNotifier(smtp, cfg.PublicBaseURL, logger)
	} else {
		logger.Info("smtp not configured; emails are logged only")
	}

	svc := users.NewService(store, codec, hasher, notifier, logger,
		users.WithVerificationTTL(cfg.TokenTTL),
		users.WithPasswordResetTTL(cfg.PasswordResetTTL),
	)
	authn := auth.NewAuthenticator(auth.NewResolver(store), codec, hasher,
		auth.WithTokenTTL(cfg.TokenTTL),
		auth.WithRequireVerifiedEmail(cfg.RequireVerifiedEmail),
	)

	probe := httpapi.ReadyProbe{Store: store}
	api := httpapi.New(probe, cfg.Version, svc, authn,
		httpapi.WithLogger(logger),
		httpapi.WithCORSOrigins(cfg.CORSOrigins),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	grpcSrv := httpapi.NewGRPCServer(probe, logger)
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening", slog.String("addr", srv.Addr), slog.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("grpc listening", slog.String("addr", grpcLis.Addr().String()))
		if err := grpcSrv.Serve(grpcLis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server failed", slog.Any("error", err))
	}
	obs.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		grpcSrv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		grpcSrv.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (appStore, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	}

	st, err := sqlstore.Open(ctx, cfg.StoreDriver, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := st.Ping(pingCtx); err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	if cfg.AutoMigrate {
		n, err := st.Migrate(ctx)
		if err != nil {
			_ = st.Close()
			return nil, nil, err
		}
		logger.Info("migrations applied", slog.Int64("count", n), slog.String("driver", cfg.StoreDriver))
	}
	return st, func() { _ = st.Close() }, nil
}
