package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doc-library/internal/blob"
	"doc-library/internal/config"
	"doc-library/internal/db"
	"doc-library/internal/logging"
	"doc-library/internal/mail"
	"doc-library/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("backend exited")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx := context.Background()

	dbConn, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer func() { _ = dbConn.Close() }()

	if cfg.Database.AutoMigrate {
		logging.Info().Msg("running migrations")
		if err := db.Migrate(ctx, dbConn); err != nil {
			return err
		}
		logging.Info().Msg("migrations complete")
	}

	blobs, err := newBlobStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("blob storage: %w", err)
	}

	dispatcher := mail.NewDispatcher(newMailer(cfg.Mail), 64, time.Minute)

	srv := server.New(server.Config{
		Addr:           cfg.Server.Addr(),
		DB:             dbConn,
		Blobs:          blobs,
		Mail:           dispatcher,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		CORSOrigins:    cfg.Server.CORSOrigins,
	})

	// Serve in the background so we can wait for signals.
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Server.Addr()).Str("storage", cfg.Storage.Backend).
			Bool("mail_enabled", cfg.Mail.Enabled).Msg("starting")
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		_ = dispatcher.Close(context.Background())
		return fmt.Errorf("server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	// HTTP first so no new mail is queued, then drain what is pending.
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("mail queue not fully drained")
	}
	logging.Info().Msg("shutdown complete")
	return nil
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig) (blob.Store, error) {
	switch cfg.Backend {
	case "", "local":
		return blob.NewLocalStore(cfg.Dir)
	case "minio":
		return blob.NewMinioStore(ctx, blob.MinioConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func newMailer(cfg config.MailConfig) mail.Mailer {
	smtpMailer := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
		Enabled:  cfg.Enabled,
	})
	return mail.NewBreakerMailer(smtpMailer, mail.BreakerConfig{Name: "smtp"})
}
