package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/petermazzocco/bboard/internal/auth"
	"github.com/petermazzocco/bboard/internal/board"
	"github.com/petermazzocco/bboard/internal/captcha"
	"github.com/petermazzocco/bboard/internal/handlers"
	"github.com/petermazzocco/bboard/internal/imaging"
	"github.com/petermazzocco/bboard/internal/media"
	"github.com/petermazzocco/bboard/internal/notify"
	"github.com/petermazzocco/bboard/internal/signing"
	"github.com/petermazzocco/bboard/internal/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	st := store.New(db)

	storage, err := newStorage(ctx)
	if err != nil {
		return err
	}
	svc := newService(st, storage)

	cookies := auth.NewCookieStore(cfg.SecretKey, cfg.SessionMaxAge, cfg.SecureCookies)
	if cfg.OAuthEnabled() {
		callback := strings.TrimRight(cfg.BaseURL, "/") + "/auth/google/callback"
		auth.SetupOAuth(cookies, cfg.GoogleKey, cfg.GoogleSecret, callback)
	}
	h := &handlers.Handler{
		Board:     svc,
		Sessions:  &auth.Sessions{Store: cookies, Users: st},
		Log:       logger,
		RateLimit: cfg.RateLimit,
		OAuth:     cfg.OAuthEnabled(),
	}
	if cfg.Storage != "s3" {
		h.MediaRoot = cfg.MediaRoot
		h.MediaURL = cfg.MediaURL
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("storage", cfg.Storage).Msg("starting API server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newStorage(ctx context.Context) (media.Storage, error) {
	switch cfg.Storage {
	case "s3":
		return media.NewS3(ctx, media.S3Config{
			Bucket:          cfg.BucketName,
			AccountID:       cfg.AccountID,
			AccessKeyID:     cfg.AccessKeyID,
			AccessKeySecret: cfg.AccessKeySecret,
			Endpoint:        cfg.S3Endpoint,
			PublicURL:       cfg.PublicURL,
		})
	case "local", "":
		return &media.Local{Root: cfg.MediaRoot, BaseURL: cfg.MediaURL}, nil
	}
	return nil, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
}

func newService(st *store.Store, storage media.Storage) *board.Service {
	signer := signing.New(cfg.SecretKey, cfg.ActivationMaxAge)

	var mailer notify.Mailer = notify.LogMailer{Logger: logger}
	if cfg.SMTPHost != "" {
		mailer = &notify.SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}
	}

	var verifier captcha.Verifier = captcha.Static{}
	if cfg.CaptchaSecret != "" {
		verifier = captcha.NewSiteVerify(cfg.CaptchaSecret, cfg.CaptchaVerifyURL)
	} else {
		logger.Warn().Msg("CAPTCHA_SECRET not set, guest captchas are not verified")
	}

	svc := &board.Service{
		Store:             st,
		Media:             storage,
		Notifier:          &notify.Dispatcher{Mailer: mailer, Signer: signer, BaseURL: cfg.BaseURL},
		Captcha:           verifier,
		Signer:            signer,
		Log:               logger,
		RequireActivation: cfg.RequireActivation,
	}
	if cfg.ImageMaxWidth > 0 || cfg.ImageMaxHeight > 0 {
		svc.Images = imaging.Resizer{MaxWidth: cfg.ImageMaxWidth, MaxHeight: cfg.ImageMaxHeight}
	}
	return svc
}
