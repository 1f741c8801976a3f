package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/csg33k/alta-clientes/internal/adapters/dispatch"
	"github.com/csg33k/alta-clientes/internal/adapters/mailer"
	sqliteadapter "github.com/csg33k/alta-clientes/internal/adapters/sqlite"
	"github.com/csg33k/alta-clientes/internal/adapters/xlsx"
	"github.com/csg33k/alta-clientes/internal/config"
	"github.com/csg33k/alta-clientes/internal/delivery"
	"github.com/csg33k/alta-clientes/internal/handlers"
	"github.com/csg33k/alta-clientes/internal/intake"
	"github.com/csg33k/alta-clientes/internal/ports"
)

const shutdownGrace = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	repo, err := sqliteadapter.New(cfg.DBPath, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	filler, err := newFiller(cfg)
	if err != nil {
		return err
	}
	deps := intake.Deps{
		Filler:    filler,
		Composer:  delivery.NewComposer(cfg.TreasuryEmail, cfg.AdminEmail, cfg.SplitThresholdBytes),
		ForceSync: cfg.ForceSyncSend,
	}

	m, err := newMailer(cfg)
	if err != nil {
		// The form still works; every finalize reports the problem.
		slog.Error("mail delivery disabled", "err", err)
		deps.MailErr = err
	} else {
		deps.Sender = delivery.NewSender(m, repo)
	}

	drain := func(context.Context) error { return nil }
	if deps.Sender != nil && !cfg.ForceSyncSend {
		if cfg.Redis.Enabled() {
			opt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
			client := asynq.NewClient(opt)
			defer client.Close()
			worker := asynq.NewServer(opt, asynq.Config{Concurrency: 2})
			if err := worker.Start(dispatch.Handler(deps.Sender.Send)); err != nil {
				return fmt.Errorf("start delivery worker: %w", err)
			}
			defer worker.Shutdown()
			deps.Dispatcher = dispatch.NewAsynq(client, cfg.MaxRetry)
			slog.Info("background delivery via asynq", "redis", cfg.Redis.Addr, "max_retry", cfg.MaxRetry)
		} else {
			g := dispatch.NewGoroutine(deps.Sender.Send, cfg.MaxRetry)
			deps.Dispatcher = g
			drain = g.Wait
		}
	}

	h := handlers.New(repo, intake.New(deps), repo, handlers.Options{
		CSRFKey:       cfg.CSRFKey,
		SecureCookies: cfg.SecureCookies,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("alta de clientes running", "addr", "http://localhost:"+cfg.Port,
			"db", cfg.DBPath, "templates", cfg.TemplateDir, "transport", cfg.Transport, "sync", cfg.ForceSyncSend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		slog.Warn("http shutdown", "err", err)
	}
	if err := drain(sctx); err != nil {
		slog.Warn("background deliveries still running at exit", "err", err)
	}
	return nil
}

func newFiller(cfg *config.Config) (*xlsx.Filler, error) {
	var layout *xlsx.Layout
	if cfg.LayoutFile != "" {
		l, err := xlsx.LoadLayout(cfg.LayoutFile)
		if err != nil {
			return nil, fmt.Errorf("load layout: %w", err)
		}
		layout = l
	}
	f := xlsx.New(cfg.TemplateDir, layout)
	for _, name := range []string{f.Layout().Client.Template, f.Layout().Plants.Template} {
		if _, err := os.Stat(filepath.Join(cfg.TemplateDir, name)); err != nil {
			slog.Warn("template not found; submissions will fail until it exists", "template", name, "dir", cfg.TemplateDir)
		}
	}
	return f, nil
}

// newMailer picks the transport named by the configuration.
func newMailer(cfg *config.Config) (ports.Mailer, error) {
	if err := cfg.MailConfigured(); err != nil {
		return nil, err
	}
	if cfg.Transport == config.TransportSMTP {
		s := cfg.SMTP
		return mailer.NewSMTP(mailer.SMTPOptions{
			Host:     s.Host,
			Port:     s.Port,
			Username: s.Username,
			Password: s.Password,
			From:     s.From,
			TLS:      s.TLS,
			Timeout:  s.Timeout,
		}), nil
	}
	return mailer.NewWebhook(cfg.WebhookURL, cfg.WebhookTimeout), nil
}
