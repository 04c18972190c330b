package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kmkrofficial/signature/internal/api"
	"github.com/kmkrofficial/signature/internal/audit"
	"github.com/kmkrofficial/signature/internal/config"
	"github.com/kmkrofficial/signature/internal/content"
	"github.com/kmkrofficial/signature/internal/core"
	"github.com/kmkrofficial/signature/internal/gate"
	"github.com/kmkrofficial/signature/internal/issuers"
	"github.com/kmkrofficial/signature/internal/media"
	"github.com/kmkrofficial/signature/internal/service"
	"github.com/kmkrofficial/signature/internal/session"
	"github.com/kmkrofficial/signature/internal/tasks"
)

const AdminEmailsKey = "admin_emails"

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signature server",
	Long: `Runs the HTTP server: the public portfolio API, the contact form and the
admin area guarded by the access gate.

SIGNATURE_ADMIN_EMAILS (comma separated) replaces gate.admin_emails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadServerConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		if emails := viper.GetString(AdminEmailsKey); emails != "" {
			cfg.Gate.AdminEmails = config.SplitList(emails)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		auditor, err := openAuditor(cfg.Audit)
		if err != nil {
			return err
		}
		defer func() {
			if err := auditor.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close auditor")
			}
		}()

		log.Info().Msg("Initializing issuers...")
		issRegistry, err := issuers.BuildRegistry(ctx, cfg.Issuers)
		if err != nil {
			return fmt.Errorf("building issuer registry: %w", err)
		}

		log.Info().Str("backend", cfg.Sessions.Backend).Msg("Opening session store...")
		sessions, err := openSessionStore(cfg.Sessions)
		if err != nil {
			return err
		}
		defer func() { _ = sessions.Close() }()

		signer := session.NewTokenSigner([]byte(cfg.Server.SigningKey), cfg.Server.SessionTTL)
		provider := issuers.NewProvider(issRegistry, sessions, signer, issuers.NewHub())

		opts := gate.OptionsFromConfig(cfg.Gate)
		if opts.AllowList.Len() == 0 {
			log.Warn().Msg("the admin allow-list is empty, nobody can access the admin area")
		}
		g := gate.New(sessions, provider, auditor, opts)

		log.Info().Str("path", cfg.Content.Path).Msg("Opening content store...")
		documents, err := content.Open(cfg.Content.Path)
		if err != nil {
			return err
		}
		defer func() { _ = documents.Close() }()

		var images *media.Store
		if cfg.Media != nil {
			images, err = media.NewS3Store(ctx, *cfg.Media)
			if err != nil {
				return fmt.Errorf("creating media store: %w", err)
			}
			log.Info().Str("bucket", cfg.Media.Bucket).Msg("Media storage enabled")
		}

		taskManager := tasks.NewManager()
		defer taskManager.Stop()
		taskManager.Register(tasks.TaskDefinition{
			Name:     tasks.SessionSweepTask,
			Target:   cfg.Sessions.Backend + " session store",
			Interval: cfg.Tasks.SweepInterval,
			Handler:  tasks.SessionSweep(sessions, cfg.Gate.IdleTimeout, nil),
		})
		if cfg.Tasks.KeepAliveURL != "" {
			taskManager.Register(tasks.TaskDefinition{
				Name:     tasks.KeepAliveTask,
				Target:   cfg.Tasks.KeepAliveURL,
				Interval: cfg.Tasks.KeepAliveInterval,
				Handler:  tasks.KeepAlive(nil, cfg.Tasks.KeepAliveURL),
			})
		}

		srv := api.NewServer(
			g,
			provider,
			service.NewContentService(documents, images, auditor),
			service.NewContactService(documents, cfg.Content.ContactWindow),
			taskManager,
			auditor,
			api.CookieOptions{
				Name:   cfg.Server.CookieName,
				Secure: cfg.Server.CookieSecure,
			},
			cfg.Server.LoginRatePerMinute,
		)

		server := api.NewHTTPServer(ctx, cfg.Server.Addr, srv.Routes())

		errCh := make(chan error, 1)
		go func() {
			log.Info().Msgf("Starting server on %s...", cfg.Server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server crashed: %w", err)
			}
		case <-ctx.Done():
		}
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

func openSessionStore(cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Backend {
	case "memory":
		return session.NewInMemoryStore(), nil
	case "sqlite":
		store, err := session.OpenSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite session store: %w", err)
		}
		return store, nil
	case "redis":
		return session.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown session backend '%s'", cfg.Backend)
	}
}

func openAuditor(cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return audit.NewNoopAuditor(), nil
	}
	switch cfg.Type {
	case "memory":
		return audit.NewInMemoryAuditor(), nil
	case "file":
		a, err := audit.NewFileAuditor(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown audit type '%s'", cfg.Type)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "address to listen on (overrides server.addr)")
	f.bindConfigFlag(serveCmd.Flags())
}
