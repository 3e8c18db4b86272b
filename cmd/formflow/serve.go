package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/internal/server"
	"github.com/goliatone/go-formflow/internal/submissions"
	"github.com/goliatone/go-formflow/pkg/metrics"
	pkgopenapi "github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/schemastore"
)

func newServeCmd(g *globals) *cobra.Command {
	var addr, schemas string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve registration forms over HTTP",
		Long: `Serve every schema in the schemas directory as a registration form.

Environment variables override the config file:
  FORMFLOW_ADDR       - Listen address (default: :8080)
  FORMFLOW_SCHEMAS    - Schema directory (default: forms)
  FORMFLOW_DB         - SQLite database path (default: formflow.db)
  FORMFLOW_LOG_LEVEL  - Log level: debug, info, warn, error

Examples:
  formflow serve
  formflow serve --config /etc/formflow.yaml
  formflow serve --addr :9000 --schemas ./events`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if schemas != "" {
				cfg.Schemas.Dir = schemas
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, cfg.Logging.Logger(cmd.ErrOrStderr()))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&schemas, "schemas", "", "schema directory (overrides config)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	storeOptions := []schemastore.Option{schemastore.WithLogger(logger)}
	if cfg.Schemas.Strict {
		storeOptions = append(storeOptions, schemastore.WithParseOptions(schema.WithStrictNames()))
	}
	schemas, err := schemastore.Open(cfg.Schemas.Dir, storeOptions...)
	if err != nil {
		return err
	}
	defer schemas.Close()
	if cfg.Schemas.Watch {
		if err := schemas.Watch(); err != nil {
			logger.Warn().Err(err).Msg("schema hot reload disabled")
		}
	}

	registrations, err := submissions.Open(ctx, cfg.Database.DSN, submissions.WithLogger(logger))
	if err != nil {
		return err
	}
	defer registrations.Close()

	renderer, err := newPageRenderer(cfg, logger)
	if err != nil {
		return err
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New()
	}

	srv, err := server.New(server.Deps{
		Schemas:        schemas,
		Registrations:  registrations,
		Renderer:       renderer,
		Metrics:        collector,
		Logger:         logger,
		Info:           pkgopenapi.Info{Title: "formflow", Version: version},
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		SessionTTL:     cfg.Server.SessionTTL,
		MetricsPath:    cfg.Metrics.Path,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Server.Addr).
			Strs("forms", schemas.Names()).
			Msg("starting http server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
		return err
	}
	return nil
}

func newPageRenderer(cfg *config.Config, logger zerolog.Logger) (*vanilla.Renderer, error) {
	options := []vanilla.Option{
		vanilla.WithPage(vanilla.Page{}),
		vanilla.WithLogger(logger),
		vanilla.WithTemplateEngine(cfg.Templates.Engine),
		vanilla.WithTemplatesDir(cfg.Templates.Dir),
	}
	if cfg.Theme.Manifest != "" {
		manifest, err := vanilla.LoadManifest(cfg.Theme.Manifest)
		if err != nil {
			return nil, err
		}
		themeConfig, err := vanilla.ThemeConfig(vanilla.NewManifestSelector(manifest), cfg.Theme.Name, cfg.Theme.Variant)
		if err != nil {
			return nil, err
		}
		options = append(options, vanilla.WithTheme(themeConfig))
	}
	return vanilla.New(options...)
}
