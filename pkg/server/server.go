// Package server wires configuration, database, models and HTTP routes into
// a runnable data browser.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bitechdev/DataBrowser/pkg/config"
	"github.com/bitechdev/DataBrowser/pkg/databrowser"
	"github.com/bitechdev/DataBrowser/pkg/logger"
	"github.com/bitechdev/DataBrowser/pkg/metrics"
	"github.com/bitechdev/DataBrowser/pkg/modelregistry"
	"github.com/bitechdev/DataBrowser/pkg/orm"
	"github.com/bitechdev/DataBrowser/pkg/security"
	"github.com/bitechdev/DataBrowser/pkg/views"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

// App is a configured data browser.
type App struct {
	Config   *config.Config
	DB       *Database
	Registry *modelregistry.DefaultModelRegistry
	Catalog  *orm.Catalog
	Handler  *databrowser.Handler
	Metrics  metrics.Collector
}

// New opens the database and builds the model catalog from registry.
func New(cfg *config.Config, registry *modelregistry.DefaultModelRegistry) (*App, error) {
	db, err := OpenDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	catalog, err := orm.NewCatalog(registry)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	var collector metrics.Collector = metrics.NoOpCollector{}
	if cfg.Metrics.Enabled {
		collector = metrics.NewPrometheusCollector()
	}

	handler := databrowser.NewHandler(db, catalog, databrowser.Options{
		BasePath:        cfg.Server.BasePath,
		AllowPublic:     cfg.DataBrowser.AllowPublic,
		DefaultRowLimit: cfg.DataBrowser.DefaultRowLimit,
		Dev:             cfg.DataBrowser.Dev,
		DevServerURL:    cfg.DataBrowser.DevServerURL,
		FrontendDSN:     cfg.DataBrowser.FrontendDSN,
		Metrics:         collector,
	})

	return &App{
		Config:   cfg,
		DB:       db,
		Registry: registry,
		Catalog:  catalog,
		Handler:  handler,
		Metrics:  collector,
	}, nil
}

// Migrate creates the user and view tables and those of every registered
// model.
func (a *App) Migrate(ctx context.Context) error {
	models := append([]interface{}{&security.User{}, &views.View{}}, a.Registry.Pointers()...)
	return a.DB.Migrate(ctx, models...)
}

// Authenticator returns the request authenticator, or nil when no JWT
// secret is configured.
func (a *App) Authenticator() security.AuthenticateFunc {
	if a.Config.Auth.JWTSecret == "" {
		logger.Warn("No JWT secret configured, only public views are reachable")
		return nil
	}
	return security.JWTAuthenticator([]byte(a.Config.Auth.JWTSecret), a.Config.Auth.Issuer, a.Handler.Users())
}

// Router builds the HTTP routes. Metrics are mounted on it when enabled
// without a separate address.
func (a *App) Router() (*mux.Router, error) {
	r := mux.NewRouter()
	if err := databrowser.SetupMuxRoutes(r, a.Handler, a.Authenticator()); err != nil {
		return nil, err
	}
	if a.Config.Metrics.Enabled && a.Config.Metrics.Address == "" {
		r.Handle("/metrics", a.Metrics.Handler()).Methods(http.MethodGet)
	}
	return r, nil
}

func startServer(g *errgroup.Group, srv *http.Server, name string) {
	g.Go(func() error {
		logger.Info("Starting %s on %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
}

// Serve runs the HTTP server, and the metrics server when configured, until
// ctx is cancelled or a server fails. Shutdown is graceful.
func (a *App) Serve(ctx context.Context) error {
	router, err := a.Router()
	if err != nil {
		return err
	}

	servers := []*http.Server{{
		Addr:              a.Config.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}}
	names := []string{"data browser"}
	if a.Config.Metrics.Enabled && a.Config.Metrics.Address != "" {
		metricsRouter := mux.NewRouter()
		metricsRouter.Handle("/metrics", a.Metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:              a.Config.Metrics.Address,
			Handler:           metricsRouter,
			ReadHeaderTimeout: 10 * time.Second,
		})
		names = append(names, "metrics server")
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		startServer(g, srv, names[i])
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down, timeout %s", a.Config.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// Close releases the database.
func (a *App) Close() error {
	return a.DB.Close()
}
