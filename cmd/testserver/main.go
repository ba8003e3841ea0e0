package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitechdev/DataBrowser/pkg/config"
	"github.com/bitechdev/DataBrowser/pkg/logger"
	"github.com/bitechdev/DataBrowser/pkg/modelregistry"
	"github.com/bitechdev/DataBrowser/pkg/security"
	"github.com/bitechdev/DataBrowser/pkg/server"
)

const secret = "testserver-secret"

func main() {
	// Initialize logger
	fmt.Println("Data browser test server starting")
	logger.Init(true)

	// Init Models
	registry := modelregistry.NewModelRegistry()
	server.RegisterDemoModels(registry)

	os.Setenv("DATABROWSER_DATABASE_DSN", "file::memory:")
	os.Setenv("DATABROWSER_AUTH_JWT_SECRET", secret)
	os.Setenv("DATABROWSER_DATA_BROWSER_ALLOW_PUBLIC", "true")
	cfg, err := config.Load("", nil)
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	app, err := server.New(cfg, registry)
	if err != nil {
		logger.Error("Failed to initialize: %+v", err)
		os.Exit(1)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seed(ctx, app); err != nil {
		logger.Error("Failed to seed database: %+v", err)
		os.Exit(1)
	}

	if err := app.Serve(ctx); err != nil {
		logger.Error("Server failed: %v", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, app *server.App) error {
	admin, view, err := app.SeedDemo(ctx)
	if err != nil {
		return err
	}

	token, err := security.NewToken([]byte(secret), app.Config.Auth.Issuer, admin, 24*time.Hour)
	if err != nil {
		return err
	}
	base := "http://localhost" + app.Config.Server.Address + app.Config.Server.BasePath
	logger.Info("Admin token: %s", token)
	logger.Info("Try: curl -H 'Authorization: Bearer %s' '%s/query/tests.Product/name+0,size,producer__name.json'", token, base)
	logger.Info("Public view: %s/view/%s.csv", base, view.PublicSlug)
	return nil
}
