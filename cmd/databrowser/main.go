package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitechdev/DataBrowser/pkg/config"
	"github.com/bitechdev/DataBrowser/pkg/databrowser"
	"github.com/bitechdev/DataBrowser/pkg/logger"
	"github.com/bitechdev/DataBrowser/pkg/modelregistry"
	"github.com/bitechdev/DataBrowser/pkg/security"
	"github.com/bitechdev/DataBrowser/pkg/server"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "databrowser",
	Short: "Ad-hoc query and reporting over your models",
	Long: `Data browser serves an ad-hoc query UI over the registered models,
with JSON and CSV output, pivot tables and shareable saved views.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the data browser HTTP server",
	Long: `Start the data browser HTTP server over the models in the default
registry. Programs embedding the data browser register their models with
modelregistry.Default() and call server.New themselves; --demo serves the
bundled product schema with seed data instead.`,
	Example: `  databrowser serve --config ./databrowser.yaml
  databrowser serve --dsn ./app.db --jwt-secret s3cret --metrics
  databrowser serve --demo --dsn file::memory: --jwt-secret s3cret`,
	RunE: runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the data browser tables",
	RunE:  runMigrate,
}

var createUserCmd = &cobra.Command{
	Use:   "createuser USERNAME",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreateUser,
}

var tokenCmd = &cobra.Command{
	Use:   "token USERNAME",
	Short: "Issue an access token for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	for _, cmd := range []*cobra.Command{serveCmd, migrateCmd, createUserCmd, tokenCmd} {
		config.AddFlags(cmd.Flags())
		rootCmd.AddCommand(cmd)
	}

	serveCmd.Flags().Bool("demo", false, "serve the demo product schema, seeding it on first start")

	createUserCmd.Flags().Bool("staff", true, "may use the data browser")
	createUserCmd.Flags().Bool("superuser", false, "sees every model")
	createUserCmd.Flags().String("perms", "", "comma separated permissions, e.g. app.view_model")

	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (default auth.token_ttl)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Data Browser\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Build Date: %s\n", buildDate)
		},
	})
}

func main() {
	databrowser.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openApp loads configuration from the command's flags and opens the app
// over the default model registry.
func openApp(cmd *cobra.Command) (*server.App, error) {
	cfg, err := config.Load("", cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.InitWithLevel(cfg.Log.Dev || cfg.DataBrowser.Dev, cfg.Log.Level)

	registry := modelregistry.Default()
	if demo, _ := cmd.Flags().GetBool("demo"); demo && len(registry.Names()) == 0 {
		server.RegisterDemoModels(registry)
	}
	if len(registry.Names()) == 0 {
		logger.Warn("No models registered, the data browser will be empty (try --demo)")
	}
	app, err := server.New(cfg, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}
	return app, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	defer logger.Sync()

	logger.Info("Starting data browser version %s (commit %s, built %s)", version, commit, buildDate)

	if demo, _ := cmd.Flags().GetBool("demo"); demo {
		if err := seedDemo(cmd.Context(), app); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Serve(ctx); err != nil {
		return err
	}
	logger.Info("Server shutdown complete")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Migrate(cmd.Context()); err != nil {
		return err
	}
	logger.Info("Migrated %d models", len(app.Registry.Names())+2)
	return nil
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	staff, _ := cmd.Flags().GetBool("staff")
	super, _ := cmd.Flags().GetBool("superuser")
	perms, _ := cmd.Flags().GetString("perms")

	user := &security.User{Username: args[0], IsActive: true, IsStaff: staff, IsSuper: super, Permissions: perms}
	if err := app.Handler.Users().Create(cmd.Context(), user); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d)\n", user.Username, user.ID)
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Config.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not set")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	user, err := app.Handler.Users().GetByUsername(ctx, args[0])
	if err != nil {
		return err
	}

	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		ttl = app.Config.Auth.TokenTTL
	}
	token, err := security.NewToken([]byte(app.Config.Auth.JWTSecret), app.Config.Auth.Issuer, user, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func seedDemo(ctx context.Context, app *server.App) error {
	admin, view, err := app.SeedDemo(ctx)
	if err != nil {
		return err
	}
	if view != nil {
		logger.Info("Seeded demo data, public view slug %s", view.PublicSlug)
	}
	if app.Config.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is not set, the demo admin cannot sign in")
		return nil
	}
	token, err := security.NewToken([]byte(app.Config.Auth.JWTSecret), app.Config.Auth.Issuer, admin, app.Config.Auth.TokenTTL)
	if err != nil {
		return err
	}
	logger.Info("Demo admin token: %s", token)
	return nil
}
