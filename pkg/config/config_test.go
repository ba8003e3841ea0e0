package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "/data_browser", cfg.Server.BasePath)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "gorm", cfg.Database.ORM)
	assert.Equal(t, 1000, cfg.DataBrowser.DefaultRowLimit)
	assert.False(t, cfg.DataBrowser.AllowPublic)
	assert.Equal(t, "databrowser", cfg.Auth.Issuer)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("DATABROWSER_DATABASE_DRIVER", "pg")
	t.Setenv("DATABROWSER_DATA_BROWSER_ALLOW_PUBLIC", "true")
	t.Setenv("DATABROWSER_DATA_BROWSER_DEFAULT_ROW_LIMIT", "0")
	t.Setenv("DATABROWSER_SERVER_BASE_PATH", "reports/")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.DataBrowser.AllowPublic)
	assert.Equal(t, 1, cfg.DataBrowser.DefaultRowLimit)
	assert.Equal(t, "/reports", cfg.Server.BasePath)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "databrowser.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9000"
  base_path: /
database:
  orm: bun
data_browser:
  dev: true
  dev_server_url: http://localhost:3000/
metrics:
  enabled: true
`), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "", cfg.Server.BasePath)
	assert.Equal(t, "bun", cfg.Database.ORM)
	assert.True(t, cfg.DataBrowser.Dev)
	assert.Equal(t, "http://localhost:3000", cfg.DataBrowser.DevServerURL)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.Address)
}

func TestLoad_Flags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags)
	require.NoError(t, flags.Parse([]string{"--address", ":7000", "--allow-public", "--orm=bun"}))

	t.Setenv("DATABROWSER_SERVER_ADDRESS", ":6000")

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Address, "flags win over env")
	assert.True(t, cfg.DataBrowser.AllowPublic)
	assert.Equal(t, "bun", cfg.Database.ORM)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("driver", func(t *testing.T) {
		t.Setenv("DATABROWSER_DATABASE_DRIVER", "oracle")
		_, err := Load("", nil)
		assert.ErrorContains(t, err, "unsupported database driver")
	})

	t.Run("orm", func(t *testing.T) {
		t.Setenv("DATABROWSER_DATABASE_ORM", "xorm")
		_, err := Load("", nil)
		assert.ErrorContains(t, err, "unsupported orm")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
		assert.Error(t, err)
	})
}
