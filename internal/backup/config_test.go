package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Tables:             []string{"orders", "inventory"},
		TenantScopedTables: []string{"orders"},
		Schedule:           ScheduleDaily,
		RetentionDays:      30,
		StorageBucket:      "venue-backups",
		Storage: StorageConfig{
			Provider: "local",
			Local:    &LocalConfig{BasePath: "./backups"},
		},
		Database: DatabaseConfig{
			Host: "127.0.0.1",
			Port: 3306,
			User: "barvault",
			Name: "venue_analytics",
		},
	}
}

func TestConfigSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	assert.Equal(t, ScheduleDaily, cfg.Schedule)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, CompressionTypeGzip, cfg.CompressionAlgorithm)
	assert.Equal(t, "local", cfg.Storage.Provider)
	require.NotNil(t, cfg.Storage.Local)
	assert.Equal(t, 3306, cfg.Database.Port)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no tables", func(c *Config) { c.Tables = nil }},
		{"scoped table not declared", func(c *Config) { c.TenantScopedTables = []string{"ghosts"} }},
		{"bad schedule", func(c *Config) { c.Schedule = "hourly" }},
		{"negative retention", func(c *Config) { c.RetentionDays = -1 }},
		{"bad compression algorithm", func(c *Config) { c.Compression = true; c.CompressionAlgorithm = "snappy" }},
		{"no bucket", func(c *Config) { c.StorageBucket = "" }},
		{"bad provider", func(c *Config) { c.Storage.Provider = "ftp" }},
		{"s3 without config", func(c *Config) { c.Storage.Provider = "s3"; c.Storage.S3 = nil }},
		{"no db host", func(c *Config) { c.Database.Host = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigIsTenantScoped(t *testing.T) {
	cfg := validConfig()
	assert.True(t, cfg.IsTenantScoped("orders"))
	assert.False(t, cfg.IsTenantScoped("inventory"))
	assert.False(t, cfg.IsTenantScoped("unknown"))
}

func TestConfigLoadFromEnvironment(t *testing.T) {
	t.Setenv("BARVAULT_TABLES", "orders, order_items ,inventory")
	t.Setenv("BARVAULT_RETENTION_DAYS", "45")
	t.Setenv("BARVAULT_COMPRESSION", "true")
	t.Setenv("BARVAULT_COMPRESSION_ALGORITHM", "zstd")
	t.Setenv("BARVAULT_ENCRYPTION", "1")
	t.Setenv("BARVAULT_DB_HOST", "db.internal")
	t.Setenv("BARVAULT_DB_PORT", "3307")

	cfg := &Config{}
	cfg.LoadFromEnvironment()

	assert.Equal(t, []string{"orders", "order_items", "inventory"}, cfg.Tables)
	assert.Equal(t, 45, cfg.RetentionDays)
	assert.True(t, cfg.Compression)
	assert.Equal(t, CompressionTypeZstd, cfg.CompressionAlgorithm)
	assert.True(t, cfg.Encryption)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 3307, cfg.Database.Port)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     3306,
		User:     "barvault",
		Password: "secret",
		Name:     "venue_analytics",
	}
	assert.Equal(t,
		"barvault:secret@tcp(127.0.0.1:3306)/venue_analytics?parseTime=true&timeout=10s",
		cfg.DSN())
}

func TestResolvePassphrase(t *testing.T) {
	t.Setenv("BARVAULT_ENCRYPTION_PASSPHRASE", "from-env")
	passphrase, fromEnv := ResolvePassphrase()
	assert.Equal(t, "from-env", passphrase)
	assert.True(t, fromEnv)

	t.Setenv("BARVAULT_ENCRYPTION_PASSPHRASE", "")
	passphrase, fromEnv = ResolvePassphrase()
	assert.Equal(t, defaultPassphrase, passphrase)
	assert.False(t, fromEnv)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "barvault.yaml")

	content := `tables:
  - orders
  - inventory
tenant_scoped_tables:
  - orders
schedule: weekly
retention_days: 14
compression: true
compression_algorithm: lz4
storage_bucket: venue-backups
storage:
  provider: local
  local:
    base_path: ` + dir + `
database:
  host: 127.0.0.1
  user: barvault
  name: venue_analytics
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ScheduleWeekly, cfg.Schedule)
	assert.Equal(t, 14, cfg.RetentionDays)
	assert.Equal(t, CompressionTypeLZ4, cfg.CompressionAlgorithm)
	assert.Equal(t, 3306, cfg.Database.Port) // defaulted
}

func TestLoadConfigInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tables: [unclosed"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypeConfiguration))
}
