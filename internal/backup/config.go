package backup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// defaultPassphrase is used when encryption is enabled but no passphrase is
// configured. Runs that fall back to it log a warning; operators should set
// BARVAULT_ENCRYPTION_PASSPHRASE in production.
const defaultPassphrase = "change-me-barvault-default"

// Schedule values are advisory labels recorded with each run. Actual
// triggering is owned by an external scheduler.
const (
	ScheduleDaily   = "daily"
	ScheduleWeekly  = "weekly"
	ScheduleMonthly = "monthly"
)

// Config holds the complete backup subsystem configuration.
type Config struct {
	// Tables lists the tables included in every backup run, in capture order.
	Tables []string `yaml:"tables" json:"tables"`

	// TenantScopedTables names the subset of Tables carrying a bar_id
	// column. Only these participate in tenant-scoped backup and restore.
	TenantScopedTables []string `yaml:"tenant_scoped_tables" json:"tenant_scoped_tables"`

	// Schedule is the advisory cadence label (daily, weekly, monthly).
	Schedule string `yaml:"schedule" json:"schedule"`

	// RetentionDays is the age past which backups are swept. Zero disables
	// the sweeper.
	RetentionDays int `yaml:"retention_days" json:"retention_days"`

	// Compression toggles payload compression; CompressionAlgorithm picks
	// the codec when it is on.
	Compression          bool            `yaml:"compression" json:"compression"`
	CompressionAlgorithm CompressionType `yaml:"compression_algorithm" json:"compression_algorithm"`

	// Encryption toggles passphrase-based payload encryption.
	Encryption bool `yaml:"encryption" json:"encryption"`

	// NotificationWebhook receives run outcome notifications when set.
	NotificationWebhook string `yaml:"notification_webhook" json:"notification_webhook"`

	// StorageBucket is the bucket or container backups are written to.
	StorageBucket string `yaml:"storage_bucket" json:"storage_bucket"`

	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Database DatabaseConfig `yaml:"database" json:"database"`
}

// StorageConfig selects and configures the blob store provider.
type StorageConfig struct {
	Provider string       `yaml:"provider" json:"provider"` // local, s3, gcs, azure
	Local    *LocalConfig `yaml:"local,omitempty" json:"local,omitempty"`
	S3       *S3Config    `yaml:"s3,omitempty" json:"s3,omitempty"`
	GCS      *GCSConfig   `yaml:"gcs,omitempty" json:"gcs,omitempty"`
	Azure    *AzureConfig `yaml:"azure,omitempty" json:"azure,omitempty"`
}

// LocalConfig configures filesystem-backed blob storage.
type LocalConfig struct {
	BasePath string `yaml:"base_path" json:"base_path"`
}

// Validate validates the local storage configuration.
func (c *LocalConfig) Validate() error {
	if c.BasePath == "" {
		return NewConfigurationError("local storage base path is required", nil)
	}
	return nil
}

// S3Config configures Amazon S3 blob storage.
type S3Config struct {
	Region    string `yaml:"region" json:"region"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
}

// Validate validates the S3 storage configuration.
func (c *S3Config) Validate() error {
	var errs ValidationErrors
	if c.Region == "" {
		errs.Add("region", "S3 region is required", c.Region)
	}
	if c.Bucket == "" {
		errs.Add("bucket", "S3 bucket is required", c.Bucket)
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// GCSConfig configures Google Cloud Storage.
type GCSConfig struct {
	Bucket          string `yaml:"bucket" json:"bucket"`
	CredentialsPath string `yaml:"credentials_path" json:"credentials_path"`
}

// Validate validates the GCS storage configuration.
func (c *GCSConfig) Validate() error {
	if c.Bucket == "" {
		return NewConfigurationError("GCS bucket is required", nil)
	}
	return nil
}

// AzureConfig configures Azure Blob Storage.
type AzureConfig struct {
	AccountName   string `yaml:"account_name" json:"account_name"`
	AccountKey    string `yaml:"account_key" json:"account_key"`
	ContainerName string `yaml:"container_name" json:"container_name"`
}

// Validate validates the Azure storage configuration.
func (c *AzureConfig) Validate() error {
	var errs ValidationErrors
	if c.AccountName == "" {
		errs.Add("account_name", "Azure account name is required", c.AccountName)
	}
	if c.AccountKey == "" {
		errs.Add("account_key", "Azure account key is required", c.AccountKey)
	}
	if c.ContainerName == "" {
		errs.Add("container_name", "Azure container name is required", c.ContainerName)
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// DatabaseConfig holds MySQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Name     string `yaml:"name" json:"name"`
	Timeout  string `yaml:"timeout" json:"timeout"`
}

// DSN returns the go-sql-driver connection string for this configuration.
func (c *DatabaseConfig) DSN() string {
	timeout := c.Timeout
	if timeout == "" {
		timeout = "10s"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&timeout=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, timeout)
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	var errs ValidationErrors
	if c.Host == "" {
		errs.Add("host", "database host is required", c.Host)
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs.Add("port", "database port must be between 1 and 65535", c.Port)
	}
	if c.User == "" {
		errs.Add("user", "database user is required", c.User)
	}
	if c.Name == "" {
		errs.Add("name", "database name is required", c.Name)
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Schedule == "" {
		c.Schedule = ScheduleDaily
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = 30
	}
	if c.CompressionAlgorithm == "" {
		c.CompressionAlgorithm = CompressionTypeGzip
	}
	if c.Storage.Provider == "" {
		c.Storage.Provider = "local"
	}
	if c.Storage.Provider == "local" && c.Storage.Local == nil {
		c.Storage.Local = &LocalConfig{BasePath: "./backups"}
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Timeout == "" {
		c.Database.Timeout = "10s"
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if len(c.Tables) == 0 {
		errs.Add("tables", "at least one table must be configured", c.Tables)
	}

	declared := make(map[string]bool, len(c.Tables))
	for _, table := range c.Tables {
		declared[table] = true
	}
	for _, table := range c.TenantScopedTables {
		if !declared[table] {
			errs.Add("tenant_scoped_tables",
				fmt.Sprintf("tenant-scoped table %q is not in the configured table list", table), table)
		}
	}

	switch c.Schedule {
	case ScheduleDaily, ScheduleWeekly, ScheduleMonthly:
	default:
		errs.Add("schedule",
			fmt.Sprintf("schedule must be one of daily, weekly, monthly; got %q", c.Schedule), c.Schedule)
	}

	if c.RetentionDays < 0 {
		errs.Add("retention_days", "retention days cannot be negative", c.RetentionDays)
	}

	if c.Compression {
		switch c.CompressionAlgorithm {
		case CompressionTypeNone, CompressionTypeGzip, CompressionTypeZstd, CompressionTypeLZ4:
		default:
			errs.Add("compression_algorithm",
				fmt.Sprintf("unsupported compression algorithm %q", c.CompressionAlgorithm), c.CompressionAlgorithm)
		}
	}

	if c.StorageBucket == "" {
		errs.Add("storage_bucket", "storage bucket is required", c.StorageBucket)
	}

	switch c.Storage.Provider {
	case "local":
		if c.Storage.Local == nil {
			errs.Add("storage.local", "local storage configuration is required", nil)
		} else if err := c.Storage.Local.Validate(); err != nil {
			errs.Add("storage.local", err.Error(), nil)
		}
	case "s3":
		if c.Storage.S3 == nil {
			errs.Add("storage.s3", "S3 storage configuration is required", nil)
		} else if err := c.Storage.S3.Validate(); err != nil {
			errs.Add("storage.s3", err.Error(), nil)
		}
	case "gcs":
		if c.Storage.GCS == nil {
			errs.Add("storage.gcs", "GCS storage configuration is required", nil)
		} else if err := c.Storage.GCS.Validate(); err != nil {
			errs.Add("storage.gcs", err.Error(), nil)
		}
	case "azure":
		if c.Storage.Azure == nil {
			errs.Add("storage.azure", "Azure storage configuration is required", nil)
		} else if err := c.Storage.Azure.Validate(); err != nil {
			errs.Add("storage.azure", err.Error(), nil)
		}
	default:
		errs.Add("storage.provider",
			fmt.Sprintf("storage provider must be one of local, s3, gcs, azure; got %q", c.Storage.Provider),
			c.Storage.Provider)
	}

	if err := c.Database.Validate(); err != nil {
		errs.Add("database", err.Error(), nil)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// IsTenantScoped reports whether the named table carries the tenant column.
func (c *Config) IsTenantScoped(table string) bool {
	for _, t := range c.TenantScopedTables {
		if t == table {
			return true
		}
	}
	return false
}

// LoadFromEnvironment overlays BARVAULT_* environment variables onto the
// configuration. Environment values take precedence over file values.
func (c *Config) LoadFromEnvironment() {
	if v := os.Getenv("BARVAULT_TABLES"); v != "" {
		c.Tables = splitAndTrim(v)
	}
	if v := os.Getenv("BARVAULT_TENANT_SCOPED_TABLES"); v != "" {
		c.TenantScopedTables = splitAndTrim(v)
	}
	if v := os.Getenv("BARVAULT_SCHEDULE"); v != "" {
		c.Schedule = v
	}
	if v := os.Getenv("BARVAULT_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			c.RetentionDays = days
		}
	}
	if v := os.Getenv("BARVAULT_COMPRESSION"); v != "" {
		c.Compression = parseBool(v)
	}
	if v := os.Getenv("BARVAULT_COMPRESSION_ALGORITHM"); v != "" {
		c.CompressionAlgorithm = CompressionType(v)
	}
	if v := os.Getenv("BARVAULT_ENCRYPTION"); v != "" {
		c.Encryption = parseBool(v)
	}
	if v := os.Getenv("BARVAULT_NOTIFICATION_WEBHOOK"); v != "" {
		c.NotificationWebhook = v
	}
	if v := os.Getenv("BARVAULT_STORAGE_BUCKET"); v != "" {
		c.StorageBucket = v
	}
	if v := os.Getenv("BARVAULT_STORAGE_PROVIDER"); v != "" {
		c.Storage.Provider = v
	}
	if v := os.Getenv("BARVAULT_DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("BARVAULT_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("BARVAULT_DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("BARVAULT_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("BARVAULT_DB_NAME"); v != "" {
		c.Database.Name = v
	}
}

// ResolvePassphrase returns the encryption passphrase and whether it came
// from the environment. Callers should warn when the compiled-in default is
// in use.
func ResolvePassphrase() (string, bool) {
	if v := os.Getenv("BARVAULT_ENCRYPTION_PASSPHRASE"); v != "" {
		return v, true
	}
	return defaultPassphrase, false
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return b
}

// nowUTC is the clock used for run timestamps; overridable in tests.
var nowUTC = func() time.Time { return time.Now().UTC() }
