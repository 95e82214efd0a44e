package backup

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML configuration file, overlays environment
// variables, applies defaults, and validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewConfigurationError(fmt.Sprintf("failed to read config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, NewConfigurationError(fmt.Sprintf("failed to parse config file %s", path), err)
		}
	}

	cfg.LoadFromEnvironment()
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, NewConfigurationError("configuration is invalid", err)
	}

	return &cfg, nil
}

// WriteExampleConfig writes a commented starter configuration to path.
func WriteExampleConfig(path string) error {
	example := `# barvault backup configuration
tables:
  - orders
  - order_items
  - inventory
  - menu_items
  - staff_shifts

# Tables that carry a bar_id column. Only these participate in
# tenant-scoped backup and restore.
tenant_scoped_tables:
  - orders
  - order_items
  - inventory
  - staff_shifts

schedule: daily
retention_days: 30

compression: true
compression_algorithm: gzip # gzip, zstd, lz4, none

# Passphrase comes from BARVAULT_ENCRYPTION_PASSPHRASE.
encryption: true

# notification_webhook: https://hooks.example.com/services/XXX

storage_bucket: venue-backups
storage:
  provider: local # local, s3, gcs, azure
  local:
    base_path: ./backups
  # s3:
  #   region: us-east-1
  #   bucket: venue-backups
  #   access_key: ...
  #   secret_key: ...

database:
  host: 127.0.0.1
  port: 3306
  user: barvault
  password: ""
  name: venue_analytics
`
	if err := os.WriteFile(path, []byte(example), 0644); err != nil {
		return NewConfigurationError(fmt.Sprintf("failed to write example config to %s", path), err)
	}
	return nil
}
