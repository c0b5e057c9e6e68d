package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
)

// Backend names accepted by storage.backend and records.backend
const (
	BackendSupabase  = "supabase"
	BackendMinIO     = "minio"
	BackendS3        = "s3"
	BackendTarantool = "tarantool"
	BackendSQL       = "sql"
	BackendMemory    = "memory"
)

// Config represents the application configuration
type Config struct {
	Platform  PlatformConfig  `yaml:"platform"`
	Storage   StorageConfig   `yaml:"storage"`
	Records   RecordsConfig   `yaml:"records"`
	MinIO     MinIOConfig     `yaml:"minio"`
	S3        S3Config        `yaml:"s3"`
	Tarantool TarantoolConfig `yaml:"tarantool"`
	SQL       SQLConfig       `yaml:"sql"`
	Vault     VaultConfig     `yaml:"vault"`
	Logger    LoggerConfig    `yaml:"logger"`
}

// PlatformConfig represents the hosted platform endpoint and credential
type PlatformConfig struct {
	URL        string        `yaml:"url" envconfig:"SUPABASE_URL"`
	ServiceKey string        `yaml:"service_key" envconfig:"SUPABASE_SERVICE_KEY"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"SUPABASE_TIMEOUT"`

	// Vault path for the service key (optional)
	VaultPath string `yaml:"vault_path" envconfig:"SUPABASE_VAULT_PATH"`
}

// StorageConfig selects the object storage backend
type StorageConfig struct {
	Backend         string        `yaml:"backend" envconfig:"STORAGE_BACKEND"`
	DefaultBucket   string        `yaml:"default_bucket" envconfig:"STORAGE_DEFAULT_BUCKET"`
	AssetsBucket    string        `yaml:"assets_bucket" envconfig:"STORAGE_ASSETS_BUCKET"`
	SignedURLExpiry time.Duration `yaml:"signed_url_expiry" envconfig:"STORAGE_SIGNED_URL_EXPIRY"`
}

// RecordsConfig selects the record table backend
type RecordsConfig struct {
	Backend            string `yaml:"backend" envconfig:"RECORDS_BACKEND"`
	Table              string `yaml:"table" envconfig:"RECORDS_TABLE"`
	ConceptImagesTable string `yaml:"concept_images_table" envconfig:"RECORDS_CONCEPT_IMAGES_TABLE"`
	ModelsTable        string `yaml:"models_table" envconfig:"RECORDS_MODELS_TABLE"`
}

// GenerationTables returns the concept image and model table names
func (r RecordsConfig) GenerationTables() entity.GenerationTables {
	return entity.GenerationTables{ConceptImages: r.ConceptImagesTable, Models: r.ModelsTable}
}

// MinIOConfig represents MinIO connection configuration
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint" envconfig:"MINIO_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" envconfig:"MINIO_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"MINIO_SECRET_ACCESS_KEY"`
	UseSSL          bool   `yaml:"use_ssl" envconfig:"MINIO_USE_SSL"`
	Region          string `yaml:"region" envconfig:"MINIO_REGION"`
	CreateBuckets   bool   `yaml:"create_buckets" envconfig:"MINIO_CREATE_BUCKETS"`

	// Vault path for credentials (optional)
	VaultPath string `yaml:"vault_path" envconfig:"MINIO_VAULT_PATH"`
}

// S3Config represents AWS S3 (or S3-compatible) configuration
type S3Config struct {
	Region          string `yaml:"region" envconfig:"S3_REGION"`
	Endpoint        string `yaml:"endpoint" envconfig:"S3_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" envconfig:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style" envconfig:"S3_USE_PATH_STYLE"`

	// Vault path for credentials (optional)
	VaultPath string `yaml:"vault_path" envconfig:"S3_VAULT_PATH"`
}

// TarantoolConfig represents Tarantool connection configuration
type TarantoolConfig struct {
	Address  string        `yaml:"address" envconfig:"TARANTOOL_ADDRESS"`
	User     string        `yaml:"user" envconfig:"TARANTOOL_USER"`
	Password string        `yaml:"password" envconfig:"TARANTOOL_PASSWORD"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"TARANTOOL_TIMEOUT"`
	Space    string        `yaml:"space" envconfig:"TARANTOOL_SPACE"`

	// Create the space on startup (needs schema privileges)
	CreateSpace bool `yaml:"create_space" envconfig:"TARANTOOL_CREATE_SPACE"`

	// Vault path for credentials (optional)
	VaultPath string `yaml:"vault_path" envconfig:"TARANTOOL_VAULT_PATH"`
}

// SQLConfig represents the SQL record store connection
type SQLConfig struct {
	Driver string `yaml:"driver" envconfig:"SQL_DRIVER"` // sqlite or postgres
	DSN    string `yaml:"dsn" envconfig:"SQL_DSN"`

	// Vault path for the DSN (optional)
	VaultPath string `yaml:"vault_path" envconfig:"SQL_VAULT_PATH"`
}

// VaultConfig represents HashiCorp Vault configuration
type VaultConfig struct {
	Enabled   bool   `yaml:"enabled" envconfig:"VAULT_ENABLED"`
	Address   string `yaml:"address" envconfig:"VAULT_ADDR"`
	Token     string `yaml:"token" envconfig:"VAULT_TOKEN"`
	TokenPath string `yaml:"token_path" envconfig:"VAULT_TOKEN_PATH"`
	Namespace string `yaml:"namespace" envconfig:"VAULT_NAMESPACE"`
	Mount     string `yaml:"mount" envconfig:"VAULT_MOUNT"`
}

// LoggerConfig represents logger configuration
type LoggerConfig struct {
	Level      string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format     string `yaml:"format" envconfig:"LOG_FORMAT"` // json or console
	OutputPath string `yaml:"output_path" envconfig:"LOG_OUTPUT_PATH"`
}

// Default returns the configuration used when neither file nor environment set a value
func Default() *Config {
	return &Config{
		Platform: PlatformConfig{
			Timeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Backend:         BackendSupabase,
			DefaultBucket:   "images",
			AssetsBucket:    "assets",
			SignedURLExpiry: time.Hour,
		},
		Records: RecordsConfig{
			Backend:            BackendSupabase,
			Table:              "images",
			ConceptImagesTable: "concept_images",
			ModelsTable:        "models",
		},
		MinIO: MinIOConfig{
			Endpoint:        "localhost:9000",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Tarantool: TarantoolConfig{
			Address: "localhost:3301",
			User:    "guest",
			Timeout: 5 * time.Second,
			Space:   "images",
		},
		SQL: SQLConfig{
			Driver: "sqlite",
			DSN:    "file:assetgw.db",
		},
		Vault: VaultConfig{
			Address: "http://localhost:8200",
			Mount:   "secret",
		},
		Logger: LoggerConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the environment.
// A .env file in the working directory is read first; variables already set win over it.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if configPath != "" {
		if err := loadFromFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Only variables that are set override; fields carry no envconfig defaults
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// loadFromFile loads configuration from YAML file
func loadFromFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true) // Strict parsing

	if err := decoder.Decode(cfg); err != nil {
		return err
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSupabase, BackendMinIO, BackendS3, BackendMemory:
	default:
		return invalid("unknown storage backend: %q", c.Storage.Backend)
	}

	switch c.Records.Backend {
	case BackendSupabase, BackendTarantool, BackendSQL, BackendMemory:
	default:
		return invalid("unknown records backend: %q", c.Records.Backend)
	}

	if c.UsesPlatform() {
		if c.Platform.URL == "" {
			return invalid("platform url is required (SUPABASE_URL)")
		}
		if c.Platform.ServiceKey == "" && c.Platform.VaultPath == "" {
			return invalid("platform service key is required (SUPABASE_SERVICE_KEY)")
		}
	}

	if c.Storage.Backend == BackendMinIO && c.MinIO.Endpoint == "" {
		return invalid("minio endpoint is required")
	}

	if c.Storage.Backend == BackendS3 && c.S3.Region == "" {
		return invalid("s3 region is required")
	}

	if c.Records.Backend == BackendTarantool && c.Tarantool.Address == "" {
		return invalid("tarantool address is required")
	}

	if c.Records.Backend == BackendSQL {
		if c.SQL.Driver != "sqlite" && c.SQL.Driver != "postgres" {
			return invalid("unknown sql driver: %q", c.SQL.Driver)
		}
		if c.SQL.DSN == "" && c.SQL.VaultPath == "" {
			return invalid("sql dsn is required")
		}
	}

	if c.Storage.SignedURLExpiry < 0 {
		return invalid("signed url expiry cannot be negative: %s", c.Storage.SignedURLExpiry)
	}

	if c.Vault.Enabled && c.Vault.Address == "" {
		return invalid("vault address is required when vault is enabled")
	}

	return nil
}

// UsesPlatform reports whether either backend talks to the hosted platform
func (c *Config) UsesPlatform() bool {
	return c.Storage.Backend == BackendSupabase || c.Records.Backend == BackendSupabase
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", entity.ErrConfig, fmt.Sprintf(format, args...))
}

// GetVaultToken returns the Vault token from config or file
func (c *VaultConfig) GetVaultToken() (string, error) {
	if c.Token != "" {
		return c.Token, nil
	}

	if c.TokenPath != "" {
		token, err := os.ReadFile(c.TokenPath)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token from file: %w", err)
		}
		return strings.TrimSpace(string(token)), nil
	}

	return "", fmt.Errorf("vault token not configured")
}
