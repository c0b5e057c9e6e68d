package config

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"
)

// VaultClient wraps HashiCorp Vault client
type VaultClient struct {
	client *vault.Client
	config *VaultConfig
}

// NewVaultClient creates a new Vault client
func NewVaultClient(cfg *VaultConfig) (*VaultClient, error) {
	if !cfg.Enabled {
		return nil, nil // Vault is disabled
	}

	vaultCfg := vault.DefaultConfig()
	vaultCfg.Address = cfg.Address

	client, err := vault.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	token, err := cfg.GetVaultToken()
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	return &VaultClient{
		client: client,
		config: cfg,
	}, nil
}

// GetSecret retrieves a secret from the KVv2 mount
func (vc *VaultClient) GetSecret(ctx context.Context, path string) (map[string]interface{}, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client is not initialized")
	}

	mount := vc.config.Mount
	if mount == "" {
		mount = "secret"
	}

	secret, err := vc.client.KVv2(mount).Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from vault: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found: %s", path)
	}

	return secret.Data, nil
}

// ApplyVaultSecrets applies secrets from Vault to configuration
func ApplyVaultSecrets(ctx context.Context, cfg *Config, vaultClient *VaultClient) error {
	if vaultClient == nil {
		return nil // Vault is disabled
	}

	overlays := []struct {
		name   string
		path   string
		fields map[string]*string
	}{
		{
			name:   "platform",
			path:   cfg.Platform.VaultPath,
			fields: map[string]*string{"service_key": &cfg.Platform.ServiceKey},
		},
		{
			name: "minio",
			path: cfg.MinIO.VaultPath,
			fields: map[string]*string{
				"access_key_id":     &cfg.MinIO.AccessKeyID,
				"secret_access_key": &cfg.MinIO.SecretAccessKey,
			},
		},
		{
			name: "s3",
			path: cfg.S3.VaultPath,
			fields: map[string]*string{
				"access_key_id":     &cfg.S3.AccessKeyID,
				"secret_access_key": &cfg.S3.SecretAccessKey,
			},
		},
		{
			name: "tarantool",
			path: cfg.Tarantool.VaultPath,
			fields: map[string]*string{
				"user":     &cfg.Tarantool.User,
				"password": &cfg.Tarantool.Password,
			},
		},
		{
			name:   "sql",
			path:   cfg.SQL.VaultPath,
			fields: map[string]*string{"dsn": &cfg.SQL.DSN},
		},
	}

	for _, o := range overlays {
		if o.path == "" {
			continue
		}

		secret, err := vaultClient.GetSecret(ctx, o.path)
		if err != nil {
			return fmt.Errorf("failed to get %s secrets: %w", o.name, err)
		}

		for key, dst := range o.fields {
			if v, ok := secret[key].(string); ok {
				*dst = v
			}
		}
	}

	return nil
}
