package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewVaultClient_Disabled(t *testing.T) {
	client, err := NewVaultClient(&VaultConfig{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client != nil {
		t.Error("expected nil client when vault is disabled")
	}
}

func TestNewVaultClient_NoToken(t *testing.T) {
	cfg := &VaultConfig{
		Enabled: true,
		Address: "http://localhost:8200",
	}

	if _, err := NewVaultClient(cfg); err == nil {
		t.Fatal("expected error when token is not configured")
	}
}

func TestVaultClient_GetSecret_NilClient(t *testing.T) {
	var vc *VaultClient

	_, err := vc.GetSecret(context.Background(), "secret/path")
	if err == nil {
		t.Fatal("expected error for nil client")
	}
	if err.Error() != "vault client is not initialized" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestApplyVaultSecrets_NilClient(t *testing.T) {
	cfg := validConfig()

	if err := ApplyVaultSecrets(context.Background(), cfg, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Platform.ServiceKey != "service-key" {
		t.Error("expected service key to remain unchanged")
	}
}

// newFakeVault serves KVv2 reads for the given secrets under the "secret" mount
func newFakeVault(t *testing.T, secrets map[string]string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}

		body, ok := secrets[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"errors":[]}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"data":` + body + `,"metadata":{"created_time":"2024-01-01T00:00:00Z","custom_metadata":null,"deletion_time":"","destroyed":false,"version":1}}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestApplyVaultSecrets(t *testing.T) {
	srv := newFakeVault(t, map[string]string{
		"/v1/secret/data/assetgw/platform":  `{"service_key":"vault-key"}`,
		"/v1/secret/data/assetgw/tarantool": `{"user":"vault-user","password":"vault-pass"}`,
	})

	vc, err := NewVaultClient(&VaultConfig{Enabled: true, Address: srv.URL, Token: "root"})
	if err != nil {
		t.Fatalf("failed to create vault client: %v", err)
	}

	cfg := validConfig()
	cfg.Platform.VaultPath = "assetgw/platform"
	cfg.Tarantool.VaultPath = "assetgw/tarantool"

	if err := ApplyVaultSecrets(context.Background(), cfg, vc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Platform.ServiceKey != "vault-key" {
		t.Errorf("expected service key from vault, got '%s'", cfg.Platform.ServiceKey)
	}
	if cfg.Tarantool.User != "vault-user" || cfg.Tarantool.Password != "vault-pass" {
		t.Errorf("unexpected tarantool credentials: %s/%s", cfg.Tarantool.User, cfg.Tarantool.Password)
	}
	if cfg.MinIO.AccessKeyID != "minioadmin" {
		t.Error("expected minio credentials to remain unchanged without a vault path")
	}
}

func TestApplyVaultSecrets_MissingSecret(t *testing.T) {
	srv := newFakeVault(t, nil)

	vc, err := NewVaultClient(&VaultConfig{Enabled: true, Address: srv.URL, Token: "root"})
	if err != nil {
		t.Fatalf("failed to create vault client: %v", err)
	}

	cfg := validConfig()
	cfg.SQL.VaultPath = "assetgw/sql"

	if err := ApplyVaultSecrets(context.Background(), cfg, vc); err == nil {
		t.Fatal("expected error for missing secret")
	}
}
