// Package app builds a Gateway from configuration.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/config"
	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/repository"
	"github.com/moroshma/MiniToolStream/AssetGateway/internal/repository/memory"
	minioRepo "github.com/moroshma/MiniToolStream/AssetGateway/internal/repository/minio"
	s3Repo "github.com/moroshma/MiniToolStream/AssetGateway/internal/repository/s3"
	"github.com/moroshma/MiniToolStream/AssetGateway/internal/repository/sqlstore"
	"github.com/moroshma/MiniToolStream/AssetGateway/internal/repository/supabase"
	tarantoolRepo "github.com/moroshma/MiniToolStream/AssetGateway/internal/repository/tarantool"
	"github.com/moroshma/MiniToolStream/AssetGateway/internal/usecase"
	"github.com/moroshma/MiniToolStream/AssetGateway/pkg/logger"
)

type builder struct {
	cfg         *config.Config
	log         *logger.Logger
	platform    *supabase.Client
	generations repository.GenerationRepository
	closers     []io.Closer
}

// NewGateway applies Vault secrets, connects the configured backends and returns
// the gateway owning them. The caller must Close it.
func NewGateway(ctx context.Context, cfg *config.Config, log *logger.Logger) (*usecase.Gateway, error) {
	if log == nil {
		log = logger.NewNop()
	}

	vaultClient, err := config.NewVaultClient(&cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if vaultClient != nil {
		log.Info("Loading secrets from Vault", logger.String("address", cfg.Vault.Address))
		if err := config.ApplyVaultSecrets(ctx, cfg, vaultClient); err != nil {
			return nil, err
		}
	}

	b := &builder{cfg: cfg, log: log}

	storageRepo, err := b.storage(ctx)
	if err != nil {
		b.closeAll()
		return nil, err
	}

	recordRepo, err := b.records(ctx)
	if err != nil {
		b.closeAll()
		return nil, err
	}

	log.Info("Gateway ready",
		logger.String("storage_backend", cfg.Storage.Backend),
		logger.String("records_backend", cfg.Records.Backend),
		logger.String("table", recordRepo.Table()),
	)

	if b.generations == nil {
		log.Warn("Records backend keeps no generation tables",
			logger.String("records_backend", cfg.Records.Backend),
		)
	}

	return usecase.NewGateway(storageRepo, recordRepo, b.generations, log, usecase.Options{
		AssetsBucket:     cfg.Storage.AssetsBucket,
		SignedURLTTL:     cfg.Storage.SignedURLExpiry,
		GenerationTables: cfg.Records.GenerationTables(),
	}, b.closers...), nil
}

func (b *builder) platformClient() (*supabase.Client, error) {
	if b.platform != nil {
		return b.platform, nil
	}

	client, err := supabase.NewClient(&supabase.Config{
		URL:        b.cfg.Platform.URL,
		ServiceKey: b.cfg.Platform.ServiceKey,
		Timeout:    b.cfg.Platform.Timeout,
	}, b.log)
	if err != nil {
		return nil, err
	}

	b.platform = client
	return client, nil
}

func (b *builder) storage(ctx context.Context) (repository.StorageRepository, error) {
	switch b.cfg.Storage.Backend {
	case config.BackendSupabase:
		client, err := b.platformClient()
		if err != nil {
			return nil, err
		}
		return supabase.NewStorageRepository(client), nil

	case config.BackendMinIO:
		b.log.Info("Connecting to MinIO", logger.String("endpoint", b.cfg.MinIO.Endpoint))
		repo, err := minioRepo.NewRepository(&minioRepo.Config{
			Endpoint:        b.cfg.MinIO.Endpoint,
			AccessKeyID:     b.cfg.MinIO.AccessKeyID,
			SecretAccessKey: b.cfg.MinIO.SecretAccessKey,
			UseSSL:          b.cfg.MinIO.UseSSL,
			Region:          b.cfg.MinIO.Region,
			CreateBuckets:   b.cfg.MinIO.CreateBuckets,
		}, b.log)
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		return repo, nil

	case config.BackendS3:
		b.log.Info("Connecting to S3", logger.String("region", b.cfg.S3.Region))
		store, err := s3Repo.NewStorage(ctx, s3Repo.Config{
			Region:          b.cfg.S3.Region,
			Endpoint:        b.cfg.S3.Endpoint,
			AccessKeyID:     b.cfg.S3.AccessKeyID,
			SecretAccessKey: b.cfg.S3.SecretAccessKey,
			UsePathStyle:    b.cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 client: %w", err)
		}
		return store, nil

	case config.BackendMemory:
		return memory.NewStorage(), nil
	}

	return nil, fmt.Errorf("unknown storage backend: %q", b.cfg.Storage.Backend)
}

// records connects the record backend and, where it supports them, sets b.generations
func (b *builder) records(ctx context.Context) (repository.RecordRepository, error) {
	table := b.cfg.Records.Table
	tables := b.cfg.Records.GenerationTables()

	switch b.cfg.Records.Backend {
	case config.BackendSupabase:
		client, err := b.platformClient()
		if err != nil {
			return nil, err
		}
		b.generations = supabase.NewGenerationRepository(client, tables)
		return supabase.NewRecordRepository(client, table), nil

	case config.BackendTarantool:
		b.log.Info("Connecting to Tarantool", logger.String("address", b.cfg.Tarantool.Address))
		repo, err := tarantoolRepo.NewRepository(&tarantoolRepo.Config{
			Address:  b.cfg.Tarantool.Address,
			User:     b.cfg.Tarantool.User,
			Password: b.cfg.Tarantool.Password,
			Timeout:  b.cfg.Tarantool.Timeout,
			Space:    b.cfg.Tarantool.Space,
		}, b.log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to tarantool: %w", err)
		}
		b.closers = append(b.closers, repo)

		if err := repo.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping tarantool: %w", err)
		}
		if b.cfg.Tarantool.CreateSpace {
			if err := repo.EnsureSpace(ctx); err != nil {
				return nil, err
			}
		}
		return repo, nil

	case config.BackendSQL:
		b.log.Info("Opening SQL store", logger.String("driver", b.cfg.SQL.Driver))
		store, err := sqlstore.Open(ctx, sqlstore.Driver(b.cfg.SQL.Driver), b.cfg.SQL.DSN, table)
		if err != nil {
			return nil, fmt.Errorf("failed to open sql store: %w", err)
		}
		b.closers = append(b.closers, store)

		if err := store.EnsureGenerationTables(ctx, tables); err != nil {
			return nil, err
		}
		b.generations = store
		return store, nil

	case config.BackendMemory:
		b.generations = memory.NewGenerations(tables)
		return memory.NewRecords(table), nil
	}

	return nil, fmt.Errorf("unknown records backend: %q", b.cfg.Records.Backend)
}

func (b *builder) closeAll() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			b.log.Warn("Failed to close backend", logger.Error(err))
		}
	}
	b.closers = nil
}
