package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/repository"
)

var _ repository.GenerationRepository = (*GenerationRepository)(nil)

func TestGenerationRepository_CreateUpdate(t *testing.T) {
	source := "ci-3"
	tests := []struct {
		name       string
		kind       entity.GenerationKind
		table      string
		wantSource bool
	}{
		{name: "concept image", kind: entity.KindConceptImage, table: "concept_images", wantSource: false},
		{name: "model", kind: entity.KindModel, table: "models", wantSource: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform := newFakePlatform()
			repo := NewGenerationRepository(newTestClient(t, platform), entity.DefaultGenerationTables())
			ctx := context.Background()

			row, err := repo.CreateGeneration(ctx, tt.kind, &entity.GenerationRecord{
				TaskID:               "t-1",
				Prompt:               "a lamp",
				SourceConceptImageID: &source,
				Metadata:             map[string]interface{}{"steps": float64(30)},
			})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if row.String("status") != "pending" || row.String("prompt") != "a lamp" {
				t.Errorf("unexpected row: %v", row)
			}
			if platform.rows[0]["_table"] != tt.table {
				t.Errorf("row went to %v, want %s", platform.rows[0]["_table"], tt.table)
			}
			if _, ok := platform.rows[0]["source_concept_image_id"]; ok != tt.wantSource {
				t.Errorf("source_concept_image_id sent = %v, want %v", ok, tt.wantSource)
			}
			if _, ok := platform.rows[0]["user_id"]; ok {
				t.Error("nil user_id should not be sent")
			}

			assetURL := "https://x.supabase.co/storage/v1/object/public/assets/t-1/out.png"
			updated, err := repo.UpdateGeneration(ctx, tt.kind, fmt.Sprint(row["id"]), &entity.GenerationUpdate{
				TaskID:   "t-1",
				Status:   entity.StatusComplete,
				AssetURL: &assetURL,
			})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if updated.String("status") != "complete" || updated.String("asset_url") != assetURL {
				t.Errorf("unexpected updated row: %v", updated)
			}
			if updated.String("updated_at") == "" {
				t.Errorf("expected updated_at to be sent, got %v", updated["updated_at"])
			}
		})
	}
}

func TestGenerationRepository_UpdateMissing(t *testing.T) {
	platform := newFakePlatform()
	repo := NewGenerationRepository(newTestClient(t, platform), entity.DefaultGenerationTables())

	_, err := repo.UpdateGeneration(context.Background(), entity.KindModel, "404", &entity.GenerationUpdate{
		TaskID: "t-1",
		Status: entity.StatusFailed,
	})
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGenerationRepository_Errors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(p *fakePlatform)
		kind     entity.GenerationKind
		record   *entity.GenerationRecord
		checkErr func(t *testing.T, err error)
	}{
		{
			name:   "nil record",
			kind:   entity.KindConceptImage,
			record: nil,
			checkErr: func(t *testing.T, err error) {
				if err == nil {
					t.Fatal("expected error")
				}
			},
		},
		{
			name:   "unknown kind",
			kind:   "texture",
			record: &entity.GenerationRecord{TaskID: "t-1", Prompt: "p"},
			checkErr: func(t *testing.T, err error) {
				if err == nil {
					t.Fatal("expected error")
				}
			},
		},
		{
			name:   "empty response",
			setup:  func(p *fakePlatform) { p.emptyRows = true },
			kind:   entity.KindModel,
			record: &entity.GenerationRecord{TaskID: "t-1", Prompt: "p"},
			checkErr: func(t *testing.T, err error) {
				if !errors.Is(err, entity.ErrEmptyResponse) {
					t.Fatalf("expected ErrEmptyResponse, got %v", err)
				}
			},
		},
		{
			name:   "api error",
			setup:  func(p *fakePlatform) { p.failWith = http.StatusBadRequest },
			kind:   entity.KindModel,
			record: &entity.GenerationRecord{TaskID: "t-1", Prompt: "p"},
			checkErr: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("expected APIError, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform := newFakePlatform()
			if tt.setup != nil {
				tt.setup(platform)
			}
			repo := NewGenerationRepository(newTestClient(t, platform), entity.DefaultGenerationTables())
			_, err := repo.CreateGeneration(context.Background(), tt.kind, tt.record)
			tt.checkErr(t, err)
		})
	}
}
