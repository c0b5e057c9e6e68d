package memory

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/repository"
)

var (
	_ repository.StorageRepository    = (*Storage)(nil)
	_ repository.RecordRepository     = (*Records)(nil)
	_ repository.GenerationRepository = (*Generations)(nil)
)

func TestStorage_RoundTrip(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	data := []byte("png-bytes")

	if err := s.Upload(ctx, "images", "x.png", data, repository.UploadOptions{ContentType: "image/png"}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	data[0] = 'X'

	got, err := s.Download(ctx, "images", "x.png")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !bytes.Equal(got, []byte("png-bytes")) {
		t.Errorf("stored object changed with caller buffer: %q", got)
	}
	if s.ContentType("images", "x.png") != "image/png" {
		t.Errorf("unexpected content type: %s", s.ContentType("images", "x.png"))
	}
}

func TestStorage_Missing(t *testing.T) {
	s := NewStorage()

	if _, err := s.Download(context.Background(), "images", "nope"); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.CreateSignedURL(context.Background(), "images", "nope", time.Hour); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStorage_SignedURL(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	_ = s.Upload(ctx, "images", "cats/x.png", []byte("x"), repository.UploadOptions{})

	u, err := s.CreateSignedURL(ctx, "images", "cats/x.png", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.Contains(u, "images/cats/x.png") || !strings.Contains(u, "token=") {
		t.Errorf("unexpected signed url: %s", u)
	}
}

func TestStorage_ObjectURL(t *testing.T) {
	s := NewStorage()
	u := s.ObjectURL("assets", "models/t-1/model.glb")

	bucket, path, err := s.ParseObjectURL(u)
	if err != nil || bucket != "assets" || path != "models/t-1/model.glb" {
		t.Errorf("round trip failed: %s %s %v", bucket, path, err)
	}
}

func TestRecords_Concurrent(t *testing.T) {
	r := NewRecords("")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.InsertRecord(context.Background(), &entity.ImageRecord{TaskID: "t"})
		}()
	}
	wg.Wait()

	if len(r.Rows()) != 20 {
		t.Errorf("expected 20 rows, got %d", len(r.Rows()))
	}
	if r.Table() != "images" {
		t.Errorf("unexpected table: %s", r.Table())
	}
}

func TestGenerations_CreateUpdate(t *testing.T) {
	g := NewGenerations(entity.DefaultGenerationTables())
	ctx := context.Background()
	source := "ci-1"

	row, err := g.CreateGeneration(ctx, entity.KindModel, &entity.GenerationRecord{
		TaskID:               "t-1",
		Prompt:               "a chair",
		SourceConceptImageID: &source,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if row.String("status") != string(entity.StatusPending) || row.String("source_concept_image_id") != "ci-1" {
		t.Errorf("unexpected row: %v", row)
	}

	assetURL := "memory://objects/public/models/t-1/model.glb"
	updated, err := g.UpdateGeneration(ctx, entity.KindModel, row.String("id"), &entity.GenerationUpdate{
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
	if updated.String("prompt") != "a chair" {
		t.Errorf("update dropped prompt: %v", updated)
	}
	if _, ok := updated["updated_at"].(time.Time); !ok {
		t.Errorf("expected updated_at timestamp, got %v", updated["updated_at"])
	}
}

func TestGenerations_UpdateMissing(t *testing.T) {
	g := NewGenerations(entity.DefaultGenerationTables())
	ctx := context.Background()

	row, err := g.CreateGeneration(ctx, entity.KindConceptImage, &entity.GenerationRecord{TaskID: "t-1", Prompt: "p"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// ids are scoped per table
	_, err = g.UpdateGeneration(ctx, entity.KindModel, row.String("id"), &entity.GenerationUpdate{TaskID: "t-1", Status: entity.StatusFailed})
	if !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
