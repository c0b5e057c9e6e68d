package entity

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestParseSignedURLResponse(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind SignedURLKind
		wantURL  string
	}{
		{
			name:     "camel case field",
			body:     `{"signedURL":"/object/sign/images/x.png?token=abc"}`,
			wantKind: SignedURLCamel,
			wantURL:  "/object/sign/images/x.png?token=abc",
		},
		{
			name:     "snake case field",
			body:     `{"signed_url":"https://cdn.example.com/images/x.png?token=abc"}`,
			wantKind: SignedURLSnake,
			wantURL:  "https://cdn.example.com/images/x.png?token=abc",
		},
		{
			name:     "camel wins over snake",
			body:     `{"signedURL":"/a","signed_url":"/b"}`,
			wantKind: SignedURLCamel,
			wantURL:  "/a",
		},
		{
			name:     "empty camel falls back to snake",
			body:     `{"signedURL":"","signed_url":"/b"}`,
			wantKind: SignedURLSnake,
			wantURL:  "/b",
		},
		{
			name:     "unknown field",
			body:     `{"url":"/a"}`,
			wantKind: SignedURLUnrecognized,
		},
		{
			name:     "not json",
			body:     `signed`,
			wantKind: SignedURLUnrecognized,
		},
		{
			name:     "json array",
			body:     `[{"signedURL":"/a"}]`,
			wantKind: SignedURLUnrecognized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ParseSignedURLResponse([]byte(tt.body))
			if resp.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", resp.Kind, tt.wantKind)
			}
			if resp.URL != tt.wantURL {
				t.Errorf("url = %q, want %q", resp.URL, tt.wantURL)
			}
		})
	}
}

func TestSignedURLResponse_Resolve(t *testing.T) {
	base := "https://project.example.co/storage/v1/"

	rel := SignedURLResponse{Kind: SignedURLCamel, URL: "/object/sign/images/x.png?token=t"}
	got, err := rel.Resolve(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://project.example.co/storage/v1/object/sign/images/x.png?token=t" {
		t.Errorf("unexpected url: %s", got)
	}

	abs := SignedURLResponse{Kind: SignedURLSnake, URL: "https://cdn.example.com/x.png"}
	got, err = abs.Resolve(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://cdn.example.com/x.png" {
		t.Errorf("unexpected url: %s", got)
	}

	bad := SignedURLResponse{Kind: SignedURLUnrecognized, Raw: []byte(`{"foo":1}`)}
	_, err = bad.Resolve(base)
	if !errors.Is(err, ErrUnrecognizedSignedURL) {
		t.Errorf("expected ErrUnrecognizedSignedURL, got %v", err)
	}
}

func TestStorageError(t *testing.T) {
	cause := fmt.Errorf("failed to get object: %w", ErrNotFound)
	err := NewStorageError("download", "images", "x.png", cause)

	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %T", err)
	}
	if se.Op != "download" || se.Bucket != "images" || se.Path != "x.png" {
		t.Errorf("unexpected fields: %+v", se)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected ErrNotFound to be reachable through StorageError")
	}
	if !strings.Contains(err.Error(), "images/x.png") {
		t.Errorf("unexpected message: %s", err.Error())
	}

	again := NewStorageError("sign", "other", "y.png", err)
	if again != err {
		t.Error("expected an existing StorageError to be returned unchanged")
	}
}

func TestDBError(t *testing.T) {
	err := NewDBError("insert", "images", ErrEmptyResponse)

	var de *DBError
	if !errors.As(err, &de) {
		t.Fatalf("expected DBError, got %T", err)
	}
	if de.Table != "images" {
		t.Errorf("unexpected table: %s", de.Table)
	}
	if !errors.Is(err, ErrEmptyResponse) {
		t.Error("expected ErrEmptyResponse to be reachable through DBError")
	}
	if NewDBError("insert", "images", err) != err {
		t.Error("expected an existing DBError to be returned unchanged")
	}
}

func TestImageRecord_Values(t *testing.T) {
	rec := &ImageRecord{TaskID: "t-1", ImageURL: "https://bff/t-1", BucketName: "images"}
	values := rec.Values()

	if values["prompt"] != nil || values["style"] != nil {
		t.Errorf("expected nil optional fields, got %v / %v", values["prompt"], values["style"])
	}

	rec.Prompt = StringPtr("a cat")
	if rec.Values()["prompt"] != "a cat" {
		t.Errorf("expected prompt value, got %v", rec.Values()["prompt"])
	}
}

func TestInsertedRecord(t *testing.T) {
	row := InsertedRecord{"task_id": "t-1", "prompt": nil}

	if row.String("task_id") != "t-1" {
		t.Errorf("unexpected task_id: %q", row.String("task_id"))
	}
	if !row.IsNull("prompt") || !row.IsNull("style") {
		t.Error("expected prompt and style to be null")
	}
	if row.IsNull("task_id") {
		t.Error("expected task_id to be set")
	}
}

func TestAssetUpload_ObjectPath(t *testing.T) {
	a := &AssetUpload{TaskID: "t-1", Kind: "concepts", FileName: "0.png"}
	if got := a.ObjectPath(); got != "concepts/t-1/0.png" {
		t.Errorf("unexpected path: %s", got)
	}
}

func TestSplitObjectURL(t *testing.T) {
	prefix := "https://project.example.co/storage/v1/object/public"

	tests := []struct {
		name       string
		url        string
		wantBucket string
		wantPath   string
		wantErr    bool
	}{
		{
			name:       "nested path",
			url:        prefix + "/assets/concepts/t-1/0.png",
			wantBucket: "assets",
			wantPath:   "concepts/t-1/0.png",
		},
		{
			name:       "query string dropped",
			url:        prefix + "/assets/x.png?download=1",
			wantBucket: "assets",
			wantPath:   "x.png",
		},
		{
			name:       "percent-encoded segments decoded",
			url:        prefix + "/assets/concepts/t-1/a%20b%23c.png",
			wantBucket: "assets",
			wantPath:   "concepts/t-1/a b#c.png",
		},
		{name: "bad escape", url: prefix + "/assets/a%zz.png", wantErr: true},
		{name: "foreign host", url: "https://evil.example.com/assets/x.png", wantErr: true},
		{name: "bucket only", url: prefix + "/assets", wantErr: true},
		{name: "bucket with slash", url: prefix + "/assets/", wantErr: true},
		{name: "nothing after prefix", url: prefix + "/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, path, err := SplitObjectURL(tt.url, prefix)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidObjectURL) {
					t.Fatalf("expected ErrInvalidObjectURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bucket != tt.wantBucket || path != tt.wantPath {
				t.Errorf("got %s/%s, want %s/%s", bucket, path, tt.wantBucket, tt.wantPath)
			}
		})
	}
}

func TestJoinObjectURL(t *testing.T) {
	got := JoinObjectURL("http://localhost:9000/", "images", "/a/b.png")
	if got != "http://localhost:9000/images/a/b.png" {
		t.Errorf("unexpected url: %s", got)
	}

	bucket, path, err := SplitObjectURL(got, "http://localhost:9000")
	if err != nil || bucket != "images" || path != "a/b.png" {
		t.Errorf("round trip failed: %s %s %v", bucket, path, err)
	}
}

func TestJoinObjectURL_Escapes(t *testing.T) {
	got := JoinObjectURL("https://p.example.co/storage/v1/object/public", "assets", "concepts/t 1/a b?.png")
	want := "https://p.example.co/storage/v1/object/public/assets/concepts/t%201/a%20b%3F.png"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	bucket, path, err := SplitObjectURL(got, "https://p.example.co/storage/v1/object/public")
	if err != nil || bucket != "assets" || path != "concepts/t 1/a b?.png" {
		t.Errorf("round trip failed: %s %q %v", bucket, path, err)
	}
}

func TestGenerationRecord_Values(t *testing.T) {
	source := "ci-1"
	r := &GenerationRecord{TaskID: "t-1", Prompt: "p", SourceConceptImageID: &source}

	concept := r.Values(KindConceptImage)
	if concept["status"] != "pending" {
		t.Errorf("expected pending default, got %v", concept["status"])
	}
	if _, ok := concept["source_concept_image_id"]; ok {
		t.Error("concept image values must not carry source_concept_image_id")
	}
	if _, ok := concept["user_id"]; ok {
		t.Error("nil user_id must be omitted")
	}

	model := r.Values(KindModel)
	if model["source_concept_image_id"] != "ci-1" {
		t.Errorf("expected source_concept_image_id on model, got %v", model["source_concept_image_id"])
	}
}

func TestGenerationUpdate_Values(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	u := &GenerationUpdate{TaskID: "t-1", Status: StatusComplete}

	v := u.Values(KindModel, now)
	if v["status"] != "complete" || v["task_id"] != "t-1" {
		t.Errorf("unexpected values: %v", v)
	}
	ts, ok := v["updated_at"].(time.Time)
	if !ok || !ts.Equal(now) || ts.Location() != time.UTC {
		t.Errorf("expected updated_at in UTC, got %v", v["updated_at"])
	}
	if _, ok := v["asset_url"]; ok {
		t.Error("nil asset_url must be omitted")
	}
}

func TestGenerationTables_Table(t *testing.T) {
	tables := GenerationTables{Models: "gen_models"}

	tests := []struct {
		kind    GenerationKind
		want    string
		wantErr bool
	}{
		{kind: KindConceptImage, want: "concept_images"},
		{kind: KindModel, want: "gen_models"},
		{kind: "texture", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, err := tables.Table(tt.kind)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerationStatus_Valid(t *testing.T) {
	for _, s := range []GenerationStatus{StatusPending, StatusProcessing, StatusComplete, StatusFailed} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []GenerationStatus{"", "done"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}
