package entity

import (
	"fmt"
	"time"
)

// GenerationKind selects the table a generation record lives in
type GenerationKind string

const (
	KindConceptImage GenerationKind = "concept_image"
	KindModel        GenerationKind = "model"
)

// GenerationStatus is the processing state of a concept image or model
type GenerationStatus string

const (
	StatusPending    GenerationStatus = "pending"
	StatusProcessing GenerationStatus = "processing"
	StatusComplete   GenerationStatus = "complete"
	StatusFailed     GenerationStatus = "failed"
)

// Valid reports whether s is one of the known statuses
func (s GenerationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusComplete, StatusFailed:
		return true
	}
	return false
}

// GenerationTables names the concept image and model tables
type GenerationTables struct {
	ConceptImages string
	Models        string
}

// DefaultGenerationTables returns the table names used when none are configured
func DefaultGenerationTables() GenerationTables {
	return GenerationTables{ConceptImages: "concept_images", Models: "models"}
}

// Table returns the table for kind, falling back to the default names
func (t GenerationTables) Table(kind GenerationKind) (string, error) {
	def := DefaultGenerationTables()
	switch kind {
	case KindConceptImage:
		if t.ConceptImages != "" {
			return t.ConceptImages, nil
		}
		return def.ConceptImages, nil
	case KindModel:
		if t.Models != "" {
			return t.Models, nil
		}
		return def.Models, nil
	}
	return "", fmt.Errorf("unknown generation kind: %q", kind)
}

// GenerationRecord is a new concept image or model row.
// Nil optional fields are left out of the insert.
type GenerationRecord struct {
	TaskID               string
	Prompt               string
	Status               GenerationStatus
	UserID               *string
	Style                *string
	AIServiceTaskID      *string
	SourceInputAssetID   *string
	SourceConceptImageID *string // models only
	Metadata             map[string]interface{}
}

// Values returns the columns to insert for kind
func (r *GenerationRecord) Values(kind GenerationKind) map[string]interface{} {
	status := r.Status
	if status == "" {
		status = StatusPending
	}

	values := map[string]interface{}{
		"task_id": r.TaskID,
		"prompt":  r.Prompt,
		"status":  string(status),
	}
	setOptional(values, "user_id", r.UserID)
	setOptional(values, "style", r.Style)
	setOptional(values, "ai_service_task_id", r.AIServiceTaskID)
	setOptional(values, "source_input_asset_id", r.SourceInputAssetID)
	if kind == KindModel {
		setOptional(values, "source_concept_image_id", r.SourceConceptImageID)
	}
	if r.Metadata != nil {
		values["metadata"] = r.Metadata
	}
	return values
}

// GenerationUpdate sets a new status on an existing row plus any non-nil field
type GenerationUpdate struct {
	TaskID               string
	Status               GenerationStatus
	AssetURL             *string
	AIServiceTaskID      *string
	Prompt               *string
	Style                *string
	SourceInputAssetID   *string
	SourceConceptImageID *string // models only
	Metadata             map[string]interface{}
}

// Values returns the columns to update for kind, stamping updated_at with now
func (u *GenerationUpdate) Values(kind GenerationKind, now time.Time) map[string]interface{} {
	values := map[string]interface{}{
		"task_id":    u.TaskID,
		"status":     string(u.Status),
		"updated_at": now.UTC(),
	}
	setOptional(values, "asset_url", u.AssetURL)
	setOptional(values, "ai_service_task_id", u.AIServiceTaskID)
	setOptional(values, "prompt", u.Prompt)
	setOptional(values, "style", u.Style)
	setOptional(values, "source_input_asset_id", u.SourceInputAssetID)
	if kind == KindModel {
		setOptional(values, "source_concept_image_id", u.SourceConceptImageID)
	}
	if u.Metadata != nil {
		values["metadata"] = u.Metadata
	}
	return values
}

func setOptional(values map[string]interface{}, column string, v *string) {
	if v != nil {
		values[column] = *v
	}
}
