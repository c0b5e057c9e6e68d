package entity

// ImageRecord describes a generated image and where it is stored.
// Prompt and Style are optional and stored as NULL when nil.
type ImageRecord struct {
	TaskID     string  `json:"task_id"`
	ImageURL   string  `json:"image_url"`
	BucketName string  `json:"bucket_name"`
	Prompt     *string `json:"prompt"`
	Style      *string `json:"style"`
}

// InsertedRecord is a row as returned by the table backend
type InsertedRecord map[string]interface{}

// String returns the string value of a column or "" when absent or NULL
func (r InsertedRecord) String(column string) string {
	if s, ok := r[column].(string); ok {
		return s
	}
	return ""
}

// IsNull reports whether a column is absent or NULL
func (r InsertedRecord) IsNull(column string) bool {
	v, ok := r[column]
	return !ok || v == nil
}

// Values returns the record as column/value pairs
func (r *ImageRecord) Values() map[string]interface{} {
	return map[string]interface{}{
		"task_id":     r.TaskID,
		"image_url":   r.ImageURL,
		"bucket_name": r.BucketName,
		"prompt":      optional(r.Prompt),
		"style":       optional(r.Style),
	}
}

func optional(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// StringPtr is a helper for the optional record fields
func StringPtr(s string) *string {
	return &s
}
