package entity

import "path"

// AssetUpload is a generated asset stored under <kind>/<task_id>/<file_name>
type AssetUpload struct {
	TaskID      string
	Kind        string // e.g. concepts, models
	FileName    string
	Data        []byte
	ContentType string
}

// ObjectPath returns the path of the asset inside its bucket
func (a *AssetUpload) ObjectPath() string {
	return path.Join(a.Kind, a.TaskID, a.FileName)
}
