package models

import "time"

// StoredArtifact describes an object written to the artifact store.
type StoredArtifact struct {
	Ref          string       `json:"ref"`
	Kind         ArtifactKind `json:"kind"`
	ManuscriptID uint         `json:"manuscript_id,omitempty"`
	OriginalName string       `json:"original_name"`
	Size         int64        `json:"size"`
	MimeType     string       `json:"mime_type"`
	FileHash     string       `json:"file_hash"`
	UploadedBy   uint         `json:"uploaded_by"`
	UploadedAt   time.Time    `json:"uploaded_at"`
}

// GetFileSizeInMB returns the size in mebibytes.
func (a *StoredArtifact) GetFileSizeInMB() float64 {
	return float64(a.Size) / (1024 * 1024)
}
