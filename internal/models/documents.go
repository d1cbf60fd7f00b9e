package models

import "time"

// DocumentURLSet maps each slot to its current signed URL. A missing key or
// empty value means no document. Never persisted locally.
type DocumentURLSet map[FileSlot]string

// Merge overlays fresh URLs onto s, ignoring empty values.
func (s DocumentURLSet) Merge(fresh DocumentURLSet) DocumentURLSet {
	out := make(DocumentURLSet, len(s)+len(fresh))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range fresh {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Slots returns the slots that currently have a URL, in display order.
func (s DocumentURLSet) Slots() []FileSlot {
	out := make([]FileSlot, 0, len(s))
	for _, slot := range AllSlots {
		if s[slot] != "" {
			out = append(out, slot)
		}
	}
	return out
}

// PendingUpload is an idempotency record kept until a document upload is
// confirmed by the backend.
type PendingUpload struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	Field         string    `json:"field,omitempty"`
	FileName      string    `json:"fileName,omitempty"`
	FileSize      int64     `json:"fileSize,omitempty"`
	MimeType      string    `json:"mimeType,omitempty"`
	CreatedAt     int64     `json:"createdAt"`
	Status        string    `json:"status,omitempty"`
	LastError     string    `json:"lastError,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

const (
	UploadPending   = "pending"
	UploadUploading = "uploading"
	UploadCompleted = "completed"
	UploadFailed    = "failed"
)
