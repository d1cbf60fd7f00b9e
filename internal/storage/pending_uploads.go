package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"loan-workbench/internal/models"
)

// PendingUploads tracks document uploads that have been started but not yet
// confirmed, so an interrupted upload can be listed and retried.
type PendingUploads struct {
	kv  KV
	mu  sync.Mutex
	now func() time.Time
}

func NewPendingUploads(kv KV) *PendingUploads {
	return &PendingUploads{kv: kv, now: time.Now}
}

// Add records an upload of file into slot for applicationID.
func (p *PendingUploads) Add(ctx context.Context, applicationID string, slot models.FileSlot, file *models.AttachedFile) (models.PendingUpload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	list, err := p.read(ctx)
	if err != nil {
		return models.PendingUpload{}, err
	}

	now := p.now()
	rec := models.PendingUpload{
		ID:            uuid.NewString(),
		ApplicationID: applicationID,
		Field:         string(slot),
		CreatedAt:     now.UnixMilli(),
		Status:        models.UploadPending,
		UpdatedAt:     now.UTC(),
	}
	if file != nil {
		rec.FileName = file.Name
		rec.FileSize = file.Size()
		rec.MimeType = file.ContentType
	}

	list = append(list, rec)
	return rec, p.write(ctx, list)
}

// Remove drops the record with id. Removing an unknown id is not an error.
func (p *PendingUploads) Remove(ctx context.Context, ids ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	list, err := p.read(ctx)
	if err != nil {
		return err
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := list[:0]
	for _, rec := range list {
		if !drop[rec.ID] {
			kept = append(kept, rec)
		}
	}
	return p.write(ctx, kept)
}

// MarkFailed sets status failed and keeps the error text for display.
func (p *PendingUploads) MarkFailed(ctx context.Context, id string, cause error) error {
	return p.update(ctx, id, func(rec *models.PendingUpload) {
		rec.Status = models.UploadFailed
		if cause != nil {
			rec.LastError = cause.Error()
		}
	})
}

func (p *PendingUploads) MarkUploading(ctx context.Context, id string) error {
	return p.update(ctx, id, func(rec *models.PendingUpload) {
		rec.Status = models.UploadUploading
		rec.LastError = ""
	})
}

func (p *PendingUploads) update(ctx context.Context, id string, fn func(*models.PendingUpload)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	list, err := p.read(ctx)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == id {
			fn(&list[i])
			list[i].UpdatedAt = p.now().UTC()
			return p.write(ctx, list)
		}
	}
	return fmt.Errorf("pending upload %s not found", id)
}

// List returns every record, oldest first.
func (p *PendingUploads) List(ctx context.Context) ([]models.PendingUpload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read(ctx)
}

// ForApplication returns the records for one application.
func (p *PendingUploads) ForApplication(ctx context.Context, applicationID string) ([]models.PendingUpload, error) {
	all, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.PendingUpload
	for _, rec := range all {
		if rec.ApplicationID == applicationID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (p *PendingUploads) read(ctx context.Context) ([]models.PendingUpload, error) {
	raw, found, err := p.kv.Get(ctx, KeyPendingUploads)
	if err != nil {
		return nil, err
	}
	if !found || raw == "" {
		return []models.PendingUpload{}, nil
	}
	var list []models.PendingUpload
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		// An unreadable list is replaced on the next write.
		return []models.PendingUpload{}, nil
	}
	return list, nil
}

func (p *PendingUploads) write(ctx context.Context, list []models.PendingUpload) error {
	if len(list) == 0 {
		return p.kv.Delete(ctx, KeyPendingUploads)
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode pending uploads: %w", err)
	}
	return p.kv.Set(ctx, KeyPendingUploads, string(raw))
}
