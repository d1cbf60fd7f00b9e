// Package documents uploads application documents and keeps their signed
// preview URLs fresh.
package documents

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"loan-workbench/internal/common/config"
	"loan-workbench/internal/common/errors"
	"loan-workbench/internal/common/logger"
	"loan-workbench/internal/common/metrics"
	"loan-workbench/internal/models"
	"loan-workbench/internal/storage"
)

// PlaceholderURL is shown for a document whose preview could not be loaded
// even after a refresh.
const PlaceholderURL = `data:image/svg+xml,<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2"><circle cx="12" cy="8" r="4"/><path d="M20 21a8 8 0 1 0-16 0"/></svg>`

// Refresh reasons recorded in metrics.
const (
	ReasonExpiring    = "expiring"
	ReasonLoadFailure = "load_failure"
	ReasonManual      = "manual"
)

// Backend is the subset of the loan service the document client uses.
type Backend interface {
	UploadDocuments(ctx context.Context, applicationID string, files models.Files) error
	Documents(ctx context.Context, applicationID string) (models.DocumentURLSet, error)
	RefreshDocumentURLs(ctx context.Context, applicationID string, slots ...models.FileSlot) (models.DocumentURLSet, error)
	DeleteDocumentFile(ctx context.Context, applicationID string, slot models.FileSlot) error
}

type slotKey struct {
	applicationID string
	slot          models.FileSlot
}

// Service caches URL sets per application and owns the one-retry rule for
// failed previews.
type Service struct {
	backend Backend
	pending *storage.PendingUploads
	config  *Config
	logger  logger.Logger
	cache   *expirable.LRU[string, models.DocumentURLSet]
	now     func() time.Time

	mu       sync.Mutex
	failures map[slotKey]int
}

// New builds the service. pending may be nil, in which case uploads are not
// tracked.
func New(backend Backend, pending *storage.PendingUploads, cfg *Config, log logger.Logger) *Service {
	if cfg == nil {
		cfg = LoadConfig(config.DocumentsConfig{})
	}
	return &Service{
		backend:  backend,
		pending:  pending,
		config:   cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "documents"}),
		cache:    expirable.NewLRU[string, models.DocumentURLSet](cfg.CacheSize, nil, cfg.CacheTTL),
		now:      time.Now,
		failures: make(map[slotKey]int),
	}
}

// ==========================================
// URLs
// ==========================================

// URLs returns the document set for an application, from cache when every
// cached URL is still comfortably valid.
func (s *Service) URLs(ctx context.Context, applicationID string) (models.DocumentURLSet, error) {
	if set, ok := s.cache.Get(applicationID); ok {
		if len(expiringSlots(set, s.now(), s.config.ExpiryMargin)) == 0 {
			return set.Merge(nil), nil
		}
	}

	set, err := s.backend.Documents(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	s.cache.Add(applicationID, set)
	return set.Merge(nil), nil
}

// RefreshURLs re-signs the given slots (all when none are given) and merges
// the result into the cached set.
func (s *Service) RefreshURLs(ctx context.Context, applicationID string, slots ...models.FileSlot) (models.DocumentURLSet, error) {
	return s.refresh(ctx, applicationID, ReasonManual, slots...)
}

func (s *Service) refresh(ctx context.Context, applicationID, reason string, slots ...models.FileSlot) (models.DocumentURLSet, error) {
	fresh, err := s.backend.RefreshDocumentURLs(ctx, applicationID, slots...)
	if err != nil {
		s.logger.Warn("Document URL refresh failed", map[string]interface{}{
			"applicationId": applicationID,
			"reason":        reason,
			"error":         err.Error(),
		})
		return nil, err
	}
	metrics.DocumentRefreshes.WithLabelValues(reason).Inc()

	current, _ := s.cache.Get(applicationID)
	merged := current.Merge(fresh)
	s.cache.Add(applicationID, merged)
	return merged.Merge(nil), nil
}

// Invalidate forgets the cached set for an application.
func (s *Service) Invalidate(applicationID string) {
	s.cache.Remove(applicationID)

	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.failures {
		if k.applicationID == applicationID {
			delete(s.failures, k)
		}
	}
}

// CheckExpiring refreshes the slots of the cached set that are about to
// expire. It reports whether a refresh happened.
func (s *Service) CheckExpiring(ctx context.Context, applicationID string) (models.DocumentURLSet, bool, error) {
	set, ok := s.cache.Get(applicationID)
	if !ok {
		return nil, false, nil
	}
	slots := expiringSlots(set, s.now(), s.config.ExpiryMargin)
	if len(slots) == 0 {
		return set.Merge(nil), false, nil
	}
	fresh, err := s.refresh(ctx, applicationID, ReasonExpiring, slots...)
	if err != nil {
		return nil, false, err
	}
	return fresh, true, nil
}

// Watch checks the application's URLs on every tick until ctx is done and
// calls onUpdate after each refresh. The watcher keeps the last set it saw,
// so an evicted cache entry does not stop the checks.
func (s *Service) Watch(ctx context.Context, applicationID string, onUpdate func(models.DocumentURLSet)) {
	last, _ := s.cache.Get(applicationID)
	go func() {
		ticker := time.NewTicker(s.config.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				set, refreshed, err := s.watchTick(ctx, applicationID, last)
				if err != nil || ctx.Err() != nil {
					continue
				}
				if set != nil {
					last = set
				}
				if refreshed && onUpdate != nil {
					onUpdate(set)
				}
			}
		}
	}()
}

// watchTick reseeds the cache from last (or the backend when nothing was
// ever seen) before running the expiry check.
func (s *Service) watchTick(ctx context.Context, applicationID string, last models.DocumentURLSet) (models.DocumentURLSet, bool, error) {
	if _, ok := s.cache.Get(applicationID); !ok {
		if last == nil {
			if _, err := s.URLs(ctx, applicationID); err != nil {
				return nil, false, err
			}
		} else {
			s.cache.Add(applicationID, last.Merge(nil))
		}
	}
	return s.CheckExpiring(ctx, applicationID)
}

// ReportLoadFailure is called when a preview fails to load. The first
// failure for a slot triggers one refresh; any further consecutive failure
// returns PlaceholderURL and DOCUMENT_URL_EXPIRED without another request.
func (s *Service) ReportLoadFailure(ctx context.Context, applicationID string, slot models.FileSlot) (string, error) {
	key := slotKey{applicationID, slot}

	s.mu.Lock()
	s.failures[key]++
	attempt := s.failures[key]
	s.mu.Unlock()

	if attempt > 1 {
		return PlaceholderURL, errors.NewDocumentURLExpiredError(string(slot))
	}

	fresh, err := s.refresh(ctx, applicationID, ReasonLoadFailure, slot)
	if err != nil || fresh[slot] == "" {
		s.mu.Lock()
		s.failures[key] = 2
		s.mu.Unlock()
		return PlaceholderURL, errors.NewDocumentURLExpiredError(string(slot))
	}
	return fresh[slot], nil
}

// ReportLoaded clears the failure count once a preview renders.
func (s *Service) ReportLoaded(applicationID string, slot models.FileSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, slotKey{applicationID, slot})
}

// ==========================================
// Uploads
// ==========================================

// Upload sends files for an application. Each file is recorded as a pending
// upload first and the record is dropped once the backend confirms.
func (s *Service) Upload(ctx context.Context, applicationID string, files models.Files) error {
	slots := files.Present()
	if len(slots) == 0 {
		return nil
	}

	ids := make([]string, 0, len(slots))
	if s.pending != nil {
		for _, slot := range slots {
			rec, err := s.pending.Add(ctx, applicationID, slot, files[slot])
			if err != nil {
				s.logger.Warn("Pending upload not recorded", map[string]interface{}{"slot": string(slot), "error": err.Error()})
				continue
			}
			ids = append(ids, rec.ID)
			_ = s.pending.MarkUploading(ctx, rec.ID)
		}
	}

	if err := s.backend.UploadDocuments(ctx, applicationID, files); err != nil {
		for _, id := range ids {
			_ = s.pending.MarkFailed(ctx, id, err)
		}
		return errors.NewUploadFailedError(applicationID, err)
	}

	if len(ids) > 0 {
		if err := s.pending.Remove(ctx, ids...); err != nil {
			s.logger.Warn("Pending uploads not cleared", map[string]interface{}{"error": err.Error()})
		}
	}
	s.Invalidate(applicationID)
	s.logger.Info("Documents uploaded", map[string]interface{}{
		"applicationId": applicationID,
		"count":         len(slots),
	})
	return nil
}

// Retry re-sends a recorded upload with the file supplied again by the user.
func (s *Service) Retry(ctx context.Context, rec models.PendingUpload, file *models.AttachedFile) error {
	slot := models.FileSlot(rec.Field)
	if !slot.Valid() {
		return errors.NewValidationFailedError([]string{"unknown file slot " + rec.Field})
	}
	if s.pending != nil {
		_ = s.pending.MarkUploading(ctx, rec.ID)
	}

	if err := s.backend.UploadDocuments(ctx, rec.ApplicationID, models.Files{slot: file}); err != nil {
		if s.pending != nil {
			_ = s.pending.MarkFailed(ctx, rec.ID, err)
		}
		return errors.NewUploadFailedError(rec.ApplicationID, err)
	}
	if s.pending != nil {
		if err := s.pending.Remove(ctx, rec.ID); err != nil {
			return errors.NewStorageError("remove_pending_upload", err)
		}
	}
	s.Invalidate(rec.ApplicationID)
	return nil
}

// DeleteFile removes one document and drops it from the cached set.
func (s *Service) DeleteFile(ctx context.Context, applicationID string, slot models.FileSlot) error {
	if err := s.backend.DeleteDocumentFile(ctx, applicationID, slot); err != nil {
		return err
	}
	if set, ok := s.cache.Get(applicationID); ok {
		next := set.Merge(nil)
		delete(next, slot)
		s.cache.Add(applicationID, next)
	}
	s.ReportLoaded(applicationID, slot)
	return nil
}
