package applicants

import (
	"context"
	"sync"
	"sync/atomic"

	"loan-workbench/internal/common/errors"
	"loan-workbench/internal/common/logger"
	"loan-workbench/internal/common/validation"
	"loan-workbench/internal/loan/forms"
	"loan-workbench/internal/loan/transform"
	"loan-workbench/internal/models"
)

// DocumentSource resolves and caches signed document URLs by application id.
type DocumentSource interface {
	URLs(ctx context.Context, applicationID string) (models.DocumentURLSet, error)
	Invalidate(applicationID string)
}

// Overview is the editor for one stored application. Edits go to a local
// draft and are only sent on Save.
type Overview struct {
	backend Backend
	docs    DocumentSource
	logger  logger.Logger

	mu        sync.Mutex
	app       *models.Application
	draft     models.Draft
	documents models.DocumentURLSet

	busy atomic.Bool
}

// OpenOverview loads record id and its documents. A document lookup failure
// leaves the set empty rather than failing the load.
func OpenOverview(ctx context.Context, backend Backend, docs DocumentSource, id string, log logger.Logger) (*Overview, error) {
	o := &Overview{
		backend: backend,
		docs:    docs,
		logger:  log.WithFields(map[string]interface{}{"component": "overview", "id": id}),
	}
	if err := o.reload(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Overview) reload(ctx context.Context, id string) error {
	app, err := o.backend.GetApplication(ctx, id)
	if err != nil {
		return err
	}

	documents := models.DocumentURLSet{}
	if o.docs != nil && app.SessionID != "" {
		if set, err := o.docs.URLs(ctx, app.SessionID); err != nil {
			o.logger.Warn("Documents unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			documents = set
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.app = app
	o.draft = transform.RecordToDraft(app)
	o.documents = documents
	return nil
}

func (o *Overview) Application() *models.Application {
	o.mu.Lock()
	defer o.mu.Unlock()
	cp := *o.app
	return &cp
}

// Draft returns the editable copy of the record.
func (o *Overview) Draft() models.Draft {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.draft
}

func (o *Overview) Documents() models.DocumentURLSet {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.documents.Merge(nil)
}

// Set edits one field of any section.
func (o *Overview) Set(section models.Section, field, value string) error {
	for _, step := range forms.Steps {
		if step.Section == section {
			o.mu.Lock()
			defer o.mu.Unlock()
			return step.Set(&o.draft, field, value)
		}
	}
	return errors.NewValidationFailedError([]string{"unknown section " + string(section)})
}

// Discard drops local edits.
func (o *Overview) Discard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft = transform.RecordToDraft(o.app)
}

// Validate checks the edited record as a full application.
func (o *Overview) Validate() *validation.ApplicationResult {
	return validation.ValidateFullApplication(transform.ForUpdate(o.Draft()))
}

// Save validates the edited record, replaces it on the server, asks for new
// recommendations and re-fetches it.
func (o *Overview) Save(ctx context.Context) (*models.Application, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, errors.NewBusyError("save")
	}
	defer o.busy.Store(false)

	result := o.Validate()
	if !result.Valid {
		return nil, errors.NewValidationFailedError(result.Errors)
	}

	id := o.Application().ID
	if err := o.backend.UpdateApplication(ctx, id, result.TransformedData); err != nil {
		return nil, err
	}
	if err := o.backend.RegenerateRecommendations(ctx, id); err != nil {
		// The edit itself is stored; only the prediction is stale.
		o.logger.Warn("Recommendations not regenerated", map[string]interface{}{"error": err.Error()})
	}
	if err := o.reload(ctx, id); err != nil {
		return nil, err
	}
	o.logger.Info("Application updated", nil)
	return o.Application(), nil
}

// Regenerate refreshes the prediction without editing the record.
func (o *Overview) Regenerate(ctx context.Context) (*models.Application, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, errors.NewBusyError("regenerate")
	}
	defer o.busy.Store(false)

	id := o.Application().ID
	if err := o.backend.RegenerateRecommendations(ctx, id); err != nil {
		return nil, err
	}
	if err := o.reload(ctx, id); err != nil {
		return nil, err
	}
	return o.Application(), nil
}

// Delete removes the record and forgets its cached document URLs.
func (o *Overview) Delete(ctx context.Context) error {
	if !o.busy.CompareAndSwap(false, true) {
		return errors.NewBusyError("delete")
	}
	defer o.busy.Store(false)

	app := o.Application()
	if err := o.backend.DeleteApplication(ctx, app.ID); err != nil {
		return err
	}
	if o.docs != nil && app.SessionID != "" {
		o.docs.Invalidate(app.SessionID)
	}
	o.logger.Info("Application deleted", nil)
	return nil
}
