// internal/loan/processform/controller.go
package processform

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"loan-workbench/internal/common/errors"
	"loan-workbench/internal/common/logger"
	"loan-workbench/internal/common/metrics"
	"loan-workbench/internal/common/observability"
	"loan-workbench/internal/common/validation"
	"loan-workbench/internal/loan/forms"
	"loan-workbench/internal/loan/transform"
	"loan-workbench/internal/models"
	"loan-workbench/internal/storage"
)

const (
	FirstStep = 1
	LastStep  = 4
)

// Key is a navigation key delivered to the controller.
type Key int

const (
	KeyRight Key = iota + 1
	KeyLeft
)

// Submitter sends a completed application to the loan service.
type Submitter interface {
	CreateApplication(ctx context.Context, req models.ApplicationRequest, files models.Files) (*models.Application, error)
}

// Controller owns the draft, its attachments and the current step. Every
// mutation goes through commit, which mirrors the new state to the store.
type Controller struct {
	store     *storage.DraftStore
	submitter Submitter
	logger    logger.Logger
	obs       *observability.Observability

	mu    sync.Mutex
	step  int
	draft models.Draft
	files models.Files

	submitting atomic.Bool
}

// New restores any saved draft, files and step.
func New(ctx context.Context, store *storage.DraftStore, submitter Submitter, log logger.Logger, obs *observability.Observability) *Controller {
	if obs == nil {
		obs = observability.NewNoop()
	}
	c := &Controller{
		store:     store,
		submitter: submitter,
		logger:    log.WithFields(map[string]interface{}{"component": "processform"}),
		obs:       obs,
		step:      FirstStep,
		draft:     models.NewDraft(),
		files:     models.Files{},
	}

	if d := store.Load(ctx); d != nil {
		c.draft = *d
	}
	c.files = store.LoadFiles(ctx)
	if s := store.LoadStep(ctx); s >= FirstStep && s <= LastStep {
		c.step = s
	}
	return c
}

// ==========================================
// Read access
// ==========================================

func (c *Controller) Step() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Draft returns a copy of the current draft.
func (c *Controller) Draft() models.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Files returns a copy of the slot map. The files themselves are shared and
// must not be modified.
func (c *Controller) Files() models.Files {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(models.Files, len(c.files))
	for k, v := range c.files {
		out[k] = v
	}
	return out
}

func (c *Controller) Submitting() bool {
	return c.submitting.Load()
}

// ==========================================
// Navigation
// ==========================================

func (c *Controller) Next(ctx context.Context) int {
	return c.move(ctx, func(s int) int { return min(s+1, LastStep) })
}

func (c *Controller) Previous(ctx context.Context) int {
	return c.move(ctx, func(s int) int { return max(s-1, FirstStep) })
}

// GoTo jumps straight to step.
func (c *Controller) GoTo(ctx context.Context, step int) error {
	if step < FirstStep || step > LastStep {
		return errors.NewInvalidStepError(step)
	}
	c.move(ctx, func(int) int { return step })
	return nil
}

func (c *Controller) move(ctx context.Context, fn func(int) int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = fn(c.step)
	c.store.SaveStep(ctx, c.step)
	return c.step
}

// HandleKey applies a navigation key. Right on the last step submits; the
// returned application is non-nil only when that submit succeeded.
func (c *Controller) HandleKey(ctx context.Context, key Key) (*models.Application, error) {
	switch key {
	case KeyLeft:
		c.Previous(ctx)
	case KeyRight:
		if c.Step() == LastStep {
			return c.Submit(ctx)
		}
		c.Next(ctx)
	}
	return nil, nil
}

// ==========================================
// Mutations
// ==========================================

// Set updates one field of a section.
func (c *Controller) Set(ctx context.Context, section models.Section, field, value string) error {
	step := stepFor(section)
	if step == nil {
		return errors.NewValidationFailedError([]string{"unknown section " + string(section)})
	}
	return c.commit(ctx, func() error {
		return step.Set(&c.draft, field, value)
	})
}

// Attach puts file into slot, replacing whatever was there.
func (c *Controller) Attach(ctx context.Context, slot models.FileSlot, file *models.AttachedFile) error {
	if !slot.Valid() {
		return errors.NewValidationFailedError([]string{"unknown file slot " + string(slot)})
	}
	if file == nil {
		return c.Detach(ctx, slot)
	}
	if err := c.store.CheckFile(slot, file); err != nil {
		return err
	}
	return c.commit(ctx, func() error {
		c.files[slot] = file
		return nil
	})
}

// Detach empties slot.
func (c *Controller) Detach(ctx context.Context, slot models.FileSlot) error {
	return c.commit(ctx, func() error {
		delete(c.files, slot)
		return nil
	})
}

// Reset starts a new applicant: empty draft, no files, step 1.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(ctx)
}

func (c *Controller) resetLocked(ctx context.Context) {
	c.draft = models.NewDraft()
	c.files = models.Files{}
	c.step = FirstStep
	c.store.Clear(ctx)
	c.store.ClearFiles(ctx)
	c.store.SaveStep(ctx, c.step)
}

// commit is the only path that changes the draft or the files. The new state
// is saved before the lock is released. Edits are refused while a submit is
// in flight, since a successful submit clears the draft.
func (c *Controller) commit(ctx context.Context, mutate func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting.Load() {
		return errors.NewBusyError("edit")
	}
	if err := mutate(); err != nil {
		return err
	}
	c.store.Save(ctx, c.draft)
	c.store.SaveFiles(ctx, c.files)
	return nil
}

// ==========================================
// Validation and submit
// ==========================================

// CheckStep reports field problems on the current step.
func (c *Controller) CheckStep() (*forms.Step, *validation.ValidationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	step, _ := forms.ByNumber(c.step)
	return step, step.Check(c.draft)
}

// Validate runs the full application validator over the current draft.
func (c *Controller) Validate() *validation.ApplicationResult {
	return validation.ValidateFullApplication(transform.DraftToRequest(c.Draft()))
}

// Submit validates and sends the application. Only one submit runs at a
// time; a concurrent call returns ErrBusy without touching the network. On
// failure the draft and files are kept.
func (c *Controller) Submit(ctx context.Context) (app *models.Application, err error) {
	if !c.submitting.CompareAndSwap(false, true) {
		return nil, errors.NewBusyError("submit")
	}
	defer c.submitting.Store(false)

	start := time.Now()
	defer func() { c.obs.Track(ctx, "submit", start, err) }()

	c.mu.Lock()
	draft := c.draft
	files := make(models.Files, len(c.files))
	for k, v := range c.files {
		files[k] = v
	}
	c.mu.Unlock()

	result := validation.ValidateFullApplication(transform.DraftToRequest(draft))
	if !result.Valid {
		metrics.Submissions.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, errors.NewValidationFailedError(result.Errors)
	}

	app, err = c.submitter.CreateApplication(ctx, result.TransformedData, files)
	if err != nil {
		metrics.Submissions.WithLabelValues(metrics.OutcomeFailure).Inc()
		c.logger.Warn("Submit failed, draft kept", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	metrics.Submissions.WithLabelValues(metrics.OutcomeSuccess).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(ctx)
	c.logger.Info("Application submitted", map[string]interface{}{
		"applicationId": app.SessionID,
		"files":         len(files),
	})
	return app, nil
}

func stepFor(section models.Section) *forms.Step {
	for _, s := range forms.Steps {
		if s.Section == section {
			return s
		}
	}
	return nil
}
