// Package applicants implements the officer-facing applicant list and the
// single-application overview editor.
package applicants

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"loan-workbench/internal/common/errors"
	"loan-workbench/internal/common/logger"
	"loan-workbench/internal/models"
)

// Backend is the subset of the loan service the applicant screens use.
type Backend interface {
	ListApplications(ctx context.Context, q models.ListQuery) (*models.ApplicationPage, error)
	UpdateStatus(ctx context.Context, id string, status string) error
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	UpdateApplication(ctx context.Context, id string, req models.ApplicationRequest) error
	RegenerateRecommendations(ctx context.Context, id string) error
	DeleteApplication(ctx context.Context, id string) error
}

// Notifier tells an applicant about a decision.
type Notifier interface {
	StatusChanged(ctx context.Context, app *models.Application, status models.Status) error
}

// List is one paged, filtered view of the applications collection. Rows are
// never patched locally; every change re-fetches the current page.
type List struct {
	backend  Backend
	logger   logger.Logger
	config   *Config
	notifier Notifier

	mu       sync.Mutex
	query    models.ListQuery
	page     *models.ApplicationPage
	seq      uint64
	timer    *time.Timer
	onChange func(*models.ApplicationPage, error)
	closed   bool

	acting atomic.Bool
}

func NewList(backend Backend, cfg *Config, log logger.Logger) *List {
	if cfg == nil {
		cfg = &Config{PageSize: DefaultPageSize, SearchDebounce: DefaultSearchDebounce}
	}
	return &List{
		backend: backend,
		logger:  log.WithFields(map[string]interface{}{"component": "applicants"}),
		config:  cfg,
		query:   models.ListQuery{Page: 1, PageSize: cfg.PageSize, Status: "all"},
	}
}

// SetNotifier enables decision notifications.
func (l *List) SetNotifier(n Notifier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notifier = n
}

// OnChange registers a callback for pages loaded in the background (after a
// debounced search).
func (l *List) OnChange(fn func(*models.ApplicationPage, error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

func (l *List) Query() models.ListQuery {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

// Page returns the last page loaded, or nil.
func (l *List) Page() *models.ApplicationPage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

// Refresh loads the page for the current query. A response that arrives after
// a newer request was started is discarded.
func (l *List) Refresh(ctx context.Context) (*models.ApplicationPage, error) {
	page, _, err := l.load(ctx)
	return page, err
}

// load is Refresh that also reports whether the result is still current.
func (l *List) load(ctx context.Context) (*models.ApplicationPage, bool, error) {
	l.mu.Lock()
	l.seq++
	seq, q := l.seq, l.query
	l.mu.Unlock()

	page, err := l.backend.ListApplications(ctx, q)

	l.mu.Lock()
	defer l.mu.Unlock()
	current := seq == l.seq && !l.closed
	if err != nil {
		l.logger.Warn("Failed to load applications", map[string]interface{}{
			"page":   q.Page,
			"status": q.Status,
			"error":  err.Error(),
		})
		return nil, current, err
	}
	if current {
		l.page = page
	}
	return page, current, nil
}

// SetPage moves to page n.
func (l *List) SetPage(ctx context.Context, n int) (*models.ApplicationPage, error) {
	if n < 1 {
		n = 1
	}
	l.mu.Lock()
	l.query.Page = n
	l.mu.Unlock()
	return l.Refresh(ctx)
}

// SetStatus filters by status ("all" for none) and returns to page 1.
func (l *List) SetStatus(ctx context.Context, status string) (*models.ApplicationPage, error) {
	status = strings.TrimSpace(status)
	if status == "" || strings.EqualFold(status, "all") {
		status = "all"
	} else {
		s, err := models.ParseStatus(status)
		if err != nil {
			return nil, errors.NewValidationFailedError([]string{err.Error()})
		}
		status = strings.ToLower(string(s))
	}

	l.mu.Lock()
	l.query.Status = status
	l.query.Page = 1
	l.mu.Unlock()
	return l.Refresh(ctx)
}

// Search schedules a search for term once input has been quiet for the
// debounce period. Each call restarts the wait. The result is delivered to
// the OnChange callback.
func (l *List) Search(ctx context.Context, term string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.config.SearchDebounce, func() {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return
		}
		if term != l.query.Search {
			l.query.Page = 1
		}
		l.query.Search = term
		l.mu.Unlock()

		page, current, err := l.load(ctx)
		if !current {
			return
		}

		l.mu.Lock()
		fn := l.onChange
		l.mu.Unlock()
		if fn != nil {
			fn(page, err)
		}
	})
}

// ==========================================
// Status actions
// ==========================================

func (l *List) Approve(ctx context.Context, id string) error {
	return l.changeStatus(ctx, id, models.StatusApproved)
}

func (l *List) Deny(ctx context.Context, id string) error {
	return l.changeStatus(ctx, id, models.StatusDenied)
}

func (l *List) Cancel(ctx context.Context, id string) error {
	return l.changeStatus(ctx, id, models.StatusCancelled)
}

// MarkPending reopens a decided application.
func (l *List) MarkPending(ctx context.Context, id string) error {
	return l.changeStatus(ctx, id, models.StatusPending)
}

func (l *List) changeStatus(ctx context.Context, id string, status models.Status) error {
	if !l.acting.CompareAndSwap(false, true) {
		return errors.NewBusyError("status_change")
	}
	defer l.acting.Store(false)

	row := l.row(id)
	if row != nil && !row.Status.CanTransitionTo(status) {
		return errors.NewInvalidStatusTransitionError(string(row.Status), string(status))
	}

	if err := l.backend.UpdateStatus(ctx, id, strings.ToLower(string(status))); err != nil {
		return err
	}
	l.logger.Info("Application status changed", map[string]interface{}{
		"id":     id,
		"status": string(status),
	})

	if status == models.StatusApproved || status == models.StatusDenied {
		l.notify(ctx, id, row, status)
	}

	_, err := l.Refresh(ctx)
	return err
}

func (l *List) notify(ctx context.Context, id string, row *models.Application, status models.Status) {
	l.mu.Lock()
	n := l.notifier
	l.mu.Unlock()
	if n == nil {
		return
	}
	if row == nil {
		app, err := l.backend.GetApplication(ctx, id)
		if err != nil {
			l.logger.Warn("Skipping notification, record not loaded", map[string]interface{}{"id": id, "error": err.Error()})
			return
		}
		row = app
	}
	if err := n.StatusChanged(ctx, row, status); err != nil {
		l.logger.Warn("Status notification failed", map[string]interface{}{"id": id, "error": err.Error()})
	}
}

func (l *List) row(id string) *models.Application {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.page == nil {
		return nil
	}
	for i := range l.page.Items {
		if l.page.Items[i].ID == id {
			app := l.page.Items[i]
			return &app
		}
	}
	return nil
}

// Close stops pending searches and drops any results still in flight.
func (l *List) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.timer != nil {
		l.timer.Stop()
	}
}
