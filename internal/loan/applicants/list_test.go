package applicants

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"loan-workbench/internal/common/errors"
	"loan-workbench/internal/common/logger"
	"loan-workbench/internal/models"
)

func pageOf(apps ...models.Application) *models.ApplicationPage {
	return &models.ApplicationPage{Items: apps, Total: len(apps), Page: 1, Pages: 1}
}

func newList(t *testing.T, b Backend) *List {
	t.Helper()
	l := NewList(b, &Config{PageSize: 10, SearchDebounce: 300 * time.Millisecond}, logger.NewTestLogger(t))
	t.Cleanup(l.Close)
	return l
}

// ==========================================
// Paging and filters
// ==========================================

func TestList_PagingAndStatus(t *testing.T) {
	ctx := context.Background()
	b := &mockBackend{}
	b.On("ListApplications", mock.Anything, models.ListQuery{Page: 3, PageSize: 10, Status: "all"}).Return(pageOf(), nil).Once()
	b.On("ListApplications", mock.Anything, models.ListQuery{Page: 1, PageSize: 10, Status: "denied"}).Return(pageOf(), nil).Once()

	l := newList(t, b)
	_, err := l.SetPage(ctx, 3)
	require.NoError(t, err)

	_, err = l.SetStatus(ctx, "Rejected")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Query().Page, "filter change returns to page 1")

	_, err = l.SetStatus(ctx, "archived")
	assert.True(t, errors.Is(err, errors.ErrValidationFailed))
	b.AssertExpectations(t)
}

func TestList_SearchIsDebounced(t *testing.T) {
	ctx := context.Background()
	b := &mockBackend{}

	var (
		mu    sync.Mutex
		calls []models.ListQuery
		at    []time.Time
	)
	b.On("ListApplications", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, args.Get(1).(models.ListQuery))
		at = append(at, time.Now())
	}).Return(pageOf(), nil)

	l := newList(t, b)
	_, err := l.SetStatus(ctx, "approved")
	require.NoError(t, err)
	_, err = l.SetPage(ctx, 2)
	require.NoError(t, err)

	delivered := make(chan *models.ApplicationPage, 1)
	l.OnChange(func(p *models.ApplicationPage, err error) { delivered <- p })

	lastKey := time.Now()
	for _, term := range []string{"C", "Cr", "Cru", "Cruz"} {
		lastKey = time.Now()
		l.Search(ctx, term)
		time.Sleep(50 * time.Millisecond)
	}

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("search never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 3, "status, page, then exactly one search")
	last := calls[2]
	assert.Equal(t, "Cruz", last.Search)
	assert.Equal(t, "approved", last.Status)
	assert.Equal(t, 1, last.Page, "new term resets the page")
	assert.GreaterOrEqual(t, at[2].Sub(lastKey), 300*time.Millisecond)
}

func TestList_SupersededSearchIsNotDelivered(t *testing.T) {
	ctx := context.Background()
	b := &mockBackend{}
	stale := models.Application{ID: "s1", Status: models.StatusPending}
	denied := models.Application{ID: "d1", Status: models.StatusDenied}

	started := make(chan struct{})
	release := make(chan struct{})
	b.On("ListApplications", mock.Anything, models.ListQuery{Page: 1, PageSize: 10, Status: "all", Search: "Cruz"}).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).Return(pageOf(stale), nil).Once()
	b.On("ListApplications", mock.Anything, models.ListQuery{Page: 1, PageSize: 10, Status: "denied", Search: "Cruz"}).
		Return(pageOf(denied), nil).Once()

	l := NewList(b, &Config{PageSize: 10, SearchDebounce: 10 * time.Millisecond}, logger.NewTestLogger(t))
	t.Cleanup(l.Close)

	delivered := make(chan *models.ApplicationPage, 1)
	l.OnChange(func(p *models.ApplicationPage, err error) { delivered <- p })

	l.Search(ctx, "Cruz")
	<-started

	page, err := l.SetStatus(ctx, "denied")
	require.NoError(t, err)
	assert.Equal(t, "d1", page.Items[0].ID)
	close(release)

	select {
	case p := <-delivered:
		t.Fatalf("stale search page delivered: %+v", p.Items)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, "d1", l.Page().Items[0].ID)
	b.AssertExpectations(t)
}

func TestList_CloseCancelsPendingSearch(t *testing.T) {
	b := &mockBackend{}
	l := newList(t, b)
	l.Search(context.Background(), "Cruz")
	l.Close()
	time.Sleep(400 * time.Millisecond)
	b.AssertNotCalled(t, "ListApplications", mock.Anything, mock.Anything)
}

// ==========================================
// Status actions
// ==========================================

func TestList_ApproveRefetches(t *testing.T) {
	ctx := context.Background()
	b := &mockBackend{}
	pending := models.Application{ID: "a1", Status: models.StatusPending}
	approved := models.Application{ID: "a1", Status: models.StatusApproved}

	b.On("ListApplications", mock.Anything, mock.Anything).Return(pageOf(pending), nil).Once()
	b.On("UpdateStatus", mock.Anything, "a1", "approved").Return(nil).Once()
	b.On("ListApplications", mock.Anything, mock.Anything).Return(pageOf(approved), nil).Once()

	l := newList(t, b)
	_, err := l.Refresh(ctx)
	require.NoError(t, err)

	require.NoError(t, l.Approve(ctx, "a1"))
	assert.Equal(t, models.StatusApproved, l.Page().Items[0].Status, "row comes from the server")
	b.AssertExpectations(t)
}

func TestList_StatusActions(t *testing.T) {
	tests := []struct {
		name   string
		from   models.Status
		action func(*List, context.Context, string) error
		sent   string
		err    errors.ErrorCode
	}{
		{"deny pending", models.StatusPending, (*List).Deny, "denied", ""},
		{"cancel pending", models.StatusPending, (*List).Cancel, "cancelled", ""},
		{"reopen approved", models.StatusApproved, (*List).MarkPending, "pending", ""},
		{"approve denied", models.StatusDenied, (*List).Approve, "", errors.ErrCodeInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			b := &mockBackend{}
			b.On("ListApplications", mock.Anything, mock.Anything).Return(pageOf(models.Application{ID: "a1", Status: tt.from}), nil)
			if tt.sent != "" {
				b.On("UpdateStatus", mock.Anything, "a1", tt.sent).Return(nil).Once()
			}

			l := newList(t, b)
			_, err := l.Refresh(ctx)
			require.NoError(t, err)

			err = tt.action(l, ctx, "a1")
			if tt.err != "" {
				se, ok := errors.As(err)
				require.True(t, ok)
				assert.Equal(t, tt.err, se.Code)
				b.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			b.AssertExpectations(t)
		})
	}
}

func TestList_StatusActionGuard(t *testing.T) {
	ctx := context.Background()
	b := &mockBackend{}
	entered := make(chan struct{})
	release := make(chan struct{})
	b.On("UpdateStatus", mock.Anything, "a1", "approved").Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(nil).Once()
	b.On("ListApplications", mock.Anything, mock.Anything).Return(pageOf(), nil)

	l := newList(t, b)
	done := make(chan error)
	go func() { done <- l.Approve(ctx, "a1") }()

	<-entered
	assert.True(t, errors.Is(l.Deny(ctx, "a1"), errors.ErrBusy))
	close(release)
	require.NoError(t, <-done)
	b.AssertNumberOfCalls(t, "UpdateStatus", 1)
}

func TestList_NotifiesOnDecision(t *testing.T) {
	ctx := context.Background()
	b := &mockBackend{}
	n := &mockNotifier{}
	row := models.Application{ID: "a1", Status: models.StatusPending, Applicant: models.ApplicantInfo{ContactNumber: "0917"}}

	b.On("ListApplications", mock.Anything, mock.Anything).Return(pageOf(row), nil)
	b.On("UpdateStatus", mock.Anything, "a1", "denied").Return(nil).Once()
	b.On("UpdateStatus", mock.Anything, "b2", "cancelled").Return(nil).Once()
	n.On("StatusChanged", mock.Anything, mock.MatchedBy(func(a *models.Application) bool { return a.ID == "a1" }), models.StatusDenied).
		Return(errors.NewNotificationSendFailedError("sms", assert.AnError)).Once()

	l := newList(t, b)
	l.SetNotifier(n)
	_, err := l.Refresh(ctx)
	require.NoError(t, err)

	require.NoError(t, l.Deny(ctx, "a1"), "a failed notification does not fail the action")
	require.NoError(t, l.Cancel(ctx, "b2"))
	n.AssertExpectations(t)
	n.AssertNumberOfCalls(t, "StatusChanged", 1)
}
