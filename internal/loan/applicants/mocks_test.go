package applicants

import (
	"context"

	"github.com/stretchr/testify/mock"

	"loan-workbench/internal/models"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) ListApplications(ctx context.Context, q models.ListQuery) (*models.ApplicationPage, error) {
	args := m.Called(ctx, q)
	page, _ := args.Get(0).(*models.ApplicationPage)
	return page, args.Error(1)
}

func (m *mockBackend) UpdateStatus(ctx context.Context, id string, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockBackend) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	args := m.Called(ctx, id)
	app, _ := args.Get(0).(*models.Application)
	return app, args.Error(1)
}

func (m *mockBackend) UpdateApplication(ctx context.Context, id string, req models.ApplicationRequest) error {
	return m.Called(ctx, id, req).Error(0)
}

func (m *mockBackend) RegenerateRecommendations(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockBackend) DeleteApplication(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) StatusChanged(ctx context.Context, app *models.Application, status models.Status) error {
	return m.Called(ctx, app, status).Error(0)
}

type mockDocs struct {
	mock.Mock
}

func (m *mockDocs) URLs(ctx context.Context, applicationID string) (models.DocumentURLSet, error) {
	args := m.Called(ctx, applicationID)
	set, _ := args.Get(0).(models.DocumentURLSet)
	return set, args.Error(1)
}

func (m *mockDocs) Invalidate(applicationID string) {
	m.Called(applicationID)
}
