package applicants

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"loan-workbench/internal/common/errors"
	"loan-workbench/internal/common/logger"
	"loan-workbench/internal/models"
)

func storedApplication() *models.Application {
	return &models.Application{
		ID:        "rec-1",
		SessionID: "sess-1",
		Status:    models.StatusPending,
		Applicant: models.ApplicantInfo{
			FullName: "Juan Dela Cruz", ContactNumber: "0917-123-4567",
			Address: "12 Mabini St, Quezon City", Salary: "25000", Job: "Teacher", CompanyName: "DepEd",
		},
		Comaker: models.ComakerInfo{FullName: "Maria Dela Cruz", ContactNumber: "0918 765 4321"},
		ModelInput: &models.ModelInput{
			EmploymentSector: "Public", EmploymentTenureMonths: 60, NetSalaryPerCutoff: 25000,
			SalaryFrequency: "Monthly", HousingStatus: "Owned", YearsAtCurrentAddress: 3,
			HouseholdHead: "Yes", NumberOfDependents: 2, ComakerRelationship: "Spouse",
			ComakerEmploymentTenureMonths: 24, ComakerNetSalaryPerCutoff: 18000,
			HasCommunityRole: "None", PaluwaganParticipation: "Never", OtherIncomeSource: "None",
			DisasterPreparedness: "Savings",
		},
	}
}

func TestOpenOverview(t *testing.T) {
	ctx := context.Background()
	b := &mockBackend{}
	d := &mockDocs{}
	b.On("GetApplication", mock.Anything, "rec-1").Return(storedApplication(), nil)
	d.On("URLs", mock.Anything, "sess-1").Return(models.DocumentURLSet{models.SlotValidID: "https://s3/id.png"}, nil)

	o, err := OpenOverview(ctx, b, d, "rec-1", logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "Juan Dela Cruz", o.Draft().Personal.FullName)
	assert.Equal(t, "5 years", o.Draft().Employment.EmploymentDuration)
	assert.Equal(t, "https://s3/id.png", o.Documents()[models.SlotValidID])
}

func TestOpenOverview_DocumentFailureIsEmptySet(t *testing.T) {
	b := &mockBackend{}
	d := &mockDocs{}
	b.On("GetApplication", mock.Anything, "rec-1").Return(storedApplication(), nil)
	d.On("URLs", mock.Anything, "sess-1").Return(nil, errors.NewAPIError(404, "Not Found"))

	o, err := OpenOverview(context.Background(), b, d, "rec-1", logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Empty(t, o.Documents())
}

func TestOpenOverview_RecordMissing(t *testing.T) {
	b := &mockBackend{}
	b.On("GetApplication", mock.Anything, "nope").Return(nil, errors.NewAPIError(404, "Application not found"))
	_, err := OpenOverview(context.Background(), b, nil, "nope", logger.NewTestLogger(t))
	assert.Error(t, err)
}

func TestOverview_Save(t *testing.T) {
	ctx := context.Background()
	b := &mockBackend{}
	b.On("GetApplication", mock.Anything, "rec-1").Return(storedApplication(), nil).Once()

	o, err := OpenOverview(ctx, b, nil, "rec-1", logger.NewTestLogger(t))
	require.NoError(t, err)
	require.NoError(t, o.Set(models.SectionEmployment, "salary", "₱30,000"))

	updated := storedApplication()
	updated.ModelInput.NetSalaryPerCutoff = 30000
	updated.Prediction = &models.PredictionResult{FinalCreditScore: 720}

	b.On("UpdateApplication", mock.Anything, "rec-1", mock.MatchedBy(func(req models.ApplicationRequest) bool {
		return req.ModelInputData.NetSalaryPerCutoff == 30000 && req.ApplicantInfo.FullName == "Juan Dela Cruz"
	})).Return(nil).Once()
	b.On("RegenerateRecommendations", mock.Anything, "rec-1").Return(nil).Once()
	b.On("GetApplication", mock.Anything, "rec-1").Return(updated, nil).Once()

	app, err := o.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 720.0, app.Prediction.FinalCreditScore)
	b.AssertExpectations(t)
}

func TestOverview_SaveRejectsInvalidEdit(t *testing.T) {
	ctx := context.Background()
	b := &mockBackend{}
	b.On("GetApplication", mock.Anything, "rec-1").Return(storedApplication(), nil)

	o, err := OpenOverview(ctx, b, nil, "rec-1", logger.NewTestLogger(t))
	require.NoError(t, err)
	require.NoError(t, o.Set(models.SectionCoMaker, "fullName", "Mo"))

	_, err = o.Save(ctx)
	assert.True(t, errors.Is(err, errors.ErrValidationFailed))
	b.AssertNotCalled(t, "UpdateApplication", mock.Anything, mock.Anything, mock.Anything)

	o.Discard()
	assert.Equal(t, "Maria Dela Cruz", o.Draft().CoMaker.FullName)
}

func TestOverview_Delete(t *testing.T) {
	ctx := context.Background()
	b := &mockBackend{}
	d := &mockDocs{}
	b.On("GetApplication", mock.Anything, "rec-1").Return(storedApplication(), nil)
	b.On("DeleteApplication", mock.Anything, "rec-1").Return(nil).Once()
	d.On("URLs", mock.Anything, "sess-1").Return(models.DocumentURLSet{}, nil)
	d.On("Invalidate", "sess-1").Once()

	o, err := OpenOverview(ctx, b, d, "rec-1", logger.NewTestLogger(t))
	require.NoError(t, err)
	require.NoError(t, o.Delete(ctx))
	d.AssertExpectations(t)
}

func TestOverview_RegenerateFailure(t *testing.T) {
	ctx := context.Background()
	b := &mockBackend{}
	b.On("GetApplication", mock.Anything, "rec-1").Return(storedApplication(), nil)
	b.On("RegenerateRecommendations", mock.Anything, "rec-1").Return(errors.NewAPIError(503, "Service Unavailable"))

	o, err := OpenOverview(ctx, b, nil, "rec-1", logger.NewTestLogger(t))
	require.NoError(t, err)
	_, err = o.Regenerate(ctx)
	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, 503, se.StatusCode)
}

func TestOverview_SaveSparseRecordUntouched(t *testing.T) {
	ctx := context.Background()
	sparse := &models.Application{
		ID:     "rec-2",
		Status: models.StatusPending,
		Applicant: models.ApplicantInfo{
			FullName: "Juan Dela Cruz", ContactNumber: "0917-123-4567", Address: "12 Mabini St, Quezon City",
		},
		Comaker: models.ComakerInfo{FullName: "Maria Dela Cruz", ContactNumber: "0918 765 4321"},
	}
	b := &mockBackend{}
	b.On("GetApplication", mock.Anything, "rec-2").Return(sparse, nil)
	b.On("UpdateApplication", mock.Anything, "rec-2", mock.MatchedBy(func(req models.ApplicationRequest) bool {
		in := req.ModelInputData
		return in.EmploymentSector == "Private" && in.PaluwaganParticipation == "Never" && in.ComakerRelationship == "Friend"
	})).Return(nil).Once()
	b.On("RegenerateRecommendations", mock.Anything, "rec-2").Return(nil).Once()

	o, err := OpenOverview(ctx, b, nil, "rec-2", logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.True(t, o.Validate().Valid, o.Validate().Errors)

	_, err = o.Save(ctx)
	require.NoError(t, err)
	b.AssertExpectations(t)
}
