package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-workbench/internal/common/errors"
	apihttp "loan-workbench/internal/common/http"
	"loan-workbench/internal/common/logger"
	"loan-workbench/internal/models"
)

type staticToken string

func (s staticToken) Token() string                           { return string(s) }
func (s staticToken) Refresh(context.Context) (string, error) { return string(s), nil }

func newBackend(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	api := apihttp.NewClient(srv.URL, 5*time.Second, logger.NewTestLogger(t))
	api.SetTokenSource(staticToken("tok"))
	return New(api)
}

func TestListApplications_Query(t *testing.T) {
	tests := []struct {
		name       string
		query      models.ListQuery
		wantSkip   string
		wantStatus string
		wantSearch string
	}{
		{"first page all", models.ListQuery{Page: 1, PageSize: 10, Status: "all"}, "0", "", ""},
		{"third page approved", models.ListQuery{Page: 3, PageSize: 10, Status: "approved", Search: "Cruz"}, "20", "approved", "Cruz"},
		{"page zero clamps", models.ListQuery{Page: 0, PageSize: 5}, "0", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				assert.Equal(t, "/loans/applications", r.URL.Path)
				assert.Equal(t, tt.wantSkip, q.Get("skip"))
				assert.Equal(t, tt.wantStatus, q.Get("status"))
				assert.Equal(t, tt.wantSearch, q.Get("search"))
				_, hasStatus := q["status"]
				assert.Equal(t, tt.wantStatus != "", hasStatus)
				w.Write([]byte(`{"data":[{"_id":{"$oid":"a"},"status":"Pending"}],"total":21,"page":3,"pages":3,
					"counts":{"total":21,"approved":5,"denied":3,"cancelled":1,"pending":12}}`))
			})
			page, err := c.ListApplications(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, 21, page.Total)
			assert.Equal(t, 12, page.Counts.Pending)
			require.Len(t, page.Items, 1)
			assert.Equal(t, "a", page.Items[0].ID)
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	var body map[string]string
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/loans/applications/rec-1/status", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{}`))
	})

	require.NoError(t, c.UpdateStatus(context.Background(), "rec-1", "approved"))
	assert.Equal(t, "Approved", body["status"])

	err := c.UpdateStatus(context.Background(), "rec-1", "archived")
	assert.True(t, errors.Is(err, errors.ErrValidationFailed))
}

func TestCreateApplication_Multipart(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		var req models.ApplicationRequest
		require.NoError(t, json.Unmarshal([]byte(r.FormValue(RequestDataField)), &req))
		assert.Equal(t, "Juan", req.ApplicantInfo.FullName)

		assert.Len(t, r.MultipartForm.File, 1)
		f, _, err := r.FormFile("validId")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "png", string(data))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"application_id":"sess-9","prediction_result":{"final_credit_score":650}}`))
	})

	app, err := c.CreateApplication(context.Background(),
		models.ApplicationRequest{ApplicantInfo: models.ApplicantInfo{FullName: "Juan"}},
		models.Files{models.SlotValidID: {Name: "id.png", ContentType: "image/png", Data: []byte("png")}, models.SlotPayslip: nil},
	)
	require.NoError(t, err)
	assert.Equal(t, "sess-9", app.SessionID)
	assert.Equal(t, 650.0, app.Prediction.FinalCreditScore)
}

func TestDocumentEndpoints(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.NotEmpty(t, q.Get("t"), "document calls are cache-busted")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/documents":
			assert.Equal(t, "sess-1", q.Get("application_id"))
			w.Write([]byte(`{"uploaded":["payslip"]}`))
		case r.URL.Path == "/documents/application/sess-1/refresh-urls":
			assert.Equal(t, "valid_id,payslip", q.Get("document_types"))
			w.Write([]byte(`{"valid_id_url":"https://s3/id.png","payslip":"https://s3/pay.png"}`))
		case r.Method == http.MethodDelete:
			assert.Equal(t, "/documents/application/sess-1/file/payslip", r.URL.Path)
			w.Write([]byte(`{}`))
		default:
			w.Write([]byte(`{"brgy_cert_url":null,"profile_photo_url":"https://s3/p.png"}`))
		}
	})
	ctx := context.Background()

	require.NoError(t, c.UploadDocuments(ctx, "sess-1", models.Files{models.SlotPayslip: {Name: "p.pdf", Data: []byte("x")}}))
	require.NoError(t, c.UploadDocuments(ctx, "sess-1", models.Files{}), "nothing to send")

	set, err := c.RefreshDocumentURLs(ctx, "sess-1", models.SlotValidID, models.SlotPayslip)
	require.NoError(t, err)
	assert.Equal(t, "https://s3/pay.png", set[models.SlotPayslip])

	docs, err := c.Documents(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentURLSet{models.SlotProfilePhoto: "https://s3/p.png"}, docs)

	require.NoError(t, c.DeleteDocumentFile(ctx, "sess-1", models.SlotPayslip))
}

func TestApplicantReport(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2026-01-01", q.Get("start_date"))
		assert.Equal(t, "2026-01-31", q.Get("end_date"))
		assert.Equal(t, "week", q.Get("group_by"))
		w.Write([]byte(`{"totals":{"by_status":{"Approved":4,"Pending":6}},"raw":[{"group":"2026-W01","count":10}]}`))
	})
	rep, err := c.ApplicantReport(context.Background(), models.ReportQuery{
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		GroupBy:   "week",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, rep.Total())
	assert.Len(t, rep.Raw, 1)
}

func TestHealth(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"status":"ok","version":"1.4.0"}`))
	})
	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
}
