// Package backend exposes the loan service endpoints as typed calls. Every
// response is normalized here, so callers only see canonical models.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"loan-workbench/internal/common/errors"
	apihttp "loan-workbench/internal/common/http"
	"loan-workbench/internal/models"
)

// RequestDataField is the multipart field carrying the JSON payload.
const RequestDataField = "request_data"

// Client calls the loan service through the shared API client.
type Client struct {
	api *apihttp.Client
}

func New(api *apihttp.Client) *Client {
	return &Client{api: api}
}

// ==========================================
// Applications
// ==========================================

// CreateApplication submits a new application with its attached files. Only
// occupied slots are sent.
func (c *Client) CreateApplication(ctx context.Context, req models.ApplicationRequest, files models.Files) (*models.Application, error) {
	body, err := applicationMultipart(req, files)
	if err != nil {
		return nil, err
	}

	var wire wireApplication
	if err := c.api.Do(ctx, &apihttp.Request{
		Method:    http.MethodPost,
		Path:      "/loans/applications",
		Multipart: body,
	}, &wire); err != nil {
		return nil, err
	}
	app := wire.toModel()
	return &app, nil
}

// MyApplications lists the applications submitted by the signed-in user.
func (c *Client) MyApplications(ctx context.Context) ([]models.Application, error) {
	var wire []wireApplication
	if err := c.api.Do(ctx, &apihttp.Request{Path: "/loans/my-applications"}, &wire); err != nil {
		return nil, err
	}
	out := make([]models.Application, len(wire))
	for i := range wire {
		out[i] = wire[i].toModel()
	}
	return out, nil
}

type wirePage struct {
	Data   []wireApplication   `json:"data"`
	Total  int                 `json:"total"`
	Page   int                 `json:"page"`
	Pages  int                 `json:"pages"`
	Counts models.StatusCounts `json:"counts"`
}

// ListApplications fetches one page. A status of "all" (or empty) is not
// sent.
func (c *Client) ListApplications(ctx context.Context, q models.ListQuery) (*models.ApplicationPage, error) {
	query := url.Values{
		"skip":  {strconv.Itoa(q.Skip())},
		"limit": {strconv.Itoa(q.PageSize)},
	}
	if s := strings.TrimSpace(q.Status); s != "" && !strings.EqualFold(s, "all") {
		query.Set("status", s)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		query.Set("search", s)
	}

	var wire wirePage
	if err := c.api.Do(ctx, &apihttp.Request{Path: "/loans/applications", Query: query}, &wire); err != nil {
		return nil, err
	}

	page := &models.ApplicationPage{
		Items:  make([]models.Application, len(wire.Data)),
		Total:  wire.Total,
		Page:   wire.Page,
		Pages:  wire.Pages,
		Counts: wire.Counts,
	}
	for i := range wire.Data {
		page.Items[i] = wire.Data[i].toModel()
	}
	return page, nil
}

// UpdateStatus sets the status of record id. Any casing is accepted; the
// capitalized form is sent.
func (c *Client) UpdateStatus(ctx context.Context, id string, status string) error {
	mapped, err := models.ParseStatus(status)
	if err != nil {
		return errors.NewValidationFailedError([]string{err.Error()})
	}
	return c.api.Do(ctx, &apihttp.Request{
		Method: http.MethodPut,
		Path:   "/loans/applications/" + url.PathEscape(id) + "/status",
		JSON:   map[string]string{"status": string(mapped)},
	}, nil)
}

// GetApplication fetches one record by its record id.
func (c *Client) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	var wire wireApplication
	if err := c.api.Do(ctx, &apihttp.Request{Path: "/loans/applications/id/" + url.PathEscape(id)}, &wire); err != nil {
		return nil, err
	}
	app := wire.toModel()
	return &app, nil
}

// UpdateApplication replaces the structured payload of record id.
func (c *Client) UpdateApplication(ctx context.Context, id string, req models.ApplicationRequest) error {
	body, err := applicationMultipart(req, nil)
	if err != nil {
		return err
	}
	return c.api.Do(ctx, &apihttp.Request{
		Method:    http.MethodPut,
		Path:      "/loans/applications/" + url.PathEscape(id),
		Multipart: body,
	}, nil)
}

func (c *Client) RegenerateRecommendations(ctx context.Context, id string) error {
	return c.api.Do(ctx, &apihttp.Request{
		Method: http.MethodPost,
		Path:   "/loans/applications/" + url.PathEscape(id) + "/regenerate-recommendations",
	}, nil)
}

func (c *Client) DeleteApplication(ctx context.Context, id string) error {
	return c.api.Do(ctx, &apihttp.Request{
		Method: http.MethodDelete,
		Path:   "/loans/applications/" + url.PathEscape(id),
	}, nil)
}

// ==========================================
// Documents
// ==========================================

// UploadDocuments sends files for the application's document session.
func (c *Client) UploadDocuments(ctx context.Context, applicationID string, files models.Files) error {
	slots := files.Present()
	if len(slots) == 0 {
		return nil
	}
	body := &apihttp.Multipart{}
	for _, slot := range slots {
		body.Files = append(body.Files, filePart(slot, files[slot]))
	}
	return c.api.Do(ctx, &apihttp.Request{
		Method:    http.MethodPost,
		Path:      "/documents",
		Query:     url.Values{"application_id": {applicationID}},
		Multipart: body,
		NoCache:   true,
	}, nil)
}

// Documents returns the signed URLs for an application's documents.
func (c *Client) Documents(ctx context.Context, applicationID string) (models.DocumentURLSet, error) {
	var raw map[string]interface{}
	if err := c.api.Do(ctx, &apihttp.Request{
		Path: "/documents/application/" + url.PathEscape(applicationID),
	}, &raw); err != nil {
		return nil, err
	}
	return NormalizeDocuments(raw), nil
}

// RefreshDocumentURLs re-signs the URLs of the given slots, or all of them
// when none are named.
func (c *Client) RefreshDocumentURLs(ctx context.Context, applicationID string, slots ...models.FileSlot) (models.DocumentURLSet, error) {
	query := url.Values{}
	if len(slots) > 0 {
		types := make([]string, len(slots))
		for i, s := range slots {
			types[i] = s.DocumentType()
		}
		query.Set("document_types", strings.Join(types, ","))
	}

	var raw map[string]interface{}
	if err := c.api.Do(ctx, &apihttp.Request{
		Path:  "/documents/application/" + url.PathEscape(applicationID) + "/refresh-urls",
		Query: query,
	}, &raw); err != nil {
		return nil, err
	}
	return NormalizeDocuments(raw), nil
}

// DeleteDocumentFile removes one slot's file.
func (c *Client) DeleteDocumentFile(ctx context.Context, applicationID string, slot models.FileSlot) error {
	return c.api.Do(ctx, &apihttp.Request{
		Method: http.MethodDelete,
		Path:   "/documents/application/" + url.PathEscape(applicationID) + "/file/" + url.PathEscape(string(slot)),
	}, nil)
}

// ==========================================
// Reports and health
// ==========================================

func (c *Client) ApplicantReport(ctx context.Context, q models.ReportQuery) (*models.ApplicantReport, error) {
	query := url.Values{}
	if !q.StartDate.IsZero() {
		query.Set("start_date", q.StartDate.Format("2006-01-02"))
	}
	if !q.EndDate.IsZero() {
		query.Set("end_date", q.EndDate.Format("2006-01-02"))
	}
	if q.GroupBy != "" {
		query.Set("group_by", q.GroupBy)
	}

	var report models.ApplicantReport
	if err := c.api.Do(ctx, &apihttp.Request{Path: "/reports/applicants", Query: query}, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	var h models.HealthStatus
	if err := c.api.Do(ctx, &apihttp.Request{Path: "/loans/health", SkipAuth: true}, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ServiceStatus returns the raw service-status document.
func (c *Client) ServiceStatus(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.api.Do(ctx, &apihttp.Request{Path: "/loans/service-status"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func applicationMultipart(req models.ApplicationRequest, files models.Files) (*apihttp.Multipart, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request_data: %w", err)
	}
	body := &apihttp.Multipart{
		Fields: []apihttp.Field{{Name: RequestDataField, Value: string(payload)}},
	}
	for _, slot := range files.Present() {
		body.Files = append(body.Files, filePart(slot, files[slot]))
	}
	return body, nil
}

func filePart(slot models.FileSlot, f *models.AttachedFile) apihttp.FilePart {
	return apihttp.FilePart{
		Field:       string(slot),
		FileName:    f.Name,
		ContentType: f.ContentType,
		Data:        f.Data,
	}
}
