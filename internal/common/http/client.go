// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"loan-workbench/internal/common/errors"
	"loan-workbench/internal/common/logger"
	"loan-workbench/internal/common/metrics"
)

// TokenSource supplies the bearer token and renews it after a 401.
type TokenSource interface {
	Token() string
	Refresh(ctx context.Context) (string, error)
}

// Request describes one call to the loan service. At most one of JSON,
// Form or Multipart is set.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	JSON      interface{}
	Form      url.Values
	Multipart *Multipart
	Header    http.Header

	// SkipAuth sends the request without the session token and without the
	// refresh-and-retry handling (login, signup, refresh itself).
	SkipAuth bool
	// NoCache forces cache-busting. Requests under /documents/ always get it.
	NoCache bool
}

// Multipart is a form-data body of plain fields followed by files.
type Multipart struct {
	Fields []Field
	Files  []FilePart
}

type Field struct {
	Name  string
	Value string
}

type FilePart struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

// Client talks to the loan service REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     logger.Logger

	mu          sync.RWMutex
	tokens      TokenSource
	onAuthError func(error)

	now func() time.Time
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log,
		now:     time.Now,
	}
}

// SetTokenSource installs the session token provider.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// OnAuthError registers the callback fired when a request ends in a
// terminal SESSION_EXPIRED.
func (c *Client) OnAuthError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAuthError = fn
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and decodes a JSON response into out (which may be nil, or a
// *[]byte to receive the raw body). A 401 on an authenticated request
// triggers exactly one token refresh and one retry.
func (c *Client) Do(ctx context.Context, req *Request, out interface{}) error {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return errors.NewDecodeError(err)
	}

	c.mu.RLock()
	tokens := c.tokens
	c.mu.RUnlock()

	token := ""
	if !req.SkipAuth && tokens != nil {
		token = tokens.Token()
	}

	status, respBody, err := c.send(ctx, req, body, contentType, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && !req.SkipAuth && token != "" {
		fresh, rerr := tokens.Refresh(ctx)
		if rerr != nil {
			return c.sessionExpired("token refresh failed: " + rerr.Error())
		}
		status, respBody, err = c.send(ctx, req, body, contentType, fresh)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return c.sessionExpired("request rejected after token refresh")
		}
	} else if status == http.StatusUnauthorized && !req.SkipAuth {
		return c.sessionExpired("no session token")
	}

	if status < 200 || status >= 300 {
		return errors.NewAPIError(status, ErrorMessage(status, respBody))
	}

	return decodeInto(respBody, out)
}

func (c *Client) send(ctx context.Context, req *Request, body []byte, contentType, token string) (int, []byte, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	noCache := req.NoCache || strings.HasPrefix(req.Path, "/documents")
	query := cloneValues(req.Query)
	nonce := ""
	if noCache {
		nonce = uuid.NewString()
		stamp := strconv.FormatInt(c.now().UnixMilli(), 10)
		query.Set("t", stamp)
		query.Set("noCache", nonce)
		query.Set("v", stamp)
	}

	target := c.baseURL + req.Path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, errors.NewNetworkError(err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	if token != "" {
		httpReq.Header.Set("Authorization", BearerToken(token))
	} else if auth := httpReq.Header.Get("Authorization"); auth != "" {
		httpReq.Header.Set("Authorization", BearerToken(auth))
	}
	if noCache {
		setNoCacheHeaders(httpReq.Header, nonce)
	}

	metrics.InflightRequests.Inc()
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	metrics.InflightRequests.Dec()
	metrics.APIRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "error").Inc()
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		c.logger.Warn("Request failed", map[string]interface{}{
			"method": method,
			"path":   req.Path,
			"error":  err.Error(),
		})
		return 0, nil, errors.NewNetworkError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.NewNetworkError(err)
	}

	metrics.APIRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug("Request completed", map[string]interface{}{
		"method":     method,
		"path":       req.Path,
		"status":     resp.StatusCode,
		"durationMs": time.Since(start).Milliseconds(),
	})

	return resp.StatusCode, respBody, nil
}

func (c *Client) sessionExpired(details string) error {
	err := errors.NewSessionExpiredError(details)

	c.mu.RLock()
	fn := c.onAuthError
	c.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
	return err
}

// BearerToken adds the "Bearer " prefix unless it is already there.
func BearerToken(token string) string {
	if strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return "Bearer " + token
}

func setNoCacheHeaders(h http.Header, nonce string) {
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate, max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
	h.Set("Surrogate-Control", "no-store")
	h.Set("If-None-Match", `"`+nonce+`"`)
}

// cacheParams are the query parameters added only to defeat caches.
var cacheParams = []string{"t", "noCache", "v"}

// StripCacheParams removes cache-busting parameters so two URLs for the same
// document compare equal.
func StripCacheParams(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	for _, p := range cacheParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func encodeBody(req *Request) ([]byte, string, error) {
	switch {
	case req.Multipart != nil:
		return encodeMultipart(req.Multipart)
	case req.Form != nil:
		return []byte(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	case req.JSON != nil:
		raw, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encode request: %w", err)
		}
		return raw, "application/json", nil
	}
	return nil, "", nil
}

func encodeMultipart(m *Multipart) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range m.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", err
		}
	}
	for _, f := range m.Files {
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(f.Field), escapeQuotes(f.FileName)))
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func decodeInto(body []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw = append((*raw)[:0], body...)
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewDecodeError(err)
	}
	return nil
}

// ErrorMessage extracts the human-readable message from an error body:
// JSON "detail", then "message", then the plain text body, then the status
// text.
func ErrorMessage(status int, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var payload struct {
			Detail  json.RawMessage `json:"detail"`
			Message string          `json:"message"`
		}
		if json.Unmarshal(trimmed, &payload) == nil {
			if msg := detailText(payload.Detail); msg != "" {
				return msg
			}
			if payload.Message != "" {
				return payload.Message
			}
		}
	} else if len(trimmed) > 0 && len(trimmed) <= 300 {
		return string(trimmed)
	}

	if text := http.StatusText(status); text != "" {
		return text
	}
	return "API error"
}

// detailText reads "detail" as a string or as a list of {msg} entries.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &list) == nil {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
