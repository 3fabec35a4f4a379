// Package scoreboard is the typed REST client for the IIDX ScoreBoard
// backend. Every request carries the session cookie jar and, when the
// backend has issued a CSRF cookie, echoes its value in the matching header
// (double-submit pattern).
package scoreboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"

	"golang.org/x/net/publicsuffix"

	"scoredeck/models"
)

const (
	// CSRFCookieName is the cookie the backend sets with the anti-forgery token.
	CSRFCookieName = "XSRF-TOKEN"
	// CSRFHeaderName is the header the token is echoed back in.
	CSRFHeaderName = "X-XSRF-TOKEN"
)

// APIError is a failed backend response, carrying the structured message
// from the response body when one was present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scoreboard: %d %s", e.StatusCode, e.Message)
}

// Client handles ScoreBoard API interactions.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
}

// NewClient creates a client rooted at baseURL with a fresh cookie jar.
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	// No client-wide timeout: requests run to completion, and a slow CSV
	// import must not be cut off mid-transfer. Cancellation, where wanted,
	// is the caller's context.
	return &Client{
		httpClient: &http.Client{Jar: jar},
		baseURL:    u,
	}, nil
}

// csrfToken returns the current anti-forgery token from the jar, if any.
func (c *Client) csrfToken() string {
	for _, ck := range c.httpClient.Jar.Cookies(c.baseURL) {
		if ck.Name == CSRFCookieName {
			return ck.Value
		}
	}
	return ""
}

// do executes a request against the backend and decodes a JSON body into
// out when out is non-nil. Unauthorized responses are logged and propagated
// unchanged; redirect-on-401 is the caller's concern.
func (c *Client) do(req *http.Request, out any) error {
	if token := c.csrfToken(); token != "" {
		req.Header.Set(CSRFHeaderName, token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("scoreboard api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		slog.Warn("scoreboard request unauthorized",
			"method", req.Method,
			"path", req.URL.Path,
		)
		return decodeError(resp)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// decodeError drains a failed response into an APIError, keeping the
// backend's structured message when the body carries one.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	}
	return apiErr
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Login authenticates against the backend; the session cookie lands in the jar.
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := c.do(req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout ends the backend session.
func (c *Client) Logout(ctx context.Context) error {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/auth/logout", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// SignupRequest is the locally validated signup form payload.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, sr SignupRequest) (*models.User, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/auth/signup", sr)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := c.do(req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me probes the current session. An error, 401 included, means no session.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/users/me", nil)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := c.do(req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ScoreQuery selects a page of the score list. Empty filter fields mean
// "match any" and are omitted from the transmitted query string.
type ScoreQuery struct {
	PlayStyle string
	Level     string
	ChartType string
	ClearType string
	Page      int
	Size      int
}

// Values builds the query string, stripping unset filter fields.
func (q ScoreQuery) Values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("playStyle", q.PlayStyle)
	set("level", q.Level)
	set("chartType", q.ChartType)
	set("clearType", q.ClearType)
	v.Set("page", strconv.Itoa(q.Page))
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	return v
}

// ListScores fetches one page of the filterable score list.
func (c *Client) ListScores(ctx context.Context, q ScoreQuery) (*models.ScorePage, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/scores", nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = q.Values().Encode()

	var page models.ScorePage
	if err := c.do(req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ProgressFunc receives upload progress in [0,1]. Calls are monotone
// non-decreasing and end with 1.0 once the body is fully sent.
type ProgressFunc func(fraction float64)

// ImportCSV uploads an e-amusement CSV export for ingestion.
func (c *Client) ImportCSV(ctx context.Context, filename string, content io.Reader, playStyle models.PlayStyle, progress ProgressFunc) (*models.ImportResult, error) {
	body, contentType, err := multipartBody(filename, content, map[string]string{
		"playStyle": string(playStyle),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/import/iidx/score"), newProgressReader(body, progress))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(body.Len())

	var result models.ImportResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadAvatar replaces the current user's avatar image.
func (c *Client) UploadAvatar(ctx context.Context, filename string, content io.Reader) error {
	body, contentType, err := multipartBody(filename, content, nil)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/users/me/avatar"), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(body.Len())

	return c.do(req, nil)
}

// multipartBody assembles a file upload body in memory. Uploads are capped
// well below anything worth streaming.
func multipartBody(filename string, content io.Reader, fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("copy upload content: %w", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// progressReader reports fractional progress as the request body drains.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	reported float64
	fn       ProgressFunc
}

func newProgressReader(body *bytes.Buffer, fn ProgressFunc) io.Reader {
	if fn == nil {
		return body
	}
	return &progressReader{r: body, total: int64(body.Len()), fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		frac := float64(p.read) / float64(p.total)
		if frac > 1 {
			frac = 1
		}
		// Clamp monotone; Read never moves backwards but keep the contract explicit.
		if frac > p.reported {
			p.reported = frac
			p.fn(frac)
		}
	}
	return n, err
}
