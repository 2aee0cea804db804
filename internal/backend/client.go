// Package backend is the HTTP client for the terrain-analysis service.
//
// The service exposes two endpoints:
//
//	POST {base}/upload/           multipart "file" → {"file_id": "..."}
//	GET  {base}/process/{file_id} → {"status": "...", "results": {...}}
//
// Failures come back as non-2xx responses with a {"detail": "..."} body.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joeblew999/droneflow/internal/projector"
)

// Config configures a Client.
type Config struct {
	BaseURL        string
	UploadTimeout  time.Duration
	ProcessTimeout time.Duration
	HTTPClient     *http.Client
}

// Client talks to the terrain-analysis backend.
type Client struct {
	base           string
	http           *http.Client
	uploadTimeout  time.Duration
	processTimeout time.Duration
}

// New creates a backend client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		base:           strings.TrimRight(cfg.BaseURL, "/"),
		http:           hc,
		uploadTimeout:  cfg.UploadTimeout,
		processTimeout: cfg.ProcessTimeout,
	}
}

// UploadResponse is the body returned by the upload endpoint.
type UploadResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// Upload streams src to the backend and returns the assigned file id.
func (c *Client) Upload(ctx context.Context, src Source) (string, error) {
	if err := CheckFormat(src.Name()); err != nil {
		return "", err
	}
	if c.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.uploadTimeout)
		defer cancel()
	}

	f, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src.Name(), err)
	}
	defer f.Close()

	// Stream the multipart body so large point clouds are not buffered.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", src.Name())
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/upload/", pr)
	if err != nil {
		pr.Close()
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	body, err := c.fetch(req, "upload")
	if err != nil {
		pr.CloseWithError(err)
		return "", err
	}
	var out UploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("upload: decode response: %w", err)
	}
	if out.FileID == "" {
		return "", fmt.Errorf("upload: response has no file_id")
	}
	return out.FileID, nil
}

// Process runs the analysis for fileID and returns the decoded response. A
// missing "results" member is not an error here; the projector decides that.
func (c *Client) Process(ctx context.Context, fileID string) (map[string]any, error) {
	if c.processTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.processTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/process/"+url.PathEscape(fileID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.fetch(req, "process")
	if err != nil {
		return nil, err
	}
	raw, err := projector.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("process: decode response: %w", err)
	}
	return raw, nil
}

func (c *Client) fetch(req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Detail: detail(body)}
	}
	return body, nil
}

// detail extracts the FastAPI error message, falling back to the raw body.
func detail(body []byte) string {
	var e struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != nil {
		if s, ok := e.Detail.(string); ok {
			return s
		}
		b, _ := json.Marshal(e.Detail)
		return string(b)
	}
	return truncate(strings.TrimSpace(string(body)), maxDetailBytes)
}

const maxDetailBytes = 200

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
