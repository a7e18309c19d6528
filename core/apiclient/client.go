// Package apiclient talks to the remote school REST API. Every failure comes back
// as an *Error classified as validation, network, timeout, http or unexpected.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
)

const (
	RequestIDHeader = "X-Request-ID"

	defaultTimeout = 30 * time.Second
	shortTimeout   = 10 * time.Second
	uploadTimeout  = 120 * time.Second

	maxErrorBody = 64 << 10
)

type (
	Options struct {
		BaseURL        string
		Token          string
		DefaultTimeout time.Duration
		ShortTimeout   time.Duration
		UploadTimeout  time.Duration
		HTTPClient     *http.Client
	}

	// Blob is a downloaded file.
	Blob struct {
		ContentType string
		Filename    string
		Data        []byte
	}

	Client struct {
		opts   Options
		http   *http.Client
		logger core.Logger
	}
)

// NewOptions reads the client options from the application config.
func NewOptions(conf core.APIConfig) Options {
	return Options{
		BaseURL:        conf.BaseURL,
		Token:          conf.Token,
		DefaultTimeout: conf.DefaultTimeout,
		ShortTimeout:   conf.ShortTimeout,
		UploadTimeout:  conf.UploadTimeout,
	}
}

func New(opts Options, logger core.Logger) *Client {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = defaultTimeout
	}
	if opts.ShortTimeout <= 0 {
		opts.ShortTimeout = shortTimeout
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = uploadTimeout
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{opts: opts, http: httpClient, logger: logger}
}

// WithToken returns a copy of the client authenticating with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.opts.Token = token
	return &cp
}

func (c *Client) BaseURL() string { return c.opts.BaseURL }

// ShortTimeout is the timeout of quick state changes (validate, activate, mark read).
func (c *Client) ShortTimeout() time.Duration { return c.opts.ShortTimeout }

func pickTimeout(def time.Duration, timeout []time.Duration) time.Duration {
	if len(timeout) > 0 && timeout[0] > 0 {
		return timeout[0]
	}
	return def
}

func (c *Client) url(path string, query url.Values) string {
	u := c.opts.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

type response struct {
	header http.Header
	body   []byte
}

// do sends one request and classifies every failure. It never retries.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader, timeout time.Duration) (*response, error) {
	op := method + " /" + strings.TrimLeft(path, "/")
	reqID := uuid.New().String()

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, c.url(path, query), body)
	if err != nil {
		return nil, &Error{Kind: KindUnexpected, Op: op, RequestID: reqID, Err: errors.Wrap(err, "building request")}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		apiErr := Classify(err)
		switch {
		case ctx.Err() == context.Canceled:
			apiErr = &Error{Kind: KindCanceled, Err: err}
		case ctx.Err() == nil && reqCtx.Err() == context.DeadlineExceeded:
			apiErr = &Error{Kind: KindTimeout, Err: err}
		case apiErr.Kind == KindUnexpected:
			apiErr.Kind = KindNetwork
		}
		apiErr.Op, apiErr.RequestID = op, reqID
		if apiErr.Kind != KindCanceled {
			c.logger.Warn(fmt.Sprintf("api: %s failed after %s", op, time.Since(start)), apiErr, map[string]interface{}{"request_id": reqID})
		}
		return nil, apiErr
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := httpError(op, reqID, resp.StatusCode, serverMessage(data))
		if resp.StatusCode >= 500 {
			c.logger.Error("api: server error", apiErr, map[string]interface{}{"request_id": reqID})
		} else {
			c.logger.Debug("api: " + apiErr.Error())
		}
		return nil, apiErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr := Classify(err)
		if apiErr.Kind == KindUnexpected {
			apiErr.Kind = KindNetwork
		}
		apiErr.Op, apiErr.RequestID = op, reqID
		return nil, apiErr
	}
	c.logger.Debug(fmt.Sprintf("api: %s %d in %s", op, resp.StatusCode, time.Since(start)))
	return &response{header: resp.Header, body: data}, nil
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload interface{}, timeout []time.Duration) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Kind: KindUnexpected, Op: method + " " + path, Err: errors.Wrap(err, "encoding body")}
		}
		body = bytes.NewReader(data)
	}
	resp, err := c.do(ctx, method, path, nil, "application/json", body, pickTimeout(c.opts.DefaultTimeout, timeout))
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// Get fetches path with the given query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values, timeout ...time.Duration) (json.RawMessage, error) {
	resp, err := c.do(ctx, http.MethodGet, path, query, "", nil, pickTimeout(c.opts.DefaultTimeout, timeout))
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

func (c *Client) Post(ctx context.Context, path string, payload interface{}, timeout ...time.Duration) (json.RawMessage, error) {
	return c.sendJSON(ctx, http.MethodPost, path, payload, timeout)
}

func (c *Client) Put(ctx context.Context, path string, payload interface{}, timeout ...time.Duration) (json.RawMessage, error) {
	return c.sendJSON(ctx, http.MethodPut, path, payload, timeout)
}

// Delete removes the resource at path. A resource that is already gone counts as deleted.
func (c *Client) Delete(ctx context.Context, path string, timeout ...time.Duration) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, "", nil, pickTimeout(c.opts.DefaultTimeout, timeout))
	if err != nil && IsNotFound(err) {
		return nil
	}
	return err
}

// Upload sends r as the multipart/form-data file field.
func (c *Client) Upload(ctx context.Context, path, field, filename string, r io.Reader) (json.RawMessage, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, &Error{Kind: KindUnexpected, Op: "POST " + path, Err: errors.Wrap(err, "creating form file")}
	}
	if _, err = io.Copy(part, r); err != nil {
		return nil, &Error{Kind: KindUnexpected, Op: "POST " + path, Err: errors.Wrap(err, "reading upload")}
	}
	if err = mw.Close(); err != nil {
		return nil, &Error{Kind: KindUnexpected, Op: "POST " + path, Err: errors.Wrap(err, "closing multipart writer")}
	}

	resp, err := c.do(ctx, http.MethodPost, path, nil, mw.FormDataContentType(), &buf, c.opts.UploadTimeout)
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// Download fetches a binary resource.
func (c *Client) Download(ctx context.Context, path string) (*Blob, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "", nil, c.opts.UploadTimeout)
	if err != nil {
		return nil, err
	}
	blob := &Blob{ContentType: resp.header.Get("Content-Type"), Data: resp.body}
	if blob.ContentType == "" {
		blob.ContentType = http.DetectContentType(resp.body)
	}
	if cd := resp.header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			blob.Filename = params["filename"]
		}
	}
	return blob, nil
}

// serverMessage extracts a human message from an error body.
func serverMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		return ""
	}
	if body[0] == '<' { // html error page
		return ""
	}
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

var listKeys = []string{"data", "content", "items", "results"}

// ListPayload returns the JSON array held by raw: raw itself, or the first array found
// under one of the usual envelope keys. Anything else yields an empty array.
func ListPayload(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage("[]")
	}
	switch trimmed[0] {
	case '[':
		return trimmed
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return json.RawMessage("[]")
		}
		for _, key := range listKeys {
			if v, ok := envelope[key]; ok {
				if v = bytes.TrimSpace(v); len(v) > 0 && v[0] == '[' {
					return v
				}
			}
		}
	}
	return json.RawMessage("[]")
}

// DecodeList decodes a list payload into dst (a pointer to a slice). Non-array
// payloads leave dst empty. Numbers are kept as json.Number when dst holds maps.
func DecodeList(raw json.RawMessage, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(ListPayload(raw)))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return &Error{Kind: KindUnexpected, Err: errors.Wrap(err, "decoding list")}
	}
	return nil
}

// Decode decodes a single-object payload, unwrapping a {"data": {...}} envelope.
func Decode(raw json.RawMessage, dst interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &Error{Kind: KindUnexpected, Err: errors.New("empty response body")}
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err == nil {
		if inner, ok := envelope["data"]; ok && len(bytes.TrimSpace(inner)) > 0 && bytes.TrimSpace(inner)[0] == '{' {
			trimmed = inner
		}
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return &Error{Kind: KindUnexpected, Err: errors.Wrap(err, "decoding response")}
	}
	return nil
}
