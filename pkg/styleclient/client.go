// Package styleclient is the Go client SDK for the plat-style REST API.
//
// It follows the layout humaclient produces from the OpenAPI document;
// `styled gen-client` regenerates it after the REST operations change.
package styleclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PlatStyleAPIClient is the client interface for the plat-style API.
type PlatStyleAPIClient interface {
	Health(ctx context.Context, opts ...Option) (*http.Response, HealthBody, error)
	GetInfo(ctx context.Context, opts ...Option) (*http.Response, InfoBody, error)
	GetStyle(ctx context.Context, opts ...Option) (*http.Response, json.RawMessage, error)
	PutStyle(ctx context.Context, body []byte, opts ...Option) (*http.Response, json.RawMessage, error)
	ImportStyle(ctx context.Context, body []byte, opts ...Option) (*http.Response, json.RawMessage, error)
	ResetStyle(ctx context.Context, opts ...Option) (*http.Response, json.RawMessage, error)
	GetText(ctx context.Context, opts ...Option) (*http.Response, TextBody, error)
	ListLayers(ctx context.Context, opts ...Option) (*http.Response, []Layer, error)
	SetLayerVisibility(ctx context.Context, id string, body SetLayerVisibilityInputBody, opts ...Option) (*http.Response, []Layer, error)
	LocateLayer(ctx context.Context, id string, opts ...Option) (*http.Response, Mark, error)
	GetViewport(ctx context.Context, opts ...Option) (*http.Response, ViewportBody, error)
	SetViewport(ctx context.Context, body Viewport, opts ...Option) (*http.Response, ViewportBody, error)
	ResolveViewport(ctx context.Context, opts ...Option) (*http.Response, ResolveBody, error)
}

// ErrorModel is an RFC 9457 problem response.
type ErrorModel struct {
	Status int           `json:"status,omitempty"`
	Title  string        `json:"title,omitempty"`
	Detail string        `json:"detail,omitempty"`
	Errors []ErrorDetail `json:"errors,omitempty"`
}

type ErrorDetail struct {
	Location string `json:"location,omitempty"`
	Message  string `json:"message,omitempty"`
	Value    any    `json:"value,omitempty"`
}

func (e *ErrorModel) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Title)
}

type HealthBody struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type InfoBody struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	DataDir       string   `json:"data_dir"`
	Store         string   `json:"store"`
	Slot          string   `json:"slot"`
	StyleVersion  uint64   `json:"style_version"`
	Saves         int64    `json:"saves"`
	LastSaveError string   `json:"last_save_error,omitempty"`
	Features      []string `json:"features"`
}

type Layer struct {
	ID          string `json:"id"`
	Type        string `json:"type,omitempty"`
	Source      string `json:"source,omitempty"`
	SourceLayer string `json:"sourceLayer,omitempty"`
	Visible     bool   `json:"visible"`
}

type Pos struct {
	Line int64 `json:"line"`
	Ch   int64 `json:"ch"`
}

type Mark struct {
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	From  Pos    `json:"from"`
	To    Pos    `json:"to"`
	Text  string `json:"text"`
}

type ParseErrorBody struct {
	Message string `json:"message"`
	Offset  int64  `json:"offset"`
	Line    int64  `json:"line"`
	Column  int64  `json:"column"`
}

type TextBody struct {
	Text       string          `json:"text"`
	Version    uint64          `json:"version"`
	ParseError *ParseErrorBody `json:"parseError,omitempty"`
	Mark       *Mark           `json:"mark,omitempty"`
}

type SetLayerVisibilityInputBody struct {
	Visible bool `json:"visible"`
}

type Transition struct {
	Duration     int64  `json:"duration"`
	Interpolator string `json:"interpolator"`
}

type Viewport struct {
	Zoom       float64     `json:"zoom"`
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	Bearing    float64     `json:"bearing"`
	Pitch      float64     `json:"pitch"`
	Transition *Transition `json:"transition,omitempty"`
}

type ViewportBody struct {
	Viewport Viewport `json:"viewport"`
	Fragment string   `json:"fragment"`
}

type TileBody struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
	Z int64 `json:"z"`
}

type ResolveBody struct {
	Viewport     Viewport   `json:"viewport"`
	Fragment     string     `json:"fragment"`
	FromFragment bool       `json:"fromFragment"`
	Center       [2]float64 `json:"center"`
	CenterTile   TileBody   `json:"centerTile"`
}

// RequestOptions holds the per-request settings applied by an Option.
type RequestOptions struct {
	Headers map[string]string
	Query   url.Values
}

// Option customizes a single request.
type Option func(*RequestOptions)

// WithHeader sets a request header.
func WithHeader(key, value string) Option {
	return func(o *RequestOptions) {
		o.Headers[key] = value
	}
}

// WithQuery adds a query parameter.
func WithQuery(key, value string) Option {
	return func(o *RequestOptions) {
		o.Query.Add(key, value)
	}
}

// WithFragment sets the fragment query parameter of ResolveViewport.
func WithFragment(fragment string) Option {
	return WithQuery("fragment", fragment)
}

// PlatStyleAPIClientImpl implements PlatStyleAPIClient over HTTP.
type PlatStyleAPIClientImpl struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL, e.g. "http://localhost:8086".
func New(baseURL string) PlatStyleAPIClient {
	return NewWithClient(baseURL, &http.Client{Timeout: 30 * time.Second})
}

// NewWithClient creates a client that sends requests through httpClient.
func NewWithClient(baseURL string, httpClient *http.Client) PlatStyleAPIClient {
	return &PlatStyleAPIClientImpl{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *PlatStyleAPIClientImpl) Health(ctx context.Context, opts ...Option) (*http.Response, HealthBody, error) {
	var out HealthBody
	resp, err := c.do(ctx, http.MethodGet, "/health", nil, &out, opts)
	return resp, out, err
}

func (c *PlatStyleAPIClientImpl) GetInfo(ctx context.Context, opts ...Option) (*http.Response, InfoBody, error) {
	var out InfoBody
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/info", nil, &out, opts)
	return resp, out, err
}

func (c *PlatStyleAPIClientImpl) GetStyle(ctx context.Context, opts ...Option) (*http.Response, json.RawMessage, error) {
	var out json.RawMessage
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/style", nil, &out, opts)
	return resp, out, err
}

func (c *PlatStyleAPIClientImpl) PutStyle(ctx context.Context, body []byte, opts ...Option) (*http.Response, json.RawMessage, error) {
	var out json.RawMessage
	resp, err := c.do(ctx, http.MethodPut, "/api/v1/style", json.RawMessage(body), &out, opts)
	return resp, out, err
}

func (c *PlatStyleAPIClientImpl) ImportStyle(ctx context.Context, body []byte, opts ...Option) (*http.Response, json.RawMessage, error) {
	var out json.RawMessage
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/style/import", json.RawMessage(body), &out, opts)
	return resp, out, err
}

func (c *PlatStyleAPIClientImpl) ResetStyle(ctx context.Context, opts ...Option) (*http.Response, json.RawMessage, error) {
	var out json.RawMessage
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/style/reset", nil, &out, opts)
	return resp, out, err
}

func (c *PlatStyleAPIClientImpl) GetText(ctx context.Context, opts ...Option) (*http.Response, TextBody, error) {
	var out TextBody
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/style/text", nil, &out, opts)
	return resp, out, err
}

func (c *PlatStyleAPIClientImpl) ListLayers(ctx context.Context, opts ...Option) (*http.Response, []Layer, error) {
	var out []Layer
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/style/layers", nil, &out, opts)
	return resp, out, err
}

func (c *PlatStyleAPIClientImpl) SetLayerVisibility(ctx context.Context, id string, body SetLayerVisibilityInputBody, opts ...Option) (*http.Response, []Layer, error) {
	var out []Layer
	path := "/api/v1/style/layers/" + url.PathEscape(id) + "/visibility"
	resp, err := c.do(ctx, http.MethodPut, path, body, &out, opts)
	return resp, out, err
}

func (c *PlatStyleAPIClientImpl) LocateLayer(ctx context.Context, id string, opts ...Option) (*http.Response, Mark, error) {
	var out Mark
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/style/locate/"+url.PathEscape(id), nil, &out, opts)
	return resp, out, err
}

func (c *PlatStyleAPIClientImpl) GetViewport(ctx context.Context, opts ...Option) (*http.Response, ViewportBody, error) {
	var out ViewportBody
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/viewport", nil, &out, opts)
	return resp, out, err
}

func (c *PlatStyleAPIClientImpl) SetViewport(ctx context.Context, body Viewport, opts ...Option) (*http.Response, ViewportBody, error) {
	var out ViewportBody
	resp, err := c.do(ctx, http.MethodPut, "/api/v1/viewport", body, &out, opts)
	return resp, out, err
}

func (c *PlatStyleAPIClientImpl) ResolveViewport(ctx context.Context, opts ...Option) (*http.Response, ResolveBody, error) {
	var out ResolveBody
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/viewport/resolve", nil, &out, opts)
	return resp, out, err
}

func (c *PlatStyleAPIClientImpl) do(ctx context.Context, method, path string, body, out any, opts []Option) (*http.Response, error) {
	ro := &RequestOptions{Headers: map[string]string{}, Query: url.Values{}}
	for _, opt := range opts {
		opt(ro)
	}

	u := c.baseURL + path
	if len(ro.Query) > 0 {
		u += "?" + ro.Query.Encode()
	}

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case json.RawMessage:
		// Sent as is: the server reports syntax errors with their position.
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range ro.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, err
	}
	if resp.StatusCode >= 300 {
		apiErr := &ErrorModel{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
		json.Unmarshal(data, apiErr)
		return resp, apiErr
	}
	if out == nil || len(data) == 0 {
		return resp, nil
	}
	return resp, json.Unmarshal(data, out)
}
