// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-style/internal/livesync"
	"github.com/joeblew999/plat-style/internal/style"
	"github.com/joeblew999/plat-style/internal/viewport"
)

// Services holds the dependencies of the API handlers.
type Services struct {
	Core *livesync.Core
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"water"`
}

// RawInput carries a style document exactly as sent, so its formatting and
// key order survive into the editor text.
type RawInput struct {
	RawBody []byte
}

type StyleOutput struct {
	ETag string          `header:"ETag" doc:"Document version"`
	Body json.RawMessage `doc:"Style document"`
}

type ParseErrorBody struct {
	Message string `json:"message" doc:"What is wrong with the text"`
	Offset  int64  `json:"offset" doc:"Byte offset of the error"`
	Line    int    `json:"line" doc:"1-based line"`
	Column  int    `json:"column" doc:"1-based column"`
}

type TextBody struct {
	Text       string          `json:"text" doc:"Current editor text; may not parse"`
	Version    uint64          `json:"version" doc:"Version of the published document"`
	ParseError *ParseErrorBody `json:"parseError,omitempty" doc:"Why the text was not published"`
	Mark       *livesync.Mark  `json:"mark,omitempty" doc:"Highlighted span"`
}

type VisibilityInput struct {
	IDInput
	Body struct {
		Visible bool `json:"visible" doc:"Whether the layer is drawn"`
	}
}

type ViewportBody struct {
	Viewport viewport.Viewport `json:"viewport" doc:"Camera"`
	Fragment string            `json:"fragment" doc:"Deep-link fragment" example:"5/41.4/2.2/0/0"`
}

type ResolveInput struct {
	Fragment string `query:"fragment" doc:"Deep-link fragment, with or without #" example:"12/51.5/-0.12/0/0"`
}

type TileBody struct {
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
	Z int    `json:"z"`
}

type ResolveBody struct {
	ViewportBody
	FromFragment bool       `json:"fromFragment" doc:"False when the default viewport was used"`
	Center       [2]float64 `json:"center" doc:"[longitude, latitude]"`
	CenterTile   TileBody   `json:"centerTile" doc:"Tile containing the center at the current zoom"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every REST route.
func RegisterRoutes(api huma.API, svc *Services, info *InfoHandler) {
	huma.AutoRegister(api, NewAPIHandler(svc))
	if info != nil {
		info.RegisterRoutes(api)
	}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"), operationID("health"))
}

// RegisterStyle registers style document routes.
func (h *APIHandler) RegisterStyle(api huma.API) {
	huma.Get(api, "/api/v1/style", h.GetStyle, huma.OperationTags("style"), operationID("get-style"))
	huma.Put(api, "/api/v1/style", h.PutStyle, huma.OperationTags("style"), operationID("put-style"))
	huma.Post(api, "/api/v1/style/import", h.ImportStyle, huma.OperationTags("style"), operationID("import-style"))
	huma.Post(api, "/api/v1/style/reset", h.ResetStyle, huma.OperationTags("style"), operationID("reset-style"))
	huma.Get(api, "/api/v1/style/text", h.GetText, huma.OperationTags("style"), operationID("get-text"))
	huma.Get(api, "/api/v1/style/layers", h.GetLayers, huma.OperationTags("style"), operationID("list-layers"))
	huma.Put(api, "/api/v1/style/layers/{id}/visibility", h.PutVisibility, huma.OperationTags("style"), operationID("set-layer-visibility"))
	huma.Get(api, "/api/v1/style/locate/{id}", h.Locate, huma.OperationTags("style"), operationID("locate-layer"))
}

// RegisterViewport registers camera routes.
func (h *APIHandler) RegisterViewport(api huma.API) {
	huma.Get(api, "/api/v1/viewport", h.GetViewport, huma.OperationTags("viewport"), operationID("get-viewport"))
	huma.Put(api, "/api/v1/viewport", h.PutViewport, huma.OperationTags("viewport"), operationID("set-viewport"))
	huma.Get(api, "/api/v1/viewport/resolve", h.ResolveViewport, huma.OperationTags("viewport"), operationID("resolve-viewport"))
}

// operationID pins the OperationID, which names the generated client method.
func operationID(id string) func(o *huma.Operation) {
	return func(o *huma.Operation) {
		o.OperationID = id
	}
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) styleOutput() *StyleOutput {
	return &StyleOutput{
		ETag: fmt.Sprintf(`"v%d"`, h.svc.Core.Version()),
		Body: h.svc.Core.Document().Raw(),
	}
}

func (h *APIHandler) GetStyle(ctx context.Context, input *struct{}) (*StyleOutput, error) {
	return h.styleOutput(), nil
}

// PutStyle replaces the editor text and publishes it if it parses.
func (h *APIHandler) PutStyle(ctx context.Context, input *RawInput) (*StyleOutput, error) {
	if err := h.svc.Core.OnEdit(ctx, string(input.RawBody)); err != nil {
		return nil, httpError(err)
	}
	return h.styleOutput(), nil
}

// ImportStyle replaces the document and the editor text wholesale.
func (h *APIHandler) ImportStyle(ctx context.Context, input *RawInput) (*StyleOutput, error) {
	if err := h.svc.Core.OnImport(ctx, string(input.RawBody)); err != nil {
		return nil, httpError(err)
	}
	return h.styleOutput(), nil
}

func (h *APIHandler) ResetStyle(ctx context.Context, input *struct{}) (*StyleOutput, error) {
	if err := h.svc.Core.Reset(ctx); err != nil {
		return nil, httpError(err)
	}
	return h.styleOutput(), nil
}

func (h *APIHandler) GetText(ctx context.Context, input *struct{}) (*struct{ Body TextBody }, error) {
	core := h.svc.Core
	body := TextBody{
		Text:       core.Text(),
		Version:    core.Version(),
		ParseError: NewParseErrorBody(core.ParseError()),
	}
	if m, ok := core.Mark(); ok {
		body.Mark = &m
	}
	return &struct{ Body TextBody }{Body: body}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*struct{ Body []style.Layer }, error) {
	layers := h.svc.Core.Layers()
	if layers == nil {
		layers = []style.Layer{}
	}
	return &struct{ Body []style.Layer }{Body: layers}, nil
}

func (h *APIHandler) PutVisibility(ctx context.Context, input *VisibilityInput) (*struct{ Body []style.Layer }, error) {
	if err := h.svc.Core.SetLayerVisibility(ctx, input.ID, input.Body.Visible); err != nil {
		return nil, httpError(err)
	}
	return h.GetLayers(ctx, nil)
}

func (h *APIHandler) Locate(ctx context.Context, input *IDInput) (*struct{ Body livesync.Mark }, error) {
	m, ok := h.svc.Core.Locate(input.ID)
	if !ok {
		return nil, huma.Error404NotFound(fmt.Sprintf("layer %q not found in text", input.ID))
	}
	return &struct{ Body livesync.Mark }{Body: m}, nil
}

func (h *APIHandler) GetViewport(ctx context.Context, input *struct{}) (*struct{ Body ViewportBody }, error) {
	v := h.svc.Core.Viewport()
	return &struct{ Body ViewportBody }{Body: ViewportBody{Viewport: v, Fragment: viewport.Encode(v)}}, nil
}

func (h *APIHandler) PutViewport(ctx context.Context, input *struct{ Body viewport.Viewport }) (*struct{ Body ViewportBody }, error) {
	fragment, err := h.svc.Core.SetViewport(input.Body)
	if err != nil {
		return nil, httpError(err)
	}
	return &struct{ Body ViewportBody }{Body: ViewportBody{
		Viewport: input.Body.WithoutTransition(), Fragment: fragment,
	}}, nil
}

// ResolveViewport decodes a fragment without changing the camera.
func (h *APIHandler) ResolveViewport(ctx context.Context, input *ResolveInput) (*struct{ Body ResolveBody }, error) {
	v, used := viewport.Resolve(input.Fragment)
	tile := v.CenterTile()
	return &struct{ Body ResolveBody }{Body: ResolveBody{
		ViewportBody: ViewportBody{Viewport: v, Fragment: viewport.Encode(v)},
		FromFragment: used,
		Center:       v.Center(),
		CenterTile:   tileBody(tile),
	}}, nil
}

func tileBody(t maptile.Tile) TileBody {
	return TileBody{X: t.X, Y: t.Y, Z: int(t.Z)}
}

// NewParseErrorBody converts a parse error for a response body; nil stays nil.
func NewParseErrorBody(pe *style.ParseError) *ParseErrorBody {
	if pe == nil {
		return nil
	}
	return &ParseErrorBody{Message: pe.Err.Error(), Offset: pe.Offset, Line: pe.Line, Column: pe.Column}
}

// httpError maps sync core errors to Huma status errors.
func httpError(err error) error {
	var pe *style.ParseError
	switch {
	case errors.As(err, &pe):
		return huma.Error422UnprocessableEntity(pe.Error(), &huma.ErrorDetail{
			Message:  pe.Err.Error(),
			Location: fmt.Sprintf("body[%d]", pe.Offset),
			Value:    NewParseErrorBody(pe),
		})
	case errors.Is(err, livesync.ErrLayerNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, livesync.ErrTextInvalid):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, livesync.ErrInvalidViewport):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error500InternalServerError("style update failed", err)
	}
}
