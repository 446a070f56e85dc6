// Package editor contains Datastar SSE handlers for the editor page.
//
// The page holds the map renderer and the text view. Everything the server
// knows reaches it through one long-lived event stream; user actions come
// back as small POSTs carrying Datastar signals.
package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-style/internal/bridge"
	"github.com/joeblew999/plat-style/internal/humastar"
	"github.com/joeblew999/plat-style/internal/livesync"
	"github.com/joeblew999/plat-style/internal/style"
	"github.com/joeblew999/plat-style/internal/templates"
	"github.com/joeblew999/plat-style/internal/viewport"
)

// maxImportSize bounds an imported style file.
const maxImportSize = 16 << 20

// Handler serves the editor event stream and action endpoints.
type Handler struct {
	humastar.Handler
	core   *livesync.Core
	bridge *bridge.Bridge
	log    *zap.Logger
}

// NewHandler creates the editor handler.
func NewHandler(core *livesync.Core, b *bridge.Bridge, renderer *templates.Renderer, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Handler: humastar.Handler{Renderer: renderer},
		core:    core,
		bridge:  b,
		log:     log.Named("editor"),
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/editor/events", h.Events, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/edit", h.Edit, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/import", h.Import, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/reset", h.Reset, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/click", h.Click, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/choose", h.Choose, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/dismiss", h.Dismiss, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/camera", h.Camera, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/visibility", h.Visibility, huma.OperationTags("editor"))
}

// Edit handles a change of the editor text (signal "text").
func (h *Handler) Edit(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	err = h.core.OnEdit(ctx, signals.String("text"))
	return h.Stream(func(sse humastar.SSE) {
		h.sendParseError(sse, err)
	}), nil
}

type ImportInput struct {
	RawBody huma.MultipartFormFiles[struct {
		File huma.FormFile `form:"file" contentType:"application/json,text/plain,application/octet-stream" required:"true"`
	}]
}

// Import reads an uploaded style file and replaces the document with it.
func (h *Handler) Import(ctx context.Context, input *ImportInput) (*huma.StreamResponse, error) {
	file := input.RawBody.Data().File
	data, err := io.ReadAll(io.LimitReader(file, maxImportSize+1))
	if err != nil {
		return nil, huma.Error400BadRequest("failed to read upload", err)
	}
	if len(data) > maxImportSize {
		return nil, huma.NewError(http.StatusRequestEntityTooLarge, fmt.Sprintf("style file exceeds %d bytes", maxImportSize))
	}

	err = h.bridge.OnFileRead(ctx, data)
	h.log.Info("style imported", zap.String("file", file.Filename), zap.Int("bytes", len(data)), zap.Error(err))
	return h.Stream(func(sse humastar.SSE) {
		if err != nil {
			// The editor still holds the previous text; the parse error
			// belongs to the file, not to it.
			sse.Error(fmt.Sprintf("%s rejected: %v", file.Filename, err))
			return
		}
		h.sendParseError(sse, nil)
		h.sendText(sse)
		h.sendDocument(sse, h.core.Document(), h.core.Version())
		h.sendHighlight(sse, nil)
	}), nil
}

// Reset restores the shipped default style.
func (h *Handler) Reset(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	err := h.core.Reset(ctx)
	return h.Stream(func(sse humastar.SSE) {
		if err != nil {
			sse.Error(err.Error())
			return
		}
		h.sendParseError(sse, nil)
		h.sendText(sse)
		h.sendDocument(sse, h.core.Document(), h.core.Version())
		h.sendHighlight(sse, nil)
	}), nil
}

// Click handles a map click (signal "click": {point: [lng, lat], layers: [...]}).
func (h *Handler) Click(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	click := signals.Object("click")
	pt, ok := click.Floats("point")
	if !ok || len(pt) != 2 {
		return nil, huma.Error400BadRequest("click.point must be [longitude, latitude]")
	}

	sel, ok := h.bridge.OnMapClick(orb.Point{pt[0], pt[1]}, click.Strings("layers"))
	return h.Stream(func(sse humastar.SSE) {
		if ok {
			h.sendSelection(sse, sel)
		}
	}), nil
}

// Choose highlights the chosen layer (signal "layer") in the text.
func (h *Handler) Choose(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	m, ok := h.bridge.OnChooseLayer(signals.String("layer"))
	return h.Stream(func(sse humastar.SSE) {
		if ok {
			h.sendHighlight(sse, &m)
			return
		}
		h.sendHighlight(sse, nil)
	}), nil
}

// Dismiss closes the layer popup. The highlight stays.
func (h *Handler) Dismiss(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	h.bridge.OnDismissSelection()
	return h.Stream(func(sse humastar.SSE) {
		h.sendSelection(sse, nil)
	}), nil
}

// Camera records a user-driven camera change (signal "camera").
func (h *Handler) Camera(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	cam := signals.Object("camera")
	if cam == nil {
		return nil, huma.Error400BadRequest("camera signal is required")
	}
	fragment, err := h.core.SetViewport(viewport.Viewport{
		Zoom:      cam.Float("zoom"),
		Latitude:  cam.Float("latitude"),
		Longitude: cam.Float("longitude"),
		Bearing:   cam.Float("bearing"),
		Pitch:     cam.Float("pitch"),
	})
	return h.Stream(func(sse humastar.SSE) {
		if err != nil {
			sse.Error(err.Error())
			return
		}
		sse.Signals(map[string]any{"hash": fragment})
	}), nil
}

// Visibility toggles layout.visibility of a layer (signals "layer", "visible").
func (h *Handler) Visibility(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	err = h.core.SetLayerVisibility(ctx, signals.String("layer"), signals.Bool("visible"))
	return h.Stream(func(sse humastar.SSE) {
		if err != nil {
			sse.Error(err.Error())
			return
		}
		h.sendText(sse)
		h.sendLayers(sse, h.core.Layers())
	}), nil
}

// --- projections ---

func (h *Handler) sendText(sse humastar.SSE) {
	sse.Signals(map[string]any{"text": h.core.Text()})
}

func (h *Handler) sendDocument(sse humastar.SSE, doc style.Document, version uint64) {
	sse.Event("style-changed", map[string]any{
		"style":   json.RawMessage(doc.Raw()),
		"version": version,
	})
	sse.Signals(map[string]any{"version": version})
	h.sendLayers(sse, doc.Layers())
}

func (h *Handler) sendLayers(sse humastar.SSE, layers []style.Layer) {
	sse.Patch(h.RenderList("layer-list", layers, len(layers), "No layers", "The style has no layers"), "#layer-list")
}

func (h *Handler) sendHighlight(sse humastar.SSE, m *livesync.Mark) {
	sse.Event("highlight-changed", map[string]any{"mark": m})
}

func (h *Handler) sendViewport(sse humastar.SSE, v viewport.Viewport) {
	sse.Event("viewport-changed", map[string]any{"viewport": v})
	sse.Signals(map[string]any{"hash": viewport.Encode(v)})
}

func (h *Handler) sendSelection(sse humastar.SSE, sel *bridge.Selection) {
	if sel == nil {
		sse.Clear("#layer-popup")
		return
	}
	sse.Patch(h.Renderer.MustRender("layer-popup", sel), "#layer-popup")
}

// sendParseError reports err when it is a parse error and clears the
// indicator when err is nil. Other errors go to the generic error signal.
func (h *Handler) sendParseError(sse humastar.SSE, err error) {
	var pe *style.ParseError
	switch {
	case err == nil:
	case errors.As(err, &pe):
	default:
		sse.Error(err.Error())
		return
	}
	h.sendParseErrorValue(sse, pe)
}

func (h *Handler) sendParseErrorValue(sse humastar.SSE, pe *style.ParseError) {
	msg := ""
	if pe != nil {
		msg = pe.Error()
	}
	sse.Signals(map[string]any{"parseError": msg})
	var buf bytes.Buffer
	h.Renderer.RenderToBuffer(&buf, "parse-error", pe)
	sse.Patch(buf.String(), "#parse-error")
}
