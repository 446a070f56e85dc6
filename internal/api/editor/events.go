package editor

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-style/internal/bridge"
	"github.com/joeblew999/plat-style/internal/humastar"
	"github.com/joeblew999/plat-style/internal/livesync"
	"github.com/joeblew999/plat-style/internal/style"
	"github.com/joeblew999/plat-style/internal/viewport"
)

type EventsInput struct {
	Fragment string `query:"fragment" doc:"Deep-link fragment of the page URL" example:"#5/41.4/2.2/0/0"`
}

// Events streams the session state to the page: a snapshot first, then every
// projection event raised by the sync core and the interaction bridge.
func (h *Handler) Events(ctx context.Context, input *EventsInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		ch := h.core.Bus().Subscribe()
		defer h.core.Bus().Unsubscribe(ch)

		h.open(sse, input.Fragment)

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				h.forward(sse, ev)
			}
		}
	}), nil
}

// open starts a page session: the camera comes from the page fragment, or
// the default viewport when there is none. The camera is never carried over
// from an earlier page.
func (h *Handler) open(sse humastar.SSE, fragment string) {
	h.core.ResolveViewport(fragment)
	h.snapshot(sse)
}

// snapshot sends everything a freshly opened page needs.
func (h *Handler) snapshot(sse humastar.SSE) {
	h.sendText(sse)
	h.sendDocument(sse, h.core.Document(), h.core.Version())
	h.sendViewport(sse, h.core.Viewport())
	h.sendParseErrorValue(sse, h.core.ParseError())
	if m, ok := h.core.Mark(); ok {
		h.sendHighlight(sse, &m)
	} else {
		h.sendHighlight(sse, nil)
	}
	if sel, ok := h.bridge.Selection(); ok {
		h.sendSelection(sse, &sel)
	} else {
		h.sendSelection(sse, nil)
	}
}

// forward translates one bus event into Datastar patches.
func (h *Handler) forward(sse humastar.SSE, ev livesync.Event) {
	switch ev.Topic {
	case livesync.TopicStyle:
		if doc, ok := ev.Data.(style.Document); ok {
			h.sendDocument(sse, doc, ev.Version)
		}
	case livesync.TopicText:
		if text, ok := ev.Data.(string); ok {
			sse.Signals(map[string]any{"text": text})
		}
	case livesync.TopicHighlight:
		m, _ := ev.Data.(*livesync.Mark)
		h.sendHighlight(sse, m)
	case livesync.TopicViewport:
		if v, ok := ev.Data.(viewport.Viewport); ok {
			h.sendViewport(sse, v)
		}
	case livesync.TopicParseError:
		pe, _ := ev.Data.(*style.ParseError)
		h.sendParseErrorValue(sse, pe)
	case livesync.TopicSelection:
		sel, _ := ev.Data.(*bridge.Selection)
		h.sendSelection(sse, sel)
	default:
		h.log.Debug("unknown event topic", zap.String("topic", string(ev.Topic)))
	}
}
