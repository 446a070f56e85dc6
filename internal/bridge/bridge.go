// Package bridge turns renderer and importer events into sync core requests.
package bridge

import (
	"context"
	"sync"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-style/internal/livesync"
)

// Selection is the result of a map click: the clicked point and the layers
// rendered there, deduplicated, in hit order.
type Selection struct {
	Point  orb.Point `json:"point" doc:"Clicked [longitude, latitude]"`
	Layers []string  `json:"layers" doc:"Unique ids of layers under the point"`
}

// Core is the part of the sync core the bridge drives.
type Core interface {
	Choose(layerID string) (livesync.Mark, bool)
	OnImport(ctx context.Context, contents string) error
	Bus() *livesync.Bus
}

// Bridge holds the current selection.
type Bridge struct {
	core Core

	mu        sync.Mutex
	selection *Selection
}

// New creates a bridge driving core.
func New(core Core) *Bridge {
	return &Bridge{core: core}
}

// OnMapClick records a selection when at least one layer was hit. A click
// that hits nothing leaves any open selection alone.
func (b *Bridge) OnMapClick(point orb.Point, layerIDs []string) (*Selection, bool) {
	var layers []string
	seen := map[string]bool{}
	for _, id := range layerIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		layers = append(layers, id)
	}
	if len(layers) == 0 {
		return nil, false
	}

	sel := &Selection{Point: point, Layers: layers}
	b.mu.Lock()
	b.selection = sel
	b.mu.Unlock()

	b.publish(sel)
	return sel, true
}

// OnChooseLayer locates layerID in the text and makes it the only mark.
// When the layer is not in the text the previous mark is still cleared.
func (b *Bridge) OnChooseLayer(layerID string) (livesync.Mark, bool) {
	return b.core.Choose(layerID)
}

// OnDismissSelection closes the selection. The mark is left as it is.
func (b *Bridge) OnDismissSelection() {
	b.mu.Lock()
	b.selection = nil
	b.mu.Unlock()
	b.publish(nil)
}

// OnFileRead hands the contents of a completed file read to the core.
func (b *Bridge) OnFileRead(ctx context.Context, contents []byte) error {
	return b.core.OnImport(ctx, string(contents))
}

// Selection returns the open selection, if any.
func (b *Bridge) Selection() (Selection, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.selection == nil {
		return Selection{}, false
	}
	return *b.selection, true
}

func (b *Bridge) publish(sel *Selection) {
	b.core.Bus().Publish(livesync.Event{Topic: livesync.TopicSelection, Data: sel})
}
