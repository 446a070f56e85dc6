// Package livesync keeps the style text, the published style document, its
// persisted copy and the map viewport consistent with each other.
//
// Every external event (edit, import, click-to-locate, camera move) is handled
// under one lock, so the core behaves as a single event thread. Text is
// parsed before anything is published: invalid intermediate text is kept in
// the text view but never reaches the renderer or the persisted slot.
package livesync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-style/internal/style"
	"github.com/joeblew999/plat-style/internal/viewport"
)

var (
	// ErrLayerNotFound is returned when a layer id is absent from the current document.
	ErrLayerNotFound = errors.New("layer not found")
	// ErrTextInvalid is returned by operations that rewrite the text while it does not parse.
	ErrTextInvalid = errors.New("text has unresolved parse errors")
	// ErrInvalidViewport is returned for a camera with non-finite or out-of-range values.
	ErrInvalidViewport = errors.New("invalid viewport")
)

// Persister loads and saves the durable copy of the document.
type Persister interface {
	Load(ctx context.Context) style.Document
	Save(ctx context.Context, doc style.Document) error
}

// Options configures a Core. Only Persister is required.
type Options struct {
	Persister Persister
	Fallback  style.Document // shipped default; style.Default() when empty
	Store     *style.Store
	View      TextView
	Bus       *Bus
	Logger    *zap.Logger
}

// Core is the synchronization core.
type Core struct {
	mu        sync.Mutex
	store     *style.Store
	persister Persister
	fallback  style.Document
	view      TextView
	bus       *Bus
	log       *zap.Logger

	viewport viewport.Viewport
	parseErr *style.ParseError
	saveErr  error
	saves    int
}

// New creates a Core and subscribes the persistence and projection
// subscribers to the store.
func New(opts Options) *Core {
	c := &Core{
		store:     opts.Store,
		persister: opts.Persister,
		fallback:  opts.Fallback,
		view:      opts.View,
		bus:       opts.Bus,
		log:       opts.Logger,
		viewport:  viewport.Default(),
	}
	if c.store == nil {
		c.store = style.NewStore()
	}
	if c.fallback.IsEmpty() {
		c.fallback = style.Default()
	}
	if c.view == nil {
		c.view = NewBuffer()
	}
	if c.bus == nil {
		c.bus = NewBus()
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.log = c.log.Named("livesync")

	c.store.Subscribe(c.project)
	c.store.Subscribe(c.persist)
	return c
}

// Bus returns the projection event bus.
func (c *Core) Bus() *Bus { return c.bus }

// project forwards every publication to the renderer projection.
func (c *Core) project(_ context.Context, p style.Publication) {
	c.bus.Publish(Event{Topic: TopicStyle, Version: p.Version, Data: p.Doc})
}

// persist writes the latest version for every publication except the
// startup one, which came from the slot or the default in the first place.
// Runs with c.mu held.
func (c *Core) persist(ctx context.Context, p style.Publication) {
	if p.Cause == style.CauseStartup {
		return
	}
	c.saves++
	if err := c.persister.Save(context.WithoutCancel(ctx), c.store.Current()); err != nil {
		c.saveErr = err
		c.log.Warn("persisting style failed; in-memory document stays current",
			zap.Uint64("version", p.Version), zap.Error(err))
		return
	}
	c.saveErr = nil
}

// Start resolves the initial viewport from fragment and the initial document
// from the persisted slot, falling back to the shipped default. The initial
// document is published but not written back.
func (c *Core) Start(ctx context.Context, fragment string) (style.Document, viewport.Viewport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vp := c.resolveViewport(fragment)

	persisted := c.persister.Load(ctx)
	doc := c.store.Initialize(ctx, persisted, c.fallback)
	c.setText(doc.Text())
	c.setHighlight(nil)

	c.log.Info("session started",
		zap.Bool("persisted", !persisted.IsEmpty()),
		zap.Int("layers", len(doc.Layers())),
		zap.String("viewport", viewport.Encode(vp)))
	return doc, vp
}

// OnEdit handles a change of the editor text. The text view always mirrors
// text; the document is republished only when text parses.
func (c *Core) OnEdit(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.edit(ctx, text)
}

func (c *Core) edit(ctx context.Context, text string) error {
	_, hadMark := c.view.Highlight()
	c.view.SetText(text)
	if _, ok := c.view.Highlight(); hadMark && !ok {
		c.publishHighlight()
	}

	if _, err := c.store.Replace(ctx, style.CauseEdit, text); err != nil {
		return c.rejected(err)
	}
	c.clearParseError()
	return nil
}

// OnImport replaces the document with the contents of an imported file.
// On success the text view is replaced by the formatted document and any
// highlight is cleared, since it pointed into the old text.
func (c *Core) OnImport(ctx context.Context, contents string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replaceWholesale(ctx, contents)
}

// Reset restores the shipped default style through the import path.
func (c *Core) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replaceWholesale(ctx, c.fallback.Text())
}

// replaceWholesale publishes contents and makes it the text. A rejected file
// is returned to the caller only: the text view still holds the previous,
// valid text, so no parse error is recorded against it.
func (c *Core) replaceWholesale(ctx context.Context, contents string) error {
	doc, err := c.store.Replace(ctx, style.CauseImport, contents)
	if err != nil {
		c.log.Debug("import rejected", zap.Error(err))
		return err
	}
	c.clearParseError()
	c.setText(doc.Text())
	c.setHighlight(nil)
	return nil
}

func (c *Core) rejected(err error) error {
	var pe *style.ParseError
	if errors.As(err, &pe) {
		c.parseErr = pe
		c.bus.Publish(Event{Topic: TopicParseError, Version: c.store.Version(), Data: pe})
	}
	c.log.Debug("text rejected", zap.Error(err))
	return err
}

func (c *Core) clearParseError() {
	if c.parseErr == nil {
		return
	}
	c.parseErr = nil
	c.bus.Publish(Event{Topic: TopicParseError, Version: c.store.Version()})
}

func (c *Core) setText(text string) {
	c.view.SetText(text)
	c.bus.Publish(Event{Topic: TopicText, Version: c.store.Version(), Data: text})
}

func (c *Core) setHighlight(m *Mark) {
	c.view.SetHighlight(m)
	c.publishHighlight()
}

func (c *Core) publishHighlight() {
	var data *Mark
	if m, ok := c.view.Highlight(); ok {
		data = &m
	}
	c.bus.Publish(Event{Topic: TopicHighlight, Version: c.store.Version(), Data: data})
}

// LocatePattern is the text searched for when locating a layer.
func LocatePattern(layerID string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.Encode(layerID)
	return `"id": ` + strings.TrimSuffix(buf.String(), "\n")
}

// Locate finds the first `"id": "<layerID>"` in the current text. With
// duplicate ids the first match wins.
func (c *Core) Locate(layerID string) (Mark, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.Search(LocatePattern(layerID))
}

// Choose locates layerID and makes it the only mark, under one lock so an
// edit cannot land between the search and the highlight. When the layer is
// not in the text the previous mark is still cleared.
func (c *Core) Choose(layerID string) (Mark, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.view.Search(LocatePattern(layerID))
	if !ok {
		c.setHighlight(nil)
		return Mark{}, false
	}
	c.setHighlight(&m)
	return m, true
}

// Highlight replaces the single live mark; nil clears it.
func (c *Core) Highlight(m *Mark) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setHighlight(m)
}

// ResolveViewport applies the viewport encoded in fragment, or the default
// viewport when fragment is absent or malformed.
func (c *Core) ResolveViewport(fragment string) viewport.Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolveViewport(fragment)
}

func (c *Core) resolveViewport(fragment string) viewport.Viewport {
	vp, _ := viewport.Resolve(fragment)
	c.viewport = vp
	c.bus.Publish(Event{Topic: TopicViewport, Version: c.store.Version(), Data: vp})
	return vp
}

// SetViewport records a user-driven camera change and returns its
// deep-link fragment. It never touches the document.
func (c *Core) SetViewport(v viewport.Viewport) (string, error) {
	if !v.Valid() {
		return "", ErrInvalidViewport
	}
	v = v.WithoutTransition()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = v
	c.bus.Publish(Event{Topic: TopicViewport, Version: c.store.Version(), Data: v})
	return viewport.Encode(v), nil
}

// SetLayerVisibility rewrites layers[i].layout.visibility in the current text
// and feeds the result through the edit path.
func (c *Core) SetLayerVisibility(ctx context.Context, layerID string, visible bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.parseErr != nil {
		return ErrTextInvalid
	}
	idx := c.store.Current().LayerIndex(layerID)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrLayerNotFound, layerID)
	}

	value := "none"
	if visible {
		value = "visible"
	}
	text, err := sjson.Set(c.view.Text(), fmt.Sprintf("layers.%d.layout.visibility", idx), value)
	if err != nil {
		return fmt.Errorf("set visibility of %q: %w", layerID, err)
	}
	if err := c.edit(ctx, text); err != nil {
		return err
	}
	c.bus.Publish(Event{Topic: TopicText, Version: c.store.Version(), Data: text})
	return nil
}

// Document returns the published document.
func (c *Core) Document() style.Document { return c.store.Current() }

// Version returns the published document version.
func (c *Core) Version() uint64 { return c.store.Version() }

// Layers lists the layers of the published document.
func (c *Core) Layers() []style.Layer { return c.store.Current().Layers() }

// Text returns the current editor text, which may not parse.
func (c *Core) Text() string { return c.view.Text() }

// Mark returns the live highlight, if any.
func (c *Core) Mark() (Mark, bool) { return c.view.Highlight() }

// Viewport returns the current camera.
func (c *Core) Viewport() viewport.Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport
}

// ParseError returns the error of the latest rejected text, or nil once a
// later text was accepted.
func (c *Core) ParseError() *style.ParseError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parseErr
}

// SaveStatus returns the number of persistence writes attempted and the
// error of the latest one.
func (c *Core) SaveStatus() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves, c.saveErr
}
