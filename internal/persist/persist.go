// Package persist keeps the style document in a durable key/value slot.
//
// The medium is opaque: a [Slot] reads and writes bytes under one name. The
// [Gateway] on top of it is tolerant on load (missing or corrupt content is
// "no persisted state") and best-effort on save (failures are returned for
// logging; the in-memory document stays authoritative).
package persist

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/joeblew999/plat-style/internal/style"
)

// ErrSlotEmpty is returned by Slot.Read when nothing has been stored yet.
var ErrSlotEmpty = errors.New("slot is empty")

// Slot is a single named entry in a durable store.
type Slot interface {
	Name() string
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Error reports a failed slot operation.
type Error struct {
	Op   string // "load" or "save"
	Slot string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("persist: %s %s: %v", e.Op, e.Slot, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Gateway loads and saves the style document through a Slot.
type Gateway struct {
	slot Slot
	log  *zap.Logger
}

// NewGateway wraps slot.
func NewGateway(slot Slot, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{slot: slot, log: log.Named("persist")}
}

// Load returns the persisted document, or style.Empty when the slot is
// missing, unreadable or does not hold a valid style.
func (g *Gateway) Load(ctx context.Context) style.Document {
	data, err := g.slot.Read(ctx)
	if err != nil {
		if !errors.Is(err, ErrSlotEmpty) {
			g.log.Warn("load failed, starting without persisted state",
				zap.String("slot", g.slot.Name()), zap.Error(err))
		}
		return style.Empty
	}

	doc, err := style.Parse(string(data))
	if err != nil {
		g.log.Warn("persisted style is corrupt, ignoring",
			zap.String("slot", g.slot.Name()), zap.Error(err))
		return style.Empty
	}
	return doc
}

// Save writes doc to the slot.
func (g *Gateway) Save(ctx context.Context, doc style.Document) error {
	if err := g.slot.Write(ctx, doc.Raw()); err != nil {
		return &Error{Op: "save", Slot: g.slot.Name(), Err: err}
	}
	return nil
}

// Close releases the slot.
func (g *Gateway) Close() error {
	return g.slot.Close()
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendDuckDB = "duckdb"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config selects and configures a slot backend.
type Config struct {
	Backend  string
	Slot     string
	DataDir  string
	RedisURL string
}

// Open builds a Gateway for cfg.Backend.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (*Gateway, error) {
	var (
		slot Slot
		err  error
	)
	switch cfg.Backend {
	case BackendFile, "":
		slot = NewFileSlot(cfg.DataDir, cfg.Slot)
	case BackendDuckDB:
		slot, err = NewDuckDBSlot(cfg.DataDir, cfg.Slot)
	case BackendRedis:
		slot, err = NewRedisSlot(ctx, cfg.RedisURL, cfg.Slot)
	case BackendMemory:
		slot = NewMemorySlot(cfg.Slot)
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewGateway(slot, log), nil
}
