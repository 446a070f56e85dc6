package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-style/internal/style"
)

const slotName = "plat-style.style"

func testDoc(t *testing.T) style.Document {
	t.Helper()
	doc, err := style.Parse(`{"version": 8, "layers": [{"id": "water", "type": "fill"}]}`)
	require.NoError(t, err)
	return doc
}

// exerciseSlot runs the shared Gateway contract against one backend.
func exerciseSlot(t *testing.T, slot Slot) {
	t.Helper()
	ctx := context.Background()
	g := NewGateway(slot, zap.NewNop())

	assert.True(t, g.Load(ctx).IsEmpty(), "fresh slot must load empty")

	doc := testDoc(t)
	require.NoError(t, g.Save(ctx, doc))
	assert.True(t, g.Load(ctx).Equal(doc))

	next, err := style.Parse(`{"version": 8, "layers": []}`)
	require.NoError(t, err)
	require.NoError(t, g.Save(ctx, next))
	assert.True(t, g.Load(ctx).Equal(next))

	require.NoError(t, slot.Write(ctx, []byte(`{"version": 8,`)))
	assert.True(t, g.Load(ctx).IsEmpty(), "corrupt slot must load empty")

	require.NoError(t, slot.Write(ctx, []byte(`not json at all`)))
	assert.True(t, g.Load(ctx).IsEmpty())

	require.NoError(t, slot.Write(ctx, []byte(`{}`)))
	assert.True(t, g.Load(ctx).IsEmpty(), "empty object counts as no state")
}

func TestMemorySlot(t *testing.T) {
	slot := NewMemorySlot(slotName)
	defer slot.Close()
	exerciseSlot(t, slot)
}

func TestMemorySlotCopiesData(t *testing.T) {
	ctx := context.Background()
	slot := NewMemorySlot(slotName)
	data := []byte(`{"a":1}`)
	require.NoError(t, slot.Write(ctx, data))
	data[2] = 'b'

	got, err := slot.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestFileSlot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	slot := NewFileSlot(dir, slotName)
	exerciseSlot(t, slot)
	assert.Equal(t, filepath.Join(dir, "plat-style.style.json"), slot.Path())
}

func TestFileSlotNameCannotEscape(t *testing.T) {
	dir := t.TempDir()
	slot := NewFileSlot(dir, "../../etc/passwd")
	assert.Equal(t, dir, filepath.Dir(slot.Path()))
	assert.Equal(t, "style.json", filepath.Base(NewFileSlot(dir, "..").Path()))
}

func TestRedisSlot(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	slot, err := NewRedisSlot(ctx, "redis://"+s.Addr(), slotName)
	require.NoError(t, err)
	defer slot.Close()

	exerciseSlot(t, slot)

	require.NoError(t, slot.Write(ctx, []byte(`{"a":1}`)))
	got, err := s.Get(slotName)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got)
}

func TestRedisSlotBadURL(t *testing.T) {
	_, err := NewRedisSlot(context.Background(), "not-a-url", slotName)
	assert.Error(t, err)
}

func TestDuckDBSlot(t *testing.T) {
	slot, err := NewDuckDBSlot("", slotName)
	require.NoError(t, err)
	defer slot.Close()
	exerciseSlot(t, slot)
}

func TestDuckDBSlotOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	slot, err := NewDuckDBSlot(dir, slotName)
	require.NoError(t, err)
	require.NoError(t, NewGateway(slot, nil).Save(ctx, testDoc(t)))
	require.NoError(t, slot.Close())

	_, err = os.Stat(filepath.Join(dir, "duckdb", "style.duckdb"))
	require.NoError(t, err)

	slot, err = NewDuckDBSlot(dir, slotName)
	require.NoError(t, err)
	defer slot.Close()
	assert.True(t, NewGateway(slot, nil).Load(ctx).Equal(testDoc(t)))
}

type brokenSlot struct{ err error }

func (b brokenSlot) Name() string { return "broken" }
func (b brokenSlot) Read(context.Context) ([]byte, error) { return nil, b.err }
func (b brokenSlot) Write(context.Context, []byte) error { return b.err }
func (b brokenSlot) Close() error { return nil }

func TestGatewayToleratesFailures(t *testing.T) {
	quota := errors.New("quota exceeded")
	g := NewGateway(brokenSlot{err: quota}, zap.NewNop())
	ctx := context.Background()

	assert.True(t, g.Load(ctx).IsEmpty())

	err := g.Save(ctx, testDoc(t))
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "save", perr.Op)
	assert.Equal(t, "broken", perr.Slot)
	assert.ErrorIs(t, err, quota)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	g, err := Open(ctx, Config{Backend: BackendMemory, Slot: slotName}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemorySlot{}, g.slot)
	require.NoError(t, g.Close())

	g, err = Open(ctx, Config{Slot: slotName, DataDir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileSlot{}, g.slot)

	s := miniredis.RunT(t)
	g, err = Open(ctx, Config{Backend: BackendRedis, Slot: slotName, RedisURL: "redis://" + s.Addr()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisSlot{}, g.slot)
	require.NoError(t, g.Close())

	_, err = Open(ctx, Config{Backend: "s3"}, nil)
	assert.Error(t, err)
}
