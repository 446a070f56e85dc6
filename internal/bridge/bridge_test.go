package bridge

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-style/internal/livesync"
	"github.com/joeblew999/plat-style/internal/style"
)

const text = `{
  "version": 8,
  "layers": [
    {
      "id": "water",
      "type": "fill"
    },
    {
      "id": "roads",
      "type": "line"
    }
  ]
}`

type memPersister struct{ doc style.Document }

func (m *memPersister) Load(context.Context) style.Document { return m.doc }
func (m *memPersister) Save(_ context.Context, d style.Document) error {
	m.doc = d
	return nil
}

func setup(t *testing.T) (*Bridge, *livesync.Core) {
	t.Helper()
	fallback, err := style.Parse(text)
	require.NoError(t, err)
	core := livesync.New(livesync.Options{Persister: &memPersister{}, Fallback: fallback})
	core.Start(context.Background(), "")
	return New(core), core
}

func TestOnMapClick(t *testing.T) {
	b, core := setup(t)
	ch := core.Bus().Subscribe()
	defer core.Bus().Unsubscribe(ch)

	sel, ok := b.OnMapClick(orb.Point{2.2, 41.4}, []string{"water", "roads", "water", "roads"})
	require.True(t, ok)
	assert.Equal(t, []string{"water", "roads"}, sel.Layers)
	assert.Equal(t, orb.Point{2.2, 41.4}, sel.Point)

	got, ok := b.Selection()
	require.True(t, ok)
	assert.Equal(t, *sel, got)

	e := <-ch
	assert.Equal(t, livesync.TopicSelection, e.Topic)
	assert.Equal(t, sel, e.Data)
}

func TestOnMapClickMissKeepsSelection(t *testing.T) {
	b, _ := setup(t)
	b.OnMapClick(orb.Point{1, 1}, []string{"water"})

	sel, ok := b.OnMapClick(orb.Point{2, 2}, nil)
	assert.False(t, ok)
	assert.Nil(t, sel)

	got, ok := b.Selection()
	require.True(t, ok)
	assert.Equal(t, []string{"water"}, got.Layers)
}

func TestChooseLayerHighlightsFirstOccurrence(t *testing.T) {
	b, core := setup(t)
	b.OnMapClick(orb.Point{2.2, 41.4}, []string{"water", "roads"})

	_, ok := b.OnChooseLayer("water")
	require.True(t, ok)

	m, ok := b.OnChooseLayer("roads")
	require.True(t, ok)
	assert.Equal(t, `"id": "roads"`, core.Text()[m.Start:m.End])

	live, ok := core.Mark()
	require.True(t, ok)
	assert.Equal(t, m, live, "only the latest mark is live")
}

func TestChooseMissingLayerClearsMark(t *testing.T) {
	b, core := setup(t)
	_, ok := b.OnChooseLayer("water")
	require.True(t, ok)

	_, ok = b.OnChooseLayer("buildings")
	assert.False(t, ok)
	_, ok = core.Mark()
	assert.False(t, ok)
}

func TestDismissKeepsMark(t *testing.T) {
	b, core := setup(t)
	b.OnMapClick(orb.Point{0, 0}, []string{"roads"})
	b.OnChooseLayer("roads")

	b.OnDismissSelection()
	_, ok := b.Selection()
	assert.False(t, ok)
	_, ok = core.Mark()
	assert.True(t, ok)
}

func TestOnFileRead(t *testing.T) {
	b, core := setup(t)
	b.OnChooseLayer("roads")

	require.NoError(t, b.OnFileRead(context.Background(), []byte(`{"version":8,"layers":[{"id":"parks"}]}`)))
	assert.Equal(t, "parks", core.Layers()[0].ID)
	_, ok := core.Mark()
	assert.False(t, ok)

	require.Error(t, b.OnFileRead(context.Background(), []byte(`{"version":8,`)))
	assert.Equal(t, "parks", core.Layers()[0].ID)
}
