package style

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, text string) Document {
	t.Helper()
	doc, err := Parse(text)
	require.NoError(t, err)
	return doc
}

func TestInitializePrefersPersisted(t *testing.T) {
	ctx := context.Background()
	persisted := mustParse(t, `{"layers": [{"id": "p"}]}`)
	fallback := mustParse(t, `{"layers": [{"id": "f"}]}`)

	s := NewStore()
	got := s.Initialize(ctx, persisted, fallback)
	assert.True(t, got.Equal(persisted))
	assert.True(t, s.Current().Equal(persisted))

	s = NewStore()
	got = s.Initialize(ctx, Empty, fallback)
	assert.True(t, got.Equal(fallback))

	s = NewStore()
	got = s.Initialize(ctx, mustParse(t, `{}`), fallback)
	assert.True(t, got.Equal(fallback))
}

func TestReplacePublishes(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var got []Publication
	s.Subscribe(func(_ context.Context, p Publication) { got = append(got, p) })

	s.Initialize(ctx, Empty, mustParse(t, `{"version": 8}`))
	doc, err := s.Replace(ctx, CauseEdit, `{"version": 8, "name": "edited"}`)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, CauseStartup, got[0].Cause)
	assert.Equal(t, uint64(1), got[0].Version)
	assert.Equal(t, CauseEdit, got[1].Cause)
	assert.Equal(t, uint64(2), got[1].Version)
	assert.True(t, got[1].Doc.Equal(doc))
	assert.Equal(t, uint64(2), s.Version())
}

func TestReplaceRejectsInvalidText(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	before := s.Initialize(ctx, Empty, mustParse(t, sample))

	published := 0
	s.Subscribe(func(context.Context, Publication) { published++ })

	for _, text := range []string{
		`{"version": 8,`,
		`{"layers": [{"id": "water"},]}`,
		`{"layers": [{"id": "a"}, {"id": "a"}]}`,
		`[]`,
	} {
		_, err := s.Replace(ctx, CauseEdit, text)
		require.Error(t, err)
		assert.IsType(t, &ParseError{}, err)
	}

	assert.Zero(t, published)
	assert.True(t, s.Current().Equal(before))
	assert.Equal(t, uint64(1), s.Version())
}

func TestCauseString(t *testing.T) {
	assert.Equal(t, "startup", CauseStartup.String())
	assert.Equal(t, "edit", CauseEdit.String())
	assert.Equal(t, "import", CauseImport.String())
	assert.Equal(t, "unknown", Cause(42).String())
}
