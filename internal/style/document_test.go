package style

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "version": 8,
  "sources": {"osm": {"type": "vector", "url": "https://example.com/tiles.json"}},
  "layers": [
    {"id": "water", "type": "fill", "source": "osm", "source-layer": "water"},
    {"id": "roads", "type": "line", "source": "osm", "layout": {"visibility": "none"}}
  ]
}`

func TestParse(t *testing.T) {
	doc, err := Parse(sample)
	require.NoError(t, err)
	assert.False(t, doc.IsEmpty())

	layers := doc.Layers()
	require.Len(t, layers, 2)
	assert.Equal(t, Layer{ID: "water", Type: "fill", Source: "osm", SourceLayer: "water", Visible: true}, layers[0])
	assert.Equal(t, "roads", layers[1].ID)
	assert.False(t, layers[1].Visible)

	assert.Equal(t, 1, doc.LayerIndex("roads"))
	assert.Equal(t, -1, doc.LayerIndex("missing"))
}

func TestParseSyntaxErrors(t *testing.T) {
	for _, text := range []string{
		``,
		`{`,
		`{"layers": [{"id": "a"},]}`,
		`{"version": 8,}`,
		`{"a": tru}`,
		`{"a": 1} trailing`,
	} {
		_, err := Parse(text)
		var pe *ParseError
		require.True(t, errors.As(err, &pe), "text %q", text)
		assert.Equal(t, text, pe.Text)
	}
}

func TestParseErrorPosition(t *testing.T) {
	text := "{\n  \"version\": 8,\n}"
	_, err := Parse(text)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Line)
	assert.Equal(t, 1, pe.Column)
	assert.Contains(t, pe.Error(), "line 3")
}

func TestParseShapeErrors(t *testing.T) {
	cases := []struct {
		text string
		want error
	}{
		{`[1, 2]`, ErrRootNotObject},
		{`"style"`, ErrRootNotObject},
		{`null`, ErrRootNotObject},
		{`{"layers": {}}`, ErrLayersNotArray},
		{`{"layers": [1]}`, ErrLayerNotObject},
		{`{"layers": [{"type": "fill"}]}`, ErrLayerMissingID},
		{`{"layers": [{"id": ""}]}`, ErrLayerMissingID},
		{`{"layers": [{"id": 3}]}`, ErrLayerMissingID},
		{`{"layers": [{"id": "a"}, {"id": "b"}, {"id": "a"}]}`, ErrDuplicateLayerID},
		{`{"layers": [], "layers": [{"id": "a"}, {"id": "a"}]}`, ErrDuplicateLayers},
		{`{"layers": [{"id": "a"}], "version": 8, "layers": []}`, ErrDuplicateLayers},
	}
	for _, tc := range cases {
		_, err := Parse(tc.text)
		assert.ErrorIs(t, err, tc.want, "text %q", tc.text)
		var pe *ParseError
		assert.True(t, errors.As(err, &pe), "text %q", tc.text)
	}
}

func TestDuplicateLayersKeyPosition(t *testing.T) {
	_, err := Parse("{\"layers\": [],\n\"layers\": [{\"id\": \"a\"}]}")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
}

func TestRoundTrip(t *testing.T) {
	for _, text := range []string{
		sample,
		`{}`,
		`{"a": [1, 2.5, "x", null, true, {"b": []}], "n": 12345678901234567890}`,
		`{"layers": []}`,
	} {
		doc, err := Parse(text)
		require.NoError(t, err)

		again, err := Parse(doc.Text())
		require.NoError(t, err)
		assert.True(t, doc.Equal(again), "text %q", text)

		var want, got any
		require.NoError(t, json.Unmarshal([]byte(text), &want))
		require.NoError(t, json.Unmarshal(again.Raw(), &got))
		assert.Equal(t, want, got)
	}
}

func TestTextKeepsKeyOrderAndIndent(t *testing.T) {
	doc, err := Parse(`{"zeta":1,"alpha":{"id":"x"}}`)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"zeta\": 1,\n  \"alpha\": {\n    \"id\": \"x\"\n  }\n}", doc.Text())
}

func TestEmpty(t *testing.T) {
	assert.True(t, Empty.IsEmpty())
	doc, err := Parse(" {} ")
	require.NoError(t, err)
	assert.True(t, doc.IsEmpty())
	assert.Equal(t, "{}", string(Empty.Raw()))
	assert.Equal(t, map[string]any{}, Empty.Value())
}

func TestDocumentIsImmutable(t *testing.T) {
	doc, err := Parse(sample)
	require.NoError(t, err)

	raw := doc.Raw()
	raw[0] = '['
	v := doc.Value()
	v["version"] = "mutated"

	assert.True(t, strings.HasPrefix(string(doc.Raw()), "{"))
	assert.Equal(t, json.Number("8"), doc.Value()["version"])
}

func TestMarshalJSON(t *testing.T) {
	doc, err := Parse(`{"b": 1, "a": 2}`)
	require.NoError(t, err)
	out, err := json.Marshal(map[string]any{"style": doc})
	require.NoError(t, err)
	assert.Equal(t, `{"style":{"b":1,"a":2}}`, string(out))
}

func TestDefault(t *testing.T) {
	doc := Default()
	assert.False(t, doc.IsEmpty())
	assert.NotEmpty(t, doc.Layers())
	assert.Contains(t, doc.Text(), `"id": "water"`)
}
