package humastar

import (
	"context"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{
		"text": "{}", "visible": true, "zoom": 5,
		"click": {"point": [2.2, 41.4], "layers": ["water", 3, "roads"]}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "{}", s.String("text"))
	assert.Equal(t, "", s.String("zoom"))
	assert.True(t, s.Bool("visible"))
	assert.Equal(t, 5.0, s.Float("zoom"))
	assert.True(t, s.Has("click"))
	assert.False(t, s.Has("missing"))

	click := s.Object("click")
	require.NotNil(t, click)
	assert.Equal(t, []string{"water", "roads"}, click.Strings("layers"))

	pt, ok := click.Floats("point")
	require.True(t, ok)
	assert.Equal(t, []float64{2.2, 41.4}, pt)

	_, ok = click.Floats("layers")
	assert.False(t, ok)
	assert.Nil(t, s.Object("text"))
	assert.Empty(t, s.Strings("missing"))
}

func TestSignalsInputMustParse(t *testing.T) {
	_, err := (&SignalsInput{RawBody: []byte(`{`)}).MustParse()
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.GetStatus())
}

type thing struct {
	Name string `json:"name"`
}

func TestLinks(t *testing.T) {
	links := NewLinks()
	config := huma.DefaultConfig("test", "1.0.0")
	config.Transformers = append(config.Transformers, links.Transformer())
	_, api := humatest.New(t, config)

	get := func(ctx context.Context, _ *struct{}) (*struct{ Body thing }, error) {
		return &struct{ Body thing }{Body: thing{Name: "x"}}, nil
	}
	getItem := func(ctx context.Context, _ *struct {
		ID string `path:"id"`
	}) (*struct{ Body thing }, error) {
		return &struct{ Body thing }{Body: thing{Name: "x"}}, nil
	}
	huma.Get(api, "/health", get)
	huma.Get(api, "/api/v1/style", get)
	huma.Get(api, "/api/v1/style/layers", get)
	huma.Get(api, "/api/v1/style/locate/{id}", getItem)
	huma.Get(api, "/api/v1/editor/events", get, huma.OperationTags("editor"))
	links.Build(api)

	assert.Contains(t, links.For("/health"), `</api/v1/style>; rel="style"`)
	assert.NotContains(t, links.For("/health"), `</api/v1/style/layers>; rel="layers"`)
	assert.Contains(t, links.For("/api/v1/style"), `</api/v1/style/layers>; rel="layers"`)
	assert.Contains(t, links.For("/api/v1/style/layers"), `</api/v1/style>; rel="up"`)
	assert.Contains(t, links.For("/api/v1/style/locate/{id}"), `</api/v1/style>; rel="collection"`)
	assert.Empty(t, links.For("/api/v1/editor/events"))

	resp := api.Get("/api/v1/style/locate/water")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Values("Link"), `</api/v1/style/locate/water>; rel="self"`)
}
