package styleclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-style/internal/server"
	"github.com/joeblew999/plat-style/pkg/styleclient"
)

func newClient(t *testing.T) styleclient.PlatStyleAPIClient {
	t.Helper()
	srv, err := server.New(context.Background(), server.Config{Store: "memory", Slot: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return styleclient.NewWithClient(ts.URL+"/", ts.Client())
}

func TestHealthAndInfo(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	_, health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)

	_, info, err := c.GetInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "plat-style", info.Name)
	assert.Equal(t, "memory", info.Store)
}

func TestStyleRoundTrip(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	doc := `{"version":8,"layers":[{"id":"parks","type":"fill"},{"id":"roads","type":"line"}]}`
	resp, got, err := c.ImportStyle(ctx, []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, doc, string(got))

	_, got, err = c.GetStyle(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(got))

	_, layers, err := c.SetLayerVisibility(ctx, "roads", styleclient.SetLayerVisibilityInputBody{Visible: false})
	require.NoError(t, err)
	require.Len(t, layers, 2)
	assert.False(t, layers[1].Visible)

	_, m, err := c.LocateLayer(ctx, "parks")
	require.NoError(t, err)
	assert.Equal(t, `"id": "parks"`, m.Text)

	_, _, err = c.ResetStyle(ctx)
	require.NoError(t, err)
	_, layers, err = c.ListLayers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "background", layers[0].ID)
}

func TestPutStyleAndText(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	text := "{\n    \"version\": 8\n}"
	_, _, err := c.PutStyle(ctx, []byte(text))
	require.NoError(t, err)

	_, body, err := c.GetText(ctx)
	require.NoError(t, err)
	assert.Equal(t, text, body.Text, "an edit keeps the text as sent")
	assert.Nil(t, body.ParseError)
}

func TestErrors(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	resp, _, err := c.ImportStyle(ctx, []byte(`{"version": 8,`))
	var apiErr *styleclient.ErrorModel
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	_, _, err = c.LocateLayer(ctx, "nope")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestViewport(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	_, vp, err := c.GetViewport(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5/41.4/2.2/0/0", vp.Fragment)

	_, vp, err = c.SetViewport(ctx, styleclient.Viewport{Zoom: 10, Latitude: 48.85, Longitude: 2.35})
	require.NoError(t, err)
	assert.Equal(t, "10/48.85/2.35/0/0", vp.Fragment)

	_, resolved, err := c.ResolveViewport(ctx, styleclient.WithFragment("#12/51.5/-0.12/0/0"))
	require.NoError(t, err)
	assert.True(t, resolved.FromFragment)
	assert.Equal(t, 12.0, resolved.Viewport.Zoom)
}
