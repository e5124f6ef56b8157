package forge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoutesFavicon(t *testing.T) {
	rh := NewRouteHandler("/")
	req := NewRequest(MethodGet, "/favicon.ico", "HTTP/1.1", NewHeader(), nil, "127.0.0.1:1", nil)
	dr, err := rh.Dispatch(req)
	require.NoError(t, err)
	require.NotNil(t, dr.Handler)

	result, err := dr.Handler.Invoke(req, nil)
	require.NoError(t, err)
	resp, ok := result.(*Response)
	require.True(t, ok)
	assert.Equal(t, "image/x-icon", resp.Header.Get("Content-Type"))
}

func TestDefaultRoutesOpenAPI(t *testing.T) {
	rh := NewRouteHandler("/")
	req := NewRequest(MethodGet, "/openapi.json", "HTTP/1.1", NewHeader(), nil, "127.0.0.1:1", nil)
	dr, err := rh.Dispatch(req)
	require.NoError(t, err)

	result, err := dr.Handler.Invoke(req, nil)
	require.NoError(t, err)
	resp, ok := result.(*Response)
	require.True(t, ok)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(resp.Body), "openapi")
}

func TestDefaultRoutesSwaggerAliases(t *testing.T) {
	rh := NewRouteHandler("/")
	for _, path := range []string{"/swagger", "/docs", "/swagger-ui"} {
		req := NewRequest(MethodGet, path, "HTTP/1.1", NewHeader(), nil, "127.0.0.1:1", nil)
		dr, err := rh.Dispatch(req)
		require.NoError(t, err)
		require.NotNil(t, dr.Handler, "path %s", path)
	}
}

func TestDefaultRoutesCanBeDisabled(t *testing.T) {
	rh := NewRouteHandler("/")
	rh.disableDefaultRoutes = true
	req := NewRequest(MethodGet, "/favicon.ico", "HTTP/1.1", NewHeader(), nil, "127.0.0.1:1", nil)
	_, err := rh.Dispatch(req)
	assert.Error(t, err)
}

func TestDefaultRoutesPlaygroundAssets(t *testing.T) {
	rh := NewRouteHandler("/")
	for _, path := range []string{"/api", "/api/playground.js", "/api/panels.js"} {
		req := NewRequest(MethodGet, path, "HTTP/1.1", NewHeader(), nil, "127.0.0.1:1", nil)
		dr, err := rh.Dispatch(req)
		require.NoError(t, err)
		require.NotNil(t, dr.Handler, "path %s", path)
	}
}
