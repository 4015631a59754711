package web

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterExactBeatsWildcard(t *testing.T) {
	r := NewRouter(RouterConfig{StaticRoot: "/srv"})
	wild := StaticFile{Path: "wild"}
	exact := StaticFile{Path: "exact"}

	r.Handle("/api/*", wild)
	r.Handle("/api/ping", exact)

	res, route, ok := r.Resolve("/api/ping")
	require.True(t, ok)
	assert.Equal(t, exact, res)
	assert.Equal(t, "/api/ping", route)

	res, route, ok = r.Resolve("/api/other")
	require.True(t, ok)
	assert.Equal(t, wild, res)
	assert.Equal(t, "/api/*", route)
}

func TestRouterWildcardInsertionOrder(t *testing.T) {
	r := NewRouter(RouterConfig{})
	first := StaticFile{Path: "first"}
	second := StaticFile{Path: "second"}

	r.Handle("/a*", first)
	r.Handle("/a/b*", second)

	res, _, ok := r.Resolve("/a/b/c")
	require.True(t, ok)
	assert.Equal(t, first, res, "first matching wildcard in table order wins")
}

func TestRouterDuplicateExactKeepsFirst(t *testing.T) {
	r := NewRouter(RouterConfig{})
	r.Handle("/x", StaticFile{Path: "one"})
	r.Handle("/x", StaticFile{Path: "two"})

	res, _, _ := r.Resolve("/x")
	assert.Equal(t, StaticFile{Path: "one"}, res)
	assert.Len(t, r.Routes(), 2)
}

func TestRouterFallbacks(t *testing.T) {
	root := filepath.FromSlash("/srv/www")
	r := NewRouter(RouterConfig{StaticRoot: root, AssetExtensions: []string{".CSS", "js"}})

	for _, url := range []string{"", "/"} {
		res, route, ok := r.Resolve(url)
		require.True(t, ok, url)
		assert.Equal(t, "index", route)
		assert.Equal(t, StaticFile{Path: filepath.Join(root, "index.html")}, res)
	}

	res, route, ok := r.Resolve("/css/site.css")
	require.True(t, ok)
	assert.Equal(t, "asset", route)
	assert.Equal(t, StaticFile{Path: filepath.Join(root, "css", "site.css")}, res)

	_, _, ok = r.Resolve("/page.html")
	assert.False(t, ok, "html not in the configured allow-list")

	_, _, ok = r.Resolve("/../../etc/x.js")
	assert.False(t, ok)

	_, _, ok = r.Resolve("/noext")
	assert.False(t, ok)
}

func TestReason(t *testing.T) {
	assert.Equal(t, "Version Not Supported", Reason(505))
	assert.Equal(t, "File Not Found", Reason(404))
	assert.Equal(t, "Forbidden", Reason(403))
	assert.Equal(t, "Error", Reason(999))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 401, StatusOf(Unauthorized()))
	assert.Equal(t, 500, StatusOf(assert.AnError))
}
