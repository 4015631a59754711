package web

import (
	"path"
	"path/filepath"
	"strings"
)

// Router defaults.
const (
	DefaultIndexFile = "index.html"
)

// DefaultAssetExtensions are served from the static root.
var DefaultAssetExtensions = []string{"html", "css", "js"}

// RouterConfig configures a Router.
type RouterConfig struct {
	// StaticRoot is the directory assets and the index file are read from.
	StaticRoot string

	// IndexFile answers "" and "/", relative to StaticRoot.
	IndexFile string

	// AssetExtensions lists extensions (without dot) served as files.
	AssetExtensions []string
}

// Route maps a pattern to the Result that starts the interpreter.
type Route struct {
	Pattern string
	Result  Result
}

// Wildcard reports whether the pattern matches a URL prefix.
func (r Route) Wildcard() bool {
	return strings.HasSuffix(r.Pattern, "*")
}

func (r Route) match(url string) bool {
	if r.Wildcard() {
		return strings.HasPrefix(url, strings.TrimSuffix(r.Pattern, "*"))
	}
	return r.Pattern == url
}

// Router resolves URLs against an insertion-ordered route table.
type Router struct {
	routes []Route
	exact  map[string]int

	staticRoot string
	indexFile  string
	assets     map[string]bool
}

// NewRouter creates an empty router.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.IndexFile == "" {
		cfg.IndexFile = DefaultIndexFile
	}
	if cfg.AssetExtensions == nil {
		cfg.AssetExtensions = DefaultAssetExtensions
	}
	assets := make(map[string]bool, len(cfg.AssetExtensions))
	for _, ext := range cfg.AssetExtensions {
		assets[strings.TrimPrefix(strings.ToLower(ext), ".")] = true
	}
	return &Router{
		exact:      make(map[string]int),
		staticRoot: cfg.StaticRoot,
		indexFile:  cfg.IndexFile,
		assets:     assets,
	}
}

// Handle registers a Result for pattern. A pattern ending in '*' matches
// any URL with that prefix. The first registration of an exact pattern
// wins.
func (r *Router) Handle(pattern string, res Result) {
	route := Route{Pattern: pattern, Result: res}
	if _, dup := r.exact[pattern]; !dup && !route.Wildcard() {
		r.exact[pattern] = len(r.routes)
	}
	r.routes = append(r.routes, route)
}

// HandleFunc registers a handler for pattern.
func (r *Router) HandleFunc(pattern string, h Handler) {
	r.Handle(pattern, Invoke{Handler: h})
}

// Routes returns the table in insertion order.
func (r *Router) Routes() []Route {
	out := make([]Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Resolve returns the starting Result for url and the pattern or rule that
// produced it. ok is false when nothing matches.
func (r *Router) Resolve(url string) (res Result, route string, ok bool) {
	if i, found := r.exact[url]; found {
		return r.routes[i].Result, r.routes[i].Pattern, true
	}
	for _, rt := range r.routes {
		if rt.match(url) {
			return rt.Result, rt.Pattern, true
		}
	}
	if url == "" || url == "/" {
		return StaticFile{Path: r.FilePath(r.indexFile)}, "index", true
	}
	if r.isAsset(url) {
		return StaticFile{Path: r.FilePath(url)}, "asset", true
	}
	return nil, "", false
}

// FilePath maps a URL path into the static root.
func (r *Router) FilePath(url string) string {
	return filepath.Join(r.staticRoot, filepath.FromSlash(path.Clean("/"+url)))
}

func (r *Router) isAsset(url string) bool {
	if strings.Contains(url, "..") {
		return false
	}
	ext := strings.TrimPrefix(path.Ext(url), ".")
	return ext != "" && r.assets[strings.ToLower(ext)]
}
