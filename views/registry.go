// Package views maps authenticated request paths to application handlers.
// Handlers are registered in a static registry at startup; lookup follows the
// longest matching prefix, with group prefixes continuing to deeper segments
// before falling back to the group's default handler.
package views

import (
	"context"
	"net/http"
	"strings"

	"github.com/authgate/lambda-oidc-gateway/request"
	"github.com/authgate/lambda-oidc-gateway/response"
	"github.com/authgate/lambda-oidc-gateway/sessions"
)

// HandlerFunc handles one authenticated request. The session is live: a
// handler may mutate its Data and save it through its own dependencies.
type HandlerFunc func(ctx context.Context, req *request.Request, sess *sessions.Session, b *response.Builder) response.Response

type node struct {
	children map[string]*node
	leaf     HandlerFunc // runs on an exact path match
	fallback HandlerFunc // group default, runs for anything unmatched below this prefix
}

func (n *node) child(segment string) *node {
	if n.children == nil {
		n.children = map[string]*node{}
	}
	c, ok := n.children[segment]
	if !ok {
		c = &node{}
		n.children[segment] = c
	}
	return c
}

// Registry is the path-to-handler table.
type Registry struct {
	root node
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Handle registers a leaf handler at an exact path.
func (r *Registry) Handle(path string, h HandlerFunc) {
	r.walk(path).leaf = h
}

// HandleGroup registers a group default at a path prefix. Requests under the
// prefix keep matching deeper segments first; the group handler catches what
// nothing deeper claims. Directories take precedence over leaves of the same
// name.
func (r *Registry) HandleGroup(path string, h HandlerFunc) {
	r.walk(path).fallback = h
}

func (r *Registry) walk(path string) *node {
	n := &r.root
	for _, segment := range splitPath(path) {
		n = n.child(segment)
	}
	return n
}

// Route dispatches req to the registered handler, or responds 404.
func (r *Registry) Route(ctx context.Context, req *request.Request, sess *sessions.Session, b *response.Builder) response.Response {
	segments := splitPath(req.Path)

	n := &r.root
	fallback := n.fallback
	matched := true
	for _, segment := range segments {
		child := n.children[segment]
		if child == nil {
			matched = false
			break
		}
		n = child
		if n.fallback != nil {
			fallback = n.fallback
		}
	}

	if matched && n.leaf != nil {
		return n.leaf(ctx, req, sess, b)
	}
	if fallback != nil {
		return fallback(ctx, req, sess, b)
	}
	return b.Format("Page Not Found", nil, 404)
}

// DefaultRegistry returns the registry with the built-in application views.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Handle("/", Index)
	r.Handle("/index", Index)
	return r
}

// Index renders the landing page with the authenticated user's claims.
func Index(_ context.Context, req *request.Request, sess *sessions.Session, b *response.Builder) response.Response {
	if req.Method != http.MethodGet {
		return b.Format("Page Not Found", nil, 404)
	}
	page, err := Render("index.html", map[string]any{
		"User": sess.Data.User,
	})
	if err != nil {
		return b.Error(err)
	}
	return b.HTML(page, nil, 200)
}

func splitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
