// Package gateway implements the session-backed authentication gateway: the
// per-request decision between starting a login, completing one, starting or
// completing a logout, and passing an authenticated request through to the
// application views.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/authgate/lambda-oidc-gateway/internal/config"
	apperrors "github.com/authgate/lambda-oidc-gateway/internal/errors"
	"github.com/authgate/lambda-oidc-gateway/oidcprovider"
	"github.com/authgate/lambda-oidc-gateway/request"
	"github.com/authgate/lambda-oidc-gateway/response"
	"github.com/authgate/lambda-oidc-gateway/sessions"
	"github.com/authgate/lambda-oidc-gateway/views"
)

// IdentityProvider is the identity-provider surface the gateway needs.
// oidcprovider.Provider is the production implementation; tests use the fake
// from gateway/oidcfakes.
type IdentityProvider interface {
	// AuthCodeURL builds the authorization redirect carrying the anti-forgery
	// state value.
	AuthCodeURL(state, redirectURI string) string

	// EndSessionURL builds the provider's logout redirect.
	EndSessionURL(postLogoutRedirectURI string) string

	// Exchange trades the callback code for verified identity claims,
	// reading and updating the session's token cache.
	Exchange(ctx context.Context, code, redirectURI string, cache *oidcprovider.TokenCache) (*oidcprovider.Identity, error)
}

// Gateway is the request handler. One instance serves the whole process; it
// holds no per-request state.
type Gateway struct {
	cfg    *config.Config
	store  *sessions.Store
	idp    IdentityProvider
	views  *views.Registry
	logger zerolog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger replaces the gateway logger (primarily for testing).
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// New creates a Gateway from its collaborators.
func New(cfg *config.Config, store *sessions.Store, idp IdentityProvider, registry *views.Registry, options ...Option) *Gateway {
	g := &Gateway{
		cfg:    cfg,
		store:  store,
		idp:    idp,
		views:  registry,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Invoke is the Lambda entrypoint. It is the single error boundary: every
// failure below it becomes a response, classified by kind, and the returned
// error is always nil so the platform never retries.
func (g *Gateway) Invoke(ctx context.Context, raw json.RawMessage) (resp response.Response, _ error) {
	requestID := requestIDFrom(ctx)
	b := g.builder(requestID, "")

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error().Str("request_id", requestID).Interface("panic", r).Msg("recovered from panic")
			resp = b.Error(apperrors.Newf(apperrors.KindInternal, "panic: %v", r))
		}
	}()

	req, err := request.Parse(raw, requestID)
	if err != nil {
		return b.Error(err), nil
	}

	g.logger.Info().
		Str("request_id", req.ID).
		Str("method", req.Method).
		Str("path", req.Path).
		Str("source_ip", req.SourceIP).
		Msg("request")

	b = g.builder(requestID, req.Headers["accept-encoding"])
	return g.handle(ctx, req, b), nil
}

// handle is the state machine. Only GET participates in auth transitions;
// every other method goes straight to the session guard.
func (g *Gateway) handle(ctx context.Context, req *request.Request, b *response.Builder) response.Response {
	if req.Method == http.MethodGet {
		switch req.Path {
		case "/favicon.ico":
			// Served before any session I/O so incidental browser requests
			// never create throwaway sessions.
			return b.ServeFile(views.StaticFS(), "favicon.ico")
		case g.cfg.LoginPath:
			return g.loginStart(ctx, req, b)
		case g.cfg.LoginCallback:
			return g.loginCallback(ctx, req, b)
		case g.cfg.LogoutPath:
			return g.logoutStart(req, b)
		case g.cfg.LogoutCallback:
			return g.logoutCallback(ctx, req, b)
		case g.cfg.LogoutComplete:
			return g.logoutComplete(b)
		}
	}

	session, err := g.store.Open(ctx, req.Cookies[g.cfg.CookieName])
	if err != nil {
		return b.Error(err)
	}
	if !session.Authenticated() {
		return b.Redirect(g.loginRedirect(req), nil)
	}

	if req.Method == http.MethodGet && strings.HasPrefix(req.Path, g.cfg.StaticPath) {
		return b.ServeFile(views.StaticFS(), strings.TrimPrefix(req.Path, g.cfg.StaticPath))
	}

	return g.views.Route(ctx, req, session, b)
}

// loginRedirect sends an anonymous request to login-start, carrying the
// originally requested path plus querystring as the percent-encoded referer.
func (g *Gateway) loginRedirect(req *request.Request) string {
	return g.cfg.LoginPath + "?referer=" + quotePlus(req.PathWithQuery())
}

func (g *Gateway) builder(requestID, acceptEncoding string) *response.Builder {
	return response.NewBuilder(requestID, acceptEncoding,
		response.WithCompression(g.cfg.Compression),
		response.WithLogger(g.logger),
	)
}

func requestIDFrom(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}
