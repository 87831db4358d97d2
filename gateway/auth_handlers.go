package gateway

import (
	"context"
	"net/url"

	apperrors "github.com/authgate/lambda-oidc-gateway/internal/errors"
	"github.com/authgate/lambda-oidc-gateway/oidcprovider"
	"github.com/authgate/lambda-oidc-gateway/request"
	"github.com/authgate/lambda-oidc-gateway/response"
	"github.com/authgate/lambda-oidc-gateway/sessions"
	"github.com/authgate/lambda-oidc-gateway/views"
)

const epochExpiry = "Thu, 01 Jan 1970 00:00:00 UTC"

// loginStart creates and persists a fresh session, then redirects to the
// identity provider's authorization URL with the session id as the
// anti-forgery state. The same id goes into the session cookie; the callback
// requires the two to match.
func (g *Gateway) loginStart(ctx context.Context, req *request.Request, b *response.Builder) response.Response {
	session := g.store.Create(sessions.Data{
		Referer:  unquotePlus(req.Query["referer"], "/"),
		SourceIP: req.SourceIP,
	})
	if err := g.store.Save(ctx, session); err != nil {
		return b.Error(err)
	}

	redirectURI := req.URL + g.cfg.LoginCallback
	return b.Redirect(g.idp.AuthCodeURL(session.ID, redirectURI), map[string]string{
		"Set-Cookie": g.cfg.CookieName + "=" + session.ID + ";path=/;SameSite=Lax;Secure",
	})
}

// loginCallback completes the authorization-code flow.
func (g *Gateway) loginCallback(ctx context.Context, req *request.Request, b *response.Builder) response.Response {
	session, err := g.store.Open(ctx, req.Cookies[g.cfg.CookieName])
	if err != nil {
		return b.Error(err)
	}

	// A state value that does not match the open session means the callback
	// was not initiated by this browser (possible forgery). Restart the login
	// rather than reporting anything.
	if req.Query["state"] != session.ID {
		return b.Redirect(g.cfg.LoginPath, nil)
	}

	if _, ok := req.Query["error"]; ok {
		// Authentication/authorization failure reported by the provider.
		return g.authErrorPage(b, req.Query)
	}

	if code := req.Query["code"]; code != "" {
		return g.exchangeCode(ctx, req, session, code, b)
	}

	// No error and no code: malformed callback, restart the login.
	return b.Redirect(g.cfg.LoginPath, nil)
}

func (g *Gateway) exchangeCode(ctx context.Context, req *request.Request, session *sessions.Session, code string, b *response.Builder) response.Response {
	cache, err := oidcprovider.LoadCache(session.Data.TokenCache)
	if err != nil {
		return b.Error(err)
	}

	identity, err := g.idp.Exchange(ctx, code, req.URL+g.cfg.LoginCallback, cache)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindAuthProvider {
			g.logger.Warn().Str("request_id", req.ID).Err(err).Msg("code exchange rejected")
			return g.authErrorPage(b, map[string]string{"error": err.Error()})
		}
		return b.Error(err)
	}

	// session_state is the provider's own session reference, kept for
	// provider-initiated single-sign-out lookups.
	if ref := req.Query["session_state"]; ref != "" {
		session.ProviderRef = ref
	}
	session.Data.User = identity.Claims
	if cache.Changed() {
		blob, err := cache.Serialize()
		if err != nil {
			return b.Error(err)
		}
		session.Data.TokenCache = blob
	}
	if err := g.store.Save(ctx, session); err != nil {
		return b.Error(err)
	}

	referer := session.Data.Referer
	if referer == "" {
		referer = "/"
	}
	return b.Redirect(referer, nil)
}

// logoutStart hands the browser to the provider's end-session endpoint, which
// redirects back to logout-complete when done.
func (g *Gateway) logoutStart(req *request.Request, b *response.Builder) response.Response {
	return b.Redirect(g.idp.EndSessionURL(req.URL+g.cfg.LogoutComplete), nil)
}

// logoutCallback handles both provider-initiated single-sign-out (a sid query
// naming the provider's session reference) and the browser's own logout
// round-trip (a session cookie to delete).
func (g *Gateway) logoutCallback(ctx context.Context, req *request.Request, b *response.Builder) response.Response {
	if sid, ok := req.Query["sid"]; ok {
		if err := g.store.DeleteByProviderRef(ctx, sid); err != nil {
			return b.Error(err)
		}
	}
	if sessionID, ok := req.Cookies[g.cfg.CookieName]; ok {
		if err := g.store.DeleteID(ctx, sessionID); err != nil {
			return b.Error(err)
		}
	}
	return b.Format("", nil, 204)
}

// logoutComplete renders the confirmation page and expires the cookie.
// SameSite=None so the clear also applies when the provider frames the
// round-trip.
func (g *Gateway) logoutComplete(b *response.Builder) response.Response {
	page, err := views.Render("logged_out.html", nil)
	if err != nil {
		return b.Error(err)
	}
	return b.HTML(page, map[string]string{
		"Set-Cookie": g.cfg.CookieName + "=;expires=" + epochExpiry + ";path=/;SameSite=None;Secure",
	}, 200)
}

func (g *Gateway) authErrorPage(b *response.Builder, result map[string]string) response.Response {
	page, err := views.Render("auth_error.html", result)
	if err != nil {
		return b.Error(err)
	}
	return b.HTML(page, nil, 401)
}

// quotePlus percent-encodes with spaces as '+'.
func quotePlus(s string) string {
	return url.QueryEscape(s)
}

// unquotePlus reverses quotePlus, returning fallback for absent or broken
// values.
func unquotePlus(s, fallback string) string {
	if s == "" {
		return fallback
	}
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return fallback
	}
	return decoded
}
