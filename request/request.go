// Package request normalizes API Gateway proxy events into one canonical
// request shape. Both the v1.0 (REST API) and v2.0 (HTTP API) payload formats
// are accepted; everything downstream sees a single Request.
package request

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	apperrors "github.com/authgate/lambda-oidc-gateway/internal/errors"
)

// Request is the canonical view of one inbound HTTP event. It is built once
// per invocation and not mutated afterwards.
type Request struct {
	ID       string            // request id for log correlation
	Version  string            // payload format version ("1.0" or "2.0")
	Stage    string            // deployment stage ("" for $default)
	URL      string            // scheme://host:port of the deployment
	Path     string            // path with the stage prefix stripped
	Method   string            // HTTP method
	Headers  map[string]string // keys lower-cased
	Cookies  map[string]string
	Query    map[string]string
	RawQuery string // Query re-encoded as a querystring
	Form     Form   // parsed body, keyed by field name
	SourceIP string
}

// PathWithQuery returns the canonical path with the original querystring
// re-attached, as used for post-login referer round-trips.
func (r *Request) PathWithQuery() string {
	if r.RawQuery == "" {
		return r.Path
	}
	return r.Path + "?" + r.RawQuery
}

// Parse normalizes a raw proxy event. The payload format version is read from
// the event itself; an absent version means v1.0. An unrecognized version is
// an internal error that the boundary reports as HTTP 500.
func Parse(raw []byte, requestID string) (*Request, error) {
	var probe struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, apperrors.Wrapf(err, "parse event"))
	}

	version := probe.Version
	if version == "" {
		version = "1.0"
	}

	switch version {
	case "1.0":
		return parseV1(raw, requestID)
	case "2.0":
		return parseV2(raw, requestID)
	default:
		return nil, apperrors.Newf(apperrors.KindInternal, "unhandled version: %s", version)
	}
}

func parseV1(raw []byte, requestID string) (*Request, error) {
	var event events.APIGatewayProxyRequest
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, apperrors.Wrapf(err, "parse v1 event"))
	}

	headers := lowerHeaders(event.Headers)
	stage := canonicalStage(event.RequestContext.Stage)

	sourceIP := forwardedFor(headers)
	if sourceIP == "" {
		sourceIP = event.RequestContext.Identity.SourceIP
	}

	req := &Request{
		ID:       requestID,
		Version:  "1.0",
		Stage:    stage,
		URL:      deploymentURL(headers, event.RequestContext.DomainName),
		Path:     stripStage(event.Path, stage),
		Method:   event.HTTPMethod,
		Headers:  headers,
		Cookies:  parseCookieHeader(headers["cookie"]),
		SourceIP: sourceIP,
	}
	req.Query, req.RawQuery = canonicalQuery(event.QueryStringParameters)

	form, err := parseBody(event.Body, event.IsBase64Encoded, headers["content-type"])
	if err != nil {
		return nil, err
	}
	req.Form = form
	return req, nil
}

func parseV2(raw []byte, requestID string) (*Request, error) {
	var event events.APIGatewayV2HTTPRequest
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, apperrors.Wrapf(err, "parse v2 event"))
	}

	headers := lowerHeaders(event.Headers)
	stage := canonicalStage(event.RequestContext.Stage)

	sourceIP := forwardedFor(headers)
	if sourceIP == "" {
		sourceIP = event.RequestContext.HTTP.SourceIP
	}

	req := &Request{
		ID:       requestID,
		Version:  "2.0",
		Stage:    stage,
		URL:      deploymentURL(headers, event.RequestContext.DomainName),
		Path:     stripStage(event.RawPath, stage),
		Method:   event.RequestContext.HTTP.Method,
		Headers:  headers,
		Cookies:  parseCookieList(event.Cookies),
		SourceIP: sourceIP,
	}
	req.Query, req.RawQuery = canonicalQuery(event.QueryStringParameters)

	form, err := parseBody(event.Body, event.IsBase64Encoded, headers["content-type"])
	if err != nil {
		return nil, err
	}
	req.Form = form
	return req, nil
}

func lowerHeaders(headers map[string]string) map[string]string {
	lowered := make(map[string]string, len(headers))
	for k, v := range headers {
		lowered[strings.ToLower(k)] = v
	}
	return lowered
}

// canonicalStage maps the HTTP API "$default" stage to the empty string so
// that no prefix stripping happens for it.
func canonicalStage(stage string) string {
	if stage == "$default" {
		return ""
	}
	return stage
}

// stripStage removes the first occurrence of the stage prefix from the path.
func stripStage(path, stage string) string {
	if stage == "" {
		return path
	}
	stripped := strings.Replace(path, "/"+stage, "", 1)
	if stripped == "" {
		return "/"
	}
	return stripped
}

// deploymentURL rebuilds the externally visible base URL of the deployment
// from the forwarding headers, as required for IdP redirect URIs.
func deploymentURL(headers map[string]string, domainName string) string {
	proto := headers["x-forwarded-proto"]
	if proto == "" {
		proto = "https"
	}
	port := headers["x-forwarded-port"]
	if port == "" {
		port = "443"
	}
	return proto + "://" + domainName + ":" + port
}

// forwardedFor returns the client address from x-forwarded-for.
// Syntax: <client>, <proxy1>, <proxy2>
func forwardedFor(headers map[string]string) string {
	first, _, _ := strings.Cut(headers["x-forwarded-for"], ",")
	return strings.TrimSpace(first)
}

// parseCookieHeader splits a single semicolon-joined Cookie header (v1.0).
func parseCookieHeader(header string) map[string]string {
	cookies := map[string]string{}
	for _, c := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(c), "=")
		if !ok || name == "" {
			continue
		}
		cookies[name] = value
	}
	return cookies
}

// parseCookieList splits the v2.0 cookie array, one "name=value" per entry.
func parseCookieList(list []string) map[string]string {
	cookies := map[string]string{}
	for _, c := range list {
		name, value, ok := strings.Cut(c, "=")
		if !ok || name == "" {
			continue
		}
		cookies[name] = value
	}
	return cookies
}

// canonicalQuery copies the query map and re-encodes it as a querystring so
// the original request (path + query) can be round-tripped through a login
// redirect.
func canonicalQuery(params map[string]string) (map[string]string, string) {
	query := make(map[string]string, len(params))
	values := url.Values{}
	for k, v := range params {
		query[k] = v
		values.Set(k, v)
	}
	return query, values.Encode()
}
