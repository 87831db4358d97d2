package request_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/authgate/lambda-oidc-gateway/internal/errors"
	"github.com/authgate/lambda-oidc-gateway/request"
)

const testRequestID = "req-1"

type testEvent struct {
	version     string
	stage       string
	path        string
	method      string
	headers     map[string]string
	cookies     []string // v2 only
	query       map[string]string
	body        string
	base64Body  bool
	sourceIP    string
	domainName  string
	contentType string
}

func buildEvent(t *testing.T, in testEvent) []byte {
	t.Helper()

	headers := map[string]string{}
	for k, v := range in.headers {
		headers[k] = v
	}
	if in.contentType != "" {
		headers["Content-Type"] = in.contentType
	}

	domain := in.domainName
	if domain == "" {
		domain = "example.execute-api.eu-west-1.amazonaws.com"
	}

	var event map[string]any
	switch in.version {
	case "", "1.0":
		event = map[string]any{
			"path":                  in.path,
			"httpMethod":            in.method,
			"headers":               headers,
			"queryStringParameters": in.query,
			"requestContext": map[string]any{
				"stage":      in.stage,
				"domainName": domain,
				"identity":   map[string]any{"sourceIp": in.sourceIP},
			},
		}
		if in.version != "" {
			event["version"] = in.version
		}
	case "2.0":
		event = map[string]any{
			"version":               "2.0",
			"rawPath":               in.path,
			"cookies":               in.cookies,
			"headers":               headers,
			"queryStringParameters": in.query,
			"requestContext": map[string]any{
				"stage":      in.stage,
				"domainName": domain,
				"http": map[string]any{
					"method":   in.method,
					"sourceIp": in.sourceIP,
				},
			},
		}
	default:
		event = map[string]any{"version": in.version}
	}

	if in.body != "" {
		event["body"] = in.body
		event["isBase64Encoded"] = in.base64Body
	}

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return raw
}

func TestParseV1(t *testing.T) {
	raw := buildEvent(t, testEvent{
		stage:  "prod",
		path:   "/prod/reports/monthly",
		method: "GET",
		headers: map[string]string{
			"Cookie":            "session=abc123; theme=dark",
			"X-Forwarded-For":   "203.0.113.7, 10.0.0.1",
			"X-Forwarded-Proto": "https",
			"X-Forwarded-Port":  "443",
		},
		query:    map[string]string{"year": "2024"},
		sourceIP: "10.0.0.1",
	})

	req, err := request.Parse(raw, testRequestID)
	require.NoError(t, err)

	assert.Equal(t, "1.0", req.Version)
	assert.Equal(t, "prod", req.Stage)
	assert.Equal(t, "/reports/monthly", req.Path)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "https://example.execute-api.eu-west-1.amazonaws.com:443", req.URL)
	assert.Equal(t, "abc123", req.Cookies["session"])
	assert.Equal(t, "dark", req.Cookies["theme"])
	assert.Equal(t, "203.0.113.7", req.SourceIP)
	assert.Equal(t, "2024", req.Query["year"])
	assert.Equal(t, "/reports/monthly?year=2024", req.PathWithQuery())
}

func TestParseV1DefaultsVersion(t *testing.T) {
	// A missing version field means the v1.0 payload shape.
	raw := buildEvent(t, testEvent{stage: "dev", path: "/dev/", method: "GET"})

	req, err := request.Parse(raw, testRequestID)
	require.NoError(t, err)
	assert.Equal(t, "1.0", req.Version)
	assert.Equal(t, "/", req.Path)
}

func TestParseV1SourceIPFallback(t *testing.T) {
	raw := buildEvent(t, testEvent{
		stage:    "prod",
		path:     "/prod/x",
		method:   "GET",
		sourceIP: "198.51.100.2",
	})

	req, err := request.Parse(raw, testRequestID)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.2", req.SourceIP)
}

func TestParseV2(t *testing.T) {
	raw := buildEvent(t, testEvent{
		version:  "2.0",
		stage:    "$default",
		path:     "/dashboard",
		method:   "GET",
		cookies:  []string{"session=xyz789", "lang=en"},
		sourceIP: "192.0.2.10",
	})

	req, err := request.Parse(raw, testRequestID)
	require.NoError(t, err)

	assert.Equal(t, "2.0", req.Version)
	assert.Equal(t, "", req.Stage, "$default stage strips nothing")
	assert.Equal(t, "/dashboard", req.Path)
	assert.Equal(t, "xyz789", req.Cookies["session"])
	assert.Equal(t, "en", req.Cookies["lang"])
	assert.Equal(t, "192.0.2.10", req.SourceIP)
}

func TestParseV2StageStripped(t *testing.T) {
	raw := buildEvent(t, testEvent{
		version: "2.0",
		stage:   "beta",
		path:    "/beta/items",
		method:  "GET",
	})

	req, err := request.Parse(raw, testRequestID)
	require.NoError(t, err)
	assert.Equal(t, "/items", req.Path)
}

func TestParseUnhandledVersion(t *testing.T) {
	raw := buildEvent(t, testEvent{version: "3.0"})

	_, err := request.Parse(raw, testRequestID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "unhandled version")
}

func TestParseJSONBody(t *testing.T) {
	raw := buildEvent(t, testEvent{
		version:     "2.0",
		stage:       "$default",
		path:        "/api/items",
		method:      "POST",
		contentType: "application/json",
		body:        `{"name":"widget","qty":"3"}`,
	})

	req, err := request.Parse(raw, testRequestID)
	require.NoError(t, err)
	assert.Equal(t, "widget", req.Form.Field("name"))
}

func TestParseMalformedJSONBodyIsClientError(t *testing.T) {
	raw := buildEvent(t, testEvent{
		version:     "2.0",
		stage:       "$default",
		path:        "/api/items",
		method:      "POST",
		contentType: "application/json",
		body:        `{"name": oops`,
	})

	_, err := request.Parse(raw, testRequestID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindClient, apperrors.KindOf(err))
}

func TestParseURLEncodedBody(t *testing.T) {
	raw := buildEvent(t, testEvent{
		version:     "2.0",
		stage:       "$default",
		path:        "/submit",
		method:      "POST",
		contentType: "application/x-www-form-urlencoded",
		body:        "a=1&b=two+words",
	})

	req, err := request.Parse(raw, testRequestID)
	require.NoError(t, err)
	assert.Equal(t, "1", req.Form.Field("a"))
	assert.Equal(t, "two words", req.Form.Field("b"))
}

func TestParseBase64Body(t *testing.T) {
	raw := buildEvent(t, testEvent{
		version:     "2.0",
		stage:       "$default",
		path:        "/submit",
		method:      "POST",
		contentType: "application/x-www-form-urlencoded",
		body:        base64.StdEncoding.EncodeToString([]byte("a=1")),
		base64Body:  true,
	})

	req, err := request.Parse(raw, testRequestID)
	require.NoError(t, err)
	assert.Equal(t, "1", req.Form.Field("a"))
}

func TestParseMultipartBody(t *testing.T) {
	body := "--boundary123\r\n" +
		"Content-Disposition: form-data; name=\"foo\"\r\n" +
		"\r\n" +
		"bar\r\n" +
		"--boundary123\r\n" +
		"Content-Disposition: form-data; name=\"upload\"; filename=\"a.txt\"\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"hi\r\n" +
		"--boundary123--\r\n"

	raw := buildEvent(t, testEvent{
		version:     "2.0",
		stage:       "$default",
		path:        "/upload",
		method:      "POST",
		contentType: `multipart/form-data; boundary=boundary123`,
		body:        body,
	})

	req, err := request.Parse(raw, testRequestID)
	require.NoError(t, err)

	assert.Equal(t, "bar", req.Form.Field("foo"))
	filePart := req.Form.File("upload")
	require.NotNil(t, filePart)
	assert.Equal(t, "a.txt", filePart.Filename)
	assert.Equal(t, "text/plain", filePart.MimeType)
	assert.Equal(t, "hi", string(filePart.Content))
}

func TestParseMultipartDefaultsMimeType(t *testing.T) {
	body := "--b\r\n" +
		"Content-Disposition: form-data; name=\"blob\"; filename=\"raw.bin\"\r\n" +
		"\r\n" +
		"\x01\x02\r\n" +
		"--b--\r\n"

	raw := buildEvent(t, testEvent{
		version:     "2.0",
		stage:       "$default",
		path:        "/upload",
		method:      "POST",
		contentType: `multipart/form-data; boundary=b`,
		body:        body,
	})

	req, err := request.Parse(raw, testRequestID)
	require.NoError(t, err)
	filePart := req.Form.File("blob")
	require.NotNil(t, filePart)
	assert.Equal(t, "application/octet-stream", filePart.MimeType)
}

func TestParseMultipartWithoutBoundaryIsClientError(t *testing.T) {
	raw := buildEvent(t, testEvent{
		version:     "2.0",
		stage:       "$default",
		path:        "/upload",
		method:      "POST",
		contentType: "multipart/form-data",
		body:        "whatever",
	})

	_, err := request.Parse(raw, testRequestID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindClient, apperrors.KindOf(err))
}

func TestParseUnknownContentTypeYieldsEmptyForm(t *testing.T) {
	raw := buildEvent(t, testEvent{
		version:     "2.0",
		stage:       "$default",
		path:        "/submit",
		method:      "POST",
		contentType: "application/octet-stream",
		body:        "opaque bytes",
	})

	req, err := request.Parse(raw, testRequestID)
	require.NoError(t, err)
	assert.Empty(t, req.Form)
}
