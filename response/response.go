// Package response assembles canonical API Gateway responses: status,
// case-sensitive headers, body, and base64 framing for binary or compressed
// payloads.
package response

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	apperrors "github.com/authgate/lambda-oidc-gateway/internal/errors"
)

// Response is the outbound wire shape.
type Response struct {
	StatusCode      int               `json:"statusCode"`
	Headers         map[string]string `json:"headers,omitempty"`
	Body            string            `json:"body"`
	IsBase64Encoded bool              `json:"isBase64Encoded"`
}

const hiddenContent = "<content hidden>"

// Builder produces responses for one invocation. It knows the request id for
// log correlation and the negotiated Accept-Encoding for the compression
// decision.
type Builder struct {
	requestID      string
	acceptEncoding string
	compression    bool
	logger         zerolog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithCompression toggles gzip compression of compressible bodies.
func WithCompression(on bool) BuilderOption {
	return func(b *Builder) {
		b.compression = on
	}
}

// WithLogger replaces the response logger (primarily for testing).
func WithLogger(logger zerolog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a Builder for one request.
func NewBuilder(requestID, acceptEncoding string, options ...BuilderOption) *Builder {
	builder := &Builder{
		requestID:      requestID,
		acceptEncoding: acceptEncoding,
		compression:    true,
		logger:         log.Logger,
	}
	for _, opt := range options {
		opt(builder)
	}
	return builder
}

// Format assembles a response. Status 204 forces an empty body. When the
// client accepts gzip and the content type is compressible, the body is
// gzip-compressed and base64-framed.
func (b *Builder) Format(body string, headers map[string]string, code int) Response {
	if code == 204 {
		body = "" // no content
	}

	contentType := "text/html"
	if ct, ok := headers["Content-Type"]; ok {
		contentType = ct
	}

	isBase64 := false
	encodingHeader := map[string]string{}
	if b.negotiatesGzip() {
		if gzipped := compressContent([]byte(body), contentType); gzipped != nil {
			encodingHeader["Content-Encoding"] = "gzip"
			body = base64.StdEncoding.EncodeToString(gzipped)
			contentType += "; charset=utf-8"
			isBase64 = true
		}
	}

	resp := Response{
		StatusCode:      code,
		Headers:         b.mergeHeaders(contentType, headers, encodingHeader),
		Body:            body,
		IsBase64Encoded: isBase64,
	}
	b.logResponse(resp)
	return resp
}

// HTML is Format with a text/html content type.
func (b *Builder) HTML(body string, headers map[string]string, code int) Response {
	merged := map[string]string{"Content-Type": "text/html"}
	for k, v := range headers {
		merged[k] = v
	}
	return b.Format(body, merged, code)
}

// JSON serializes body and responds with application/json.
func (b *Builder) JSON(body any, headers map[string]string, code int) Response {
	serialized, err := json.Marshal(body)
	if err != nil {
		return b.Error(apperrors.Wrapf(err, "serialize response body"))
	}
	merged := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		merged[k] = v
	}
	return b.Format(string(serialized), merged, code)
}

// Redirect responds 302 with only a Location header (plus defaults). The
// Location value may carry secrets (state, client id) and is never logged.
func (b *Builder) Redirect(url string, headers map[string]string) Response {
	resp := Response{
		StatusCode: 302,
		Headers:    b.mergeHeaders("", map[string]string{"Location": url}, headers),
	}
	b.logResponse(resp)
	return resp
}

func (b *Builder) negotiatesGzip() bool {
	return b.compression && strings.Contains(b.acceptEncoding, "gzip")
}

// mergeHeaders layers the default headers under the caller's, keeping header
// keys case-sensitive as the wire shape requires.
func (b *Builder) mergeHeaders(contentType string, layers ...map[string]string) map[string]string {
	merged := map[string]string{
		"Access-Control-Allow-Origin": "*",
	}
	if contentType != "" {
		merged["Content-Type"] = contentType
	}
	for _, layer := range layers {
		for k, v := range layer {
			if k == "Content-Type" && contentType != "" {
				continue // already folded into the compression decision
			}
			merged[k] = v
		}
	}
	return merged
}

// logResponse writes the response log line. Bodies of 2xx responses may carry
// form echoes or token data, so they are masked; error bodies are logged as
// sent. Location and Set-Cookie headers are never logged at all.
func (b *Builder) logResponse(resp Response) {
	content := resp.Body
	if content != "" && resp.StatusCode < 400 {
		content = hiddenContent
	}
	b.logger.Info().
		Str("request_id", b.requestID).
		Int("status", resp.StatusCode).
		Str("content", content).
		Msg("response")
}

// compressible content types: text plus a fixed allow-list of structured text
// formats. Binary content is never compressed.
func compressible(contentType string) bool {
	if strings.HasPrefix(contentType, "text") {
		return true
	}
	switch contentType {
	case "application/json",
		"application/xml",
		"application/xhtml+xml",
		"application/rss+xml",
		"application/javascript",
		"application/x-javascript":
		return true
	}
	return false
}

// compressContent gzips content, or returns nil when the content is empty or
// not compressible.
func compressContent(content []byte, contentType string) []byte {
	if len(content) == 0 || !compressible(contentType) {
		return nil
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(content); err != nil {
		return nil
	}
	if err := w.Close(); err != nil {
		return nil
	}
	return buf.Bytes()
}
