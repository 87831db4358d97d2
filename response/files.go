package response

import (
	"encoding/base64"
	"fmt"
	"io/fs"
	"mime"
	"path"
	"strings"
)

// ServeFile responds with a file from fsys, base64-framed for the transport.
// Not designed for large files; those should come from object storage with
// signed URLs. A missing file is a plain 404, not an error.
func (b *Builder) ServeFile(fsys fs.FS, name string) Response {
	content, err := fs.ReadFile(fsys, strings.TrimPrefix(name, "/"))
	if err != nil {
		return b.Format("File Not Found", nil, 404)
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	contentLength := len(content)

	encodingHeader := map[string]string{}
	if b.negotiatesGzip() {
		if gzipped := compressContent(content, contentType); gzipped != nil {
			content = gzipped
			encodingHeader["Content-Encoding"] = "gzip"
		}
	}

	resp := Response{
		StatusCode: 200,
		Headers: b.mergeHeaders(contentType, encodingHeader, map[string]string{
			"Content-Length": fmt.Sprintf("%d", contentLength),
		}),
		Body:            base64.StdEncoding.EncodeToString(content),
		IsBase64Encoded: true,
	}

	b.logger.Info().
		Str("request_id", b.requestID).
		Int("status", resp.StatusCode).
		Str("file", name).
		Str("content_type", contentType).
		Int("content_length", contentLength).
		Msg("response")
	return resp
}
