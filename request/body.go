package request

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"

	apperrors "github.com/authgate/lambda-oidc-gateway/internal/errors"
)

// Form holds the parsed request body. Values are strings for plain fields and
// *FilePart for uploaded files.
type Form map[string]any

// Field returns the named form field as a string, or "" when absent or a file.
func (f Form) Field(name string) string {
	s, _ := f[name].(string)
	return s
}

// File returns the named file part, or nil when absent or a plain field.
func (f Form) File(name string) *FilePart {
	p, _ := f[name].(*FilePart)
	return p
}

// FilePart is one uploaded file from a multipart/form-data body.
type FilePart struct {
	Filename string
	MimeType string
	Content  []byte
}

// parseBody decodes the transport framing and dispatches on content type.
// An unsupported or absent content type yields an empty form. Malformed JSON
// and broken multipart framing are client errors, not crashes.
func parseBody(body string, isBase64 bool, contentType string) (Form, error) {
	form := Form{}
	if body == "" {
		return form, nil
	}

	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindClient, apperrors.Wrapf(err, "decode body"))
		}
		body = string(decoded)
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// No usable content type; treat the body as opaque.
		return form, nil
	}

	switch {
	case mediaType == "application/json":
		if err := json.Unmarshal([]byte(body), &form); err != nil {
			return nil, apperrors.Wrap(apperrors.KindClient, apperrors.Wrapf(err, "parse json body"))
		}
	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(body)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindClient, apperrors.Wrapf(err, "parse form body"))
		}
		for k := range values {
			form[k] = values.Get(k)
		}
	case mediaType == "multipart/form-data":
		return parseMultipart(body, params["boundary"])
	}
	return form, nil
}

// parseMultipart splits the body on the boundary. Parts without a name are
// skipped; parts without a filename are plain fields; parts with a filename
// become FilePart records with a per-part content type defaulting to
// application/octet-stream.
func parseMultipart(body, boundary string) (Form, error) {
	if boundary == "" {
		return nil, apperrors.New(apperrors.KindClient, "multipart body without boundary")
	}

	form := Form{}
	reader := multipart.NewReader(strings.NewReader(body), boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindClient, apperrors.Wrapf(err, "parse multipart body"))
		}

		name := part.FormName()
		if name == "" {
			continue
		}
		content, err := io.ReadAll(part)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindClient, apperrors.Wrapf(err, "read multipart part %q", name))
		}

		if part.FileName() == "" {
			form[name] = string(content)
			continue
		}
		mimeType := part.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		form[name] = &FilePart{
			Filename: part.FileName(),
			MimeType: mimeType,
			Content:  content,
		}
	}
	return form, nil
}
