// Package proxy relays admitted requests to the downstream analyzer service.
// The gateway is a transparent pass-through on the response side: whatever
// status and body the analyzer returns goes back to the caller unmodified.
// The only thing the gateway adds on the way in is the authenticated
// principal's id, which the analyzer trusts for ownership scoping.
package proxy

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"gatehouse/internal/apperror"
)

// downstreamPrefix is the analyzer's versioned API root. Gateway paths under
// /api/analyzer map 1:1 onto downstream paths under this prefix.
const downstreamPrefix = "/api/v1"

// multipartOverhead is the slack allowed between the declared Content-Length
// and the file size ceiling, covering boundaries and part headers.
const multipartOverhead = 10 * 1024

// errFileTooLarge aborts the outbound stream when the file part exceeds the
// ceiling mid-copy (a client that lied about Content-Length).
var errFileTooLarge = errors.New("file exceeds upload size limit")

// Forwarder rewrites and relays inbound requests to the analyzer service.
type Forwarder struct {
	baseURL       string
	maxUploadSize int64
	client        *http.Client
}

// NewForwarder creates a forwarder targeting the given analyzer base URL.
// The HTTP client carries no timeout of its own: uploads may be large, and
// cancellation comes from the caller's request context instead.
func NewForwarder(baseURL string, maxUploadSize int64) *Forwarder {
	return &Forwarder{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		maxUploadSize: maxUploadSize,
		client:        &http.Client{},
	}
}

// Relay forwards a request with the given method, downstream path, and query
// to the analyzer and copies the response back verbatim. body may be nil.
// The outbound request shares the caller's context, so a disconnecting
// caller aborts the in-flight downstream call.
func (f *Forwarder) Relay(c echo.Context, method, path string, query url.Values, body io.Reader, contentType string) error {
	u := f.baseURL + downstreamPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(c.Request().Context(), method, u, body)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("building downstream request: %w", err))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return apperror.NewUpstreamUnavailable(err)
	}

	return relayResponse(c, resp)
}

// ForwardUpload streams the inbound multipart body into a fresh outbound
// multipart payload with a user_id field appended, without buffering the
// file. The size ceiling is enforced at the gateway: oversized requests are
// rejected before any file byte reaches the analyzer.
func (f *Forwarder) ForwardUpload(c echo.Context, principalID string) error {
	req := c.Request()

	// A truthful Content-Length that cannot fit the ceiling is rejected up
	// front; a lying client is caught by the limit reader during the copy.
	if req.ContentLength > f.maxUploadSize+multipartOverhead {
		return apperror.NewPayloadTooLarge("File exceeds the upload size limit")
	}

	mr, err := req.MultipartReader()
	if err != nil {
		return apperror.NewValidation("Expected a multipart/form-data request")
	}

	filePart, err := findFilePart(mr)
	if err != nil {
		return err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := f.copyUpload(mw, filePart, principalID)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	outReq, err := http.NewRequestWithContext(req.Context(), http.MethodPost, f.baseURL+downstreamPrefix+"/upload", pr)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("building upload request: %w", err))
	}
	outReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := f.client.Do(outReq)
	if err != nil {
		if errors.Is(err, errFileTooLarge) {
			return apperror.NewPayloadTooLarge("File exceeds the upload size limit")
		}
		return apperror.NewUpstreamUnavailable(err)
	}

	return relayResponse(c, resp)
}

// findFilePart scans the multipart stream for the "file" field. Earlier
// non-file fields are drained and discarded.
func findFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, apperror.NewValidation("No file uploaded")
		}
		if err != nil {
			return nil, apperror.NewValidation("Malformed multipart body")
		}
		if part.FormName() == "file" && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

// copyUpload writes the file part and the user_id field into the outbound
// multipart writer, enforcing the size ceiling as bytes flow.
func (f *Forwarder) copyUpload(mw *multipart.Writer, part *multipart.Part, principalID string) error {
	defer part.Close()

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, part.FileName()))
	if ct := part.Header.Get("Content-Type"); ct != "" {
		hdr.Set("Content-Type", ct)
	}

	fw, err := mw.CreatePart(hdr)
	if err != nil {
		return fmt.Errorf("creating file part: %w", err)
	}

	n, err := io.Copy(fw, io.LimitReader(part, f.maxUploadSize+1))
	if err != nil {
		return fmt.Errorf("streaming file: %w", err)
	}
	if n > f.maxUploadSize {
		return errFileTooLarge
	}

	return mw.WriteField("user_id", principalID)
}

// relayResponse copies the downstream status, content type, and body back to
// the caller byte-for-byte. Downstream errors (4xx/5xx with a body) pass
// through here too; the gateway never reinterprets them.
func relayResponse(c echo.Context, resp *http.Response) error {
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}

	return c.Stream(resp.StatusCode, contentType, resp.Body)
}
