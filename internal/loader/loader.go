// Package loader fetches an uploaded document and extracts its plain text.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/storage"
	"github.com/ledongthuc/pdf"
)

// DefaultMaxBytes caps the size of a fetched document.
const DefaultMaxBytes = 50 << 20

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrTooLarge        = errors.New("document exceeds size limit")
)

// ObjectGetter reads a stored object. storage.S3Client implements it.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) (io.ReadCloser, *storage.ObjectMetadata, error)
}

// Loader turns a Document's source into text. Documents with a download URL
// are fetched over HTTP; otherwise the stored object is read directly.
type Loader struct {
	httpClient   *http.Client
	objects      ObjectGetter
	maxBytes     int64
	privateHosts bool
}

type Option func(*Loader)

func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		l.httpClient = c
	}
}

// AllowPrivateHosts lets download URLs resolve to loopback, private and
// link-local addresses. Without it such connections are refused.
func AllowPrivateHosts() Option {
	return func(l *Loader) {
		l.privateHosts = true
	}
}

func WithMaxBytes(n int64) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// New creates a Loader. objects may be nil when only download URLs are used.
func New(objects ObjectGetter, opts ...Option) *Loader {
	l := &Loader{
		objects:  objects,
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.httpClient == nil {
		l.httpClient = &http.Client{Timeout: 60 * time.Second, Transport: newTransport(l.privateHosts)}
	}
	return l
}

// newTransport checks the resolved address at dial time, so redirects and
// DNS answers cannot reach internal hosts either.
func newTransport(privateHosts bool) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if privateHosts {
		return t
	}
	t.Proxy = nil
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control: func(network, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			ip := net.ParseIP(host)
			if ip == nil || !publicIP(ip) {
				return fmt.Errorf("%w: %s", domain.ErrDownloadURLNotAllowed, host)
			}
			return nil
		},
	}
	t.DialContext = dialer.DialContext
	return t
}

func publicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast())
}

// Load returns the text of doc.
func (l *Loader) Load(ctx context.Context, doc *domain.Document) (string, error) {
	data, contentType, err := l.fetch(ctx, doc)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = doc.ContentType
	}
	return ExtractText(data, contentType)
}

func (l *Loader) fetch(ctx context.Context, doc *domain.Document) ([]byte, string, error) {
	switch {
	case doc.DownloadURL != "":
		return l.fetchURL(ctx, doc.DownloadURL)
	case doc.StorageKey != "" && l.objects != nil:
		body, meta, err := l.objects.GetObject(ctx, doc.StorageKey)
		if err != nil {
			return nil, "", err
		}
		defer body.Close()
		data, err := l.readAll(body)
		if err != nil {
			return nil, "", err
		}
		return data, meta.ContentType, nil
	default:
		return nil, "", domain.ErrDownloadURLNotFound
	}
}

func (l *Loader) fetchURL(ctx context.Context, url string) ([]byte, string, error) {
	if err := domain.ValidateDownloadURL(url); err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", domain.ErrUploadNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("failed to fetch document: HTTP %d", resp.StatusCode)
	}

	data, err := l.readAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (l *Loader) readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// LoadFile extracts the text of a local file.
func LoadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return ExtractText(data, mime.TypeByExtension(filepath.Ext(path)))
}

// ExtractText returns the plain text of a PDF or text document. PDFs are
// recognised by content type or by their magic bytes; pages are joined with a
// blank line so the chunker sees page breaks as paragraph boundaries.
func ExtractText(data []byte, contentType string) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)

	switch {
	case mediaType == "application/pdf" || bytes.HasPrefix(data, []byte("%PDF-")):
		return extractPDF(data)
	case strings.HasPrefix(mediaType, "text/"), mediaType == "" && isText(data):
		return string(bytes.ToValidUTF8(data, nil)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
}

func extractPDF(data []byte) (text string, err error) {
	// The PDF parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		if strings.TrimSpace(content) != "" {
			pages = append(pages, strings.TrimSpace(content))
		}
	}

	return strings.Join(pages, "\n\n"), nil
}

func isText(data []byte) bool {
	sample := data[:min(len(data), 512)]
	return http.DetectContentType(sample) == "text/plain; charset=utf-8"
}
