// Package imagepack opens paginated documents stored as page images: a
// directory of images, a zip archive of images, or a single image. Archives
// may also be fetched over http(s).
package imagepack

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bnema/classroom/internal/ports"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const defaultMaxDownloadBytes = 256 << 20

var ErrNoPages = errors.New("document has no page images")

var pageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

type Source struct {
	HTTPClient       *http.Client
	MaxDownloadBytes int64
	Logger           *slog.Logger
}

var _ ports.DocumentSource = (*Source)(nil)

func NewSource(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		HTTPClient:       http.DefaultClient,
		MaxDownloadBytes: defaultMaxDownloadBytes,
		Logger:           logger.With("component", "imagepack"),
	}
}

// Open accepts a local path, a file:// URL or an http(s) URL of a zip archive.
func (s *Source) Open(ctx context.Context, location string) (ports.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("open document: location is required")
	}

	var (
		doc *Document
		err error
	)
	u, parseErr := url.Parse(location)
	switch {
	case parseErr == nil && (u.Scheme == "http" || u.Scheme == "https"):
		doc, err = s.download(ctx, u)
	case parseErr == nil && u.Scheme == "file":
		doc, err = openLocal(u.Path)
	default:
		doc, err = openLocal(location)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Source) download(ctx context.Context, u *url.URL) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build document request: %w", err)
	}

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch document: unexpected status %s", resp.Status)
	}

	limit := s.MaxDownloadBytes
	if limit <= 0 {
		limit = defaultMaxDownloadBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("fetch document: larger than %d bytes", limit)
	}

	if s.Logger != nil {
		s.Logger.Debug("document downloaded", "url", u.Redacted(), "bytes", len(body))
	}

	archive, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		if isImageName(u.Path) {
			name := path.Base(u.Path)
			return newDocument([]page{{name: name, open: bytesOpener(body)}}, nil)
		}
		return nil, fmt.Errorf("read document archive: %w", err)
	}
	return fromZip(archive, nil)
}

func openLocal(location string) (*Document, error) {
	info, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}

	if info.IsDir() {
		return fromDirectory(location)
	}
	if isImageName(location) {
		return newDocument([]page{{name: filepath.Base(location), open: fileOpener(location)}}, nil)
	}

	archive, err := zip.OpenReader(location)
	if err != nil {
		return nil, fmt.Errorf("open document archive: %w", err)
	}
	doc, err := fromZip(&archive.Reader, archive)
	if err != nil {
		_ = archive.Close()
		return nil, err
	}
	return doc, nil
}

func fromDirectory(dir string) (*Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read document directory: %w", err)
	}

	var pages []page
	for _, entry := range entries {
		if entry.IsDir() || !isImageName(entry.Name()) {
			continue
		}
		pages = append(pages, page{name: entry.Name(), open: fileOpener(filepath.Join(dir, entry.Name()))})
	}
	return newDocument(pages, nil)
}

func fromZip(archive *zip.Reader, closer io.Closer) (*Document, error) {
	var pages []page
	for _, file := range archive.File {
		if file.FileInfo().IsDir() || !isImageName(file.Name) || strings.HasPrefix(path.Base(file.Name), ".") {
			continue
		}
		pages = append(pages, page{name: file.Name, open: file.Open})
	}
	return newDocument(pages, closer)
}

func isImageName(name string) bool {
	return pageExtensions[strings.ToLower(path.Ext(name))]
}

func fileOpener(name string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return os.Open(name)
	}
}

func bytesOpener(data []byte) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

// sortPages orders page names so that "page2" comes before "page10".
func sortPages(pages []page) {
	sort.SliceStable(pages, func(i, j int) bool {
		return naturalLess(pages[i].name, pages[j].name)
	})
}

func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		ca, cb := a[0], b[0]
		if isDigit(ca) && isDigit(cb) {
			na, ra := leadingNumber(a)
			nb, rb := leadingNumber(b)
			if na != nb {
				if len(na) != len(nb) {
					return len(na) < len(nb)
				}
				return na < nb
			}
			a, b = ra, rb
			continue
		}
		if ca != cb {
			return ca < cb
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

// leadingNumber splits off the leading digits with zeros trimmed.
func leadingNumber(s string) (string, string) {
	end := 0
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	digits := strings.TrimLeft(s[:end], "0")
	return digits, s[end:]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
