package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

// TextBackend selects the library used to read page text
type TextBackend string

const (
	// BackendFitz reads text through MuPDF and keeps the line layout
	BackendFitz TextBackend = "fitz"
	// BackendLedongthuc reads text with the pure Go ledongthuc/pdf reader
	BackendLedongthuc TextBackend = "ledongthuc"
)

// Document is an open PDF with 1-based page access
type Document interface {
	Path() string
	PageCount() int
	PageText(pageNum int) (string, error)
	Close() error
}

// PageRenderer rasterises pages of an open document
type PageRenderer interface {
	PageCount() int
	RenderPNG(pageNum int, dpi float64) ([]byte, error)
}

// ParseTextBackend validates a backend name
func ParseTextBackend(name string) (TextBackend, error) {
	switch TextBackend(strings.ToLower(name)) {
	case BackendFitz:
		return BackendFitz, nil
	case BackendLedongthuc:
		return BackendLedongthuc, nil
	default:
		return "", fmt.Errorf("unknown text backend: %s (must be one of: fitz, ledongthuc)", name)
	}
}

// Open opens a PDF with the requested text backend
func Open(path string, backend TextBackend) (Document, error) {
	switch backend {
	case BackendFitz, "":
		return OpenFitz(path)
	case BackendLedongthuc:
		return OpenLedongthuc(path)
	default:
		return nil, fmt.Errorf("unknown text backend: %s", backend)
	}
}

// FitzDocument wraps a MuPDF document; it can both read text and render pages
type FitzDocument struct {
	path string
	doc  *fitz.Document
}

// OpenFitz opens a PDF through go-fitz
func OpenFitz(path string) (*FitzDocument, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &FitzDocument{path: path, doc: doc}, nil
}

// Path returns the file the document was opened from
func (d *FitzDocument) Path() string { return d.path }

// PageCount returns the number of pages
func (d *FitzDocument) PageCount() int { return d.doc.NumPage() }

// PageText returns the text of a 1-based page
func (d *FitzDocument) PageText(pageNum int) (string, error) {
	if pageNum < 1 || pageNum > d.doc.NumPage() {
		return "", fmt.Errorf("invalid page number %d (document has %d pages)", pageNum, d.doc.NumPage())
	}
	return d.doc.Text(pageNum - 1)
}

// RenderPNG renders a 1-based page as PNG bytes at the given resolution
func (d *FitzDocument) RenderPNG(pageNum int, dpi float64) ([]byte, error) {
	if pageNum < 1 || pageNum > d.doc.NumPage() {
		return nil, fmt.Errorf("invalid page number %d (document has %d pages)", pageNum, d.doc.NumPage())
	}
	return d.doc.ImagePNG(pageNum-1, dpi)
}

// Close releases the MuPDF handle
func (d *FitzDocument) Close() error {
	return d.doc.Close()
}

// LedongthucDocument reads text with ledongthuc/pdf
type LedongthucDocument struct {
	path   string
	file   *os.File
	reader *pdf.Reader
}

// OpenLedongthuc opens a PDF through ledongthuc/pdf
func OpenLedongthuc(path string) (*LedongthucDocument, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &LedongthucDocument{path: path, file: f, reader: r}, nil
}

// Path returns the file the document was opened from
func (d *LedongthucDocument) Path() string { return d.path }

// PageCount returns the number of pages
func (d *LedongthucDocument) PageCount() int { return d.reader.NumPage() }

// PageText returns the plain text of a 1-based page
func (d *LedongthucDocument) PageText(pageNum int) (text string, err error) {
	if pageNum < 1 || pageNum > d.reader.NumPage() {
		return "", fmt.Errorf("invalid page number %d (document has %d pages)", pageNum, d.reader.NumPage())
	}

	// ledongthuc panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("page %d: text extraction panicked: %v", pageNum, r)
		}
	}()

	page := d.reader.Page(pageNum)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// Close closes the underlying file
func (d *LedongthucDocument) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}
