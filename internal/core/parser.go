package core

import "github.com/xtfocus/demo-assistant-rag-backend/internal/models"

// DocumentParser opens raw document bytes for page-level access.
type DocumentParser interface {
	Parse(content []byte) (ParsedDocument, error)
}

// ParsedDocument is one open document. Pages are zero-based. Callers own
// the document for the duration of one file's processing and must Close it.
type ParsedDocument interface {
	NumPages() int

	// Page returns the raw material of one page: text, embedded raster
	// images and vector-drawing stats.
	Page(pageNo int) (models.ParsedPage, error)

	// RenderPage rasterizes the whole page to PNG, for pages treated as
	// opaque images.
	RenderPage(pageNo int) ([]byte, error)

	// SlideExport reports whether the document was exported from a
	// slide-authoring tool.
	SlideExport() bool

	Metadata() map[string]string
	Close() error
}
