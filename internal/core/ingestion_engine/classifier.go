package ingestion_engine

import (
	"log"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/models"
)

// PageKind is how extraction treats one page.
type PageKind int

const (
	// PageKindEmpty contributes nothing: no text, no images, no drawings.
	PageKindEmpty PageKind = iota
	// PageKindText keeps the page's text plus its informative raster images.
	PageKindText
	// PageKindImageOnly renders the whole page as one opaque image.
	PageKindImageOnly
)

// infographicThreshold is the number of visible non-rectangle vector
// primitives at which a page is treated as one image: dense vector art is
// not reliably chunkable text.
const infographicThreshold = 9

// PageStats groups pages by whether they contain any text or images.
// Advisory only; logged after extraction.
type PageStats struct {
	TextYesImageYes int
	TextYesImageNo  int
	TextNoImageYes  int
	TextNoImageNo   int
}

func (s *PageStats) Update(hasText, hasImages bool) {
	switch {
	case hasText && hasImages:
		s.TextYesImageYes++
	case hasText:
		s.TextYesImageNo++
	case hasImages:
		s.TextNoImageYes++
	default:
		s.TextNoImageNo++
	}
}

func (s *PageStats) LogSummary(metadata map[string]string) {
	log.Printf("PageStats: file metadata: %v", metadata)
	log.Printf("PageStats: text+image=%d text-only=%d image-only=%d empty=%d",
		s.TextYesImageYes, s.TextYesImageNo, s.TextNoImageYes, s.TextNoImageNo)
}

// PageClassifier decides, per page, whether extraction treats the page as
// an opaque rendered image or as structured text plus images.
type PageClassifier struct {
	slideExport bool
}

// NewPageClassifier builds a classifier for one document. slideExport
// applies the document-level override: every page of a slide deck is
// image-only, since slides are visually dense and text extraction is
// unreliable there.
func NewPageClassifier(slideExport bool) *PageClassifier {
	return &PageClassifier{slideExport: slideExport}
}

// Classify is deterministic in the page's drawing stats, text and images.
func (c *PageClassifier) Classify(page models.ParsedPage) PageKind {
	if c.slideExport {
		return PageKindImageOnly
	}

	if page.Drawings.NonRect() >= infographicThreshold {
		return PageKindImageOnly
	}

	if page.Text == "" {
		if hasInformativeImage(page.Images) || page.HasDrawings {
			return PageKindImageOnly
		}
		return PageKindEmpty
	}

	return PageKindText
}

// hasInformativeImage ignores unicolor images: a text-less page whose only
// images are decorative fills contributes nothing.
func hasInformativeImage(images []models.RawImage) bool {
	for _, img := range images {
		if !img.Unicolor {
			return true
		}
	}
	return false
}
