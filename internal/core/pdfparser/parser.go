package pdfparser

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/core"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/models"
)

// renderDPI is the rasterization resolution for whole-page renders.
const renderDPI = 150

// FitzParser opens PDF bytes with MuPDF (via go-fitz).
type FitzParser struct{}

func NewFitzParser() *FitzParser {
	return &FitzParser{}
}

func (p *FitzParser) Parse(content []byte) (core.ParsedDocument, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return &fitzDocument{doc: doc, metadata: doc.Metadata()}, nil
}

type fitzDocument struct {
	doc      *fitz.Document
	metadata map[string]string
}

func (d *fitzDocument) NumPages() int {
	return d.doc.NumPage()
}

// Page extracts the text, the embedded raster images and the visible
// vector-drawing stats of one page. Images and drawings come from the
// page's SVG rendition, which preserves both as explicit elements.
func (d *fitzDocument) Page(pageNo int) (models.ParsedPage, error) {
	text, err := d.doc.Text(pageNo)
	if err != nil {
		return models.ParsedPage{}, fmt.Errorf("page %d text: %w", pageNo, err)
	}

	svg, err := d.doc.SVG(pageNo)
	if err != nil {
		return models.ParsedPage{}, fmt.Errorf("page %d svg: %w", pageNo, err)
	}
	drawings, hasDrawings, err := scanDrawings(svg)
	if err != nil {
		return models.ParsedPage{}, fmt.Errorf("page %d drawings: %w", pageNo, err)
	}
	images, err := scanImages(svg)
	if err != nil {
		return models.ParsedPage{}, fmt.Errorf("page %d images: %w", pageNo, err)
	}

	return models.ParsedPage{
		PageNo:      pageNo,
		Text:        strings.TrimSpace(text),
		Images:      images,
		Drawings:    drawings,
		HasDrawings: hasDrawings,
	}, nil
}

func (d *fitzDocument) RenderPage(pageNo int) ([]byte, error) {
	png, err := d.doc.ImagePNG(pageNo, renderDPI)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", pageNo, err)
	}
	return png, nil
}

// SlideExport detects slide-deck exports from the PDF creator/producer
// metadata.
func (d *fitzDocument) SlideExport() bool {
	for _, key := range []string{"creator", "producer"} {
		if strings.Contains(strings.ToLower(d.metadata[key]), "powerpoint") {
			return true
		}
	}
	return false
}

func (d *fitzDocument) Metadata() map[string]string {
	return d.metadata
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
