package ingestion_engine

import (
	"fmt"
	"log"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/core"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/models"
)

// ExtractTextsAndImages walks a parsed document page by page and produces
// the ordered text pages and images the pipeline works on.
//
// Pages classified image-only are rendered whole; text pages keep their
// text and their informative (non-unicolor) raster images. Page and image
// numbering is zero-based and preserved in the output.
func ExtractTextsAndImages(doc core.ParsedDocument) ([]models.PageText, []models.FileImage, error) {
	var (
		stats  PageStats
		texts  []models.PageText
		images []models.FileImage
	)

	classifier := NewPageClassifier(doc.SlideExport())

	for pageNo := 0; pageNo < doc.NumPages(); pageNo++ {
		page, err := doc.Page(pageNo)
		if err != nil {
			return nil, nil, fmt.Errorf("read page %d: %w", pageNo, err)
		}

		switch classifier.Classify(page) {
		case PageKindImageOnly:
			if page.Text == "" && page.Drawings.NonRect() < infographicThreshold && !doc.SlideExport() {
				log.Printf("Extractor: page %d contains no text elements and will be treated as an image", pageNo)
			} else if !doc.SlideExport() && page.Drawings.NonRect() >= infographicThreshold {
				log.Printf("Extractor: page %d contains multiple visual elements and will be treated as an image", pageNo)
			}
			rendered, err := doc.RenderPage(pageNo)
			if err != nil {
				return nil, nil, fmt.Errorf("render page %d: %w", pageNo, err)
			}
			images = append(images, models.FileImage{PageNo: pageNo, ImageNo: pageNo, Data: rendered})
			stats.Update(false, true)

		case PageKindText:
			texts = append(texts, models.PageText{PageNo: pageNo, Text: page.Text})
			kept := 0
			for _, img := range page.Images {
				if img.Unicolor {
					continue
				}
				images = append(images, models.FileImage{PageNo: pageNo, ImageNo: kept, Data: img.Data})
				kept++
			}
			stats.Update(true, kept > 0)

		default:
			stats.Update(false, false)
		}
	}

	stats.LogSummary(doc.Metadata())
	return texts, images, nil
}
