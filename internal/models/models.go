package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// File is one uploaded document handed to the pipeline. The content bytes
// live only for the duration of a single ProcessFile call.
type File struct {
	FileName   string    `json:"file_name"`
	Content    []byte    `json:"-"`
	Uploader   string    `json:"uploader"`
	UploadTime time.Time `json:"upload_time"`
}

// PageText is the extracted text of one page.
type PageText struct {
	PageNo int    `json:"page_no"`
	Text   string `json:"text"`
}

// FileImage is one extracted image. Identity within a file is
// (PageNo, ImageNo); Data holds PNG bytes.
type FileImage struct {
	PageNo  int    `json:"page_no"`
	ImageNo int    `json:"image_no"`
	Data    []byte `json:"-"`
}

// PageRange is the inclusive span of source pages a chunk was drawn from.
type PageRange struct {
	StartPage int `json:"start_page"`
	EndPage   int `json:"end_page"`
}

// Chunk is a bounded, position-tagged unit of text prepared for indexing.
// ChunkNo values are unique and strictly increasing in emission order
// within one file.
type Chunk struct {
	ChunkNo   string    `json:"chunk_no"`
	PageRange PageRange `json:"page_range"`
	Text      string    `json:"text"`
}

// FileMetadata carries per-file identity used for deduplication and for
// building chunk ids.
type FileMetadata struct {
	FileHash   string            `json:"file_hash"`
	FileName   string            `json:"file_name"`
	Title      string            `json:"title"`
	Uploader   string            `json:"uploader"`
	UploadTime time.Time         `json:"upload_time"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// ProcessingResult is the single per-file outcome of the pipeline.
// NumTexts and NumImages count the extracted text pages and images, not
// the chunks indexed from them. Errors == nil means full success; a
// non-empty list means partial success.
type ProcessingResult struct {
	FileName  string       `json:"file_name"`
	NumPages  int          `json:"num_pages"`
	NumTexts  int          `json:"num_texts"`
	NumImages int          `json:"num_images"`
	Metadata  FileMetadata `json:"metadata"`
	Errors    []string     `json:"errors,omitempty"`
}

// SearchDoc is one row in a search index.
type SearchDoc struct {
	ChunkID    string    `db:"chunk_id" json:"chunk_id"`
	Chunk      string    `db:"chunk" json:"chunk"`
	Vector     []float32 `db:"vector" json:"-"`
	Metadata   string    `db:"metadata" json:"metadata"` // JSON serialized page range
	ParentID   string    `db:"parent_id" json:"parent_id"`
	Title      string    `db:"title" json:"title"`
	Uploader   string    `db:"uploader" json:"uploader"`
	UploadTime time.Time `db:"upload_time" json:"upload_time"`
}

// Filter is an equality predicate over index rows; zero-valued fields are
// unconstrained and set fields are ANDed together.
type Filter struct {
	Title    string
	ParentID string
	Uploader string
}

// Chunk content kinds; each kind namespaces its chunk ids and lives in its
// own index.
const (
	KindText    = "text"
	KindImage   = "image"
	KindSummary = "summary"
)

// ChunkID builds the external identifier consumed downstream:
// {kind}_{content_hash}_{chunk_no}.
func ChunkID(kind, fileHash, chunkNo string) string {
	return fmt.Sprintf("%s_%s_%s", kind, fileHash, chunkNo)
}

// TitleFromFileName derives the document title: the file name without its
// extension.
func TitleFromFileName(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// RawImage is an embedded raster image as produced by the document parser.
// Unicolor images are decorative and get dropped during extraction.
type RawImage struct {
	Data     []byte
	Unicolor bool
}

// DrawingStats counts the visible vector primitives on a page by type.
type DrawingStats struct {
	Curves int
	Lines  int
	Quads  int
	Rects  int
}

// NonRect is the number of visible primitives excluding plain rectangles.
// Dense vector art (high NonRect) marks a page as an infographic.
func (d DrawingStats) NonRect() int {
	return d.Curves + d.Lines + d.Quads
}

// ParsedPage is the raw per-page material extraction works from.
type ParsedPage struct {
	PageNo      int
	Text        string
	Images      []RawImage
	Drawings    DrawingStats // visible primitives only
	HasDrawings bool         // any drawing at all, visible or not
}
