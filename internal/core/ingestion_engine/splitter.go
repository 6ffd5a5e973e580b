package ingestion_engine

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/models"
)

// LengthFunc measures text for chunk-size accounting. The default counts
// characters; a token-based estimator can be plugged in instead.
type LengthFunc func(string) int

// DefaultSeparators are tried from most- to least-preferred when looking
// for a split point. The empty string is the split-anywhere fallback.
var DefaultSeparators = []string{"\n\n", ".\n", ". ", "\n", " ", ""}

// SplitterConfig tunes the page text splitter.
//
// ChunkSize:    maximum size of each chunk (before overlap is prepended).
// ChunkOverlap: trailing text of one chunk repeated at the start of the next.
// Length:       measurement function (nil = character count).
// Separators:   split-point candidates in priority order (nil = defaults).
type SplitterConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Length       LengthFunc
	Separators   []string
}

// PageTextSplitter chunks text from pages while maintaining page numbers.
// Split points prefer separator boundaries; overlaps are trimmed back to a
// separator so they do not start mid-word.
type PageTextSplitter struct {
	chunkSize    int
	chunkOverlap int
	length       LengthFunc
	separators   []string
}

// NewPageTextSplitter validates the config and builds a splitter.
func NewPageTextSplitter(cfg SplitterConfig) (*PageTextSplitter, error) {
	if cfg.ChunkSize <= 0 {
		return nil, InputError("chunk_size must be positive", nil)
	}
	if cfg.ChunkOverlap < 0 {
		return nil, InputError("chunk_overlap must be non-negative", nil)
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, InputError("chunk_overlap must be less than chunk_size", nil)
	}

	length := cfg.Length
	if length == nil {
		length = utf8.RuneCountInString
	}
	separators := cfg.Separators
	if separators == nil {
		separators = DefaultSeparators
	}

	return &PageTextSplitter{
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		length:       length,
		separators:   separators,
	}, nil
}

// Split chunks the page texts in order, tagging every chunk with the page
// range its content was drawn from. Chunk numbers are zero-based and
// strictly increasing.
func (s *PageTextSplitter) Split(pages []models.PageText) ([]models.Chunk, error) {
	if len(pages) == 0 {
		return nil, InputError(ErrEmptyPages.Error(), ErrEmptyPages)
	}

	var (
		chunks       []models.Chunk
		currentChunk string
		overlapText  string
		startPage    int
		endPage      int
	)

	for _, page := range pages {
		remaining := page.Text
		if remaining == "" {
			continue
		}

		for remaining != "" {
			// The chunk keeps the start page of the page its buffer began
			// on; the end page follows the page being consumed.
			if currentChunk == "" {
				startPage = page.PageNo
			}
			endPage = page.PageNo

			if s.length(currentChunk+remaining) <= s.chunkSize {
				currentChunk += remaining
				remaining = ""
			} else {
				splitPoint := s.findSplitPoint(remaining, s.chunkSize-s.length(currentChunk))
				currentChunk += remaining[:splitPoint]
				remaining = strings.TrimLeftFunc(remaining[splitPoint:], unicode.IsSpace)
			}

			if s.length(currentChunk)+s.length(overlapText) >= s.chunkSize {
				chunks = append(chunks, models.Chunk{
					ChunkNo:   strconv.Itoa(len(chunks)),
					PageRange: models.PageRange{StartPage: startPage, EndPage: endPage},
					Text:      overlapText + currentChunk,
				})
				// The next overlap derives from the buffer before this
				// chunk's own overlap was prepended.
				overlapText = s.overlapFor(currentChunk)
				currentChunk = ""
			}
		}
	}

	if currentChunk != "" {
		chunks = append(chunks, models.Chunk{
			ChunkNo:   strconv.Itoa(len(chunks)),
			PageRange: models.PageRange{StartPage: startPage, EndPage: endPage},
			Text:      overlapText + currentChunk,
		})
	}

	return chunks, nil
}

// findSplitPoint returns the byte offset to cut remaining text at, given
// how much chunk capacity is left. Each separator is tried in priority
// order, taking the right-most occurrence that starts within the budget;
// the first separator with any match wins. With no match the cut lands
// exactly at the budget.
func (s *PageTextSplitter) findSplitPoint(text string, budget int) int {
	for _, sep := range s.separators {
		if sep == "" {
			break
		}
		window := runePrefix(text, budget-1+utf8.RuneCountInString(sep))
		if idx := strings.LastIndex(window, sep); idx != -1 {
			return idx + len(sep)
		}
	}
	return len(runePrefix(text, budget))
}

// overlapFor derives the text prepended to the next chunk from the chunk
// just closed. The trailing slice is widened left to the nearest separator
// boundary when one exists.
func (s *PageTextSplitter) overlapFor(chunk string) string {
	if s.chunkOverlap == 0 {
		return ""
	}
	n := utf8.RuneCountInString(chunk)
	if n <= s.chunkOverlap {
		return chunk
	}

	window := runePrefix(chunk, n-s.chunkOverlap)
	for _, sep := range s.separators {
		if sep == "" {
			break
		}
		if idx := strings.LastIndex(window, sep); idx != -1 {
			return chunk[idx+len(sep):]
		}
	}

	// No separator found: exact trailing slice.
	return chunk[len(window):]
}

// runePrefix returns the byte prefix of s covering at most n runes.
func runePrefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
