package ingestion_engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/core"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/models"
)

// minDescriptionLength filters out degenerate image descriptions such as
// "a shape" or "a logo" before they reach the index.
const minDescriptionLength = 10

// PipelineDeps bundles the collaborators one Pipeline needs.
type PipelineDeps struct {
	Parser     core.DocumentParser
	Splitter   *PageTextSplitter
	Summarizer *FileSummarizer
	Descriptor *ImageDescriptor
	Embedder   core.EmbeddingProvider

	TextStore    core.SearchStore
	ImageStore   core.SearchStore
	SummaryStore core.SearchStore

	Objects     core.ObjectClient
	ImageBucket string

	// MaxConcurrentDescriptions bounds in-flight vision calls per file.
	MaxConcurrentDescriptions int
}

// Pipeline turns one uploaded document into indexed text, image and
// summary chunks.
//
// Per file it extracts pages, then fans out: text chunks are split and
// indexed immediately, a document summary is generated concurrently, and
// image descriptions wait for the summary (they use it as context) before
// running under a bounded-concurrency cap. Summary failure degrades the
// result; any other stage failure aborts the file.
type Pipeline struct {
	deps PipelineDeps
}

func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.MaxConcurrentDescriptions <= 0 {
		deps.MaxConcurrentDescriptions = 30
	}
	return &Pipeline{deps: deps}
}

// ProcessFile runs the whole pipeline for one file and reports the outcome.
// It never returns an error: failures land in the result's Errors list, and
// a fatal failure yields zero counts so the caller can tell nothing was
// indexed.
func (p *Pipeline) ProcessFile(ctx context.Context, file models.File) models.ProcessingResult {
	meta := models.FileMetadata{
		FileHash:   HashBytes(file.Content),
		FileName:   file.FileName,
		Title:      models.TitleFromFileName(file.FileName),
		Uploader:   file.Uploader,
		UploadTime: file.UploadTime,
	}
	result := models.ProcessingResult{FileName: file.FileName, Metadata: meta}

	doc, err := p.deps.Parser.Parse(file.Content)
	if err != nil {
		result.Errors = []string{ExtractionError("parsing "+file.FileName, err).Error()}
		return result
	}
	defer doc.Close()

	texts, images, err := ExtractTextsAndImages(doc)
	if err != nil {
		result.Errors = []string{ExtractionError("extracting "+file.FileName, err).Error()}
		return result
	}
	result.NumPages = doc.NumPages()
	if len(texts) == 0 && len(images) == 0 {
		log.Printf("Pipeline: %s yielded no text and no images", file.FileName)
		return result
	}

	var rec errorList
	g, gctx := errgroup.WithContext(ctx)

	// The summary gates both summary indexing and image description, so it
	// runs outside the group: its failure must not cancel sibling work.
	var summaryText string
	summaryDone := make(chan struct{})
	go func() {
		defer close(summaryDone)
		s, err := p.deps.Summarizer.Run(gctx, pageStrings(texts), images)
		if err != nil {
			rec.add(SummaryError("summarizing "+file.FileName, err))
			return
		}
		summaryText = s
	}()

	g.Go(func() error {
		return p.indexTexts(gctx, meta, texts)
	})

	g.Go(func() error {
		if err := waitFor(gctx, summaryDone); err != nil {
			return err
		}
		return p.indexSummary(gctx, meta, summaryText)
	})

	g.Go(func() error {
		if err := waitFor(gctx, summaryDone); err != nil {
			return err
		}
		return p.processImages(gctx, meta, images, summaryText)
	})

	if err := g.Wait(); err != nil {
		// The summarizer is not part of the group; it still must settle
		// before this file's work is declared over.
		<-summaryDone
		log.Printf("Pipeline: fatal error processing %s: %v", file.FileName, err)
		result.NumPages = 0
		result.Errors = []string{err.Error()}
		return result
	}

	result.NumTexts = len(texts)
	result.NumImages = len(images)
	result.Errors = rec.snapshot()
	return result
}

// indexTexts splits the page texts and indexes the resulting chunks.
// A document with no text pages indexes nothing and is not an error.
func (p *Pipeline) indexTexts(ctx context.Context, meta models.FileMetadata, texts []models.PageText) error {
	if len(texts) == 0 {
		return nil
	}
	chunks, err := p.deps.Splitter.Split(texts)
	if err != nil {
		return ExtractionError("splitting "+meta.FileName, err)
	}
	return p.indexChunks(ctx, p.deps.TextStore, models.KindText, meta, chunks)
}

// indexSummary stores the document summary as a single chunk. An empty
// summary (generation failed or produced nothing) indexes nothing.
func (p *Pipeline) indexSummary(ctx context.Context, meta models.FileMetadata, summary string) error {
	if summary == "" {
		return nil
	}
	chunk := models.Chunk{ChunkNo: "0", PageRange: models.PageRange{StartPage: 0, EndPage: 0}, Text: summary}
	return p.indexChunks(ctx, p.deps.SummaryStore, models.KindSummary, meta, []models.Chunk{chunk})
}

// processImages describes, uploads and indexes the extracted images.
// Descriptions run concurrently under the per-file cap; any single failure
// aborts the stage.
func (p *Pipeline) processImages(ctx context.Context, meta models.FileMetadata, images []models.FileImage, summary string) error {
	if len(images) == 0 {
		return nil
	}

	descriptions := make([]string, len(images))
	sem := semaphore.NewWeighted(int64(p.deps.MaxConcurrentDescriptions))
	g, gctx := errgroup.WithContext(ctx)

	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			text, err := p.deps.Descriptor.Run(gctx, img.Data, summary)
			if err != nil {
				return ImageProcessingError(
					fmt.Sprintf("describing page %d image %d of %s", img.PageNo, img.ImageNo, meta.FileName), err)
			}
			descriptions[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var chunks []models.Chunk
	for i, img := range images {
		if utf8.RuneCountInString(descriptions[i]) < minDescriptionLength {
			log.Printf("Pipeline: dropping trivial description for page %d image %d of %s",
				img.PageNo, img.ImageNo, meta.FileName)
			continue
		}
		chunk := models.Chunk{
			ChunkNo:   fmt.Sprintf("%d_%d", img.PageNo, img.ImageNo),
			PageRange: models.PageRange{StartPage: img.PageNo, EndPage: img.PageNo},
			Text:      descriptions[i],
		}

		key := models.ChunkID(models.KindImage, meta.FileHash, chunk.ChunkNo)
		if _, err := p.deps.Objects.UploadFile(ctx, p.deps.ImageBucket, key+".png", img.Data, "image/png"); err != nil {
			return UploadError("uploading "+key, err)
		}
		chunks = append(chunks, chunk)
	}
	if len(chunks) == 0 {
		return nil
	}
	return p.indexChunks(ctx, p.deps.ImageStore, models.KindImage, meta, chunks)
}

// indexChunks embeds the chunk texts in one batch and uploads them to the
// given store.
func (p *Pipeline) indexChunks(ctx context.Context, store core.SearchStore, kind string, meta models.FileMetadata, chunks []models.Chunk) error {
	contents := make([]string, len(chunks))
	for i, ch := range chunks {
		contents[i] = ch.Text
	}
	vectors, err := p.deps.Embedder.EmbedTexts(ctx, contents)
	if err != nil {
		return IndexingError("embedding "+kind+" chunks of "+meta.FileName, err)
	}
	if len(vectors) != len(chunks) {
		return IndexingError(fmt.Sprintf("embedding %s chunks of %s: got %d vectors for %d chunks",
			kind, meta.FileName, len(vectors), len(chunks)), nil)
	}

	docs := make([]models.SearchDoc, len(chunks))
	for i, ch := range chunks {
		rangeJSON, err := json.Marshal(ch.PageRange)
		if err != nil {
			return IndexingError("encoding page range of "+meta.FileName, err)
		}
		docs[i] = models.SearchDoc{
			ChunkID:    models.ChunkID(kind, meta.FileHash, ch.ChunkNo),
			Chunk:      ch.Text,
			Vector:     vectors[i],
			Metadata:   string(rangeJSON),
			ParentID:   meta.FileHash,
			Title:      meta.Title,
			Uploader:   meta.Uploader,
			UploadTime: meta.UploadTime,
		}
	}
	if err := store.Upload(ctx, docs); err != nil {
		return IndexingError("uploading "+kind+" chunks of "+meta.FileName, err)
	}
	return nil
}

// errorList accumulates non-fatal stage errors across goroutines.
type errorList struct {
	mu   sync.Mutex
	errs []string
}

func (l *errorList) add(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err.Error())
}

func (l *errorList) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.errs) == 0 {
		return nil
	}
	out := make([]string, len(l.errs))
	copy(out, l.errs)
	return out
}

func pageStrings(texts []models.PageText) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = t.Text
	}
	return out
}

func waitFor(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
