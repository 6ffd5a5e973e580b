package ingestion_engine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/models"
)

type pipelineFixture struct {
	pipeline *Pipeline
	vision   *fakeVisionModel
	embedder *fakeEmbedder
	texts    *fakeSearchStore
	images   *fakeSearchStore
	summary  *fakeSearchStore
	objects  *fakeObjectClient
}

func newPipelineFixture(t *testing.T, parser *fakeParser, vision *fakeVisionModel, cap int) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		vision:   vision,
		embedder: &fakeEmbedder{},
		texts:    &fakeSearchStore{},
		images:   &fakeSearchStore{},
		summary:  &fakeSearchStore{},
		objects:  newFakeObjectClient(),
	}
	splitter := mustSplitter(t, SplitterConfig{ChunkSize: 100, ChunkOverlap: 20})
	f.pipeline = NewPipeline(PipelineDeps{
		Parser:                    parser,
		Splitter:                  splitter,
		Summarizer:                NewFileSummarizer(vision, 0, 5),
		Descriptor:                NewImageDescriptor(vision, 0),
		Embedder:                  f.embedder,
		TextStore:                 f.texts,
		ImageStore:                f.images,
		SummaryStore:              f.summary,
		Objects:                   f.objects,
		ImageBucket:               "images",
		MaxConcurrentDescriptions: cap,
	})
	return f
}

func textAndImageDoc() *fakeParsedDocument {
	return &fakeParsedDocument{
		pages: []models.ParsedPage{
			{PageNo: 0, Text: "The annual report covers revenue, expenses and outlook.",
				Images: []models.RawImage{{Data: []byte("chart-png")}}},
			{PageNo: 1, Text: "Appendix with supporting tables and definitions."},
		},
		metadata: map[string]string{"creator": "TestWriter"},
	}
}

func TestProcessFileSuccess(t *testing.T) {
	f := newPipelineFixture(t, &fakeParser{doc: textAndImageDoc()}, &fakeVisionModel{}, 4)

	file := models.File{FileName: "report.pdf", Content: []byte("pdf-bytes"), Uploader: "alice", UploadTime: time.Now()}
	result := f.pipeline.ProcessFile(context.Background(), file)

	require.Nil(t, result.Errors)
	assert.Equal(t, "report.pdf", result.FileName)
	assert.Equal(t, 2, result.NumPages)
	// Counts report extracted pages and images, not indexed chunks.
	assert.Equal(t, 2, result.NumTexts)
	assert.Equal(t, 1, result.NumImages)
	assert.Greater(t, len(f.texts.all()), 0)

	hash := HashBytes(file.Content)
	assert.Equal(t, hash, result.Metadata.FileHash)
	assert.Equal(t, "report", result.Metadata.Title)

	for _, d := range f.texts.all() {
		assert.True(t, strings.HasPrefix(d.ChunkID, "text_"+hash+"_"), d.ChunkID)
		assert.Equal(t, hash, d.ParentID)
		assert.Equal(t, "report", d.Title)
		assert.Equal(t, "alice", d.Uploader)
		assert.NotEmpty(t, d.Vector)
	}

	imageDocs := f.images.all()
	require.Len(t, imageDocs, 1)
	assert.Equal(t, "image_"+hash+"_0_0", imageDocs[0].ChunkID)

	// The raw image blob lands in object storage keyed by its chunk id.
	blob, err := f.objects.GetFile(context.Background(), "images", imageDocs[0].ChunkID+".png")
	require.NoError(t, err)
	assert.Equal(t, []byte("chart-png"), blob)

	summaryDocs := f.summary.all()
	require.Len(t, summaryDocs, 1)
	assert.Equal(t, "summary_"+hash+"_0", summaryDocs[0].ChunkID)
	assert.Equal(t, `{"start_page":0,"end_page":0}`, summaryDocs[0].Metadata)
}

func TestProcessFileEmptyDocument(t *testing.T) {
	doc := &fakeParsedDocument{pages: []models.ParsedPage{{PageNo: 0}, {PageNo: 1}}}
	f := newPipelineFixture(t, &fakeParser{doc: doc}, &fakeVisionModel{}, 4)

	result := f.pipeline.ProcessFile(context.Background(), models.File{FileName: "blank.pdf", Content: []byte("x")})

	assert.Nil(t, result.Errors)
	assert.Equal(t, 2, result.NumPages)
	assert.Equal(t, 0, result.NumTexts)
	assert.Equal(t, 0, result.NumImages)
	assert.Empty(t, f.texts.all())
	assert.Equal(t, 0, f.vision.calls, "no content, no model calls")
}

func TestProcessFileParseFailure(t *testing.T) {
	f := newPipelineFixture(t, &fakeParser{err: errors.New("not a pdf")}, &fakeVisionModel{}, 4)

	result := f.pipeline.ProcessFile(context.Background(), models.File{FileName: "broken.pdf", Content: []byte("junk")})

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not a pdf")
	assert.Equal(t, 0, result.NumTexts)
	assert.Equal(t, 0, result.NumImages)
}

func TestProcessFileDescriptionConcurrencyCap(t *testing.T) {
	pages := make([]models.ParsedPage, 10)
	for i := range pages {
		// Text-less pages with an image render whole, yielding one image each.
		pages[i] = models.ParsedPage{PageNo: i, Images: []models.RawImage{{Data: []byte{byte(i)}}}}
	}
	vision := &fakeVisionModel{delay: 20 * time.Millisecond}
	f := newPipelineFixture(t, &fakeParser{doc: &fakeParsedDocument{pages: pages}}, vision, 2)

	result := f.pipeline.ProcessFile(context.Background(), models.File{FileName: "scans.pdf", Content: []byte("scan")})

	require.Nil(t, result.Errors)
	assert.Equal(t, 10, result.NumImages)
	assert.LessOrEqual(t, vision.maxInFlight, 2, "in-flight description calls exceeded the cap")
}

func TestProcessFileSummaryFailureIsNonFatal(t *testing.T) {
	vision := &fakeVisionModel{completeFn: func(prompt string, images [][]byte) (string, error) {
		if strings.Contains(prompt, "Document Summary") {
			return "", errors.New("model overloaded")
		}
		return "a long enough description of the chart", nil
	}}
	f := newPipelineFixture(t, &fakeParser{doc: textAndImageDoc()}, vision, 4)

	result := f.pipeline.ProcessFile(context.Background(), models.File{FileName: "report.pdf", Content: []byte("pdf")})

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "[summary]")
	assert.Equal(t, 2, result.NumTexts, "text indexing proceeds despite summary failure")
	assert.Equal(t, 1, result.NumImages, "descriptions proceed with empty summary context")
	assert.Empty(t, f.summary.all(), "no summary chunk indexed")
}

func TestProcessFileImageFailureIsFatal(t *testing.T) {
	vision := &fakeVisionModel{completeFn: func(prompt string, images [][]byte) (string, error) {
		if strings.Contains(prompt, "Image-to-Text") {
			return "", errors.New("vision outage")
		}
		return "a perfectly fine document summary", nil
	}}
	f := newPipelineFixture(t, &fakeParser{doc: textAndImageDoc()}, vision, 4)

	result := f.pipeline.ProcessFile(context.Background(), models.File{FileName: "report.pdf", Content: []byte("pdf")})

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "[image]")
	assert.Equal(t, 0, result.NumPages, "fatal results carry zero counts")
	assert.Equal(t, 0, result.NumTexts)
	assert.Equal(t, 0, result.NumImages)
}

func TestProcessFileDropsTrivialDescriptions(t *testing.T) {
	vision := &fakeVisionModel{completeFn: func(prompt string, images [][]byte) (string, error) {
		if strings.Contains(prompt, "Image-to-Text") {
			return "a shape", nil
		}
		return "a perfectly fine document summary", nil
	}}
	f := newPipelineFixture(t, &fakeParser{doc: textAndImageDoc()}, vision, 4)

	result := f.pipeline.ProcessFile(context.Background(), models.File{FileName: "report.pdf", Content: []byte("pdf")})

	require.Nil(t, result.Errors)
	assert.Equal(t, 1, result.NumImages, "the image was extracted even though its description was dropped")
	assert.Empty(t, f.images.all())
}

func TestProcessFileCountsExtractedUnits(t *testing.T) {
	// One text page fanning out into many chunks plus one image whose
	// description is filtered still reports one page and one image.
	doc := &fakeParsedDocument{
		pages: []models.ParsedPage{
			{PageNo: 0,
				Text:   strings.Repeat("A sentence that fills the chunk budget quickly. ", 12),
				Images: []models.RawImage{{Data: []byte("figure")}}},
		},
	}
	vision := &fakeVisionModel{completeFn: func(prompt string, images [][]byte) (string, error) {
		if strings.Contains(prompt, "Image-to-Text") {
			return "a logo", nil
		}
		return "a perfectly fine document summary", nil
	}}
	f := newPipelineFixture(t, &fakeParser{doc: doc}, vision, 4)

	result := f.pipeline.ProcessFile(context.Background(), models.File{FileName: "long.pdf", Content: []byte("pdf")})

	require.Nil(t, result.Errors)
	assert.Equal(t, 1, result.NumTexts)
	assert.Equal(t, 1, result.NumImages)
	assert.Greater(t, len(f.texts.all()), 1, "one page still splits into several chunks")
	assert.Empty(t, f.images.all())
}

// blockingSummaryModel holds the summary call open until cancellation and
// records when it finally returns.
type blockingSummaryModel struct {
	summarySettled atomic.Bool
}

func (m *blockingSummaryModel) Complete(ctx context.Context, prompt string, images [][]byte, temperature float32) (string, error) {
	if !strings.Contains(prompt, "Document Summary") {
		return "a long enough description of the chart", nil
	}
	<-ctx.Done()
	m.summarySettled.Store(true)
	return "", ctx.Err()
}

func TestProcessFileFatalJoinAwaitsSummary(t *testing.T) {
	// Text indexing fails while the summarizer is still blocked; the fatal
	// join must not return until the summarizer has observed cancellation.
	model := &blockingSummaryModel{}
	splitter := mustSplitter(t, SplitterConfig{ChunkSize: 100, ChunkOverlap: 20})
	pipeline := NewPipeline(PipelineDeps{
		Parser:                    &fakeParser{doc: textAndImageDoc()},
		Splitter:                  splitter,
		Summarizer:                NewFileSummarizer(model, 0, 5),
		Descriptor:                NewImageDescriptor(model, 0),
		Embedder:                  &fakeEmbedder{err: errors.New("embedding service down")},
		TextStore:                 &fakeSearchStore{},
		ImageStore:                &fakeSearchStore{},
		SummaryStore:              &fakeSearchStore{},
		Objects:                   newFakeObjectClient(),
		ImageBucket:               "images",
		MaxConcurrentDescriptions: 4,
	})

	result := pipeline.ProcessFile(context.Background(), models.File{FileName: "report.pdf", Content: []byte("pdf")})

	require.NotEmpty(t, result.Errors)
	assert.Equal(t, 0, result.NumPages)
	assert.True(t, model.summarySettled.Load(), "the summarizer call must settle before the file's result is returned")
}

func TestProcessFileBatchIsolation(t *testing.T) {
	// A summary fault in one file must not disturb a concurrently processed
	// sibling.
	faulty := &fakeVisionModel{completeFn: func(prompt string, images [][]byte) (string, error) {
		if strings.Contains(prompt, "Document Summary") {
			return "", errors.New("summary down")
		}
		return "a long enough description of the chart", nil
	}}
	fA := newPipelineFixture(t, &fakeParser{doc: textAndImageDoc()}, faulty, 4)
	fB := newPipelineFixture(t, &fakeParser{doc: textAndImageDoc()}, &fakeVisionModel{}, 4)

	done := make(chan models.ProcessingResult, 2)
	go func() {
		done <- fA.pipeline.ProcessFile(context.Background(), models.File{FileName: "a.pdf", Content: []byte("a")})
	}()
	go func() {
		done <- fB.pipeline.ProcessFile(context.Background(), models.File{FileName: "b.pdf", Content: []byte("b")})
	}()

	results := map[string]models.ProcessingResult{}
	for n := 0; n < 2; n++ {
		r := <-done
		results[r.FileName] = r
	}

	assert.NotEmpty(t, results["a.pdf"].Errors)
	assert.Nil(t, results["b.pdf"].Errors)
	assert.Greater(t, results["b.pdf"].NumTexts, 0)
}
