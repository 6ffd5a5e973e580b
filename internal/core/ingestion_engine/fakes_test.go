package ingestion_engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/core"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/models"
)

// fakeParsedDocument serves canned pages.
type fakeParsedDocument struct {
	pages       []models.ParsedPage
	slideExport bool
	metadata    map[string]string
}

func (d *fakeParsedDocument) NumPages() int { return len(d.pages) }

func (d *fakeParsedDocument) Page(pageNo int) (models.ParsedPage, error) {
	if pageNo < 0 || pageNo >= len(d.pages) {
		return models.ParsedPage{}, fmt.Errorf("page %d out of range", pageNo)
	}
	return d.pages[pageNo], nil
}

func (d *fakeParsedDocument) RenderPage(pageNo int) ([]byte, error) {
	return fmt.Appendf(nil, "rendered-page-%d", pageNo), nil
}

func (d *fakeParsedDocument) SlideExport() bool           { return d.slideExport }
func (d *fakeParsedDocument) Metadata() map[string]string { return d.metadata }
func (d *fakeParsedDocument) Close() error                { return nil }

type fakeParser struct {
	doc *fakeParsedDocument
	err error
}

func (p *fakeParser) Parse(content []byte) (core.ParsedDocument, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.doc, nil
}

// fakeVisionModel tracks the number of in-flight Complete calls so tests
// can assert the concurrency cap.
type fakeVisionModel struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	calls       int
	delay       time.Duration

	completeFn func(prompt string, images [][]byte) (string, error)
}

func (m *fakeVisionModel) Complete(ctx context.Context, prompt string, images [][]byte, temperature float32) (string, error) {
	m.mu.Lock()
	m.inFlight++
	m.calls++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			m.mu.Lock()
			m.inFlight--
			m.mu.Unlock()
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()

	if m.completeFn != nil {
		return m.completeFn(prompt, images)
	}
	return "a detailed description of the content", nil
}

type fakeEmbedder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (e *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, texts)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

type fakeSearchStore struct {
	mu        sync.Mutex
	docs      []models.SearchDoc
	uploadErr error
}

func (s *fakeSearchStore) Upload(ctx context.Context, docs []models.SearchDoc) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, docs...)
	return nil
}

func (s *fakeSearchStore) Search(ctx context.Context, filter models.Filter) ([]models.SearchDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SearchDoc
	for _, d := range s.docs {
		if matchesFilter(d, filter) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *fakeSearchStore) DeleteByFilter(ctx context.Context, filter models.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []models.SearchDoc
	removed := 0
	for _, d := range s.docs {
		if matchesFilter(d, filter) {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	s.docs = kept
	return removed, nil
}

func (s *fakeSearchStore) all() []models.SearchDoc {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SearchDoc, len(s.docs))
	copy(out, s.docs)
	return out
}

func matchesFilter(d models.SearchDoc, f models.Filter) bool {
	if f.Title != "" && d.Title != f.Title {
		return false
	}
	if f.ParentID != "" && d.ParentID != f.ParentID {
		return false
	}
	if f.Uploader != "" && d.Uploader != f.Uploader {
		return false
	}
	return true
}

type fakeObjectClient struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeObjectClient() *fakeObjectClient {
	return &fakeObjectClient{blobs: make(map[string][]byte)}
}

func (c *fakeObjectClient) UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blobs[bucket+"/"+key] = data
	return "https://fake/" + bucket + "/" + key, nil
}

func (c *fakeObjectClient) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.blobs[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", bucket, key, core.ErrObjectNotFound)
	}
	return data, nil
}

func (c *fakeObjectClient) DeleteFile(ctx context.Context, bucket, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.blobs, bucket+"/"+key)
	return nil
}

func (c *fakeObjectClient) ListFiles(ctx context.Context, bucket, prefix string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for k := range c.blobs {
		if strings.HasPrefix(k, bucket+"/"+prefix) {
			out = append(out, strings.TrimPrefix(k, bucket+"/"))
		}
	}
	return out, nil
}
