package ingestion_engine

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/core"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/models"
)

// FileSummarizer produces one document summary from a bounded sample of
// the extracted texts and images. Sampling keeps model-call cost flat on
// large documents at the expense of summary completeness.
type FileSummarizer struct {
	model       core.VisionModel
	prompt      string
	temperature float32
	maxSamples  int
	rng         *rand.Rand
}

// NewFileSummarizer builds a summarizer sampling at most maxSamples texts
// and maxSamples images per call.
func NewFileSummarizer(model core.VisionModel, temperature float32, maxSamples int) *FileSummarizer {
	if maxSamples <= 0 {
		maxSamples = 5
	}
	return &FileSummarizer{
		model:       model,
		prompt:      SummaryPrompt,
		temperature: temperature,
		maxSamples:  maxSamples,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run summarizes the sampled content in one model call.
func (s *FileSummarizer) Run(ctx context.Context, texts []string, images []models.FileImage) (string, error) {
	textIdx := s.sampleIndices(len(texts))
	imageIdx := s.sampleIndices(len(images))

	var b strings.Builder
	b.WriteString(s.prompt)
	if len(textIdx) > 0 {
		sampled := make([]string, 0, len(textIdx))
		for _, i := range textIdx {
			sampled = append(sampled, texts[i])
		}
		b.WriteString("\n\n")
		b.WriteString(strings.Join(sampled, "\n\n"))
	}

	sampledImages := make([][]byte, 0, len(imageIdx))
	for _, i := range imageIdx {
		sampledImages = append(sampledImages, images[i].Data)
	}

	return s.model.Complete(ctx, b.String(), sampledImages, s.temperature)
}

// sampleIndices picks up to maxSamples indices out of n. The first item is
// always kept (it establishes primacy/context); the remainder is chosen
// uniformly at random from the rest.
func (s *FileSummarizer) sampleIndices(n int) []int {
	if n <= s.maxSamples {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	idx := []int{0}
	perm := s.rng.Perm(n - 1)
	for _, p := range perm[:s.maxSamples-1] {
		idx = append(idx, p+1)
	}
	return idx
}
