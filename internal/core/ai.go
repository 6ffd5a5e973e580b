package core

import "context"

// EmbeddingProvider turns a batch of texts into fixed-dimension vectors.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// VisionModel is a multimodal text/vision completion model. Images are
// raw encoded bytes (PNG/JPEG); pass nil for text-only prompts.
type VisionModel interface {
	Complete(ctx context.Context, prompt string, images [][]byte, temperature float32) (string, error)
}
