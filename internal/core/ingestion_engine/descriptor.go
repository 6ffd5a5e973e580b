package ingestion_engine

import (
	"context"
	"fmt"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/core"
)

// ImageDescriptor turns one extracted image into retrieval text, using the
// document summary as context.
type ImageDescriptor struct {
	model       core.VisionModel
	prompt      string
	temperature float32
}

func NewImageDescriptor(model core.VisionModel, temperature float32) *ImageDescriptor {
	return &ImageDescriptor{model: model, prompt: DescribePrompt, temperature: temperature}
}

// Run describes a single image. An empty summary is a valid fallback when
// summary generation failed.
func (d *ImageDescriptor) Run(ctx context.Context, image []byte, summary string) (string, error) {
	prompt := d.prompt + "\n\n" + fmt.Sprintf(descriptionContextFormat, summary)
	return d.model.Complete(ctx, prompt, [][]byte{image}, d.temperature)
}
