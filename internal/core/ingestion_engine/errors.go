package ingestion_engine

import (
	"errors"
	"fmt"
)

// Stage identifies where in the pipeline an error happened. Extraction and
// input errors are fatal for the file; summary errors are recorded and the
// pipeline continues; image, indexing and upload errors abort the file's
// remaining work.
type Stage string

const (
	StageInput      Stage = "input"
	StageExtraction Stage = "extraction"
	StageSummary    Stage = "summary"
	StageImage      Stage = "image"
	StageIndexing   Stage = "indexing"
	StageUpload     Stage = "upload"
)

// StageError wraps a failure with the pipeline stage it came from.
type StageError struct {
	Stage   Stage
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func InputError(message string, err error) *StageError {
	return &StageError{Stage: StageInput, Message: message, Err: err}
}

func ExtractionError(message string, err error) *StageError {
	return &StageError{Stage: StageExtraction, Message: message, Err: err}
}

func SummaryError(message string, err error) *StageError {
	return &StageError{Stage: StageSummary, Message: message, Err: err}
}

func ImageProcessingError(message string, err error) *StageError {
	return &StageError{Stage: StageImage, Message: message, Err: err}
}

func IndexingError(message string, err error) *StageError {
	return &StageError{Stage: StageIndexing, Message: message, Err: err}
}

func UploadError(message string, err error) *StageError {
	return &StageError{Stage: StageUpload, Message: message, Err: err}
}

// IsStage reports whether err carries the given stage.
func IsStage(err error, stage Stage) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}

var (
	// ErrEmptyPages is returned by the splitter for an empty input page list.
	ErrEmptyPages = errors.New("input pages list cannot be empty")

	// ErrBusy signals that a batch is already in flight and new work is
	// rejected, not queued.
	ErrBusy = errors.New("background tasks still running")
)
