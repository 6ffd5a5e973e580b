package handlers

import (
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/core/ingestion_engine"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/models"
)

const maxUploadBytes = 200 << 20 // 200 MB per batch

// UploadHandler admits batches of documents into the pipeline.
type UploadHandler struct {
	pipeline *ingestion_engine.Pipeline
	registry *ingestion_engine.Registry
	counter  *ingestion_engine.TaskCounter
}

func NewUploadHandler(pipeline *ingestion_engine.Pipeline, registry *ingestion_engine.Registry, counter *ingestion_engine.TaskCounter) *UploadHandler {
	return &UploadHandler{pipeline: pipeline, registry: registry, counter: counter}
}

// uploadOutcome is one file's entry in the batch response.
type uploadOutcome struct {
	FileName string                   `json:"file_name"`
	Status   string                   `json:"status"` // processed | skipped
	Reason   string                   `json:"reason,omitempty"`
	Result   *models.ProcessingResult `json:"result,omitempty"`
}

// UploadDocuments handles one multipart batch under the "files" field.
// While a batch is in flight, new batches get 409; there is no queue.
// Duplicate files (by content hash, file name or title) are skipped, and
// files that processed cleanly are remembered so later batches skip them.
func (h *UploadHandler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	// Claim the gate before any parsing; the claim holds until the batch
	// response is written.
	if !h.counter.TryBegin(1) {
		writeError(w, http.StatusConflict, ingestion_engine.ErrBusy.Error())
		return
	}
	defer h.counter.Decrement()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	uploader := r.FormValue("uploader")
	if uploader == "" {
		uploader = "anonymous"
	}
	uploadTime := time.Now().UTC()
	batchID := uuid.NewString()
	log.Printf("Upload: batch %s with %d file(s)", batchID, len(headers))

	type admitted struct {
		index int
		file  models.File
	}
	outcomes := make([]uploadOutcome, len(headers))
	var batch []admitted
	seenHashes := make(map[string]struct{})
	seenNames := make(map[string]struct{})

	for i, header := range headers {
		fileName := filepath.Base(header.Filename)
		outcomes[i] = uploadOutcome{FileName: fileName}

		content, err := readUpload(header)
		if err != nil {
			outcomes[i].Status = "skipped"
			outcomes[i].Reason = "read failed: " + err.Error()
			continue
		}

		hash := ingestion_engine.HashBytes(content)
		title := models.TitleFromFileName(fileName)
		_, dupInBatchHash := seenHashes[hash]
		_, dupInBatchName := seenNames[fileName]

		var reason string
		switch {
		case h.registry.DuplicateByHash(hash) || dupInBatchHash:
			reason = "duplicate content"
		case h.registry.DuplicateByFileName(fileName) || dupInBatchName:
			reason = "duplicate file name"
		case h.registry.DuplicateByTitle(title):
			reason = "duplicate title"
		}
		if reason != "" {
			log.Printf("Upload: skipping %s: %s", fileName, reason)
			outcomes[i].Status = "skipped"
			outcomes[i].Reason = reason
			continue
		}
		seenHashes[hash] = struct{}{}
		seenNames[fileName] = struct{}{}

		batch = append(batch, admitted{index: i, file: models.File{
			FileName:   fileName,
			Content:    content,
			Uploader:   uploader,
			UploadTime: uploadTime,
		}})
	}

	h.counter.Increment(len(batch))

	var wg sync.WaitGroup
	for _, item := range batch {
		item := item
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer h.counter.Decrement()

			result := h.pipeline.ProcessFile(r.Context(), item.file)
			outcomes[item.index].Status = "processed"
			outcomes[item.index].Result = &result
			if len(result.Errors) == 0 {
				h.registry.Remember(result.Metadata.FileHash, result.FileName, result.Metadata.Title)
			}
		}()
	}
	wg.Wait()

	if err := h.registry.Save(r.Context()); err != nil {
		log.Printf("Upload: saving registry: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"batch_id": batchID, "outcomes": outcomes})
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
