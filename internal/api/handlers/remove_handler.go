package handlers

import (
	"log"
	"net/http"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/core"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/core/ingestion_engine"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/models"
)

// RemoveHandler deletes a document by title: its chunks in all three
// indexes, its image blobs, and its deduplication records.
type RemoveHandler struct {
	textStore    core.SearchStore
	imageStore   core.SearchStore
	summaryStore core.SearchStore

	objects     core.ObjectClient
	imageBucket string

	registry *ingestion_engine.Registry
	counter  *ingestion_engine.TaskCounter
}

func NewRemoveHandler(
	textStore, imageStore, summaryStore core.SearchStore,
	objects core.ObjectClient, imageBucket string,
	registry *ingestion_engine.Registry, counter *ingestion_engine.TaskCounter,
) *RemoveHandler {
	return &RemoveHandler{
		textStore:    textStore,
		imageStore:   imageStore,
		summaryStore: summaryStore,
		objects:      objects,
		imageBucket:  imageBucket,
		registry:     registry,
		counter:      counter,
	}
}

// RemoveDocument handles DELETE /api/documents?title=...
func (h *RemoveHandler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	// Removal mutates the same indexes and registry a running batch writes
	// to, so it claims the gate the same way uploads do.
	if !h.counter.TryBegin(1) {
		writeError(w, http.StatusConflict, ingestion_engine.ErrBusy.Error())
		return
	}
	defer h.counter.Decrement()

	title := r.URL.Query().Get("title")
	if title == "" {
		writeError(w, http.StatusBadRequest, "missing title parameter")
		return
	}
	ctx := r.Context()
	filter := models.Filter{Title: title}

	// Resolve file hashes before deleting rows, so the dedup records can
	// go too.
	var fileHashes []string
	if docs, err := h.textStore.Search(ctx, filter); err != nil {
		log.Printf("Remove: searching text index: %v", err)
	} else {
		seen := make(map[string]struct{})
		for _, d := range docs {
			if _, ok := seen[d.ParentID]; !ok {
				seen[d.ParentID] = struct{}{}
				fileHashes = append(fileHashes, d.ParentID)
			}
		}
	}

	// Image blobs are keyed by chunk id, so list them via the index.
	imageDocs, err := h.imageStore.Search(ctx, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "searching image index: "+err.Error())
		return
	}
	for _, d := range imageDocs {
		if err := h.objects.DeleteFile(ctx, h.imageBucket, d.ChunkID+".png"); err != nil {
			log.Printf("Remove: deleting blob %s: %v", d.ChunkID, err)
		}
	}

	// Sweep blobs whose index rows are already gone (a partially failed
	// earlier run can leave them behind).
	for _, hash := range fileHashes {
		keys, err := h.objects.ListFiles(ctx, h.imageBucket, "image_"+hash+"_")
		if err != nil {
			log.Printf("Remove: listing blobs for %s: %v", hash, err)
			continue
		}
		for _, key := range keys {
			if err := h.objects.DeleteFile(ctx, h.imageBucket, key); err != nil {
				log.Printf("Remove: deleting blob %s: %v", key, err)
			}
		}
	}

	deleted := 0
	for _, store := range []core.SearchStore{h.textStore, h.imageStore, h.summaryStore} {
		n, err := store.DeleteByFilter(ctx, filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "deleting chunks: "+err.Error())
			return
		}
		deleted += n
	}

	forgotten := h.registry.Forget(title)
	for _, hash := range fileHashes {
		if h.registry.Forget(hash) {
			forgotten = true
		}
	}
	// The registry also tracks full file names; the title is the name
	// minus its extension, so try common ones.
	for _, ext := range []string{".pdf"} {
		if h.registry.Forget(title + ext) {
			forgotten = true
		}
	}
	if forgotten {
		if err := h.registry.Save(ctx); err != nil {
			log.Printf("Remove: saving registry: %v", err)
		}
	}

	if deleted == 0 && !forgotten {
		writeError(w, http.StatusNotFound, "no document found with title "+title)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"title": title, "deleted_chunks": deleted})
}
