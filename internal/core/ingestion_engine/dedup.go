package ingestion_engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/core"
)

const registryBlobName = "known_files.json"

// knownSets is the persisted JSON shape of the registry: three string sets.
type knownSets struct {
	KnownTitles    []string `json:"known_titles"`
	KnownHashes    []string `json:"known_hashes"`
	KnownFileNames []string `json:"known_file_names"`
}

// Registry is the deduplication gate: content hashes, file names and
// titles seen before. Hash and file-name lookups are exact; title lookup
// is case-insensitive. All mutation is mutex-serialized so concurrently
// processed files cannot race on it.
type Registry struct {
	objects core.ObjectClient
	bucket  string

	mu        sync.Mutex
	titles    map[string]struct{}
	hashes    map[string]struct{}
	fileNames map[string]struct{}
}

func NewRegistry(objects core.ObjectClient, bucket string) *Registry {
	return &Registry{
		objects:   objects,
		bucket:    bucket,
		titles:    make(map[string]struct{}),
		hashes:    make(map[string]struct{}),
		fileNames: make(map[string]struct{}),
	}
}

// Load reads the persisted registry blob. A missing blob starts an empty
// registry; a corrupt blob is logged and ignored.
func (r *Registry) Load(ctx context.Context) error {
	data, err := r.objects.GetFile(ctx, r.bucket, registryBlobName)
	if err != nil {
		if errors.Is(err, core.ErrObjectNotFound) {
			log.Printf("Registry: no existing blob %s", registryBlobName)
			return nil
		}
		return fmt.Errorf("load registry: %w", err)
	}

	var sets knownSets
	if err := json.Unmarshal(data, &sets); err != nil {
		log.Printf("Registry: error decoding %s: %v", registryBlobName, err)
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range sets.KnownTitles {
		r.titles[t] = struct{}{}
	}
	for _, h := range sets.KnownHashes {
		r.hashes[h] = struct{}{}
	}
	for _, f := range sets.KnownFileNames {
		r.fileNames[f] = struct{}{}
	}
	log.Printf("Registry: successfully loaded blob %s", registryBlobName)
	return nil
}

// Save persists the current registry as a JSON blob.
func (r *Registry) Save(ctx context.Context) error {
	r.mu.Lock()
	sets := knownSets{
		KnownTitles:    sortedKeys(r.titles),
		KnownHashes:    sortedKeys(r.hashes),
		KnownFileNames: sortedKeys(r.fileNames),
	}
	r.mu.Unlock()

	data, err := json.MarshalIndent(sets, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if _, err := r.objects.UploadFile(ctx, r.bucket, registryBlobName, data, "application/json"); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	return nil
}

// Remember adds the given keys; empty arguments are skipped. Remembering
// an already-known key is a no-op.
func (r *Registry) Remember(fileHash, fileName, title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fileHash != "" {
		r.hashes[fileHash] = struct{}{}
	}
	if fileName != "" {
		r.fileNames[fileName] = struct{}{}
	}
	if title != "" {
		r.titles[title] = struct{}{}
	}
}

// Forget removes the key from all three sets and reports whether anything
// was removed. Title matching is case-insensitive.
func (r *Registry) Forget(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	if _, ok := r.hashes[key]; ok {
		delete(r.hashes, key)
		removed = true
	}
	if _, ok := r.fileNames[key]; ok {
		delete(r.fileNames, key)
		removed = true
	}
	for t := range r.titles {
		if strings.EqualFold(t, key) {
			delete(r.titles, t)
			removed = true
		}
	}
	return removed
}

func (r *Registry) DuplicateByHash(fileHash string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.hashes[fileHash]
	return ok
}

func (r *Registry) DuplicateByFileName(fileName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.fileNames[fileName]
	return ok
}

func (r *Registry) DuplicateByTitle(title string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for t := range r.titles {
		if strings.EqualFold(t, title) {
			return true
		}
	}
	return false
}

// HashBytes is the content hash used for deduplication and chunk-id
// namespacing: the SHA-256 of the raw bytes, hex encoded.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
