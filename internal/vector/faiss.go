//go:build faiss && cgo
// +build faiss,cgo

// Package vector provides FAISS-based vector index for production scale.
package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unsafe"
)

// FAISSIndex wraps a FAISS IndexFlatIP. Inner product over unit-normalized
// vectors equals cosine similarity, and FAISS assigns labels in insertion
// order, so a label is its row position.
type FAISSIndex struct {
	index      *C.FaissIndexFlatIP
	dimensions int
	mu         sync.RWMutex
}

// NewFAISSIndex allocates an inner-product index of the given dimension.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	var index *C.FaissIndexFlatIP
	if rc := C.faiss_IndexFlatIP_new_with(&index, C.idx_t(dimensions)); rc != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}
	return &FAISSIndex{index: index, dimensions: dimensions}, nil
}

func faissLastError() string {
	msg := C.faiss_get_last_error()
	if msg == nil {
		return "unknown error"
	}
	return C.GoString(msg)
}

// flatten packs vectors into the contiguous row-major layout FAISS expects,
// rejecting any vector whose length differs from dims.
func flatten(vectors [][]float32, dims int) ([]float32, error) {
	flat := make([]float32, len(vectors)*dims)
	for i, vec := range vectors {
		if len(vec) != dims {
			return nil, fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), dims)
		}
		copy(flat[i*dims:], vec)
	}
	return flat, nil
}

// Add appends vectors in order; each vector occupies the next row position.
func (f *FAISSIndex) Add(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	flat, err := flatten(vectors, f.dimensions)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	rc := C.faiss_Index_add(
		f.index,
		C.idx_t(len(vectors)),
		(*C.float)(unsafe.Pointer(&flat[0])),
	)
	if rc != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	return nil
}

// Search returns up to k rows ranked by inner product. Equal scores are
// broken toward the lower row so results are deterministic.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]*Hit, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	total := int(C.faiss_Index_ntotal(f.index))
	if total == 0 {
		return nil, nil
	}
	if k > total {
		k = total
	}

	scores := make([]float32, k)
	labels := make([]int64, k)

	rc := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&scores[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if rc != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	hits := make([]*Hit, 0, k)
	for i, label := range labels {
		if label < 0 {
			// padding for under-filled result slots
			continue
		}
		hits = append(hits, &Hit{Row: int(label), Score: float64(scores[i])})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Row < hits[j].Row
	})
	return hits, nil
}

// Save persists the index to path. An empty path is a no-op.
func (f *FAISSIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	if rc := C.faiss_write_index_fname(f.index, cPath); rc != 0 {
		return fmt.Errorf("failed to save FAISS index: %s", faissLastError())
	}
	return nil
}

// Load replaces the in-memory index with the one stored at path. A missing
// file leaves the index unchanged without error.
func (f *FAISSIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	var loaded *C.FaissIndex
	if rc := C.faiss_read_index_fname(cPath, 0, &loaded); rc != 0 {
		return fmt.Errorf("failed to load FAISS index: %s", faissLastError())
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.index != nil {
		C.faiss_Index_free(f.index)
	}
	f.index = loaded
	return nil
}

// Size returns the number of stored vectors.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int(C.faiss_Index_ntotal(f.index))
}

// Close frees the underlying FAISS resources.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
