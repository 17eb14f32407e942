//go:build !faiss || !cgo
// +build !faiss !cgo

// Package vector provides a stub for FAISS when the faiss build tag is not set.
package vector

import (
	"context"
	"errors"
	"fmt"
)

var errNoFAISS = errors.New("FAISS not available")

// FAISSIndex is a placeholder compiled in when FAISS support is disabled.
// Every operation fails; build with -tags=faiss to get the real index.
type FAISSIndex struct{}

// NewFAISSIndex always fails in this build.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	return nil, fmt.Errorf("%w: build with -tags=faiss and install FAISS library", errNoFAISS)
}

func (f *FAISSIndex) Add(ctx context.Context, vectors [][]float32) error {
	return errNoFAISS
}

func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]*Hit, error) {
	return nil, errNoFAISS
}

func (f *FAISSIndex) Save(path string) error {
	return errNoFAISS
}

func (f *FAISSIndex) Load(path string) error {
	return errNoFAISS
}

func (f *FAISSIndex) Size() int {
	return 0
}

func (f *FAISSIndex) Close() error {
	return nil
}

func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
