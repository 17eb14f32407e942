package vector

import (
	"context"
	"path/filepath"
	"testing"
)

func TestFlatIndex_AddSearch(t *testing.T) {
	idx, err := NewFlatIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add(ctx, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Row != 0 {
		t.Errorf("top hit should be row 0, got %d", hits[0].Row)
	}
	if hits[1].Row != 1 {
		t.Errorf("second hit should be row 1, got %d", hits[1].Row)
	}
}

func TestFlatIndex_TieBreakByRow(t *testing.T) {
	ctx := context.Background()
	// Two identical vectors tie exactly; the lower row must always win,
	// regardless of which was added first in a separate index.
	for name, order := range map[string][][]float32{
		"duplicate-first": {{0, 1}, {0, 1}, {1, 0}},
		"duplicate-last":  {{0, 1}, {1, 0}, {0, 1}},
	} {
		idx, _ := NewFlatIndex(2)
		if err := idx.Add(ctx, order); err != nil {
			t.Fatal(err)
		}
		hits, err := idx.Search(ctx, []float32{0, 1}, 3)
		if err != nil {
			t.Fatal(err)
		}
		if hits[0].Row != 0 {
			t.Errorf("%s: top row = %d, want 0", name, hits[0].Row)
		}
		if hits[0].Score != hits[1].Score {
			continue
		}
		if hits[1].Row < hits[0].Row {
			t.Errorf("%s: tie not broken by ascending row: %d before %d", name, hits[0].Row, hits[1].Row)
		}
	}
}

func TestFlatIndex_KLargerThanSize(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, [][]float32{{1, 0}})
	hits, err := idx.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("expected 1 hit, got %d", len(hits))
	}
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, [][]float32{{1, 0, 0}}); err == nil {
		t.Error("expected add dimension error")
	}
	if _, err := idx.Search(ctx, []float32{1}, 1); err == nil {
		t.Error("expected search dimension error")
	}
}

func TestFlatIndex_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idx", "faq.idx")

	idx, _ := NewFlatIndex(2)
	_ = idx.Add(ctx, [][]float32{{1, 0}, {0, 1}})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewFlatIndex(2)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("Size=%d after load", loaded.Size())
	}
	hits, err := loaded.Search(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].Row != 1 {
		t.Errorf("top row = %d, want 1", hits[0].Row)
	}
}

func TestFlatIndex_LoadMissingFileIsNoop(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	if err := idx.Load(filepath.Join(t.TempDir(), "nope.idx")); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 0 {
		t.Errorf("Size=%d", idx.Size())
	}
}

func TestFlatIndex_LoadDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "faq.idx")
	idx, _ := NewFlatIndex(3)
	_ = idx.Add(ctx, [][]float32{{1, 0, 0}})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}
	other, _ := NewFlatIndex(2)
	if err := other.Load(path); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestNewIndex_Factory(t *testing.T) {
	idx, err := NewIndex("flat", 4)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Type() != string(IndexTypeFlat) {
		t.Errorf("Type=%s", idx.Type())
	}
	if _, err := NewIndex("bogus", 4); err == nil {
		t.Error("expected error for unknown type")
	}
}
