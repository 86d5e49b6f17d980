package store

import (
	"errors"
	"testing"

	"finrag/internal/domain"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := New(3)
	if err != nil {
		t.Fatal(err)
	}
	return ix
}

func TestNewInvalidDimension(t *testing.T) {
	if _, err := New(0); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := New(-5); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	ix := testIndex(t)

	err := ix.Append([]Item{
		{Vector: []float32{1, 0, 0}, Text: "a"},
		{Vector: []float32{0, 1, 0}, Text: "b"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := ix.Append([]Item{{Vector: []float32{0, 0, 1}, Text: "c"}}); err != nil {
		t.Fatal(err)
	}

	recs := ix.Records()
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i, rec := range recs {
		if rec.ID != uint64(i) {
			t.Errorf("record %d has ID %d", i, rec.ID)
		}
	}
}

func TestAppendAtomicOnDimensionMismatch(t *testing.T) {
	ix := testIndex(t)
	if err := ix.Append([]Item{{Vector: []float32{1, 0, 0}, Text: "seed"}}); err != nil {
		t.Fatal(err)
	}

	err := ix.Append([]Item{
		{Vector: []float32{0, 1, 0}, Text: "valid"},
		{Vector: []float32{0, 1}, Text: "wrong dimension"},
		{Vector: []float32{0, 0, 1}, Text: "also valid"},
	})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	if ix.Len() != 1 {
		t.Errorf("expected index unchanged at 1 record, got %d", ix.Len())
	}
}

func TestSearchOrdersByScoreThenID(t *testing.T) {
	ix := testIndex(t)
	err := ix.Append([]Item{
		{Vector: []float32{0, 1, 0}, Text: "orthogonal"},
		{Vector: []float32{1, 0, 0}, Text: "exact tie A"},
		{Vector: []float32{2, 0, 0}, Text: "exact tie B"},
		{Vector: []float32{1, 1, 0}, Text: "partial"},
	})
	if err != nil {
		t.Fatal(err)
	}

	results, err := ix.Search([]float32{1, 0, 0}, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	// Both tie candidates score 1.0; lower ID wins.
	if results[0].Record.Text != "exact tie A" || results[1].Record.Text != "exact tie B" {
		t.Errorf("tie not broken by insertion order: %q then %q",
			results[0].Record.Text, results[1].Record.Text)
	}
	if results[2].Record.Text != "partial" || results[3].Record.Text != "orthogonal" {
		t.Errorf("unexpected tail ordering: %q then %q",
			results[2].Record.Text, results[3].Record.Text)
	}
}

func TestSearchDeterministic(t *testing.T) {
	ix := testIndex(t)
	err := ix.Append([]Item{
		{Vector: []float32{0.3, 0.7, 0.1}, Text: "x"},
		{Vector: []float32{0.7, 0.3, 0.2}, Text: "y"},
		{Vector: []float32{0.5, 0.5, 0.5}, Text: "z"},
	})
	if err != nil {
		t.Fatal(err)
	}

	query := []float32{0.6, 0.4, 0.3}
	first, err := ix.Search(query, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ix.Search(query, 2, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("result counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Record.ID != second[i].Record.ID || first[i].Score != second[i].Score {
			t.Errorf("result %d differs between identical searches", i)
		}
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	ix := testIndex(t)
	results, err := ix.Search([]float32{1, 0, 0}, 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result, got %d", len(results))
	}
}

func TestSearchKLargerThanIndex(t *testing.T) {
	ix := testIndex(t)
	if err := ix.Append([]Item{{Vector: []float32{1, 0, 0}, Text: "only"}}); err != nil {
		t.Fatal(err)
	}

	results, err := ix.Search([]float32{1, 0, 0}, 100, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("expected all matches, got %d", len(results))
	}
}

func TestSearchQueryDimensionMismatch(t *testing.T) {
	ix := testIndex(t)
	if _, err := ix.Search([]float32{1, 0}, 5, nil); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearchFilterRanksOverAllMatches(t *testing.T) {
	ix := testIndex(t)

	// Many high-scoring records of one type, then a low-scoring record
	// of the wanted type. A post-filtered capped search would miss it.
	items := make([]Item, 0, 21)
	for i := 0; i < 20; i++ {
		items = append(items, Item{
			Vector:   []float32{1, 0, 0},
			Text:     "noise",
			Metadata: domain.Metadata{domain.KeyType: domain.TypeStockNews},
		})
	}
	items = append(items, Item{
		Vector:   []float32{0, 1, 0},
		Text:     "wanted filing",
		Metadata: domain.Metadata{domain.KeyType: domain.TypeSECFiling},
	})
	if err := ix.Append(items); err != nil {
		t.Fatal(err)
	}

	filter := func(m domain.Metadata) bool { return m[domain.KeyType] == domain.TypeSECFiling }
	results, err := ix.Search([]float32{1, 0, 0}, 5, filter)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Record.Text != "wanted filing" {
		t.Fatalf("filtered search missed the matching record: %+v", results)
	}
}

func TestSearchFilterNoMatches(t *testing.T) {
	ix := testIndex(t)
	err := ix.Append([]Item{
		{Vector: []float32{1, 0, 0}, Metadata: domain.Metadata{domain.KeyType: domain.TypeStockData}},
	})
	if err != nil {
		t.Fatal(err)
	}

	filter := func(m domain.Metadata) bool { return m[domain.KeyType] == domain.TypeSentiment }
	results, err := ix.Search([]float32{1, 0, 0}, 5, filter)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result, got %d", len(results))
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1.0},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 2, 3}, 0.0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Cosine(tc.a, tc.b)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Cosine = %f, want %f", got, tc.want)
			}
		})
	}
}
