package store

import (
	"errors"
	"testing"

	"finrag/internal/domain"
)

func populatedIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := New(4)
	if err != nil {
		t.Fatal(err)
	}
	err = ix.Append([]Item{
		{
			Vector:   []float32{0.1, -0.2, 0.3, 0.4},
			Text:     "AAPL closed at 150.00, up 2%",
			Metadata: domain.Metadata{domain.KeySource: "api", domain.KeyType: domain.TypeStockData, "ticker": "AAPL"},
		},
		{
			Vector:   []float32{0.5, 0.6, -0.7, 0.8},
			Text:     "Asia tech sentiment is positive",
			Metadata: domain.Metadata{domain.KeySource: "scraper", domain.KeyType: domain.TypeSentiment},
		},
		{
			Vector:   []float32{0, 0, 0, 0},
			Text:     "",
			Metadata: domain.Metadata{domain.KeySource: "x", domain.KeyType: "y"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return ix
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ix := populatedIndex(t)

	data, err := ix.Encode()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	if decoded.Dimension() != ix.Dimension() {
		t.Errorf("dimension: got %d, want %d", decoded.Dimension(), ix.Dimension())
	}
	orig, got := ix.Records(), decoded.Records()
	if len(got) != len(orig) {
		t.Fatalf("record count: got %d, want %d", len(got), len(orig))
	}
	for i := range orig {
		if got[i].ID != orig[i].ID {
			t.Errorf("record %d ID: got %d, want %d", i, got[i].ID, orig[i].ID)
		}
		if got[i].Text != orig[i].Text {
			t.Errorf("record %d text: got %q, want %q", i, got[i].Text, orig[i].Text)
		}
		for j := range orig[i].Vector {
			if got[i].Vector[j] != orig[i].Vector[j] {
				t.Errorf("record %d vector[%d]: got %f, want %f", i, j, got[i].Vector[j], orig[i].Vector[j])
			}
		}
		for k, v := range orig[i].Metadata {
			if got[i].Metadata[k] != v {
				t.Errorf("record %d metadata[%q]: got %q, want %q", i, k, got[i].Metadata[k], v)
			}
		}
	}
}

func TestDecodedIndexContinuesIDSequence(t *testing.T) {
	ix := populatedIndex(t)
	data, err := ix.Encode()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	err = decoded.Append([]Item{{
		Vector:   []float32{1, 1, 1, 1},
		Text:     "appended after reload",
		Metadata: domain.Metadata{domain.KeySource: "s", domain.KeyType: "t"},
	}})
	if err != nil {
		t.Fatal(err)
	}

	recs := decoded.Records()
	if recs[len(recs)-1].ID != 3 {
		t.Errorf("expected ID 3 after reload, got %d", recs[len(recs)-1].ID)
	}
}

func TestEncodeEmptyIndex(t *testing.T) {
	ix, err := New(8)
	if err != nil {
		t.Fatal(err)
	}
	data, err := ix.Encode()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Len() != 0 || decoded.Dimension() != 8 {
		t.Errorf("empty round trip: len=%d dim=%d", decoded.Len(), decoded.Dimension())
	}
}

func TestDecodeCorrupt(t *testing.T) {
	ix := populatedIndex(t)
	valid, err := ix.Encode()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("NOTANIDX"), valid[8:]...)},
		{"truncated header", valid[:10]},
		{"truncated records", valid[:len(valid)-7]},
		{"trailing garbage", append(append([]byte{}, valid...), 0xde, 0xad)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.data); !errors.Is(err, domain.ErrCorruptIndex) {
				t.Errorf("expected ErrCorruptIndex, got %v", err)
			}
		})
	}
}
