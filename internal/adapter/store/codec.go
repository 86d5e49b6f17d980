package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"finrag/internal/domain"
)

// Persisted index layout (v1), little-endian throughout:
//
//	0..7   magic "FINVEC01"
//	8..11  dimension (uint32)
//	12..19 record count (uint64)
//	then per record:
//	  id (uint64)
//	  vector (dimension * float32)
//	  text length (uint32) + text bytes
//	  metadata length (uint32) + metadata JSON
var indexMagic = [8]byte{'F', 'I', 'N', 'V', 'E', 'C', '0', '1'}

// Encode serializes the index so Decode round-trips it exactly.
func (ix *Index) Encode() ([]byte, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var buf bytes.Buffer
	buf.Write(indexMagic[:])

	var header [12]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(ix.dimension))
	binary.LittleEndian.PutUint64(header[4:12], uint64(len(ix.records)))
	buf.Write(header[:])

	var scratch [8]byte
	for _, rec := range ix.records {
		binary.LittleEndian.PutUint64(scratch[:8], rec.ID)
		buf.Write(scratch[:8])

		for _, v := range rec.Vector {
			binary.LittleEndian.PutUint32(scratch[:4], math.Float32bits(v))
			buf.Write(scratch[:4])
		}

		binary.LittleEndian.PutUint32(scratch[:4], uint32(len(rec.Text)))
		buf.Write(scratch[:4])
		buf.WriteString(rec.Text)

		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode record %d metadata: %w", rec.ID, err)
		}
		binary.LittleEndian.PutUint32(scratch[:4], uint32(len(meta)))
		buf.Write(scratch[:4])
		buf.Write(meta)
	}

	return buf.Bytes(), nil
}

// Decode reconstructs an index from persisted bytes. Malformed input
// (wrong magic, truncated payload, impossible lengths) fails with
// domain.ErrCorruptIndex.
func Decode(data []byte) (*Index, error) {
	r := &reader{data: data}

	magic, err := r.take(8)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, indexMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic %q", domain.ErrCorruptIndex, magic)
	}

	dimension, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if dimension == 0 || dimension > 1<<20 {
		return nil, fmt.Errorf("%w: implausible dimension %d", domain.ErrCorruptIndex, dimension)
	}

	count, err := r.uint64()
	if err != nil {
		return nil, err
	}

	ix := &Index{dimension: int(dimension)}
	for i := uint64(0); i < count; i++ {
		id, err := r.uint64()
		if err != nil {
			return nil, err
		}

		raw, err := r.take(int(dimension) * 4)
		if err != nil {
			return nil, err
		}
		vec := make([]float32, dimension)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[j*4:]))
		}

		text, err := r.lengthPrefixed()
		if err != nil {
			return nil, err
		}

		metaRaw, err := r.lengthPrefixed()
		if err != nil {
			return nil, err
		}
		var meta domain.Metadata
		if err := json.Unmarshal(metaRaw, &meta); err != nil {
			return nil, fmt.Errorf("%w: record %d metadata: %v", domain.ErrCorruptIndex, id, err)
		}

		ix.records = append(ix.records, domain.Record{
			ID:       id,
			Vector:   vec,
			Text:     string(text),
			Metadata: meta,
		})
		if id >= ix.nextID {
			ix.nextID = id + 1
		}
	}

	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", domain.ErrCorruptIndex, r.remaining())
	}

	return ix, nil
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) remaining() int { return len(r.data) - r.off }

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("%w: truncated at offset %d (need %d bytes, have %d)",
			domain.ErrCorruptIndex, r.off, n, r.remaining())
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) lengthPrefixed() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}
