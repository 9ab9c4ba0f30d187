package sqlite

import (
	"encoding/binary"
	"fmt"
	"math"
)

// serializeEmbedding encodes a vector as little-endian float64 bytes.
func serializeEmbedding(embedding []float64) []byte {
	buf := make([]byte, len(embedding)*8)
	for i, v := range embedding {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// deserializeEmbedding decodes a vector previously written by
// serializeEmbedding, validating the declared dimension.
func deserializeEmbedding(blob []byte, dimension int) ([]float64, error) {
	if dimension <= 0 || len(blob) != dimension*8 {
		return nil, fmt.Errorf("embedding blob size %d does not match dimension %d", len(blob), dimension)
	}
	out := make([]float64, dimension)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return out, nil
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is zero or the dimensions differ.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
