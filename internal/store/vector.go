package store

import (
	"encoding/binary"
	"math"
)

// encodeVector packs a float32 vector as little-endian bytes, the same
// layout sqlite-vec uses for float32 columns.
func encodeVector(vector []float32) []byte {
	blob := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// decodeVector unpacks a little-endian float32 blob. Returns nil for an
// empty or truncated blob.
func decodeVector(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}
