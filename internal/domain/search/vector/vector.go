// Package vector encodes embedding vectors as "<model>:<base64>" references.
//
// The payload is the base64 (standard alphabet, padded) encoding of the
// vector as little-endian float32 values.
package vector

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Reference is an embedding vector tagged with the model that produced it.
type Reference struct {
	Model  string
	Vector []float32
}

// String encodes the reference as "<model>:<base64>".
func (r Reference) String() string {
	return r.Model + ":" + Encode(r.Vector)
}

// Parse decodes a "<model>:<base64>" reference.
// The separator is the last colon; base64 never contains one.
func Parse(s string) (Reference, error) {
	idx := strings.LastIndexByte(s, ':')
	if idx <= 0 || idx == len(s)-1 {
		return Reference{}, fmt.Errorf("expected <model>:<base64 vector>, got %q", s)
	}
	vec, err := Decode(s[idx+1:])
	if err != nil {
		return Reference{}, err
	}
	return Reference{Model: s[:idx], Vector: vec}, nil
}

// Encode returns the base64 encoding of v as little-endian float32.
func Encode(v []float32) string {
	return base64.StdEncoding.EncodeToString(Bytes(v))
}

// Decode parses a base64 little-endian float32 vector.
func Decode(s string) ([]float32, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64 vector: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty vector")
	}
	return FromBytes(data)
}

// Bytes packs v as little-endian float32.
func Bytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// FromBytes unpacks little-endian float32 values.
func FromBytes(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
