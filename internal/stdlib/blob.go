// Package stdlib loads the prebuilt standard-library blob: an opaque,
// position-dependent binary that implements `in`, `out`, and `sqrt` for
// generated code to call (spec §1, §6.4). It is copied verbatim; this
// package never generates or validates its contents.
package stdlib

import "os"

// Fixed byte offsets of the three entry points within the blob.
const (
	InOffset   = 0
	OutOffset  = 32
	SqrtOffset = 96
)

// Blob is the loaded standard-library image.
type Blob struct {
	Bytes      []byte
	InOffset   int64
	OutOffset  int64
	SqrtOffset int64
}

// Load reads the blob verbatim from path and seeds it with the fixed
// well-known offsets of its three entry points.
func Load(path string) (*Blob, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Blob{
		Bytes:      b,
		InOffset:   InOffset,
		OutOffset:  OutOffset,
		SqrtOffset: SqrtOffset,
	}, nil
}
