// Package chunk defines the unit of ingestion and its deterministic identity.
package chunk

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
)

// Chunk is a segment of source-document text plus metadata.
// Chunks arrive pre-segmented; segmentation is the caller's concern.
type Chunk struct {
	Filename      string `json:"filename"`
	SequenceIndex int    `json:"sequence_index"`
	PageContent   string `json:"page_content"`
	Type          string `json:"type"`
	Source        string `json:"source"`
	Language      string `json:"language"` // ISO code or empty
}

// ID generates a deterministic chunk identifier from filename, global
// sequence index, and content: MD5 over "filename-index-content", first
// 8 bytes big-endian, reduced mod 2^63 so the value is a non-negative
// signed 64-bit integer.
//
// The exact hash law is a cross-system compatibility contract: other
// writers to the same index derive the same ID for the same inputs, so
// re-ingestion overwrites rather than duplicates. Do not change it.
func ID(filename string, sequenceIndex int, pageContent string) int64 {
	base := fmt.Sprintf("%s-%d-%s", filename, sequenceIndex, pageContent)
	sum := md5.Sum([]byte(base))
	v := binary.BigEndian.Uint64(sum[:8])
	return int64(v % (1 << 63))
}

// ID returns the chunk's derived identifier.
func (c *Chunk) ID() int64 {
	return ID(c.Filename, c.SequenceIndex, c.PageContent)
}
