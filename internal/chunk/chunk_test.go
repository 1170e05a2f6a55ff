package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Golden values shared with the other writers of the same index format.
// If these change, re-ingestion stops being idempotent across systems.
func TestIDGoldenValues(t *testing.T) {
	tests := []struct {
		filename string
		index    int
		content  string
		want     int64
	}{
		{"report.pdf", 0, "hello world", 3016513687105853425},
		{"report.pdf", 1, "hello world", 4176800646675441081},
		{"report.pdf", 0, "hello worlds", 5872102118024206226},
		{"other.pdf", 0, "hello world", 2986370662849784053},
		{"", 0, "", 1726927048499526955},
		{"docs/guide.md", 42, "Reciprocal rank fusion combines ranked lists.", 3747487757313428821},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, ID(tt.filename, tt.index, tt.content))
		})
	}
}

func TestIDIsDeterministic(t *testing.T) {
	a := ID("a.txt", 3, "some content")
	b := ID("a.txt", 3, "some content")
	assert.Equal(t, a, b)
}

func TestIDIsNonNegative(t *testing.T) {
	inputs := []struct {
		filename string
		index    int
		content  string
	}{
		{"x", 0, "y"},
		{"weird\x00name", 999, "content with ünïcødé"},
		{"a", 1 << 30, ""},
	}
	for _, in := range inputs {
		id := ID(in.filename, in.index, in.content)
		assert.GreaterOrEqual(t, id, int64(0))
	}
}

func TestIDChangesWithEachField(t *testing.T) {
	base := ID("f.txt", 1, "content")
	assert.NotEqual(t, base, ID("g.txt", 1, "content"))
	assert.NotEqual(t, base, ID("f.txt", 2, "content"))
	assert.NotEqual(t, base, ID("f.txt", 1, "content "))
}

func TestChunkIDMethod(t *testing.T) {
	c := &Chunk{Filename: "report.pdf", SequenceIndex: 0, PageContent: "hello world"}
	assert.Equal(t, int64(3016513687105853425), c.ID())
}
