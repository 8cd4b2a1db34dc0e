package scan

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearcher_Index(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		data    string
		want    int
	}{
		{"match at start", "RSDS", "RSDS followed by junk", 0},
		{"match in middle", "RSDS", "some junk RSDS more junk", 10},
		{"match at end", "RSDS", "some junk RSDS", 10},
		{"no match", "RSDS", "nothing interesting here", -1},
		{"partial prefix only", "RSDS", "RSD RSD RSD", -1},
		{"first of several", "ab", "xxabyyabzz", 2},
		{"pattern equals data", "RSDS", "RSDS", 0},
		{"pattern longer than data", "RSDS", "RSD", -1},
		{"empty data", "RSDS", "", -1},
		{"empty pattern", "", "anything", 0},
		{"repeated bytes", "aaa", "aabaaab", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSearcher([]byte(tt.pattern))
			got := s.Index([]byte(tt.data))
			assert.Equal(t, tt.want, got)
			// Sanity check against the stdlib result.
			assert.Equal(t, bytes.Index([]byte(tt.data), []byte(tt.pattern)), got)
		})
	}
}

func TestSearcher_PatternCopied(t *testing.T) {
	buf := []byte("RSDS")
	s := NewSearcher(buf)
	buf[0] = 'X'
	assert.Equal(t, []byte("RSDS"), s.Pattern())
	assert.Equal(t, 4, s.Index([]byte("junkRSDS")))
}

func TestSearcher_BinaryData(t *testing.T) {
	pattern := []byte{0x00, 0xff, 0x00}
	data := append(bytes.Repeat([]byte{0xff}, 100), pattern...)
	s := NewSearcher(pattern)
	assert.Equal(t, 100, s.Index(data))
}
