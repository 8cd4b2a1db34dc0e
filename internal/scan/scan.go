// Package scan implements substring search over raw byte buffers.
//
// Debug-info records are located inside unstructured module images by
// scanning for a short magic tag; the Boyer-Moore-Horspool skip table
// makes repeated scans over multi-megabyte images cheap.
package scan

// Searcher is a Boyer-Moore-Horspool searcher compiled for one pattern.
// A Searcher is immutable and safe for concurrent use.
type Searcher struct {
	pattern []byte
	skip    [256]int
}

// NewSearcher compiles a searcher for the given pattern.
// The pattern is copied; the caller may reuse its buffer.
func NewSearcher(pattern []byte) *Searcher {
	s := &Searcher{pattern: append([]byte(nil), pattern...)}
	last := len(s.pattern) - 1
	for i := range s.skip {
		s.skip[i] = len(s.pattern)
	}
	for i := 0; i < last; i++ {
		s.skip[s.pattern[i]] = last - i
	}
	return s
}

// Index returns the offset of the first occurrence of the pattern in
// data, or -1 if the pattern does not occur. An empty pattern matches
// at offset 0.
func (s *Searcher) Index(data []byte) int {
	n := len(s.pattern)
	if n == 0 {
		return 0
	}
	last := n - 1
	for pos := 0; pos+n <= len(data); {
		if data[pos+last] == s.pattern[last] {
			matched := true
			for i := 0; i < last; i++ {
				if data[pos+i] != s.pattern[i] {
					matched = false
					break
				}
			}
			if matched {
				return pos
			}
		}
		pos += s.skip[data[pos+last]]
	}
	return -1
}

// Pattern returns the compiled pattern bytes.
func (s *Searcher) Pattern() []byte {
	return s.pattern
}
