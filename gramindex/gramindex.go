// Package gramindex is the concrete collaborator behind the core's query and
// indexing commands: it extracts byte-trigrams from files, stores them in an
// index.DB per dataset, and answers Select queries by intersecting postings.
// It is the domain-specific implementation the core's Searcher/Indexer
// interfaces are defined against; the command grammar's actual query
// language and the on-disk index file format live here, not in the core.
package gramindex

import "encoding/binary"

// Extract returns the set of distinct 3-byte n-grams in data, each packed into
// the low 24 bits of a uint32 term so it can be stored as an index.Value.
func Extract(data []byte) []uint32 {
	if len(data) < 3 {
		return nil
	}
	seen := make(map[uint32]bool, len(data))
	terms := make([]uint32, 0, len(data))
	for i := 0; i+3 <= len(data); i++ {
		t := packTrigram(data[i], data[i+1], data[i+2])
		if !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	return terms
}

func packTrigram(a, b, c byte) uint32 {
	return uint32(a)<<16 | uint32(b)<<8 | uint32(c)
}

// unpackTrigram is used only by tests and diagnostics to render a term back
// into its three bytes.
func unpackTrigram(t uint32) [3]byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], t)
	return [3]byte{buf[1], buf[2], buf[3]}
}
