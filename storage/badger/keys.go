package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/chattyhq/ragstore/core"
)

// Key prefixes for different data types
const (
	documentPrefix = "docrec"
	chunkPrefix    = "chkrec"
	docChunkPrefix = "docchk"
	chunkIDSeq     = "chkrecseq"

	documentKeyPrefix = documentPrefix + ":"
	chunkKeyPrefix    = chunkPrefix + ":"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentPrefix, id))
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkPrefix, id))
}

// makeDocChunkKey generates a composite key for the document -> chunk index.
// Format: prefix:documentID:chunkID
func makeDocChunkKey(docID, chunkID core.ID) []byte {
	prefix := docChunkPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for documentID + 8 bytes for chunkID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// makePartialDocChunkKey generates a partial key for scanning one document's
// chunk index entries.
// Format: prefix:documentID
func makePartialDocChunkKey(docID core.ID) []byte {
	prefix := docChunkPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for documentID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	return buf
}
