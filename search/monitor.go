package search

import "github.com/chattyhq/ragstore/core"

// RetrievalMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results during retrieval.
type RetrievalMonitor interface {
	Start(query string)
	AfterQueryEmbedding(vector []float32)
	AfterVectorSearch(matches []*core.ScoredChunk)
	Finish(results []*core.ScoredChunk)
}

// noopMonitor is a no-op implementation of RetrievalMonitor
type noopMonitor struct{}

var _ RetrievalMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                          {}
func (n *noopMonitor) AfterQueryEmbedding(_ []float32)         {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.ScoredChunk) {}
func (n *noopMonitor) Finish(_ []*core.ScoredChunk)            {}
