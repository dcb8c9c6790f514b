// Package vecindex provides in-memory nearest-neighbour indexes over
// embedding vectors, ranked by cosine similarity.
//
// Two implementations share the Index interface: Flat performs an exact
// brute-force scan, and IVF is an approximate inverted-file index built with
// k-means clustering. Both are immutable snapshots; the storage layer
// rebuilds them when the underlying chunk set changes.
package vecindex
